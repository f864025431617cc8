package main

import "github.com/flowforge-dev/flowmigrate/cmd"

func main() {
	cmd.Execute()
}
