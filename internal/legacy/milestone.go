package legacy

import (
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/flowforge-dev/flowmigrate/internal/model"
	"github.com/flowforge-dev/flowmigrate/internal/timecalc"
)

var (
	milestoneHeaderRe = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*\(\s*[Dd]ue:?\s*(\d{4}-\d{2}-\d{2})\s*\)\s*$`)
	anyHeaderRe       = regexp.MustCompile(`^#{1,6}\s`)
	issueRefRe        = regexp.MustCompile(`^[-*]\s*(?:[Ii]ssue\s*)?#(\d+)\b`)
)

// LoadMilestones parses the legacy milestones file at path. Missing file
// yields an empty list.
func LoadMilestones(path string) ([]model.Milestone, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("legacy milestones file not found", "path", path)
		return []model.Milestone{}, nil
	}
	if err != nil {
		return nil, err
	}
	milestones := ParseMilestones(string(data))
	slog.Debug("parsed legacy milestones file", "path", path, "milestones", len(milestones))
	return milestones, nil
}

// ParseMilestones parses milestone text: a header line binds a title and due
// date, subsequent issue-reference lines attach to it until the next header
// or end of file. The milestone still open at end of file is flushed.
func ParseMilestones(text string) []model.Milestone {
	milestones := []model.Milestone{}
	var open *model.Milestone

	flush := func() {
		if open != nil {
			milestones = append(milestones, *open)
			open = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := milestoneHeaderRe.FindStringSubmatch(trimmed); m != nil {
			if _, err := timecalc.ParseDate(m[2]); err == nil {
				flush()
				open = &model.Milestone{
					Title:   m[1],
					DueDate: m[2],
					Tasks:   []int{},
					Status:  model.MilestoneActive,
				}
				continue
			}
		}
		if anyHeaderRe.MatchString(trimmed) {
			// A header without a due date still closes the open milestone.
			flush()
			continue
		}
		if open == nil {
			continue
		}
		if m := issueRefRe.FindStringSubmatch(trimmed); m != nil {
			id, _ := strconv.Atoi(m[1])
			// Duplicates are kept: the source may reference an issue twice.
			open.Tasks = append(open.Tasks, id)
		}
	}
	flush()

	return milestones
}
