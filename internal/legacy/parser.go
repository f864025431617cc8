// Package legacy parses the two historical time-tracking text layouts into
// canonical records: the v1 pipe-delimited table and the v2 per-date bullet
// list. Detection is purely structural; a file matching neither layout
// yields zero sessions rather than an error.
package legacy

import (
	"log/slog"
	"math"
	"os"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/flowforge-dev/flowmigrate/internal/model"
	"github.com/flowforge-dev/flowmigrate/internal/timecalc"
)

// Format identifies which legacy layout a file used.
type Format string

const (
	// FormatNone means no known structural marker was found.
	FormatNone Format = "none"
	// FormatTable is the v1 pipe-delimited table layout.
	FormatTable Format = "table"
	// FormatBullet is the v2 per-date bullet layout.
	FormatBullet Format = "bullet"
)

// Options configures a parse pass.
type Options struct {
	// DefaultUser is assigned to table rows that carry no @handle.
	DefaultUser string
	// Today overrides the current processing date (2006-01-02) assigned to
	// bullet sessions that appear before any date header. Empty means the
	// wall-clock date.
	Today string
}

// ParseResult is the outcome of one parse pass over one input.
type ParseResult struct {
	Format       Format
	Sessions     []model.Session
	TotalMinutes int
	Users        []string // distinct user handles, sorted
	SkippedLines int      // candidate record lines that failed their grammar
	DateSections int      // date headers seen (bullet layout only)
}

var (
	dateHeaderRe    = regexp.MustCompile(`^#{1,6}\s+(\d{4}-\d{2}-\d{2})(?:\s.*)?$`)
	bulletSessionRe = regexp.MustCompile(`^[-*]\s*(?:[Ii]ssue\s*)?#(\d+)\s*\[(\d+(?:\.\d+)?)\s*([hm]?)\]\s*(?:-\s*)?(.*?)\s*@([A-Za-z0-9][A-Za-z0-9_.-]*)\s*$`)
	tableSeparator  = regexp.MustCompile(`^\|(?:\s*:?-+:?\s*\|)+\s*$`)
	issueCellRe     = regexp.MustCompile(`^#?(\d+)$`)
	trailingUserRe  = regexp.MustCompile(`(?:^|\s)@([A-Za-z0-9][A-Za-z0-9_.-]*)\s*$`)
)

// LoadSessions parses the legacy time-tracking file at path. A missing file
// is not an error: it yields an empty result, matching the rule that absent
// input must never abort a migration.
func LoadSessions(path string, opts Options) (ParseResult, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		slog.Debug("legacy time-tracking file not found", "path", path)
		return ParseResult{Format: FormatNone, Sessions: []model.Session{}}, nil
	}
	if err != nil {
		return ParseResult{}, err
	}
	res := ParseSessions(string(data), opts)
	slog.Debug("parsed legacy time-tracking file",
		"path", path,
		"format", res.Format,
		"sessions", len(res.Sessions),
		"skipped", res.SkippedLines,
		"date_sections", res.DateSections)
	return res, nil
}

// scanState is the accumulator threaded through a scan. Keeping it a value
// on the stack (not package state) makes the parser reusable per input.
type scanState struct {
	currentDate string
	seq         map[string]int
	sessions    []model.Session
	total       int
	users       map[string]struct{}
	skipped     int
	sections    int
}

// ParseSessions parses legacy time-tracking text. Lines that fail their
// grammar are skipped and counted, never fatal.
func ParseSessions(text string, opts Options) ParseResult {
	lines := strings.Split(text, "\n")
	format := detectFormat(lines)

	today := opts.Today
	if today == "" {
		today = time.Now().UTC().Format(timecalc.DateLayout)
	}
	st := scanState{
		currentDate: today,
		seq:         make(map[string]int),
		sessions:    []model.Session{},
		users:       make(map[string]struct{}),
	}

	switch format {
	case FormatTable:
		scanTable(&st, lines, opts.DefaultUser)
	case FormatBullet:
		scanBullets(&st, lines)
	}

	users := make([]string, 0, len(st.users))
	for u := range st.users {
		users = append(users, u)
	}
	sort.Strings(users)

	return ParseResult{
		Format:       format,
		Sessions:     st.sessions,
		TotalMinutes: st.total,
		Users:        users,
		SkippedLines: st.skipped,
		DateSections: st.sections,
	}
}

// detectFormat inspects structural markers line by line: a pipe-delimited
// header row selects the table grammar, a date section header or a bullet
// session line selects the bullet grammar. First marker wins.
func detectFormat(lines []string) Format {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if isTableHeader(trimmed) {
			return FormatTable
		}
		if isDateHeader(trimmed) || bulletSessionRe.MatchString(trimmed) {
			return FormatBullet
		}
	}
	return FormatNone
}

// isTableHeader reports whether a pipe row is the table's header row. Only
// the first cell decides: the header names the date column there, a data
// row carries the date value itself.
func isTableHeader(line string) bool {
	if !strings.HasPrefix(line, "|") || strings.Count(line, "|") < 3 {
		return false
	}
	cells := splitRow(line)
	return len(cells) > 0 && strings.EqualFold(cells[0], "date")
}

func isDateHeader(line string) bool {
	m := dateHeaderRe.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	_, err := timecalc.ParseDate(m[1])
	return err == nil
}

// scanBullets walks the per-date bullet layout. A date header sets the
// current date for all session lines until the next header; bullet lines
// that fail the session grammar are counted as skipped.
func scanBullets(st *scanState, lines []string) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if m := dateHeaderRe.FindStringSubmatch(trimmed); m != nil {
			if _, err := timecalc.ParseDate(m[1]); err == nil {
				st.currentDate = m[1]
				st.sections++
				continue
			}
		}
		if !strings.HasPrefix(trimmed, "-") && !strings.HasPrefix(trimmed, "*") {
			continue // prose, headings without dates, etc.
		}
		m := bulletSessionRe.FindStringSubmatch(trimmed)
		if m == nil {
			st.skipped++
			continue
		}
		taskID, _ := strconv.Atoi(m[1])
		value, err := strconv.ParseFloat(m[2], 64)
		if err != nil {
			st.skipped++
			continue
		}
		minutes := normalizeDuration(value, m[3])
		st.addSession(taskID, minutes, m[4], m[5], st.currentDate, "")
	}
}

// scanTable walks the v1 table layout: date, issue, start, end, hours,
// status glyph, description. The status glyph is not part of the session
// model and is discarded. A trailing @handle in the description names the
// user; rows without one fall back to defaultUser.
func scanTable(st *scanState, lines []string, defaultUser string) {
	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "|") {
			continue
		}
		if isTableHeader(trimmed) || tableSeparator.MatchString(trimmed) {
			continue
		}
		cells := splitRow(trimmed)
		if len(cells) < 7 {
			st.skipped++
			continue
		}

		date := cells[0]
		if _, err := timecalc.ParseDate(date); err != nil {
			st.skipped++
			continue
		}
		im := issueCellRe.FindStringSubmatch(cells[1])
		if im == nil {
			st.skipped++
			continue
		}
		taskID, _ := strconv.Atoi(im[1])

		start, end := cells[2], cells[3]
		minutes, ok := rowMinutes(cells[4], start, end)
		if !ok {
			st.skipped++
			continue
		}

		desc := cells[6]
		user := defaultUser
		if um := trailingUserRe.FindStringSubmatch(desc); um != nil {
			user = um[1]
			desc = strings.TrimSpace(trailingUserRe.ReplaceAllString(desc, ""))
		}

		st.addSession(taskID, minutes, desc, user, date, start)
	}
}

// rowMinutes resolves a table row's duration: the hours column wins, and an
// empty hours column falls back to the start/end clock span.
func rowMinutes(hours, start, end string) (int, bool) {
	if hours != "" {
		v, err := strconv.ParseFloat(hours, 64)
		if err != nil {
			return 0, false
		}
		return timecalc.HoursToMinutes(v), true
	}
	if start != "" && end != "" {
		m, err := timecalc.ClockSpanMinutes(start, end)
		if err != nil {
			return 0, false
		}
		return m, true
	}
	return 0, false
}

// splitRow splits a pipe-delimited row into trimmed cells. Extra pipes
// beyond the seventh column are folded back into the description.
func splitRow(line string) []string {
	parts := strings.Split(line, "|")
	// Leading and trailing pipes produce empty first/last parts.
	if len(parts) > 0 && strings.TrimSpace(parts[0]) == "" {
		parts = parts[1:]
	}
	if len(parts) > 0 && strings.TrimSpace(parts[len(parts)-1]) == "" {
		parts = parts[:len(parts)-1]
	}
	cells := make([]string, len(parts))
	for i, p := range parts {
		cells[i] = strings.TrimSpace(p)
	}
	if len(cells) > 7 {
		cells[6] = strings.Join(cells[6:], " | ")
		cells = cells[:7]
	}
	return cells
}

// normalizeDuration converts a parsed duration value to minutes: "h" means
// hours rounded to the nearest minute, "m" and bare numbers mean minutes.
func normalizeDuration(value float64, unit string) int {
	if unit == "h" {
		return timecalc.HoursToMinutes(value)
	}
	return int(math.Round(value))
}

func (st *scanState) addSession(taskID, minutes int, desc, user, date, startClock string) {
	if user == "" {
		user = "unknown"
	}
	st.seq[date]++

	ts := timecalc.DefaultTimestamp(date)
	if startClock != "" {
		ts = timecalc.ClockTimestamp(date, startClock)
	}

	st.sessions = append(st.sessions, model.Session{
		ID:              timecalc.SessionID(date, st.seq[date]),
		TaskID:          taskID,
		User:            user,
		DurationMinutes: minutes,
		Description:     desc,
		Date:            date,
		Timestamp:       ts,
		Source:          model.SourceLegacyText,
	})
	st.total += minutes
	st.users[user] = struct{}{}
}
