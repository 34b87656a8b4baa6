// Package parser classifies the lines of a daily note. Classification is a
// pure function of the line text; the daily engine and the API share it.
package parser

import (
	"regexp"
	"strings"
	"time"
)

// PinnedMarker flags a custom-notes entry that survives carryover.
const PinnedMarker = "<pinned>"

// Section names as written in daily notes.
const (
	SectionTodos       = "todos"
	SectionCustomNotes = "custom notes"
)

var (
	headerRe  = regexp.MustCompile(`^#\s+(\d{4}-\d{2}-\d{2})\s*$`)
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*?)\s*$`)
	taskRe    = regexp.MustCompile(`^(\s*-\s*)\[([ xX])\](.*)$`)
	pinnedRe  = regexp.MustCompile(`(?i)<pinned>`)
	unpinRe   = regexp.MustCompile(`(?i)[ \t]*<pinned>`)
)

// Kind identifies the variant of a classified line.
type Kind int

const (
	Text Kind = iota
	Empty
	Header
	Heading
	Task
)

func (k Kind) String() string {
	switch k {
	case Empty:
		return "empty"
	case Header:
		return "header"
	case Heading:
		return "heading"
	case Task:
		return "task"
	default:
		return "text"
	}
}

// Line is a classified line. Only the fields of its Kind are set.
type Line struct {
	Kind Kind
	Raw  string

	// Header.
	Date string

	// Heading.
	Level  int
	Pinned bool

	// Heading text, or the task text after the checkbox.
	Text string

	// Task.
	Checked bool
}

// ClassifyLine returns the variant of a single line (without its newline).
func ClassifyLine(s string) Line {
	if strings.TrimSpace(s) == "" {
		return Line{Kind: Empty, Raw: s}
	}
	if m := headerRe.FindStringSubmatch(s); m != nil {
		return Line{Kind: Header, Raw: s, Date: m[1], Level: 1}
	}
	if m := headingRe.FindStringSubmatch(s); m != nil {
		return Line{
			Kind:   Heading,
			Raw:    s,
			Level:  len(m[1]),
			Text:   m[2],
			Pinned: pinnedRe.MatchString(s),
		}
	}
	if m := taskRe.FindStringSubmatch(s); m != nil {
		return Line{
			Kind:    Task,
			Raw:     s,
			Checked: m[2] != " ",
			Text:    strings.TrimSpace(m[3]),
		}
	}
	return Line{Kind: Text, Raw: s}
}

// IsSection reports whether l opens the second-level section name.
func (l Line) IsSection(name string) bool {
	return l.Kind == Heading && l.Level == 2 && strings.EqualFold(l.Text, name)
}

// ToggleTask flips the checkbox of a task line: space becomes x, x or X
// becomes space. ok is false when s is not a task line.
func ToggleTask(s string) (string, bool) {
	m := taskRe.FindStringSubmatchIndex(s)
	if m == nil {
		return s, false
	}
	mark := "x"
	if s[m[4]:m[5]] != " " {
		mark = " "
	}
	return s[:m[4]] + mark + s[m[5]:], true
}

// Unpin removes every pinned marker, and the blanks before it, from s.
func Unpin(s string) (string, bool) {
	if !pinnedRe.MatchString(s) {
		return s, false
	}
	return unpinRe.ReplaceAllString(s, ""), true
}

// TaskLine renders an incomplete task.
func TaskLine(text string) string {
	return "- [ ] " + text
}

// DateHeader renders the first line of a daily note.
func DateHeader(date string) string {
	return "# " + date
}

// SectionHeading renders a second-level section heading.
func SectionHeading(name string) string {
	return "## " + name
}

// EntryHeading renders the heading of a custom-notes entry.
func EntryHeading(t time.Time, pinned bool) string {
	h := "### " + t.Format("15:04")
	if pinned {
		h += " " + PinnedMarker
	}
	return h
}
