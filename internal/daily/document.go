package daily

import (
	"slices"
	"strings"

	"github.com/starford/dailyvault/internal/apperr"
	"github.com/starford/dailyvault/internal/parser"
)

// document is a daily note split into lines. It is rebuilt from content on
// every operation and never cached.
type document struct {
	lines []string
	// trailingNewline records whether content ended with "\n"; the final
	// empty element of lines is then not a real line.
	trailingNewline bool
}

func parseDocument(content string) *document {
	return &document{
		lines:           strings.Split(content, "\n"),
		trailingNewline: strings.HasSuffix(content, "\n"),
	}
}

func (d *document) String() string {
	return strings.Join(d.lines, "\n")
}

// lineCount returns the number of addressable lines.
func (d *document) lineCount() int {
	n := len(d.lines)
	if d.trailingNewline || (n == 1 && d.lines[0] == "") {
		n--
	}
	return n
}

// checkLine converts a 1-indexed line number to an index.
func (d *document) checkLine(n int) (int, error) {
	if n < 1 || n > d.lineCount() {
		return 0, apperr.ErrInvalidLineNumber
	}
	return n - 1, nil
}

// span is a half-open range of line indexes. start is the heading line.
type span struct {
	start, end int
}

// section locates the second-level section name. It runs until the next
// heading of level one or two, or the end of the document.
func (d *document) section(name string) (span, bool) {
	for i, raw := range d.lines {
		if !parser.ClassifyLine(raw).IsSection(name) {
			continue
		}
		end := len(d.lines)
		for j := i + 1; j < len(d.lines); j++ {
			l := parser.ClassifyLine(d.lines[j])
			if (l.Kind == parser.Heading || l.Kind == parser.Header) && l.Level <= 2 {
				end = j
				break
			}
		}
		return span{start: i, end: end}, true
	}
	return span{}, false
}

// subsection locates a third-level heading named name inside within.
func (d *document) subsection(within span, name string) (span, bool) {
	for i := within.start + 1; i < within.end; i++ {
		l := parser.ClassifyLine(d.lines[i])
		if l.Kind != parser.Heading || l.Level != 3 || !strings.EqualFold(l.Text, name) {
			continue
		}
		end := within.end
		for j := i + 1; j < within.end; j++ {
			if h := parser.ClassifyLine(d.lines[j]); h.Kind == parser.Heading && h.Level <= 3 {
				end = j
				break
			}
		}
		return span{start: i, end: end}, true
	}
	return span{}, false
}

// contentEnd returns the index just past the last non-empty line of s.
func (d *document) contentEnd(s span) int {
	end := s.end
	for end > s.start+1 && strings.TrimSpace(d.lines[end-1]) == "" {
		end--
	}
	return end
}

// insert places block at index at.
func (d *document) insert(at int, block ...string) {
	d.lines = slices.Insert(d.lines, at, block...)
}

// appendToSection adds block after the last content line of s, separated
// by one blank line, and keeps one blank line before whatever follows.
func (d *document) appendToSection(s span, block ...string) {
	end := d.contentEnd(s)
	out := slices.Clone(d.lines[:end])
	out = append(out, "")
	out = append(out, block...)
	if rest := d.lines[s.end:]; len(rest) > 0 && !(len(rest) == 1 && rest[0] == "") {
		out = append(out, "")
		out = append(out, rest...)
	} else {
		out = append(out, "")
	}
	d.lines = out
	d.trailingNewline = true
}

// appendSection adds a new second-level section at the end of the document.
func (d *document) appendSection(name string, block ...string) {
	body := strings.TrimRight(d.String(), "\n")
	var out []string
	if strings.TrimSpace(body) != "" {
		out = append(strings.Split(body, "\n"), "")
	}
	out = append(out, parser.SectionHeading(name), "")
	out = append(out, block...)
	out = append(out, "")
	d.lines = out
	d.trailingNewline = true
}

// todoGroup is one subcategory of the todos section. heading is empty for
// tasks that precede the first subcategory.
type todoGroup struct {
	heading string
	tasks   []string
}

// openTodos returns the incomplete tasks of the todos section grouped by
// subcategory. Every subcategory heading is kept, even when it has no open
// tasks left.
func (d *document) openTodos() []todoGroup {
	s, ok := d.section(parser.SectionTodos)
	if !ok {
		return nil
	}
	var groups []todoGroup
	for _, raw := range d.lines[s.start+1 : s.end] {
		l := parser.ClassifyLine(raw)
		switch {
		case l.Kind == parser.Heading && l.Level >= 3:
			groups = append(groups, todoGroup{heading: raw})
		case l.Kind == parser.Task && !l.Checked:
			if len(groups) == 0 {
				groups = append(groups, todoGroup{})
			}
			groups[len(groups)-1].tasks = append(groups[len(groups)-1].tasks, raw)
		}
	}
	return groups
}

// pinnedEntries returns each pinned custom-notes entry as its heading line
// followed by its body, with trailing blank lines removed.
func (d *document) pinnedEntries() [][]string {
	s, ok := d.section(parser.SectionCustomNotes)
	if !ok {
		return nil
	}
	var (
		out     [][]string
		current []string
		pinned  bool
	)
	flush := func() {
		if pinned && len(current) > 0 {
			for len(current) > 1 && strings.TrimSpace(current[len(current)-1]) == "" {
				current = current[:len(current)-1]
			}
			out = append(out, current)
		}
		current, pinned = nil, false
	}
	for _, raw := range d.lines[s.start+1 : s.end] {
		l := parser.ClassifyLine(raw)
		if l.Kind == parser.Heading && l.Level <= 3 {
			flush()
			pinned = l.Pinned
			current = []string{raw}
			continue
		}
		if current != nil {
			current = append(current, raw)
		}
	}
	flush()
	return out
}

// compose renders a new daily note from carried-over content.
func compose(date string, groups []todoGroup, pinned [][]string) string {
	var b strings.Builder
	b.WriteString(parser.DateHeader(date) + "\n\n")
	b.WriteString(parser.SectionHeading(parser.SectionTodos) + "\n\n")
	for i, g := range groups {
		if i > 0 {
			b.WriteString("\n")
		}
		if g.heading != "" {
			b.WriteString(g.heading + "\n")
		}
		for _, t := range g.tasks {
			b.WriteString(t + "\n")
		}
	}
	if len(groups) > 0 {
		b.WriteString("\n")
	}
	b.WriteString(parser.SectionHeading(parser.SectionCustomNotes) + "\n\n")
	for i, e := range pinned {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(strings.Join(e, "\n") + "\n")
	}
	return b.String()
}
