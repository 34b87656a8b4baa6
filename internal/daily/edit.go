package daily

import (
	"strings"
	"time"

	"github.com/starford/dailyvault/internal/parser"
)

// carryover builds today's note from the previous one: open tasks keep
// their subcategory, pinned entries are copied verbatim, the rest is dropped.
func carryover(date, previous string) string {
	if previous == "" {
		return compose(date, nil, nil)
	}
	doc := parseDocument(previous)
	return compose(date, doc.openTodos(), doc.pinnedEntries())
}

// toggleLine flips the task at 1-indexed line n. changed is false when the
// line is not a task.
func toggleLine(content string, n int) (out string, changed bool, err error) {
	doc := parseDocument(content)
	i, err := doc.checkLine(n)
	if err != nil {
		return content, false, err
	}
	toggled, ok := parser.ToggleTask(doc.lines[i])
	if !ok {
		return content, false, nil
	}
	doc.lines[i] = toggled
	return doc.String(), true, nil
}

// unpinLine removes the pinned marker from the heading at line n.
func unpinLine(content string, n int) (out string, changed bool, err error) {
	doc := parseDocument(content)
	i, err := doc.checkLine(n)
	if err != nil {
		return content, false, err
	}
	l := parser.ClassifyLine(doc.lines[i])
	if l.Kind != parser.Heading || !l.Pinned {
		return content, false, nil
	}
	doc.lines[i], _ = parser.Unpin(doc.lines[i])
	return doc.String(), true, nil
}

// clearPinned unpins every entry heading of the custom notes section and
// returns how many were changed.
func clearPinned(content string) (string, int) {
	doc := parseDocument(content)
	s, ok := doc.section(parser.SectionCustomNotes)
	if !ok {
		return content, 0
	}
	n := 0
	for i := s.start + 1; i < s.end; i++ {
		l := parser.ClassifyLine(doc.lines[i])
		if l.Kind != parser.Heading || !l.Pinned {
			continue
		}
		doc.lines[i], _ = parser.Unpin(doc.lines[i])
		n++
	}
	return doc.String(), n
}

// appendEntry adds a timestamped entry to the custom notes section,
// creating the section at the end of the document when absent.
func appendEntry(content string, at time.Time, text string, pinned bool) string {
	block := append([]string{parser.EntryHeading(at, pinned)}, strings.Split(strings.TrimRight(text, "\n"), "\n")...)
	doc := parseDocument(content)
	if s, ok := doc.section(parser.SectionCustomNotes); ok {
		doc.appendToSection(s, block...)
	} else {
		doc.appendSection(parser.SectionCustomNotes, block...)
	}
	return doc.String()
}

// addTask appends an open task to a subcategory of the todos section,
// creating the section or subcategory when absent.
func addTask(content, category, text string) string {
	task := parser.TaskLine(text)
	heading := "### " + category
	doc := parseDocument(content)

	todos, ok := doc.section(parser.SectionTodos)
	if !ok {
		block := []string{parser.SectionHeading(parser.SectionTodos), "", heading, task}
		notes, hasNotes := doc.section(parser.SectionCustomNotes)
		if !hasNotes {
			doc.appendSection(parser.SectionTodos, heading, task)
			return doc.String()
		}
		block = append(block, "")
		if notes.start > 0 && strings.TrimSpace(doc.lines[notes.start-1]) != "" {
			block = append([]string{""}, block...)
		}
		doc.insert(notes.start, block...)
		return doc.String()
	}

	if sub, ok := doc.subsection(todos, category); ok {
		doc.insert(doc.contentEnd(sub), task)
		return doc.String()
	}
	doc.appendToSection(todos, heading, task)
	return doc.String()
}
