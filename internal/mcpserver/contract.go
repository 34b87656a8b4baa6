package mcpserver

// NoteFormat describes the daily note layout that LLM consumers must keep
// intact when editing notes.
const NoteFormat = `# Daily Note Format

Each person has their own vault. Daily notes live at ` + "`daily/YYYY-MM-DD.md`" + `
and are created on first access from the most recent earlier note.

## Structure

` + "```" + `markdown
# 2025-01-15

## todos

### work
- [ ] open task
- [x] finished task

### private
- [ ] another task

## custom notes

### 09:30
Plain entry. Stays in this day's note only.

### 14:00 <pinned>
Pinned entry. Copied into every following day until unpinned.
` + "```" + `

## Rules

1. **Date header.** The first line is ` + "`# YYYY-MM-DD`" + `.
2. **Sections** are level-2 headings: ` + "`## todos`" + ` and ` + "`## custom notes`" + `, in that order.
3. **Todo categories** are level-3 headings under ` + "`## todos`" + `. Use the
   ` + "`add_task`" + ` tool; unknown categories are rejected.
4. **Tasks** are ` + "`- [ ] text`" + ` (open) or ` + "`- [x] text`" + ` (done). Use
   ` + "`toggle_task`" + ` with the 1-based line number to flip one.
5. **Entries** are level-3 headings ` + "`### HH:MM`" + ` under ` + "`## custom notes`" + `,
   followed by their body. Use ` + "`append_entry`" + ` to add one with the current time.
6. **Pinned entries** carry ` + "`<pinned>`" + ` in their heading. Use ` + "`unpin_entry`" + `
   or ` + "`clear_pinned`" + ` to stop carrying them over.
7. **Carryover.** A new day keeps open tasks under their categories and every
   pinned entry. Done tasks and plain entries stay behind.
8. **Encoding** is UTF-8 with LF line endings.
`
