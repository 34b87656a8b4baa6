// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the vault and daily-note operations over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/dailyvault/internal/noteservice"
)

const noteFormatURI = "dailyvault://note-format"

// Server wraps the MCP server with the vault tools.
type Server struct {
	mcp *server.MCPServer
	svc *noteservice.Service
}

// New creates a new MCP server with all tools registered.
func New(svc *noteservice.Service, version string) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"dailyvault",
		version,
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	ns := mcp.WithString("namespace", mcp.Required(), mcp.Description("Person whose vault to use"))

	s.mcp.AddTool(mcp.NewTool("get_today",
		mcp.WithDescription("Return today's daily note, creating it from the previous note when missing."),
		ns,
	), s.getToday)

	s.mcp.AddTool(mcp.NewTool("read_file",
		mcp.WithDescription("Read the full content of a file in the vault."),
		ns,
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path (e.g. daily/2025-01-15.md)")),
	), s.readFile)

	s.mcp.AddTool(mcp.NewTool("write_file",
		mcp.WithDescription("Create or replace a file and commit it. Daily notes MUST keep the "+
			"format returned by get_note_format."),
		ns,
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the file")),
		mcp.WithString("content", mcp.Required(), mcp.Description("Full new content")),
	), s.writeFile)

	s.mcp.AddTool(mcp.NewTool("list_dir",
		mcp.WithDescription("List a directory of the vault."),
		ns,
		mcp.WithString("path", mcp.Description("Directory to list (default: vault root)")),
	), s.listDir)

	s.mcp.AddTool(mcp.NewTool("delete_file",
		mcp.WithDescription("Delete a file and commit the removal."),
		ns,
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the file")),
	), s.deleteFile)

	s.mcp.AddTool(mcp.NewTool("toggle_task",
		mcp.WithDescription("Toggle the checkbox of the task at a 1-based line number."),
		ns,
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("1-based line number")),
	), s.toggleTask)

	s.mcp.AddTool(mcp.NewTool("append_entry",
		mcp.WithDescription("Append a timestamped entry to the custom notes of today's note."),
		ns,
		mcp.WithString("text", mcp.Required(), mcp.Description("Entry body")),
		mcp.WithBoolean("pinned", mcp.Description("Carry the entry over to following days")),
	), s.appendEntry)

	s.mcp.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add an open task under a category of today's todos."),
		ns,
		mcp.WithString("category", mcp.Required(), mcp.Description("Todo category")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Task text")),
	), s.addTask)

	s.mcp.AddTool(mcp.NewTool("clear_pinned",
		mcp.WithDescription("Unpin every pinned entry of a note."),
		ns,
		mcp.WithString("path", mcp.Description("Relative path of the note (default: today's note)")),
	), s.clearPinned)

	s.mcp.AddTool(mcp.NewTool("unpin_entry",
		mcp.WithDescription("Unpin the entry whose heading is at a 1-based line number."),
		ns,
		mcp.WithString("path", mcp.Required(), mcp.Description("Relative path of the note")),
		mcp.WithNumber("line", mcp.Required(), mcp.Description("1-based line number of the entry heading")),
	), s.unpinEntry)

	s.mcp.AddTool(mcp.NewTool("sync",
		mcp.WithDescription("Pull remote changes, then commit and push local ones."),
	), s.sync)

	s.mcp.AddTool(mcp.NewTool("get_note_format",
		mcp.WithDescription("Returns the daily note format. "+
			"Call this before editing daily notes to keep their structure intact."),
	), s.getNoteFormat)

	s.mcp.AddResource(
		mcp.NewResource(noteFormatURI, "Daily Note Format",
			mcp.WithResourceDescription("Structure of the daily notes kept in the vault."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readNoteFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) getToday(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, err := req.RequireString("namespace")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	note, err := s.svc.Today(ctx, ns)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(note.Content), nil
}

func (s *Server) readFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, path, err := nsPath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := s.svc.ReadFile(ctx, ns, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(content), nil
}

func (s *Server) writeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, path, err := nsPath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	content, err := req.RequireString("content")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.WriteFile(ctx, ns, path, content))
}

func (s *Server) listDir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, err := req.RequireString("namespace")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	entries, err := s.svc.ListDir(ctx, ns, req.GetString("path", "."))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir {
			lines = append(lines, e.Path+"/")
			continue
		}
		lines = append(lines, e.Path)
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) deleteFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, path, err := nsPath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.DeleteFile(ctx, ns, path))
}

func (s *Server) toggleTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, path, err := nsPath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	line, err := req.RequireInt("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.ToggleTask(ctx, ns, path, line))
}

func (s *Server) appendEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, err := req.RequireString("namespace")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.AppendEntry(ctx, ns, text, req.GetBool("pinned", false)))
}

func (s *Server) addTask(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, err := req.RequireString("namespace")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	category, err := req.RequireString("category")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.AddTask(ctx, ns, category, text))
}

func (s *Server) clearPinned(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, err := req.RequireString("namespace")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.ClearPinned(ctx, ns, req.GetString("path", "")))
}

func (s *Server) unpinEntry(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ns, path, err := nsPath(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	line, err := req.RequireInt("line")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return result(s.svc.UnpinEntry(ctx, ns, path, line))
}

func (s *Server) sync(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	o := s.svc.Sync(ctx)
	if !o.OK {
		return mcp.NewToolResultError(o.Message), nil
	}
	return mcp.NewToolResultText(o.Message), nil
}

func (s *Server) getNoteFormat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(NoteFormat), nil
}

func (s *Server) readNoteFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      noteFormatURI,
			MIMEType: "text/markdown",
			Text:     NoteFormat,
		},
	}, nil
}

func nsPath(req mcp.CallToolRequest) (string, string, error) {
	ns, err := req.RequireString("namespace")
	if err != nil {
		return "", "", err
	}
	path, err := req.RequireString("path")
	if err != nil {
		return "", "", err
	}
	return ns, path, nil
}

// result renders a mutation as indented JSON.
func result(res noteservice.Result, err error) (*mcp.CallToolResult, error) {
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}
