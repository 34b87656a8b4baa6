package api

import (
	"errors"
	"net/url"
	"strconv"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/dailyvault/internal/daily"
	"github.com/starford/dailyvault/internal/gitsync"
	"github.com/starford/dailyvault/internal/models"
)

// SaveFileRequest is the body of POST /files/save and /daily/save.
type SaveFileRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Validate implements validation.Validatable.
func (r SaveFileRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
	)
}

// AppendRequest is the body of POST /daily/append.
type AppendRequest struct {
	Text   string `json:"text"`
	Pinned bool   `json:"pinned"`
}

// Validate implements validation.Validatable.
func (r AppendRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Text, validation.Required),
	)
}

// ClearPinnedRequest is the body of POST /daily/clear-pinned. An empty path
// means today's note.
type ClearPinnedRequest struct {
	Path string `json:"path"`
}

// AddTaskRequest is the body of POST /todos/add. Text may be empty.
type AddTaskRequest struct {
	Category string `json:"category"`
	Text     string `json:"text"`
}

// Validate implements validation.Validatable.
func (r AddTaskRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Category, validation.Required),
	)
}

func (r *AddTaskRequest) fromForm(v url.Values) error {
	r.Category = v.Get("category")
	r.Text = v.Get("text")
	return nil
}

// LineRequest is the body of POST /todos/toggle and /files/unpin.
type LineRequest struct {
	Path string `json:"path"`
	Line int    `json:"line"`
}

// Validate implements validation.Validatable.
func (r LineRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Path, validation.Required),
		validation.Field(&r.Line, validation.Required, validation.Min(1)),
	)
}

func (r *LineRequest) fromForm(v url.Values) error {
	r.Path = v.Get("path")
	line, err := strconv.Atoi(v.Get("line"))
	if err != nil {
		return errors.New("invalid line number")
	}
	r.Line = line
	return nil
}

// MutationResponse is returned by every mutating endpoint.
type MutationResponse struct {
	Success bool             `json:"success"`
	Changed bool             `json:"changed"`
	Message string           `json:"message"`
	Path    string           `json:"path,omitempty"`
	Sync    *gitsync.Outcome `json:"sync,omitempty"`
}

func mutation(res daily.Result) MutationResponse {
	return MutationResponse{
		Success: true,
		Changed: res.Changed,
		Message: res.Message,
		Path:    res.Path,
		Sync:    res.Sync,
	}
}

// DailyResponse is returned by GET /daily.
type DailyResponse struct {
	Date    string          `json:"date"`
	Path    string          `json:"path"`
	Content string          `json:"content"`
	Created bool            `json:"created"`
	Sync    gitsync.Outcome `json:"sync"`
}

// FileResponse is returned by GET /files/read.
type FileResponse struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ListResponse is returned by GET /files/list.
type ListResponse struct {
	Path    string             `json:"path"`
	Entries []models.FileEntry `json:"entries"`
}

// ExistsResponse is returned by GET /files/exists.
type ExistsResponse struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}
