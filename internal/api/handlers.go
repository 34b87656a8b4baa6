package api

import (
	"net/http"

	"github.com/starford/dailyvault/internal/noteservice"
)

// Handler holds API route handlers.
type Handler struct {
	svc *noteservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *noteservice.Service) *Handler {
	return &Handler{svc: svc}
}

// queryPath returns the "path" query parameter, writing a 400 when it is
// required and missing.
func queryPath(w http.ResponseWriter, r *http.Request, fallback string) (string, bool) {
	p := r.URL.Query().Get("path")
	if p == "" {
		p = fallback
	}
	if p == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("path is required"))
		return "", false
	}
	return p, true
}

// GetDaily handles GET /api/daily.
func (h *Handler) GetDaily(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	note, err := h.svc.Today(r.Context(), ns)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, DailyResponse{
		Date:    note.Date,
		Path:    note.Path,
		Content: note.Content,
		Created: note.Created,
		Sync:    note.Sync,
	})
}

// SaveDaily handles POST /api/daily/save. The path defaults to today's note.
func (h *Handler) SaveDaily(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	var req struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Path == "" {
		req.Path = h.svc.TodayPath()
	}
	res, err := h.svc.WriteFile(r.Context(), ns, req.Path, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutation(res))
}

// AppendDaily handles POST /api/daily/append.
func (h *Handler) AppendDaily(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	var req AppendRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.AppendEntry(r.Context(), ns, req.Text, req.Pinned)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutation(res))
}

// ClearPinned handles POST /api/daily/clear-pinned.
func (h *Handler) ClearPinned(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	var req ClearPinnedRequest
	if r.ContentLength != 0 && !decode(w, r, &req) {
		return
	}
	res, err := h.svc.ClearPinned(r.Context(), ns, req.Path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutation(res))
}

// AddTask handles POST /api/todos/add. JSON and form bodies are accepted.
func (h *Handler) AddTask(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	var req AddTaskRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.AddTask(r.Context(), ns, req.Category, req.Text)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutation(res))
}

// ToggleTask handles POST /api/todos/toggle. JSON and form bodies are
// accepted.
func (h *Handler) ToggleTask(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	var req LineRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.ToggleTask(r.Context(), ns, req.Path, req.Line)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutation(res))
}

// ListFiles handles GET /api/files/list. The path defaults to the
// namespace root.
func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	path, _ := queryPath(w, r, ".")
	entries, err := h.svc.ListDir(r.Context(), ns, path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ListResponse{Path: path, Entries: entries})
}

// ReadFile handles GET /api/files/read.
func (h *Handler) ReadFile(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	path, ok := queryPath(w, r, "")
	if !ok {
		return
	}
	content, err := h.svc.ReadFile(r.Context(), ns, path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, FileResponse{Path: path, Content: content})
}

// FileExists handles GET /api/files/exists.
func (h *Handler) FileExists(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	path, ok := queryPath(w, r, "")
	if !ok {
		return
	}
	exists, err := h.svc.FileExists(r.Context(), ns, path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, ExistsResponse{Path: path, Exists: exists})
}

// SaveFile handles POST /api/files/save.
func (h *Handler) SaveFile(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	var req SaveFileRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.WriteFile(r.Context(), ns, req.Path, req.Content)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutation(res))
}

// DeleteFile handles DELETE /api/files?path=.
func (h *Handler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	path, ok := queryPath(w, r, "")
	if !ok {
		return
	}
	res, err := h.svc.DeleteFile(r.Context(), ns, path)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutation(res))
}

// UnpinEntry handles POST /api/files/unpin.
func (h *Handler) UnpinEntry(w http.ResponseWriter, r *http.Request) {
	ns, ok := namespaceOf(w, r)
	if !ok {
		return
	}
	var req LineRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.svc.UnpinEntry(r.Context(), ns, req.Path, req.Line)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, mutation(res))
}

// Sync handles POST /api/sync.
func (h *Handler) Sync(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Sync(r.Context()))
}

// SyncStatus handles GET /api/sync/status.
func (h *Handler) SyncStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.SyncStatus())
}
