package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/starford/dailyvault/internal/noteservice"
)

// RouterConfig configures NewRouter.
type RouterConfig struct {
	AuthEnabled    bool
	Token          string
	Namespaces     []string
	AllowedOrigins []string
	// Events, if non-nil, is mounted at GET /events inside the auth group.
	Events http.Handler
}

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(svc *noteservice.Service, cfg RouterConfig) chi.Router {
	h := NewHandler(svc)

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", PersonHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(AuthMiddleware(cfg.AuthEnabled, cfg.Token))
	r.Use(PersonMiddleware(cfg.Namespaces))

	// Daily notes.
	r.Get("/daily", h.GetDaily)
	r.Post("/daily/save", h.SaveDaily)
	r.Post("/daily/append", h.AppendDaily)
	r.Post("/daily/clear-pinned", h.ClearPinned)

	// Tasks.
	r.Post("/todos/add", h.AddTask)
	r.Post("/todos/toggle", h.ToggleTask)

	// Files.
	r.Get("/files/list", h.ListFiles)
	r.Get("/files/read", h.ReadFile)
	r.Get("/files/exists", h.FileExists)
	r.Post("/files/save", h.SaveFile)
	r.Delete("/files", h.DeleteFile)
	r.Post("/files/unpin", h.UnpinEntry)

	// Sync.
	r.Post("/sync", h.Sync)
	r.Get("/sync/status", h.SyncStatus)

	if cfg.Events != nil {
		r.Get("/events", cfg.Events.ServeHTTP)
	}

	return r
}
