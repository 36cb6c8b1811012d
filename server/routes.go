package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/hsarchitect/folio/server/handler/contact"
	"github.com/hsarchitect/folio/server/handler/login"
	"github.com/hsarchitect/folio/server/handler/projects"
	"github.com/hsarchitect/folio/server/handler/studio"
	"github.com/hsarchitect/folio/server/handler/taxonomy"
	mediaupload "github.com/hsarchitect/folio/server/handler/upload"
	"github.com/hsarchitect/folio/server/middleware"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/state"
)

const (
	loginLimit    = 20
	loginWindow   = 10 * time.Minute
	contactLimit  = 5
	contactWindow = time.Minute
)

type health struct {
	OK bool `json:"ok"`
}

type notFound struct {
	Error string `json:"error"`
}

// NewRouter mounts every endpoint. Metrics are exported from reg when it is
// also a gatherer.
func NewRouter(st *state.FolioState, logger zerolog.Logger, reg prometheus.Registerer) http.Handler {
	cfg := st.Cfg

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)
	r.Use(middleware.NewHTTPMetrics(reg).Handler)
	r.Use(middleware.CORS(cfg.Server.CorsAllowOrigins))
	r.Use(middleware.RateLimit(cfg.Server.Limits.RequestsPerMinute, time.Minute, "Too many requests, please try again later."))
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimw.Timeout(cfg.Server.RequestTimeout))
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		resp.WriteJSON(w, http.StatusNotFound, notFound{Error: "Not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		resp.WriteJSON(w, http.StatusMethodNotAllowed, notFound{Error: "Method not allowed"})
	})

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		resp.WriteOK(w, health{OK: true})
	})
	if g, ok := reg.(prometheus.Gatherer); ok {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	}

	admin := middleware.RequireAdmin(st.Tokens)
	cached := st.Cache.Handler

	r.Route("/auth", func(r chi.Router) {
		r.With(middleware.RateLimit(loginLimit, loginWindow, "Too many login attempts, please try again later.")).
			Post("/login", login.HandleLogin(st))
	})

	r.Route("/project-types", func(r chi.Router) {
		r.With(cached).Get("/public", taxonomy.HandlePublicTypes(st))
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Get("/", taxonomy.HandleAdminTypes(st))
			r.Post("/", taxonomy.HandleCreateType(st))
			r.Patch("/{id}", taxonomy.HandleRenameType(st))
			r.Delete("/{id}", taxonomy.HandleDeleteType(st))
		})
	})

	r.Route("/categories", func(r chi.Router) {
		r.With(cached).Get("/", taxonomy.HandleListCategories(st))
		r.Group(func(r chi.Router) {
			r.Use(admin)
			r.Post("/", taxonomy.HandleCreateCategory(st))
			r.Delete("/{id}", taxonomy.HandleDeleteCategory(st))
		})
	})

	r.Route("/projects", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(cached)
			r.Get("/public", projects.HandlePublicList(st))
			r.Get("/public/{id}", projects.HandlePublicGet(st))
		})
		r.Route("/admin", func(r chi.Router) {
			r.Use(admin)
			r.Get("/", projects.HandleAdminList(st))
			r.Post("/", projects.HandleCreate(st))
			r.Get("/{id}", projects.HandleAdminGet(st))
			r.Patch("/{id}", projects.HandleUpdate(st))
			r.Delete("/{id}", projects.HandleDelete(st))
			r.Put("/{id}/categories", projects.HandleSetCategories(st))
			r.Post("/{id}/media", mediaupload.HandleProjectMediaUpload(st))
			r.Patch("/{id}/media/{mediaId}", projects.HandleMediaPatch(st))
			r.Delete("/{id}/media/{mediaId}", projects.HandleMediaDelete(st))
		})
	})

	r.Route("/studio", func(r chi.Router) {
		r.With(cached).Get("/{type}", studio.HandleGet(st))
		r.Route("/admin/{type}", func(r chi.Router) {
			r.Use(admin)
			r.Put("/", studio.HandlePut(st))
			r.Patch("/", studio.HandlePatch(st))
			r.Delete("/", studio.HandleDelete(st))
		})
	})

	r.With(admin).Post("/studio-media/upload", mediaupload.HandleStudioMediaUpload(st))

	r.With(middleware.RateLimit(contactLimit, contactWindow, "Too many requests, please try again later.")).
		Post("/contact", contact.HandleContact(st))

	r.With(admin).Get("/mail/unread-count", contact.HandleUnread(st))

	return r
}
