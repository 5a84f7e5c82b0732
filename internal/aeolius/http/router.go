package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/aeolius/internal/aeolius/service"
	"github.com/aussiebroadwan/aeolius/internal/aeolius/store"
	"github.com/aussiebroadwan/aeolius/pkg/aeoliussdk"
	"github.com/aussiebroadwan/aeolius/pkg/httpx"
	"github.com/aussiebroadwan/aeolius/pkg/slogx"

	_ "github.com/aussiebroadwan/aeolius/api/manager" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Sweeper runs a deletion sweep over all enabled configurations.
type Sweeper interface {
	Sweep(ctx context.Context) (aeoliussdk.Statistics, error)
}

// Router holds shared dependencies for HTTP handlers. The manager and the
// worker each build one and apply their own routes.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	store        store.Store

	// Manager
	ConfigurationService *service.ConfigurationService
	AllowedOrigin        string

	// Worker
	Sweeper      Sweeper
	WorkerAPIKey string
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

// ApplyManagerRoutes registers the configuration API.
func (r *Router) ApplyManagerRoutes() {
	r.registerConfiguration()
	r.registerSystem()

	r.Mux.Handle("/swagger/",
		httpx.Chain(httpSwagger.Handler(),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}

// ApplyWorkerRoutes registers the sweep trigger.
func (r *Router) ApplyWorkerRoutes() {
	r.registerPosts()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Aeolius Manager API
//	@version		0.1.0
//	@description	Stores per-account settings for deleting old posts from AT Protocol accounts.
//	@description
//	@description				Callers authenticate with tokens issued by their own PDS, which the manager verifies against the PDS named in the service query parameter.
//
//	@contact.name				AussieBroadWAN Team
//	@contact.url				https://github.com/aussiebroadwan/aeolius
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:1337
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				PDS access or refresh JWT. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerConfiguration() {
	h := &ConfigurationHandler{Service: r.ConfigurationService}

	// CORS goes first so browsers can read error responses too.
	cors := httpx.CORS(httpx.CORSConfig{
		Origin:  r.AllowedOrigin,
		Methods: []string{http.MethodGet, http.MethodPut, http.MethodDelete},
		Headers: []string{"Authorization", "Content-Type"},
	})

	secured := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn,
			cors,
			httpx.RateLimitByIP(httpx.ModerateLimit),
			httpx.BearerMiddleware(),
		)
	}

	r.Mux.Handle("GET /configuration", secured(h.HandleGet))
	r.Mux.Handle("PUT /configuration", secured(h.HandlePut))
	r.Mux.Handle("DELETE /configuration", secured(h.HandleDelete))

	// Everything else, including preflight requests which CORS answers.
	r.Mux.Handle("/configuration", httpx.Chain(
		http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			aeoliussdk.ErrMethodNotAllowed.WriteError(w)
		}),
		cors,
	))
}

func (r *Router) registerPosts() {
	h := &PostsHandler{Sweeper: r.Sweeper}

	// Sweeps are expensive; a strict limit keeps a leaked key from hammering PDSes.
	r.Mux.Handle("DELETE /posts",
		httpx.Chain(h,
			httpx.RateLimitByIP(httpx.StrictLimit),
			httpx.StaticBearerMiddleware(r.WorkerAPIKey),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}
