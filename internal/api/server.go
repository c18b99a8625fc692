package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/curatorr/curatorr/internal/assets"
	"github.com/curatorr/curatorr/internal/auth"
	"github.com/curatorr/curatorr/internal/cache"
	"github.com/curatorr/curatorr/internal/config"
	"github.com/curatorr/curatorr/internal/db"
	"github.com/curatorr/curatorr/internal/httputil"
	"github.com/curatorr/curatorr/internal/jobs"
	"github.com/curatorr/curatorr/internal/repository"
)

type Server struct {
	config        *config.Config
	db            *db.DB
	auth          *auth.Auth
	store         *cache.Store
	service       *assets.Service
	userRepo      *repository.UserRepository
	candidateRepo *repository.CandidateRepository
	entryRepo     *repository.CacheEntryRepository
	lockRepo      *repository.LockRepository
	settingsRepo  *repository.SettingsRepository
	discoveryRepo *repository.DiscoveryRepository
	jobQueue      *jobs.Queue
	events        *EventHub
	rlAuth        *IPRateLimiter
	router        *http.ServeMux
}

func NewServer(cfg *config.Config, database *db.DB, store *cache.Store, jobQueue *jobs.Queue) *Server {
	candidateRepo := repository.NewCandidateRepository(database.DB)
	entryRepo := repository.NewCacheEntryRepository(database.DB)
	lockRepo := repository.NewLockRepository(database.DB)
	settingsRepo := repository.NewSettingsRepository(database.DB)

	events := NewEventHub()
	service := assets.NewService(store, candidateRepo, entryRepo, lockRepo, settingsRepo,
		events, cfg.ScanWorkers)

	s := &Server{
		config:        cfg,
		db:            database,
		auth:          auth.New(cfg.JWTSecret, cfg.JWTExpiry),
		store:         store,
		service:       service,
		userRepo:      repository.NewUserRepository(database.DB),
		candidateRepo: candidateRepo,
		entryRepo:     entryRepo,
		lockRepo:      lockRepo,
		settingsRepo:  settingsRepo,
		discoveryRepo: repository.NewDiscoveryRepository(database.DB),
		jobQueue:      jobQueue,
		events:        events,
		rlAuth:        NewIPRateLimiter(rate.Every(12*time.Second), 5),
		router:        http.NewServeMux(),
	}

	s.setupRoutes()
	return s
}

func (s *Server) EventHub() *EventHub {
	return s.events
}

func (s *Server) Service() *assets.Service {
	return s.service
}

func (s *Server) DiscoveryRepo() *repository.DiscoveryRepository {
	return s.discoveryRepo
}

func (s *Server) setupRoutes() {
	// Cached files, immutable by construction: the path embeds the content
	// hash, so far-future caching is safe.
	cacheFS := http.StripPrefix(cache.PublicMount+"/", http.FileServer(http.Dir(s.store.Root())))
	s.router.Handle(cache.PublicMount+"/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "public, max-age=31536000, immutable")
		cacheFS.ServeHTTP(w, r)
	}))

	// Public
	s.router.HandleFunc("GET /health", s.handleHealth)
	s.router.HandleFunc("POST /api/v1/auth/login", RateLimitHandlerFunc(s.rlAuth, s.handleLogin))

	// WebSocket
	s.router.HandleFunc("GET /api/v1/ws", s.handleWebSocket)

	// Asset discovery and selection
	s.router.HandleFunc("POST /api/v1/entities/{type}/{id}/assets/discover", s.authMiddleware(s.handleDiscover))
	s.router.HandleFunc("GET /api/v1/entities/{type}/{id}/assets/{assetType}", s.authMiddleware(s.handleListAssets))
	s.router.HandleFunc("PUT /api/v1/entities/{type}/{id}/assets/{assetType}", s.authMiddleware(s.handleReplaceAssets))
	s.router.HandleFunc("DELETE /api/v1/entities/{type}/{id}/assets/{assetType}", s.authMiddleware(s.handleResetAssets))
	s.router.HandleFunc("GET /api/v1/entities/{type}/{id}/assets/{assetType}/lock", s.authMiddleware(s.handleGetLock))
	s.router.HandleFunc("PUT /api/v1/entities/{type}/{id}/assets/{assetType}/lock", s.authMiddleware(s.handleSetLock))

	// Candidate state
	s.router.HandleFunc("POST /api/v1/candidates/{id}/block", s.authMiddleware(s.handleBlockCandidate))
	s.router.HandleFunc("POST /api/v1/candidates/{id}/unblock", s.authMiddleware(s.handleUnblockCandidate))

	// Uploads and cache introspection
	s.router.HandleFunc("POST /api/v1/uploads", s.authMiddleware(s.handleUpload))
	s.router.HandleFunc("GET /api/v1/cache/{kind}/{hash}", s.authMiddleware(s.handleCacheEntry))
	s.router.HandleFunc("GET /api/v1/specs", s.authMiddleware(s.handleListSpecs))

	// Rescans
	s.router.HandleFunc("POST /api/v1/rescan", s.authMiddleware(s.handleRescanAll))
	s.router.HandleFunc("GET /api/v1/discovery-runs", s.authMiddleware(s.handleListDiscoveryRuns))

	// System settings
	s.router.HandleFunc("GET /api/v1/settings", s.authMiddleware(s.handleGetSettings))
	s.router.HandleFunc("PUT /api/v1/settings", s.authMiddleware(s.handleUpdateSettings))
}

// ──────────────────── Middleware ────────────────────

func (s *Server) authMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := ""
		if authHeader := r.Header.Get("Authorization"); authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		} else if t := r.URL.Query().Get("token"); t != "" {
			tokenString = t
		} else {
			s.respondError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "missing authorization")
			return
		}

		claims, err := s.auth.ValidateToken(tokenString)
		if err != nil {
			s.respondError(w, http.StatusUnauthorized, httputil.CodeUnauthorized, "invalid token")
			return
		}

		r.Header.Set("X-User-ID", claims.Subject)
		next(w, r)
	}
}

func (s *Server) Start() error {
	handler := s.securityHeadersMiddleware(s.corsMiddleware(s.router))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.config.Port), handler)
}

// ──────────────────── Helpers ────────────────────

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	httputil.WriteJSON(w, statusCode, data)
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, code, message string) {
	httputil.WriteError(w, statusCode, code, message)
}

// securityHeadersMiddleware adds standard security headers to all responses.
func (s *Server) securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware handles CORS preflight and response headers globally.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.Header().Set("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}
