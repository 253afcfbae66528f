package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dukerupert/pantry/internal/auth"
	"github.com/dukerupert/pantry/internal/config"
	"github.com/dukerupert/pantry/internal/handler"
	"github.com/dukerupert/pantry/internal/household"
	"github.com/dukerupert/pantry/internal/middleware"
	"github.com/dukerupert/pantry/internal/onboarding"
	"github.com/dukerupert/pantry/internal/recommend"
	"github.com/dukerupert/pantry/internal/roster"
	"github.com/dukerupert/pantry/internal/session"
	"github.com/dukerupert/pantry/internal/store"
)

type Server struct {
	db          *sql.DB
	cfg         config.Config
	authH       *handler.AuthHandler
	householdH  *handler.HouseholdHandler
	ingredientH *handler.IngredientHandler
	recommendH  *handler.RecommendHandler
	resolver    *session.Resolver
	pipeline    *recommend.Pipeline
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

// New wires stores, services, and handlers. engine is the recommendation
// backend; nil means an HTTP client built from cfg.
func New(db *sql.DB, cfg config.Config, engine recommend.Engine, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	householdStore := store.NewHouseholdStore(db)
	ingredientStore := store.NewIngredientStore(db)

	provider := auth.NewProvider(userStore, auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL))
	resolver := session.NewResolver(provider, householdStore)

	if engine == nil {
		engine = recommend.NewClient(recommend.Config{
			URL:     cfg.RecommenderURL,
			Timeout: cfg.RecommenderTimeout,
		})
	}
	pipeline := recommend.NewPipeline(engine, logger.With("component", "recommend"))
	ingredients := roster.New(ingredientStore, pipeline, logger.With("component", "roster"))

	directory := household.NewDirectory(householdStore, provider, logger.With("component", "directory"))
	engineLogger := logger.With("component", "household")
	flow := onboarding.NewFlow(directory, householdStore)

	return &Server{
		db:          db,
		cfg:         cfg,
		authH:       handler.NewAuthHandler(provider, resolver, directory, cfg.TokenTTL, cfg.SecureCookies, logger.With("component", "auth")),
		householdH:  handler.NewHouseholdHandler(flow, directory, household.NewEngine(householdStore, provider, engineLogger), cfg.SecureCookies, engineLogger),
		ingredientH: handler.NewIngredientHandler(ingredients, logger.With("component", "ingredient")),
		recommendH:  handler.NewRecommendHandler(pipeline, ingredients, logger.With("component", "recommend_handler")),
		resolver:    resolver,
		pipeline:    pipeline,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// Pipeline returns the recommendation pipeline for idle eviction.
func (s *Server) Pipeline() *recommend.Pipeline {
	return s.pipeline
}

// Close stops in-flight recommendation runs.
func (s *Server) Close() {
	s.pipeline.Close()
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes (no auth required)
	outerMux.HandleFunc("GET /health", s.healthHandler)
	outerMux.Handle("GET /metrics", promhttp.Handler())
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimited(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimited(s.authH.Login))

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.resolver, s.logger.With("component", "auth_middleware"))
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := s.db.PingContext(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "health check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]string{"status": "unavailable"})
		return
	}
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimited(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return r.URL.Path + "|" + middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, s.cfg.LoginRateLimit, s.cfg.LoginRateWindow, s.logger)
	return rl(h).ServeHTTP
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Auth routes that require authentication
	mux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	mux.HandleFunc("GET /api/auth/me", s.authH.Me)

	// Onboarding
	mux.HandleFunc("POST /api/households", s.householdH.Create)
	mux.HandleFunc("GET /api/households", s.householdH.List)
	mux.HandleFunc("GET /api/households/joinable", s.householdH.Joinable)
	mux.HandleFunc("POST /api/households/select", s.householdH.Select)

	// Household-scoped routes, addressed explicitly or through the active
	// household.
	for _, prefix := range []string{"/api/households/{household_id}", "/api/household"} {
		s.registerHouseholdRoutes(mux, prefix)
	}

	mux.HandleFunc("POST /api/recommend", s.recommendH.Recommend)
}

func (s *Server) registerHouseholdRoutes(mux *http.ServeMux, prefix string) {
	scoped := middleware.RequireHousehold(s.resolver, s.logger.With("component", "household_middleware"))
	handle := func(method, path string, h http.HandlerFunc) {
		mux.Handle(method+" "+prefix+path, scoped(h))
	}

	// Members
	handle("GET", "/members", s.householdH.Members)
	handle("POST", "/members", s.householdH.AddMember)
	handle("POST", "/members/promote", s.householdH.Promote)
	handle("POST", "/members/demote", s.householdH.Demote)
	handle("POST", "/members/remove", s.householdH.Remove)

	// Ingredients
	handle("GET", "/ingredients", s.ingredientH.List)
	handle("POST", "/ingredients", s.ingredientH.Add)
	handle("DELETE", "/ingredients/{name}", s.ingredientH.Delete)

	// Recommendations
	handle("GET", "/recommendations", s.recommendH.Latest)
}
