package handlers

import (
	"net/http"

	"stocksim/internal/auth"
	"stocksim/internal/config"
	"stocksim/internal/db"
	"stocksim/internal/middleware"
	"stocksim/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

type Handler struct {
	txRunner  db.TxRunner
	cfg       config.Config
	users     UserStore
	audit     AuditStore
	trading   TradingService
	portfolio PortfolioService
	revoker   auth.Revoker
	hub       *websocket.Hub
	metrics   http.Handler
	requests  middleware.RequestRecorder
	limiter   *middleware.RateLimiter
	logger    *zap.Logger
}

type Deps struct {
	TxRunner  db.TxRunner
	Config    config.Config
	Users     UserStore
	Audit     AuditStore
	Trading   TradingService
	Portfolio PortfolioService
	Revoker   auth.Revoker
	Hub       *websocket.Hub
	Metrics   http.Handler
	Requests  middleware.RequestRecorder
	Logger    *zap.Logger
}

func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Revoker == nil {
		deps.Revoker = auth.NewMemoryRevoker()
	}
	if deps.Hub == nil {
		deps.Hub = websocket.NewHub()
	}
	return &Handler{
		txRunner:  deps.TxRunner,
		cfg:       deps.Config,
		users:     deps.Users,
		audit:     deps.Audit,
		trading:   deps.Trading,
		portfolio: deps.Portfolio,
		revoker:   deps.Revoker,
		hub:       deps.Hub,
		metrics:   deps.Metrics,
		requests:  deps.Requests,
		limiter:   middleware.NewRateLimiter(deps.Config.RateLimit.PerSecond, deps.Config.RateLimit.Burst),
		logger:    deps.Logger,
	}
}

func (h *Handler) Routes() http.Handler {
	requireAuth := middleware.Auth(h.cfg.JWTSecret, h.revoker)

	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(middleware.RequestLog(h.logger, h.requests))
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.NoCache)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   h.cfg.Origins(),
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusNotFound, "not_found", "no such route")
	})
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "method_not_allowed", "method not allowed on this route")
	})

	router.Get("/login", h.LoginPage)
	router.Route("/auth", func(r chi.Router) {
		r.With(h.limiter.Middleware).Post("/register", h.Register)
		r.With(h.limiter.Middleware).Post("/login", h.Login)
		r.With(requireAuth).Post("/logout", h.Logout)
		r.With(requireAuth).Get("/me", h.Me)
	})

	router.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Get("/portfolio", h.GetPortfolio)
		r.Get("/portfolio/self-check", h.SelfCheck)
		r.Get("/portfolio/activity", h.Activity)
		r.Get("/history", h.History)
		r.Get("/quote/{symbol}", h.GetQuote)
		r.Post("/quote", h.PostQuote)
		r.Post("/buy", h.Buy)
		r.Post("/sell", h.Sell)
		r.Get("/ws/portfolio", h.WSPortfolio)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if h.metrics != nil {
		router.Method(http.MethodGet, "/metrics", h.metrics)
	}
	return router
}
