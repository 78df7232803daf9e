package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/hollowaydev/fieldops/internal/handler"
	"github.com/hollowaydev/fieldops/internal/middleware"
	"github.com/hollowaydev/fieldops/internal/notify"
	"github.com/hollowaydev/fieldops/internal/store"
	ws "github.com/hollowaydev/fieldops/internal/websocket"
)

// Config carries the runtime knobs the server needs beyond the database.
type Config struct {
	SendTimeout time.Duration
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authH        *handler.AuthHandler
	tokenH       *handler.TokenHandler
	sendH        *handler.SendHandler
	userStore    *store.UserStore
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

// New wires stores, the registrar, and the dispatcher. provider may be nil
// when push delivery is not configured; dispatches then report zero effect.
func New(db *sql.DB, provider notify.Provider, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	tokenStore := store.NewTokenStore(db)

	registrar := notify.NewRegistrar(tokenStore, userStore, logger.With("component", "registrar"))
	dispatcher := notify.NewDispatcher(tokenStore, provider, hub, logger.With("component", "dispatch"))

	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 30 * time.Second
	}

	return &Server{
		db:           db,
		hub:          hub,
		authH:        handler.NewAuthHandler(userStore, sessionStore, logger.With("component", "auth")),
		tokenH:       handler.NewTokenHandler(registrar, logger.With("component", "token")),
		sendH:        handler.NewSendHandler(dispatcher, sendTimeout, logger.With("component", "send")),
		userStore:    userStore,
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// UserStore returns the user store for startup bootstrap.
func (s *Server) UserStore() *store.UserStore {
	return s.userStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("GET /health", s.healthHandler)

	// Bearer-authenticated routes
	protectedMux := http.NewServeMux()
	protectedMux.HandleFunc("POST /api/logout", s.authH.Logout)
	protectedMux.HandleFunc("POST /api/token", s.tokenH.Register)
	protectedMux.HandleFunc("GET /api/tokens", s.tokenH.List)
	protectedMux.HandleFunc("DELETE /api/token/{id}", s.tokenH.Delete)
	protectedMux.HandleFunc("DELETE /api/tokens", s.tokenH.DeleteAll)

	// Admin-only routes
	protectedMux.Handle("POST /api/send", middleware.RequireAdmin(http.HandlerFunc(s.sendH.Send)))
	protectedMux.Handle("GET /api/ws", middleware.RequireAdmin(ws.Handle(s.hub, s.logger.With("component", "websocket"))))

	authMiddleware := middleware.RequireAuth(s.sessionStore, s.userStore)
	outerMux.Handle("/api/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return "login:" + middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(h).ServeHTTP(w, r)
	}
}
