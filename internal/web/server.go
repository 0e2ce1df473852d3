package web

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

// Server holds the HTTP server and its route handlers.
type Server struct {
	mux             *http.ServeMux
	chatHandler     *ChatHandler
	sessionsHandler *SessionsHandler
	healthHandler   *HealthHandler
	corsOrigins     map[string]bool
}

// NewServer wires the handlers into a ServeMux. corsOrigins is the
// configured allow-list; a nil or empty list disables CORS headers
// entirely rather than permitting every origin.
func NewServer(chatHandler *ChatHandler, sessionsHandler *SessionsHandler, healthInfo HealthInfo, corsOrigins []string) *Server {
	origins := make(map[string]bool, len(corsOrigins))
	for _, o := range corsOrigins {
		origins[o] = true
	}

	s := &Server{
		mux:             http.NewServeMux(),
		chatHandler:     chatHandler,
		sessionsHandler: sessionsHandler,
		healthHandler:   NewHealthHandler(healthInfo),
		corsOrigins:     origins,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.Handle("/health", s.withCORS(s.healthHandler))
	s.mux.Handle("/api/chat", s.withCORS(s.chatHandler))
	s.mux.Handle("/api/sessions", s.withCORS(s.sessionsHandler))
	s.mux.Handle("/api/sessions/", s.withCORS(s.sessionsHandler))
}

// withCORS applies the configured origin allow-list to every response.
func (s *Server) withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if origin != "" && s.corsOrigins[origin] {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start begins listening with graceful shutdown on SIGINT/SIGTERM.
func (s *Server) Start() error {
	port := os.Getenv("WEB_PORT")
	if port == "" {
		port = "8080"
	}
	host := os.Getenv("WEB_HOST")
	if host == "" {
		host = "127.0.0.1"
	}
	addr := host + ":" + port

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		log.Printf("[web] received signal %v, shutting down gracefully", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[web] graceful shutdown error: %v", err)
		}
	}()

	log.Printf("[web] loan intake engine listening on http://%s", addr)
	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		log.Println("[web] server stopped gracefully")
		return nil
	}
	return err
}
