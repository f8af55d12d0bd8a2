package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"payments-engine/internal/domain"
	"payments-engine/internal/handler"
	"payments-engine/internal/metrics"
	"payments-engine/internal/service"
)

const requestIDHeader = "X-Request-ID"

// Pinger is implemented by stores that can report their own health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server exposes the payments engine over HTTP
type Server struct {
	router  *mux.Router
	server  *http.Server
	store   domain.Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	port    string
}

// New wires the handlers for engine. store backs the health check and is
// closed by Stop. gatherer serves /metrics.
func New(engine *service.PaymentsEngine, store domain.Store, m *metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	s := &Server{
		router:  mux.NewRouter(),
		store:   store,
		logger:  logger,
		metrics: m,
	}

	accountHandler := handler.NewAccountHandler(engine)
	transactionHandler := handler.NewTransactionHandler(engine)

	s.router.Use(s.loggingMiddleware)

	s.router.HandleFunc("/transactions", transactionHandler.Submit).Methods("POST")
	s.router.HandleFunc("/accounts", accountHandler.ListAccounts).Methods("GET")
	s.router.HandleFunc("/accounts/{client_id}", accountHandler.GetAccount).Methods("GET")
	s.router.HandleFunc("/accounts/{client_id}/transactions", accountHandler.ListTransactions).Methods("GET")

	s.router.HandleFunc("/health", s.health).Methods("GET")
	s.router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods("GET")

	return s
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if p, ok := s.store.(Pinger); ok {
		if err := p.Ping(r.Context()); err != nil {
			s.logger.Error("Health check failed", zap.Error(err))
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(map[string]string{"status": "unhealthy", "error": "storage unavailable"})
			return
		}
	}

	json.NewEncoder(w).Encode(map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// loggingMiddleware tags every request with an id, logs it and records its
// latency under the route template rather than the raw path.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		ww := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tpl
			}
		}
		elapsed := time.Since(start)
		s.metrics.ObserveRequest(r.Method, endpoint, strconv.Itoa(ww.statusCode), elapsed)

		s.logger.Info("request completed",
			zap.String("request_id", requestID),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.statusCode),
			zap.Duration("duration", elapsed),
			zap.String("user_agent", r.UserAgent()),
		)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Start listens on port ("0" picks a free one) and serves in the background.
// It returns the port actually bound.
func (s *Server) Start(port string) (string, error) {
	listener, err := net.Listen("tcp", ":"+port)
	if err != nil {
		return "", err
	}

	addr := listener.Addr().(*net.TCPAddr)
	s.port = strconv.Itoa(addr.Port)

	s.server = &http.Server{
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("Starting server", zap.String("port", s.port))

	go func() {
		if err := s.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Server failed", zap.Error(err))
		}
	}()

	return s.port, nil
}

// Stop drains in-flight requests, then closes the store.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Shutting down server")

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	if s.store != nil {
		if closeErr := s.store.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}

func (s *Server) Port() string {
	return s.port
}

func (s *Server) BaseURL() string {
	return "http://localhost:" + s.port
}

// Router returns the router for testing purposes
func (s *Server) Router() *mux.Router {
	return s.router
}
