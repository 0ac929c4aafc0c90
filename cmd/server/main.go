package main

import (
	"context"
	"encoding/json"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/fairlens-ai/fairlens/internal/api"
	"github.com/fairlens-ai/fairlens/internal/assistant"
	"github.com/fairlens-ai/fairlens/internal/audit"
	"github.com/fairlens-ai/fairlens/internal/auth"
	"github.com/fairlens-ai/fairlens/internal/config"
	"github.com/fairlens-ai/fairlens/internal/factual"
	"github.com/fairlens-ai/fairlens/internal/metrics"
	"github.com/fairlens-ai/fairlens/internal/signing"
	"github.com/fairlens-ai/fairlens/internal/store"
	"github.com/fairlens-ai/fairlens/internal/wal"
	"github.com/fairlens-ai/fairlens/pkg/otel"
)

type Server struct {
	orchestrator *audit.Orchestrator
	resultStore  store.Store
	inboxWAL     *wal.InboxWAL
	metrics      *metrics.Metrics
	limiter      *rate.Limiter
	signer       signing.Signer
	cfg          *config.Config
}

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	// .env is optional; real deployments set environment directly.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env: %v", err)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Tracing
	if cfg.Tracing.Enabled {
		otelCfg := otel.DefaultConfig("fairlens-server")
		otelCfg.CollectorEndpoint = cfg.Tracing.OTLPEndpoint
		otelCfg.SamplingRate = cfg.Tracing.SampleRate
		tp, err := otel.InitTracer(context.Background(), otelCfg)
		if err != nil {
			log.Fatalf("Failed to init tracing: %v", err)
		}
		defer otel.Shutdown(context.Background(), tp)
	}

	// Result store
	var resultStore store.Store
	switch cfg.Store.Backend {
	case "memory":
		resultStore = store.NewMemoryStore(cfg.Store.SnapshotPath)
	case "redis":
		resultStore, err = store.NewAtomicRedisStore(cfg.Store.RedisAddr, cfg.Store.RedisPassword, cfg.Store.RedisDB)
		if err != nil {
			log.Fatalf("Failed to create Redis store: %v", err)
		}
	case "postgres":
		resultStore, err = store.NewAtomicPostgresStore(cfg.Store.PostgresURL)
		if err != nil {
			log.Fatalf("Failed to create Postgres store: %v", err)
		}
	default:
		log.Fatalf("Unknown store backend: %s", cfg.Store.Backend)
	}

	// Inbox WAL
	var inboxWAL *wal.InboxWAL
	if cfg.WAL.Enabled {
		inboxWAL, err = wal.NewInboxWAL(cfg.WAL.Dir)
		if err != nil {
			log.Fatalf("Failed to create inbox WAL: %v", err)
		}
	}

	// Factuality responder, only when an assistant key is configured.
	var responder factual.Responder
	chat := assistant.New()
	if chat.Configured() {
		responder = chat
	} else {
		log.Printf("No assistant API key set; factuality stage will be skipped")
	}

	signer, err := signing.FromConfig(cfg.Signing.Algorithm, cfg.Signing.Key)
	if err != nil {
		log.Fatalf("Failed to create result signer: %v", err)
	}
	if signer != nil {
		log.Printf("Result signing enabled (%s)", signer.Algorithm())
	}

	m := metrics.New()

	srv := &Server{
		orchestrator: audit.NewOrchestrator(audit.Options{
			AdvancedBias:        cfg.Audit.AdvancedBias,
			BiasThreshold:       cfg.Audit.BiasThreshold,
			Responder:           responder,
			SimilarityThreshold: cfg.Audit.SimilarityThreshold,
			Metrics:             m,
		}),
		resultStore: resultStore,
		inboxWAL:    inboxWAL,
		metrics:     m,
		limiter:     rate.NewLimiter(rate.Limit(cfg.Server.RateLimitRPS), cfg.Server.RateLimitBurst),
		signer:      signer,
		cfg:         cfg,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/v1/audit/run", srv.handleRun)
	mux.Handle("/metrics", srv.metricsHandler())
	mux.HandleFunc("/health", handleHealth)

	// Identity headers are bound when present; GatewayAuth makes them
	// mandatory for audit requests.
	handler := auth.Middleware(auth.Config{
		Required:    cfg.Server.GatewayAuth,
		BypassPaths: []string{"/health", "/metrics"},
	})(mux)

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddress,
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on %s", cfg.Server.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdown
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if inboxWAL != nil {
		if err := inboxWAL.Close(); err != nil {
			log.Printf("Error closing WAL: %v", err)
		}
	}
	if err := resultStore.Close(); err != nil {
		log.Printf("Error closing result store: %v", err)
	}

	log.Println("Server stopped")
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !s.limiter.Allow() {
		s.metrics.RateLimited.Inc()
		w.Header().Set("Retry-After", "10")
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, s.cfg.Server.MaxBodyBytes))
	if err != nil {
		http.Error(w, "Failed to read body", http.StatusBadRequest)
		return
	}

	// Append to WAL BEFORE parsing, so the raw submission survives a
	// crash during processing.
	if s.inboxWAL != nil {
		if err := s.inboxWAL.Append(body); err != nil {
			log.Printf("WAL append error: %v", err)
			s.metrics.WALErrors.Inc()
			http.Error(w, "Internal server error", http.StatusInternalServerError)
			return
		}
	}

	var sub api.SubmitRequest
	if err := json.Unmarshal(body, &sub); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	// Idempotent duplicate check on the raw body hash.
	ctx := r.Context()
	auditKey := api.ComputeAuditKey(body)
	existing, err := s.resultStore.Get(ctx, auditKey)
	if err != nil {
		log.Printf("Result store error: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if existing != nil {
		s.metrics.DedupHits.Inc()
		s.respondWithResult(w, existing)
		return
	}

	req, err := audit.FromSubmit(&sub)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.orchestrator.Run(ctx, req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	if tenant, ok := auth.TenantID(ctx); ok {
		log.Printf("Audit %s completed for tenant %s", result.AuditID, tenant)
	}

	// First write wins; losing the race to a duplicate is not fatal.
	if err := s.resultStore.Set(ctx, auditKey, result, s.cfg.Store.ResultTTL); err != nil {
		log.Printf("Failed to store audit result: %v", err)
	}

	s.respondWithResult(w, result)
}

func (s *Server) metricsHandler() http.Handler {
	handler := promhttp.Handler()

	if s.cfg.Server.MetricsUser == "" {
		return handler
	}

	// Wrap with Basic Auth
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != s.cfg.Server.MetricsUser || pass != s.cfg.Server.MetricsPass {
			w.Header().Set("WWW-Authenticate", `Basic realm="Metrics"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		handler.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (s *Server) respondWithResult(w http.ResponseWriter, result *audit.Result) {
	if s.signer != nil {
		sig, err := s.signer.Sign(result)
		if err != nil {
			log.Printf("Failed to sign audit result: %v", err)
		} else {
			w.Header().Set("X-Audit-Signature", sig)
			w.Header().Set("X-Audit-Signature-Alg", s.signer.Algorithm())
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(result)
}
