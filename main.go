package main

import (
	"database/sql"
	"log"
	"net/http"
	"os"
	"time"

	"lendledger/internal/audit"
	importerapp "lendledger/internal/importer/application"
	importerhttp "lendledger/internal/importer/interfaces/http"
	ledgerapp "lendledger/internal/ledger/application"
	ledgerpg "lendledger/internal/ledger/infrastructure/postgres"
	ledgerhttp "lendledger/internal/ledger/interfaces/http"
	"lendledger/internal/observability/metrics"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)

	store := ledgerpg.NewStore(db)

	importCfg, err := importerapp.LoadConfig()
	if err != nil {
		logger.Fatalf("import config error: %v", err)
	}
	policies, err := importCfg.Policies()
	if err != nil {
		logger.Fatalf("import policy error: %v", err)
	}

	importService, err := importerapp.NewImportService(store, logger)
	if err != nil {
		logger.Fatalf("import service error: %v", err)
	}
	importHandler, err := importerhttp.NewHandler(importService, policies, auditRepo)
	if err != nil {
		logger.Fatalf("import handler error: %v", err)
	}

	recordService, err := ledgerapp.NewRecordService(store, ledgerapp.SystemClock{}, logger)
	if err != nil {
		logger.Fatalf("record service error: %v", err)
	}
	recordHandler, err := ledgerhttp.NewHandler(recordService, auditRepo)
	if err != nil {
		logger.Fatalf("record handler error: %v", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/api/v1/ledger/", routeLedger(importHandler, recordHandler))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	server := &http.Server{Addr: cfg.HTTPAddr, Handler: loggingMiddleware(mux, logger)}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

// routeLedger splits the /api/v1/ledger/ space between the import upload
// handler and the record CRUD handler.
func routeLedger(importHandler, recordHandler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && hasSuffixSegment(r.URL.Path, "import") {
			importHandler.ServeHTTP(w, r)
			return
		}
		recordHandler.ServeHTTP(w, r)
	})
}

func hasSuffixSegment(path, segment string) bool {
	if len(path) < len(segment)+1 {
		return false
	}
	return path[len(path)-len(segment):] == segment && path[len(path)-len(segment)-1] == '/'
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}
