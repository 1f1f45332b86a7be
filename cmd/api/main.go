package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/neuralcode/insight/internal/application"
	appanalysis "github.com/neuralcode/insight/internal/application/analysis"
	appclone "github.com/neuralcode/insight/internal/application/clone"
	appinsight "github.com/neuralcode/insight/internal/application/insight"
	"github.com/neuralcode/insight/internal/config"
	"github.com/neuralcode/insight/internal/domain/ai"
	"github.com/neuralcode/insight/internal/domain/analysis"
	"github.com/neuralcode/insight/internal/domain/faults"
	"github.com/neuralcode/insight/internal/domain/insight"
	openaiClient "github.com/neuralcode/insight/internal/infra/ai/openai"
	"github.com/neuralcode/insight/internal/infra/ai/prompt"
	mysqlp "github.com/neuralcode/insight/internal/infra/db/mysql"
	postgresp "github.com/neuralcode/insight/internal/infra/db/postgres"
	gitcloner "github.com/neuralcode/insight/internal/infra/git"
	"github.com/neuralcode/insight/internal/infra/httpserver"
	minioStore "github.com/neuralcode/insight/internal/infra/storage"
	"github.com/neuralcode/insight/internal/middleware"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	ctx := context.Background()

	// connect database sesuai driver
	var (
		db           *sql.DB
		analysisRepo analysis.Repository
		faultRepo    faults.Repository
		insightRepo  insight.Repository
	)
	switch cfg.Database.Driver {
	case "postgres":
		db, err = postgresp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		analysisRepo = postgresp.NewAnalysisRepository(db)
	case "mysql", "":
		db, err = mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		analysisRepo = mysqlp.NewAnalysisRepository(db)
		faultRepo = mysqlp.NewFaultRepository(db)
		insightRepo = mysqlp.NewInsightRepository(db)
	default:
		log.Fatalf("unsupported database driver: %s", cfg.Database.Driver)
	}
	defer db.Close()

	// init clone orchestrator
	cloner := gitcloner.NewCloner(cfg.Clone.BaseDir)
	cloneSvc := appclone.NewService(cloner, cfg.CloneTimeout(), cfg.Clone.MaxConcurrent)

	// init minio (optional)
	var artifacts analysis.ArtifactStore
	if cfg.Minio.Enabled {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		artifacts = store
	}

	// init analysis service
	analysisSvc := &appanalysis.Service{
		Repo:      analysisRepo,
		Cloner:    cloneSvc,
		Artifacts: artifacts,
		Faults:    faultRepo,
		Clock:     application.SystemClock{},
	}

	// init insight service; tanpa insight repo endpointnya dimatikan
	var insightSvc *appinsight.Service
	if insightRepo != nil {
		var aiClient ai.Client
		if cfg.OpenAI.Enabled {
			aiClient = openaiClient.NewClient(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
		} else {
			aiClient = prompt.HeuristicClient{}
		}
		insightSvc = appinsight.NewService(analysisRepo, insightRepo, aiClient, application.SystemClock{})
	}

	// init router + middleware chain
	mux := chi.NewRouter()
	mux.Use(middleware.LoggingMiddleware)
	mux.Use(middleware.MetricsMiddleware)
	if cfg.Auth.Enabled {
		mux.Use(middleware.APIKeyAuth(cfg.Auth.APIKeys))
	}
	if cfg.RateLimit.Capacity > 0 {
		mux.Use(middleware.RateLimitMiddleware(cfg.RateLimit.Capacity, cfg.RateLimit.RefillRate))
	}

	mux.Get("/health", middleware.HealthHandler(map[string]middleware.HealthChecker{
		"database": &middleware.DatabaseHealthChecker{DB: db},
	}))
	mux.Get("/ready", middleware.ReadinessHandler)
	mux.Get("/live", middleware.LivenessHandler)
	mux.Get("/metrics", middleware.MetricsHandler)

	mux.Mount("/", httpserver.NewRouter(analysisSvc, insightSvc))

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
		// WriteTimeout harus lebih lama dari deadline clone karena
		// start analysis ditunggu sampai terminal sebelum respons ditulis
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cloneSvc.Timeout + time.Minute,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
