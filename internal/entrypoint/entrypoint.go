package entrypoint

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/passage/internal/audit"
	"github.com/mrlokans/passage/internal/auth"
	"github.com/mrlokans/passage/internal/config"
	"github.com/mrlokans/passage/internal/database"
	auditRepo "github.com/mrlokans/passage/internal/database/audit"
	"github.com/mrlokans/passage/internal/database/users"
	http_controllers "github.com/mrlokans/passage/internal/http"
	"github.com/mrlokans/passage/internal/scheduler"
	"github.com/mrlokans/passage/internal/tasks"
)

// ShutdownFunc is called during graceful shutdown to clean up resources.
type ShutdownFunc func(ctx context.Context)

func Serve(router *gin.Engine, cfg *config.Config, onShutdown ShutdownFunc) {
	timeout := time.Duration(cfg.Global.ShutdownTimeoutInSeconds) * time.Second

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Starting server at %s:%d", cfg.HTTP.Host, cfg.HTTP.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	// kill -2 is SIGINT, plain kill is SIGTERM
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Printf("Shutdown Server, waiting %v before killing\n", timeout)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	// Stop accepting requests before tearing down what they depend on
	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server Shutdown: %v", err)
	}

	if onShutdown != nil {
		onShutdown(ctx)
	}

	log.Println("Server exiting")
}

func Run(cfg *config.Config, version string) {
	log.Printf("Starting Passage v%s", version)

	db, err := database.NewDatabaseWithLogLevel(cfg.Database.Path, cfg.Database.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database: %v", err)
		}
	}()

	sqlDB, err := db.DB.DB()
	if err != nil {
		log.Fatalf("Failed to get SQL DB for sessions: %v", err)
	}

	secret := cfg.Auth.SessionSecret
	if secret == "" {
		secret, err = auth.GenerateSessionSecret()
		if err != nil {
			log.Fatalf("Failed to generate session secret: %v", err)
		}
		log.Printf("WARNING: AUTH_SESSION_SECRET is not set. Generated a random secret, forms expire on restart.")
	}
	if !cfg.Auth.SecureCookies {
		log.Printf("WARNING: secure cookies are disabled, only do this for local development without HTTPS")
	}

	userRepo := users.NewRepository(db.DB)
	auditService := audit.NewService(auditRepo.NewRepository(db.DB))
	defer auditService.Wait()

	verifier, err := auth.NewVerifier(userRepo, cfg.Auth.BcryptCost)
	if err != nil {
		log.Fatalf("Failed to initialize credential verifier: %v", err)
	}
	registrar := auth.NewRegistrar(userRepo, cfg.Auth.BcryptCost, cfg.Auth.MinPasswordLength)
	sessions := auth.NewSessionManager(sqlDB, cfg.Auth)
	authenticator := auth.NewAuthenticator(userRepo, sessions)
	loginThrottle := auth.NewLoginThrottle(auth.ThrottleConfigFromAuth(cfg.Auth))

	count, err := userRepo.CountUsers(context.Background(), "")
	if err == nil && count == 0 {
		log.Printf("No users found. Visit /users/register to create an account.")
	}

	// Initialize task queue if enabled
	var taskClient *tasks.Client
	var taskCtxCancel context.CancelFunc
	if cfg.Tasks.Enabled {
		taskClient, err = tasks.NewClient(cfg.Database.Path, tasks.ConfigFromSettings(cfg.Tasks))
		if err != nil {
			log.Fatalf("Failed to initialize task queue: %v", err)
		}
		defer func() {
			if err := taskClient.Close(); err != nil {
				log.Printf("Error closing task client: %v", err)
			}
		}()

		taskClient.Register(tasks.NewPruneAuditEventsQueue(auditService))

		var taskCtx context.Context
		taskCtx, taskCtxCancel = context.WithCancel(context.Background())
		taskClient.Start(taskCtx)
	}

	var queue scheduler.Enqueuer
	if taskClient != nil {
		queue = taskClient
	}
	auditCleanup := scheduler.NewAuditCleanupScheduler(cfg.Audit, queue, auditService)
	schedulerCtx, schedulerCancel := context.WithCancel(context.Background())
	defer schedulerCancel()
	if err := auditCleanup.Start(schedulerCtx); err != nil {
		log.Fatalf("Failed to start audit cleanup scheduler: %v", err)
	}

	var csrfSecret []byte
	if cfg.CSRF.Enabled {
		csrfSecret = auth.DeriveKey(secret)
	} else {
		log.Printf("WARNING: CSRF protection is disabled")
	}

	router, err := http_controllers.NewRouter(http_controllers.RouterConfig{
		Database:      db,
		Sessions:      sessions,
		Authenticator: authenticator,
		AuthController: auth.NewAuthController(
			registrar,
			verifier,
			authenticator,
			loginThrottle,
			auditService,
		),
		AuditService:  auditService,
		CSRFSecret:    csrfSecret,
		SecureCookies: cfg.Auth.SecureCookies,
		TemplatesPath: cfg.UI.TemplatesPath,
		Version:       version,
	})
	if err != nil {
		log.Fatalf("Failed to build router: %v", err)
	}

	onShutdown := func(ctx context.Context) {
		auditCleanup.Stop()
		loginThrottle.Stop()
		if taskClient != nil {
			taskClient.Stop(ctx)
			taskCtxCancel()
		}
	}

	Serve(router, cfg, onShutdown)
}
