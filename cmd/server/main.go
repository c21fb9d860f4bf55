// The API server: auth, org-scoped task CRUD, CSV export submission, and the
// realtime WebSocket fanout.
package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"taskplane/internal/audit"
	audithandler "taskplane/internal/audit/handler"
	auditrepo "taskplane/internal/audit/repository"
	authhandler "taskplane/internal/auth/handler"
	authrepo "taskplane/internal/auth/repository"
	authsvc "taskplane/internal/auth/service"
	"taskplane/internal/config"
	"taskplane/internal/credential"
	"taskplane/internal/db"
	exporthandler "taskplane/internal/export/handler"
	exportrepo "taskplane/internal/export/repository"
	exportsvc "taskplane/internal/export/service"
	healthhandler "taskplane/internal/health/handler"
	membershiprepo "taskplane/internal/membership/repository"
	orgrepo "taskplane/internal/organization/repository"
	"taskplane/internal/otp/notify"
	otprepo "taskplane/internal/otp/repository"
	otpsvc "taskplane/internal/otp/service"
	"taskplane/internal/realtime"
	refreshrepo "taskplane/internal/refreshtoken/repository"
	"taskplane/internal/security"
	"taskplane/internal/server"
	"taskplane/internal/server/middleware"
	taskhandler "taskplane/internal/task/handler"
	taskpolicy "taskplane/internal/task/policy"
	taskrepo "taskplane/internal/task/repository"
	tasksvc "taskplane/internal/task/service"
	"taskplane/internal/telemetry"
	"taskplane/internal/telemetry/otel"
	"taskplane/internal/tenant"
	userrepo "taskplane/internal/user/repository"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is not set; create a .env from .env.example or set DATABASE_URL")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	providers, err := otel.NewProviders(ctx, cfg.OTLPEndpoint, "taskplane-api", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer conn.Close()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	privateKey, err := security.ParsePrivateKey(cfg.JWTPrivateKey)
	if err != nil {
		log.Fatalf("jwt private key: %v", err)
	}
	publicKey, err := security.ParsePublicKey(cfg.JWTPublicKey)
	if err != nil {
		log.Fatalf("jwt public key: %v", err)
	}
	tokens := security.NewTokenProvider(privateKey, publicKey, cfg.JWTIssuer, cfg.JWTAudience, cfg.AccessTTL())
	hasher := security.NewHasher(cfg.BcryptCost)

	users := userrepo.NewPostgresRepository(conn)
	orgs := orgrepo.NewPostgresRepository(conn)
	memberships := membershiprepo.NewPostgresRepository(conn)
	refreshTokens := refreshrepo.NewPostgresRepository(conn)
	challenges := otprepo.NewPostgresRepository(conn)
	tasks := taskrepo.NewPostgresRepository(conn)
	auditLogs := auditrepo.NewPostgresRepository(conn)

	var notifier otpsvc.Notifier
	if cfg.OTPWebhookURL != "" {
		notifier = notify.NewWebhookNotifier(cfg.OTPWebhookAPIKey, cfg.OTPWebhookURL)
	} else {
		log.Println("OTP_WEBHOOK_URL not set; login codes will be written to the server log")
		notifier = notify.NewLogNotifier()
	}

	credentials := credential.NewStore(users, hasher, redisClient, cfg.LoginMaxAttempts, cfg.LoginWindow())
	otpManager := otpsvc.NewManager(challenges, notifier, cfg.OTPTTL())
	authService := authsvc.NewAuthService(
		credentials, otpManager,
		authrepo.NewPostgresRegistrar(conn),
		users, orgs, memberships, refreshTokens,
		hasher, tokens,
		cfg.RefreshTTL(), cfg.StorageTimeout(),
	)

	evaluator, err := taskpolicy.NewOPAEvaluator(ctx)
	if err != nil {
		log.Fatalf("task policy: %v", err)
	}

	hub := realtime.NewHub(cfg.HeartbeatInterval(), cfg.HeartbeatMissedLimit)
	go hub.Run(ctx)

	taskService := tasksvc.NewTaskService(tasks, hub, evaluator, cfg.StorageTimeout())
	exportService := exportsvc.NewExportService(exportrepo.NewRedisStore(redisClient, cfg.ExportJobTTL()), cfg.StorageTimeout())

	auditor := audit.NewLogger(auditLogs, middleware.ClientIP, otel.NewEventEmitter(providers.LoggerProvider))

	router := server.NewRouter(server.Deps{
		Tokens:   tokens,
		Resolver: tenant.NewResolver(orgs, cfg.TenantBaseDomain),
		Auditor:  auditor,
		Auth:     authhandler.NewAuthHandler(authService, auditor),
		AuditLog: audithandler.NewAuditHandler(auditLogs, memberships),
		Tasks:    taskhandler.NewTaskHandler(taskService),
		Exports:  exporthandler.NewExportHandler(exportService, memberships),
		Health: healthhandler.NewHandler(conn, healthhandler.PingFunc(func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})),
		Realtime: realtime.NewHandler(hub, tokens),
	})

	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}

	// Give in-flight async telemetry emits time to finish before the
	// providers flush.
	time.Sleep(telemetry.ShutdownDrainDuration)
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("telemetry shutdown: %v", err)
	}
	log.Println("HTTP server stopped")
}
