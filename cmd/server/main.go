// Command server runs the membership management API.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"memberd/internal/audit"
	audithandler "memberd/internal/audit/handler"
	authnhandler "memberd/internal/authn/handler"
	authnmodels "memberd/internal/authn/models"
	authnservice "memberd/internal/authn/service"
	authnstore "memberd/internal/authn/store"
	"memberd/internal/authn/token"
	"memberd/internal/authz"
	"memberd/internal/event"
	"memberd/internal/member/allocator"
	memberhandler "memberd/internal/member/handler"
	memberservice "memberd/internal/member/service"
	memberstore "memberd/internal/member/store"
	typehandler "memberd/internal/membershiptype/handler"
	typeservice "memberd/internal/membershiptype/service"
	typestore "memberd/internal/membershiptype/store"
	"memberd/internal/platform/config"
	"memberd/internal/platform/httpserver"
	"memberd/internal/platform/logger"
	"memberd/internal/platform/metrics"
	"memberd/internal/platform/postgres"
	"memberd/internal/ratelimit"
	"memberd/internal/screening"
	transporthttp "memberd/internal/transport/http"
	id "memberd/pkg/domain"
	"memberd/pkg/platform/sentinel"
	txcontext "memberd/pkg/platform/tx"
)

func main() {
	log := logger.New()
	if err := run(log); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run(log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	m := metrics.New()

	// Stores. Without DATABASE_URL everything runs in memory, which is the
	// local development mode.
	var (
		userStore   authnservice.Store
		typeStore   typeservice.Store
		memberStore memberservice.Store
		auditStore  audit.Store
		relayStore  audit.RelayStore
		eventStore  event.Store
		typeLocker  allocator.TypeLocker
		numberSrc   allocator.NumberSource
		memberDir   event.MemberDirectory
		runner      interface {
			RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
		}
	)
	if cfg.DatabaseURL != "" {
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer db.Close()

		users := authnstore.NewPostgres(db)
		types := typestore.NewPostgres(db)
		members := memberstore.NewPostgres(db)
		auditPG := audit.NewPostgres(db)
		userStore, typeStore, memberStore = users, types, members
		auditStore, relayStore = auditPG, auditPG
		eventStore = event.NewPostgresStore(db)
		typeLocker, numberSrc, memberDir = types, members, members
		runner = txcontext.NewRunner(db)
		log.Info("storage ready", "backend", "postgres")
	} else {
		users := authnstore.NewMemory()
		types := typestore.NewMemory()
		members := memberstore.NewMemory()
		auditMem := audit.NewMemoryStore()
		userStore, typeStore, memberStore = users, types, members
		auditStore, relayStore = auditMem, auditMem
		eventStore = event.NewMemoryStore()
		typeLocker, numberSrc, memberDir = types, members, members
		runner = txcontext.Passthrough{}
		log.Warn("DATABASE_URL not set, using in-memory storage")
	}

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer redisClient.Close()
	}

	recorder := audit.NewRecorder(auditStore, log)
	limiter := ratelimit.New(redisClient, cfg.LoginMaxAttempts, cfg.LoginWindow, log)
	tokens := token.NewManager(cfg.JWTSigningKey, cfg.TokenTTL)
	screener := screening.NewClient(cfg.ScreeningBaseURL, cfg.ScreeningAPIKey, cfg.ScreeningTimeout, log)
	alloc := allocator.New(typeLocker, numberSrc)

	authSvc := authnservice.New(userStore, tokens, limiter, recorder, runner, m, log)
	typeSvc := typeservice.New(typeStore, recorder, runner)
	memberSvc := memberservice.New(memberStore, alloc, screener, recorder, runner, m, log, cfg.DomesticProvider)
	eventSvc := event.NewService(eventStore, memberDir, recorder, runner, m)

	if err := bootstrapAdmin(ctx, cfg, userStore, log); err != nil {
		return err
	}

	router := transporthttp.New(transporthttp.Handlers{
		Auth:    authnhandler.New(authSvc, cfg.TokenTTL, log),
		Members: memberhandler.New(memberSvc, log),
		Types:   typehandler.New(typeSvc, log),
		Events:  event.NewHandler(eventSvc, log),
		Audit:   audithandler.New(recorder, log),
	}, tokens, m, log)

	server := httpserver.New(cfg.Addr, router)

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if len(cfg.KafkaBrokers) > 0 {
		producer, err := audit.NewKafkaProducer(cfg.KafkaBrokers, cfg.AuditTopic)
		if err != nil {
			return err
		}
		defer producer.Close()
		relay := audit.NewRelay(relayStore, producer, log, m)
		g.Go(func() error {
			if err := relay.Run(gCtx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
		log.Info("audit relay enabled", "topic", cfg.AuditTopic)
	}

	return g.Wait()
}

// bootstrapAdmin creates the initial admin account so a fresh deployment is
// reachable. Does nothing when the username already exists or none is
// configured.
func bootstrapAdmin(ctx context.Context, cfg config.Server, users authnservice.Store, log *slog.Logger) error {
	if cfg.AdminUsername == "" || cfg.AdminPassword == "" {
		return nil
	}
	if _, err := users.FindByUsername(ctx, cfg.AdminUsername); err == nil {
		return nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return err
	}
	u, err := authnmodels.New(id.NewUserID(), cfg.AdminUsername, cfg.AdminEmail,
		cfg.AdminPassword, authz.RoleAdmin, time.Now().UTC())
	if err != nil {
		return err
	}
	if err := users.Create(ctx, u); err != nil {
		return err
	}
	log.Info("bootstrap admin created", "username", cfg.AdminUsername)
	return nil
}
