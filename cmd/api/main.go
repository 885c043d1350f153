package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-auth-gate/internal/application/policy"
	"github.com/go-auth-gate/internal/config"
	"github.com/go-auth-gate/internal/domain"
	"github.com/go-auth-gate/internal/infrastructure/dynamo"
	jwtinfra "github.com/go-auth-gate/internal/infrastructure/jwt"
	"github.com/go-auth-gate/internal/infrastructure/ldap"
	"github.com/go-auth-gate/internal/infrastructure/oauth"
	redisinfra "github.com/go-auth-gate/internal/infrastructure/redis"
	"github.com/go-auth-gate/internal/infrastructure/smtp"
	"github.com/go-auth-gate/internal/infrastructure/sqlite"
	"github.com/go-auth-gate/internal/pkg/metrics"
	transporthttp "github.com/go-auth-gate/internal/transport/http"
	"github.com/joho/godotenv"
)

// identityStore is what main needs from a backend: the router's contract
// plus seeding the allow-list.
type identityStore interface {
	transporthttp.IdentityStore
	AddAllowedPattern(ctx context.Context, p *domain.AllowedEmailPattern) error
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()

	store, closeStore := openStore(ctx, cfg)
	defer closeStore()

	var patterns policy.PatternSource = policy.StaticSource(cfg.AllowedEmailPatterns)
	if cfg.AllowedEmailSource == config.PatternSourceStore {
		if err := policy.Seed(ctx, store, cfg.SeedEmailPatterns); err != nil {
			log.Fatalf("seed allowed email patterns: %v", err)
		}
		patterns = store
	}

	tokens, err := jwtinfra.NewProvider(cfg.SessionSecret, cfg.SessionTTL)
	if err != nil {
		log.Fatalf("session tokens: %v", err)
	}

	exchangers, err := oauth.FromConfig(cfg)
	if err != nil {
		log.Fatalf("oauth providers: %v", err)
	}

	deps := &transporthttp.Deps{
		Store:      store,
		Tokens:     tokens,
		OTPSender:  smtp.NewOTPSender(smtp.NewMailer(cfg)),
		Exchangers: exchangers,
		Patterns:   patterns,
	}
	if cfg.MetricsEnabled {
		deps.Metrics = metrics.New()
	}

	// OTP attempt limiter (optional: verification proceeds without it).
	if cfg.RedisAddr != "" {
		if rdb, err := redisinfra.NewClient(ctx, cfg.RedisAddr, cfg.RedisPassword); err == nil {
			deps.Limiter = redisinfra.NewAttemptLimiter(rdb, cfg.OTPMaxAttempts, cfg.OTPAttemptWindow)
			defer rdb.Close()
		} else {
			log.Printf("WARN: OTP attempt limiter not available: %v", err)
		}
	}

	if cfg.LDAPEnabled {
		deps.Binder = ldap.NewBinder(cfg.LDAPURL, cfg.LDAPBaseDN, cfg.LDAPUserAttr, cfg.LDAPBindTimeout)
	}

	router := transporthttp.NewRouter(cfg, deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s (env=%s, store=%s, providers=%v)", cfg.AppPort, cfg.AppEnv, cfg.StoreBackend, cfg.OAuthProviders)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("forced shutdown: %v", err)
	}
	log.Println("Server stopped")
}

// openStore connects the configured backend. If DynamoDB cannot be reached
// at startup the service falls back to an in-memory SQLite store, which
// loses all users and codes on restart.
func openStore(ctx context.Context, cfg *config.Config) (identityStore, func()) {
	if cfg.StoreBackend == config.StoreDynamo {
		s, err := openDynamo(ctx, cfg)
		if err == nil {
			return s, func() {}
		}
		log.Printf("WARN: DynamoDB unavailable, falling back to in-memory store: %v", err)
		mem, err := sqlite.OpenMemory()
		if err != nil {
			log.Fatalf("in-memory store: %v", err)
		}
		return mem, func() { _ = mem.Close() }
	}
	s, err := sqlite.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("sqlite store: %v", err)
	}
	return s, func() { _ = s.Close() }
}

func openDynamo(ctx context.Context, cfg *config.Config) (*dynamo.Store, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	client, err := dynamo.NewClient(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := dynamo.Bootstrap(ctx, client, cfg.DynamoTables); err != nil {
		return nil, err
	}
	s := dynamo.NewStore(client, cfg.DynamoTables)
	if err := s.Ping(ctx); err != nil {
		return nil, err
	}
	return s, nil
}
