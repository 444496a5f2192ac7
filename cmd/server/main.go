// Command notevault-server starts the NoteVault gRPC server.
package main

import (
	"context"
	"crypto/rand"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/and161185/notevault/internal/clock"
	"github.com/and161185/notevault/internal/config"
	pkgcrypto "github.com/and161185/notevault/internal/crypto"
	"github.com/and161185/notevault/internal/limiter"
	"github.com/and161185/notevault/internal/migrate"
	"github.com/and161185/notevault/internal/repository"
	"github.com/and161185/notevault/internal/repository/postgres"
	redisrepo "github.com/and161185/notevault/internal/repository/redis"
	grpcserver "github.com/and161185/notevault/internal/server/grpc"
	"github.com/and161185/notevault/internal/service"
	"github.com/and161185/notevault/internal/token"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// main loads configuration, runs migrations, and starts a TLS-enabled gRPC server.
func main() {
	logger, _ := zap.NewProduction()
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(os.Args[1:], os.Getenv)
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("addr", cfg.Addr),
		zap.String("ledger", cfg.Ledger),
	)

	creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
	if err != nil {
		logger.Fatal("failed to load TLS cert/key", zap.Error(err))
	}

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := migrate.Up(ctx, cfg.DSN); err != nil {
		logger.Fatal("migrate up", zap.Error(err))
	}

	db, err := postgres.New(ctx, cfg.DSN)
	if err != nil {
		logger.Fatal("postgres", zap.Error(err))
	}
	defer db.Close()

	// Repositories
	userRepo := postgres.NewUserRepo(db)
	noteRepo := postgres.NewNoteRepo(db)

	var revRepo repository.RevocationRepository = postgres.NewRevocationRepo(db)
	if cfg.Ledger == config.LedgerRedis {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		defer func() { _ = rdb.Close() }()
		rr := redisrepo.NewRevocationRepo(rdb, redisrepo.DefaultPrefix)
		if err := rr.Ping(ctx); err != nil {
			logger.Fatal("redis ping", zap.Error(err))
		}
		revRepo = rr
	}

	var lim limiter.Limiter = limiter.Nop{}
	if cfg.LimiterMaxFails > 0 {
		lim = limiter.NewPG(db.Pool, cfg.LimiterWindow, cfg.LimiterMaxFails, cfg.LimiterBlockFor)
	}

	// Services
	clk := clock.Real()
	tokens := token.New([]byte(cfg.JWTKey), cfg.TokenTTL, clk)
	ledger := service.NewRevocationLedger(revRepo, clk, logger)
	hasher := pkgcrypto.NewHasher(cfg.BcryptCost)
	store := service.NewCredentialStore(userRepo, hasher, rand.Reader)
	guard := service.NewSessionGuard(tokens, ledger, userRepo, logger)
	authSvc := service.NewAuthService(store, tokens, ledger, lim, logger)
	noteSvc := service.NewNoteService(noteRepo, service.DefaultMaxCiphertext)

	logger.Info("auth configured",
		zap.Int("bcryptCost", hasher.Cost()),
		zap.Duration("tokenTTL", tokens.TTL()),
		zap.Int("limiterMaxFails", cfg.LimiterMaxFails),
	)

	go ledger.Run(ctx, cfg.PurgeInterval)

	// gRPC server with interceptors
	s := grpc.NewServer(
		grpc.Creds(creds),
		grpc.ChainUnaryInterceptor(
			grpcserver.RecoverUnary(logger),
			grpcserver.LoggingUnary(logger),
			grpcserver.AuthUnary(guard),
		),
	)

	grpcserver.RegisterNoteVaultServer(s, grpcserver.New(store, authSvc, noteSvc))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		logger.Fatal("listen", zap.Error(err))
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening (TLS)", zap.String("addr", cfg.Addr))
		errCh <- s.Serve(lis)
	}()

	select {
	case <-ctx.Done():
		hs.Shutdown()
		done := make(chan struct{})
		go func() {
			s.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			s.Stop()
		}
	case err := <-errCh:
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}

	logger.Info("shutdown complete")
}
