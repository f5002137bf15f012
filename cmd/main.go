package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	httpctx "github.com/Crush-on-Study/Black-Market/internal/api/http/context"
	"github.com/Crush-on-Study/Black-Market/internal/api/http/handler"
	"github.com/Crush-on-Study/Black-Market/internal/api/http/router"
	httpServer "github.com/Crush-on-Study/Black-Market/internal/api/http/server"
	"github.com/Crush-on-Study/Black-Market/internal/clock"
	"github.com/Crush-on-Study/Black-Market/internal/config"
	"github.com/Crush-on-Study/Black-Market/internal/logger"
	"github.com/Crush-on-Study/Black-Market/internal/mail"
	"github.com/Crush-on-Study/Black-Market/internal/metrics"
	"github.com/Crush-on-Study/Black-Market/internal/model"
	"github.com/Crush-on-Study/Black-Market/internal/observability"
	"github.com/Crush-on-Study/Black-Market/internal/password"
	"github.com/Crush-on-Study/Black-Market/internal/repository/memory"
	"github.com/Crush-on-Study/Black-Market/internal/repository/postgres"
	"github.com/Crush-on-Study/Black-Market/internal/service"
	storage "github.com/Crush-on-Study/Black-Market/internal/storage/minio"
	"github.com/Crush-on-Study/Black-Market/internal/token"
)

var (
	buildVersion = "N/A" // set by ldflags
	buildDate    = "N/A" // set by ldflags
	buildCommit  = "N/A" // set by ldflags
)

// backend is the persistence layer chosen by DATABASE_DRIVER.
type backend interface {
	model.Transactor
	handler.Pinger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT, os.Interrupt)
	defer stop()

	cfg, err := config.NewConfig()
	if err != nil {
		log.Fatalf("failed to parse config: %v", err)
	}
	logger := logger.New(cfg.LogLevel)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.AppEnv); err != nil {
		logger.Error("failed to initialize sentry", "error", err)
	}
	defer observability.FlushSentry()

	db, closeDB, err := openBackend(ctx, cfg.Database, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage", "error", err)
	}
	defer closeDB()

	sysClock := clock.System{}
	codec, err := token.NewJWT(cfg.JWT.Secret, cfg.JWT.Algorithm,
		token.WithClock(sysClock),
		token.WithVerificationTTL(cfg.Auth.VerificationTokenTTL),
		token.WithAccessTTL(cfg.Auth.AccessTokenTTL),
	)
	if err != nil {
		logger.Fatal("failed to initialize token codec", "error", err)
	}
	hasher, err := password.NewHasher(password.Params{Time: cfg.KDF.Time, MemKiB: cfg.KDF.MemKiB, Par: cfg.KDF.Par})
	if err != nil {
		logger.Fatal("failed to initialize password hasher", "error", err)
	}
	mailer, err := newMailer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize mailer", "error", err)
	}
	avatars, err := newAvatarStorage(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal("failed to initialize storage client", "error", err)
	}

	tokenService := service.NewTokenService(codec, token.NewOpaque(), db, sysClock, cfg.Auth.RefreshTokenTTL, logger)
	authService := service.NewAuth(db, hasher, codec, tokenService, mailer, sysClock, service.AuthConfig{
		CodeLength: cfg.Auth.CodeLength,
		CodeTTL:    cfg.Auth.CodeTTL,
	}, logger)
	accountService := service.NewAccount(db, avatars, logger)

	r := router.New(authService, accountService, tokenService, db, httpctx.NewManager(), metrics.New(), router.Limits{
		CodeTTL:        cfg.Auth.CodeTTL,
		MaxBodyBytes:   cfg.HTTP.MaxBodyBytes,
		MaxAvatarBytes: cfg.HTTP.MaxAvatarBytes,
	}, logger)
	srv := httpServer.NewHTTPServer(r.Register(), fmt.Sprintf(":%s", cfg.HTTP.Port), cfg.HTTP.ReadHeaderTimeout)

	var sl model.SecurityLayer
	if cfg.HTTP.EnableHTTPS {
		sl = httpServer.NewTLSListener(cfg.HTTP.CertFileName, cfg.HTTP.PrivateKeyFileName)
	} else {
		sl = httpServer.NewPlainListener()
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func(s model.Server) {
		defer wg.Done()
		logger.Info("Starting server on", "address", s.Address())
		if err := s.Start(sl); err != nil {
			logger.Error("failed to start server", "error", err)
			stop()
		}
	}(srv)

	logAppVersion()

	<-ctx.Done()
	logger.Info("received interruption signal, shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", "error", err, "address", srv.Address())
	}

	wg.Wait()
	logger.Info("shutdown complete")
}

func openBackend(ctx context.Context, cfg config.Database, logger *logger.Logger) (backend, func(), error) {
	if cfg.Driver == "memory" {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), func() {}, nil
	}

	conn, err := postgres.NewConnection(ctx, cfg.DSN, postgres.PoolOptions{
		MaxOpenConns: cfg.MaxOpenConns,
		MaxIdleConns: cfg.MaxIdleConns,
	})
	if err != nil {
		return nil, nil, err
	}

	db := struct {
		*postgres.Transactor
		*postgres.Connection
	}{postgres.NewTransactor(conn.DB), conn}

	return db, func() { _ = conn.Close() }, nil
}

func newMailer(cfg *config.Config, logger *logger.Logger) (model.Mailer, error) {
	if !cfg.SMTP.Enabled() {
		logger.Warn("SMTP credentials are not set, verification codes are written to the log")
		return mail.NewLog(logger), nil
	}
	return mail.NewSMTP(mail.SMTPConfig{
		Server:   cfg.SMTP.Server,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
		CodeTTL:  cfg.Auth.CodeTTL,
	}, logger)
}

// newAvatarStorage returns a nil interface when uploads are disabled.
func newAvatarStorage(ctx context.Context, cfg config.Storage, logger *logger.Logger) (model.Storage, error) {
	if !cfg.Enabled {
		logger.Info("avatar storage disabled")
		return nil, nil
	}
	client, err := storage.New(ctx, storage.Config{
		Endpoint:  cfg.Endpoint,
		AccessKey: cfg.AccessKey,
		SecretKey: cfg.SecretKey,
		Bucket:    cfg.Bucket,
		UseSSL:    cfg.UseSSL,
		PublicURL: cfg.PublicURL,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}

func logAppVersion() {
	tmpl := `
Build version: %s
Build date: %s
Build commit: %s
`

	fmt.Printf(tmpl, buildVersion, buildDate, buildCommit)
}
