// @title         pass-service API
// @version       1.0
// @description   Сервис выпуска и обновления пропусков для кошельков.
// @BasePath      /api/v1
// @schemes       http
// @host          localhost:8081
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	_ "github.com/vbncursed/vkr/pass-service/docs"
	"github.com/vbncursed/vkr/pass-service/internal/assets"
	"github.com/vbncursed/vkr/pass-service/internal/barcode"
	"github.com/vbncursed/vkr/pass-service/internal/bundle"
	"github.com/vbncursed/vkr/pass-service/internal/catalog"
	icfg "github.com/vbncursed/vkr/pass-service/internal/config"
	"github.com/vbncursed/vkr/pass-service/internal/crypto"
	ih "github.com/vbncursed/vkr/pass-service/internal/http"
	"github.com/vbncursed/vkr/pass-service/internal/logging"
	"github.com/vbncursed/vkr/pass-service/internal/passdata"
	"github.com/vbncursed/vkr/pass-service/internal/ratelimit"
	"github.com/vbncursed/vkr/pass-service/internal/registry"
	"github.com/vbncursed/vkr/pass-service/internal/repo"
	issvc "github.com/vbncursed/vkr/pass-service/internal/service"
)

func main() {
	cfg, err := icfg.Load(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	level, _ := logging.ParseLevel(cfg.Log.Level)
	logger := logging.New(os.Stderr, logging.Format(cfg.Log.Format), level)
	slog.SetDefault(logger)
	logger.Info("config loaded", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("pass-service stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg icfg.Config, logger *slog.Logger) error {
	certs, err := crypto.LoadCertificateBundle(crypto.LoadOptions{
		P12Path:     cfg.Certificates.P12Path,
		P12Password: cfg.Certificates.P12Password,
		CertPath:    cfg.Certificates.CertPath,
		KeyPath:     cfg.Certificates.KeyPath,
		ChainPath:   cfg.Certificates.ChainPath,
	})
	if err != nil {
		return fmt.Errorf("certificates: %w", err)
	}
	if err := certs.Validate(time.Now(), cfg.Pass.PassTypeIdentifier, cfg.Pass.TeamIdentifier); err != nil {
		return fmt.Errorf("certificates: %w", err)
	}
	if cfg.Pass.PassTypeIdentifier == "" {
		cfg.Pass.PassTypeIdentifier = certs.PassTypeIdentifier
	}
	if cfg.Pass.TeamIdentifier == "" {
		cfg.Pass.TeamIdentifier = certs.TeamIdentifier
	}
	engine, err := crypto.NewEngine(certs)
	if err != nil {
		return err
	}

	if cfg.Pass.TokenSecret == "" {
		return errors.New("TOKEN_SECRET is required")
	}
	sealer, err := barcode.NewTokenSealer([]byte(cfg.Pass.TokenSecret))
	if err != nil {
		return err
	}
	enc, _ := barcode.ParseEncoding(cfg.Pass.BarcodeEncoding)
	assembler, err := passdata.New(passdata.Config{
		PassTypeIdentifier: cfg.Pass.PassTypeIdentifier,
		TeamIdentifier:     cfg.Pass.TeamIdentifier,
		OrganizationName:   cfg.Pass.OrganizationName,
		WebServiceURL:      cfg.Pass.WebServiceURL,
		BarcodeEncoding:    enc,
		BarcodePrefix:      cfg.Pass.BarcodePrefix,
		OfferHashSalt:      cfg.Pass.OfferHashSalt,
	}, sealer, passdata.WithLogger(logger))
	if err != nil {
		return err
	}

	var (
		store   registry.Store
		reader  issvc.Catalog
		readies []ih.ReadyCheck
	)
	if cfg.DatabaseURL != "" {
		pool, err := repo.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("db: %w", err)
		}
		defer pool.Close()
		if err := repo.RunMigrations(ctx, pool, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		gc, err := catalog.OpenGorm(pool)
		if err != nil {
			return err
		}
		store, reader = repo.NewStore(pool), gc
		readies = append(readies, ih.ReadyCheck{Name: "postgres", Pinger: pool})
	} else {
		mem := catalog.NewMemory()
		if cfg.CatalogSeed != "" {
			seed, err := catalog.LoadSeedFile(cfg.CatalogSeed)
			if err != nil {
				return fmt.Errorf("catalog seed: %w", err)
			}
			if err := mem.Apply(ctx, seed); err != nil {
				return fmt.Errorf("catalog seed: %w", err)
			}
		}
		store, reader = repo.NewMemoryStore(), mem
		logger.Warn("DATABASE_URL not set, using in-memory registry and catalog")
	}

	var limiter ratelimit.Limiter
	if cfg.Redis.Addr != "" {
		l, client, err := ratelimit.NewRedis(ratelimit.RedisConfig{
			Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB, Prefix: cfg.Redis.Prefix,
		})
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer client.Close()
		limiter = l
		readies = append(readies, ih.ReadyCheck{Name: "redis", Pinger: redisPinger{client}})
	} else {
		limiter = ratelimit.NewMemory(ratelimit.MemoryConfig{})
	}

	fetchOpts := assets.FetchOptions{Timeout: cfg.Assets.FetchTimeout, MaxBytes: cfg.Assets.FetchMaxBytes}
	svc, err := issvc.New(issvc.Deps{
		Catalog:        reader,
		Registry:       registry.New(store, registry.WithLogger(logger), registry.WithPushLimit(cfg.Push.Limit, cfg.Push.Window)),
		Assembler:      assembler,
		Assets:         assets.NewPipeline(assets.HTTPFetcher{Client: &http.Client{}}, fetchOpts, logger),
		Signer:         engine,
		Packager:       bundle.Packager{},
		Notifier:       issvc.LogNotifier{Logger: logger},
		Logger:         logger,
		PersistTimeout: cfg.PersistTimeout,
	})
	if err != nil {
		return err
	}

	e := ih.Router(ih.Deps{
		Service:       svc,
		Ready:         readies,
		Limiter:       limiter,
		WalletLimit:   cfg.Wallet.RateLimit,
		WalletWindow:  cfg.Wallet.RateWindow,
		EnableSwagger: cfg.EnableSwagger,
		Logger:        logger,
	})

	srv := &http.Server{
		Addr:              cfg.Bind,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pass-service listening", "bind", cfg.Bind,
			"pass_type_identifier", cfg.Pass.PassTypeIdentifier, "cert_not_after", certs.Certificate.NotAfter)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

type redisPinger struct{ c *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.c.Ping(ctx).Err() }

var _ ih.Pinger = (*pgxpool.Pool)(nil)
