// gateway: autentica por credencial y acuña handoff URLs hacia los
// servicios downstream. No valida handoffs entrantes, eso es cmd/service.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/passbridge/internal/cache"
	"github.com/dropDatabas3/passbridge/internal/config"
	"github.com/dropDatabas3/passbridge/internal/directory"
	"github.com/dropDatabas3/passbridge/internal/handoff"
	httpx "github.com/dropDatabas3/passbridge/internal/http"
	"github.com/dropDatabas3/passbridge/internal/http/handlers"
	"github.com/dropDatabas3/passbridge/internal/observability/logger"
	"github.com/dropDatabas3/passbridge/internal/rate"
	"github.com/dropDatabas3/passbridge/internal/session"
	rdb "github.com/redis/go-redis/v9"
)

func main() {
	flagConfig := flag.String("config", "config.yaml", "ruta al YAML de configuración")
	flagEnvFile := flag.String("env-file", ".env", "archivo .env opcional")
	flag.Parse()

	if fileExists(*flagEnvFile) {
		_ = godotenv.Load(*flagEnvFile)
	}

	logger.Init(logger.Config{
		Env:         os.Getenv("APP_ENV"),
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "gateway",
	})
	defer func() { _ = logger.Sync() }()
	log := logger.L()

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		log.Fatal("config load failed", logger.Err(err))
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("config invalid", logger.Err(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cacheClient, err := cache.New(cache.Config{
		Driver:   cfg.Cache.Kind,
		Addr:     cfg.Cache.Redis.Addr,
		Password: cfg.Cache.Redis.Password,
		DB:       cfg.Cache.Redis.DB,
		Prefix:   cfg.Cache.Redis.Prefix,
	})
	if err != nil {
		log.Fatal("cache init failed", logger.Err(err))
	}
	defer cacheClient.Close()

	dir, cleanup, err := buildDirectory(ctx, cfg)
	if err != nil {
		log.Fatal("directory init failed", logger.Err(err))
	}
	defer cleanup()

	sessionSecret := cfg.Session.Secret
	if sessionSecret == "" {
		// Sin secret propio, la cookie local se firma con el secret de handoff
		sessionSecret = cfg.Handoff.Secret
	}
	sessions := session.New(cfg.Session.CookieName, []byte(sessionSecret), cfg.SessionTTL(), cfg.Session.Secure)
	builder := &handoff.Builder{Secret: []byte(cfg.Handoff.Secret)}

	var limiter rate.Limiter
	if cfg.Rate.Enabled {
		if cfg.Cache.Kind == "redis" {
			limiter = rate.NewRedisLimiter(rdb.NewClient(&rdb.Options{
				Addr:     cfg.Cache.Redis.Addr,
				Password: cfg.Cache.Redis.Password,
				DB:       cfg.Cache.Redis.DB,
			}), "rl:", cfg.Rate.Login.Limit, cfg.LoginRateWindow())
		} else {
			limiter = rate.NewMemoryLimiter(cfg.Rate.Login.Limit, cfg.LoginRateWindow())
		}
	}

	if cfg.Server.MetricsAddr != "" {
		mh, err := httpx.RegisterMetrics(nil)
		if err != nil {
			log.Fatal("metrics init failed", logger.Err(err))
		}
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", mh)
			if err := httpx.Start(ctx, cfg.Server.MetricsAddr, mux); err != nil && err != http.ErrServerClosed {
				log.Error("metrics listener failed", logger.Err(err))
			}
		}()
	}

	router := httpx.NewRouter(
		&handlers.LoginHandler{
			Auth:        dir,
			Sessions:    sessions,
			Builder:     builder,
			Limiter:     limiter,
			FirstHopTTL: cfg.FirstHopTTL(),
		},
		&handlers.HandoffHandler{
			Sessions:      sessions,
			Builder:       builder,
			FirstHopTTL:   cfg.FirstHopTTL(),
			SessionHopTTL: cfg.SessionHopTTL(),
		},
		&handlers.ReadyzHandler{Cache: cacheClient},
	)

	log.Info("gateway listening", logger.Any("addr", cfg.Server.Addr))
	if err := httpx.Start(ctx, cfg.Server.Addr, router); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", logger.Err(err))
	}
}

// buildDirectory instancia el driver de directorio configurado.
func buildDirectory(ctx context.Context, cfg *config.Config) (directory.Authenticator, func(), error) {
	switch cfg.Directory.Driver {
	case "postgres":
		pg, err := directory.NewPG(ctx, cfg.Directory.DSN)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		entries := make([]directory.StaticEntry, 0, len(cfg.Directory.Static))
		for _, e := range cfg.Directory.Static {
			entries = append(entries, directory.StaticEntry{
				ID:           e.ID,
				DisplayName:  e.DisplayName,
				Role:         e.Role,
				Email:        e.Email,
				PasswordHash: e.PasswordHash,
			})
		}
		return directory.NewStatic(entries), func() {}, nil
	}
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
