// service: un servicio downstream. Valida handoffs entrantes en su entry
// endpoint y corre el step-up por código para los roles privilegiados.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/passbridge/internal/authflow"
	"github.com/dropDatabas3/passbridge/internal/cache"
	"github.com/dropDatabas3/passbridge/internal/config"
	"github.com/dropDatabas3/passbridge/internal/directory"
	"github.com/dropDatabas3/passbridge/internal/email"
	httpx "github.com/dropDatabas3/passbridge/internal/http"
	"github.com/dropDatabas3/passbridge/internal/http/handlers"
	"github.com/dropDatabas3/passbridge/internal/nonce"
	"github.com/dropDatabas3/passbridge/internal/observability/logger"
	"github.com/dropDatabas3/passbridge/internal/session"
	"github.com/dropDatabas3/passbridge/internal/stepup"
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
		ServiceName: "service",
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

	// Cache compartido: acá viven el nonce ledger y el estado del step-up.
	// Con kind=redis varios servicios comparten UN ledger global; con
	// kind=memory cada proceso lleva el suyo (ledger per-hop).
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

	resolver, extras, cleanup, err := buildResolver(ctx, cfg)
	if err != nil {
		log.Fatal("directory init failed", logger.Err(err))
	}
	defer cleanup()

	var notifier stepup.Notifier
	if cfg.SMTP.Host != "" {
		tmpl, err := email.LoadTemplates()
		if err != nil {
			log.Fatal("email templates failed", logger.Err(err))
		}
		sender := email.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)
		if cfg.SMTP.TLS != "" {
			sender.TLSMode = cfg.SMTP.TLS
		}
		sender.InsecureSkipVerify = cfg.SMTP.InsecureSkipVerify
		notifier = &email.CodeNotifier{Sender: sender, Tmpl: tmpl, Service: "passbridge"}
	} else {
		log.Warn("smtp not configured, step-up codes will not be delivered")
	}

	ledger := nonce.NewLedger(cacheClient, cfg.NonceTTL())
	manager := stepup.NewManager(cacheClient, notifier, cfg.CodeTTL(), cfg.FlagTTL())
	engine := authflow.NewEngine([]byte(cfg.Handoff.Secret), ledger, manager, resolver, cfg.PrivilegedRoles())

	sessionSecret := cfg.Session.Secret
	if sessionSecret == "" {
		sessionSecret = cfg.Handoff.Secret
	}
	sessions := session.New(cfg.Session.CookieName, []byte(sessionSecret), cfg.SessionTTL(), cfg.Session.Secure)

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
		&handlers.SSOHandler{
			Engine:        engine,
			StepUp:        manager,
			Sessions:      sessions,
			BaseURL:       cfg.Server.BaseURL,
			LandingPath:   "/",
			DebugEchoCode: cfg.StepUp.DebugEchoCode,
		},
		&handlers.StepUpHandler{StepUp: manager},
		&handlers.ReadyzHandler{Cache: cacheClient, Extras: extras},
	)

	log.Info("service listening",
		logger.Any("addr", cfg.Server.Addr),
		logger.Any("nonce_ttl", ledger.TTL().String()),
	)
	if err := httpx.Start(ctx, cfg.Server.Addr, router); err != nil && err != http.ErrServerClosed {
		log.Fatal("server failed", logger.Err(err))
	}
}

// buildResolver instancia el directorio configurado, envuelto en la
// memoización local (singleflight + TTL corto).
func buildResolver(ctx context.Context, cfg *config.Config) (directory.Resolver, []handlers.Pinger, func(), error) {
	switch cfg.Directory.Driver {
	case "postgres":
		pg, err := directory.NewPG(ctx, cfg.Directory.DSN)
		if err != nil {
			return nil, nil, nil, err
		}
		return directory.NewCached(pg, cfg.DirectoryCacheTTL()),
			[]handlers.Pinger{pg.Pool()},
			pg.Close,
			nil
	default:
		entries := make([]directory.StaticEntry, 0, len(cfg.Directory.Static))
		for _, e := range cfg.Directory.Static {
			entries = append(entries, directory.StaticEntry{
				ID:          e.ID,
				DisplayName: e.DisplayName,
				Role:        e.Role,
				Email:       e.Email,
			})
		}
		return directory.NewStatic(entries), nil, func() {}, nil
	}
}

func fileExists(p string) bool {
	if p == "" {
		return false
	}
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}
