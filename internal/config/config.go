// Package config carga la configuración del proceso: un objeto inmutable
// construido una sola vez en main y pasado por referencia a cada componente.
// Nada acá es mutable en runtime; no hay negociación de valores entre
// servicios — secret y TTLs se provisionan out-of-band, idénticos en todos
// los deployments que cooperan.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults del protocolo. Los TTLs no positivos caen silenciosamente a estos
// valores (default permisivo documentado, no un error).
const (
	DefaultNonceTTL      = 600 * time.Second
	DefaultCodeTTL       = 300 * time.Second
	DefaultFlagTTL       = 3600 * time.Second
	DefaultFirstHopTTL   = 5 * time.Minute
	DefaultSessionHopTTL = 4 * time.Hour
)

type Config struct {
	App struct {
		// dev | staging | prod
		Env string `yaml:"env"`
	} `yaml:"app"`

	Server struct {
		Addr        string `yaml:"addr"`
		MetricsAddr string `yaml:"metrics_addr"` // vacío => sin listener de métricas
		// BaseURL pública de ESTE servicio; usada para armar el return-to
		// del step-up y los links en los mails.
		BaseURL string `yaml:"base_url"`
	} `yaml:"server"`

	Handoff struct {
		// Secret compartido entre todos los servicios que cooperan.
		// Override: PASSBRIDGE_SECRET
		Secret        string `yaml:"secret"`
		NonceTTL      string `yaml:"nonce_ttl"`       // default 600s
		FirstHopTTL   string `yaml:"first_hop_ttl"`   // default 5m
		SessionHopTTL string `yaml:"session_hop_ttl"` // default 4h
	} `yaml:"handoff"`

	StepUp struct {
		CodeTTL string `yaml:"code_ttl"` // default 300s
		FlagTTL string `yaml:"flag_ttl"` // default 3600s
		// Roles que fuerzan el segundo factor. Tabla de política, no
		// propiedad del token.
		PrivilegedRoles []string `yaml:"privileged_roles"` // default ["SuperAdmin"]
		// DebugEchoCode expone el código en un header de respuesta (solo dev/DX).
		DebugEchoCode bool `yaml:"debug_echo_code"`
	} `yaml:"stepup"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"` // override: REDIS_PASSWORD
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Directory struct {
		Driver   string `yaml:"driver"` // static | postgres
		DSN      string `yaml:"dsn"`    // override: DIRECTORY_DSN
		CacheTTL string `yaml:"cache_ttl"`
		Static   []struct {
			ID           string `yaml:"id"`
			DisplayName  string `yaml:"display_name"`
			Role         string `yaml:"role"`
			Email        string `yaml:"email"`
			PasswordHash string `yaml:"password_hash"` // PHC argon2id, solo gateway
		} `yaml:"static"`
	} `yaml:"directory"`

	SMTP struct {
		Host               string `yaml:"host"`
		Port               int    `yaml:"port"`
		Username           string `yaml:"username"`
		Password           string `yaml:"password"` // override: SMTP_PASSWORD
		From               string `yaml:"from"`
		TLS                string `yaml:"tls"`                  // auto | starttls | ssl | none
		InsecureSkipVerify bool   `yaml:"insecure_skip_verify"` // sólo dev
	} `yaml:"smtp"`

	Session struct {
		CookieName string `yaml:"cookie_name"`
		Secret     string `yaml:"secret"` // override: SESSION_SECRET
		TTL        string `yaml:"ttl"`
		Secure     bool   `yaml:"secure"`
	} `yaml:"session"`

	Rate struct {
		Enabled bool `yaml:"enabled"`
		Login   struct {
			Limit  int    `yaml:"limit"`
			Window string `yaml:"window"`
		} `yaml:"login"`
	} `yaml:"rate"`
}

// Load lee el YAML, aplica overrides de entorno y defaults razonables.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	// Overrides por ENV (secretos nunca en el YAML commiteado)
	if v := getenv("PASSBRIDGE_SECRET"); v != "" {
		c.Handoff.Secret = v
	}
	if v := getenv("SESSION_SECRET"); v != "" {
		c.Session.Secret = v
	}
	if v := getenv("SMTP_PASSWORD"); v != "" {
		c.SMTP.Password = v
	}
	if v := getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Redis.Password = v
	}
	if v := getenv("DIRECTORY_DSN"); v != "" {
		c.Directory.DSN = v
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Directory.Driver == "" {
		c.Directory.Driver = "static"
	}
	if c.Session.CookieName == "" {
		c.Session.CookieName = "pb_session"
	}
	if c.Rate.Login.Limit == 0 {
		c.Rate.Login.Limit = 10
	}
	if c.Rate.Login.Window == "" {
		c.Rate.Login.Window = "1m"
	}

	return &c, nil
}

// Validate chequea lo mínimo para arrancar un servicio.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Handoff.Secret) == "" {
		return fmt.Errorf("config: handoff.secret vacío (o PASSBRIDGE_SECRET)")
	}
	return nil
}

// NonceTTL con fallback silencioso a 600s.
func (c *Config) NonceTTL() time.Duration {
	return durationOr(c.Handoff.NonceTTL, DefaultNonceTTL)
}

// CodeTTL con fallback silencioso a 300s.
func (c *Config) CodeTTL() time.Duration {
	return durationOr(c.StepUp.CodeTTL, DefaultCodeTTL)
}

// FlagTTL con fallback silencioso a 3600s.
func (c *Config) FlagTTL() time.Duration {
	return durationOr(c.StepUp.FlagTTL, DefaultFlagTTL)
}

// FirstHopTTL: vida del token de un primer hop (se consume en segundos).
func (c *Config) FirstHopTTL() time.Duration {
	return durationOr(c.Handoff.FirstHopTTL, DefaultFirstHopTTL)
}

// SessionHopTTL: vida del token de un hop pensado para durar la sesión de trabajo.
func (c *Config) SessionHopTTL() time.Duration {
	return durationOr(c.Handoff.SessionHopTTL, DefaultSessionHopTTL)
}

// SessionTTL: vida de la cookie de sesión propia del gateway.
func (c *Config) SessionTTL() time.Duration {
	return durationOr(c.Session.TTL, 8*time.Hour)
}

// DirectoryCacheTTL: memoización local de lookups del directorio.
func (c *Config) DirectoryCacheTTL() time.Duration {
	return durationOr(c.Directory.CacheTTL, 30*time.Second)
}

// LoginRateWindow parsea la ventana del rate limit de login.
func (c *Config) LoginRateWindow() time.Duration {
	return durationOr(c.Rate.Login.Window, time.Minute)
}

// PrivilegedRoles retorna la tabla de política de step-up.
func (c *Config) PrivilegedRoles() []string {
	if len(c.StepUp.PrivilegedRoles) == 0 {
		return []string{"SuperAdmin"}
	}
	return c.StepUp.PrivilegedRoles
}

// durationOr parsea una duración; valores vacíos, inválidos o no positivos
// caen al default sin error.
func durationOr(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}
