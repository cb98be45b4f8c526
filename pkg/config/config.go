package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "memkv"

type Config struct {
	// Addr is the TCP address the cache protocol listens on
	Addr string
	// AdminAddr serves /health, /v1/stats and /metrics; empty disables it
	AdminAddr string
	LogLevel  string

	TCPNoDelay     bool
	KeepAlive      time.Duration
	ReadBufferSize int
}

// Option overrides a loaded value, e.g. from a command line argument
type Option func(*Config) error

// WithPort replaces the port of Addr, keeping its host
func WithPort(port string) Option {
	return func(c *Config) error {
		p, err := ParsePort(port)
		if err != nil {
			return err
		}
		host, _, err := net.SplitHostPort(c.Addr)
		if err != nil {
			host = ""
		}
		c.Addr = net.JoinHostPort(host, strconv.Itoa(int(p)))
		return nil
	}
}

// ParsePort validates a decimal TCP port in the range 1-65535
func ParsePort(port string) (uint16, error) {
	p, err := strconv.ParseUint(strings.TrimSpace(port), 10, 16)
	if err != nil || p == 0 {
		return 0, fmt.Errorf("invalid port %q: must be a number between 1 and 65535", port)
	}
	return uint16(p), nil
}

// Load reads .env files and MEMKV_* environment variables on top of defaults
func Load(opts ...Option) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":11211")
	v.SetDefault("admin-addr", "")
	v.SetDefault("log-level", "info")
	v.SetDefault("tcp-nodelay", true)
	v.SetDefault("keepalive", 30*time.Second)
	v.SetDefault("read-buffer-size", 16*1024)

	cfg := &Config{
		Addr:           v.GetString("addr"),
		AdminAddr:      v.GetString("admin-addr"),
		LogLevel:       v.GetString("log-level"),
		TCPNoDelay:     v.GetBool("tcp-nodelay"),
		KeepAlive:      v.GetDuration("keepalive"),
		ReadBufferSize: v.GetInt("read-buffer-size"),
	}

	for _, opt := range opts {
		if err := opt(cfg); err != nil {
			return nil, err
		}
	}
	if cfg.ReadBufferSize <= 0 {
		return nil, fmt.Errorf("read buffer size must be positive, got %d", cfg.ReadBufferSize)
	}

	return cfg, nil
}
