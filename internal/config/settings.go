// Package config loads the origind configuration via Viper, parses the
// declarative origin description, and produces the standard-crawler form of
// it.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/crawlkit/origind/internal/errs"
)

// Settings captures the service knobs. The declarative origin description
// (domains, repositories, directories) lives in the same file and is kept in
// raw form for transformation; see Load.
type Settings struct {
	Server  ServerSettings  `mapstructure:"server"`
	DNS     DNSSettings     `mapstructure:"dns"`
	Git     GitSettings     `mapstructure:"git"`
	Crawler CrawlerSettings `mapstructure:"crawler"`
	Serve   ServeSettings   `mapstructure:"serve"`
	Verify  VerifySettings  `mapstructure:"verify"`
	Logging LoggingSettings `mapstructure:"logging"`
}

// ServerSettings controls the origin HTTP listener.
type ServerSettings struct {
	Host                   string `mapstructure:"host"`
	Port                   int    `mapstructure:"port"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds"`
	// MetricsAddr exposes Prometheus metrics on a side listener when set.
	MetricsAddr string `mapstructure:"metrics_addr"`
}

// DNSSettings controls the name resolution service.
type DNSSettings struct {
	Addr              string `mapstructure:"addr"`
	TTL               uint32 `mapstructure:"ttl"`
	InstallResolvConf bool   `mapstructure:"install_resolv_conf"`
	ResolvConfPath    string `mapstructure:"resolv_conf_path"`
}

// GitSettings controls content acquisition.
type GitSettings struct {
	RepositoryRoot string `mapstructure:"repository_root"`
}

// CrawlerSettings locates the external standard crawler.
type CrawlerSettings struct {
	Binary string `mapstructure:"binary"`
}

// ServeSettings controls the serve command's inspection window.
type ServeSettings struct {
	// HoldSeconds keeps the services up after setup; 0 means until
	// interrupted.
	HoldSeconds int `mapstructure:"hold_seconds"`
}

// VerifySettings controls the built-in smoke crawl.
type VerifySettings struct {
	Enabled        bool `mapstructure:"enabled"`
	TimeoutSeconds int  `mapstructure:"timeout_seconds"`
}

// LoggingSettings toggles zap development features.
type LoggingSettings struct {
	Development bool `mapstructure:"development"`
}

// Load reads the YAML file at path (optional) plus ORIGIND_* environment
// overrides, returning the typed settings and the raw top-level document for
// the schema transformation.
func Load(path string) (Settings, map[string]any, error) {
	v := viper.New()
	v.SetEnvPrefix("ORIGIND")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Settings{}, nil, errs.Wrap(errs.KindConfiguration, fmt.Errorf("read config: %w", err))
		}
	}

	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return Settings{}, nil, errs.Wrap(errs.KindConfiguration, fmt.Errorf("unmarshal config: %w", err))
	}
	if err := s.Validate(); err != nil {
		return Settings{}, nil, err
	}

	return s, v.AllSettings(), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "127.0.0.1")
	v.SetDefault("server.port", 80)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("dns.addr", "127.0.0.1:53")
	v.SetDefault("dns.ttl", 60)
	v.SetDefault("dns.install_resolv_conf", false)
	v.SetDefault("git.repository_root", "./web/repositories")
	v.SetDefault("crawler.binary", "bin/crawler")
	v.SetDefault("serve.hold_seconds", 0)
	v.SetDefault("verify.enabled", false)
	v.SetDefault("verify.timeout_seconds", 10)
	v.SetDefault("logging.development", true)
}

// Validate enforces required values and reasonable limits.
func (s Settings) Validate() error {
	if s.Server.Port < 0 || s.Server.Port > 65535 {
		return errs.New(errs.KindConfiguration, "server.port %d out of range", s.Server.Port)
	}
	if s.Server.ShutdownTimeoutSeconds <= 0 {
		return errs.New(errs.KindConfiguration, "server.shutdown_timeout_seconds must be > 0")
	}
	if s.DNS.Addr == "" {
		return errs.New(errs.KindConfiguration, "dns.addr must be set")
	}
	if s.Git.RepositoryRoot == "" {
		return errs.New(errs.KindConfiguration, "git.repository_root must be set")
	}
	if s.Verify.Enabled && s.Verify.TimeoutSeconds <= 0 {
		return errs.New(errs.KindConfiguration, "verify.timeout_seconds must be > 0 when verify is enabled")
	}
	return nil
}
