// Package config loads the cinnamon command configuration. Values are
// layered as defaults < config file < CINNAMON_ environment < command flags
// and are not changed after Load returns.
package config

import (
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	cerrors "github.com/ajaimes/cinnamon/internal/errors"
	"github.com/ajaimes/cinnamon/internal/utils"
	"github.com/ajaimes/cinnamon/pkg/cinnamon"
)

// EnvPrefix prefixes every environment override, e.g. CINNAMON_SERVER_PORT
const EnvPrefix = "CINNAMON"

// Adapters are the accepted server.adapter values
var Adapters = []string{"echo", "gin", "fiber", "chi", "nethttp"}

// SessionStores are the accepted session.store values
var SessionStores = []string{"none", "memory", "sql"}

// Config is the complete command configuration
type Config struct {
	Dispatch cinnamon.Config
	Server   ServerConfig
	Session  SessionConfig
	LogLevel string
}

// ServerConfig selects and configures the web framework
type ServerConfig struct {
	Adapter         string
	Host            string
	Port            int
	MetricsPath     string
	ShutdownTimeout time.Duration
}

// SessionConfig selects the session store
type SessionConfig struct {
	Store  string
	DBURL  string
	Secure bool
}

// flagKeys maps command flag names to configuration keys
var flagKeys = map[string]string{
	"controllers":   "controller_package",
	"slugs":         "use_slugs",
	"prefix":        "mount_prefix",
	"views":         "views_dir",
	"compress":      "compress_content",
	"adapter":       "server.adapter",
	"host":          "server.host",
	"port":          "server.port",
	"metrics-path":  "server.metrics_path",
	"session-store": "session.store",
	"db-url":        "session.db_url",
	"log-level":     "log_level",
}

func setDefaults(v *viper.Viper) {
	d := cinnamon.DefaultConfig()
	v.SetDefault("use_slugs", false)
	v.SetDefault("mount_prefix", "/")
	v.SetDefault("views_dir", d.ViewsDir)
	v.SetDefault("compress_content", false)
	v.SetDefault("session.cookie_name", d.SessionCookieName)
	v.SetDefault("session.max_inactive", d.SessionMaxInactive.String())
	v.SetDefault("session.store", "memory")
	v.SetDefault("session.db_url", "")
	v.SetDefault("session.secure", false)
	v.SetDefault("server.adapter", "echo")
	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_path", "/metrics")
	v.SetDefault("server.shutdown_timeout", "30s")
	v.SetDefault("log_level", "info")
}

// Load reads configPath (optional), the environment and flags. A relative
// controller_package is resolved against the go.mod owning the config file's
// directory, or the working directory without a file.
func Load(configPath string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	baseDir := "."
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, cerrors.WrapConfigurationError(configPath, "read", err)
		}
		baseDir = filepath.Dir(configPath)
	}

	if flags != nil {
		for name, key := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, cerrors.WrapConfigurationError(key, "bind", err)
				}
			}
		}
	}

	cfg := &Config{
		Dispatch: cinnamon.Config{
			ControllerPackage:  v.GetString("controller_package"),
			UseSlugs:           v.GetBool("use_slugs"),
			MountPrefix:        v.GetString("mount_prefix"),
			ViewsDir:           v.GetString("views_dir"),
			SessionCookieName:  v.GetString("session.cookie_name"),
			SessionMaxInactive: v.GetDuration("session.max_inactive"),
			CompressContent:    v.GetBool("compress_content"),
		},
		Server: ServerConfig{
			Adapter:         strings.ToLower(v.GetString("server.adapter")),
			Host:            v.GetString("server.host"),
			Port:            v.GetInt("server.port"),
			MetricsPath:     v.GetString("server.metrics_path"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Session: SessionConfig{
			Store:  strings.ToLower(v.GetString("session.store")),
			DBURL:  v.GetString("session.db_url"),
			Secure: v.GetBool("session.secure"),
		},
		LogLevel: v.GetString("log_level"),
	}

	pkg, err := utils.NewGoModParser().ResolvePackage(cfg.Dispatch.ControllerPackage, baseDir)
	if err != nil {
		return nil, cerrors.WrapConfigurationError("controller_package", "resolve", err)
	}
	cfg.Dispatch.ControllerPackage = pkg

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// cookieToken is the RFC 6265 cookie-name token grammar
const cookieToken = `^[!#$%&'*+\-.^_|~0-9A-Za-z` + "`" + `]+$`

var (
	packageRules = utils.NewValidatorChain(
		utils.NotEmpty("controller_package"),
		utils.IsImportPath("controller_package"))
	prefixRules = utils.NewValidatorChain(utils.HasPrefix("mount_prefix", "/"))
	cookieRules = utils.NewValidatorChain(
		utils.NotEmpty("session.cookie_name"),
		utils.MatchesRegex("session.cookie_name", cookieToken))
	adapterRules = utils.NewValidatorChain(utils.IsOneOf("server.adapter", Adapters...))
	portRules    = utils.NewValidatorChain(utils.InRange("server.port", 1, 65535))
	storeRules   = utils.NewValidatorChain(utils.IsOneOf("session.store", SessionStores...))
	dbURLRules   = utils.NewValidatorChain(utils.Conditional(
		func(s SessionConfig) bool { return s.Store == "sql" },
		utils.Custom("session.db_url", "is required by the sql session store",
			func(s SessionConfig) bool { return s.DBURL != "" })))
)

// Validate collects every invalid value into one error
func Validate(cfg *Config) error {
	errs := cerrors.NewMultipleErrors()
	check := func(err error, suggestion string) {
		var ve utils.ValidationError
		if !errors.As(err, &ve) {
			return
		}
		e := cerrors.NewConfigurationError(ve.Field, ve.Message)
		if suggestion != "" {
			e = e.WithSuggestion(suggestion)
		}
		errs.Add(e)
	}

	check(packageRules.Validate(cfg.Dispatch.ControllerPackage),
		"set controller_package to an import path or a ./relative directory")
	check(prefixRules.Validate(cfg.Dispatch.MountPrefix), "")
	check(utils.Positive[time.Duration]("session.max_inactive")(cfg.Dispatch.SessionMaxInactive), "")
	check(cookieRules.Validate(cfg.Dispatch.SessionCookieName), "")
	check(adapterRules.Validate(cfg.Server.Adapter), "")
	check(portRules.Validate(cfg.Server.Port), "")
	check(utils.Positive[time.Duration]("server.shutdown_timeout")(cfg.Server.ShutdownTimeout), "")
	check(storeRules.Validate(cfg.Session.Store), "")
	check(dbURLRules.Validate(cfg.Session), "use sqlite:///path/to/sessions.db or postgres://user@host/db")
	return errs.ErrOrNil()
}
