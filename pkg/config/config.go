/*
Package config loads the resource core's runtime configuration from
flags, environment variables and an optional config file via
github.com/spf13/viper, the layered-config approach the teacher's own
dependency tree does not cover directly (cmd/warren/main.go reads
flags straight into cobra with no separate config layer) but that
other repos in the retrieval pack rely on viper for.
*/
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config holds the four abstract knobs spec.md §6 names for a
// connect() call, plus the ambient logging knobs every carld process
// needs regardless of which backend it selects.
type Config struct {
	PersistenceEnabled   bool   `mapstructure:"persistence.enabled"`
	PersistencePath      string `mapstructure:"persistence.path"`
	SubscriptionCapacity uint64 `mapstructure:"subscription.capacity"`
	HistoryLength        int    `mapstructure:"history.length"`

	LogLevel string `mapstructure:"log.level"`
	LogJSON  bool   `mapstructure:"log.json"`

	MetricsAddr string `mapstructure:"metrics.addr"`
}

// BindFlags registers the persistent flags cmd/carld exposes and
// binds them into v, the way cmd/warren/main.go binds --log-level/
// --log-json directly onto cobra's rootCmd.
func BindFlags(cmd *cobra.Command, v *viper.Viper) error {
	flags := cmd.PersistentFlags()
	flags.Bool("persistence-enabled", false, "persist resources to disk instead of keeping them in memory only")
	flags.String("persistence-path", "./carl-data/resources.db", "bbolt database path used when persistence is enabled")
	flags.Uint64("subscription-capacity", 100, "number of events retained per resource kind's subscription channel")
	flags.Int("history-length", 64, "number of revisions retained per (kind, id) for revisioned resource kinds")
	flags.String("log-level", "info", "log level: debug, info, warn, error")
	flags.Bool("log-json", true, "emit logs as JSON instead of console format")
	flags.String("metrics-addr", ":9090", "address the Prometheus metrics endpoint listens on")

	for _, name := range []string{
		"persistence-enabled", "persistence-path", "subscription-capacity",
		"history-length", "log-level", "log-json", "metrics-addr",
	} {
		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "."), flags.Lookup(name)); err != nil {
			return fmt.Errorf("config: bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads environment variables (prefixed CARL_, with . replaced
// by _) and any config file already added to v, falling back to the
// bound flag defaults, and decodes the result into a Config.
func Load(v *viper.Viper) (Config, error) {
	v.SetEnvPrefix("carl")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("carld")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/carld")

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return Config{}, fmt.Errorf("config: read config file: %w", err)
		}
	}

	var cfg Config
	cfg.PersistenceEnabled = v.GetBool("persistence.enabled")
	cfg.PersistencePath = v.GetString("persistence.path")
	cfg.SubscriptionCapacity = v.GetUint64("subscription.capacity")
	cfg.HistoryLength = v.GetInt("history.length")
	cfg.LogLevel = v.GetString("log.level")
	cfg.LogJSON = v.GetBool("log.json")
	cfg.MetricsAddr = v.GetString("metrics.addr")
	return cfg, nil
}
