// Package config loads process-level configuration with spf13/viper and
// watches the backing file for live reload via fsnotify, mirroring the
// teacher's config layer.
package config

import (
	"fmt"
	"log/slog"
	"strconv"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Config holds the runtime's process-level tunables, plus the
// debug/inspection and cluster-forwarder addresses.
type Config struct {
	Thread     int    `mapstructure:"thread"`
	Harbor     uint8  `mapstructure:"harbor"`
	Daemon     string `mapstructure:"daemon"`
	CPath      string `mapstructure:"cpath"`
	Bootstrap  string `mapstructure:"bootstrap"`
	Logger     string `mapstructure:"logger"`
	LogService string `mapstructure:"logservice"`

	AMQPURI     string `mapstructure:"amqp_uri"`
	ClusterTopic string `mapstructure:"cluster_topic"`

	DebugHTTPAddr string `mapstructure:"debug_http_addr"`
	DebugGRPCAddr string `mapstructure:"debug_grpc_addr"`
}

// reloadable lists the keys that may change under hot reload; thread and
// harbor are fixed at process start, since there is no safe way to resize
// the worker pool or renumber the harbor in place on a running process.
var reloadable = map[string]bool{
	"daemon":          true,
	"cpath":           true,
	"bootstrap":       true,
	"logger":          true,
	"logservice":      true,
	"amqp_uri":        true,
	"cluster_topic":   true,
	"debug_http_addr": true,
	"debug_grpc_addr": true,
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("thread", 8)
	v.SetDefault("harbor", 1)
	v.SetDefault("cpath", "./service/?.so")
	v.SetDefault("bootstrap", "snlua bootstrap")
	v.SetDefault("logger", "")
	v.SetDefault("logservice", "logger")
	v.SetDefault("cluster_topic", "actorhub.cluster")
	v.SetDefault("debug_http_addr", ":9090")
	v.SetDefault("debug_grpc_addr", ":9091")
}

// Load reads path (if non-empty) plus ACTORHUB_-prefixed environment
// overrides of its keys (ACTORHUB_THREAD, ACTORHUB_HARBOR,
// ACTORHUB_LOGSERVICE, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("ACTORHUB")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if cfg.Harbor == 0 {
		return nil, fmt.Errorf("config: harbor must be in 1..255, 0 is reserved")
	}
	return &cfg, nil
}

// Watcher applies safe hot-reloads of a config file to a live Config,
// rejecting (with a logged warning, never an error return) changes to
// fields fixed at process start.
type Watcher struct {
	v      *viper.Viper
	path   string
	logger *slog.Logger
	onSet  func(key, value string)
}

// NewWatcher wires fsnotify onto path (via viper's own watcher) and calls
// onSet for every reloadable key that changes, so callers can push the new
// value into internal/runtime/env without this package depending on it.
func NewWatcher(path string, logger *slog.Logger, onSet func(key, value string)) (*Watcher, error) {
	v := viper.New()
	setDefaults(v)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: watcher read %s: %w", path, err)
	}

	w := &Watcher{v: v, path: path, logger: logger, onSet: onSet}
	v.OnConfigChange(func(e fsnotify.Event) {
		w.reload()
	})
	v.WatchConfig()
	return w, nil
}

func (w *Watcher) reload() {
	for key := range reloadable {
		val := w.v.Get(key)
		if val == nil {
			continue
		}
		w.onSet(key, toStr(val))
	}
	if w.v.IsSet("thread") || w.v.IsSet("harbor") {
		w.logger.Warn("config: ignoring reload of fixed field", slog.String("path", w.path))
	}
}

func toStr(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	default:
		return fmt.Sprintf("%v", t)
	}
}
