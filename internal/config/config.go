// Package config loads the aggregator's YAML configuration. Schema follows
// spec.md §6 directly; this replaces the teacher's sprawling analytics
// config (a different product's schema) while keeping its loading
// mechanism — see loader.go.
package config

// Config is the top-level configuration document.
type Config struct {
	ExchangePairMap map[string][]PairConfig `yaml:"exchange_pair_map"`

	// ServerAddr is the client-side dial target. cmd/client does not read
	// it: that command loads no configuration and dials its -addr flag.
	ServerAddr string `yaml:"server_addr"`
	// BindAddr is the server-side bind address (used by cmd/aggregator).
	BindAddr string `yaml:"bind_addr"`
	// ServerPort is appended to BindAddr when starting the RPC listener.
	ServerPort uint16 `yaml:"server_port"`

	// LogPath, if set, is opened append-mode alongside the always-on
	// stdout sink. Absent means stdout only.
	LogPath string `yaml:"log_path"`
	// LogLevel is one of Error, Warning, Info, Debug.
	LogLevel string `yaml:"log_level"`

	// MetricsAddr, if set, serves /metrics and /health (domain-stack
	// addition; absent disables the metrics HTTP server).
	MetricsAddr string `yaml:"metrics_addr"`

	// RedisPublish optionally re-publishes every Summary to Redis for
	// external dashboards (domain-stack addition; see internal/sidecar).
	RedisPublish RedisPublishConfig `yaml:"redis_publish"`
}

// PairConfig is one exchange_pair_map entry: `{pair, ws_api=true, wait_secs=3}`.
type PairConfig struct {
	Pair     string `yaml:"pair"`
	WSAPI    *bool  `yaml:"ws_api"`
	WaitSecs *uint64 `yaml:"wait_secs"`
}

// ResolvedWSAPI applies the ws_api:true default.
func (p PairConfig) ResolvedWSAPI() bool {
	if p.WSAPI == nil {
		return true
	}
	return *p.WSAPI
}

// ResolvedWaitSecs applies the wait_secs:3 default.
func (p PairConfig) ResolvedWaitSecs() uint64 {
	if p.WaitSecs == nil {
		return 3
	}
	return *p.WaitSecs
}

// RedisPublishConfig gates the optional Redis side-channel.
type RedisPublishConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
	Channel string `yaml:"channel"`
}

// DefaultConfigPath mirrors original_source/src/config.rs's clap default.
const DefaultConfigPath = "./config/config.yaml"

// DefaultDepthLevel is the subscribe-time/trim depth every ingester is given
// (spec.md §6: "depth level default 20"); pair entries have no field that
// overrides it.
const DefaultDepthLevel = 20

// DefaultRedisChannel is the Redis side-channel topic used when
// redis_publish.enabled is true but no channel is configured.
const DefaultRedisChannel = "bookagg:summary"
