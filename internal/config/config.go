// Package config loads relstore's ini-file configuration: buffer pool
// sizing, the data directory, and the log level.
package config

import (
	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"
)

// Config holds the engine's tunable knobs.
type Config struct {
	PoolFrames int
	DataDir    string
	LogLevel   string
}

func defaults() *Config {
	return &Config{
		PoolFrames: 64,
		DataDir:    "./data",
		LogLevel:   "info",
	}
}

// Load reads path as an ini file with [buffer]/[storage]/[log] sections.
// An empty path or a missing file falls back to defaults, logging the
// fallback at Warn rather than failing.
func Load(path string) (*Config, error) {
	cfg := defaults()
	if path == "" {
		log.Warn("config: no path given, using defaults")
		return cfg, nil
	}

	f, err := ini.Load(path)
	if err != nil {
		log.WithError(err).Warnf("config: could not load %q, using defaults", path)
		return cfg, nil
	}

	cfg.PoolFrames = f.Section("buffer").Key("pool_frames").MustInt(cfg.PoolFrames)
	cfg.DataDir = f.Section("storage").Key("data_dir").MustString(cfg.DataDir)
	cfg.LogLevel = f.Section("log").Key("level").MustString(cfg.LogLevel)
	return cfg, nil
}
