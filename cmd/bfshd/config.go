package main

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/pipectl/p4bridge/internal/shellserver"
)

type daemonConfig struct {
	Server      shellserver.Config
	AdminAddr   string
	CorsOrigins []string
}

func defaultDaemonConfig() daemonConfig {
	return daemonConfig{
		Server: shellserver.Config{
			Addr:           "127.0.0.1:52000",
			AllowReconnect: false,
		},
	}
}

type fileConfig struct {
	ListenAddr     string   `toml:"listen_addr"`
	AllowReconnect bool     `toml:"allow_reconnect"`
	AdminAddr      string   `toml:"admin_addr"`
	CorsOrigins    []string `toml:"cors_origins"`
}

func loadDaemonConfig(path string) (daemonConfig, error) {
	cfg := defaultDaemonConfig()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return daemonConfig{}, fmt.Errorf("load bfshd config: %w", err)
	}

	if meta.IsDefined("listen_addr") {
		if addr := strings.TrimSpace(raw.ListenAddr); addr != "" {
			cfg.Server.Addr = addr
		}
	}
	if meta.IsDefined("allow_reconnect") {
		cfg.Server.AllowReconnect = raw.AllowReconnect
	}
	if meta.IsDefined("admin_addr") {
		cfg.AdminAddr = strings.TrimSpace(raw.AdminAddr)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = normalizeOrigins(raw.CorsOrigins)
	}
	return cfg, nil
}

func normalizeOrigins(in []string) []string {
	out := make([]string, 0, len(in))
	for _, origin := range in {
		v := strings.TrimSpace(origin)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	return out
}
