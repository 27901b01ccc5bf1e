package main

import (
	"strings"
	"testing"
	"time"

	"github.com/yorozutantei/yorozu-scheduler/board"
)

func env(vals map[string]string) func(string) string {
	return func(k string) string { return vals[k] }
}

func baseEnv() map[string]string {
	return map[string]string{
		"STORAGE_CONNECTION_STRING": "UseDevelopmentStorage=true",
		"AUTH0_DOMAIN":              "login.example.com",
		"AUTH0_AUDIENCE":            "yorozu",
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(env(baseEnv()))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DraftsBackend != draftsFile || cfg.DraftsFile != "drafts.json" || cfg.DraftsTTL != 0 {
		t.Fatalf("unexpected drafts config %+v", cfg)
	}
	if cfg.UndoWindow != board.DefaultUndoWindow || cfg.AutosaveDelay != board.DefaultAutosaveDelay {
		t.Fatalf("unexpected timings %v %v", cfg.UndoWindow, cfg.AutosaveDelay)
	}
	if cfg.Tables.Monthly != "monthlydashboard" || cfg.ListenAddr != ":8080" {
		t.Fatalf("unexpected config %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	vals := baseEnv()
	vals["DRAFTS_BACKEND"] = "Redis"
	vals["REDIS_CONNECTION_STRING"] = "localhost:6379"
	vals["DRAFTS_TTL"] = "720h"
	vals["UNDO_WINDOW"] = "8s"
	vals["TODOS_TABLE"] = "teamtodos"
	vals["BOARD_TIMEZONE"] = "Asia/Tokyo"
	vals["FUNCTIONS_CUSTOMHANDLER_PORT"] = "7071"

	cfg, err := loadConfig(env(vals))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.DraftsBackend != draftsRedis || cfg.DraftsTTL != 720*time.Hour {
		t.Fatalf("unexpected drafts config %+v", cfg)
	}
	if cfg.UndoWindow != 8*time.Second || cfg.Tables.Todos != "teamtodos" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.Location.String() != "Asia/Tokyo" || cfg.ListenAddr != ":7071" {
		t.Fatalf("unexpected location or addr %v %s", cfg.Location, cfg.ListenAddr)
	}

	vals["LISTEN_ADDR"] = "127.0.0.1:9000"
	if cfg, _ := loadConfig(env(vals)); cfg.ListenAddr != "127.0.0.1:9000" {
		t.Fatalf("expected LISTEN_ADDR to win, got %s", cfg.ListenAddr)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]string
		want string
	}{
		{"storage", map[string]string{"STORAGE_CONNECTION_STRING": ""}, "STORAGE_CONNECTION_STRING"},
		{"backend", map[string]string{"DRAFTS_BACKEND": "sqlite"}, "DRAFTS_BACKEND"},
		{"redis", map[string]string{"DRAFTS_BACKEND": "redis"}, "REDIS_CONNECTION_STRING"},
		{"undo", map[string]string{"UNDO_WINDOW": "soon"}, "UNDO_WINDOW"},
		{"zero autosave", map[string]string{"AUTOSAVE_DELAY": "0s"}, "AUTOSAVE_DELAY"},
		{"negative ttl", map[string]string{"DRAFTS_TTL": "-1h"}, "DRAFTS_TTL"},
		{"timezone", map[string]string{"BOARD_TIMEZONE": "Mars/Olympus"}, "BOARD_TIMEZONE"},
		{"auth", map[string]string{"AUTH0_DOMAIN": ""}, "Auth0"},
		{"test secret", map[string]string{"AUTH0_TEST_MODE": "1"}, "TEST_JWT_SECRET"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vals := baseEnv()
			for k, v := range tt.set {
				vals[k] = v
			}
			_, err := loadConfig(env(vals))
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error mentioning %s, got %v", tt.want, err)
			}
		})
	}
}

func TestRedisOptions(t *testing.T) {
	opts := redisOptions("redis://:secret@cache:6380/2")
	if opts.Addr != "cache:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected url options %+v", opts)
	}

	opts = redisOptions("example.redis.cache.windows.net:6380,password=abc=,ssl=True,abortConnect=False")
	if opts.Addr != "example.redis.cache.windows.net:6380" || opts.Password != "abc=" {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.TLSConfig == nil {
		t.Fatal("expected tls for ssl=True")
	}
}
