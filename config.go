package main

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/yorozutantei/yorozu-scheduler/board"
	"github.com/yorozutantei/yorozu-scheduler/storage"
)

const (
	draftsRedis = "redis"
	draftsFile  = "file"
)

// Config holds the board host settings read from the environment.
type Config struct {
	Debug bool

	StorageConnStr string
	Tables         storage.Tables

	DraftsBackend string
	RedisConn     string
	DraftsFile    string
	DraftsTTL     time.Duration

	UndoWindow    time.Duration
	AutosaveDelay time.Duration
	RemoteTimeout time.Duration
	Location      *time.Location

	AuthDomain     string
	AuthAudience   string
	AuthTestMode   bool
	AuthTestSecret string

	ListenAddr string
}

func loadConfig(getenv func(string) string) (Config, error) {
	cfg := Config{
		StorageConnStr: getenv("STORAGE_CONNECTION_STRING"),
		Tables:         storage.DefaultTables(),
		DraftsBackend:  draftsFile,
		DraftsFile:     "drafts.json",
		RedisConn:      getenv("REDIS_CONNECTION_STRING"),
		AuthDomain:     getenv("AUTH0_DOMAIN"),
		AuthAudience:   getenv("AUTH0_AUDIENCE"),
		AuthTestMode:   getenv("AUTH0_TEST_MODE") == "1",
		AuthTestSecret: getenv("TEST_JWT_SECRET"),
		ListenAddr:     ":8080",
		Location:       time.Local,
	}
	if dbg, err := strconv.ParseBool(getenv("DEBUG")); err == nil {
		cfg.Debug = dbg
	}
	if cfg.StorageConnStr == "" {
		return cfg, errors.New("missing STORAGE_CONNECTION_STRING")
	}

	for name, dst := range map[string]*string{
		"MEMBERS_TABLE":   &cfg.Tables.Members,
		"SCHEDULES_TABLE": &cfg.Tables.Schedules,
		"TODOS_TABLE":     &cfg.Tables.Todos,
		"MONTHLY_TABLE":   &cfg.Tables.Monthly,
		"NOTES_TABLE":     &cfg.Tables.Notes,
	} {
		if v := getenv(name); v != "" {
			*dst = v
		}
	}

	switch v := strings.ToLower(strings.TrimSpace(getenv("DRAFTS_BACKEND"))); v {
	case "", draftsFile:
	case draftsRedis:
		cfg.DraftsBackend = draftsRedis
		if cfg.RedisConn == "" {
			return cfg, errors.New("missing REDIS_CONNECTION_STRING")
		}
	default:
		return cfg, fmt.Errorf("invalid DRAFTS_BACKEND %q", v)
	}
	if v := getenv("DRAFTS_FILE"); v != "" {
		cfg.DraftsFile = v
	}

	var err error
	if cfg.DraftsTTL, err = duration(getenv, "DRAFTS_TTL", 0, true); err != nil {
		return cfg, err
	}
	if cfg.UndoWindow, err = duration(getenv, "UNDO_WINDOW", board.DefaultUndoWindow, false); err != nil {
		return cfg, err
	}
	if cfg.AutosaveDelay, err = duration(getenv, "AUTOSAVE_DELAY", board.DefaultAutosaveDelay, false); err != nil {
		return cfg, err
	}
	if cfg.RemoteTimeout, err = duration(getenv, "REMOTE_TIMEOUT", 30*time.Second, false); err != nil {
		return cfg, err
	}

	if v := getenv("BOARD_TIMEZONE"); v != "" {
		loc, err := time.LoadLocation(v)
		if err != nil {
			return cfg, fmt.Errorf("invalid BOARD_TIMEZONE: %w", err)
		}
		cfg.Location = loc
	}

	if !cfg.AuthTestMode && (cfg.AuthDomain == "" || cfg.AuthAudience == "") {
		return cfg, errors.New("missing Auth0 config")
	}
	if cfg.AuthTestMode && cfg.AuthTestSecret == "" {
		return cfg, errors.New("missing TEST_JWT_SECRET")
	}

	if v := getenv("LISTEN_ADDR"); v != "" {
		cfg.ListenAddr = v
	} else if v := getenv("FUNCTIONS_CUSTOMHANDLER_PORT"); v != "" {
		cfg.ListenAddr = ":" + v
	}
	return cfg, nil
}

// duration parses a Go duration. Zero is accepted only when allowZero is set.
func duration(getenv func(string) string, name string, def time.Duration, allowZero bool) (time.Duration, error) {
	v := getenv(name)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if d < 0 || (d == 0 && !allowZero) {
		return 0, fmt.Errorf("invalid %s: must be greater than zero", name)
	}
	return d, nil
}

// redisOptions accepts a redis:// URL or the "host:port,password=...,ssl=true"
// form of hosted connection strings.
func redisOptions(conn string) *redis.Options {
	opts, err := redis.ParseURL(conn)
	if err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts = &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(kv[1], "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
