package main

import (
	"context"
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/yorozutantei/yorozu-scheduler/api"
	"github.com/yorozutantei/yorozu-scheduler/board"
	"github.com/yorozutantei/yorozu-scheduler/storage"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("could not read .env")
	}
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Debug {
		log.SetLevel(log.DebugLevel)
	}

	store, err := storage.New(cfg.StorageConnStr, cfg.Tables)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}

	var drafts storage.DraftCache
	switch cfg.DraftsBackend {
	case draftsRedis:
		drafts = storage.NewRedisDrafts(redis.NewClient(redisOptions(cfg.RedisConn)), cfg.DraftsTTL)
	default:
		drafts = storage.NewFileDrafts(cfg.DraftsFile)
	}

	var auth *api.Auth
	if cfg.AuthTestMode {
		auth = api.NewAuth(nil, api.AuthConfig{TestSecret: cfg.AuthTestSecret, Audience: cfg.AuthAudience})
	} else {
		jwksURL := fmt.Sprintf("https://%s/.well-known/jwks.json", cfg.AuthDomain)
		jwks, err := keyfunc.Get(jwksURL, keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		auth = api.NewAuth(jwks, api.AuthConfig{Audience: cfg.AuthAudience, Issuer: "https://" + cfg.AuthDomain + "/"})
	}

	logger := log.StandardLogger()
	b := board.New(store, drafts, board.Options{
		UndoWindow:    cfg.UndoWindow,
		AutosaveDelay: cfg.AutosaveDelay,
		RemoteTimeout: cfg.RemoteTimeout,
		Location:      cfg.Location,
		Logger:        logger,
	})
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RemoteTimeout)
	if err := b.Load(ctx); err != nil {
		log.WithError(err).Error("initial load incomplete")
	}
	cancel()

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	api.Register(e, b, auth, logger)

	log.WithField("addr", cfg.ListenAddr).Info("board host listening")
	e.Logger.Fatal(e.Start(cfg.ListenAddr))
}
