package main

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/asayao-fp/keiba/config"
	"github.com/asayao-fp/keiba/db"
	"github.com/asayao-fp/keiba/handlers"
	applog "github.com/asayao-fp/keiba/logger"
	mw "github.com/asayao-fp/keiba/middleware"
)

func main() {
	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	bdb := db.Setup(cfg)
	defer bdb.Close()

	ctx := context.Background()
	if err := db.CreateTables(ctx, bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}
	if err := db.EvolveSchema(ctx, bdb); err != nil {
		logger.Fatal("schema evolution failed", zap.Error(err))
	}

	h := handlers.New(bdb, cfg.JWTKey())

	e := echo.New()
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod: true,
		LogURI:    true,
		LogStatus: true,
		LogError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.Int("status", v.Status),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			switch {
			case v.Status >= 500:
				logger.Error("http request", fields...)
			case v.Status >= 400:
				logger.Warn("http request", fields...)
			default:
				logger.Info("http request", fields...)
			}
			return nil
		},
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders:     []string{"*", "Authorization"},
		AllowCredentials: true,
	}))

	// Public
	e.POST("/api/signin", h.Signin)

	// Protected – require valid JWT in Authorization header
	api := e.Group("/api", mw.JWT(cfg.JWTKey()))
	api.GET("/dates", h.Dates)
	api.GET("/races", h.Races)
	api.GET("/races/:key", h.GetRace)
	api.GET("/races/:key/entries", h.RaceEntries)
	api.GET("/races/:key/odds", h.RaceOdds)
	api.GET("/jockeys", h.Jockeys)
	api.GET("/trainers", h.Trainers)

	logger.Info("starting server", zap.String("addr", cfg.Port), zap.String("db", cfg.DBPath))
	if err := e.Start(cfg.Port); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}
