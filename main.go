package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"EWIS-backend/internal/asset_mgmt/assets"
	"EWIS-backend/internal/asset_mgmt/ewaste"
	"EWIS-backend/internal/asset_mgmt/inventory"
	"EWIS-backend/internal/asset_mgmt/issuance"
	"EWIS-backend/internal/platform/apierr"
	"EWIS-backend/internal/platform/auth"
	"EWIS-backend/internal/platform/db"
	"EWIS-backend/internal/platform/logger"
	"EWIS-backend/internal/platform/metrics"
	"EWIS-backend/internal/scheduler"
)

func main() {
	// 設定読み込み
	cfg, err := db.LoadConfig(db.ConfigFilePath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log := logger.Must(logger.New(cfg.Mode, cfg.LogLevel))
	defer func() { _ = log.Sync() }()
	log.Info("starting", zap.String("mode", cfg.Mode), zap.String("version", cfg.Version))

	conn, err := db.Connect(cfg.DB)
	if err != nil {
		log.Fatal("failed to connect to DB", zap.Error(err))
	}
	defer conn.Close()
	log.Info("connected to DB", zap.String("dbname", cfg.DB.DBName))

	// 重量は JSON 数値で返す
	decimal.MarshalJSONWithoutQuotes = true

	m := metrics.New()

	assetSvc := assets.NewService(conn, logger.Named(log, "svc.assets"))
	inventorySvc := inventory.NewService(conn, logger.Named(log, "svc.inventory"), m)
	issuanceSvc := issuance.NewService(conn, logger.Named(log, "svc.issuance"), m)
	ewasteSvc := ewaste.NewService(conn, logger.Named(log, "svc.ewaste"))

	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(logger.GinLogger(logger.Named(log, "http")), gin.Recovery())
	_ = r.SetTrustedProxies(nil)

	if cfg.Mode == "dev" {
		// CORS（開発中のみ必要）
		r.Use(cors.New(corsConfig(cfg.Server.CORSOrigins)))
	}

	// ヘルス・メトリクス
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := conn.PingContext(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "db unavailable")
			return
		}
		c.String(http.StatusOK, "ok")
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	// /api
	api := r.Group("/api", auth.RequireAuth([]byte(cfg.Auth.JWTSecret)))
	assets.RegisterRoutes(api, assetSvc)
	inventory.RegisterRoutes(api, inventorySvc)
	issuance.RegisterRoutes(api, issuanceSvc)
	ewaste.RegisterRoutes(api, ewasteSvc)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, apierr.Body(apierr.CodeNotFound, "route not found"))
	})

	sched := scheduler.New(cfg.Scheduler.LowStockCron, inventorySvc, m, logger.Named(log, "scheduler"))
	if err := sched.Start(); err != nil {
		log.Fatal("failed to start scheduler", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// TLS設定（証明書が無ければ平文で起動）
	certDir := "config/tls/release"
	if cfg.Mode == "dev" {
		certDir = "config/tls/dev"
	}

	go func() {
		var err error
		if cfg.Certificate.Cert != "" && cfg.Certificate.Key != "" {
			log.Info("listening", zap.String("addr", "https://"+cfg.Server.Addr))
			err = srv.ListenAndServeTLS(
				fmt.Sprintf("%s/%s", certDir, cfg.Certificate.Cert),
				fmt.Sprintf("%s/%s", certDir, cfg.Certificate.Key),
			)
		} else {
			log.Info("listening", zap.String("addr", "http://"+cfg.Server.Addr))
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info("shutting down...")

	sched.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown failed", zap.Error(err))
	}
}

// corsConfig: ルーティングしているメソッドはすべて許可すること
func corsConfig(origins []string) cors.Config {
	return cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Location"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowCredentials: true,
	}
}
