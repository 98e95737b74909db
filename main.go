// Package main, gooverchat backend uygulamasının giriş noktasıdır.
//
// Bu dosyanın görevi, Dependency Injection "wire-up":
//  1. Config'i yükle, logger'ı kur
//  2. Database'i başlat (gömülü migration'lar)
//  3. Repository'leri ve membership store'u oluştur
//  4. Fan-out ve WebSocket Hub'ı başlat
//  5. Service'leri, handler'ları ve route'ları bağla
//  6. CORS + HTTP Server
//  7. Periyodik temizlik ve graceful shutdown
//
// Global değişken YOK; her şey burada oluşturulup birbirine bağlanıyor.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"

	"github.com/akinalp/gooverchat/config"
	"github.com/akinalp/gooverchat/database"
	"github.com/akinalp/gooverchat/pkg/logger"
)

const cleanupInterval = 10 * time.Minute

func main() {
	// ─── 1. Config + Logger ───
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("[main] failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)
	defer logger.Sync()
	logger.Infof("[main] gooverchat server starting (port=%d)", cfg.Server.Port)

	// ─── 2. Database ───
	db, err := database.New(cfg.Database.Path, database.Migrations())
	if err != nil {
		logger.Fatalf("[main] failed to initialize database: %v", err)
	}
	defer db.Close()

	// ─── 3. Repository Layer ───
	repos := initRepositories(db.Conn)
	membership, mirror, closeMembership := initMembership(cfg, repos)
	defer closeMembership()

	// ─── 4. Realtime ───
	hub, closeRealtime, err := initRealtime(cfg, membership)
	if err != nil {
		logger.Fatalf("[main] failed to start realtime hub: %v", err)
	}

	// ─── 5. Service / Handler / Route ───
	svcs, limiters := initServices(db.Conn, repos, hub, mirror, cfg)
	h := initHandlers(svcs, limiters, hub, cfg)

	mux := http.NewServeMux()
	initRoutes(mux, h, svcs.Auth, repos.User)

	// ─── 6. CORS + HTTP Server ───
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           corsHandler.Handler(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// ─── 7. Periyodik temizlik ───
	//
	// Süresi dolmuş refresh oturumları ve limiter'lardaki eski kayıtlar silinir.
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if n, err := svcs.Auth.PurgeExpiredSessions(cleanupCtx); err != nil {
					logger.Warnf("[main] session cleanup failed: %v", err)
				} else if n > 0 {
					logger.Infof("[main] purged %d expired sessions", n)
				}
				limiters.Login.Sweep()
				limiters.Message.Sweep()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	// ─── Graceful Shutdown ───
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Infof("[main] server listening on %s", cfg.Server.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("[main] server error: %v", err)
		}
	}()

	<-done
	logger.Infof("[main] shutting down...")
	stopCleanup()

	// Önce WebSocket bağlantıları ve fan-out kapanır, sonra HTTP server
	// mevcut request'lerin bitmesini bekler (5sn timeout).
	closeRealtime()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("[main] forced shutdown: %v", err)
	}

	logger.Infof("[main] server stopped gracefully")
}
