package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"minerduel/arena"
	"minerduel/mechanics"
	"minerduel/server"
)

// minerduel 入口：加载配置，启动机制 Tick 循环与 HTTP + WebSocket 服务
func main() {
	var addr, logFile, dotenv string
	flag.StringVar(&addr, "addr", "", "server listen address, e.g. :8080 (overrides MINERDUEL_ADDR)")
	flag.StringVar(&logFile, "log", "", "log file path (overrides MINERDUEL_LOG_FILE)")
	flag.StringVar(&dotenv, "env", ".env", "optional dotenv file")
	flag.Parse()

	cfg, err := server.LoadConfig(dotenv)
	if err != nil {
		panic(err)
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if logFile != "" {
		cfg.LogFile = logFile
	}
	// 使用第三方 zap 日志库写入日志文件（带滚动）
	log, err := server.InitLogger(cfg.LogFile, cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	remote := server.NewRemotePointService(log)
	initSvc := &arena.Initializer{Rules: cfg.Rules(), Seed: cfg.BoardSeed, Log: log}
	mech := mechanics.NewMechanics(remote, initSvc, cfg.Settings(), log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go mech.Run(ctx)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           (&server.Server{Remote: remote, Mech: mech, Log: log}).Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("minerduel listening on %s", cfg.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	<-ctx.Done()
	log.Info("Shutting down...")
	for _, s := range mech.Sessions.Sessions() {
		mech.Sessions.ForceTerminate(s, false)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
}
