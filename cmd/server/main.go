package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prashanna2005/SkillBridge/internal/config"
	"github.com/prashanna2005/SkillBridge/internal/logging"
	"github.com/prashanna2005/SkillBridge/internal/server"
	"github.com/prashanna2005/SkillBridge/internal/signaling"
)

func main() {
	cfg, err := config.Load(config.Options{})
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logging.New(cfg.LogLevel)

	hub := signaling.NewHub(log)
	go hub.Run()

	srv := &http.Server{
		Addr:    cfg.ListenAddr,
		Handler: server.NewRouter(hub, log),
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("starting signaling server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
	}
	hub.Stop()
	log.Info().Msg("server exited")
}
