// bfshd is the server side of the remote shell protocol. It listens for one
// bridge client at a time and executes the received pipeline commands,
// optionally exposing an HTTP admin surface with health and metrics.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pipectl/p4bridge/internal/logging"
	"github.com/pipectl/p4bridge/internal/shellserver"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bfshd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to the bfshd TOML config")
	listenAddr := flag.String("listen", "", "listen address override")
	allowReconnect := flag.Bool("allow-reconnect", false, "keep accepting sessions after one ends")
	flag.Parse()

	logging.ConfigureRuntime()

	cfg, err := loadDaemonConfig(*configPath)
	if err != nil {
		return err
	}
	if *listenAddr != "" {
		cfg.Server.Addr = *listenAddr
	}
	if *allowReconnect {
		cfg.Server.AllowReconnect = true
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := shellserver.New(cfg.Server)

	var admin *http.Server
	if cfg.AdminAddr != "" {
		admin = &http.Server{
			Addr:    cfg.AdminAddr,
			Handler: shellserver.NewAdminRouter(srv, cfg.CorsOrigins),
		}
		go func() {
			log.Info().Str("addr", cfg.AdminAddr).Msg("admin surface listening")
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error().Err(err).Msg("admin surface failed")
			}
		}()
	}

	err = srv.ListenAndServe(ctx)

	if admin != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = admin.Shutdown(shutdownCtx)
	}
	return err
}
