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

	"github.com/najibrashidabdi/newkaabe/internal/config"
	"github.com/najibrashidabdi/newkaabe/internal/logging"
	"github.com/najibrashidabdi/newkaabe/internal/mockapi"
	"github.com/najibrashidabdi/newkaabe/internal/notify"
)

func main() {
	configFile := flag.String("config", "", "optional config file")
	addr := flag.String("addr", "", "HTTP listen address, overrides KAABE_MOCK_ADDR")
	codes := flag.Int("codes", 3, "activation codes to issue at startup")
	remind := flag.Duration("remind", 0, "send inactivity reminders on this interval (0 disables)")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.MockAddr = *addr
	}

	log := logging.NewStdLogger(os.Stderr, "mockapi", cfg.Debug)
	if err := serve(cfg, log, *codes, *remind); err != nil {
		log.Error("server failed", "err", err)
		os.Exit(1)
	}
}

func serve(cfg *config.Config, log *logging.StdLogger, codes int, remind time.Duration) error {
	opts := mockapi.Options{JWTSecret: cfg.MockJWTSecret, Log: log}
	if cfg.RedisURL != "" {
		push, err := notify.NewRedisPush(cfg.RedisURL, log)
		if err != nil {
			log.Warn("redis publish disabled", "err", err)
		} else {
			defer push.Close()
			opts.Publisher = push
		}
	}

	api, err := mockapi.NewServer(opts)
	if err != nil {
		return err
	}

	log.Info("demo accounts",
		"student", mockapi.StudentEmail+"/"+mockapi.StudentPassword,
		"staff", mockapi.StaffEmail+"/"+mockapi.StaffPassword)
	log.Info("activation code", "code", mockapi.DemoCode)
	for i := 0; i < codes; i++ {
		log.Info("activation code", "code", api.IssueActivationCode())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if remind > 0 {
		go func() {
			ticker := time.NewTicker(remind)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					log.Info("reminders sent", "users", api.RemindAll(ctx))
				}
			}
		}()
	}

	server := &http.Server{
		Addr:              cfg.MockAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ErrorLog:          log.Std(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Info("mockapi listening", "addr", cfg.MockAddr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
