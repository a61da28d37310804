package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/najibrashidabdi/newkaabe/internal/apiclient"
	"github.com/najibrashidabdi/newkaabe/internal/cli"
	"github.com/najibrashidabdi/newkaabe/internal/config"
	"github.com/najibrashidabdi/newkaabe/internal/logging"
	"github.com/najibrashidabdi/newkaabe/internal/notify"
	"github.com/najibrashidabdi/newkaabe/internal/opentdb"
	"github.com/najibrashidabdi/newkaabe/internal/session"
)

var version = "dev"

func main() {
	configFile := flag.String("config", "", "optional config file (yaml, json or toml)")
	api := flag.String("api", "", "API base URL, overrides KAABE_API_URL")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
	if *api != "" {
		cfg.APIURL = *api
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	std := logging.NewStdLogger(os.Stderr, "kaabe", cfg.Debug)
	var log logging.Logger = std
	if cfg.RollbarToken != "" {
		rb := logging.NewRollbarLogger(std, logging.RollbarOptions{
			Token:       cfg.RollbarToken,
			Environment: cfg.Env,
			CodeVersion: version,
		})
		defer rb.Close()
		log = rb
	}

	store, err := session.Open(cfg.SessionPath)
	if err != nil {
		return err
	}
	defer store.Close()

	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	api := apiclient.New(cfg.APIURL, httpClient, session.TokenSource{Store: store}, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runCfg := cli.Config{
		API:                  api,
		Store:                store,
		Log:                  log,
		Trivia:               opentdb.NewClient(httpClient),
		MetricsInterval:      cfg.DashboardPollInterval,
		NotificationInterval: cfg.NotificationPollInterval,
		RevenuePerProUser:    cfg.RevenuePerProUser,
	}
	if cfg.RedisURL != "" {
		push, err := notify.NewRedisPush(cfg.RedisURL, log)
		if err != nil {
			log.Warn("redis push disabled", "err", err)
		} else {
			defer push.Close()
			runCfg.Push = push
		}
	}

	return cli.Run(ctx, os.Stdin, os.Stdout, runCfg)
}
