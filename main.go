package main

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/sirupsen/logrus"

	"bitenow/bot"
	"bitenow/config"
	"bitenow/metrics"
	"bitenow/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}

	log := logrus.New()
	log.SetLevel(cfg.LogLevel)
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	backend := services.NewBackendClient(cfg.Backend, log.WithField("backend", cfg.Backend.URL))

	// `bitenow menu` prints the menu once and exits.
	if len(os.Args) > 1 && os.Args[1] == "menu" {
		runMenu(cfg, backend, log)
		return
	}

	if cfg.Telegram.Token == "" {
		fmt.Fprintln(os.Stderr, "TOKEN not set")
		os.Exit(1)
	}

	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, log)
	}

	b, err := bot.New(cfg, backend, log)
	if err != nil {
		fmt.Fprintln(os.Stderr, "bot:", err)
		os.Exit(1)
	}

	log.WithField("backend", cfg.Backend.URL).Info("bot started")
	b.Start()
}

func runMenu(cfg *config.Config, backend services.Backend, log *logrus.Logger) {
	s := services.NewStorefront(backend, cfg, log)
	if err := s.LoadMenu(context.Background()); err != nil {
		fmt.Fprint(os.Stderr, bot.MenuText(s.Status(), nil))
		os.Exit(1)
	}
	fmt.Print(bot.MenuText(s.Status(), s.Menu()))
}

func serveMetrics(addr string, log *logrus.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.WithField("addr", addr).Info("metrics listening")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.WithError(err).Error("metrics server stopped")
	}
}
