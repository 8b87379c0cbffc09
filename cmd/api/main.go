package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sartainstudios/authentication-api/internal/authn"
	"github.com/sartainstudios/authentication-api/internal/config"
	"github.com/sartainstudios/authentication-api/internal/httpapi"
	"github.com/sartainstudios/authentication-api/internal/obs"
	"github.com/sartainstudios/authentication-api/internal/token"
	"github.com/sartainstudios/authentication-api/internal/user/remote"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	log := obs.Logger()

	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Error("load config", "error", err)
		os.Exit(1)
	}

	directory, err := remote.New(cfg.Directory.BaseURL, remote.WithTimeout(cfg.Directory.Timeout))
	if err != nil {
		log.Error("build directory client", "error", err)
		os.Exit(1)
	}

	issuer, err := token.NewIssuer(cfg.Auth.Secret, cfg.Auth.TokenTTL,
		token.WithIssuerName(cfg.Auth.Issuer))
	if err != nil {
		log.Error("build token issuer", "error", err)
		os.Exit(1)
	}

	svc, err := authn.NewService(directory, issuer)
	if err != nil {
		log.Error("build authentication service", "error", err)
		os.Exit(1)
	}

	api := httpapi.New(httpapi.Options{
		Authn:        svc,
		Issuer:       issuer,
		ReadyProbe:   httpapi.ReadyProbe{Directory: directory, Issuer: issuer},
		Version:      version,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Info("starting authentication-api",
		"version", version,
		"addr", srv.Addr,
		"token_ttl", issuer.TTL().String(),
	)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	log.Info("stopped")
}
