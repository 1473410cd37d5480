package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-identity-gateway/auth"
	"github.com/jrsteele09/go-identity-gateway/autherr"
	"github.com/jrsteele09/go-identity-gateway/internal/config"
	"github.com/jrsteele09/go-identity-gateway/provider"
	"github.com/jrsteele09/go-identity-gateway/provider/hosted"
	"github.com/jrsteele09/go-identity-gateway/provider/oidcp"
	"github.com/jrsteele09/go-identity-gateway/server"
	"github.com/jrsteele09/go-identity-gateway/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("recovered from panic")
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return errors.Wrap(err, "config.New")
	}

	logger := newLogger(c)
	displayAppname(c.GetAppName())

	providerClient, err := newProviderClient(c)
	if err != nil {
		return errors.Wrap(err, "newProviderClient")
	}

	translator := autherr.NewTranslator(logger)
	sessions, err := session.NewManager(session.NewInMemoryRepo(), providerClient, translator, logger)
	if err != nil {
		return errors.Wrap(err, "session.NewManager")
	}

	authService, err := auth.NewService(auth.Deps{
		Provider:   providerClient,
		Sessions:   sessions,
		Translator: translator,
	}, c, logger)
	if err != nil {
		return errors.Wrap(err, "auth.NewService")
	}

	srv, err := server.New(c, authService, logger)
	if err != nil {
		return errors.Wrap(err, "server.New")
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: srv}
	go listenAndServe(httpServer, logger)
	waitForStopSignal()
	return shutdown(httpServer)
}

func newLogger(c config.Config) zerolog.Logger {
	if c.GetEnv() == "DEV" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}

func newProviderClient(c config.Config) (provider.Client, error) {
	switch c.GetProviderKind() {
	case config.ProviderOIDC:
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return oidcp.New(ctx, oidcp.Config{
			IssuerURL:       c.GetOIDCIssuerURL(),
			ClientID:        c.GetOIDCClientID(),
			ClientSecret:    c.GetOIDCClientSecret(),
			RegistrationURL: c.GetOIDCRegistrationURL(),
		})
	case config.ProviderHosted:
		return hosted.New(
			c.GetHostedIssuer(),
			c.GetHostedSigningSecret(),
			hosted.WithAccessTokenTTL(c.GetAccessTokenTTL()),
		), nil
	}
	return nil, errors.Errorf("unknown provider kind %q", c.GetProviderKind())
}

func listenAndServe(server *http.Server, logger zerolog.Logger) {
	logger.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("server.ListenAndServe")
	}
}

func waitForStopSignal() {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return errors.Wrap(err, "server.Shutdown")
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
