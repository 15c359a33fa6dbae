package main

import (
	"fmt"
	"os"

	"leapsail/auth/hasher"
	authservice "leapsail/auth/service"
	"leapsail/auth/storage/sqlite"
	"leapsail/internal/config"
	"leapsail/internal/logger"
	"leapsail/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Println(err.Error())
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.New()
	if err != nil {
		return err
	}
	log := logger.New()

	store, err := sqlite.New(log, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("closing auth storage")
		}
	}()

	authService, err := authservice.New(authservice.Config{
		Secret:     cfg.Auth.SessionSecret,
		Expiration: cfg.Auth.SessionTTL,
	}, store, store, hasher.NewBcrypt(), log)
	if err != nil {
		return err
	}

	server, err := web.New(cfg.Server, authService, log)
	if err != nil {
		return err
	}
	log.WithField("port", cfg.Server.Port).Info("server starting")
	return server.Serve()
}
