package main

import (
	"context"
	"fmt"
	"os"

	"github.com/vaultline/securesession/internal/config"
	"github.com/vaultline/securesession/internal/logging"
	"github.com/vaultline/securesession/pkg/identity"
	"github.com/vaultline/securesession/pkg/session"
)

// newLogger opens cfg.OutputFile (or stdout, if empty) and returns a
// logger tagged with component, plus a closer the caller must defer.
func newLogger(component string, cfg config.LoggingConfig) (*logging.Logger, func() error, error) {
	if cfg.OutputFile == "" {
		return logging.New(component, logging.ParseLevel(cfg.Level), os.Stdout), func() error { return nil }, nil
	}

	f, err := os.OpenFile(cfg.OutputFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file %s: %w", cfg.OutputFile, err)
	}
	return logging.New(component, logging.ParseLevel(cfg.Level), f), f.Close, nil
}

// dataTransport is the common shape every pkg/transport/* package
// exposes; it is exactly what a session.Callbacks bundle needs for
// SendData/ReceiveData.
type dataTransport interface {
	SendData(frame []byte) error
	ReceiveData() ([]byte, error)
	Close() error
}

func buildRegistry(cfg config.RegistryConfig) (identity.Registry, func() error, error) {
	switch cfg.Backend {
	case "memory":
		reg := identity.NewMemoryRegistry()
		return reg, func() error { return nil }, nil

	case "postgres":
		reg, err := identity.NewPostgresRegistry(identity.PostgresConfig{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build postgres registry: %w", err)
		}
		return reg, reg.Close, nil

	case "redis":
		reg, err := identity.NewRedisRegistry(identity.RedisConfig{
			Host:     cfg.Redis.Host,
			Port:     cfg.Redis.Port,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			TTL:      cfg.Redis.TTL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build redis registry: %w", err)
		}
		return reg, reg.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown registry backend %q", cfg.Backend)
	}
}

// registerPeer is a memory-backend-friendly helper: it upserts id's
// signing public key so a two-node demo doesn't need an external
// provisioning step. Persistent backends accept the same call as an
// ordinary upsert.
func registerPeer(reg identity.Registry, id, signPubKey []byte) error {
	switch r := reg.(type) {
	case *identity.MemoryRegistry:
		r.Register(id, signPubKey)
		return nil
	case *identity.PostgresRegistry:
		return r.Register(id, signPubKey)
	case *identity.RedisRegistry:
		return r.Register(context.Background(), id, signPubKey)
	default:
		return fmt.Errorf("registry type %T does not support direct registration", reg)
	}
}

func callbacksFor(t dataTransport, reg identity.Registry, log *logging.Logger) session.Callbacks {
	return session.Callbacks{
		SendData:    t.SendData,
		ReceiveData: t.ReceiveData,
		GetPublicKeyForID: func(id []byte) ([]byte, error) {
			return reg.Lookup(id)
		},
		StateChanged: func(event session.StateEvent) {
			if event == session.EventEstablished {
				log.Info("session established")
			}
		},
	}
}

// driveHandshake pumps Receive until the session reaches Established,
// per the core's documented contract that handshake progress is driven
// entirely by repeated Receive calls.
func driveHandshake(sess *session.Session) error {
	var discard [0]byte
	for sess.State() != session.Established {
		if _, err := sess.Receive(discard[:]); err != nil {
			return fmt.Errorf("handshake: %w", err)
		}
	}
	return nil
}
