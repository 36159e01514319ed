package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/angelmondragon/siver-b2b-backend/pkg/config"
	"github.com/angelmondragon/siver-b2b-backend/pkg/logger"
)

type pinger interface {
	Ping(ctx context.Context) error
}

type runner interface {
	Run(ctx context.Context) error
}

type ServiceParams struct {
	Config   *config.Config
	Logger   *logger.Logger
	DB       pinger
	Redis    pinger
	PubSub   pinger
	Consumer runner
}

// Service hosts the background consumers once their dependencies respond.
type Service struct {
	cfg      *config.Config
	logg     *logger.Logger
	deps     []namedPinger
	consumer runner
}

type namedPinger struct {
	name string
	ping pinger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Config == nil {
		return nil, errors.New("config is required")
	}
	if params.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if params.DB == nil {
		return nil, errors.New("database client is required")
	}
	if params.Redis == nil {
		return nil, errors.New("redis client is required")
	}
	if params.PubSub == nil {
		return nil, errors.New("pubsub client is required")
	}
	if params.Consumer == nil {
		return nil, errors.New("catalog release consumer is required")
	}

	return &Service{
		cfg:  params.Config,
		logg: params.Logger,
		deps: []namedPinger{
			{name: "database", ping: params.DB},
			{name: "redis", ping: params.Redis},
			{name: "pubsub", ping: params.PubSub},
		},
		consumer: params.Consumer,
	}, nil
}

func (s *Service) ensureReadiness(ctx context.Context) error {
	for _, dep := range s.deps {
		if err := dep.ping.Ping(ctx); err != nil {
			s.logg.Error(ctx, fmt.Sprintf("%s ping failed", dep.name), err)
			return fmt.Errorf("%s ping failed: %w", dep.name, err)
		}
	}
	s.logg.Info(ctx, "all worker dependencies are ready")
	return nil
}

func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if err := s.ensureReadiness(ctx); err != nil {
		return err
	}

	err := s.consumer.Run(ctx)
	switch {
	case err == nil, errors.Is(err, context.Canceled):
		s.logg.Info(ctx, "worker context canceled")
		return ctx.Err()
	default:
		s.logg.Error(ctx, "consumer stopped unexpectedly", err)
		return err
	}
}
