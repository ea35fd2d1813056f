package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"campaignhub/pkg/config"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module wires the redis-backed broker: an asynq client for publishing
// and a ServeMux for subscriptions. The consumer process adds Server.
var Module = fx.Module("broker",
	fx.Provide(
		registerClient,
		registerServeMux,
		registerInspector,
		New,
		providePublisher,
	),
)

// Producers only need the publish half of the broker.
func providePublisher(b Broker) Publisher {
	return b
}

// Server runs the asynq worker that drains the domain queues. Dead-letter
// queues are deliberately absent from the queue map so their messages sit
// in redis until inspected or replayed.
var Server = fx.Module("broker.server",
	fx.Invoke(registerServer),
)

func registerClient(lc fx.Lifecycle, cfg *config.Config) *asynq.Client {
	client := asynq.NewClient(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
	)

	if err := client.Ping(); err != nil {
		zap.L().Error("[Broker] Failed to connect to redis", zap.Error(err))
		os.Exit(1)
	}

	zap.L().Info("[Broker] Connected to redis", zap.String("addr", cfg.Redis.Addr))

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return client
}

func registerServeMux() *asynq.ServeMux {
	return asynq.NewServeMux()
}

func registerInspector(lc fx.Lifecycle, cfg *config.Config) *asynq.Inspector {
	inspector := asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return inspector.Close()
		},
	})

	return inspector
}

func registerServer(lc fx.Lifecycle, cfg *config.Config, mux *asynq.ServeMux) {
	queues := make(map[string]int, len(Queues()))
	for _, q := range Queues() {
		queues[q] = 1
	}

	server := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Broker.Concurrency,
			Queues:      queues,
			ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
				zap.L().Error("[Broker] handler failed, task archived for manual replay",
					zap.String("task_type", task.Type()), zap.Error(err))
			}),
		},
	)

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := server.Start(mux); err != nil {
					zap.L().Error("[Broker] Failed to start worker", zap.Error(err))
					os.Exit(1)
				}
			}()
			zap.L().Info("[Broker] Worker started", zap.Int("concurrency", cfg.Broker.Concurrency))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			server.Stop()
			return nil
		},
	})
}

// Asynq adapts the asynq client/mux pair to the Broker contract. One
// instance is provided at process start and borrowed per operation, so
// publishing never reopens a connection.
type Asynq struct {
	client    *asynq.Client
	mux       *asynq.ServeMux
	retention time.Duration
}

func New(client *asynq.Client, mux *asynq.ServeMux, cfg *config.Config) Broker {
	return &Asynq{
		client:    client,
		mux:       mux,
		retention: cfg.Broker.Retention,
	}
}

// taskType names the asynq task for a queue. One task type per queue keeps
// routing one-to-one between queues and handlers.
func taskType(queue string) string {
	return "queue:" + queue
}

func (b *Asynq) Publish(ctx context.Context, queue string, payload []byte, headers Headers) error {
	body, err := json.Marshal(envelope{Payload: payload, Headers: headers})
	if err != nil {
		return fmt.Errorf("marshal envelope: %w", err)
	}

	// MaxRetry 0: redelivery is owned by the retry policy, not asynq.
	_, err = b.client.EnqueueContext(ctx, asynq.NewTask(taskType(queue), body),
		asynq.Queue(queue),
		asynq.MaxRetry(0),
		asynq.Retention(b.retention),
	)
	if err != nil {
		return fmt.Errorf("enqueue to %s: %w", queue, err)
	}
	return nil
}

func (b *Asynq) Subscribe(queue string, h Handler) {
	b.mux.HandleFunc(taskType(queue), func(ctx context.Context, t *asynq.Task) error {
		var env envelope
		if err := json.Unmarshal(t.Payload(), &env); err != nil {
			return fmt.Errorf("decode envelope from %s: %w", queue, err)
		}
		return h(ctx, &Message{Queue: queue, Payload: env.Payload, Headers: env.Headers})
	})
}
