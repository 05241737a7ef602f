package observability

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "feedgate"

var (
	metricsOnce    sync.Once
	accessCounter  metric.Int64Counter
	authCounter    metric.Int64Counter
	repoCounter    metric.Int64Counter
	cacheCounter   metric.Int64Counter
	publishCounter metric.Int64Counter
)

func initCounters() {
	metricsOnce.Do(func() {
		meter := otel.Meter(meterName)
		if c, err := meter.Int64Counter("access.decisions"); err == nil {
			accessCounter = c
		}
		if c, err := meter.Int64Counter("auth.events"); err == nil {
			authCounter = c
		}
		if c, err := meter.Int64Counter("repository.operations"); err == nil {
			repoCounter = c
		}
		if c, err := meter.Int64Counter("cache.operations"); err == nil {
			cacheCounter = c
		}
		if c, err := meter.Int64Counter("realtime.publishes"); err == nil {
			publishCounter = c
		}
	})
}

// RecordAccessDecision counts mediator outcomes per gate and credential
// source (cookie, bearer, query, none).
func RecordAccessDecision(ctx context.Context, gate, outcome, source string) {
	initCounters()
	if accessCounter == nil {
		return
	}
	accessCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("gate", gate),
		attribute.String("outcome", outcome),
		attribute.String("source", source),
	))
}

func RecordAuthEvent(ctx context.Context, operation, outcome string) {
	initCounters()
	if authCounter == nil {
		return
	}
	authCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordRepositoryOperation(ctx context.Context, entity, operation, outcome string) {
	initCounters()
	if repoCounter == nil {
		return
	}
	repoCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("entity", entity),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordCacheOperation(ctx context.Context, store, operation, outcome string) {
	initCounters()
	if cacheCounter == nil {
		return
	}
	cacheCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("store", store),
		attribute.String("operation", operation),
		attribute.String("outcome", outcome),
	))
}

func RecordRealtimePublish(ctx context.Context, outcome string) {
	initCounters()
	if publishCounter == nil {
		return
	}
	publishCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
