// Package storeobs wraps a journal.Store with tracing and logging.
package storeobs

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/kjannette/trahn-journal/internal/journal"
	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/remotestore"
	"github.com/kjannette/trahn-journal/internal/tracing"
)

type observableStore struct {
	store journal.Store
	log   *zap.Logger
}

var _ journal.Store = (*observableStore)(nil)

func Wrap(store journal.Store, log *zap.Logger) journal.Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &observableStore{store: store, log: log.Named("store")}
}

func (o *observableStore) List(ctx context.Context) ([]models.Trade, error) {
	ctx, span := tracing.StartSpan(ctx, "store.List")
	defer span.End()

	trades, err := o.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.log.Error("list trades failed", zap.Error(err))
		return nil, err
	}

	span.SetAttributes(attribute.Int("trades.count", len(trades)))
	o.log.Debug("listed trades", zap.Int("count", len(trades)))
	return trades, nil
}

func (o *observableStore) Add(ctx context.Context, t models.Trade) (remotestore.Ack, error) {
	return o.mutate(ctx, "store.Add", t.ID, func(ctx context.Context) (remotestore.Ack, error) {
		return o.store.Add(ctx, t)
	})
}

func (o *observableStore) Update(ctx context.Context, t models.Trade) (remotestore.Ack, error) {
	return o.mutate(ctx, "store.Update", t.ID, func(ctx context.Context) (remotestore.Ack, error) {
		return o.store.Update(ctx, t)
	})
}

func (o *observableStore) Delete(ctx context.Context, id int64) (remotestore.Ack, error) {
	return o.mutate(ctx, "store.Delete", id, func(ctx context.Context) (remotestore.Ack, error) {
		return o.store.Delete(ctx, id)
	})
}

func (o *observableStore) mutate(ctx context.Context, name string, id int64, call func(context.Context) (remotestore.Ack, error)) (remotestore.Ack, error) {
	ctx, span := tracing.StartSpan(ctx, name)
	defer span.End()
	span.SetAttributes(attribute.Int64("trade.id", id))

	ack, err := call(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		o.log.Error("store call failed", zap.String("call", name), zap.Int64("id", id), zap.Error(err))
		return ack, err
	}

	o.log.Info("store call succeeded", zap.String("call", name), zap.Int64("id", id), zap.String("message", ack.Message))
	return ack, nil
}
