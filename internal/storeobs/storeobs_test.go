package storeobs

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/remotestore"
	"github.com/kjannette/trahn-journal/internal/tracing"
	"github.com/kjannette/trahn-journal/mocks"
)

func TestWrap_PassesThroughAndLogs(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockStore(ctrl)
	core, logs := observer.New(zap.DebugLevel)
	store := Wrap(inner, zap.New(core))

	inner.EXPECT().List(gomock.Any()).Return([]models.Trade{{ID: 1}}, nil)
	inner.EXPECT().Delete(gomock.Any(), int64(1)).Return(remotestore.Ack{Status: "success", Message: "Trade deleted successfully"}, nil)

	trades, err := store.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, trades, 1)

	ack, err := store.Delete(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "success", ack.Status)

	assert.Equal(t, 1, logs.FilterMessage("listed trades").Len())
	assert.Equal(t, 1, logs.FilterMessage("store call succeeded").Len())
}

func TestWrap_ErrorsAreReturnedUnchanged(t *testing.T) {
	ctrl := gomock.NewController(t)
	inner := mocks.NewMockStore(ctrl)
	core, logs := observer.New(zap.DebugLevel)
	store := Wrap(inner, zap.New(core))

	boom := &remotestore.RemoteError{Message: "Trade not found for update"}
	inner.EXPECT().Update(gomock.Any(), gomock.Any()).Return(remotestore.Ack{Status: "error"}, boom)

	_, err := store.Update(context.Background(), models.Trade{ID: 7})
	assert.True(t, errors.Is(err, remotestore.ErrRemote))
	assert.Equal(t, 1, logs.FilterMessage("store call failed").Len())
}

func TestWrap_RecordsSpans(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, tracing.Init(true, &buf))
	t.Cleanup(func() { tracing.Shutdown(context.Background()) })

	ctrl := gomock.NewController(t)
	inner := mocks.NewMockStore(ctrl)
	inner.EXPECT().Add(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ models.Trade) (remotestore.Ack, error) {
			_, ok := tracing.TraceID(ctx)
			assert.True(t, ok)
			return remotestore.Ack{Status: "success"}, nil
		})

	_, err := Wrap(inner, nil).Add(context.Background(), models.Trade{ID: 3})
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "store.Add")
}
