package sheetstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/kjannette/trahn-journal/internal/models"
	"github.com/kjannette/trahn-journal/internal/remotestore"
	"github.com/kjannette/trahn-journal/internal/repository"
	"github.com/kjannette/trahn-journal/internal/testutil"
)

// HandlerSuite drives the handler through the real client, so the wire
// contract is checked from both ends.
type HandlerSuite struct {
	suite.Suite
	newRows func(t *testing.T) RowStore
	handler *Handler
	srv     *httptest.Server
	client  *remotestore.Client
	ctx     context.Context
}

func TestHandlerMemory(t *testing.T) {
	suite.Run(t, &HandlerSuite{newRows: func(*testing.T) RowStore { return NewMemoryRows() }})
}

func TestHandlerSQLite(t *testing.T) {
	suite.Run(t, &HandlerSuite{newRows: func(t *testing.T) RowStore {
		repo, err := repository.OpenSQLite(filepath.Join(t.TempDir(), "journal.db"), nil)
		require.NoError(t, err)
		t.Cleanup(func() { repo.Close() })
		return repo
	}})
}

func (s *HandlerSuite) SetupTest() {
	s.handler = NewHandler(s.newRows(s.T()), 50*time.Millisecond, nil)
	s.srv = httptest.NewServer(s.handler)
	s.client = remotestore.New(remotestore.Config{Endpoint: s.srv.URL, Timeout: 2 * time.Second})
	s.ctx = context.Background()
}

func (s *HandlerSuite) TearDownTest() {
	s.srv.Close()
}

func (s *HandlerSuite) TestEmptyList() {
	trades, err := s.client.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(trades)
}

func (s *HandlerSuite) TestAddThenList() {
	tr := testutil.Trade(1718000000000, "2024-06-10")
	tr.Notes = "first, with comma"

	ack, err := s.client.Add(s.ctx, tr)
	s.Require().NoError(err)
	s.Equal("Trade added successfully", ack.Message)
	s.Require().NotNil(ack.Trade)
	s.Equal(tr, *ack.Trade)

	trades, err := s.client.List(s.ctx)
	s.Require().NoError(err)
	s.Equal([]models.Trade{tr}, trades)
}

func (s *HandlerSuite) TestUpdate() {
	tr := testutil.Trade(7, "2024-06-10")
	_, err := s.client.Add(s.ctx, tr)
	s.Require().NoError(err)

	tr.CEExitPrice = 42.5
	ack, err := s.client.Update(s.ctx, tr)
	s.Require().NoError(err)
	s.Equal("Trade updated successfully", ack.Message)

	trades, _ := s.client.List(s.ctx)
	s.Require().Len(trades, 1)
	s.Equal(42.5, trades[0].CEExitPrice)
}

func (s *HandlerSuite) TestUpdateMissing() {
	_, err := s.client.Update(s.ctx, testutil.Trade(404, "2024-06-10"))
	s.ErrorIs(err, remotestore.ErrRemote)
	s.Contains(err.Error(), "Trade not found for update")
}

func (s *HandlerSuite) TestDelete() {
	_, err := s.client.Add(s.ctx, testutil.Trade(1, "2024-06-10"))
	s.Require().NoError(err)
	_, err = s.client.Add(s.ctx, testutil.Trade(2, "2024-06-11"))
	s.Require().NoError(err)

	ack, err := s.client.Delete(s.ctx, 1)
	s.Require().NoError(err)
	s.Equal("Trade deleted successfully", ack.Message)

	trades, _ := s.client.List(s.ctx)
	s.Require().Len(trades, 1)
	s.Equal(int64(2), trades[0].ID)

	_, err = s.client.Delete(s.ctx, 1)
	s.ErrorIs(err, remotestore.ErrRemote)
	s.Contains(err.Error(), "Trade not found for deletion")
}

func (s *HandlerSuite) TestInvalidAction() {
	resp, err := http.Post(s.srv.URL, "text/plain;charset=utf-8", strings.NewReader(`{"action":"archive"}`))
	s.Require().NoError(err)
	defer resp.Body.Close()
	s.Equal(http.StatusOK, resp.StatusCode)

	var ack remotestore.Ack
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&ack))
	s.Equal("error", ack.Status)
	s.Equal("Invalid action", ack.Message)
}

func (s *HandlerSuite) TestLockTimeout() {
	s.Require().NoError(s.handler.lock.Acquire(s.ctx, 1))
	defer s.handler.lock.Release(1)

	_, err := s.client.Add(s.ctx, testutil.Trade(1, "2024-06-10"))
	s.ErrorIs(err, remotestore.ErrRemote)
	s.Contains(err.Error(), ErrLockTimeout.Error())

	trades, err := s.client.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(trades)
}

func TestHandler_SkipsMalformedRows(t *testing.T) {
	rows := NewMemoryRows()
	ctx := context.Background()
	require.NoError(t, rows.Append(ctx, testutil.Trade(1, "2024-06-10").Row()))
	require.NoError(t, rows.Append(ctx, []string{"2", "2024-06-10", "x"}))

	srv := httptest.NewServer(NewHandler(rows, time.Second, nil))
	defer srv.Close()

	trades, err := remotestore.New(remotestore.Config{Endpoint: srv.URL}).List(ctx)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, int64(1), trades[0].ID)
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	rr := httptest.NewRecorder()
	NewHandler(NewMemoryRows(), time.Second, nil).ServeHTTP(rr, httptest.NewRequest(http.MethodPut, "/", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestMemoryRows_RemoveTakesLastMatch(t *testing.T) {
	rows := NewMemoryRows()
	ctx := context.Background()
	rows.Append(ctx, []string{"5", "first"})
	rows.Append(ctx, []string{"5.0", "second"})

	ok, err := rows.Remove(ctx, 5)
	require.NoError(t, err)
	assert.True(t, ok)

	got, _ := rows.Rows(ctx)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0][1])
}
