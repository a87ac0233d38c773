package internal

import (
	"chat-relay/domain"
	"chat-relay/mocks"
	"chat-relay/observability"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func get(t *testing.T, handler http.Handler, target string) (int, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	body, err := io.ReadAll(rec.Result().Body)
	require.NoError(t, err)
	return rec.Code, string(body)
}

func TestDebugHandler_Metrics(t *testing.T) {
	req := require.New(t)
	metrics := observability.NewRoomMetrics("lobby")
	metrics.Accepted()
	handler := NewDebugHandler(logs.GetLoggerFromLevel(slog.LevelDebug), "lobby", metrics.Registry(), nil, 10)

	code, body := get(t, handler, "/metrics")

	req.Equal(http.StatusOK, code)
	req.Contains(body, `chat_relay_connections_accepted_total{room="lobby"} 1`)
}

func TestDebugHandler_History(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	history := mocks.NewMockIHistoryRepository(ctrl)
	handler := NewDebugHandler(logs.GetLoggerFromLevel(slog.LevelDebug), "lobby",
		observability.NewRoomMetrics("lobby").Registry(), history, 10)

	// Given one recorded frame
	history.EXPECT().GetRecords("lobby", 5).Return([]domain.Record{{
		ID:      uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8"),
		Room:    "lobby",
		Author:  "alice",
		Payload: []byte("[alice] hello\n"),
		At:      time.Date(2026, 1, 2, 15, 4, 5, 0, time.UTC),
	}}, nil)

	// When the last five are asked for
	code, body := get(t, handler, "/history?limit=5")

	// Then the frame is listed
	req.Equal(http.StatusOK, code)
	req.Contains(body, "6ba7b810")
	req.Contains(body, "alice")
	req.Contains(body, `"[alice] hello\n"`)
	req.Contains(body, "15:04:05.000")
}

func TestDebugHandler_History_Errors(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	registry := observability.NewRoomMetrics("lobby").Registry()

	code, _ := get(t, NewDebugHandler(log, "lobby", registry, nil, 10), "/history")
	req.Equal(http.StatusNotFound, code)

	ctrl := gomock.NewController(t)
	history := mocks.NewMockIHistoryRepository(ctrl)
	code, _ = get(t, NewDebugHandler(log, "lobby", registry, history, 10), "/history?limit=-1")
	req.Equal(http.StatusBadRequest, code)
}

func TestDebugHandler_History_Is_Capped(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	history := mocks.NewMockIHistoryRepository(ctrl)
	handler := NewDebugHandler(logs.GetLoggerFromLevel(slog.LevelDebug), "lobby",
		observability.NewRoomMetrics("lobby").Registry(), history, 10)

	// Then neither everything nor more than the limit is ever looked up
	history.EXPECT().GetRecords("lobby", 10).Return(nil, nil).Times(2)

	code, _ := get(t, handler, "/history?limit=0")
	req.Equal(http.StatusOK, code)
	code, _ = get(t, handler, "/history?limit=500")
	req.Equal(http.StatusOK, code)
}
