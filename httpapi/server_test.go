package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quillflow/agent-core/cancel"
	"github.com/quillflow/agent-core/session"
	"github.com/quillflow/agent-core/transcript"
)

func TestHandleCancel(t *testing.T) {
	reg := cancel.NewRegistry()
	reg.Create("op-1")
	srv := httptest.NewServer(NewServer(reg).Router())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/operations/op-1/cancel", "application/json",
		strings.NewReader(`{"reason":"user abort"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Cancelled bool `json:"cancelled"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Cancelled)

	// Second cancel is a no-op.
	resp2, err := http.Post(srv.URL+"/operations/op-1/cancel", "application/json", nil)
	require.NoError(t, err)
	defer resp2.Body.Close()
	require.NoError(t, json.NewDecoder(resp2.Body).Decode(&body))
	assert.False(t, body.Cancelled)
}

func TestHandleStatus(t *testing.T) {
	reg := cancel.NewRegistry()
	reg.Create("op-1")
	srv := httptest.NewServer(NewServer(reg).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/operations/op-1")
	require.NoError(t, err)
	defer resp.Body.Close()

	var body struct {
		Cancelled bool `json:"cancelled"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Cancelled)
}

func TestHandleEvents_UnknownSession(t *testing.T) {
	srv := httptest.NewServer(NewServer(cancel.NewRegistry()).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/sessions/nope/events")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandleEvents_StreamsUntilStatus(t *testing.T) {
	reg := cancel.NewRegistry()
	api := NewServer(reg)
	srv := httptest.NewServer(api.Router())
	defer srv.Close()

	events := make(chan session.Event, 4)
	events <- session.DeltaEvent{Delta: transcript.Delta{Text: "Hi"}}
	events <- session.StatusEvent{Status: session.StatusCompleted}
	close(events)
	api.RegisterSession("r1", events)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/sessions/r1/events"
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()
	ws.SetReadDeadline(time.Now().Add(5 * time.Second))

	var delta struct {
		Type string `json:"type"`
		Text string `json:"text"`
	}
	require.NoError(t, ws.ReadJSON(&delta))
	assert.Equal(t, "delta", delta.Type)
	assert.Equal(t, "Hi", delta.Text)

	var status struct {
		Type   string `json:"type"`
		Status string `json:"status"`
	}
	require.NoError(t, ws.ReadJSON(&status))
	assert.Equal(t, "status", status.Type)
	assert.Equal(t, "completed", status.Status)
}
