package feed

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-security-token/internal/domain"
	"solana-security-token/internal/observability"
)

func dial(t *testing.T, server *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + query
	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(wsURL, nil)
	require.NoError(t, err)
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_BroadcastsWithMintFilter(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()
	defer hub.Close()

	all := dial(t, server, "")
	defer all.Close()
	onlyMint2 := dial(t, server, "?mint=mint2")
	defer onlyMint2.Close()
	waitForClients(t, hub, 2)

	err := hub.Publish(context.Background(), []*domain.AuditEvent{
		{ID: "e1", Mint: "mint1", Operation: "pause", Outcome: "ok"},
		{ID: "e2", Mint: "mint2", Operation: "create_holder", Outcome: "ok"},
	})
	require.NoError(t, err)

	read := func(conn *websocket.Conn) Message {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var m Message
		require.NoError(t, json.Unmarshal(data, &m))
		return m
	}

	assert.Equal(t, "e1", read(all).ID)
	assert.Equal(t, "e2", read(all).ID)

	got := read(onlyMint2)
	assert.Equal(t, "e2", got.ID)
	assert.Equal(t, "create_holder", got.Operation)
}

func TestHub_ClientLeaves(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server, "")
	waitForClients(t, hub, 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(observability.DefaultMetrics.FeedSubscribers))

	conn.Close()
	waitForClients(t, hub, 0)
	assert.Equal(t, 0.0, testutil.ToFloat64(observability.DefaultMetrics.FeedSubscribers))
}

func TestHub_CloseRefusesNewSubscribers(t *testing.T) {
	hub := NewHub()
	server := httptest.NewServer(hub)
	defer server.Close()

	conn := dial(t, server, "")
	defer conn.Close()
	waitForClients(t, hub, 1)

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())

	late := dial(t, server, "")
	defer late.Close()
	late.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, _, err := late.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
