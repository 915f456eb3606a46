package push

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotrader/internal/engine"
	"autotrader/internal/logger"
)

func TestHubBroadcastsBusEvents(t *testing.T) {
	bus := engine.NewBus()
	hub := NewHub(bus, logger.NewNop())
	go hub.Run()
	defer hub.Stop()

	srv := httptest.NewServer(hub)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server a moment to register the client.
	time.Sleep(50 * time.Millisecond)

	bus.Publish(engine.Event{Type: engine.EventRuleTriggered, UserID: "u1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got engine.Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, engine.EventRuleTriggered, got.Type)
	assert.Equal(t, "u1", got.UserID)
}
