package websocket

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"backoffice/core/dataset"
	"backoffice/core/emitter"
	"backoffice/core/logger"
	"backoffice/core/router"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDatasetEventsReachClients(t *testing.T) {
	r := router.New()
	em := emitter.New()
	hub := InitWebSocketModule(r.Group("/api"), em, logger.Nop())
	t.Cleanup(hub.Close)

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	require.Eventually(t, func() bool { return hub.ClientCount() == 1 }, 2*time.Second, 10*time.Millisecond)

	em.Emit(dataset.EventReplaced, dataset.ChangeEvent{Event: dataset.EventReplaced, Tag: "booking", Version: 3, Count: 12})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"dataset.replaced","tag":"booking","version":3,"count":12}`, string(msg))
}

func TestCloseDisconnectsClients(t *testing.T) {
	hub := NewHub(nil)
	go hub.Run()
	hub.Close()
	hub.Close()
	hub.Broadcast([]byte("ignored"))
	assert.Equal(t, 0, hub.ClientCount())
}
