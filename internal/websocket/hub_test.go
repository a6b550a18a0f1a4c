package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func startHub(t *testing.T) (*Hub, service.CartStore, context.CancelFunc, chan struct{}) {
	store := service.NewCartStore(nil)
	hub := NewHub(store)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	return hub, store, cancel, stopped
}

func dial(t *testing.T, hub *Hub) (*gorillaws.Conn, func()) {
	upgrader := gorillaws.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		hub.Serve(ws, 1)
	}))

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := gorillaws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)

	return conn, func() {
		conn.Close()
		server.Close()
	}
}

func readEvent(t *testing.T, conn *gorillaws.Conn) CartEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var event CartEvent
	require.NoError(t, json.Unmarshal(data, &event))
	return event
}

func TestHub_SendsStateAndAppliesActions(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, store, cancel, stopped := startHub(t)
	defer func() {
		cancel()
		<-stopped
	}()

	conn, closeConn := dial(t, hub)
	defer closeConn()

	initial := readEvent(t, conn)
	assert.Equal(t, EventCartState, initial.Type)
	assert.Empty(t, initial.Cart.Items)

	require.NoError(t, conn.WriteJSON(map[string]interface{}{
		"type":     "cart.add_item",
		"product":  map[string]interface{}{"id": "p1", "name": "Ring", "price": 10},
		"quantity": 2,
	}))

	updated := readEvent(t, conn)
	assert.Equal(t, EventCartUpdated, updated.Type)
	require.Len(t, updated.Cart.Items, 1)
	assert.Equal(t, 2, updated.Cart.ItemCount)
	assert.Equal(t, 20.0, updated.Cart.Total)
	assert.Equal(t, uint64(1), updated.Cart.Version)

	store.UpdateQuantity("p1", 0)
	removed := readEvent(t, conn)
	assert.Empty(t, removed.Cart.Items)
	assert.Equal(t, uint64(2), removed.Cart.Version)
}

func TestHub_IgnoresMalformedAndUnsupportedMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, store, cancel, stopped := startHub(t)
	defer func() {
		cancel()
		<-stopped
	}()

	client := &Client{UserID: 1, Send: make(chan []byte, 1)}
	hub.HandleClientMessage(client, []byte("{not json"))
	hub.HandleClientMessage(client, []byte(`{"type":"cart.hydrate"}`))
	hub.HandleClientMessage(client, []byte(`{"type":"order.create"}`))

	assert.Zero(t, store.GetState().Version)
}

func TestHub_RateLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, store, cancel, stopped := startHub(t)
	defer func() {
		cancel()
		<-stopped
	}()

	client := &Client{UserID: 1, Send: make(chan []byte, 1)}
	msg := []byte(`{"type":"cart.add_item","product":{"id":"p1","price":1}}`)
	for i := 0; i < maxMessagesPerSecond+5; i++ {
		hub.HandleClientMessage(client, msg)
	}

	assert.Equal(t, maxMessagesPerSecond, store.GetState().ItemCount)
}

func TestHub_StopsOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, store, cancel, stopped := startHub(t)
	conn, closeConn := dial(t, hub)
	defer closeConn()

	readEvent(t, conn)
	cancel()
	<-stopped

	// The hub closes the session; the peer sees a close frame.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	// Mutations after shutdown must not block on the stopped hub.
	store.AddItem(model.Product{ID: "p1", Price: 1}, 1)
	assert.Equal(t, 0, hub.SessionCount())
}

func TestHub_RegisterAfterStopClosesSend(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, _, cancel, stopped := startHub(t)
	cancel()
	<-stopped

	for i := 0; i < 20; i++ {
		client := &Client{UserID: 1, Send: make(chan []byte, 1)}
		hub.Register(client)

		select {
		case _, ok := <-client.Send:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("send channel was not closed after the hub stopped")
		}
	}
	assert.Equal(t, 0, hub.SessionCount())
}

func TestHub_DisconnectUser(t *testing.T) {
	defer goleak.VerifyNone(t)

	hub, _, cancel, stopped := startHub(t)
	defer func() {
		cancel()
		<-stopped
	}()

	conn, closeConn := dial(t, hub)
	defer closeConn()
	readEvent(t, conn)
	require.Equal(t, 1, hub.SessionCount())

	hub.DisconnectUser(1)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Equal(t, 0, hub.SessionCount())
}
