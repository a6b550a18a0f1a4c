package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ikkim/storefront-cart/internal/app/model"
	"github.com/ikkim/storefront-cart/internal/app/service"
	"github.com/ikkim/storefront-cart/pkg/logger"
)

const (
	// Rate limiting: 최대 메시지 수 (1초당)
	maxMessagesPerSecond = 10

	EventCartUpdated = "cart.updated"
	EventCartState   = "cart.state"
)

// CartEvent 클라이언트로 보내는 장바구니 이벤트
type CartEvent struct {
	Type string          `json:"type"`
	Cart model.CartState `json:"cart"`
}

// Client WebSocket 클라이언트
type Client struct {
	ID            string
	Hub           *Hub
	Conn          *Conn
	UserID        uint
	Send          chan []byte
	MessageCount  int       // 최근 1초간 받은 메시지 수
	LastResetTime time.Time // 마지막 카운터 리셋 시간
	RateMu        sync.Mutex
}

func NewClient(hub *Hub, conn *Conn, userID uint) *Client {
	return &Client{
		ID:     uuid.NewString(),
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, 256),
	}
}

// Hub WebSocket 연결 관리자. 장바구니 변경을 모든 세션에 전달하고
// 클라이언트가 보낸 장바구니 액션을 store에 dispatch 함
type Hub struct {
	store service.CartStore

	// 등록된 클라이언트들 (UserID -> []*Client - 멀티 디바이스 지원)
	clients map[uint][]*Client

	register   chan *Client
	unregister chan *Client
	disconnect chan uint
	broadcast  chan []byte

	// Run 종료 시 닫힘
	done chan struct{}

	mu sync.RWMutex
}

// NewHub Hub 생성
func NewHub(store service.CartStore) *Hub {
	return &Hub{
		store:      store,
		clients:    make(map[uint][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client, 256),
		disconnect: make(chan uint),
		broadcast:  make(chan []byte, 1024),
		done:       make(chan struct{}),
	}
}

// Run Hub 실행. ctx가 취소되면 모든 클라이언트를 닫고 반환함
func (h *Hub) Run(ctx context.Context) {
	unsubscribe := h.store.Subscribe(h.BroadcastCart)
	defer func() {
		unsubscribe()
		h.shutdown()
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			sessions := len(h.clients[client.UserID])
			h.mu.Unlock()

			logger.Info("WebSocket client registered", map[string]interface{}{
				"user_id":        client.UserID,
				"client_id":      client.ID,
				"total_sessions": sessions,
			})

			// 새 세션에 현재 상태 전송
			if data, err := encodeEvent(EventCartState, h.store.GetState()); err == nil {
				client.Send <- data
			}

		case client := <-h.unregister:
			h.mu.Lock()
			h.removeClient(client)
			remaining := len(h.clients[client.UserID])
			h.mu.Unlock()

			logger.Info("WebSocket client unregistered", map[string]interface{}{
				"user_id":            client.UserID,
				"client_id":          client.ID,
				"remaining_sessions": remaining,
			})

		case userID := <-h.disconnect:
			h.mu.Lock()
			clientList := append([]*Client(nil), h.clients[userID]...)
			for _, client := range clientList {
				h.removeClient(client)
			}
			h.mu.Unlock()

			logger.Info("WebSocket sessions closed for user", map[string]interface{}{
				"user_id":  userID,
				"sessions": len(clientList),
			})

		case message := <-h.broadcast:
			h.mu.Lock()
			var slow []*Client
			for _, clientList := range h.clients {
				for _, client := range clientList {
					select {
					case client.Send <- message:
					default:
						slow = append(slow, client)
					}
				}
			}
			for _, client := range slow {
				logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
					"user_id":   client.UserID,
					"client_id": client.ID,
				})
				h.removeClient(client)
			}
			h.mu.Unlock()
		}
	}
}

// removeClient 클라이언트를 목록에서 제거하고 Send 채널을 닫음. h.mu를 잡은 상태에서 호출
func (h *Hub) removeClient(client *Client) {
	clientList, ok := h.clients[client.UserID]
	if !ok {
		return
	}

	newList := make([]*Client, 0, len(clientList))
	found := false
	for _, c := range clientList {
		if c == client {
			found = true
			continue
		}
		newList = append(newList, c)
	}
	if !found {
		return
	}

	if len(newList) == 0 {
		delete(h.clients, client.UserID)
	} else {
		h.clients[client.UserID] = newList
	}
	close(client.Send)
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for userID, clientList := range h.clients {
		for _, client := range clientList {
			close(client.Send)
		}
		delete(h.clients, userID)
	}
	logger.Info("WebSocket hub stopped")
}

// BroadcastCart 변경된 장바구니를 모든 세션에 전송. store listener로 등록됨
func (h *Hub) BroadcastCart(state model.CartState) {
	data, err := encodeEvent(EventCartUpdated, state)
	if err != nil {
		logger.Error("Failed to marshal cart event", err)
		return
	}

	select {
	case h.broadcast <- data:
	default:
		// 클라이언트는 version으로 누락을 감지하고 GET /cart로 다시 읽음
		logger.Warn("Broadcast channel full, cart event dropped", map[string]interface{}{
			"version": state.Version,
		})
	}
}

func encodeEvent(eventType string, state model.CartState) ([]byte, error) {
	return json.Marshal(CartEvent{Type: eventType, Cart: state})
}

// Register 클라이언트 등록. register는 버퍼가 없으므로 Run이 받지 않으면
// 종료된 hub로 판단하고 Send를 닫음
func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		close(client.Send)
	}
}

// Unregister 클라이언트 등록 해제
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// DisconnectUser 사용자의 모든 세션을 닫음. 장바구니 소유권이 해제될 때 호출됨
func (h *Hub) DisconnectUser(userID uint) {
	select {
	case h.disconnect <- userID:
	case <-h.done:
	}
}

// SessionCount 연결된 세션 수
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	n := 0
	for _, clientList := range h.clients {
		n += len(clientList)
	}
	return n
}

// HandleClientMessage 클라이언트 메시지 처리
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	// Rate limiting 체크
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		// 1초가 지났으면 카운터 리셋
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"user_id": client.UserID,
			"count":   count,
		})
		return
	}

	var action service.Action
	if err := json.Unmarshal(message, &action); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"user_id": client.UserID,
			"error":   err.Error(),
		})
		return
	}

	switch action.Type {
	case service.ActionAddItem, service.ActionRemoveItem, service.ActionUpdateQuantity, service.ActionClear:
	default:
		logger.Warn("Unsupported client action", map[string]interface{}{
			"user_id": client.UserID,
			"type":    action.Type,
		})
		return
	}

	// 변경 결과는 store listener(BroadcastCart)를 통해 전달됨
	h.store.Dispatch(action)
}
