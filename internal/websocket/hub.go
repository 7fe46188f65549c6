package websocket

import (
	"encoding/json"
	"sync"

	"github.com/tagreview/tagreview-backend/pkg/logger"
)

// Client 매장 실시간 피드 구독자 (가맹점 대시보드 탭 하나)
type Client struct {
	Hub       *Hub
	Conn      *Conn
	CompanyID string
	Send      chan []byte
}

// NewClient creates a feed client with a buffered send queue.
func NewClient(hub *Hub, conn *Conn, companyID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		CompanyID: companyID,
		Send:      make(chan []byte, 256),
	}
}

// Hub WebSocket 연결 관리자 (CompanyID 별 구독자 목록)
type Hub struct {
	// 등록된 클라이언트들 (CompanyID -> []*Client - 여러 탭 지원)
	clients map[string][]*Client

	register   chan *Client
	unregister chan *Client
	broadcast  chan *BroadcastMessage

	mu sync.RWMutex
}

// BroadcastMessage 매장 단위 브로드캐스트 메시지
type BroadcastMessage struct {
	CompanyID string
	Message   []byte
}

// NewHub Hub 생성
func NewHub() *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
	}
}

// Run Hub 실행
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.CompanyID] = append(h.clients[client.CompanyID], client)
			total := len(h.clients[client.CompanyID])
			h.mu.Unlock()
			logger.Info("Feed client registered", map[string]interface{}{
				"company_id":     client.CompanyID,
				"total_sessions": total,
			})

		case client := <-h.unregister:
			h.removeClient(client)

		case message := <-h.broadcast:
			h.deliver(message)
		}
	}
}

func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clientList, ok := h.clients[client.CompanyID]
	if !ok {
		return
	}

	newList := make([]*Client, 0, len(clientList))
	removed := false
	for _, c := range clientList {
		if c == client {
			removed = true
			continue
		}
		newList = append(newList, c)
	}
	if !removed {
		return
	}

	if len(newList) == 0 {
		delete(h.clients, client.CompanyID)
	} else {
		h.clients[client.CompanyID] = newList
	}
	close(client.Send)

	logger.Info("Feed client unregistered", map[string]interface{}{
		"company_id":         client.CompanyID,
		"remaining_sessions": len(newList),
	})
}

func (h *Hub) deliver(message *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, client := range h.clients[message.CompanyID] {
		select {
		case client.Send <- message.Message:
		default:
			// Send 채널이 막혀있음 - 비동기로 정리
			go h.Unregister(client)
			logger.Warn("Feed client send buffer full, disconnecting", map[string]interface{}{
				"company_id": message.CompanyID,
			})
		}
	}
}

// PublishToCompany 특정 매장의 모든 구독자에게 메시지 전송
func (h *Hub) PublishToCompany(companyID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal feed message", err, map[string]interface{}{
			"company_id": companyID,
		})
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{CompanyID: companyID, Message: data}:
		return nil
	default:
		logger.Warn("Broadcast channel full, feed message dropped", map[string]interface{}{
			"company_id": companyID,
		})
		return nil
	}
}

// Register 클라이언트 등록
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 클라이언트 등록 해제
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsCompanyOnline 매장 대시보드가 하나라도 연결되어 있는지
func (h *Hub) IsCompanyOnline(companyID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[companyID]
	return ok
}
