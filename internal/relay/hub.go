package relay

import (
	"sync"

	"github.com/Gustavo0x1/Dmaster-sub000/pkg/api"
)

// Hub занимается только доставкой сообщений открытым соединениям.
// Состоянием сценариев он не владеет - это забота Service.
type Hub struct {
	mu sync.RWMutex
	// Мапа: ConnID -> Личный канал соединения
	subscribers map[string]chan api.Envelope
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[string]chan api.Envelope),
	}
}

// Register создает личный канал для соединения
func (h *Hub) Register(connID string) chan api.Envelope {
	h.mu.Lock()
	defer h.mu.Unlock()

	// Если канал был, закрываем
	if old, ok := h.subscribers[connID]; ok {
		close(old)
	}

	ch := make(chan api.Envelope, 100)
	h.subscribers[connID] = ch
	return ch
}

// Unregister удаляет подписчика. Вызывается лениво, на событии закрытия
// соединения, а не во время рассылки.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.subscribers[connID]; ok {
		close(ch)
		delete(h.subscribers, connID)
	}
}

// SendTo отправляет сообщение конкретному соединению (Unicast)
func (h *Hub) SendTo(connID string, msg api.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if ch, ok := h.subscribers[connID]; ok {
		select {
		case ch <- msg:
		default:
			// Канал переполнен - медленный клиент догонит на следующем ресинке
		}
	}
}

// Broadcast отправляет всем открытым соединениям, включая отправителя мутации
func (h *Hub) Broadcast(msg api.Envelope) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, ch := range h.subscribers {
		select {
		case ch <- msg:
		default:
		}
	}
}

// HasSubscriber проверяет, живо ли соединение
func (h *Hub) HasSubscriber(connID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.subscribers[connID]
	return ok
}

// SubscriberCount возвращает количество активных подписчиков.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}
