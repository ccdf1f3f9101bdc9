package relay

import (
	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/logger"
)

// LedgerPersister - то, куда ChatLedger сбрасывает журнал.
// Реализуется storage.LedgerFile; в тестах - заглушкой.
type LedgerPersister interface {
	Save(messages []domain.ChatMessage) error
	Load() ([]domain.ChatMessage, error)
}

// ChatLedger - ограниченный append-only журнал чата.
// Как и ScenarioStore, мутируется только из цикла Service, локи не нужны.
type ChatLedger struct {
	messages  []domain.ChatMessage
	persister LedgerPersister // nil = журнал живет только в памяти
}

// NewChatLedger поднимает журнал из персистентного слоя.
// Ошибка загрузки не фатальна: стартуем с пустым журналом, как при первом запуске.
func NewChatLedger(persister LedgerPersister) *ChatLedger {
	l := &ChatLedger{
		messages:  []domain.ChatMessage{},
		persister: persister,
	}

	if persister != nil {
		loaded, err := persister.Load()
		if err != nil {
			logger.WithComponent("ledger").WithError(err).Warn("Failed to load chat ledger, starting empty")
		} else {
			l.messages = loaded
			l.enforceBound()
		}
	}
	return l
}

// Append добавляет сообщение, вытесняет самое старое при переполнении и
// синхронно персистит журнал. Ошибка записи логируется, in-memory журнал
// остается авторитетным - следующая успешная запись восстановит durability.
func (l *ChatLedger) Append(msg domain.ChatMessage) {
	l.messages = append(l.messages, msg)
	l.enforceBound()

	if l.persister == nil {
		return
	}
	if err := l.persister.Save(l.messages); err != nil {
		logger.WithComponent("ledger").WithError(err).Error("Failed to persist chat ledger")
	}
}

// enforceBound срезает журнал до MaxChatHistory, строго FIFO.
func (l *ChatLedger) enforceBound() {
	if over := len(l.messages) - domain.MaxChatHistory; over > 0 {
		l.messages = append([]domain.ChatMessage{}, l.messages[over:]...)
	}
}

// Messages возвращает копию журнала (от старых к новым).
func (l *ChatLedger) Messages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(l.messages))
	copy(out, l.messages)
	return out
}

func (l *ChatLedger) Len() int {
	return len(l.messages)
}
