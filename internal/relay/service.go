package relay

import (
	"encoding/json"
	"fmt"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/api"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/logger"
)

// SheetStore - внешний коллаборатор с листами персонажей.
// Relay маршрутизирует к нему сообщения, не заглядывая в содержимое листов.
type SheetStore interface {
	Sheet(characterID int) (json.RawMessage, error)
	SaveSheet(characterID int, sheet json.RawMessage) error
}

// Context передает хендлеру все, что нужно для обработки одного сообщения.
type Context struct {
	ConnID string
	Hub    *Hub
	Store  *ScenarioStore
	Ledger *ChatLedger
	Sheets SheetStore
	// Initiative - зеркалируемое состояние трекера ходов. Живет прямо в сервисе:
	// мутируется только циклом, наружу уходит копиями.
	Initiative *domain.InitiativeState
}

// HandlerFunc - контракт обработчика одного типа сообщения.
type HandlerFunc func(ctx Context, payload json.RawMessage) error

// TypedHandlerFunc - "чистый" хендлер, который работает с готовой структурой T
type TypedHandlerFunc[T any] func(ctx Context, payload T) error

// EmptyHandlerFunc - хендлер, которому НЕ нужны данные (request-chat-history и т.п.)
type EmptyHandlerFunc func(ctx Context) error

// WithPayload берет "чистый" хендлер и превращает его в стандартный HandlerFunc.
// Она берет на себя Unmarshal и Validate.
func WithPayload[T any](handler TypedHandlerFunc[T]) HandlerFunc {
	return func(ctx Context, raw json.RawMessage) error {
		var payload T

		// 1. Распаковка JSON
		if err := json.Unmarshal(raw, &payload); err != nil {
			return fmt.Errorf("invalid payload format: %w", err)
		}

		// 2. Автоматическая валидация
		// Проверяем, реализует ли структура T интерфейс Validator
		if v, ok := any(payload).(api.Validator); ok {
			if err := v.Validate(); err != nil {
				return fmt.Errorf("validation failed: %w", err)
			}
		}

		// 3. Вызов чистой логики
		return handler(ctx, payload)
	}
}

// WithEmptyPayload - обертка для сообщений без данных
func WithEmptyPayload(handler EmptyHandlerFunc) HandlerFunc {
	return func(ctx Context, _ json.RawMessage) error {
		return handler(ctx)
	}
}

// inbound - одно сообщение от конкретного соединения, ждущее обработки.
type inbound struct {
	connID string
	env    api.Envelope
}

// join - внутреннее событие: соединение готово получить стартовый снимок.
type join struct {
	connID string
}

// Service - авторитетное ядро Relay-сервера. Все мутации сценариев, чата и
// инициативы проходят через один цикл, обрабатывающий по одному сообщению
// за раз (run-to-completion). Это и есть single-writer дисциплина: соединения
// никогда не трогают сторы напрямую, только шлют сообщения сюда.
type Service struct {
	Hub *Hub

	store      *ScenarioStore
	ledger     *ChatLedger
	sheets     SheetStore
	initiative domain.InitiativeState

	commands chan inbound
	joins    chan join
	done     chan struct{}

	handlers map[string]HandlerFunc
}

func NewService(persister LedgerPersister, sheets SheetStore) *Service {
	store := NewScenarioStore()
	store.SeedDefault()

	s := &Service{
		Hub:      NewHub(),
		store:    store,
		ledger:   NewChatLedger(persister),
		sheets:   sheets,
		commands: make(chan inbound, 100),
		joins:    make(chan join, 16),
		done:     make(chan struct{}),
		handlers: make(map[string]HandlerFunc),
	}

	s.registerHandlers()
	return s
}

func (s *Service) registerHandlers() {
	s.handlers[api.TypeRequestTokenMove] = WithPayload(handleTokenMove)
	s.handlers[api.TypeUpdateScenario] = WithPayload(handleUpdateScenario)
	s.handlers[api.TypeSendMessage] = WithPayload(handleSendMessage)
	s.handlers[api.TypeUpdateInitiative] = WithPayload(handleUpdateInitiative)
	s.handlers[api.TypeRequestChatHistory] = WithEmptyPayload(handleChatHistory)
	s.handlers[api.TypeRequestInitialState] = WithEmptyPayload(handleInitialState)
	s.handlers[api.TypeRequestCharacterData] = WithPayload(handleCharacterData)
	s.handlers[api.TypeSaveCharacterData] = WithPayload(handleSaveCharacter)
}

func (s *Service) Start() {
	go s.run()
}

func (s *Service) Stop() {
	close(s.done)
}

// Connect регистрирует соединение и ставит в очередь отправку стартового
// снимка. Возвращенный канал - личный outbox соединения для writePump.
func (s *Service) Connect(connID string) chan api.Envelope {
	ch := s.Hub.Register(connID)
	s.joins <- join{connID: connID}
	return ch
}

// Disconnect лениво убирает соединение из рассылки.
func (s *Service) Disconnect(connID string) {
	s.Hub.Unregister(connID)
	logger.WithComponent("relay").WithField("conn_id", connID).Info("Client disconnected")
}

// Process принимает сообщение от внешнего мира (WebSocket).
// Валидация payload происходит внутри цикла, здесь только постановка в очередь.
func (s *Service) Process(connID string, env api.Envelope) {
	s.commands <- inbound{connID: connID, env: env}
}

func (s *Service) run() {
	logger.WithComponent("relay").Info("Relay loop started")

	for {
		select {
		case <-s.done:
			return

		case j := <-s.joins:
			// Новое соединение сразу получает полный снимок: клиент стартует
			// с консистентного серверного состояния независимо от того,
			// сколько он был отключен.
			s.Hub.SendTo(j.connID, api.NewEnvelope(api.TypeSyncAll, s.store.Snapshot()))
			s.Hub.SendTo(j.connID, api.NewEnvelope(api.TypeSyncInitiative, api.InitiativePayload(s.initiative.Clone())))
			logger.WithComponent("relay").WithField("conn_id", j.connID).Info("Client connected, snapshot pushed")

		case cmd := <-s.commands:
			s.dispatch(cmd)
		}
	}
}

// dispatch выполняет хендлер одного сообщения. Ошибки хендлеров не
// возвращаются отправителю (fire-and-forget до конца), только логируются.
func (s *Service) dispatch(cmd inbound) {
	handler, ok := s.handlers[cmd.env.Type]
	if !ok {
		logger.WithComponent("relay").WithField("type", cmd.env.Type).Warn("Unknown message type, dropping")
		return
	}

	ctx := Context{
		ConnID:     cmd.connID,
		Hub:        s.Hub,
		Store:      s.store,
		Ledger:     s.ledger,
		Sheets:     s.sheets,
		Initiative: &s.initiative,
	}

	if err := handler(ctx, cmd.env.Data); err != nil {
		logger.WithComponent("relay").WithError(err).WithFields(map[string]interface{}{
			"type":    cmd.env.Type,
			"conn_id": cmd.connID,
		}).Warn("Message dropped")
	}
}
