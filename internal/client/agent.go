package client

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
	"github.com/Gustavo0x1/Dmaster-sub000/internal/initiative"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/api"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/logger"

	"github.com/gorilla/websocket"
)

// Agent владеет единственным долгоживущим соединением с Relay-сервером.
// Наружу: переводит локальные намерения UI в сообщения протокола
// (fire-and-forget). Внутрь: демультиплексирует входящие рассылки в
// ViewState и Tracker. Все исходящие операции не блокируются на ack -
// его в протоколе нет.
type Agent struct {
	endpoint string
	policy   ReconnectPolicy

	state   *ViewState
	tracker *initiative.Tracker

	// OnCharacterData отдает приложению непрозрачный лист персонажа.
	// Ядро его не интерпретирует.
	OnCharacterData func(characterID int, sheet json.RawMessage)

	// OnDisconnect дергается при потере соединения (до паузы реконнекта)
	// из горутины агента. Grid-движок сбрасывает по нему незакоммиченный
	// ghost, но движок одногорутинный: вызов DropGhost нужно переправить
	// в UI-горутину, а не звать из колбэка напрямую.
	OnDisconnect func()

	writeMu sync.Mutex
	conn    *websocket.Conn

	done     chan struct{}
	stopOnce sync.Once
}

func NewAgent(endpoint string, state *ViewState, tracker *initiative.Tracker) *Agent {
	return &Agent{
		endpoint: endpoint,
		policy:   DefaultReconnectPolicy,
		state:    state,
		tracker:  tracker,
		done:     make(chan struct{}),
	}
}

// SetReconnectPolicy переопределяет политику (в тестах - короткая пауза).
// Вызывать до Start.
func (a *Agent) SetReconnectPolicy(p ReconnectPolicy) {
	a.policy = p
}

// Start запускает цикл соединения в отдельной горутине.
func (a *Agent) Start() {
	go a.run()
}

// Stop навсегда останавливает агента и рвет текущее соединение.
func (a *Agent) Stop() {
	a.stopOnce.Do(func() {
		close(a.done)
		a.writeMu.Lock()
		if a.conn != nil {
			_ = a.conn.Close()
		}
		a.writeMu.Unlock()
	})
}

// run - цикл жизни соединения: dial, ресинк, чтение до обрыва, пауза
// политики, снова dial. Безусловно и бесконечно.
func (a *Agent) run() {
	for {
		select {
		case <-a.done:
			return
		default:
		}

		conn, _, err := websocket.DefaultDialer.Dial(a.endpoint, nil)
		if err != nil {
			logger.WithComponent("agent").WithError(err).Warn("Connect failed, retrying")
			if !a.policy.Wait(a.done) {
				return
			}
			continue
		}

		a.writeMu.Lock()
		a.conn = conn
		a.writeMu.Unlock()

		logger.WithComponent("agent").WithField("endpoint", a.endpoint).Info("Connected to relay")

		// Ресинк: пропущенные за время дисконнекта рассылки потеряны
		// безвозвратно, восстанавливаемся только полным состоянием.
		a.send(api.NewEnvelope(api.TypeRequestInitialState, struct{}{}))
		a.send(api.NewEnvelope(api.TypeRequestChatHistory, struct{}{}))

		a.readLoop(conn)

		a.writeMu.Lock()
		a.conn = nil
		a.writeMu.Unlock()

		if a.OnDisconnect != nil {
			a.OnDisconnect()
		}

		select {
		case <-a.done:
			return
		default:
		}

		logger.WithComponent("agent").Info("Connection lost, reconnecting")
		if !a.policy.Wait(a.done) {
			return
		}
	}
}

// readLoop читает рассылки до обрыва соединения.
// Кривое сообщение логируется и пропускается, сессия живет дальше.
func (a *Agent) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var env api.Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			logger.WithComponent("agent").WithError(err).Warn("Malformed message, ignoring")
			continue
		}

		a.dispatch(env)
	}
}

// dispatch раскладывает входящее сообщение по локальным контейнерам.
// Полные синки перезаписывают состояние, дельты обновляют точечно.
func (a *Agent) dispatch(env api.Envelope) {
	switch env.Type {
	case api.TypeSyncAll:
		var p api.SyncAllPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			a.logBadPayload(env.Type, err)
			return
		}
		a.state.ApplySyncAll(p)

	case api.TypeSyncScenario:
		var p api.UpdateScenarioPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			a.logBadPayload(env.Type, err)
			return
		}
		a.state.ApplyScenario(p.ScenarioID, p.Tokens, p.Map)

	case api.TypeSyncTokenPosition:
		var p api.TokenPositionPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			a.logBadPayload(env.Type, err)
			return
		}
		a.state.ApplyTokenPosition(p.ID, p.X, p.Y)

	case api.TypeChatHistory:
		var p api.ChatHistoryPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			a.logBadPayload(env.Type, err)
			return
		}
		a.state.ApplyChatHistory(p)

	case api.TypeNewChatMessage:
		var msg domain.ChatMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			a.logBadPayload(env.Type, err)
			return
		}
		// Дубликат собственного оптимистичного эха отсеется по (id, timestamp)
		a.state.AppendChat(msg)

	case api.TypeSyncInitiative:
		var p api.InitiativePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			a.logBadPayload(env.Type, err)
			return
		}
		if a.tracker != nil {
			a.tracker.ApplyState(domain.InitiativeState(p))
		}

	case api.TypeCharacterData:
		var p api.CharacterDataPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			a.logBadPayload(env.Type, err)
			return
		}
		if a.OnCharacterData != nil {
			a.OnCharacterData(p.CharacterID, p.Sheet)
		}

	default:
		logger.WithComponent("agent").WithField("type", env.Type).Debug("Unknown message type, ignoring")
	}
}

func (a *Agent) logBadPayload(msgType string, err error) {
	logger.WithComponent("agent").WithError(err).WithField("type", msgType).Warn("Bad payload, ignoring")
}

// send пишет конверт в соединение. Ошибка не возвращается вызывающему:
// операции fire-and-forget, обрыв починит цикл реконнекта.
func (a *Agent) send(env api.Envelope) {
	a.writeMu.Lock()
	defer a.writeMu.Unlock()

	if a.conn == nil {
		logger.WithComponent("agent").WithField("type", env.Type).Debug("Not connected, message dropped")
		return
	}
	if err := a.conn.WriteJSON(env); err != nil {
		logger.WithComponent("agent").WithError(err).WithField("type", env.Type).Warn("Send failed")
	}
}

// --- Исходящие операции ---

// RequestTokenMove реализует grid.IntentSink. Локальное состояние уже
// отражает ход оптимистично; слой по проводу не ходит, он неизменяем.
func (a *Agent) RequestTokenMove(tokenID, x, y int, layer domain.Layer) {
	_ = layer
	a.send(api.NewEnvelope(api.TypeRequestTokenMove, api.TokenMovePayload{
		TokenID: tokenID,
		PosX:    x,
		PosY:    y,
		SceneID: a.state.ActiveScenario(),
	}))
}

// SendChatMessage добавляет сообщение локально СРАЗУ (оптимистичное эхо)
// и шлет на сервер. ID назначается клиентом из текущего времени - по паре
// (id, timestamp) эхо дедуплицируется при приходе серверной рассылки.
func (a *Agent) SendChatMessage(text string, senderID int, senderName, senderAvatar string) {
	now := time.Now().UnixMilli()
	msg := domain.ChatMessage{
		ID:           now,
		Text:         text,
		SenderID:     senderID,
		SenderName:   senderName,
		SenderAvatar: senderAvatar,
		Timestamp:    now,
	}

	a.state.AppendChat(msg)

	a.send(api.NewEnvelope(api.TypeSendMessage, api.SendMessagePayload{
		Type:    "chat-message",
		Message: msg,
		ID:      msg.ID,
	}))
}

// PushScenario отправляет сцену на сервер целиком (last-write-wins).
func (a *Agent) PushScenario(sc domain.Scenario) {
	a.send(api.NewEnvelope(api.TypeUpdateScenario, api.UpdateScenarioPayload{
		ScenarioID: sc.ID,
		Tokens:     sc.Tokens,
		Map:        sc.MapRef,
	}))
}

// PushInitiative зеркалит состояние трекера на сервер целиком.
// Подписывается на Tracker.OnChanged.
func (a *Agent) PushInitiative(st domain.InitiativeState) {
	a.send(api.NewEnvelope(api.TypeUpdateInitiative, api.InitiativePayload(st)))
}

// RequestCharacterData запрашивает лист персонажа у коллаборатора.
func (a *Agent) RequestCharacterData(characterID int) {
	a.send(api.NewEnvelope(api.TypeRequestCharacterData, api.CharacterDataPayload{CharacterID: characterID}))
}

// SaveCharacterData сохраняет лист персонажа (blob не интерпретируется).
func (a *Agent) SaveCharacterData(characterID int, sheet json.RawMessage) {
	a.send(api.NewEnvelope(api.TypeSaveCharacterData, api.CharacterDataPayload{
		CharacterID: characterID,
		Sheet:       sheet,
	}))
}
