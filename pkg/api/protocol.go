package api

import (
	"encoding/json"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
)

// Envelope - корневой объект всех сообщений протокола, в обе стороны.
// Type определяет структуру Data; набор типов закрыт (см. константы ниже),
// сообщение с неизвестным типом логируется и отбрасывается, соединение живет дальше.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Типы сообщений. Имена - часть wire-формата, менять нельзя.
const (
	// --- СЕРВЕР -> КЛИЕНТ ---

	// TypeSyncAll - полный снимок всех сценариев. Шлется каждому новому
	// соединению сразу после подключения и в ответ на request-initial-state.
	TypeSyncAll = "syncAll"

	// TypeSyncScenario - полное состояние одного сценария после updateScenario.
	TypeSyncScenario = "syncScenario"

	// TypeSyncTokenPosition - точечная дельта: один токен сменил клетку.
	TypeSyncTokenPosition = "SyncTokenPosition"

	// TypeChatHistory - весь журнал чата. Уходит ТОЛЬКО запросившему соединению.
	TypeChatHistory = "chat-history"

	// TypeNewChatMessage - рассылка одного нового сообщения чата.
	TypeNewChatMessage = "new-chat-message"

	// TypeSyncInitiative - полное состояние трекера инициативы.
	TypeSyncInitiative = "syncInitiative"

	// --- КЛИЕНТ -> СЕРВЕР ---

	// TypeUpdateScenario - замена списка токенов и карты сценария целиком.
	TypeUpdateScenario = "updateScenario"

	// TypeRequestTokenMove - намерение передвинуть токен. Fire-and-forget:
	// подтверждения нет, клиент уже применил ход оптимистично.
	TypeRequestTokenMove = "request-tokenMove"

	// TypeSendMessage - отправка сообщения чата.
	TypeSendMessage = "send-message"

	// TypeRequestChatHistory - запрос журнала чата (после (ре)коннекта).
	TypeRequestChatHistory = "request-chat-history"

	// TypeRequestInitialState - запрос полного снимка сценариев (ресинк).
	TypeRequestInitialState = "request-initial-state"

	// TypeUpdateInitiative - замена состояния трекера инициативы целиком.
	TypeUpdateInitiative = "updateInitiative"

	// --- ВНЕШНИЙ КОЛЛАБОРАТОР: ЛИСТЫ ПЕРСОНАЖЕЙ ---
	// Ядро синхронизации эти сообщения не интерпретирует, только маршрутизирует
	// в локальное хранилище листов и обратно.

	TypeRequestCharacterData = "request-character-data"
	TypeCharacterData        = "character-data"
	TypeSaveCharacterData    = "save-character-data"
)

// --- Payloads ---

// SyncAllPayload: снимок всех сценариев, ключ - ID сценария.
// Клиент применяет его ПЕРЕЗАПИСЬЮ локального состояния, не слиянием.
type SyncAllPayload map[domain.ScenarioID]domain.Scenario

// UpdateScenarioPayload: Для updateScenario (клиент) и syncScenario (сервер).
type UpdateScenarioPayload struct {
	ScenarioID domain.ScenarioID `json:"scenarioId"`
	Tokens     []domain.Token    `json:"tokens"`
	Map        string            `json:"map"`
}

// TokenMovePayload: Для request-tokenMove.
type TokenMovePayload struct {
	TokenID int               `json:"tokenId"`
	PosX    int               `json:"posX"`
	PosY    int               `json:"posY"`
	SceneID domain.ScenarioID `json:"sceneId"`
}

// TokenPositionPayload: Для SyncTokenPosition (дельта сервер -> все клиенты).
type TokenPositionPayload struct {
	ID int `json:"id"`
	X  int `json:"x"`
	Y  int `json:"y"`
}

// SendMessagePayload: Для send-message.
type SendMessagePayload struct {
	Type    string             `json:"type"` // всегда "chat-message"
	Message domain.ChatMessage `json:"message"`
	ID      int64              `json:"id"`
}

// ChatHistoryPayload: Для chat-history (point-to-point ответ).
type ChatHistoryPayload []domain.ChatMessage

// InitiativePayload: Для updateInitiative и syncInitiative. Всегда целиком.
type InitiativePayload domain.InitiativeState

// CharacterDataPayload: непрозрачный blob листа персонажа.
// Sheet не декодируется ядром - структуру знает только фронтенд и стор листов.
type CharacterDataPayload struct {
	CharacterID int             `json:"characterId"`
	Sheet       json.RawMessage `json:"sheet,omitempty"`
}

// NewEnvelope собирает конверт, паникуя только на непредставимых данных
// (наши payload-структуры всегда сериализуемы).
func NewEnvelope(msgType string, payload interface{}) Envelope {
	data, err := json.Marshal(payload)
	if err != nil {
		panic("api: unmarshalable payload for " + msgType + ": " + err.Error())
	}
	return Envelope{Type: msgType, Data: data}
}
