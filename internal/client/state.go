package client

import (
	"sync"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
)

// ViewState - локальный read-through кэш клиента. Никогда не авторитетен:
// полные синки с сервера его ПЕРЕЗАПИСЫВАЮТ, дельты обновляют точечно,
// оптимистичные мутации живут в нем до прихода авторитетного эха.
// Защищен мьютексом: пишет горутина агента, читает UI.
type ViewState struct {
	mu sync.RWMutex

	scenarios map[domain.ScenarioID]*domain.Scenario
	active    domain.ScenarioID

	chat []domain.ChatMessage
}

func NewViewState() *ViewState {
	return &ViewState{
		scenarios: make(map[domain.ScenarioID]*domain.Scenario),
		active:    domain.DefaultScenarioID,
	}
}

// SetActiveScenario переключает сцену, по которой работает Grid-движок.
func (v *ViewState) SetActiveScenario(id domain.ScenarioID) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.active = id
}

func (v *ViewState) ActiveScenario() domain.ScenarioID {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.active
}

// ApplySyncAll применяет полный снимок ПЕРЕЗАПИСЬЮ, не слиянием.
// Повторное применение того же снапшота дает идентичное состояние.
func (v *ViewState) ApplySyncAll(snapshot map[domain.ScenarioID]domain.Scenario) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.scenarios = make(map[domain.ScenarioID]*domain.Scenario, len(snapshot))
	for id, sc := range snapshot {
		clone := sc.Clone()
		v.scenarios[id] = &clone
	}
}

// ApplyScenario перезаписывает одну сцену (syncScenario).
func (v *ViewState) ApplyScenario(id domain.ScenarioID, tokens []domain.Token, mapRef string) {
	v.mu.Lock()
	defer v.mu.Unlock()

	sc := &domain.Scenario{ID: id, MapRef: mapRef}
	sc.Tokens = make([]domain.Token, len(tokens))
	copy(sc.Tokens, tokens)
	v.scenarios[id] = sc
}

// ApplyTokenPosition - точечная дельта SyncTokenPosition. Дельта не несет
// ID сцены, поэтому токен ищется по всем сценам; ID токена уникален в
// пределах сцены, на практике - в пределах деплоймента.
func (v *ViewState) ApplyTokenPosition(tokenID, x, y int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, sc := range v.scenarios {
		if tok := sc.FindToken(tokenID); tok != nil {
			tok.GridX = x
			tok.GridY = y
			return
		}
	}
}

// Scenario возвращает глубокую копию сцены или nil.
func (v *ViewState) Scenario(id domain.ScenarioID) *domain.Scenario {
	v.mu.RLock()
	defer v.mu.RUnlock()

	sc, ok := v.scenarios[id]
	if !ok {
		return nil
	}
	clone := sc.Clone()
	return &clone
}

// ActiveTokens реализует grid.Board: снимок токенов активной сцены.
func (v *ViewState) ActiveTokens() []domain.Token {
	v.mu.RLock()
	defer v.mu.RUnlock()

	sc, ok := v.scenarios[v.active]
	if !ok {
		return nil
	}
	out := make([]domain.Token, len(sc.Tokens))
	copy(out, sc.Tokens)
	return out
}

// ApplyLocalMove реализует grid.Board: оптимистичный коммит drag'а в
// активную сцену. Сервер подтвердит (или перезапишет) его своей дельтой.
func (v *ViewState) ApplyLocalMove(tokenID, x, y int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	sc, ok := v.scenarios[v.active]
	if !ok {
		return
	}
	if tok := sc.FindToken(tokenID); tok != nil {
		tok.GridX = x
		tok.GridY = y
	}
}

// --- Чат ---

// ApplyChatHistory перезаписывает список сообщений авторитетным журналом.
func (v *ViewState) ApplyChatHistory(messages []domain.ChatMessage) {
	v.mu.Lock()
	defer v.mu.Unlock()

	v.chat = make([]domain.ChatMessage, len(messages))
	copy(v.chat, messages)
}

// AppendChat добавляет сообщение с дедупликацией по паре (id, timestamp):
// оптимистичное эхо и серверная рассылка одного сообщения не должны
// показываться дважды. Возвращает false, если сообщение уже есть.
func (v *ViewState) AppendChat(msg domain.ChatMessage) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, m := range v.chat {
		if m.ID == msg.ID && m.Timestamp == msg.Timestamp {
			return false
		}
	}
	v.chat = append(v.chat, msg)

	// Локальный список держим в той же границе, что и серверный журнал
	if over := len(v.chat) - domain.MaxChatHistory; over > 0 {
		v.chat = append([]domain.ChatMessage{}, v.chat[over:]...)
	}
	return true
}

// Chat возвращает копию списка сообщений (от старых к новым).
func (v *ViewState) Chat() []domain.ChatMessage {
	v.mu.RLock()
	defer v.mu.RUnlock()

	out := make([]domain.ChatMessage, len(v.chat))
	copy(out, v.chat)
	return out
}
