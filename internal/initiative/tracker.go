package initiative

import (
	"sync"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
)

// Tracker - клиентская половина трекера инициативы. Состояние зеркалируется
// с сервером целиком (syncInitiative), дельт нет.
type Tracker struct {
	mu sync.Mutex

	// combatants хранится в порядке вставки; order - производный порядок ходов.
	combatants []domain.Combatant
	order      []domain.Combatant
	turnIndex  int

	localPlayerID int

	// OnYourTurn дергается, когда ход переходит к комбатанту локального игрока.
	// Это производное чтение, не мутация состояния.
	OnYourTurn func(c domain.Combatant)

	// OnChanged дергается после любой мутации, с копией полного состояния.
	// Agent подписывается сюда, чтобы раскатать состояние на сервер.
	OnChanged func(st domain.InitiativeState)
}

func NewTracker(localPlayerID int) *Tracker {
	return &Tracker{localPlayerID: localPlayerID}
}

// InTurnOrder возвращает комбатантов в порядке ходов: по убыванию инициативы,
// стабильно при равенстве (исходный порядок вставки сохраняется).
func (t *Tracker) InTurnOrder() []domain.Combatant {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]domain.Combatant, len(t.order))
	copy(out, t.order)
	return out
}

// CurrentTurnIndex возвращает индекс текущего хода.
func (t *Tracker) CurrentTurnIndex() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.turnIndex
}

// Current возвращает комбатанта, чей сейчас ход, или nil при пустом списке.
func (t *Tracker) Current() *domain.Combatant {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.currentLocked()
}

func (t *Tracker) currentLocked() *domain.Combatant {
	if len(t.order) == 0 {
		return nil
	}
	c := t.order[t.turnIndex]
	return &c
}

// State возвращает копию полного состояния для отправки на сервер.
// В зеркалируемом состоянии комбатанты идут уже в порядке ходов.
func (t *Tracker) State() domain.InitiativeState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stateLocked()
}

func (t *Tracker) stateLocked() domain.InitiativeState {
	st := domain.InitiativeState{
		Combatants:       t.order,
		CurrentTurnIndex: t.turnIndex,
	}
	return st.Clone()
}

// ApplyState перезаписывает состояние авторитетной копией с сервера.
// Перезапись, не слияние. OnChanged не дергается - иначе получим эхо-шторм.
func (t *Tracker) ApplyState(st domain.InitiativeState) {
	t.mu.Lock()
	t.combatants = make([]domain.Combatant, len(st.Combatants))
	copy(t.combatants, st.Combatants)
	t.resortLocked()
	t.turnIndex = st.CurrentTurnIndex
	t.clampLocked()
	notify := t.yourTurnLocked()
	t.mu.Unlock()

	t.fireYourTurn(notify)
}

// Add добавляет комбатанта и пересобирает порядок ходов.
func (t *Tracker) Add(c domain.Combatant) {
	t.mu.Lock()
	t.combatants = append(t.combatants, c)
	t.resortLocked()
	t.clampLocked()
	st := t.stateLocked()
	t.mu.Unlock()

	t.fireChanged(st)
}

// Remove убирает комбатанта по ID токена.
func (t *Tracker) Remove(tokenID int) {
	t.mu.Lock()
	kept := t.combatants[:0]
	for _, c := range t.combatants {
		if c.TokenID != tokenID {
			kept = append(kept, c)
		}
	}
	t.combatants = kept
	t.resortLocked()
	t.clampLocked()
	st := t.stateLocked()
	t.mu.Unlock()

	t.fireChanged(st)
}

// SetInitiative переопределяет инициативу комбатанта и пересортировывает.
// ВНИМАНИЕ: turnIndex при пересортировке не привязывается к личности
// комбатанта - если ранги сместились, "чей ход" молча становится тем, кто
// теперь занимает прежний числовой индекс. Известный изъян исходного
// поведения, сохранен намеренно.
func (t *Tracker) SetInitiative(tokenID, value int) {
	t.mu.Lock()
	for i := range t.combatants {
		if t.combatants[i].TokenID == tokenID {
			t.combatants[i].Initiative = value
			break
		}
	}
	t.resortLocked()
	t.clampLocked()
	st := t.stateLocked()
	t.mu.Unlock()

	t.fireChanged(st)
}

// NextTurn передает ход следующему по кругу.
// На пустом списке индекс остается 0, паники нет.
func (t *Tracker) NextTurn() {
	t.advance(1)
}

// PreviousTurn возвращает ход назад, с заворотом через начало.
func (t *Tracker) PreviousTurn() {
	t.advance(-1)
}

func (t *Tracker) advance(step int) {
	t.mu.Lock()
	if len(t.order) == 0 {
		t.turnIndex = 0
		t.mu.Unlock()
		return
	}
	n := len(t.order)
	t.turnIndex = ((t.turnIndex+step)%n + n) % n
	notify := t.yourTurnLocked()
	st := t.stateLocked()
	t.mu.Unlock()

	t.fireYourTurn(notify)
	t.fireChanged(st)
}

// resortLocked пересобирает производный порядок ходов.
// Вызывается при изменении СПИСКА, но не при смене turnIndex.
func (t *Tracker) resortLocked() {
	t.order = domain.SortByInitiative(t.combatants)
}

// clampLocked держит инвариант 0 <= turnIndex < len (пустой список -> 0).
func (t *Tracker) clampLocked() {
	if len(t.order) == 0 || t.turnIndex < 0 || t.turnIndex >= len(t.order) {
		t.turnIndex = 0
	}
}

// yourTurnLocked возвращает комбатанта для уведомления "твой ход", если
// текущим стал комбатант локального игрока.
func (t *Tracker) yourTurnLocked() *domain.Combatant {
	cur := t.currentLocked()
	if cur == nil || cur.PlayerOwnerID == nil {
		return nil
	}
	if *cur.PlayerOwnerID != t.localPlayerID {
		return nil
	}
	c := *cur
	return &c
}

func (t *Tracker) fireYourTurn(c *domain.Combatant) {
	if c != nil && t.OnYourTurn != nil {
		t.OnYourTurn(*c)
	}
}

func (t *Tracker) fireChanged(st domain.InitiativeState) {
	if t.OnChanged != nil {
		t.OnChanged(st)
	}
}
