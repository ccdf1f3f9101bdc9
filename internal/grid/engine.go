package grid

import (
	"sort"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
)

// GestureState - состояние конечного автомата одного жеста указателя.
type GestureState uint8

const (
	StateIdle GestureState = iota
	StatePanning
	StateDragging
	StateSelecting
)

var gestureToString = map[GestureState]string{
	StateIdle:      "IDLE",
	StatePanning:   "PANNING",
	StateDragging:  "DRAGGING",
	StateSelecting: "SELECTING",
}

func (s GestureState) String() string {
	if val, ok := gestureToString[s]; ok {
		return val
	}
	return "UNKNOWN"
}

// GhostToken - эфемерная теневая копия перетаскиваемого токена с кандидатной
// клеткой, еще не подтвержденной сервером. Рендерится полупрозрачной,
// никогда не авторитетна.
type GhostToken struct {
	TokenID int
	CellX   int
	CellY   int
}

// Viewport - текущие pan и zoom вьюпорта.
type Viewport struct {
	PanX float64
	PanY float64
	Zoom float64
}

// Board - локальный кэш сцены, по которому движок делает hit-test и
// оптимистичные коммиты. Реализуется client.ViewState.
type Board interface {
	ActiveTokens() []domain.Token
	ApplyLocalMove(tokenID, x, y int)
}

// IntentSink принимает намерения, которые должны уйти на сервер.
// Реализуется client.Agent.
type IntentSink interface {
	RequestTokenMove(tokenID, x, y int, layer domain.Layer)
}

// Engine превращает сырые события указателя в жесты над сеткой:
// панорамирование, перетаскивание с ghost-превью, мультивыбор.
// Работает строго в одной (UI) горутине.
type Engine struct {
	board Board
	sink  IntentSink

	viewport Viewport
	state    GestureState

	// Drag
	ghost     *GhostToken
	dragLayer domain.Layer

	// Panning: точка захвата указателя и pan на момент захвата
	panOriginX, panOriginY float64
	panStartX, panStartY   float64

	// Выбор - производная read-only проекция, никогда не часть
	// авторитетного состояния сценария.
	selection map[int]bool

	// OnGhostMove дергается только при смене кандидатной клетки,
	// не на каждый пиксель - это единственный троттлинг перерисовки.
	OnGhostMove func(g GhostToken)

	// OnSelectionChange уведомляет зависимые вьюхи (боковую панель и т.п.).
	OnSelectionChange func(tokenIDs []int)
}

func NewEngine(board Board, sink IntentSink) *Engine {
	return &Engine{
		board:     board,
		sink:      sink,
		viewport:  Viewport{Zoom: 1.0},
		state:     StateIdle,
		selection: make(map[int]bool),
	}
}

// Viewport возвращает текущий вьюпорт.
func (e *Engine) Viewport() Viewport {
	return e.viewport
}

// SetZoom меняет зум с клампом к допустимому диапазону.
func (e *Engine) SetZoom(zoom float64) {
	e.viewport.Zoom = ClampZoom(zoom)
}

// State возвращает текущее состояние жеста.
func (e *Engine) State() GestureState {
	return e.state
}

// Ghost возвращает активный ghost-токен или nil.
func (e *Engine) Ghost() *GhostToken {
	return e.ghost
}

// Selection возвращает отсортированную копию набора выбранных токенов.
func (e *Engine) Selection() []int {
	out := make([]int, 0, len(e.selection))
	for id := range e.selection {
		out = append(out, id)
	}
	sort.Ints(out)
	return out
}

// PointerDown начинает жест.
// Модификатор зажат -> переключение членства в наборе выбора, без drag.
// Попали в токен -> Dragging с ghost на текущей клетке токена.
// Промахнулись -> Panning с захватом точки отсчета.
func (e *Engine) PointerDown(px, py float64, modifier bool) {
	if e.state != StateIdle {
		return
	}

	hit := e.hitTest(px, py)

	if modifier {
		e.state = StateSelecting
		if hit != nil {
			if e.selection[hit.ID] {
				delete(e.selection, hit.ID)
			} else {
				e.selection[hit.ID] = true
			}
			if e.OnSelectionChange != nil {
				e.OnSelectionChange(e.Selection())
			}
		}
		return
	}

	if hit != nil {
		e.state = StateDragging
		e.dragLayer = hit.Layer
		e.ghost = &GhostToken{TokenID: hit.ID, CellX: hit.GridX, CellY: hit.GridY}
		return
	}

	e.state = StatePanning
	e.panOriginX, e.panOriginY = px, py
	e.panStartX, e.panStartY = e.viewport.PanX, e.viewport.PanY
}

// PointerMove продолжает жест.
// Panning: pan двигается на сырую дельту указателя, без семантики сетки.
// Dragging: ghost пересчитывается, но обновляется только при смене клетки.
func (e *Engine) PointerMove(px, py float64) {
	switch e.state {
	case StatePanning:
		e.viewport.PanX = e.panStartX + (px - e.panOriginX)
		e.viewport.PanY = e.panStartY + (py - e.panOriginY)

	case StateDragging:
		cx, cy := ToGrid(px, py, e.viewport.PanX, e.viewport.PanY, e.viewport.Zoom)
		if cx == e.ghost.CellX && cy == e.ghost.CellY {
			return
		}
		e.ghost.CellX = cx
		e.ghost.CellY = cy
		if e.OnGhostMove != nil {
			e.OnGhostMove(*e.ghost)
		}
	}
}

// PointerUp завершает жест. Отпускание при Dragging ВСЕГДА коммитит:
// кандидатная клетка применяется к локальному токену оптимистично, ghost
// очищается, намерение уходит на сервер. Отдельного пути отмены drag нет.
// Проверок границ и коллизий на этом слое тоже нет.
func (e *Engine) PointerUp(px, py float64) {
	if e.state == StateDragging {
		cx, cy := ToGrid(px, py, e.viewport.PanX, e.viewport.PanY, e.viewport.Zoom)
		tokenID := e.ghost.TokenID
		e.ghost = nil

		e.board.ApplyLocalMove(tokenID, cx, cy)
		if e.sink != nil {
			e.sink.RequestTokenMove(tokenID, cx, cy, e.dragLayer)
		}
	}

	e.state = StateIdle
}

// DropGhost сбрасывает незакоммиченный drag при потере соединения.
// Как и остальные методы движка, зовется только из UI-горутины;
// Agent.OnDisconnect срабатывает в горутине агента, поэтому вызов
// отсюда должен быть переправлен в UI-горутину.
func (e *Engine) DropGhost() {
	if e.state == StateDragging {
		e.ghost = nil
		e.state = StateIdle
	}
}

// hitTest - AABB-тест в пространстве сетки по всем токенам активной сцены.
// Токен занимает [GridX, GridX+W) x [GridY, GridY+H). При перекрытии
// побеждает последний в списке - он отрисован поверх.
func (e *Engine) hitTest(px, py float64) *domain.Token {
	cx, cy := ToGrid(px, py, e.viewport.PanX, e.viewport.PanY, e.viewport.Zoom)

	tokens := e.board.ActiveTokens()
	var hit *domain.Token
	for i := range tokens {
		t := &tokens[i]
		w, h := t.WidthCells, t.HeightCells
		if w <= 0 {
			w = 1
		}
		if h <= 0 {
			h = 1
		}
		if cx >= t.GridX && cx < t.GridX+w && cy >= t.GridY && cy < t.GridY+h {
			hit = t
		}
	}
	return hit
}
