package domain

// Параметры сетки
const (
	// CellSizePx - размер клетки в пикселях при zoom=1.0.
	// Алгебра трансформации от него не зависит, меняется одной константой.
	CellSizePx = 50

	MinZoom = 0.5
	MaxZoom = 3.0
)

// Параметры чата
const (
	// MaxChatHistory - жесткая граница журнала чата. При превышении
	// вытесняется строго самое старое сообщение (FIFO).
	MaxChatHistory = 50
)

// DefaultScenarioID - сценарий, который сервер сеет при старте, если стор пуст.
const DefaultScenarioID ScenarioID = "scenario-1"
