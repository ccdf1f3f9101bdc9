package grid

import (
	"math"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
)

// Чистые функции перевода координат между пространством указателя/вьюпорта
// и пространством клеток сетки. Никаких side effects.

// ClampZoom ограничивает зум допустимым диапазоном.
func ClampZoom(zoom float64) float64 {
	if zoom < domain.MinZoom {
		return domain.MinZoom
	}
	if zoom > domain.MaxZoom {
		return domain.MaxZoom
	}
	return zoom
}

// ToGrid переводит координаты указателя в клетку сетки при данных pan и zoom.
// Формула: floor((pointer - pan) / zoom / CellSizePx). Pan не ограничен.
func ToGrid(pointerX, pointerY, panX, panY, zoom float64) (cellX, cellY int) {
	zoom = ClampZoom(zoom)
	cellX = int(math.Floor((pointerX - panX) / zoom / domain.CellSizePx))
	cellY = int(math.Floor((pointerY - panY) / zoom / domain.CellSizePx))
	return cellX, cellY
}

// ToScreen - обратное преобразование для рендеринга: левый верхний угол
// клетки в пикселях экрана.
func ToScreen(cellX, cellY int, panX, panY, zoom float64) (px, py float64) {
	zoom = ClampZoom(zoom)
	px = float64(cellX)*domain.CellSizePx*zoom + panX
	py = float64(cellY)*domain.CellSizePx*zoom + panY
	return px, py
}
