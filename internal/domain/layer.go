package domain

import "strings"

// Layer - слой отрисовки токена.
type Layer uint8

const (
	LayerUnknown Layer = iota
	LayerMap
	LayerCharacters
	LayerExtra1
	LayerExtra2
)

var layerToString = map[Layer]string{
	LayerMap:        "MAP",
	LayerCharacters: "CHARACTERS",
	LayerExtra1:     "EXTRA1",
	LayerExtra2:     "EXTRA2",
}

var layerStringToLayer = map[string]Layer{
	"MAP":        LayerMap,
	"CHARACTERS": LayerCharacters,
	"EXTRA1":     LayerExtra1,
	"EXTRA2":     LayerExtra2,
}

// String возвращает строковое представление (для логов и сериализации)
func (l Layer) String() string {
	if val, ok := layerToString[l]; ok {
		return val
	}
	return "UNKNOWN"
}

// ParseLayer конвертирует строку в Enum (нужно для разбора входящих сообщений)
func ParseLayer(s string) Layer {
	upper := strings.ToUpper(s)
	if val, ok := layerStringToLayer[upper]; ok {
		return val
	}
	return LayerUnknown
}

// MarshalJSON сериализует слой как строку протокола.
func (l Layer) MarshalJSON() ([]byte, error) {
	return []byte(`"` + l.String() + `"`), nil
}

// UnmarshalJSON принимает строку протокола; неизвестные значения дают LayerUnknown,
// а не ошибку - один кривой токен не должен ронять разбор всего сценария.
func (l *Layer) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	*l = ParseLayer(s)
	return nil
}
