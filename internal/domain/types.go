package domain

// ScenarioID идентифицирует сценарий (карта + набор токенов одной игровой сессии).
// В текущей топологии процесс обслуживает один набор сценариев без изоляции комнат.
type ScenarioID string

// Scenario - карта плюс все токены, активные в игровой сессии.
// Владелец - исключительно Relay-сервер; клиенты держат только read-through кэш,
// который никогда не считается авторитетным.
type Scenario struct {
	ID     ScenarioID `json:"id"`
	Tokens []Token    `json:"tokens"`
	MapRef string     `json:"map"`
}

// Token - позиционированная фишка на сетке (персонаж, монстр или декорация).
// Конкурентной мутации подвержены только координаты; идентичность и размер
// задаются при создании и фактически неизменяемы.
type Token struct {
	ID          int    `json:"id"`
	GridX       int    `json:"gridX"`
	GridY       int    `json:"gridY"`
	Layer       Layer  `json:"layer"`
	WidthCells  int    `json:"widthCells"`
	HeightCells int    `json:"heightCells"`
	// ImageRef - непрозрачный идентификатор картинки. Ядро его не интерпретирует,
	// разрешением занимается внешний пул ассетов.
	ImageRef string `json:"imageRef"`
}

// FindToken возвращает указатель на токен с данным ID или nil.
func (s *Scenario) FindToken(id int) *Token {
	for i := range s.Tokens {
		if s.Tokens[i].ID == id {
			return &s.Tokens[i]
		}
	}
	return nil
}

// Clone возвращает глубокую копию сценария.
// Нужен для снапшотов (syncAll), чтобы получатель не держал указателей в стор.
func (s *Scenario) Clone() Scenario {
	out := *s
	out.Tokens = make([]Token, len(s.Tokens))
	copy(out.Tokens, s.Tokens)
	return out
}

// ChatMessage - одна запись чата. Создается при отправке, никогда не мутируется,
// уничтожается только FIFO-вытеснением из журнала или перезапуском процесса.
type ChatMessage struct {
	ID           int64  `json:"id"`
	Text         string `json:"message"`
	SenderID     int    `json:"senderId"`
	SenderName   string `json:"senderName"`
	SenderAvatar string `json:"senderAvatar"`
	Timestamp    int64  `json:"timestamp"` // Unix milliseconds
}
