package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/logger"
)

const ledgerFileName = "chat-ledger.json"

// LedgerFile персистит журнал чата как плоский JSON-массив.
// Формат без инкрементального аппенда: файл переписывается целиком
// на каждом новом сообщении. При границе журнала в 50 записей это дешево.
type LedgerFile struct {
	path string
}

func NewLedgerFile(dir string) *LedgerFile {
	// Создаем папку если нет. Ошибку не глотаем: без нее первый же Save
	// упадет далеко от настоящей причины.
	if err := os.MkdirAll(dir, 0755); err != nil {
		logger.WithComponent("storage").WithError(err).Warn("Failed to create ledger directory")
	}
	return &LedgerFile{path: filepath.Join(dir, ledgerFileName)}
}

// Save переписывает файл журнала целиком. Пишем во временный файл и
// переименовываем, чтобы обрыв процесса не оставил полузаписанный JSON.
func (f *LedgerFile) Save(messages []domain.ChatMessage) error {
	data, err := json.Marshal(messages)
	if err != nil {
		return fmt.Errorf("failed to marshal ledger: %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write ledger file: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("failed to replace ledger file: %w", err)
	}
	return nil
}

// Load читает журнал. Отсутствующий файл - не ошибка, это первый запуск.
func (f *LedgerFile) Load() ([]domain.ChatMessage, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.ChatMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read ledger file: %w", err)
	}

	var messages []domain.ChatMessage
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse ledger file: %w", err)
	}
	return messages, nil
}

// Path возвращает путь к файлу журнала (для логов).
func (f *LedgerFile) Path() string {
	return f.path
}
