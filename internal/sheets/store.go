package sheets

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Store - локальное встраиваемое хранилище листов персонажей.
// Для ядра синхронизации это черный ящик: листы ходят как непрозрачные
// JSON-блобы, структуру знает только фронтенд.
type Store struct {
	db *sql.DB
}

// Open готовит SQLite-базу по указанному пути и накатывает схему.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is empty")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("ensure db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Одно соединение: пишем из одного процесса, конкуренции нет
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		db.Close()
		return nil, fmt.Errorf("configure sqlite: %w", err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `CREATE TABLE IF NOT EXISTS character_sheets (
		character_id INTEGER PRIMARY KEY,
		sheet TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Sheet возвращает лист персонажа. Отсутствующий персонаж - не ошибка,
// возвращается null-блоб: фронтенд покажет пустой лист.
func (s *Store) Sheet(characterID int) (json.RawMessage, error) {
	var sheet string
	err := s.db.QueryRow(
		`SELECT sheet FROM character_sheets WHERE character_id = ?`, characterID,
	).Scan(&sheet)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query sheet %d: %w", characterID, err)
	}
	return json.RawMessage(sheet), nil
}

// SaveSheet сохраняет лист целиком (upsert, last-write-wins).
func (s *Store) SaveSheet(characterID int, sheet json.RawMessage) error {
	if !json.Valid(sheet) {
		return fmt.Errorf("sheet for character %d is not valid JSON", characterID)
	}

	_, err := s.db.Exec(
		`INSERT INTO character_sheets (character_id, sheet, updated_at)
		 VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(character_id) DO UPDATE SET sheet = excluded.sheet, updated_at = CURRENT_TIMESTAMP`,
		characterID, string(sheet),
	)
	if err != nil {
		return fmt.Errorf("save sheet %d: %w", characterID, err)
	}
	return nil
}

// DeleteSheet удаляет лист персонажа.
func (s *Store) DeleteSheet(characterID int) error {
	_, err := s.db.Exec(`DELETE FROM character_sheets WHERE character_id = ?`, characterID)
	if err != nil {
		return fmt.Errorf("delete sheet %d: %w", characterID, err)
	}
	return nil
}

// Close releases database resources.
func (s *Store) Close() error {
	return s.db.Close()
}
