package main

import (
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/infrastructure/storage"
	"github.com/Gustavo0x1/Dmaster-sub000/internal/relay"
	"github.com/Gustavo0x1/Dmaster-sub000/internal/server"
	"github.com/Gustavo0x1/Dmaster-sub000/internal/sheets"
	"github.com/Gustavo0x1/Dmaster-sub000/internal/version"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/logger"
)

func init() {
	logger.Init()
}

func main() {
	// 1. Парсинг конфигурации
	var port string
	var dataDir string
	flag.StringVar(&port, "port", envOr("PORT", "8080"), "HTTP/WebSocket port")
	flag.StringVar(&dataDir, "data", envOr("DATA_DIR", "./data"), "Directory for chat ledger and character sheets")
	flag.Parse()

	logger.Log.Info("Starting Dmaster relay...")
	logger.Log.Info(version.String())

	// 2. Персистентные слои
	ledgerFile := storage.NewLedgerFile(dataDir)
	logger.Log.WithField("path", ledgerFile.Path()).Info("Chat ledger file")

	// Стор листов персонажей - внешний коллаборатор. Его отказ не должен
	// ронять синхронизацию сцен, поэтому ошибка здесь не фатальна.
	var sheetStore relay.SheetStore
	if st, err := sheets.Open(filepath.Join(dataDir, "characters.db")); err != nil {
		logger.Log.WithError(err).Warn("Character sheet store unavailable, continuing without it")
	} else {
		sheetStore = st
		defer st.Close()
	}

	// 3. Авторитетное ядро + HTTP/WS слой
	svc := relay.NewService(ledgerFile, sheetStore)
	svc.Start()

	srv := server.New(svc, port)
	go func() {
		if err := srv.Run(); err != nil {
			logger.Log.Fatal("HTTP server failed: ", err)
		}
	}()

	// 4. Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Log.Info("Shutting down...")
	svc.Stop()
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}
