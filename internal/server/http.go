package server

import (
	"encoding/json"
	"net/http"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/relay"
	"github.com/Gustavo0x1/Dmaster-sub000/internal/version"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/logger"

	"github.com/gorilla/mux"
)

type Server struct {
	Relay *relay.Service
	Port  string
}

func New(svc *relay.Service, port string) *Server {
	return &Server{
		Relay: svc,
		Port:  port,
	}
}

// Run запускает HTTP сервер
func (s *Server) Run() error {
	logger.Log.Infof("🎲 Dmaster relay running on :%s", s.Port)
	return http.ListenAndServe(":"+s.Port, s.Router())
}

// Router собирает роуты. Отдельно от Run, чтобы тесты могли поднять
// httptest.Server поверх того же роутера.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(corsMiddleware)

	r.HandleFunc("/ws", s.handleWS)
	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	return r
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		next.ServeHTTP(w, r)
	})
}

// handleWS обрабатывает подключение по WebSocket
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Error("Upgrade error:", err)
		return
	}

	client := NewClient(s.Relay, conn)
	client.outbox = s.Relay.Connect(client.ConnID)

	// Запускаем пампы
	go client.writePump()
	go client.readPump()
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok")); err != nil {
		logger.Log.WithError(err).Debug("health write failed")
	}
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(version.Info()); err != nil {
		logger.Log.WithError(err).Debug("version write failed")
	}
}
