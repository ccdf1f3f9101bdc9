package client

import "time"

// ReconnectPolicy - именованная политика переподключения транспорта.
// Референсное поведение: фиксированная пауза 5 секунд, безусловно и
// бесконечно. Без роста backoff, без лимита попыток - это единственный
// механизм отказоустойчивости транспорта, менять его молча нельзя.
type ReconnectPolicy struct {
	Delay time.Duration
}

// DefaultReconnectPolicy - политика референсной системы.
var DefaultReconnectPolicy = ReconnectPolicy{Delay: 5 * time.Second}

// Wait выдерживает паузу политики. Возвращает false, если за время
// ожидания агент был остановлен.
func (p ReconnectPolicy) Wait(done <-chan struct{}) bool {
	timer := time.NewTimer(p.Delay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-done:
		return false
	}
}
