package relay

import (
	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
)

// ScenarioStore - единственный источник истины по сценариям.
// Мутируется ТОЛЬКО из цикла Service (run-to-completion, одно сообщение за раз),
// поэтому обходится без локов. Любой выход данных наружу - через глубокие копии.
type ScenarioStore struct {
	scenarios map[domain.ScenarioID]*domain.Scenario
}

func NewScenarioStore() *ScenarioStore {
	return &ScenarioStore{
		scenarios: make(map[domain.ScenarioID]*domain.Scenario),
	}
}

// SeedDefault создает стартовый сценарий, если стор пуст.
// Сценарии живут до конца процесса; штатного пути удаления нет.
func (st *ScenarioStore) SeedDefault() {
	if len(st.scenarios) > 0 {
		return
	}
	st.scenarios[domain.DefaultScenarioID] = &domain.Scenario{
		ID:     domain.DefaultScenarioID,
		Tokens: []domain.Token{},
		MapRef: "",
	}
}

// Get возвращает сценарий по ID или nil.
func (st *ScenarioStore) Get(id domain.ScenarioID) *domain.Scenario {
	return st.scenarios[id]
}

// Replace заменяет токены и карту сценария целиком (last-write-wins, без слияния).
// Неизвестный ID создает сценарий: так клиент заводит новые сцены.
func (st *ScenarioStore) Replace(id domain.ScenarioID, tokens []domain.Token, mapRef string) {
	sc, ok := st.scenarios[id]
	if !ok {
		sc = &domain.Scenario{ID: id}
		st.scenarios[id] = sc
	}
	sc.Tokens = make([]domain.Token, len(tokens))
	copy(sc.Tokens, tokens)
	sc.MapRef = mapRef
}

// ApplyTokenMove мутирует позицию токена. Возвращает false, если сценарий
// или токен не найдены - вызывающий решает, как это логировать.
func (st *ScenarioStore) ApplyTokenMove(sceneID domain.ScenarioID, tokenID, x, y int) bool {
	sc, ok := st.scenarios[sceneID]
	if !ok {
		return false
	}
	tok := sc.FindToken(tokenID)
	if tok == nil {
		return false
	}
	tok.GridX = x
	tok.GridY = y
	return true
}

// Snapshot возвращает глубокую копию всех сценариев для syncAll.
func (st *ScenarioStore) Snapshot() map[domain.ScenarioID]domain.Scenario {
	out := make(map[domain.ScenarioID]domain.Scenario, len(st.scenarios))
	for id, sc := range st.scenarios {
		out[id] = sc.Clone()
	}
	return out
}
