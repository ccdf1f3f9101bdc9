package domain

import "sort"

// Combatant - проекция токена в контекст трекера инициативы.
type Combatant struct {
	TokenID    int    `json:"tokenId"`
	Name       string `json:"name"`
	Initiative int    `json:"initiative"`
	CurrentHP  int    `json:"currentHp"`
	MaxHP      int    `json:"maxHp"`
	ArmorClass int    `json:"armorClass"`
	// PlayerOwnerID - ID игрока, управляющего комбатантом. nil для NPC.
	PlayerOwnerID *int `json:"playerOwnerId"`
	DamageDealt   int  `json:"damageDealt"`
	DamageTaken   int  `json:"damageTaken"`
}

// InitiativeState - зеркалируемое состояние трекера ходов.
// Сервер и клиенты всегда обмениваются им целиком, без дельт.
type InitiativeState struct {
	Combatants       []Combatant `json:"combatants"`
	CurrentTurnIndex int         `json:"currentTurnIndex"`
}

// SortByInitiative возвращает комбатантов в порядке ходов: по убыванию инициативы,
// при равенстве сохраняется исходный порядок вставки (стабильная сортировка).
func SortByInitiative(combatants []Combatant) []Combatant {
	out := make([]Combatant, len(combatants))
	copy(out, combatants)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Initiative > out[j].Initiative
	})
	return out
}

// Clone возвращает глубокую копию состояния инициативы.
func (st *InitiativeState) Clone() InitiativeState {
	out := *st
	out.Combatants = make([]Combatant, len(st.Combatants))
	copy(out.Combatants, st.Combatants)
	return out
}
