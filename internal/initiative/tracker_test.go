package initiative

import (
	"testing"

	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
)

func intPtr(v int) *int { return &v }

func combatant(tokenID, init int) domain.Combatant {
	return domain.Combatant{TokenID: tokenID, Initiative: init}
}

func TestTurnOrderSorting(t *testing.T) {
	tr := NewTracker(1)
	tr.Add(combatant(1, 10))
	tr.Add(combatant(2, 20))
	tr.Add(combatant(3, 15))

	order := tr.InTurnOrder()
	wantIDs := []int{2, 3, 1}
	for i, want := range wantIDs {
		if order[i].TokenID != want {
			t.Errorf("order[%d].TokenID = %d, want %d", i, order[i].TokenID, want)
		}
	}
}

func TestTurnOrderStableTies(t *testing.T) {
	tr := NewTracker(1)
	// Равная инициатива: побеждает порядок вставки
	tr.Add(combatant(1, 12))
	tr.Add(combatant(2, 12))
	tr.Add(combatant(3, 20))
	tr.Add(combatant(4, 12))

	order := tr.InTurnOrder()
	wantIDs := []int{3, 1, 2, 4}
	for i, want := range wantIDs {
		if order[i].TokenID != want {
			t.Fatalf("order = %v, want ids %v", orderIDs(order), wantIDs)
		}
	}
}

func orderIDs(order []domain.Combatant) []int {
	out := make([]int, len(order))
	for i, c := range order {
		out[i] = c.TokenID
	}
	return out
}

func TestNextPreviousWrap(t *testing.T) {
	tr := NewTracker(1)
	tr.Add(combatant(1, 30))
	tr.Add(combatant(2, 20))
	tr.Add(combatant(3, 10))

	if tr.CurrentTurnIndex() != 0 {
		t.Fatalf("start index = %d, want 0", tr.CurrentTurnIndex())
	}

	tr.NextTurn()
	tr.NextTurn()
	if tr.CurrentTurnIndex() != 2 {
		t.Errorf("index = %d, want 2", tr.CurrentTurnIndex())
	}

	// Заворот вперед
	tr.NextTurn()
	if tr.CurrentTurnIndex() != 0 {
		t.Errorf("index after wrap = %d, want 0", tr.CurrentTurnIndex())
	}

	// Заворот назад
	tr.PreviousTurn()
	if tr.CurrentTurnIndex() != 2 {
		t.Errorf("index after backward wrap = %d, want 2", tr.CurrentTurnIndex())
	}
}

func TestEmptyListIsSafe(t *testing.T) {
	tr := NewTracker(1)

	tr.NextTurn()
	tr.PreviousTurn()

	if tr.CurrentTurnIndex() != 0 {
		t.Errorf("empty list index = %d, want 0", tr.CurrentTurnIndex())
	}
	if tr.Current() != nil {
		t.Error("Current() on empty list must be nil")
	}
}

func TestSingleCombatantRoundtrip(t *testing.T) {
	tr := NewTracker(1)
	tr.Add(combatant(1, 10))

	tr.NextTurn()
	tr.PreviousTurn()

	if tr.CurrentTurnIndex() != 0 {
		t.Errorf("index = %d, want 0", tr.CurrentTurnIndex())
	}
}

func TestInitiativeEditResorts(t *testing.T) {
	tr := NewTracker(1)
	tr.Add(combatant(1, 30))
	tr.Add(combatant(2, 20))
	tr.NextTurn() // ход у токена 2 (индекс 1)

	// Токен 2 поднимает инициативу выше токена 1 -> пересортировка.
	// Индекс хода НЕ следует за личностью: остается 1, и "чей ход"
	// молча становится токеном 1, который теперь занимает индекс 1.
	tr.SetInitiative(2, 50)

	order := tr.InTurnOrder()
	if order[0].TokenID != 2 || order[1].TokenID != 1 {
		t.Fatalf("order after edit = %v, want [2 1]", orderIDs(order))
	}
	if tr.CurrentTurnIndex() != 1 {
		t.Errorf("index after resort = %d, want 1 (not pinned to identity)", tr.CurrentTurnIndex())
	}
	if cur := tr.Current(); cur == nil || cur.TokenID != 1 {
		t.Errorf("current combatant = %+v, want token 1", cur)
	}
}

func TestYourTurnNotification(t *testing.T) {
	var notified []int
	tr := NewTracker(5)
	tr.OnYourTurn = func(c domain.Combatant) { notified = append(notified, c.TokenID) }

	tr.Add(domain.Combatant{TokenID: 1, Initiative: 30})
	tr.Add(domain.Combatant{TokenID: 2, Initiative: 20, PlayerOwnerID: intPtr(5)})
	tr.Add(domain.Combatant{TokenID: 3, Initiative: 10, PlayerOwnerID: intPtr(9)})

	tr.NextTurn() // токен 2, владелец 5 - наш
	tr.NextTurn() // токен 3, владелец 9 - чужой
	tr.NextTurn() // токен 1, NPC

	if len(notified) != 1 || notified[0] != 2 {
		t.Errorf("notified = %v, want [2]", notified)
	}
}

func TestApplyStateOverwrites(t *testing.T) {
	tr := NewTracker(1)
	tr.Add(combatant(1, 10))
	tr.Add(combatant(2, 20))

	var pushed int
	tr.OnChanged = func(domain.InitiativeState) { pushed++ }

	// Авторитетное состояние с сервера перезаписывает все и НЕ дергает
	// OnChanged (иначе клиенты зациклят эхо друг друга)
	tr.ApplyState(domain.InitiativeState{
		Combatants:       []domain.Combatant{combatant(7, 99)},
		CurrentTurnIndex: 0,
	})

	order := tr.InTurnOrder()
	if len(order) != 1 || order[0].TokenID != 7 {
		t.Fatalf("order after ApplyState = %v, want [7]", orderIDs(order))
	}
	if pushed != 0 {
		t.Errorf("ApplyState fired OnChanged %d times, want 0", pushed)
	}
}

func TestApplyStateClampsIndex(t *testing.T) {
	tr := NewTracker(1)

	tr.ApplyState(domain.InitiativeState{
		Combatants:       []domain.Combatant{combatant(1, 10)},
		CurrentTurnIndex: 5, // за границей списка
	})

	if tr.CurrentTurnIndex() != 0 {
		t.Errorf("out-of-range index not clamped: %d", tr.CurrentTurnIndex())
	}
}
