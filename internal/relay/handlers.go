package relay

import (
	"github.com/Gustavo0x1/Dmaster-sub000/internal/domain"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/api"
	"github.com/Gustavo0x1/Dmaster-sub000/pkg/logger"
	"github.com/sirupsen/logrus"
)

// handleTokenMove применяет точечную мутацию позиции и рассылает дельту ВСЕМ
// соединениям, включая отправителя. Ненайденный сценарий/токен - silent drop:
// логируем и ничего не отвечаем (подтверждений в протоколе нет).
func handleTokenMove(ctx Context, p api.TokenMovePayload) error {
	if !ctx.Store.ApplyTokenMove(p.SceneID, p.TokenID, p.PosX, p.PosY) {
		logger.WithComponent("relay").WithFields(logrus.Fields{
			"scene_id": p.SceneID,
			"token_id": p.TokenID,
		}).Warn("Token move target not found, dropping")
		return nil
	}

	ctx.Hub.Broadcast(api.NewEnvelope(api.TypeSyncTokenPosition, api.TokenPositionPayload{
		ID: p.TokenID,
		X:  p.PosX,
		Y:  p.PosY,
	}))
	return nil
}

// handleUpdateScenario заменяет сценарий целиком (last-write-wins, без слияния)
// и рассылает новое состояние всем, включая отправителя.
func handleUpdateScenario(ctx Context, p api.UpdateScenarioPayload) error {
	ctx.Store.Replace(p.ScenarioID, p.Tokens, p.Map)

	sc := ctx.Store.Get(p.ScenarioID)
	ctx.Hub.Broadcast(api.NewEnvelope(api.TypeSyncScenario, api.UpdateScenarioPayload{
		ScenarioID: sc.ID,
		Tokens:     sc.Tokens,
		Map:        sc.MapRef,
	}))
	return nil
}

// handleSendMessage дописывает сообщение в журнал (с FIFO-вытеснением за
// границей в 50 записей), синхронно персистит журнал и рассылает всем.
// ID и timestamp сообщения назначает клиент: по этой паре он отличает
// собственное оптимистичное эхо от серверной рассылки.
func handleSendMessage(ctx Context, p api.SendMessagePayload) error {
	msg := p.Message
	if msg.ID == 0 {
		msg.ID = p.ID
	}

	ctx.Ledger.Append(msg)
	ctx.Hub.Broadcast(api.NewEnvelope(api.TypeNewChatMessage, msg))
	return nil
}

// handleChatHistory отвечает ТОЛЬКО запросившему соединению (point-to-point).
func handleChatHistory(ctx Context) error {
	ctx.Hub.SendTo(ctx.ConnID, api.NewEnvelope(api.TypeChatHistory, api.ChatHistoryPayload(ctx.Ledger.Messages())))
	return nil
}

// handleInitialState - ресинк после реконнекта: полный снимок запросившему.
func handleInitialState(ctx Context) error {
	ctx.Hub.SendTo(ctx.ConnID, api.NewEnvelope(api.TypeSyncAll, ctx.Store.Snapshot()))
	ctx.Hub.SendTo(ctx.ConnID, api.NewEnvelope(api.TypeSyncInitiative, api.InitiativePayload(ctx.Initiative.Clone())))
	return nil
}

// handleUpdateInitiative принимает состояние трекера целиком и зеркалит его всем.
// Дельт у трекера нет: список комбатантов и индекс хода всегда ходят вместе.
func handleUpdateInitiative(ctx Context, p api.InitiativePayload) error {
	st := domain.InitiativeState(p)
	*ctx.Initiative = st.Clone()

	ctx.Hub.Broadcast(api.NewEnvelope(api.TypeSyncInitiative, api.InitiativePayload(ctx.Initiative.Clone())))
	return nil
}

// handleCharacterData - маршрутизация к стору листов. Ядро содержимое листа
// не интерпретирует. Ответ уходит только запросившему.
func handleCharacterData(ctx Context, p api.CharacterDataPayload) error {
	if ctx.Sheets == nil {
		logger.WithComponent("relay").Warn("Character data requested but no sheet store configured")
		return nil
	}

	sheet, err := ctx.Sheets.Sheet(p.CharacterID)
	if err != nil {
		return err
	}

	ctx.Hub.SendTo(ctx.ConnID, api.NewEnvelope(api.TypeCharacterData, api.CharacterDataPayload{
		CharacterID: p.CharacterID,
		Sheet:       sheet,
	}))
	return nil
}

func handleSaveCharacter(ctx Context, p api.CharacterDataPayload) error {
	if ctx.Sheets == nil {
		logger.WithComponent("relay").Warn("Character save requested but no sheet store configured")
		return nil
	}
	return ctx.Sheets.SaveSheet(p.CharacterID, p.Sheet)
}
