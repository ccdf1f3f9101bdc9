package api

import "errors"

// Validator - интерфейс, который могут реализовать DTO
type Validator interface {
	Validate() error
}

func (p TokenMovePayload) Validate() error {
	if p.SceneID == "" {
		return errors.New("sceneId is required")
	}
	return nil
}

func (p UpdateScenarioPayload) Validate() error {
	if p.ScenarioID == "" {
		return errors.New("scenarioId is required")
	}
	return nil
}

func (p SendMessagePayload) Validate() error {
	if p.Message.Text == "" {
		return errors.New("message text is required")
	}
	return nil
}

func (p CharacterDataPayload) Validate() error {
	if p.CharacterID <= 0 {
		return errors.New("characterId is required")
	}
	return nil
}
