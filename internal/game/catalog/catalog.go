// Package catalog maps lobby game identifiers to engine instances. It is
// the only place that knows every game; everything downstream works through
// the game.Engine interface.
package catalog

import (
	"fmt"
	"time"

	"funora/internal/game"
	"funora/internal/game/coup"
	"funora/internal/game/target"
	"funora/internal/model"
)

// IDs lists every selectable game
func IDs() []string {
	return []string{model.GameCoup, model.GameWavelength, model.GameHerd, model.GameBoilingWater}
}

// New builds the engine for gameID with the room's settings applied
func New(gameID string, settings model.RoomSettings) (game.Engine, error) {
	window := time.Duration(settings.ChallengeWindowSec) * time.Second
	roundTimer := time.Duration(settings.RoundTimerSec) * time.Second

	switch gameID {
	case model.GameCoup:
		return coup.New(window), nil
	case model.GameWavelength:
		return target.New(target.Wavelength{}, roundTimer), nil
	case model.GameHerd:
		return target.New(target.HerdMentality{}, roundTimer), nil
	case model.GameBoilingWater:
		return target.New(target.BoilingWater{}, roundTimer), nil
	default:
		return nil, fmt.Errorf("unknown game %q", gameID)
	}
}
