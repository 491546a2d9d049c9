package game

import (
	"encoding/json"
	"errors"
	"time"

	"funora/internal/model"
)

var (
	// ErrIllegalIntent marks intents that are not legal in the current
	// document state (acting out of turn, insufficient coins, dead target).
	// The room worker drops these without patching the document.
	ErrIllegalIntent = errors.New("illegal intent for current state")

	// ErrUnknownIntent marks intent types the engine does not recognize
	ErrUnknownIntent = errors.New("unknown intent type")

	// ErrGameOver is returned for any intent submitted after the game ended
	ErrGameOver = errors.New("game is over")
)

// Engine is one mini-game's state machine. Implementations are pure with
// respect to the document: Apply never retains or mutates the input bytes,
// it returns a fresh next document. All ordering comes from the room worker,
// which applies intents one at a time.
type Engine interface {
	// ID returns the game identifier this engine implements
	ID() string

	// Init produces the initial game document for the given roster
	Init(roster []model.RosterEntry) (json.RawMessage, error)

	// Apply computes the next document from the current one and an intent.
	// Illegal or unknown intents return an error wrapping ErrIllegalIntent
	// or ErrUnknownIntent and leave the document unchanged.
	Apply(doc json.RawMessage, intent model.Intent) (json.RawMessage, error)

	// Deadline reports the instant at which the currently open
	// challenge/block/round window auto-closes, if one is open. The room
	// worker emits a window_closed intent when it expires.
	Deadline(doc json.RawMessage) (time.Time, bool)
}
