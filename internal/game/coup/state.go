package coup

import (
	"fmt"
	"time"

	"funora/internal/model"
)

// Role is one of the five influence roles in the deck
type Role string

const (
	RoleChancellor Role = "chancellor" // tax, blocks foreign aid
	RoleShadow     Role = "shadow"     // assassinate
	RoleAgent      Role = "agent"      // steal, blocks steal
	RoleDiplomat   Role = "diplomat"   // exchange, blocks steal
	RoleProtector  Role = "protector"  // blocks assassinate
)

// Roles lists every role in a fixed order, used for deck construction
var Roles = []Role{RoleChancellor, RoleShadow, RoleAgent, RoleDiplomat, RoleProtector}

// CopiesPerRole is the number of copies of each role in the deck
const CopiesPerRole = 3

// DeckSize is the total card count (5 roles x 3 copies), invariant across
// the whole game
const DeckSize = 15

// Influence is a single card. Cards are never created or destroyed after
// init, only moved between the deck and hands or flagged revealed.
type Influence struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Revealed bool   `json:"revealed"`
}

// PlayerState is one seat's view in the shared document
type PlayerState struct {
	PlayerID    string      `json:"playerId"`
	DisplayName string      `json:"displayName"`
	Coins       int         `json:"coins"`
	Influences  []Influence `json:"influences"`
	Alive       bool        `json:"alive"`
}

func (p *PlayerState) unrevealedCount() int {
	n := 0
	for _, inf := range p.Influences {
		if !inf.Revealed {
			n++
		}
	}
	return n
}

func (p *PlayerState) holdsUnrevealed(role Role) bool {
	for _, inf := range p.Influences {
		if !inf.Revealed && inf.Role == role {
			return true
		}
	}
	return false
}

// Phase is the current stop in the turn's contest pipeline
type Phase string

const (
	PhaseChooseAction    Phase = "choose_action"
	PhaseChallengeAction Phase = "pending_challenge_on_action"
	PhaseBlock           Phase = "pending_block"
	PhaseChallengeBlock  Phase = "pending_challenge_on_block"
	PhaseLoseInfluence   Phase = "choose_influence_to_lose"
	PhaseGameOver        Phase = "game_over"
)

// PendingAction is the in-flight action awaiting contest resolution
type PendingAction struct {
	ActorID     string     `json:"actorId"`
	Type        ActionType `json:"type"`
	ClaimedRole Role       `json:"claimedRole,omitempty"`
	TargetID    string     `json:"targetId,omitempty"`
}

// PendingBlock is a declared block awaiting a counter-challenge
type PendingBlock struct {
	BlockerID      string     `json:"blockerId"`
	Role           Role       `json:"role"`
	BlockingAction ActionType `json:"blockingAction"`
}

// Resume tells the lose-influence phase what to do once the designated
// loser has picked a card.
type Resume string

const (
	// ResumeAdvance clears all pending state and advances the turn
	ResumeAdvance Resume = "advance"
	// ResumeApplyAction applies the pending action's effect, then advances
	ResumeApplyAction Resume = "apply_action"
	// ResumeAwaitBlock moves the pending action on to its block window
	ResumeAwaitBlock Resume = "await_block"
)

// RevealInfo identifies who must lose a card and what happens afterwards.
// RevealedPlayerID/RevealedRole record a vindicated truthful claim, for the
// activity log and clients that animate the proof.
type RevealInfo struct {
	LoserPlayerID    string `json:"loserPlayerId"`
	RevealedPlayerID string `json:"revealedPlayerId,omitempty"`
	RevealedRole     Role   `json:"revealedRole,omitempty"`
	Resume           Resume `json:"resume"`
}

// State is the full Coup document for one room. It is the only thing
// clients render from and the only thing the engine transitions over.
type State struct {
	Players          map[string]*PlayerState `json:"players"`
	Deck             []Influence             `json:"deck"`
	TurnOrder        []string                `json:"turnOrder"`
	CurrentTurnIndex int                     `json:"currentTurnIndex"`
	Phase            Phase                   `json:"phase"`
	PendingAction    *PendingAction          `json:"pendingAction,omitempty"`
	PendingBlock     *PendingBlock           `json:"pendingBlock,omitempty"`
	RevealInfo       *RevealInfo             `json:"revealInfo,omitempty"`
	WindowDeadline   *time.Time              `json:"windowDeadline,omitempty"`
	ActivityLog      []model.LogEntry        `json:"activityLog"`
	WinnerID         string                  `json:"winnerId,omitempty"`
}

func (s *State) player(id string) *PlayerState {
	return s.Players[id]
}

func (s *State) currentPlayer() *PlayerState {
	if len(s.TurnOrder) == 0 {
		return nil
	}
	return s.Players[s.TurnOrder[s.CurrentTurnIndex]]
}

// Validate checks the structural invariants every reachable state must
// satisfy: card conservation, alive consistency, and that pending records
// match the phase. Used by tests after every transition.
func (s *State) Validate() error {
	total := len(s.Deck)
	counts := map[Role]int{}
	for _, c := range s.Deck {
		counts[c.Role]++
	}
	for id, p := range s.Players {
		total += len(p.Influences)
		for _, c := range p.Influences {
			counts[c.Role]++
		}
		if alive := p.unrevealedCount() > 0; alive != p.Alive {
			return fmt.Errorf("player %s: alive=%v but %d unrevealed influences", id, p.Alive, p.unrevealedCount())
		}
	}
	if total != DeckSize {
		return fmt.Errorf("card count %d, want %d", total, DeckSize)
	}
	for _, r := range Roles {
		if counts[r] != CopiesPerRole {
			return fmt.Errorf("role %s has %d copies, want %d", r, counts[r], CopiesPerRole)
		}
	}

	switch s.Phase {
	case PhaseChooseAction:
		if s.PendingAction != nil || s.PendingBlock != nil || s.RevealInfo != nil {
			return fmt.Errorf("phase %s carries pending state", s.Phase)
		}
	case PhaseChallengeAction, PhaseBlock:
		if s.PendingAction == nil || s.PendingBlock != nil {
			return fmt.Errorf("phase %s: want pending action only", s.Phase)
		}
	case PhaseChallengeBlock:
		if s.PendingAction == nil || s.PendingBlock == nil {
			return fmt.Errorf("phase %s: want pending action and block", s.Phase)
		}
	case PhaseLoseInfluence:
		if s.RevealInfo == nil {
			return fmt.Errorf("phase %s: missing reveal info", s.Phase)
		}
	case PhaseGameOver:
		if s.WinnerID == "" {
			return fmt.Errorf("game over without winner")
		}
	default:
		return fmt.Errorf("unknown phase %q", s.Phase)
	}

	winners := 0
	for _, p := range s.Players {
		if p.Alive {
			winners++
		}
	}
	if (winners == 1) != (s.WinnerID != "") {
		return fmt.Errorf("winner %q inconsistent with %d alive players", s.WinnerID, winners)
	}
	return nil
}

func (s *State) displayName(id string) string {
	if p := s.Players[id]; p != nil && p.DisplayName != "" {
		return p.DisplayName
	}
	return "Player"
}
