package target

import (
	"time"

	"funora/internal/model"
)

// Phase of the round loop shared by every closest-to-target game
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseRevealed   Phase = "revealed"
	PhaseGameOver   Phase = "game_over"
)

// Submission is one player's answer for the current round. Numeric games
// use Value, Herd Mentality uses Text.
type Submission struct {
	Value float64 `json:"value,omitempty"`
	Text  string  `json:"text,omitempty"`
}

// PlayerScore is a seat's cumulative standing
type PlayerScore struct {
	PlayerID    string `json:"playerId"`
	DisplayName string `json:"displayName"`
	Score       int    `json:"score"`
	Eliminated  bool   `json:"eliminated"`
}

// RoundResult is the outcome of a revealed round, kept in the document so
// clients can render the breakdown until the next round starts.
type RoundResult struct {
	Target     float64        `json:"target,omitempty"`
	Answer     string         `json:"answer,omitempty"` // plurality answer for Herd Mentality
	Deltas     map[string]int `json:"deltas"`
	ClosestIDs []string       `json:"closestIds,omitempty"`
	Eliminated []string       `json:"eliminated,omitempty"`
}

// State is the shared document for Wavelength, Herd Mentality and Boiling
// Water. Submissions merge additively by player key, so concurrent submits
// never clobber each other.
type State struct {
	GameID      string                  `json:"gameId"`
	Round       int                     `json:"round"`
	Prompt      string                  `json:"prompt"`
	Target      *float64                `json:"target,omitempty"`      // fixed in advance (Wavelength); derived games leave it unset until reveal
	ClueGiverID string                  `json:"clueGiverId,omitempty"` // Wavelength only
	Submissions map[string]Submission   `json:"submissions"`
	Players     map[string]*PlayerScore `json:"players"`
	Order       []string                `json:"order"`
	Phase       Phase                   `json:"phase"`
	RoundResult *RoundResult            `json:"roundResult,omitempty"`
	RoundEndsAt *time.Time              `json:"roundEndsAt,omitempty"`
	ActivityLog []model.LogEntry        `json:"activityLog"`
	WinnerID    string                  `json:"winnerId,omitempty"`
}

func (s *State) activeCount() int {
	n := 0
	for _, p := range s.Players {
		if !p.Eliminated {
			n++
		}
	}
	return n
}

// submitters are the players expected to answer this round: everyone still
// standing, minus the clue giver where there is one.
func (s *State) submitters() []string {
	out := make([]string, 0, len(s.Order))
	for _, id := range s.Order {
		if p := s.Players[id]; p != nil && !p.Eliminated && id != s.ClueGiverID {
			out = append(out, id)
		}
	}
	return out
}

func (s *State) allSubmitted() bool {
	for _, id := range s.submitters() {
		if _, ok := s.Submissions[id]; !ok {
			return false
		}
	}
	return true
}
