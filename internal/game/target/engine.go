package target

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"funora/internal/game"
	"funora/internal/model"
)

// Intent types for the round loop. reveal and next_round are host-gated by
// the service layer; the engine itself only checks phase legality.
const (
	IntentSubmit    = "submit"
	IntentReveal    = "reveal"
	IntentNextRound = "next_round"
)

// Rules is the per-game variation point: how a round's prompt and target
// come to be, and how distance-to-target turns into score deltas.
type Rules interface {
	GameID() string

	// Threshold is the cumulative score at or below which a player is
	// eliminated. Always negative.
	Threshold() int

	// Numeric reports whether submissions carry Value (true) or Text
	Numeric() bool

	// NextRound fills in the round's prompt, target and clue giver
	NextRound(rng *rand.Rand, s *State)

	// Score turns the round's submissions into per-player deltas
	Score(s *State) *RoundResult
}

// Engine runs the round loop shared by Wavelength, Herd Mentality and
// Boiling Water; all game-specific behavior lives in Rules.
type Engine struct {
	rules      Rules
	roundTimer time.Duration
	rng        *rand.Rand
	now        func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithRand replaces the prompt/target source, for deterministic tests
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock replaces the wall clock, for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a round-loop engine for the given rule set. roundTimer is how
// long a collecting round stays open before the worker forces the reveal;
// zero leaves it to the host.
func New(rules Rules, roundTimer time.Duration, opts ...Option) *Engine {
	e := &Engine{
		rules:      rules,
		roundTimer: roundTimer,
		rng:        rand.New(rand.NewSource(time.Now().UnixNano())),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) ID() string { return e.rules.GameID() }

// Init opens round one for the given roster
func (e *Engine) Init(roster []model.RosterEntry) (json.RawMessage, error) {
	if len(roster) < 2 {
		return nil, fmt.Errorf("%s needs at least 2 players, got %d", e.rules.GameID(), len(roster))
	}
	s := &State{
		GameID:      e.rules.GameID(),
		Round:       1,
		Submissions: map[string]Submission{},
		Players:     make(map[string]*PlayerScore, len(roster)),
		Order:       make([]string, 0, len(roster)),
		Phase:       PhaseCollecting,
	}
	for _, entry := range roster {
		s.Players[entry.PlayerID] = &PlayerScore{
			PlayerID:    entry.PlayerID,
			DisplayName: entry.DisplayName,
		}
		s.Order = append(s.Order, entry.PlayerID)
	}
	e.rules.NextRound(e.rng, s)
	e.openRound(s)
	e.logf(s, "Round 1: %s", s.Prompt)
	return json.Marshal(s)
}

// Apply decodes the document, applies one intent, and re-encodes
func (e *Engine) Apply(doc json.RawMessage, intent model.Intent) (json.RawMessage, error) {
	var s State
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode %s document: %w", e.rules.GameID(), err)
	}
	if s.Phase == PhaseGameOver {
		return nil, game.ErrGameOver
	}

	var err error
	switch intent.Type {
	case IntentSubmit:
		var sub Submission
		if err = json.Unmarshal(intent.Payload, &sub); err == nil {
			err = e.submit(&s, intent.PlayerID, sub)
		}
	case IntentReveal, model.IntentWindowClosed:
		err = e.reveal(&s)
	case IntentNextRound:
		err = e.nextRound(&s)
	default:
		err = fmt.Errorf("%w: %q", game.ErrUnknownIntent, intent.Type)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(&s)
}

// Deadline reports when the collecting round auto-reveals
func (e *Engine) Deadline(doc json.RawMessage) (time.Time, bool) {
	var s struct {
		RoundEndsAt *time.Time `json:"roundEndsAt"`
	}
	if err := json.Unmarshal(doc, &s); err != nil || s.RoundEndsAt == nil {
		return time.Time{}, false
	}
	return *s.RoundEndsAt, true
}

func (e *Engine) submit(s *State, playerID string, sub Submission) error {
	if s.Phase != PhaseCollecting {
		return fmt.Errorf("%w: round is not collecting", game.ErrIllegalIntent)
	}
	p := s.Players[playerID]
	if p == nil || p.Eliminated {
		return fmt.Errorf("%w: %q is not in the round", game.ErrIllegalIntent, playerID)
	}
	if playerID == s.ClueGiverID {
		return fmt.Errorf("%w: the clue giver does not guess", game.ErrIllegalIntent)
	}
	if e.rules.Numeric() {
		sub.Text = ""
	} else {
		sub.Value = 0
	}
	s.Submissions[playerID] = sub

	if s.allSubmitted() {
		return e.reveal(s)
	}
	return nil
}

func (e *Engine) reveal(s *State) error {
	if s.Phase != PhaseCollecting {
		return fmt.Errorf("%w: nothing to reveal", game.ErrIllegalIntent)
	}

	result := e.rules.Score(s)
	for id, delta := range result.Deltas {
		if p := s.Players[id]; p != nil {
			p.Score += delta
		}
	}
	if result.Answer != "" {
		e.logf(s, "Round %d: the herd answered %q.", s.Round, result.Answer)
	} else if result.Target != 0 || e.rules.Numeric() {
		e.logf(s, "Round %d: the target was %g.", s.Round, result.Target)
	}

	for _, id := range s.Order {
		p := s.Players[id]
		if p == nil || p.Eliminated {
			continue
		}
		if p.Score <= e.rules.Threshold() {
			p.Eliminated = true
			result.Eliminated = append(result.Eliminated, id)
			e.logf(s, "%s is eliminated at %d points.", p.DisplayName, p.Score)
		}
	}

	s.RoundResult = result
	s.Phase = PhaseRevealed
	s.RoundEndsAt = nil

	if s.activeCount() <= 1 {
		s.Phase = PhaseGameOver
		s.WinnerID = e.pickWinner(s)
		e.logf(s, "%s wins the game!", s.Players[s.WinnerID].DisplayName)
	}
	return nil
}

func (e *Engine) nextRound(s *State) error {
	if s.Phase != PhaseRevealed {
		return fmt.Errorf("%w: the round is still open", game.ErrIllegalIntent)
	}
	s.Round++
	s.Submissions = map[string]Submission{}
	s.RoundResult = nil
	s.Target = nil
	e.rules.NextRound(e.rng, s)
	s.Phase = PhaseCollecting
	e.openRound(s)
	e.logf(s, "Round %d: %s", s.Round, s.Prompt)
	return nil
}

// pickWinner returns the last player standing, or on a simultaneous wipeout
// the best cumulative score among the fallen.
func (e *Engine) pickWinner(s *State) string {
	var winner string
	best := 0
	for _, id := range s.Order {
		p := s.Players[id]
		if !p.Eliminated {
			return id
		}
		if winner == "" || p.Score > best {
			winner, best = id, p.Score
		}
	}
	return winner
}

func (e *Engine) openRound(s *State) {
	if e.roundTimer <= 0 {
		s.RoundEndsAt = nil
		return
	}
	ends := e.now().Add(e.roundTimer)
	s.RoundEndsAt = &ends
}

func (e *Engine) logf(s *State, format string, args ...interface{}) {
	s.ActivityLog = append(s.ActivityLog, model.LogEntry{
		ID:        uuid.New().String(),
		Text:      fmt.Sprintf(format, args...),
		Timestamp: e.now(),
	})
}
