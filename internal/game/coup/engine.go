package coup

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"funora/internal/game"
	"funora/internal/model"
)

// Intent types understood by the engine, alongside model.IntentWindowClosed
const (
	IntentDeclareAction = "declare_action"
	IntentChallenge     = "challenge"
	IntentBlock         = "block"
	IntentLoseInfluence = "lose_influence"
)

const (
	MinPlayers = 2
	MaxPlayers = 6
)

// Engine implements the Coup state machine. It holds no per-room state;
// everything lives in the document, so one engine instance can serve a room
// for the whole game.
type Engine struct {
	rng    *rand.Rand
	window time.Duration
	now    func() time.Time
}

// Option configures an Engine
type Option func(*Engine)

// WithRand replaces the shuffle source, for deterministic tests
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock replaces the wall clock, for deterministic tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New creates a Coup engine. window is how long challenge and block windows
// stay open before the room worker auto-closes them; zero disables the
// deadline and leaves closing to the host.
func New(window time.Duration, opts ...Option) *Engine {
	e := &Engine{
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
		window: window,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) ID() string { return model.GameCoup }

// Init deals two influences and two coins to every seat and opens the first
// turn. Seating follows roster order.
func (e *Engine) Init(roster []model.RosterEntry) (json.RawMessage, error) {
	if len(roster) < MinPlayers || len(roster) > MaxPlayers {
		return nil, fmt.Errorf("coup needs %d-%d players, got %d", MinPlayers, MaxPlayers, len(roster))
	}

	deck := make([]Influence, 0, DeckSize)
	for _, role := range Roles {
		for i := 0; i < CopiesPerRole; i++ {
			deck = append(deck, Influence{ID: uuid.New().String(), Role: role})
		}
	}
	e.rng.Shuffle(len(deck), func(i, j int) {
		deck[i], deck[j] = deck[j], deck[i]
	})

	s := &State{
		Players:   make(map[string]*PlayerState, len(roster)),
		TurnOrder: make([]string, 0, len(roster)),
		Phase:     PhaseChooseAction,
	}
	for _, entry := range roster {
		hand := []Influence{deck[0], deck[1]}
		deck = deck[2:]
		s.Players[entry.PlayerID] = &PlayerState{
			PlayerID:    entry.PlayerID,
			DisplayName: entry.DisplayName,
			Coins:       2,
			Influences:  hand,
			Alive:       true,
		}
		s.TurnOrder = append(s.TurnOrder, entry.PlayerID)
	}
	s.Deck = deck

	e.logf(s, "Game started with %d players. %s goes first.", len(roster), s.displayName(s.TurnOrder[0]))
	return json.Marshal(s)
}

// Apply decodes the document, applies one intent, and re-encodes. The input
// bytes are never modified; an error means the document must stay as-is.
func (e *Engine) Apply(doc json.RawMessage, intent model.Intent) (json.RawMessage, error) {
	var s State
	if err := json.Unmarshal(doc, &s); err != nil {
		return nil, fmt.Errorf("decode coup document: %w", err)
	}
	if s.Phase == PhaseGameOver {
		return nil, game.ErrGameOver
	}

	var err error
	switch intent.Type {
	case IntentDeclareAction:
		var p struct {
			Action   ActionType `json:"action"`
			TargetID string     `json:"targetId"`
		}
		if err = json.Unmarshal(intent.Payload, &p); err == nil {
			err = e.declareAction(&s, intent.PlayerID, p.Action, p.TargetID)
		}
	case IntentChallenge:
		err = e.challenge(&s, intent.PlayerID)
	case IntentBlock:
		var p struct {
			Role Role `json:"role"`
		}
		if err = json.Unmarshal(intent.Payload, &p); err == nil {
			err = e.block(&s, intent.PlayerID, p.Role)
		}
	case IntentLoseInfluence:
		var p struct {
			InfluenceID string `json:"influenceId"`
		}
		if err = json.Unmarshal(intent.Payload, &p); err == nil {
			err = e.loseInfluence(&s, intent.PlayerID, p.InfluenceID)
		}
	case model.IntentWindowClosed:
		err = e.windowClosed(&s)
	default:
		err = fmt.Errorf("%w: %q", game.ErrUnknownIntent, intent.Type)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(&s)
}

// Deadline reports when the open challenge/block window auto-closes
func (e *Engine) Deadline(doc json.RawMessage) (time.Time, bool) {
	var s struct {
		WindowDeadline *time.Time `json:"windowDeadline"`
	}
	if err := json.Unmarshal(doc, &s); err != nil || s.WindowDeadline == nil {
		return time.Time{}, false
	}
	return *s.WindowDeadline, true
}

func (e *Engine) declareAction(s *State, playerID string, action ActionType, targetID string) error {
	if s.Phase != PhaseChooseAction {
		return fmt.Errorf("%w: cannot declare an action during %s", game.ErrIllegalIntent, s.Phase)
	}
	actor := s.currentPlayer()
	if actor == nil || actor.PlayerID != playerID {
		return fmt.Errorf("%w: not %s's turn", game.ErrIllegalIntent, playerID)
	}
	spec, ok := action.spec()
	if !ok {
		return fmt.Errorf("%w: unknown action %q", game.ErrIllegalIntent, action)
	}
	if actor.Coins < spec.Cost {
		return fmt.Errorf("%w: %s costs %d coins, have %d", game.ErrIllegalIntent, action, spec.Cost, actor.Coins)
	}
	var target *PlayerState
	if spec.RequiresTarget {
		target = s.player(targetID)
		if target == nil || !target.Alive || targetID == playerID {
			return fmt.Errorf("%w: invalid target %q", game.ErrIllegalIntent, targetID)
		}
	}

	// Costs are paid up front and are not refunded if the action is later
	// blocked or proven a bluff.
	actor.Coins -= spec.Cost

	pending := &PendingAction{
		ActorID:     actor.PlayerID,
		Type:        action,
		ClaimedRole: spec.ClaimedRole,
		TargetID:    targetID,
	}

	switch {
	case action == ActionIncome:
		actor.Coins++
		e.logf(s, "%s takes income (+1 coin).", actor.DisplayName)
		e.advanceTurn(s)
	case action == ActionCoup:
		e.logf(s, "%s launches a coup against %s.", actor.DisplayName, s.displayName(targetID))
		e.beginReveal(s, targetID, ResumeAdvance)
	case spec.ClaimedRole != "":
		s.PendingAction = pending
		s.Phase = PhaseChallengeAction
		e.openWindow(s)
		if targetID != "" {
			e.logf(s, "%s claims %s to %s, targeting %s.", actor.DisplayName, spec.ClaimedRole, action, s.displayName(targetID))
		} else {
			e.logf(s, "%s claims %s to %s.", actor.DisplayName, spec.ClaimedRole, action)
		}
	default:
		// Foreign aid claims no role, so there is nothing to challenge;
		// it goes straight to its block window.
		s.PendingAction = pending
		s.Phase = PhaseBlock
		e.openWindow(s)
		e.logf(s, "%s requests foreign aid.", actor.DisplayName)
	}
	return nil
}

func (e *Engine) challenge(s *State, challengerID string) error {
	challenger := s.player(challengerID)
	if challenger == nil || !challenger.Alive {
		return fmt.Errorf("%w: challenger %q not in play", game.ErrIllegalIntent, challengerID)
	}

	switch s.Phase {
	case PhaseChallengeAction:
		pa := s.PendingAction
		if challengerID == pa.ActorID {
			return fmt.Errorf("%w: cannot challenge your own claim", game.ErrIllegalIntent)
		}
		actor := s.player(pa.ActorID)
		e.logf(s, "%s challenges %s's claim of %s.", challenger.DisplayName, actor.DisplayName, pa.ClaimedRole)
		if actor.holdsUnrevealed(pa.ClaimedRole) {
			// Truthful claim: the challenger pays, the action survives.
			// The proven card is shuffled back and replaced.
			e.swapProvenCard(s, actor, pa.ClaimedRole)
			e.logf(s, "%s proves %s. %s must lose an influence.", actor.DisplayName, pa.ClaimedRole, challenger.DisplayName)
			resume := ResumeApplyAction
			if spec, _ := pa.Type.spec(); len(spec.BlockableBy) > 0 {
				resume = ResumeAwaitBlock
			}
			s.RevealInfo = &RevealInfo{
				LoserPlayerID:    challengerID,
				RevealedPlayerID: actor.PlayerID,
				RevealedRole:     pa.ClaimedRole,
				Resume:           resume,
			}
		} else {
			// Bluff: the action dies here and the actor pays.
			e.logf(s, "%s was bluffing and must lose an influence. The %s is cancelled.", actor.DisplayName, pa.Type)
			s.PendingAction = nil
			s.RevealInfo = &RevealInfo{LoserPlayerID: pa.ActorID, Resume: ResumeAdvance}
		}
		s.Phase = PhaseLoseInfluence
		s.WindowDeadline = nil
		return nil

	case PhaseChallengeBlock:
		pb := s.PendingBlock
		if challengerID == pb.BlockerID {
			return fmt.Errorf("%w: cannot challenge your own block", game.ErrIllegalIntent)
		}
		blocker := s.player(pb.BlockerID)
		e.logf(s, "%s challenges %s's block (%s).", challenger.DisplayName, blocker.DisplayName, pb.Role)
		if blocker.holdsUnrevealed(pb.Role) {
			// The block stands, so the original action is dead too.
			e.swapProvenCard(s, blocker, pb.Role)
			e.logf(s, "%s proves %s. The %s stays blocked and %s must lose an influence.", blocker.DisplayName, pb.Role, s.PendingAction.Type, challenger.DisplayName)
			s.RevealInfo = &RevealInfo{
				LoserPlayerID:    challengerID,
				RevealedPlayerID: blocker.PlayerID,
				RevealedRole:     pb.Role,
				Resume:           ResumeAdvance,
			}
			s.PendingAction = nil
			s.PendingBlock = nil
		} else {
			// Bluffed block: it evaporates and the original action goes
			// through after the blocker pays.
			e.logf(s, "%s was bluffing the block and must lose an influence. The %s proceeds.", blocker.DisplayName, s.PendingAction.Type)
			s.PendingBlock = nil
			s.RevealInfo = &RevealInfo{LoserPlayerID: pb.BlockerID, Resume: ResumeApplyAction}
		}
		s.Phase = PhaseLoseInfluence
		s.WindowDeadline = nil
		return nil

	default:
		return fmt.Errorf("%w: no open challenge window", game.ErrIllegalIntent)
	}
}

func (e *Engine) block(s *State, blockerID string, role Role) error {
	if s.Phase != PhaseBlock {
		return fmt.Errorf("%w: no open block window", game.ErrIllegalIntent)
	}
	pa := s.PendingAction
	blocker := s.player(blockerID)
	if blocker == nil || !blocker.Alive || blockerID == pa.ActorID {
		return fmt.Errorf("%w: %q cannot block", game.ErrIllegalIntent, blockerID)
	}
	// Targeted actions may only be blocked by their target; foreign aid by
	// anyone at the table.
	if pa.TargetID != "" && blockerID != pa.TargetID {
		return fmt.Errorf("%w: only the target may block %s", game.ErrIllegalIntent, pa.Type)
	}
	if !pa.Type.blockableByRole(role) {
		return fmt.Errorf("%w: %s does not block %s", game.ErrIllegalIntent, role, pa.Type)
	}

	s.PendingBlock = &PendingBlock{BlockerID: blockerID, Role: role, BlockingAction: pa.Type}
	s.Phase = PhaseChallengeBlock
	e.openWindow(s)
	e.logf(s, "%s claims %s to block the %s.", blocker.DisplayName, role, pa.Type)
	return nil
}

// windowClosed advances past an open contest window that nobody used. It is
// emitted by the room worker on deadline expiry, or by the host closing the
// window early.
func (e *Engine) windowClosed(s *State) error {
	switch s.Phase {
	case PhaseChallengeAction:
		pa := s.PendingAction
		if spec, _ := pa.Type.spec(); len(spec.BlockableBy) > 0 {
			s.Phase = PhaseBlock
			e.openWindow(s)
			e.logf(s, "Nobody challenged. %s may be blocked.", pa.Type)
			return nil
		}
		e.logf(s, "Nobody challenged.")
		e.applyPendingAction(s)
		return nil
	case PhaseBlock:
		e.logf(s, "Nobody blocked.")
		e.applyPendingAction(s)
		return nil
	case PhaseChallengeBlock:
		e.logf(s, "Nobody challenged the block. The %s is cancelled.", s.PendingAction.Type)
		s.PendingAction = nil
		s.PendingBlock = nil
		e.advanceTurn(s)
		return nil
	default:
		return fmt.Errorf("%w: no open window to close", game.ErrIllegalIntent)
	}
}

func (e *Engine) loseInfluence(s *State, playerID, influenceID string) error {
	// One reveal per pending loss; repeats arrive out of phase and are rejected.
	if s.Phase != PhaseLoseInfluence {
		return fmt.Errorf("%w: no influence loss pending", game.ErrIllegalIntent)
	}
	info := s.RevealInfo
	if playerID != info.LoserPlayerID {
		return fmt.Errorf("%w: it is %s who must lose an influence", game.ErrIllegalIntent, info.LoserPlayerID)
	}
	loser := s.player(playerID)

	revealed := false
	for i := range loser.Influences {
		if loser.Influences[i].ID == influenceID && !loser.Influences[i].Revealed {
			loser.Influences[i].Revealed = true
			e.logf(s, "%s reveals %s.", loser.DisplayName, loser.Influences[i].Role)
			revealed = true
			break
		}
	}
	if !revealed {
		return fmt.Errorf("%w: no unrevealed influence %q", game.ErrIllegalIntent, influenceID)
	}

	loser.Alive = loser.unrevealedCount() > 0
	if !loser.Alive {
		e.logf(s, "%s is out of the game.", loser.DisplayName)
	}

	resume := info.Resume
	s.RevealInfo = nil

	if e.checkGameOver(s) {
		return nil
	}

	switch resume {
	case ResumeApplyAction:
		e.applyPendingAction(s)
	case ResumeAwaitBlock:
		s.Phase = PhaseBlock
		e.openWindow(s)
		e.logf(s, "%s may still be blocked.", s.PendingAction.Type)
	default:
		s.PendingAction = nil
		s.PendingBlock = nil
		e.advanceTurn(s)
	}
	return nil
}

// applyPendingAction applies the pending action's effect once it has passed
// every contest stage, then advances the turn (or enters the loss phase for
// an assassination).
func (e *Engine) applyPendingAction(s *State) {
	pa := s.PendingAction
	actor := s.player(pa.ActorID)

	switch pa.Type {
	case ActionForeignAid:
		actor.Coins += 2
		e.logf(s, "%s receives foreign aid (+2 coins).", actor.DisplayName)
	case ActionTax:
		actor.Coins += 3
		e.logf(s, "%s collects tax (+3 coins).", actor.DisplayName)
	case ActionSteal:
		target := s.player(pa.TargetID)
		stolen := target.Coins
		if stolen > 2 {
			stolen = 2
		}
		target.Coins -= stolen
		actor.Coins += stolen
		if stolen == 0 {
			e.logf(s, "%s tries to steal from %s, who has no coins.", actor.DisplayName, target.DisplayName)
		} else {
			e.logf(s, "%s steals %d coins from %s.", actor.DisplayName, stolen, target.DisplayName)
		}
	case ActionExchange:
		e.exchange(s, actor)
	case ActionAssassinate:
		target := s.player(pa.TargetID)
		if target.Alive {
			e.logf(s, "The assassination of %s succeeds.", target.DisplayName)
			e.beginReveal(s, pa.TargetID, ResumeAdvance)
			return
		}
		// The target already fell during the contest; nothing left to do.
	}

	s.PendingAction = nil
	s.PendingBlock = nil
	e.advanceTurn(s)
}

// exchange draws two cards, then randomly keeps as many as the actor held
// unrevealed; the rest return to the deck. Revealed cards never move.
func (e *Engine) exchange(s *State, actor *PlayerState) {
	drawn := 2
	if drawn > len(s.Deck) {
		drawn = len(s.Deck)
	}
	pool := make([]Influence, 0, actor.unrevealedCount()+drawn)
	held := make([]int, 0, len(actor.Influences))
	for i, inf := range actor.Influences {
		if !inf.Revealed {
			pool = append(pool, inf)
			held = append(held, i)
		}
	}
	pool = append(pool, s.Deck[:drawn]...)
	s.Deck = s.Deck[drawn:]

	e.rng.Shuffle(len(pool), func(i, j int) {
		pool[i], pool[j] = pool[j], pool[i]
	})
	for n, slot := range held {
		actor.Influences[slot] = pool[n]
	}
	s.Deck = append(s.Deck, pool[len(held):]...)
	e.rng.Shuffle(len(s.Deck), func(i, j int) {
		s.Deck[i], s.Deck[j] = s.Deck[j], s.Deck[i]
	})
	e.logf(s, "%s exchanges cards with the deck.", actor.DisplayName)
}

// swapProvenCard returns a vindicated claimer's proven card to the deck and
// draws a replacement, so a successful proof leaks no lasting information.
func (e *Engine) swapProvenCard(s *State, p *PlayerState, role Role) {
	if len(s.Deck) == 0 {
		return
	}
	for i := range p.Influences {
		if !p.Influences[i].Revealed && p.Influences[i].Role == role {
			s.Deck = append(s.Deck, p.Influences[i])
			e.rng.Shuffle(len(s.Deck), func(a, b int) {
				s.Deck[a], s.Deck[b] = s.Deck[b], s.Deck[a]
			})
			p.Influences[i] = s.Deck[0]
			p.Influences[i].Revealed = false
			s.Deck = s.Deck[1:]
			return
		}
	}
}

func (e *Engine) beginReveal(s *State, loserID string, resume Resume) {
	s.PendingAction = nil
	s.PendingBlock = nil
	s.RevealInfo = &RevealInfo{LoserPlayerID: loserID, Resume: resume}
	s.Phase = PhaseLoseInfluence
	s.WindowDeadline = nil
}

// advanceTurn scans forward from the current seat, wrapping, for the next
// alive player. The game-over check before every advance guarantees at
// least two candidates.
func (e *Engine) advanceTurn(s *State) {
	if e.checkGameOver(s) {
		return
	}
	for i := 1; i <= len(s.TurnOrder); i++ {
		idx := (s.CurrentTurnIndex + i) % len(s.TurnOrder)
		if s.Players[s.TurnOrder[idx]].Alive {
			s.CurrentTurnIndex = idx
			break
		}
	}
	s.Phase = PhaseChooseAction
	s.WindowDeadline = nil
	e.logf(s, "It is %s's turn.", s.displayName(s.TurnOrder[s.CurrentTurnIndex]))
}

func (e *Engine) checkGameOver(s *State) bool {
	var winner string
	alive := 0
	for id, p := range s.Players {
		if p.Alive {
			alive++
			winner = id
		}
	}
	if alive != 1 {
		return false
	}
	s.Phase = PhaseGameOver
	s.WinnerID = winner
	s.PendingAction = nil
	s.PendingBlock = nil
	s.RevealInfo = nil
	s.WindowDeadline = nil
	e.logf(s, "%s wins the game!", s.displayName(winner))
	return true
}

func (e *Engine) openWindow(s *State) {
	if e.window <= 0 {
		s.WindowDeadline = nil
		return
	}
	deadline := e.now().Add(e.window)
	s.WindowDeadline = &deadline
}

func (e *Engine) logf(s *State, format string, args ...interface{}) {
	s.ActivityLog = append(s.ActivityLog, model.LogEntry{
		ID:        uuid.New().String(),
		Text:      fmt.Sprintf(format, args...),
		Timestamp: e.now(),
	})
}
