package coup

import (
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funora/internal/game"
	"funora/internal/model"
)

var testClock = time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

func newTestEngine(window time.Duration) *Engine {
	return New(window,
		WithRand(rand.New(rand.NewSource(7))),
		WithClock(func() time.Time { return testClock }),
	)
}

// buildState deals the requested hands to players p1..pN in seating order
// and leaves the remaining copies in the deck, so every built state passes
// the conservation check.
func buildState(hands ...[]Role) *State {
	pool := map[Role]int{}
	for _, r := range Roles {
		pool[r] = CopiesPerRole
	}
	card := 0
	next := func(role Role) Influence {
		pool[role]--
		card++
		return Influence{ID: fmt.Sprintf("c%d", card), Role: role}
	}

	s := &State{
		Players: map[string]*PlayerState{},
		Phase:   PhaseChooseAction,
	}
	for i, hand := range hands {
		id := fmt.Sprintf("p%d", i+1)
		ps := &PlayerState{
			PlayerID:    id,
			DisplayName: strings.ToUpper(id),
			Coins:       2,
			Alive:       true,
		}
		for _, r := range hand {
			ps.Influences = append(ps.Influences, next(r))
		}
		s.Players[id] = ps
		s.TurnOrder = append(s.TurnOrder, id)
	}
	for _, r := range Roles {
		for pool[r] > 0 {
			s.Deck = append(s.Deck, next(r))
		}
	}
	return s
}

func intent(t *testing.T, typ, playerID string, payload any) model.Intent {
	t.Helper()
	in := model.Intent{Type: typ, PlayerID: playerID}
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		in.Payload = raw
	}
	return in
}

// apply runs one intent through the engine and validates the resulting state
func apply(t *testing.T, e *Engine, s *State, in model.Intent) *State {
	t.Helper()
	doc, err := json.Marshal(s)
	require.NoError(t, err)
	next, err := e.Apply(doc, in)
	require.NoError(t, err)
	var out State
	require.NoError(t, json.Unmarshal(next, &out))
	require.NoError(t, out.Validate())
	return &out
}

func applyErr(t *testing.T, e *Engine, s *State, in model.Intent) error {
	t.Helper()
	doc, err := json.Marshal(s)
	require.NoError(t, err)
	next, err := e.Apply(doc, in)
	require.Error(t, err)
	assert.Nil(t, next)
	return err
}

func unrevealedID(t *testing.T, s *State, playerID string) string {
	t.Helper()
	for _, inf := range s.Players[playerID].Influences {
		if !inf.Revealed {
			return inf.ID
		}
	}
	t.Fatalf("%s has no unrevealed influence", playerID)
	return ""
}

func roster(n int) []model.RosterEntry {
	out := make([]model.RosterEntry, n)
	for i := range out {
		out[i] = model.RosterEntry{
			PlayerID:    fmt.Sprintf("p%d", i+1),
			DisplayName: fmt.Sprintf("Player %d", i+1),
		}
	}
	return out
}

func TestInit(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)

	doc, err := e.Init(roster(4))
	require.NoError(t, err)

	var s State
	require.NoError(t, json.Unmarshal(doc, &s))
	require.NoError(t, s.Validate())

	assert.Equal(t, PhaseChooseAction, s.Phase)
	assert.Len(t, s.Deck, DeckSize-8)
	assert.Equal(t, []string{"p1", "p2", "p3", "p4"}, s.TurnOrder)
	for _, p := range s.Players {
		assert.Equal(t, 2, p.Coins)
		assert.Len(t, p.Influences, 2)
		assert.True(t, p.Alive)
	}

	_, err = e.Init(roster(1))
	assert.Error(t, err)
	_, err = e.Init(roster(7))
	assert.Error(t, err)
}

func TestIncome(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleShadow, RoleShadow})

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionIncome}))

	assert.Equal(t, 3, s.Players["p1"].Coins)
	assert.Equal(t, PhaseChooseAction, s.Phase)
	assert.Equal(t, "p2", s.TurnOrder[s.CurrentTurnIndex])
}

func TestDeclareActionGuards(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleShadow, RoleShadow}, []Role{RoleDiplomat, RoleDiplomat})

	t.Run("out of turn", func(t *testing.T) {
		err := applyErr(t, e, s, intent(t, IntentDeclareAction, "p2", map[string]any{"action": ActionIncome}))
		assert.ErrorIs(t, err, game.ErrIllegalIntent)
	})

	t.Run("unknown action", func(t *testing.T) {
		err := applyErr(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": "overthrow"}))
		assert.ErrorIs(t, err, game.ErrIllegalIntent)
	})

	t.Run("cannot afford", func(t *testing.T) {
		err := applyErr(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionCoup, "targetId": "p2"}))
		assert.ErrorIs(t, err, game.ErrIllegalIntent)
	})

	t.Run("self target", func(t *testing.T) {
		err := applyErr(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionSteal, "targetId": "p1"}))
		assert.ErrorIs(t, err, game.ErrIllegalIntent)
	})

	t.Run("missing target", func(t *testing.T) {
		err := applyErr(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionSteal}))
		assert.ErrorIs(t, err, game.ErrIllegalIntent)
	})

	t.Run("unknown intent type", func(t *testing.T) {
		err := applyErr(t, e, s, intent(t, "dance", "p1", nil))
		assert.ErrorIs(t, err, game.ErrUnknownIntent)
	})
}

func TestTaxUnchallenged(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleChancellor, RoleAgent}, []Role{RoleShadow, RoleShadow})

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionTax}))
	assert.Equal(t, PhaseChallengeAction, s.Phase)

	// Tax has no blockers, so closing the challenge window applies it.
	s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))
	assert.Equal(t, 5, s.Players["p1"].Coins)
	assert.Equal(t, "p2", s.TurnOrder[s.CurrentTurnIndex])
}

func TestForeignAid(t *testing.T) {
	t.Parallel()

	t.Run("unblocked", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(0)
		s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleShadow, RoleShadow})

		s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionForeignAid}))
		// No role is claimed, so the action skips straight to its block window.
		assert.Equal(t, PhaseBlock, s.Phase)

		s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))
		assert.Equal(t, 4, s.Players["p1"].Coins)
	})

	t.Run("blocked and nobody contests", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(0)
		s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleChancellor, RoleShadow})

		s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionForeignAid}))
		s = apply(t, e, s, intent(t, IntentBlock, "p2", map[string]any{"role": RoleChancellor}))
		assert.Equal(t, PhaseChallengeBlock, s.Phase)

		s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))
		assert.Equal(t, 2, s.Players["p1"].Coins)
		assert.Equal(t, PhaseChooseAction, s.Phase)
		assert.Equal(t, "p2", s.TurnOrder[s.CurrentTurnIndex])
	})

	t.Run("any seat may block", func(t *testing.T) {
		t.Parallel()
		e := newTestEngine(0)
		s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleShadow, RoleShadow}, []Role{RoleChancellor, RoleDiplomat})

		s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionForeignAid}))
		s = apply(t, e, s, intent(t, IntentBlock, "p3", map[string]any{"role": RoleChancellor}))
		assert.Equal(t, "p3", s.PendingBlock.BlockerID)
	})
}

func TestChallengeTruthfulClaim(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleChancellor, RoleAgent}, []Role{RoleShadow, RoleShadow})

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionTax}))
	s = apply(t, e, s, intent(t, IntentChallenge, "p2", nil))

	require.Equal(t, PhaseLoseInfluence, s.Phase)
	require.NotNil(t, s.RevealInfo)
	assert.Equal(t, "p2", s.RevealInfo.LoserPlayerID)
	assert.Equal(t, "p1", s.RevealInfo.RevealedPlayerID)
	assert.Equal(t, RoleChancellor, s.RevealInfo.RevealedRole)
	assert.Equal(t, ResumeApplyAction, s.RevealInfo.Resume)
	// The proven card was shuffled back and replaced.
	assert.Equal(t, 2, s.Players["p1"].unrevealedCount())

	s = apply(t, e, s, intent(t, IntentLoseInfluence, "p2", map[string]any{"influenceId": unrevealedID(t, s, "p2")}))
	assert.Equal(t, 5, s.Players["p1"].Coins)
	assert.Equal(t, 1, s.Players["p2"].unrevealedCount())
	assert.True(t, s.Players["p2"].Alive)
	assert.Equal(t, "p2", s.TurnOrder[s.CurrentTurnIndex])
}

func TestChallengeBluff(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleShadow, RoleShadow})

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionTax}))
	s = apply(t, e, s, intent(t, IntentChallenge, "p2", nil))

	require.Equal(t, PhaseLoseInfluence, s.Phase)
	assert.Equal(t, "p1", s.RevealInfo.LoserPlayerID)
	assert.Nil(t, s.PendingAction)

	s = apply(t, e, s, intent(t, IntentLoseInfluence, "p1", map[string]any{"influenceId": unrevealedID(t, s, "p1")}))
	// The bluffed tax never pays out.
	assert.Equal(t, 2, s.Players["p1"].Coins)
	assert.Equal(t, "p2", s.TurnOrder[s.CurrentTurnIndex])
}

func TestChallengeGuards(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleChancellor, RoleAgent}, []Role{RoleShadow, RoleShadow})

	err := applyErr(t, e, s, intent(t, IntentChallenge, "p2", nil))
	assert.ErrorIs(t, err, game.ErrIllegalIntent)

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionTax}))

	err = applyErr(t, e, s, intent(t, IntentChallenge, "p1", nil))
	assert.ErrorIs(t, err, game.ErrIllegalIntent)

	err = applyErr(t, e, s, intent(t, IntentChallenge, "ghost", nil))
	assert.ErrorIs(t, err, game.ErrIllegalIntent)
}

func TestAssassinate(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleShadow, RoleAgent}, []Role{RoleChancellor, RoleChancellor}, []Role{RoleDiplomat, RoleDiplomat})
	s.Players["p1"].Coins = 3

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionAssassinate, "targetId": "p3"}))
	// The fee is paid when the action is declared.
	assert.Equal(t, 0, s.Players["p1"].Coins)
	assert.Equal(t, PhaseChallengeAction, s.Phase)

	s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))
	assert.Equal(t, PhaseBlock, s.Phase)

	s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))
	require.Equal(t, PhaseLoseInfluence, s.Phase)
	assert.Equal(t, "p3", s.RevealInfo.LoserPlayerID)

	s = apply(t, e, s, intent(t, IntentLoseInfluence, "p3", map[string]any{"influenceId": unrevealedID(t, s, "p3")}))
	assert.Equal(t, 1, s.Players["p3"].unrevealedCount())
	assert.Equal(t, "p2", s.TurnOrder[s.CurrentTurnIndex])
}

func TestAssassinateCostNotRefunded(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleChancellor, RoleChancellor})
	s.Players["p1"].Coins = 3

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionAssassinate, "targetId": "p2"}))
	s = apply(t, e, s, intent(t, IntentChallenge, "p2", nil))
	s = apply(t, e, s, intent(t, IntentLoseInfluence, "p1", map[string]any{"influenceId": unrevealedID(t, s, "p1")}))

	// Bluff caught: the assassin is down a card and the three coins.
	assert.Equal(t, 0, s.Players["p1"].Coins)
	assert.Equal(t, 1, s.Players["p1"].unrevealedCount())
	assert.Equal(t, 2, s.Players["p2"].unrevealedCount())
}

func TestBluffedBlockChainsTwoReveals(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleShadow, RoleAgent}, []Role{RoleChancellor, RoleChancellor})
	s.Players["p1"].Coins = 3

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionAssassinate, "targetId": "p2"}))
	s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))
	s = apply(t, e, s, intent(t, IntentBlock, "p2", map[string]any{"role": RoleProtector}))
	s = apply(t, e, s, intent(t, IntentChallenge, "p1", nil))

	// The block was a bluff, so the blocker loses a card and the
	// assassination still goes through afterwards.
	require.Equal(t, PhaseLoseInfluence, s.Phase)
	assert.Equal(t, "p2", s.RevealInfo.LoserPlayerID)
	assert.Equal(t, ResumeApplyAction, s.RevealInfo.Resume)

	s = apply(t, e, s, intent(t, IntentLoseInfluence, "p2", map[string]any{"influenceId": unrevealedID(t, s, "p2")}))
	require.Equal(t, PhaseLoseInfluence, s.Phase)
	assert.Equal(t, "p2", s.RevealInfo.LoserPlayerID)

	s = apply(t, e, s, intent(t, IntentLoseInfluence, "p2", map[string]any{"influenceId": unrevealedID(t, s, "p2")}))
	assert.Equal(t, PhaseGameOver, s.Phase)
	assert.Equal(t, "p1", s.WinnerID)
	assert.False(t, s.Players["p2"].Alive)
}

func TestTruthfulBlockKillsAction(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleDiplomat, RoleChancellor}, []Role{RoleShadow, RoleShadow})

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionSteal, "targetId": "p2"}))
	s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))
	s = apply(t, e, s, intent(t, IntentBlock, "p2", map[string]any{"role": RoleDiplomat}))
	s = apply(t, e, s, intent(t, IntentChallenge, "p1", nil))

	require.Equal(t, PhaseLoseInfluence, s.Phase)
	assert.Equal(t, "p1", s.RevealInfo.LoserPlayerID)
	assert.Equal(t, ResumeAdvance, s.RevealInfo.Resume)

	s = apply(t, e, s, intent(t, IntentLoseInfluence, "p1", map[string]any{"influenceId": unrevealedID(t, s, "p1")}))
	// The steal is dead; no coins moved.
	assert.Equal(t, 2, s.Players["p1"].Coins)
	assert.Equal(t, 2, s.Players["p2"].Coins)
	assert.Equal(t, "p2", s.TurnOrder[s.CurrentTurnIndex])
}

func TestStealCapsAtTargetCoins(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleChancellor, RoleChancellor})
	s.Players["p2"].Coins = 1

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionSteal, "targetId": "p2"}))
	s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))
	s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))

	assert.Equal(t, 3, s.Players["p1"].Coins)
	assert.Equal(t, 0, s.Players["p2"].Coins)
}

func TestOnlyTargetMayBlock(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleChancellor, RoleChancellor}, []Role{RoleDiplomat, RoleDiplomat})

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionSteal, "targetId": "p2"}))
	s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))
	require.Equal(t, PhaseBlock, s.Phase)

	err := applyErr(t, e, s, intent(t, IntentBlock, "p3", map[string]any{"role": RoleDiplomat}))
	assert.ErrorIs(t, err, game.ErrIllegalIntent)

	// A role that does not block this action is rejected too.
	err = applyErr(t, e, s, intent(t, IntentBlock, "p2", map[string]any{"role": RoleProtector}))
	assert.ErrorIs(t, err, game.ErrIllegalIntent)
}

func TestExchangeKeepsHandSize(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleDiplomat, RoleAgent}, []Role{RoleChancellor, RoleChancellor})
	deckBefore := len(s.Deck)

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionExchange}))
	s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))

	assert.Equal(t, 2, s.Players["p1"].unrevealedCount())
	assert.Len(t, s.Deck, deckBefore)
	assert.Equal(t, "p2", s.TurnOrder[s.CurrentTurnIndex])
}

func TestCoupIsImmediate(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleChancellor, RoleChancellor}, []Role{RoleDiplomat, RoleDiplomat})
	s.Players["p1"].Coins = 7

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionCoup, "targetId": "p2"}))

	// No challenge or block window; the target reveals right away.
	require.Equal(t, PhaseLoseInfluence, s.Phase)
	assert.Equal(t, 0, s.Players["p1"].Coins)
	assert.Equal(t, "p2", s.RevealInfo.LoserPlayerID)
	assert.Nil(t, s.WindowDeadline)
}

func TestLoseInfluenceGuards(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleChancellor, RoleChancellor}, []Role{RoleDiplomat, RoleDiplomat})
	s.Players["p1"].Coins = 7
	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionCoup, "targetId": "p2"}))

	t.Run("wrong player", func(t *testing.T) {
		err := applyErr(t, e, s, intent(t, IntentLoseInfluence, "p3", map[string]any{"influenceId": unrevealedID(t, s, "p3")}))
		assert.ErrorIs(t, err, game.ErrIllegalIntent)
	})

	t.Run("unknown card", func(t *testing.T) {
		err := applyErr(t, e, s, intent(t, IntentLoseInfluence, "p2", map[string]any{"influenceId": "nope"}))
		assert.ErrorIs(t, err, game.ErrIllegalIntent)
	})

	t.Run("second reveal is rejected", func(t *testing.T) {
		resolved := apply(t, e, s, intent(t, IntentLoseInfluence, "p2", map[string]any{"influenceId": unrevealedID(t, s, "p2")}))
		err := applyErr(t, e, resolved, intent(t, IntentLoseInfluence, "p2", map[string]any{"influenceId": unrevealedID(t, resolved, "p2")}))
		assert.ErrorIs(t, err, game.ErrIllegalIntent)
	})
}

func TestTurnSkipsEliminatedSeats(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleChancellor, RoleChancellor}, []Role{RoleDiplomat, RoleDiplomat})
	for i := range s.Players["p2"].Influences {
		s.Players["p2"].Influences[i].Revealed = true
	}
	s.Players["p2"].Alive = false

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionIncome}))
	assert.Equal(t, "p3", s.TurnOrder[s.CurrentTurnIndex])
}

func TestGameOverRejectsIntents(t *testing.T) {
	t.Parallel()
	e := newTestEngine(0)
	s := buildState([]Role{RoleAgent, RoleAgent}, []Role{RoleChancellor})
	s.Players["p1"].Coins = 7
	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionCoup, "targetId": "p2"}))
	s = apply(t, e, s, intent(t, IntentLoseInfluence, "p2", map[string]any{"influenceId": unrevealedID(t, s, "p2")}))

	require.Equal(t, PhaseGameOver, s.Phase)
	assert.Equal(t, "p1", s.WinnerID)

	err := applyErr(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionIncome}))
	assert.ErrorIs(t, err, game.ErrGameOver)
}

func TestWindowDeadline(t *testing.T) {
	t.Parallel()
	e := newTestEngine(15 * time.Second)
	s := buildState([]Role{RoleChancellor, RoleAgent}, []Role{RoleShadow, RoleShadow})

	doc, err := json.Marshal(s)
	require.NoError(t, err)
	_, ok := e.Deadline(doc)
	assert.False(t, ok)

	s = apply(t, e, s, intent(t, IntentDeclareAction, "p1", map[string]any{"action": ActionTax}))
	require.NotNil(t, s.WindowDeadline)
	assert.Equal(t, testClock.Add(15*time.Second), *s.WindowDeadline)

	doc, err = json.Marshal(s)
	require.NoError(t, err)
	deadline, ok := e.Deadline(doc)
	require.True(t, ok)
	assert.Equal(t, testClock.Add(15*time.Second), deadline)

	// Resolving the window clears the deadline.
	s = apply(t, e, s, intent(t, model.IntentWindowClosed, "", nil))
	assert.Nil(t, s.WindowDeadline)
}

// TestRandomPlayout hammers the engine with arbitrary intents and checks the
// structural invariants after every accepted transition. Rejected intents
// must leave the document untouched.
func TestRandomPlayout(t *testing.T) {
	t.Parallel()

	for seed := int64(0); seed < 20; seed++ {
		seed := seed
		t.Run(fmt.Sprintf("seed %d", seed), func(t *testing.T) {
			t.Parallel()
			rng := rand.New(rand.NewSource(seed))
			e := New(0, WithRand(rand.New(rand.NewSource(seed))), WithClock(func() time.Time { return testClock }))

			doc, err := e.Init(roster(2 + rng.Intn(5)))
			require.NoError(t, err)

			players := []string{"p1", "p2", "p3", "p4", "p5", "p6"}
			actions := []ActionType{ActionIncome, ActionForeignAid, ActionTax, ActionSteal, ActionAssassinate, ActionExchange, ActionCoup}

			for step := 0; step < 2000; step++ {
				var cur State
				require.NoError(t, json.Unmarshal(doc, &cur))
				if cur.Phase == PhaseGameOver {
					break
				}

				pid := players[rng.Intn(len(players))]
				var in model.Intent
				switch rng.Intn(5) {
				case 0:
					payload, _ := json.Marshal(map[string]any{
						"action":   actions[rng.Intn(len(actions))],
						"targetId": players[rng.Intn(len(players))],
					})
					in = model.Intent{Type: IntentDeclareAction, PlayerID: pid, Payload: payload}
				case 1:
					in = model.Intent{Type: IntentChallenge, PlayerID: pid}
				case 2:
					payload, _ := json.Marshal(map[string]any{"role": Roles[rng.Intn(len(Roles))]})
					in = model.Intent{Type: IntentBlock, PlayerID: pid, Payload: payload}
				case 3:
					in = model.Intent{Type: model.IntentWindowClosed}
				default:
					target := pid
					if cur.RevealInfo != nil {
						target = cur.RevealInfo.LoserPlayerID
					}
					var cardID string
					if p := cur.Players[target]; p != nil {
						for _, inf := range p.Influences {
							if !inf.Revealed {
								cardID = inf.ID
								break
							}
						}
					}
					payload, _ := json.Marshal(map[string]any{"influenceId": cardID})
					in = model.Intent{Type: IntentLoseInfluence, PlayerID: target, Payload: payload}
				}

				next, err := e.Apply(doc, in)
				if err != nil {
					legal := errors.Is(err, game.ErrIllegalIntent) ||
						errors.Is(err, game.ErrUnknownIntent) ||
						errors.Is(err, game.ErrGameOver)
					assert.True(t, legal, "unexpected error class: %v", err)
					continue
				}

				var s State
				require.NoError(t, json.Unmarshal(next, &s))
				require.NoError(t, s.Validate(), "after step %d intent %s", step, in.Type)
				doc = next
			}
		})
	}
}
