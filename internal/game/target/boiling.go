package target

import (
	"math"
	"math/rand"

	"funora/internal/model"
)

const boilingThreshold = -5

// BoilingWater: everyone picks a number 0-100, the target is 0.8 times the
// average of all submissions, and everyone who is not closest to it loses a
// point. Extra rule layers kick in as the table thins out.
type BoilingWater struct{}

func (BoilingWater) GameID() string { return model.GameBoilingWater }
func (BoilingWater) Threshold() int { return boilingThreshold }
func (BoilingWater) Numeric() bool  { return true }

func (BoilingWater) NextRound(rng *rand.Rand, s *State) {
	s.Prompt = "Pick a number from 0 to 100"
	// The target is derived from the submissions at reveal time
	s.Target = nil
}

func (BoilingWater) Score(s *State) *RoundResult {
	result := &RoundResult{Deltas: map[string]int{}}

	ids := s.submitters()
	values := make(map[string]float64, len(ids))
	sum := 0.0
	submitted := 0
	for _, id := range ids {
		sub, ok := s.Submissions[id]
		if !ok {
			// Missing a forced reveal costs the round outright
			result.Deltas[id] = -1
			continue
		}
		values[id] = sub.Value
		sum += sub.Value
		submitted++
	}
	if submitted == 0 {
		return result
	}
	target := 0.8 * (sum / float64(submitted))
	result.Target = target

	// Two-player endgame: picking 100 against a 0 wins outright, which
	// keeps the otherwise dominant 0 strategy beatable.
	if len(ids) == 2 && submitted == 2 {
		var zeroID, hundredID string
		for id, v := range values {
			if v == 0 {
				zeroID = id
			}
			if v == 100 {
				hundredID = id
			}
		}
		if zeroID != "" && hundredID != "" {
			result.Deltas[zeroID] = -1
			result.Deltas[hundredID] = 0
			result.ClosestIDs = []string{hundredID}
			return result
		}
	}

	best := math.MaxFloat64
	for _, id := range ids {
		v, ok := values[id]
		if !ok {
			continue
		}
		dist := math.Abs(v - target)
		if dist < best {
			best = dist
			result.ClosestIDs = []string{id}
		} else if dist == best {
			result.ClosestIDs = append(result.ClosestIDs, id)
		}
	}

	// Once elimination has thinned the table to three, an exact hit
	// doubles the damage for everyone else. A full table that merely
	// seats three scores the standard point.
	penalty := -1
	if best == 0 && len(ids) == 3 && len(s.Players) > len(ids) {
		penalty = -2
	}

	closest := make(map[string]bool, len(result.ClosestIDs))
	for _, id := range result.ClosestIDs {
		closest[id] = true
	}
	for _, id := range ids {
		if _, ok := values[id]; !ok {
			continue
		}
		if closest[id] {
			result.Deltas[id] = 0
		} else {
			result.Deltas[id] = penalty
		}
	}
	return result
}
