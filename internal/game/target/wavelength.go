package target

import (
	"math"
	"math/rand"

	"funora/internal/model"
)

// wavelengthPrompts are spectrum pairs the clue giver describes a point on
var wavelengthPrompts = []string{
	"Freezing cold — Scorching hot",
	"Underrated — Overrated",
	"Terrible pizza topping — Perfect pizza topping",
	"Useless superpower — World-ending superpower",
	"Quiet weekend — Chaotic weekend",
	"Guilty pleasure — Openly proud of it",
	"Barely a sport — Peak athleticism",
	"Boring movie — Edge of your seat",
	"Cheap thrill — Luxury experience",
	"Small talk — Deep conversation",
}

const wavelengthThreshold = -30

// Wavelength: a rotating clue giver knows a secret 0-100 target and gives a
// clue; everyone else guesses the number. Guessers score by distance tier,
// the clue giver scores off aggregate guesser accuracy.
type Wavelength struct{}

func (Wavelength) GameID() string { return model.GameWavelength }
func (Wavelength) Threshold() int { return wavelengthThreshold }
func (Wavelength) Numeric() bool  { return true }

func (Wavelength) NextRound(rng *rand.Rand, s *State) {
	s.Prompt = wavelengthPrompts[rng.Intn(len(wavelengthPrompts))]
	t := float64(rng.Intn(101))
	s.Target = &t
	s.ClueGiverID = nextClueGiver(s)
}

// nextClueGiver rotates through seating order, skipping eliminated seats
func nextClueGiver(s *State) string {
	active := make([]string, 0, len(s.Order))
	start := 0
	for _, id := range s.Order {
		if !s.Players[id].Eliminated {
			if id == s.ClueGiverID {
				start = len(active) + 1
			}
			active = append(active, id)
		}
	}
	if len(active) == 0 {
		return ""
	}
	return active[start%len(active)]
}

func (Wavelength) Score(s *State) *RoundResult {
	target := 0.0
	if s.Target != nil {
		target = *s.Target
	}
	result := &RoundResult{Target: target, Deltas: map[string]int{}}

	best := math.MaxFloat64
	anyPositive := false
	anyExact := false
	for _, id := range s.submitters() {
		sub, ok := s.Submissions[id]
		if !ok {
			result.Deltas[id] = -10
			continue
		}
		dist := math.Abs(sub.Value - target)
		var delta int
		switch {
		case dist == 0:
			delta = 30
			anyExact = true
		case dist <= 5:
			delta = 10
		case dist <= 10:
			delta = 5
		default:
			delta = -10
		}
		if delta > 0 {
			anyPositive = true
		}
		result.Deltas[id] = delta
		if dist < best {
			best = dist
			result.ClosestIDs = []string{id}
		} else if dist == best {
			result.ClosestIDs = append(result.ClosestIDs, id)
		}
	}

	// The clue giver lives and dies by the guessers
	if s.ClueGiverID != "" {
		switch {
		case anyExact:
			result.Deltas[s.ClueGiverID] = 15
		case !anyPositive:
			result.Deltas[s.ClueGiverID] = -20
		}
	}
	return result
}
