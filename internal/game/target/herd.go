package target

import (
	"math/rand"
	"strings"

	"funora/internal/model"
)

var herdPrompts = []string{
	"Name a food everyone pretends to like",
	"Name something you always forget to pack",
	"Name a famous landmark",
	"Name an animal that would make a terrible pet",
	"Name something people do in an elevator",
	"Name a chore nobody wants",
	"Name a song everyone knows the words to",
	"Name something that always breaks right after the warranty",
	"Name a smell that takes you back to childhood",
	"Name an excuse for being late",
}

const herdThreshold = -5

// HerdMentality: think like the herd. Matching the plurality answer scores,
// standing alone costs.
type HerdMentality struct{}

func (HerdMentality) GameID() string { return model.GameHerd }
func (HerdMentality) Threshold() int { return herdThreshold }
func (HerdMentality) Numeric() bool  { return false }

func (HerdMentality) NextRound(rng *rand.Rand, s *State) {
	s.Prompt = herdPrompts[rng.Intn(len(herdPrompts))]
	s.Target = nil
}

func (HerdMentality) Score(s *State) *RoundResult {
	result := &RoundResult{Deltas: map[string]int{}}

	ids := s.submitters()
	normalized := make(map[string]string, len(ids))
	counts := map[string]int{}
	for _, id := range ids {
		sub, ok := s.Submissions[id]
		if !ok {
			result.Deltas[id] = -1
			continue
		}
		answer := strings.ToLower(strings.TrimSpace(sub.Text))
		normalized[id] = answer
		counts[answer]++
	}

	// Head-to-head: a mismatch punishes both
	if len(ids) == 2 && len(normalized) == 2 {
		a, b := normalized[ids[0]], normalized[ids[1]]
		if a != b {
			result.Deltas[ids[0]] = -1
			result.Deltas[ids[1]] = -1
			return result
		}
		result.Deltas[ids[0]] = 1
		result.Deltas[ids[1]] = 1
		result.Answer = a
		return result
	}

	max := 0
	for _, n := range counts {
		if n > max {
			max = n
		}
	}

	// No herd formed: everyone stood alone, everyone pays
	if max <= 1 {
		for _, id := range ids {
			if _, ok := normalized[id]; ok {
				result.Deltas[id] = -1
			}
		}
		return result
	}

	for answer, n := range counts {
		if n == max && result.Answer == "" {
			result.Answer = answer
		}
	}
	for _, id := range ids {
		answer, ok := normalized[id]
		if !ok {
			continue
		}
		if counts[answer] == max {
			result.Deltas[id] = 1
		} else {
			result.Deltas[id] = 0
		}
	}
	return result
}
