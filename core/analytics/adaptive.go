package analytics

import (
	"math/rand"
	"strings"
)

const (
	RollingWindow   = 5
	DefaultPoolSize = 10
)

// ShuffleFunc permutes questions in place.
type ShuffleFunc func(qs []Question)

// RandomShuffle is a uniform random permutation.
func RandomShuffle(qs []Question) {
	rand.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

// AdaptiveSelection is the tier chosen for a student, the tiers actually drawn from, and the questions.
type AdaptiveSelection struct {
	Subject        string     `json:"subject"`
	Tier           Tier       `json:"tier"`
	Band           []Tier     `json:"band"`
	RollingAverage float64    `json:"rolling_average"`
	HistorySize    int        `json:"history_size"`
	Questions      []Question `json:"questions"`
}

// RollingAverage returns the mean percent of the last `window` quizzes in subject, and how many were used.
func RollingAverage(rec StudentRecord, subject string, window int) (float64, int) {
	var total float64
	var n int
	for i := len(rec.QuizScores) - 1; i >= 0 && n < window; i-- {
		q := rec.QuizScores[i]
		if !strings.EqualFold(q.Subject, subject) {
			continue
		}
		total += q.Percent()
		n++
	}
	if n == 0 {
		return 0, 0
	}
	return total / float64(n), n
}

// TierForAverage maps a rolling average to the tier to serve next.
func TierForAverage(avg float64) Tier {
	switch {
	case avg > 85:
		return TierHigh
	case avg > 65:
		return TierMedium
	default:
		return TierLow
	}
}

// SelectQuestions picks the student's tier from recent history (or defaultTier without history),
// collects at least poolSize questions from that tier, topping up from the tier above then the tier below,
// shuffles and truncates to count. count <= 0 returns the whole collected pool.
// Questions two tiers away are never used: a pool holding only those yields ErrNoQuestionsAvailable.
func SelectQuestions(
	rec StudentRecord,
	subject string,
	pool []Question,
	count int,
	defaultTier Tier,
	poolSize int,
	shuffle ShuffleFunc,
) (AdaptiveSelection, error) {
	if len(pool) == 0 {
		return AdaptiveSelection{}, ErrNoQuestionsAvailable
	}
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}
	if shuffle == nil {
		shuffle = RandomShuffle
	}

	sel := AdaptiveSelection{Subject: subject}
	sel.RollingAverage, sel.HistorySize = RollingAverage(rec, subject, RollingWindow)
	if sel.HistorySize > 0 {
		sel.Tier = TierForAverage(sel.RollingAverage)
	} else if defaultTier.Valid() {
		sel.Tier = defaultTier
	} else {
		sel.Tier = TierMedium
	}

	byTier := make(map[Tier][]Question, len(tiers))
	for _, q := range pool {
		byTier[q.Difficulty] = append(byTier[q.Difficulty], q)
	}

	var collected []Question
	take := func(t Tier, all bool) {
		qs := append([]Question{}, byTier[t]...)
		if len(qs) == 0 {
			return
		}
		shuffle(qs)
		if !all {
			if missing := poolSize - len(collected); len(qs) > missing {
				qs = qs[:missing]
			}
		}
		collected = append(collected, qs...)
		sel.Band = append(sel.Band, t)
	}

	take(sel.Tier, true)
	if above, ok := sel.Tier.Above(); ok && len(collected) < poolSize {
		take(above, false)
	}
	if below, ok := sel.Tier.Below(); ok && len(collected) < poolSize {
		take(below, false)
	}
	if len(collected) == 0 {
		return sel, ErrNoQuestionsAvailable
	}

	shuffle(collected)
	if count > 0 && len(collected) > count {
		collected = collected[:count]
	}
	sel.Questions = collected
	return sel, nil
}
