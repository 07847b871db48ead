package analytics

import (
	"math"
	"sort"
	"strings"
	"time"
)

// Weights of the recommendation score terms.
const (
	viewWeight        = 0.3
	likeWeight        = 0.2
	strongSubjectFit  = 0.4 // subject average > 80
	fairSubjectFit    = 0.2 // subject average > 60
	exactTierMatch    = 0.3
	stretchTierMatch  = 0.1 // one tier above the student's level
	recencyWeight     = 0.1
	recencyWindowDays = 30.0
	videoBonus        = 0.1
	interactiveBonus  = 0.15
)

type (
	ScoreBreakdown struct {
		Popularity  float64 `json:"popularity"`
		SubjectFit  float64 `json:"subject_fit"`
		Difficulty  float64 `json:"difficulty"`
		Recency     float64 `json:"recency"`
		ContentType float64 `json:"content_type"`
	}

	ScoredMaterial struct {
		Material  MaterialSummary `json:"material"`
		Score     float64         `json:"score"`
		Breakdown ScoreBreakdown  `json:"breakdown"`
	}
)

func (b ScoreBreakdown) Total() float64 {
	return b.Popularity + b.SubjectFit + b.Difficulty + b.Recency + b.ContentType
}

// subjectAverage returns the average percent over the ledger entries of subject.
func subjectAverage(rec StudentRecord, subject string) (float64, int) {
	var total float64
	var n int
	for _, q := range rec.QuizScores {
		if strings.EqualFold(q.Subject, subject) {
			total += q.Percent()
			n++
		}
	}
	if n == 0 {
		return 0, 0
	}
	return total / float64(n), n
}

func scoreMaterial(rec StudentRecord, m MaterialSummary, now time.Time) ScoreBreakdown {
	var b ScoreBreakdown

	// negative counters from a broken catalog row count as zero
	views := math.Max(0, float64(m.ViewCount))
	likes := math.Max(0, float64(m.LikeCount))
	b.Popularity = math.Log(views+1)*viewWeight + math.Log(likes+1)*likeWeight

	if avg, n := subjectAverage(rec, m.Subject); n > 0 {
		switch {
		case avg > 80:
			b.SubjectFit = strongSubjectFit
		case avg > 60:
			b.SubjectFit = fairSubjectFit
		}
	}

	studentTier := rec.SubjectProgress.LevelOf(m.Subject).Tier()
	if m.Difficulty == studentTier {
		b.Difficulty = exactTierMatch
	} else if above, ok := studentTier.Above(); ok && m.Difficulty == above {
		b.Difficulty = stretchTierMatch
	}

	days := now.Sub(m.CreatedAt).Hours() / 24
	if days < 0 {
		days = 0
	}
	if days <= recencyWindowDays {
		b.Recency = recencyWeight * math.Max(0, 1-days/recencyWindowDays)
	}

	switch strings.ToLower(m.ContentType) {
	case "video":
		b.ContentType = videoBonus
	case "interactive":
		b.ContentType = interactiveBonus
	}
	return b
}

// ScoreMaterials ranks candidates for the student, best first.
// When subject is set only candidates of that subject (case-insensitive) are kept.
// Ties are broken by view count (descending) then id, so the order is deterministic.
func ScoreMaterials(rec StudentRecord, candidates []MaterialSummary, subject string, now time.Time) []ScoredMaterial {
	subject = strings.TrimSpace(subject)
	scored := make([]ScoredMaterial, 0, len(candidates))
	for _, m := range candidates {
		if subject != "" && !strings.EqualFold(m.Subject, subject) {
			continue
		}
		b := scoreMaterial(rec, m, now)
		scored = append(scored, ScoredMaterial{Material: m, Score: b.Total(), Breakdown: b})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		a, b := scored[i], scored[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Material.ViewCount != b.Material.ViewCount {
			return a.Material.ViewCount > b.Material.ViewCount
		}
		return a.Material.ID < b.Material.ID
	})
	return scored
}

// TopMaterials truncates a ranked list to limit entries (limit <= 0 keeps everything).
func TopMaterials(scored []ScoredMaterial, limit int) []ScoredMaterial {
	if limit > 0 && len(scored) > limit {
		return scored[:limit]
	}
	return scored
}

// RecordRecommendations logs issued recommendations into the record's bounded history.
func RecordRecommendations(rec StudentRecord, issued []ScoredMaterial, now time.Time) StudentRecord {
	rec = rec.Clone()
	items := make([]Recommendation, 0, len(issued))
	for _, s := range issued {
		items = append(items, Recommendation{
			ID:         NewID(),
			MaterialID: s.Material.ID,
			Subject:    s.Material.Subject,
			Score:      s.Score,
			CreatedAt:  now.UTC(),
			ExpiresAt:  now.Add(RecommendationTTL).UTC(),
		})
	}
	rec.Recommendations = pruneExpired(rec.Recommendations, now).Append(MaxRecommendations, items...)
	rec.UpdatedAt = now.UTC()
	return rec
}
