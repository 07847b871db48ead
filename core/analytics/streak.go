package analytics

import (
	"sort"
	"time"
)

// StreakMilestone is the streak length (and its multiples) that raises an alert.
const StreakMilestone = 7

// dayNumber returns the calendar day of t in loc, counted from the Unix epoch.
// Working on dates rather than durations keeps DST shifts out of the count.
func dayNumber(t time.Time, loc *time.Location) int {
	y, m, d := t.In(loc).Date()
	return int(time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400)
}

// CalendarDaysBetween returns the number of calendar-day boundaries crossed from `from` to `to`,
// both read in to's location. Negative when from is on a later day.
func CalendarDaysBetween(from, to time.Time) int {
	loc := to.Location()
	return dayNumber(to, loc) - dayNumber(from, loc)
}

// trackActivity updates the incremental streak for an activity happening at now.
// It reports whether the new streak hit a milestone.
func trackActivity(eng *Engagement, now time.Time) bool {
	prevStreak := eng.StreakDays

	if eng.LastActivityAt.IsZero() {
		eng.StreakDays = 1
	} else {
		switch diff := CalendarDaysBetween(eng.LastActivityAt, now); {
		case diff <= 0: // same day (or clock skew)
			if eng.StreakDays == 0 {
				eng.StreakDays = 1
			}
		case diff == 1:
			eng.StreakDays++
		default:
			eng.StreakDays = 1
		}
	}
	if eng.StreakDays > eng.LongestStreak {
		eng.LongestStreak = eng.StreakDays
	}
	if now.After(eng.LastActivityAt) {
		eng.LastActivityAt = now.UTC()
	}
	return eng.StreakDays > prevStreak && eng.StreakDays%StreakMilestone == 0
}

// activityDays returns the distinct calendar days (in loc) with a quiz or a study session, latest first.
func activityDays(rec StudentRecord, loc *time.Location) []int {
	seen := make(map[int]struct{}, len(rec.QuizScores)+len(rec.Sessions))
	for _, q := range rec.QuizScores {
		seen[dayNumber(q.OccurredAt, loc)] = struct{}{}
	}
	for _, s := range rec.Sessions {
		seen[dayNumber(s.OccurredAt, loc)] = struct{}{}
	}
	days := make([]int, 0, len(seen))
	for d := range seen {
		days = append(days, d)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(days)))
	return days
}

// ComputeStreakFromLedger derives the current streak from the ledger alone.
// The walk starts today, or yesterday when nothing happened yet today, and stops at the first gap.
func ComputeStreakFromLedger(rec StudentRecord, now time.Time) int {
	loc := now.Location()
	today := dayNumber(now, loc)

	var streak int
	expected := today
	for _, d := range activityDays(rec, loc) {
		if d > today {
			continue // future-dated entries are ignored
		}
		if streak == 0 && d == today-1 && expected == today {
			expected = today - 1
		}
		if d != expected {
			break
		}
		streak++
		expected--
	}
	return streak
}

// StreakSummary compares the incremental streak with the ledger walk.
// StreakDays is the incremental streak still running at the time of the summary.
type StreakSummary struct {
	StudentID      string    `json:"student_id"`
	LedgerStreak   int       `json:"ledger_streak"`
	StreakDays     int       `json:"streak_days"`
	LongestStreak  int       `json:"longest_streak"`
	LastActivityAt time.Time `json:"last_activity_at,omitempty"`
}

func (s StreakSummary) Consistent() bool { return s.LedgerStreak == s.StreakDays }

// CurrentStreak returns the stored streak as of now: a streak whose last activity is older than yesterday is over.
func (e Engagement) CurrentStreak(now time.Time) int {
	if e.LastActivityAt.IsZero() || CalendarDaysBetween(e.LastActivityAt, now) > 1 {
		return 0
	}
	return e.StreakDays
}

func summarizeStreak(rec StudentRecord, now time.Time) StreakSummary {
	return StreakSummary{
		StudentID:      rec.StudentID,
		LedgerStreak:   ComputeStreakFromLedger(rec, now),
		StreakDays:     rec.Engagement.CurrentStreak(now),
		LongestStreak:  rec.Engagement.LongestStreak,
		LastActivityAt: rec.Engagement.LastActivityAt,
	}
}
