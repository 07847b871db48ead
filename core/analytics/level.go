package analytics

type levelStep struct {
	next     Level
	minScore float64
}

// levelSteps holds the single upward step available from each level.
var levelSteps = map[Level]levelStep{
	LevelBeginner:     {next: LevelIntermediate, minScore: 90},
	LevelIntermediate: {next: LevelAdvanced, minScore: 85},
	LevelAdvanced:     {next: LevelExpert, minScore: 95},
}

// LevelChange describes a promotion in one subject.
type LevelChange struct {
	Subject string `json:"subject"`
	From    Level  `json:"from"`
	To      Level  `json:"to"`
}

// NextLevel applies the progression rule to the latest score (in percent).
// At most one step is taken and levels never go down.
func NextLevel(current Level, score float64) (Level, bool) {
	if current == "" {
		current = LevelBeginner
	}
	step, ok := levelSteps[current]
	if !ok || score < step.minScore {
		return current, false
	}
	return step.next, true
}

// NextLevelThreshold returns the score needed on a single quiz to leave the level.
func NextLevelThreshold(current Level) (Level, float64, bool) {
	step, ok := levelSteps[current]
	return step.next, step.minScore, ok
}
