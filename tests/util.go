// Package testutil holds the fixtures shared by the service, API and CLI tests.
package testutil

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/masomo-learn/core"
	"github.com/trezcool/masomo-learn/core/analytics"
	dummydb "github.com/trezcool/masomo-learn/storage/database/dummy"
)

// Now is the fixed "current time" of the tests: Monday 2024-03-04 10:00 UTC.
var Now = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

// Clock is a settable clock, safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

func NewClock(now time.Time) *Clock { return &Clock{now: now} }

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *Clock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

// AddDays moves the clock n calendar days forward.
func (c *Clock) AddDays(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.AddDate(0, 0, n)
}

func Config() *core.Config {
	return &core.Config{
		AppName:         "Masomo",
		Env:             "TEST",
		TestMode:        true,
		SecretKey:       "test-secret",
		FrontendBaseURL: "http://masomo.test",
		Server:          core.ServerConfig{JWTExpirationDelta: time.Hour},
		Analytics: core.AnalyticsConfig{
			Timezone:       "UTC",
			DefaultTier:    "medium",
			MaxCandidates:  500,
			PageSize:       10,
			QuestionTarget: 10,
		},
	}
}

func NewTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

// NewValidator returns a validator with every custom tag & translation registered.
func NewValidator() (*validator.Validate, ut.Translator) {
	validate := validator.New()
	translator := NewTranslator()
	core.InitValidators(validate, translator)
	analytics.InitValidators(validate, translator)
	return validate, translator
}

func OpenDummyDB(t *testing.T) *dummydb.DB {
	t.Helper()
	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("OpenDummyDB() failed: %v", err)
	}
	return db
}

// NewService wires an analytics.Service over db with a fixed clock & no shuffling.
func NewService(db *dummydb.DB, clock *Clock) *analytics.Service {
	opts := analytics.OptionsFromConfig(Config())
	opts.Clock = clock.Now
	opts.Shuffle = func([]analytics.Question) {}
	return analytics.NewService(
		dummydb.NewRecordRepository(db),
		dummydb.NewMaterialRepository(db),
		dummydb.NewQuestionRepository(db),
		opts,
	)
}

func Material(id, subject string, tier analytics.Tier, views int64, createdAt time.Time) analytics.MaterialSummary {
	return analytics.MaterialSummary{
		ID:         id,
		Subject:    subject,
		Title:      subject + " " + id,
		Difficulty: tier,
		ViewCount:  views,
		CreatedAt:  createdAt,
	}
}

// Questions returns counts[tier] questions of each tier for subject, with stable ids.
func Questions(subject string, counts map[analytics.Tier]int) []analytics.Question {
	var qs []analytics.Question
	for _, tier := range []analytics.Tier{analytics.TierLow, analytics.TierMedium, analytics.TierHigh} {
		for i := 0; i < counts[tier]; i++ {
			qs = append(qs, analytics.Question{
				ID:         fmt.Sprintf("%s-%s-%02d", strings.ToLower(subject), tier, i),
				Subject:    subject,
				Difficulty: tier,
				Payload:    []byte(`{}`),
			})
		}
	}
	return qs
}

// LogEntry is a message captured by Logger.
type LogEntry struct {
	Level string
	Msg   string
	Args  []interface{}
}

// Logger is a core.Logger that records entries instead of reporting them.
type Logger struct {
	mu      sync.Mutex
	entries []LogEntry
}

var _ core.Logger = (*Logger)(nil) // interface compliance check

func (l *Logger) log(level, msg string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, LogEntry{Level: level, Msg: msg, Args: args})
}

func (l *Logger) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

func (l *Logger) Debug(msg string, args ...interface{}) { l.log("debug", msg, args) }
func (l *Logger) Info(msg string, args ...interface{})  { l.log("info", msg, args) }
func (l *Logger) Warn(msg string, args ...interface{})  { l.log("warn", msg, args) }
func (l *Logger) Error(msg string, args ...interface{}) { l.log("error", msg, args) }
func (l *Logger) Fatal(msg string, args ...interface{}) { l.log("fatal", msg, args) }
