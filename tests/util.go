package testutil

import (
	"context"
	"io/ioutil"
	"log"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/coach"
	"github.com/funnelseye/backoffice/core/ledger"
)

// NewValidator returns a validator with the application's custom tags
// registered, the way the API and CLI entry points set it up.
func NewValidator() (*validator.Validate, ut.Translator) {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	validate := validator.New()
	core.InitValidators(validate, translator)
	coach.InitValidators(validate, translator)
	return validate, translator
}

// NewConfig loads the default configuration for tests and sets core.Conf.
func NewConfig() *core.Config {
	return core.NewConfig()
}

// NewLogger returns a logger that discards everything; services under test
// log freely without polluting test output.
func NewLogger() core.Logger {
	return stdLogger{std: log.New(ioutil.Discard, "", 0)}
}

type stdLogger struct {
	std *log.Logger
}

func (l stdLogger) Debug(msg string, args ...interface{}) { l.print(msg, args) }
func (l stdLogger) Info(msg string, args ...interface{})  { l.print(msg, args) }
func (l stdLogger) Warn(msg string, args ...interface{})  { l.print(msg, args) }
func (l stdLogger) Error(msg string, args ...interface{}) { l.print(msg, args) }
func (l stdLogger) Fatal(msg string, args ...interface{}) { l.print(msg, args) }

func (l stdLogger) print(msg string, args []interface{}) {
	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func CreateCoach(
	t *testing.T,
	repo coach.Repository,
	name, email, rank string,
	sponsorID int,
	isActive bool,
	createdAt ...time.Time,
) coach.Coach {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	c := coach.Coach{
		Name:      name,
		Email:     email,
		Rank:      rank,
		SponsorID: sponsorID,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	c, err := repo.CreateCoach(context.Background(), c)
	if err != nil {
		t.Fatalf("CreateCoach() failed: %v", err)
	}
	return c
}

// Payment builds a confirmed payment in minor units with a fresh ID.
func Payment(coachID int, amount int64, currency string, timestamp time.Time) ledger.Payment {
	return ledger.Payment{
		ID:        uuid.New().String(),
		CoachID:   coachID,
		Amount:    amount,
		Currency:  currency,
		Timestamp: timestamp.UTC(),
	}
}
