package coach

import (
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/funnelseye/backoffice/core"
)

// Ranks, lowest to highest. A coach's rank drives the commission rate their
// downline revenue earns them.
const (
	RankBronze   = "bronze"
	RankSilver   = "silver"
	RankGold     = "gold"
	RankPlatinum = "platinum"
	RankDiamond  = "diamond"
)

var (
	AllRanks = []string{RankBronze, RankSilver, RankGold, RankPlatinum, RankDiamond}

	rankPriorities = map[string]int{
		RankBronze:   1,
		RankSilver:   2,
		RankGold:     3,
		RankPlatinum: 4,
		RankDiamond:  5,
	}
)

func RankPriority(rank string) int {
	return rankPriorities[rank]
}

type Coach struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Rank      string    `json:"rank"`
	SponsorID int       `json:"sponsor_id"` // 0 = no sponsor (root of the hierarchy)
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"` // UTC
	UpdatedAt time.Time `json:"updated_at"` // UTC
}

// ChainMember is one ancestor in a coach's upward sponsor chain, with the rank
// held at the time the chain was read (settlement time).
type ChainMember struct {
	CoachID int    `json:"coach_id"`
	Rank    string `json:"rank"`
}

// NewCoach contains information needed to register a new Coach.
type NewCoach struct {
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Rank      string `json:"rank" validate:"omitempty,allranks"`
	SponsorID int    `json:"sponsor_id" validate:"min=0"`
}

func (nc *NewCoach) Validate(validate *validator.Validate, svc *Service) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Email = core.CleanString(nc.Email, true /* lower */)
	nc.Rank = core.CleanString(nc.Rank, true /* lower */)
	if nc.Rank == "" {
		nc.Rank = RankBronze
	}

	if err := validate.Struct(nc); err != nil {
		return err
	}
	return svc.CheckUniqueness(nc.Email)
}

// UpdateCoach defines what information may be provided to modify an existing Coach.
type UpdateCoach struct {
	Name     string `json:"name"`
	Rank     string `json:"rank" validate:"omitempty,allranks"`
	IsActive *bool  `json:"is_active"`
}

func (uc *UpdateCoach) Validate(validate *validator.Validate, orig Coach) error {
	name := core.CleanString(uc.Name)
	if name != "" {
		uc.Name = name
	} else {
		uc.Name = orig.Name
	}

	rank := core.CleanString(uc.Rank, true /* lower */)
	if rank != "" {
		uc.Rank = rank
	} else {
		uc.Rank = orig.Rank
	}

	return validate.Struct(uc)
}

// Validators

var (
	allRanksTag  = "allranks"
	allRanksText = "invalid rank"
)

// InitValidators registers this package's custom tags.
func InitValidators(validate *validator.Validate, translator ut.Translator) {
	_ = validate.RegisterValidation(allRanksTag, allRanksValidation)
	core.RegisterCustomTranslation(validate, translator, allRanksTag, allRanksText)
}

func allRanksValidation(fl validator.FieldLevel) bool {
	_, ok := rankPriorities[fl.Field().String()]
	return ok
}
