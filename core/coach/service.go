package coach

import (
	"context"
	"errors"
	"time"

	"github.com/funnelseye/backoffice/core"
)

var (
	// errors
	ErrNotFound    = errors.New("coach not found")
	ErrEmailExists = errors.New("a coach with this email already exists")
	ErrChainCycle  = errors.New("sponsor chain contains a cycle")
)

type (
	Repository interface {
		CheckEmailUniqueness(ctx context.Context, email string, excludedCoaches ...Coach) error
		CreateCoach(ctx context.Context, c Coach) (Coach, error)
		QueryAllCoaches(ctx context.Context) ([]Coach, error)
		GetCoachByID(ctx context.Context, id int) (Coach, error)
		GetCoachByEmail(ctx context.Context, email string) (Coach, error)
		UpdateCoach(ctx context.Context, c Coach, isActive *bool) (Coach, error)
		// GetSponsorChain walks up from the coach's direct sponsor, nearest
		// ancestor first, at most maxLevels deep. Ranks are read at call time.
		// A cycle in the hierarchy returns ErrChainCycle.
		GetSponsorChain(ctx context.Context, coachID, maxLevels int) ([]ChainMember, error)
	}

	Service struct {
		repo Repository
	}
)

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (svc *Service) CheckUniqueness(email string, exclCoaches ...Coach) error {
	if err := svc.repo.CheckEmailUniqueness(context.Background(), email, exclCoaches...); err != nil {
		if err == ErrEmailExists {
			return core.NewValidationError(err, core.FieldError{Field: "email", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, nc NewCoach) (Coach, error) {
	now := time.Now().UTC()
	c := Coach{
		Name:      nc.Name,
		Email:     nc.Email,
		Rank:      nc.Rank,
		SponsorID: nc.SponsorID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if c.SponsorID != 0 {
		if _, err := svc.repo.GetCoachByID(ctx, c.SponsorID); err != nil {
			if err == ErrNotFound {
				return Coach{}, core.NewValidationError(err, core.FieldError{Field: "sponsor_id", Error: "sponsor not found"})
			}
			return Coach{}, err
		}
	}
	return svc.repo.CreateCoach(ctx, c)
}

func (svc *Service) QueryAll(ctx context.Context) ([]Coach, error) {
	return svc.repo.QueryAllCoaches(ctx)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Coach, error) {
	return svc.repo.GetCoachByID(ctx, id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (Coach, error) {
	return svc.repo.GetCoachByEmail(ctx, core.CleanString(email, true))
}

func (svc *Service) Update(ctx context.Context, id int, uc UpdateCoach) (Coach, error) {
	c := Coach{
		ID:        id,
		Name:      uc.Name,
		Rank:      uc.Rank,
		UpdatedAt: time.Now().UTC(),
	}
	return svc.repo.UpdateCoach(ctx, c, uc.IsActive)
}

// SponsorChain exposes the upward chain for the settlement pipeline.
func (svc *Service) SponsorChain(ctx context.Context, coachID, maxLevels int) ([]ChainMember, error) {
	return svc.repo.GetSponsorChain(ctx, coachID, maxLevels)
}
