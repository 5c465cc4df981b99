package dummydb

import (
	"context"
	"sort"

	"github.com/funnelseye/backoffice/core/coach"
)

var coachPKCount int

type coachRepository struct {
	db *coachTable
}

var _ coach.Repository = (*coachRepository)(nil) // interface compliance check

func NewCoachRepository(db *DB) coach.Repository {
	return &coachRepository{db: db.coach}
}

func (repo *coachRepository) query() []coach.Coach {
	coaches := make([]coach.Coach, 0, len(repo.db.table))
	for _, c := range repo.db.table {
		coaches = append(coaches, *c)
	}
	sort.Slice(coaches, func(i, j int) bool { return coaches[i].ID < coaches[j].ID })
	return coaches
}

func (repo *coachRepository) CheckEmailUniqueness(_ context.Context, email string, excludedCoaches ...coach.Coach) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.query() {
		if c.Email == email && !isExcluded(c, excludedCoaches) {
			return coach.ErrEmailExists
		}
	}
	return nil
}

func isExcluded(c coach.Coach, excluded []coach.Coach) bool {
	for _, ex := range excluded {
		if ex.ID == c.ID {
			return true
		}
	}
	return false
}

func (repo *coachRepository) CreateCoach(_ context.Context, c coach.Coach) (coach.Coach, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	coachPKCount++
	c.ID = coachPKCount
	repo.db.table[c.ID] = &c
	return c, nil
}

func (repo *coachRepository) QueryAllCoaches(_ context.Context) ([]coach.Coach, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.query(), nil
}

func (repo *coachRepository) GetCoachByID(_ context.Context, id int) (coach.Coach, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if c, ok := repo.db.table[id]; ok {
		return *c, nil
	}
	return coach.Coach{}, coach.ErrNotFound
}

func (repo *coachRepository) GetCoachByEmail(_ context.Context, email string) (coach.Coach, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, c := range repo.query() {
		if c.Email == email {
			return c, nil
		}
	}
	return coach.Coach{}, coach.ErrNotFound
}

func (repo *coachRepository) UpdateCoach(_ context.Context, c coach.Coach, isActive *bool) (coach.Coach, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.table[c.ID]
	if !ok {
		return coach.Coach{}, coach.ErrNotFound
	}
	if c.Name != "" {
		orig.Name = c.Name
	}
	if c.Rank != "" {
		orig.Rank = c.Rank
	}
	if isActive != nil {
		orig.IsActive = *isActive
	}
	orig.UpdatedAt = c.UpdatedAt
	return *orig, nil
}

// SetSponsor rewires a sponsor link directly; test hook for hierarchy edge
// cases the service API cannot produce.
func (repo *coachRepository) SetSponsor(coachID, sponsorID int) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if c, ok := repo.db.table[coachID]; ok {
		c.SponsorID = sponsorID
	}
}

func (repo *coachRepository) GetSponsorChain(_ context.Context, coachID, maxLevels int) ([]coach.ChainMember, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	c, ok := repo.db.table[coachID]
	if !ok {
		return nil, coach.ErrNotFound
	}

	var chain []coach.ChainMember
	seen := map[int]bool{coachID: true}
	for id := c.SponsorID; id != 0 && len(chain) < maxLevels; {
		if seen[id] {
			return nil, coach.ErrChainCycle
		}
		seen[id] = true

		sponsor, ok := repo.db.table[id]
		if !ok {
			break // dangling sponsor reference terminates the chain
		}
		chain = append(chain, coach.ChainMember{CoachID: sponsor.ID, Rank: sponsor.Rank})
		id = sponsor.SponsorID
	}
	return chain, nil
}
