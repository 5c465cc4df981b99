package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/funnelseye/backoffice/core"
	"github.com/funnelseye/backoffice/core/coach"
)

type coachRow struct {
	ID        int       `db:"id"`
	Name      string    `db:"name"`
	Email     string    `db:"email"`
	Rank      string    `db:"rank"`
	SponsorID int       `db:"sponsor_id"`
	IsActive  bool      `db:"is_active"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

const coachColumns = "id, name, email, rank, sponsor_id, is_active, created_at, updated_at"

type coachRepository struct {
	exec core.DBExecutor
}

var _ coach.Repository = (*coachRepository)(nil) // interface compliance check

func NewCoachRepository(exec core.DBExecutor) *coachRepository {
	return &coachRepository{exec: exec}
}

func (repo coachRepository) fromRow(row coachRow) coach.Coach {
	return coach.Coach{
		ID:        row.ID,
		Name:      row.Name,
		Email:     row.Email,
		Rank:      row.Rank,
		SponsorID: row.SponsorID,
		IsActive:  row.IsActive,
		CreatedAt: row.CreatedAt.UTC(),
		UpdatedAt: row.UpdatedAt.UTC(),
	}
}

func (repo coachRepository) fromRows(rows []coachRow) []coach.Coach {
	coaches := make([]coach.Coach, 0, len(rows))
	for _, row := range rows {
		coaches = append(coaches, repo.fromRow(row))
	}
	return coaches
}

// trapNoRowsErr maps psql "no rows" err to coach.ErrNotFound
func (repo coachRepository) trapNoRowsErr(err error, msg string) error {
	if err == sql.ErrNoRows {
		return coach.ErrNotFound
	}
	return errors.Wrap(err, msg)
}

func (repo coachRepository) CheckEmailUniqueness(ctx context.Context, email string, excludedCoaches ...coach.Coach) error {
	query := `SELECT COUNT(*) FROM coach WHERE email = $1`
	args := []interface{}{email}
	if len(excludedCoaches) > 0 {
		placeholders := make([]string, 0, len(excludedCoaches))
		for i, c := range excludedCoaches {
			placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
			args = append(args, c.ID)
		}
		query += fmt.Sprintf(" AND id NOT IN (%s)", strings.Join(placeholders, ","))
	}

	var count int
	if err := repo.exec.GetContext(ctx, &count, query, args...); err != nil {
		return errors.Wrap(err, "checking coach uniqueness")
	}
	if count > 0 {
		return coach.ErrEmailExists
	}
	return nil
}

func (repo coachRepository) CreateCoach(ctx context.Context, c coach.Coach) (coach.Coach, error) {
	query := `
		INSERT INTO coach (name, email, rank, sponsor_id, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING ` + coachColumns

	var row coachRow
	err := repo.exec.GetContext(ctx, &row, query,
		c.Name, c.Email, c.Rank, c.SponsorID, c.IsActive, c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	if err != nil {
		return coach.Coach{}, errors.Wrap(err, "inserting coach")
	}
	return repo.fromRow(row), nil
}

func (repo coachRepository) QueryAllCoaches(ctx context.Context) ([]coach.Coach, error) {
	var rows []coachRow
	if err := repo.exec.SelectContext(ctx, &rows, `SELECT `+coachColumns+` FROM coach ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "querying coaches")
	}
	return repo.fromRows(rows), nil
}

func (repo coachRepository) GetCoachByID(ctx context.Context, id int) (coach.Coach, error) {
	var row coachRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT `+coachColumns+` FROM coach WHERE id = $1`, id); err != nil {
		return coach.Coach{}, repo.trapNoRowsErr(err, "getting coach by id")
	}
	return repo.fromRow(row), nil
}

func (repo coachRepository) GetCoachByEmail(ctx context.Context, email string) (coach.Coach, error) {
	var row coachRow
	if err := repo.exec.GetContext(ctx, &row, `SELECT `+coachColumns+` FROM coach WHERE email = $1`, email); err != nil {
		return coach.Coach{}, repo.trapNoRowsErr(err, "getting coach by email")
	}
	return repo.fromRow(row), nil
}

func (repo coachRepository) UpdateCoach(ctx context.Context, c coach.Coach, isActive *bool) (coach.Coach, error) {
	query := `
		UPDATE coach SET
			name = COALESCE(NULLIF($2::text, ''), name),
			rank = COALESCE(NULLIF($3::text, ''), rank),
			is_active = COALESCE($4::boolean, is_active),
			updated_at = $5
		WHERE id = $1
		RETURNING ` + coachColumns

	var row coachRow
	err := repo.exec.GetContext(ctx, &row, query, c.ID, c.Name, c.Rank, isActive, c.UpdatedAt.UTC())
	if err != nil {
		return coach.Coach{}, repo.trapNoRowsErr(err, "updating coach")
	}
	return repo.fromRow(row), nil
}

func (repo coachRepository) GetSponsorChain(ctx context.Context, coachID, maxLevels int) ([]coach.ChainMember, error) {
	if _, err := repo.GetCoachByID(ctx, coachID); err != nil {
		return nil, err
	}

	// walk up from the direct sponsor, carrying the visited path to flag cycles
	query := `
		WITH RECURSIVE chain AS (
			SELECT c.id, c.rank, c.sponsor_id, 1 AS level, ARRAY[$1::int, c.id] AS path, FALSE AS cycle
			FROM coach c
			WHERE c.id = (SELECT sponsor_id FROM coach WHERE id = $1)
			UNION ALL
			SELECT c.id, c.rank, c.sponsor_id, chain.level + 1, chain.path || c.id, c.id = ANY(chain.path)
			FROM coach c
			JOIN chain ON c.id = chain.sponsor_id
			WHERE chain.level < $2 AND NOT chain.cycle
		)
		SELECT id, rank, cycle FROM chain ORDER BY level`

	var rows []struct {
		ID    int    `db:"id"`
		Rank  string `db:"rank"`
		Cycle bool   `db:"cycle"`
	}
	if err := repo.exec.SelectContext(ctx, &rows, query, coachID, maxLevels); err != nil {
		return nil, errors.Wrap(err, "querying sponsor chain")
	}

	chain := make([]coach.ChainMember, 0, len(rows))
	for _, row := range rows {
		if row.Cycle {
			return nil, coach.ErrChainCycle
		}
		chain = append(chain, coach.ChainMember{CoachID: row.ID, Rank: row.Rank})
	}
	return chain, nil
}
