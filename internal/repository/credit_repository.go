package repository

import (
	"database/sql"
	"fmt"

	"github.com/tmuhq/tmusync/internal/models"
)

// CreditRepository serves the _cast/_crew sibling tables of every title
// family. Cast identity is (parent, person) for movies and
// (parent, person, role) for aggregate-credit kinds; crew identity is always
// (parent, person, job).
type CreditRepository struct {
	db *sql.DB
}

func NewCreditRepository(db *sql.DB) *CreditRepository {
	return &CreditRepository{db: db}
}

// ──────────────────── Cast ────────────────────

func (r *CreditRepository) GetCast(kind models.EntityKind, parentID, personID int64) (*models.CastCredit, error) {
	c := &models.CastCredit{}
	query := fmt.Sprintf(`
		SELECT id, parent_id, person_id, role, release_year, episode_count, sort_order
		FROM %s WHERE parent_id = $1 AND person_id = $2`, kind.CastTable())
	err := r.db.QueryRow(query, parentID, personID).Scan(
		&c.ID, &c.ParentID, &c.PersonID, &c.Role, &c.ReleaseYear, &c.EpisodeCount, &c.SortOrder)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// UpsertCast writes a cast row in one statement. The caller computes the
// merged role label before calling; the conflict target keeps concurrent
// inserts from duplicating the row.
func (r *CreditRepository) UpsertCast(kind models.EntityKind, c *models.CastCredit) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (parent_id, person_id, role, release_year, episode_count, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (parent_id, person_id) DO UPDATE SET
			role = EXCLUDED.role,
			release_year = COALESCE(EXCLUDED.release_year, %s.release_year),
			episode_count = COALESCE(EXCLUDED.episode_count, %s.episode_count),
			sort_order = EXCLUDED.sort_order
		RETURNING id`, kind.CastTable(), kind.CastTable(), kind.CastTable())
	return r.db.QueryRow(query,
		c.ParentID, c.PersonID, c.Role, c.ReleaseYear, c.EpisodeCount, c.SortOrder).Scan(&c.ID)
}

func (r *CreditRepository) ListCast(kind models.EntityKind, parentID int64) ([]*models.CastCredit, error) {
	query := fmt.Sprintf(`
		SELECT id, parent_id, person_id, role, release_year, episode_count, sort_order
		FROM %s WHERE parent_id = $1 ORDER BY sort_order, id`, kind.CastTable())
	rows, err := r.db.Query(query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credits []*models.CastCredit
	for rows.Next() {
		c := &models.CastCredit{}
		if err := rows.Scan(&c.ID, &c.ParentID, &c.PersonID, &c.Role,
			&c.ReleaseYear, &c.EpisodeCount, &c.SortOrder); err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

// ──────────────────── Crew ────────────────────

func (r *CreditRepository) GetCrew(kind models.EntityKind, parentID, personID int64, job string) (*models.CrewCredit, error) {
	c := &models.CrewCredit{}
	query := fmt.Sprintf(`
		SELECT id, parent_id, person_id, department, job, release_year, episode_count
		FROM %s WHERE parent_id = $1 AND person_id = $2 AND job = $3`, kind.CrewTable())
	err := r.db.QueryRow(query, parentID, personID, job).Scan(
		&c.ID, &c.ParentID, &c.PersonID, &c.Department, &c.Job, &c.ReleaseYear, &c.EpisodeCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

func (r *CreditRepository) UpsertCrew(kind models.EntityKind, c *models.CrewCredit) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (parent_id, person_id, department, job, release_year, episode_count)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (parent_id, person_id, job) DO UPDATE SET
			department = EXCLUDED.department,
			release_year = COALESCE(EXCLUDED.release_year, %s.release_year),
			episode_count = COALESCE(EXCLUDED.episode_count, %s.episode_count)
		RETURNING id`, kind.CrewTable(), kind.CrewTable(), kind.CrewTable())
	return r.db.QueryRow(query,
		c.ParentID, c.PersonID, c.Department, c.Job, c.ReleaseYear, c.EpisodeCount).Scan(&c.ID)
}

func (r *CreditRepository) ListCrew(kind models.EntityKind, parentID int64) ([]*models.CrewCredit, error) {
	query := fmt.Sprintf(`
		SELECT id, parent_id, person_id, department, job, release_year, episode_count
		FROM %s WHERE parent_id = $1 ORDER BY department, job, id`, kind.CrewTable())
	rows, err := r.db.Query(query, parentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credits []*models.CrewCredit
	for rows.Next() {
		c := &models.CrewCredit{}
		if err := rows.Scan(&c.ID, &c.ParentID, &c.PersonID, &c.Department,
			&c.Job, &c.ReleaseYear, &c.EpisodeCount); err != nil {
			return nil, err
		}
		credits = append(credits, c)
	}
	return credits, rows.Err()
}

// ──────────────────── Full resync ────────────────────

// ReplaceAll deletes every cast and crew row for the parent and reinserts
// the given sets inside a single transaction — the explicit "refresh
// credits" path, distinct from the incremental merge.
func (r *CreditRepository) ReplaceAll(kind models.EntityKind, parentID int64, cast []*models.CastCredit, crew []*models.CrewCredit) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE parent_id = $1`, kind.CastTable()), parentID); err != nil {
		return fmt.Errorf("clear cast: %w", err)
	}
	if _, err := tx.Exec(fmt.Sprintf(`DELETE FROM %s WHERE parent_id = $1`, kind.CrewTable()), parentID); err != nil {
		return fmt.Errorf("clear crew: %w", err)
	}

	castQuery := fmt.Sprintf(`
		INSERT INTO %s (parent_id, person_id, role, release_year, episode_count, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`, kind.CastTable())
	for _, c := range cast {
		if _, err := tx.Exec(castQuery, parentID, c.PersonID, c.Role, c.ReleaseYear, c.EpisodeCount, c.SortOrder); err != nil {
			return fmt.Errorf("insert cast: %w", err)
		}
	}

	crewQuery := fmt.Sprintf(`
		INSERT INTO %s (parent_id, person_id, department, job, release_year, episode_count)
		VALUES ($1, $2, $3, $4, $5, $6) ON CONFLICT DO NOTHING`, kind.CrewTable())
	for _, c := range crew {
		if _, err := tx.Exec(crewQuery, parentID, c.PersonID, c.Department, c.Job, c.ReleaseYear, c.EpisodeCount); err != nil {
			return fmt.Errorf("insert crew: %w", err)
		}
	}

	return tx.Commit()
}

// DeleteForParent removes all credit rows for a parent (title deletion path).
func (r *CreditRepository) DeleteForParent(kind models.EntityKind, parentID int64) error {
	if _, err := r.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE parent_id = $1`, kind.CastTable()), parentID); err != nil {
		return err
	}
	_, err := r.db.Exec(fmt.Sprintf(`DELETE FROM %s WHERE parent_id = $1`, kind.CrewTable()), parentID)
	return err
}
