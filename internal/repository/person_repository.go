package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/tmuhq/tmusync/internal/models"
)

type PersonRepository struct {
	db *sql.DB
}

func NewPersonRepository(db *sql.DB) *PersonRepository {
	return &PersonRepository{db: db}
}

const personColumns = `id, tmdb_id, name, gender, birthday, deathday, birthplace,
	profession, popularity, social, known_for, profile_path, created_at, updated_at`

func scanPerson(row interface{ Scan(...interface{}) error }) (*models.Person, error) {
	p := &models.Person{}
	var social, knownFor []byte
	err := row.Scan(
		&p.ID, &p.TMDBID, &p.Name, &p.Gender, &p.Birthday, &p.Deathday, &p.Birthplace,
		&p.Profession, &p.Popularity, &social, &knownFor, &p.ProfilePath,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(social) > 0 {
		p.Social = &models.SocialLinks{}
		if err := json.Unmarshal(social, p.Social); err != nil {
			p.Social = nil
		}
	}
	if len(knownFor) > 0 {
		p.KnownFor = &models.KnownFor{}
		if err := json.Unmarshal(knownFor, p.KnownFor); err != nil {
			p.KnownFor = nil
		}
	}
	return p, nil
}

func (r *PersonRepository) GetByID(id int64) (*models.Person, error) {
	query := fmt.Sprintf(`SELECT %s FROM tmu_people WHERE id = $1`, personColumns)
	p, err := scanPerson(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *PersonRepository) GetByTMDBID(tmdbID int64) (*models.Person, error) {
	query := fmt.Sprintf(`SELECT %s FROM tmu_people WHERE tmdb_id = $1`, personColumns)
	p, err := scanPerson(r.db.QueryRow(query, tmdbID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// FindByName is the name-based fallback used when a credit carries no usable
// provider id. Exact match, first row wins.
func (r *PersonRepository) FindByName(name string) (*models.Person, error) {
	query := fmt.Sprintf(`SELECT %s FROM tmu_people WHERE LOWER(name) = LOWER($1) ORDER BY id LIMIT 1`, personColumns)
	p, err := scanPerson(r.db.QueryRow(query, name))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// Upsert inserts or updates a person keyed on tmdb_id in one statement, so
// concurrent resolutions of the same person cannot race into duplicates.
func (r *PersonRepository) Upsert(p *models.Person) error {
	social, err := marshalOrNilPerson(p.Social)
	if err != nil {
		return err
	}
	knownFor, err := marshalOrNilPerson(p.KnownFor)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO tmu_people (tmdb_id, name, gender, birthday, deathday, birthplace,
		                        profession, popularity, social, known_for, profile_path)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (tmdb_id) DO UPDATE SET
			name = EXCLUDED.name,
			gender = EXCLUDED.gender,
			birthday = COALESCE(EXCLUDED.birthday, tmu_people.birthday),
			deathday = COALESCE(EXCLUDED.deathday, tmu_people.deathday),
			birthplace = COALESCE(EXCLUDED.birthplace, tmu_people.birthplace),
			profession = COALESCE(EXCLUDED.profession, tmu_people.profession),
			popularity = COALESCE(EXCLUDED.popularity, tmu_people.popularity),
			social = COALESCE(EXCLUDED.social, tmu_people.social),
			profile_path = COALESCE(EXCLUDED.profile_path, tmu_people.profile_path),
			updated_at = CURRENT_TIMESTAMP
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(query,
		p.TMDBID, p.Name, p.Gender, p.Birthday, p.Deathday, p.Birthplace,
		p.Profession, p.Popularity, social, knownFor, p.ProfilePath,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// CreateWithoutTMDBID inserts a person that has no provider id (hand-entered
// custom credits). No conflict target exists for these.
func (r *PersonRepository) CreateWithoutTMDBID(p *models.Person) error {
	query := `
		INSERT INTO tmu_people (name, gender, profession, profile_path)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`
	return r.db.QueryRow(query, p.Name, p.Gender, p.Profession, p.ProfilePath).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// AddKnownFor appends a title id to the person's known-for back-references
// if not already present.
func (r *PersonRepository) AddKnownFor(personID, titleID int64) error {
	p, err := r.GetByID(personID)
	if err != nil || p == nil {
		return err
	}
	kf := p.KnownFor
	if kf == nil {
		kf = &models.KnownFor{Version: models.SnapshotVersion}
	}
	for _, id := range kf.Titles {
		if id == titleID {
			return nil
		}
	}
	kf.Titles = append(kf.Titles, titleID)
	data, err := json.Marshal(kf)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(
		`UPDATE tmu_people SET known_for = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		data, personID)
	return err
}

func (r *PersonRepository) Delete(id int64) error {
	res, err := r.db.Exec(`DELETE FROM tmu_people WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return fmt.Errorf("person %d not found", id)
	}
	return nil
}

func (r *PersonRepository) SetProfilePath(id int64, path string) error {
	_, err := r.db.Exec(
		`UPDATE tmu_people SET profile_path = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`,
		path, id)
	return err
}

// ListPublished returns (id, updated_at) pages for the sitemap view.
func (r *PersonRepository) ListPublished(limit, offset int) ([]SitemapEntry, error) {
	rows, err := r.db.Query(
		`SELECT id, updated_at FROM tmu_people ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []SitemapEntry
	for rows.Next() {
		var e SitemapEntry
		if err := rows.Scan(&e.ID, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *PersonRepository) CountAll() (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM tmu_people`).Scan(&n)
	return n, err
}

func marshalOrNilPerson(v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case *models.SocialLinks:
		if x == nil {
			return nil, nil
		}
	case *models.KnownFor:
		if x == nil {
			return nil, nil
		}
	}
	return json.Marshal(v)
}
