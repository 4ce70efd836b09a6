package models

import (
	"time"
)

// SnapshotVersion tags every JSONB snapshot column so future shape changes
// can be migrated explicitly.
const SnapshotVersion = 1

// ──────────────────── Enums ────────────────────

type Gender string

const (
	GenderMale         Gender = "Male"
	GenderFemale       Gender = "Female"
	GenderNotSpecified Gender = "Not Specified"
)

// GenderFromTMDB maps the provider's numeric gender code.
func GenderFromTMDB(code int) Gender {
	switch code {
	case 1:
		return GenderFemale
	case 2:
		return GenderMale
	}
	return GenderNotSpecified
}

type UserRole string

const (
	RoleAdmin  UserRole = "admin"
	RoleEditor UserRole = "editor"
)

// BulkAction is the admin trigger surface's requested operation.
type BulkAction string

const (
	BulkAdd    BulkAction = "add"
	BulkUpdate BulkAction = "update"
	BulkDelete BulkAction = "delete"
)

// ──────────────────── Title ────────────────────

// Title is a row in tmu_movies, tmu_tv_series or tmu_dramas. The Kind field
// selects the table family; columns are identical except Revenue/Budget
// (movies only) and the finished/last-pointer trio (tv/drama only).
type Title struct {
	ID               int64             `json:"id" db:"id"`
	Kind             EntityKind        `json:"kind" db:"-"`
	TMDBID           *int64            `json:"tmdb_id,omitempty" db:"tmdb_id"`
	Title            string            `json:"title" db:"title"`
	OriginalTitle    *string           `json:"original_title,omitempty" db:"original_title"`
	ReleaseDate      *string           `json:"release_date,omitempty" db:"release_date"`
	ReleaseTimestamp *int64            `json:"release_timestamp,omitempty" db:"release_timestamp"`
	Runtime          *int              `json:"runtime,omitempty" db:"runtime"`
	Tagline          *string           `json:"tagline,omitempty" db:"tagline"`
	Certification    *string           `json:"certification,omitempty" db:"certification"`
	Popularity       *float64          `json:"popularity,omitempty" db:"popularity"`
	VoteAverage      *float64          `json:"vote_average,omitempty" db:"vote_average"`
	VoteCount        *int              `json:"vote_count,omitempty" db:"vote_count"`
	Revenue          *int64            `json:"revenue,omitempty" db:"revenue"`
	Budget           *int64            `json:"budget,omitempty" db:"budget"`
	ProductionHouse  *string           `json:"production_house,omitempty" db:"production_house"`
	StarCast         *StarCastSnapshot `json:"star_cast,omitempty" db:"star_cast"`
	Credits          *CreditsSnapshot  `json:"credits,omitempty" db:"credits"`
	PendingCredits   *CreditsSnapshot  `json:"pending_credits,omitempty" db:"pending_credits"`
	Finished         bool              `json:"finished" db:"finished"`
	LastSeason       *int              `json:"last_season,omitempty" db:"last_season"`
	LastEpisode      *int              `json:"last_episode,omitempty" db:"last_episode"`
	PublishedAt      *time.Time        `json:"published_at,omitempty" db:"published_at"`
	CreatedAt        time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" db:"updated_at"`
}

// StarCastSnapshot is the top-N cast snapshot stored on the Title row.
type StarCastSnapshot struct {
	Version int             `json:"v"`
	Entries []StarCastEntry `json:"entries"`
}

type StarCastEntry struct {
	PersonID  int64  `json:"person_id"`
	Name      string `json:"name"`
	Character string `json:"character"`
}

// FourthSlotEmpty reports whether the snapshot is missing its 4th entry —
// the trigger for recomputing star cast on the next credits pass.
func (s *StarCastSnapshot) FourthSlotEmpty() bool {
	return s == nil || len(s.Entries) < 4
}

// CreditsSnapshot is the serialized full-credits column used to detect
// whether submitted credits differ from the last-synced set.
type CreditsSnapshot struct {
	Version int           `json:"v"`
	Cast    []CreditEntry `json:"cast,omitempty"`
	Crew    []CreditEntry `json:"crew,omitempty"`
}

type CreditEntry struct {
	PersonID   int64  `json:"person_id"`
	Name       string `json:"name"`
	Job        string `json:"job,omitempty"`
	Department string `json:"department,omitempty"`
}

// ──────────────────── Season / Episode ────────────────────

type Season struct {
	ID           int64      `json:"id" db:"id"`
	SeriesID     int64      `json:"series_id" db:"series_id"`
	SeasonNumber int        `json:"season_number" db:"season_number"`
	TMDBID       *int64     `json:"tmdb_id,omitempty" db:"tmdb_id"`
	Name         string     `json:"name" db:"name"`
	AirDate      *string    `json:"air_date,omitempty" db:"air_date"`
	EpisodeCount int        `json:"episode_count" db:"episode_count"`
	AvgRating    *float64   `json:"avg_rating,omitempty" db:"avg_rating"`
	PosterPath   *string    `json:"poster_path,omitempty" db:"poster_path"`
	PublishedAt  *time.Time `json:"published_at,omitempty" db:"published_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// Episode is a row in tmu_tv_series_episodes or tmu_dramas_episodes.
// For dramas SeasonNumber is always 1 and is not part of the identity key.
type Episode struct {
	ID            int64           `json:"id" db:"id"`
	ParentID      int64           `json:"parent_id" db:"parent_id"`
	ParentKind    EntityKind      `json:"parent_kind" db:"-"`
	SeasonNumber  int             `json:"season_number" db:"season_number"`
	EpisodeNumber int             `json:"episode_number" db:"episode_number"`
	Title         string          `json:"title" db:"title"`
	AirDate       *string         `json:"air_date,omitempty" db:"air_date"`
	AirTimestamp  *int64          `json:"air_timestamp,omitempty" db:"air_timestamp"`
	EpisodeType   *string         `json:"episode_type,omitempty" db:"episode_type"`
	Runtime       *int            `json:"runtime,omitempty" db:"runtime"`
	Overview      *string         `json:"overview,omitempty" db:"overview"`
	Credits       *EpisodeCredits `json:"credits,omitempty" db:"credits"`
	VoteAverage   *float64        `json:"vote_average,omitempty" db:"vote_average"`
	VoteCount     *int            `json:"vote_count,omitempty" db:"vote_count"`
	StillPath     *string         `json:"still_path,omitempty" db:"still_path"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at" db:"updated_at"`
}

// EpisodeCredits is the per-episode guest-cast/crew snapshot. Episode credits
// are independent blobs, not rows in the parent's cast/crew tables.
type EpisodeCredits struct {
	Version int           `json:"v"`
	Cast    []CreditEntry `json:"cast,omitempty"`
	Crew    []CreditEntry `json:"crew,omitempty"`
}

// ──────────────────── Person ────────────────────

type Person struct {
	ID          int64        `json:"id" db:"id"`
	TMDBID      *int64       `json:"tmdb_id,omitempty" db:"tmdb_id"`
	Name        string       `json:"name" db:"name"`
	Gender      Gender       `json:"gender" db:"gender"`
	Birthday    *string      `json:"birthday,omitempty" db:"birthday"`
	Deathday    *string      `json:"deathday,omitempty" db:"deathday"`
	Birthplace  *string      `json:"birthplace,omitempty" db:"birthplace"`
	Profession  *string      `json:"profession,omitempty" db:"profession"`
	Popularity  *float64     `json:"popularity,omitempty" db:"popularity"`
	Social      *SocialLinks `json:"social,omitempty" db:"social"`
	KnownFor    *KnownFor    `json:"known_for,omitempty" db:"known_for"`
	ProfilePath *string      `json:"profile_path,omitempty" db:"profile_path"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

type SocialLinks struct {
	Version int          `json:"v"`
	Links   []SocialLink `json:"links"`
}

type SocialLink struct {
	Platform string `json:"platform"`
	URL      string `json:"url"`
}

// KnownFor is the back-reference list of Title ids a person is a star-cast
// member of.
type KnownFor struct {
	Version int     `json:"v"`
	Titles  []int64 `json:"titles"`
}

// ──────────────────── Credits ────────────────────

type CastCredit struct {
	ID           int64  `json:"id" db:"id"`
	ParentID     int64  `json:"parent_id" db:"parent_id"`
	PersonID     int64  `json:"person_id" db:"person_id"`
	Role         string `json:"role" db:"role"`
	ReleaseYear  *int   `json:"release_year,omitempty" db:"release_year"`
	EpisodeCount *int   `json:"episode_count,omitempty" db:"episode_count"`
	SortOrder    int    `json:"sort_order" db:"sort_order"`
}

type CrewCredit struct {
	ID           int64  `json:"id" db:"id"`
	ParentID     int64  `json:"parent_id" db:"parent_id"`
	PersonID     int64  `json:"person_id" db:"person_id"`
	Department   string `json:"department" db:"department"`
	Job          string `json:"job" db:"job"`
	ReleaseYear  *int   `json:"release_year,omitempty" db:"release_year"`
	EpisodeCount *int   `json:"episode_count,omitempty" db:"episode_count"`
}

// ──────────────────── Video ────────────────────

type Video struct {
	ID            int64      `json:"id" db:"id"`
	OwnerKind     EntityKind `json:"owner_kind" db:"owner_kind"`
	OwnerID       int64      `json:"owner_id" db:"owner_id"`
	Source        string     `json:"source" db:"source"`
	ContentType   string     `json:"content_type" db:"content_type"`
	ThumbnailPath *string    `json:"thumbnail_path,omitempty" db:"thumbnail_path"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
}

// ──────────────────── User ────────────────────

type User struct {
	ID           int64     `json:"id" db:"id"`
	Username     string    `json:"username" db:"username"`
	PasswordHash string    `json:"-" db:"password_hash"`
	Role         UserRole  `json:"role" db:"role"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
}
