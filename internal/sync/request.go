package sync

import "github.com/tmuhq/tmusync/internal/models"

// SyncRequest carries every field the reconciliation core reads or derives
// for one save event. It replaces the original system's habit of reading a
// process-wide submitted-fields map: the save hook and the bulk trigger both
// build one of these explicitly and thread it through each step.
type SyncRequest struct {
	Kind    models.EntityKind `json:"kind"`
	LocalID int64             `json:"local_id"`
	TMDBID  int64             `json:"tmdb_id"`

	// Submitted scalar fields. Empty/zero means "not provided, fill from
	// remote"; a present value is an explicit edit and is never clobbered.
	Title           string  `json:"title"`
	OriginalTitle   string  `json:"original_title"`
	ReleaseDate     string  `json:"release_date"`
	Runtime         int     `json:"runtime"`
	Tagline         string  `json:"tagline"`
	Certification   string  `json:"certification"`
	Popularity      float64 `json:"popularity"`
	VoteAverage     float64 `json:"vote_average"`
	VoteCount       int     `json:"vote_count"`
	Revenue         int64   `json:"revenue"`
	Budget          int64   `json:"budget"`
	ProductionHouse string  `json:"production_house"`

	// Custom, hand-entered credits. These follow the append-only merge path
	// and never trigger the delete-all resync.
	CustomCast []SubmittedCredit `json:"custom_cast,omitempty"`
	CustomCrew []SubmittedCredit `json:"custom_crew,omitempty"`

	// Sub-resource refresh flags from the bulk/admin trigger surface.
	RefreshCredits bool `json:"refresh_credits"`
	RefreshImages  bool `json:"refresh_images"`
	RefreshVideos  bool `json:"refresh_videos"`
	RefreshSeasons bool `json:"refresh_seasons"`
	// OnlySeason restricts the season cascade to a single season number;
	// zero means all seasons.
	OnlySeason int `json:"only_season"`

	// Derived during reconciliation; declared here so nothing is smuggled
	// through hidden state.
	DerivedReleaseTimestamp int64 `json:"-"`
	DerivedReleaseYear      int   `json:"-"`
}

// SubmittedCredit is one hand-entered cast or crew credit.
type SubmittedCredit struct {
	PersonID   int64  `json:"person_id,omitempty"`
	TMDBID     int64  `json:"tmdb_id,omitempty"`
	Name       string `json:"name"`
	Role       string `json:"role,omitempty"`
	Job        string `json:"job,omitempty"`
	Department string `json:"department,omitempty"`
}

// certification placeholder inherited from the upstream data entry flow
const certificationPlaceholder = "U/A"

// fillString implements the fill-empty-never-clobber rule for one string
// field: submitted wins when present, then the stored value, then remote.
// Returns the final value and whether it differs from stored.
func fillString(submitted string, stored *string, remote string) (string, bool) {
	if submitted != "" && submitted != certificationPlaceholder {
		return submitted, stored == nil || *stored != submitted
	}
	if stored != nil && *stored != "" && *stored != certificationPlaceholder {
		return *stored, false
	}
	if remote == "" {
		if stored != nil {
			return *stored, false
		}
		return "", false
	}
	return remote, stored == nil || *stored != remote
}

func fillInt(submitted int, stored *int, remote int) (int, bool) {
	if submitted != 0 {
		return submitted, stored == nil || *stored != submitted
	}
	if stored != nil && *stored != 0 {
		return *stored, false
	}
	if remote == 0 {
		if stored != nil {
			return *stored, false
		}
		return 0, false
	}
	return remote, stored == nil || *stored != remote
}

func fillInt64(submitted int64, stored *int64, remote int64) (int64, bool) {
	if submitted != 0 {
		return submitted, stored == nil || *stored != submitted
	}
	if stored != nil && *stored != 0 {
		return *stored, false
	}
	if remote == 0 {
		if stored != nil {
			return *stored, false
		}
		return 0, false
	}
	return remote, stored == nil || *stored != remote
}

func fillFloat(submitted float64, stored *float64, remote float64) (float64, bool) {
	if submitted != 0 {
		return submitted, stored == nil || *stored != submitted
	}
	if stored != nil && *stored != 0 {
		return *stored, false
	}
	if remote == 0 {
		if stored != nil {
			return *stored, false
		}
		return 0, false
	}
	return remote, stored == nil || *stored != remote
}

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func intPtr(n int) *int {
	if n == 0 {
		return nil
	}
	return &n
}

func int64Ptr(n int64) *int64 {
	if n == 0 {
		return nil
	}
	return &n
}

func floatPtr(f float64) *float64 {
	if f == 0 {
		return nil
	}
	return &f
}
