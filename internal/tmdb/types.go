package tmdb

// ──────────────────── Movie / TV details ────────────────────

type Genre struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type ProductionCompany struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo_path"`
}

type Network struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo_path"`
}

type SpokenLanguage struct {
	ISO6391 string `json:"iso_639_1"`
	Name    string `json:"english_name"`
}

type ProductionCountry struct {
	ISO31661 string `json:"iso_3166_1"`
	Name     string `json:"name"`
}

type Keyword struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type VideoEntry struct {
	Key  string `json:"key"`
	Name string `json:"name"`
	Site string `json:"site"`
	Type string `json:"type"`
}

type MovieDetails struct {
	ID                  int64               `json:"id"`
	Title               string              `json:"title"`
	OriginalTitle       string              `json:"original_title"`
	Overview            string              `json:"overview"`
	Tagline             string              `json:"tagline"`
	ReleaseDate         string              `json:"release_date"`
	Runtime             int                 `json:"runtime"`
	Revenue             int64               `json:"revenue"`
	Budget              int64               `json:"budget"`
	Popularity          float64             `json:"popularity"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	Status              string              `json:"status"`
	PosterPath          string              `json:"poster_path"`
	BackdropPath        string              `json:"backdrop_path"`
	OriginalLanguage    string              `json:"original_language"`
	Genres              []Genre             `json:"genres"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	ProductionCountries []ProductionCountry `json:"production_countries"`
	SpokenLanguages     []SpokenLanguage    `json:"spoken_languages"`
	ReleaseDates        struct {
		Results []ReleaseDateCountry `json:"results"`
	} `json:"release_dates"`
	Videos struct {
		Results []VideoEntry `json:"results"`
	} `json:"videos"`
	Keywords struct {
		Keywords []Keyword `json:"keywords"`
	} `json:"keywords"`
}

type TVDetails struct {
	ID                  int64               `json:"id"`
	Name                string              `json:"name"`
	OriginalName        string              `json:"original_name"`
	Overview            string              `json:"overview"`
	Tagline             string              `json:"tagline"`
	FirstAirDate        string              `json:"first_air_date"`
	LastAirDate         string              `json:"last_air_date"`
	EpisodeRunTime      []int               `json:"episode_run_time"`
	Popularity          float64             `json:"popularity"`
	VoteAverage         float64             `json:"vote_average"`
	VoteCount           int                 `json:"vote_count"`
	Status              string              `json:"status"`
	PosterPath          string              `json:"poster_path"`
	BackdropPath        string              `json:"backdrop_path"`
	OriginalLanguage    string              `json:"original_language"`
	NumberOfSeasons     int                 `json:"number_of_seasons"`
	NumberOfEpisodes    int                 `json:"number_of_episodes"`
	Genres              []Genre             `json:"genres"`
	Networks            []Network           `json:"networks"`
	ProductionCompanies []ProductionCompany `json:"production_companies"`
	OriginCountry       []string            `json:"origin_country"`
	Seasons             []SeasonSummary     `json:"seasons"`
	LastEpisodeToAir    *EpisodeSummary     `json:"last_episode_to_air"`
	ExternalIDs         struct {
		IMDBID string `json:"imdb_id"`
	} `json:"external_ids"`
	Videos struct {
		Results []VideoEntry `json:"results"`
	} `json:"videos"`
	Keywords struct {
		Results []Keyword `json:"results"`
	} `json:"keywords"`
}

type SeasonSummary struct {
	ID           int64  `json:"id"`
	SeasonNumber int    `json:"season_number"`
	Name         string `json:"name"`
	AirDate      string `json:"air_date"`
	EpisodeCount int    `json:"episode_count"`
	PosterPath   string `json:"poster_path"`
}

type EpisodeSummary struct {
	SeasonNumber  int `json:"season_number"`
	EpisodeNumber int `json:"episode_number"`
}

// ──────────────────── Release info / certification ────────────────────

type ReleaseDateCountry struct {
	ISO31661     string             `json:"iso_3166_1"`
	ReleaseDates []ReleaseDateEntry `json:"release_dates"`
}

type ReleaseDateEntry struct {
	Certification string `json:"certification"`
	ReleaseDate   string `json:"release_date"`
	// 3 = theatrical, 4 = digital
	Type int `json:"type"`
}

const (
	ReleaseTypeTheatrical = 3
	ReleaseTypeDigital    = 4
)

// Certification returns the first non-empty certification for the country,
// or "" if none.
func (r *MovieDetails) Certification(country string) string {
	for _, c := range r.ReleaseDates.Results {
		if c.ISO31661 != country {
			continue
		}
		for _, rd := range c.ReleaseDates {
			if rd.Certification != "" {
				return rd.Certification
			}
		}
	}
	return ""
}

// ReleaseOfType returns the release date string of the given type for the
// country, preferring it over other entries; "" if absent.
func (r *MovieDetails) ReleaseOfType(country string, typ int) string {
	for _, c := range r.ReleaseDates.Results {
		if c.ISO31661 != country {
			continue
		}
		for _, rd := range c.ReleaseDates {
			if rd.Type == typ && rd.ReleaseDate != "" {
				return rd.ReleaseDate
			}
		}
	}
	return ""
}

type ContentRatings struct {
	Results []struct {
		ISO31661 string `json:"iso_3166_1"`
		Rating   string `json:"rating"`
	} `json:"results"`
}

// Rating returns the certification for the country, or "" if absent.
func (c *ContentRatings) Rating(country string) string {
	for _, r := range c.Results {
		if r.ISO31661 == country && r.Rating != "" {
			return r.Rating
		}
	}
	return ""
}

// ──────────────────── Credits ────────────────────

type CastMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Character   string `json:"character"`
	ProfilePath string `json:"profile_path"`
	Order       int    `json:"order"`
}

type CrewMember struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Job         string `json:"job"`
	Department  string `json:"department"`
	ProfilePath string `json:"profile_path"`
}

type Credits struct {
	Cast []CastMember `json:"cast"`
	Crew []CrewMember `json:"crew"`
}

// AggregateCredits is the TV/drama credits shape: per-person role and job
// arrays with episode tallies.
type AggregateCredits struct {
	Cast []AggregateCastMember `json:"cast"`
	Crew []AggregateCrewMember `json:"crew"`
}

type AggregateCastMember struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	ProfilePath       string `json:"profile_path"`
	Order             int    `json:"order"`
	TotalEpisodeCount int    `json:"total_episode_count"`
	Roles             []struct {
		Character    string `json:"character"`
		EpisodeCount int    `json:"episode_count"`
	} `json:"roles"`
}

type AggregateCrewMember struct {
	ID                int64  `json:"id"`
	Name              string `json:"name"`
	ProfilePath       string `json:"profile_path"`
	Department        string `json:"department"`
	TotalEpisodeCount int    `json:"total_episode_count"`
	Jobs              []struct {
		Job          string `json:"job"`
		EpisodeCount int    `json:"episode_count"`
	} `json:"jobs"`
}

// ──────────────────── Seasons / Episodes ────────────────────

type SeasonDetails struct {
	ID           int64            `json:"id"`
	SeasonNumber int              `json:"season_number"`
	Name         string           `json:"name"`
	Overview     string           `json:"overview"`
	AirDate      string           `json:"air_date"`
	PosterPath   string           `json:"poster_path"`
	Episodes     []EpisodeDetails `json:"episodes"`
}

type EpisodeDetails struct {
	ID            int64   `json:"id"`
	SeasonNumber  int     `json:"season_number"`
	EpisodeNumber int     `json:"episode_number"`
	Name          string  `json:"name"`
	Overview      string  `json:"overview"`
	AirDate       string  `json:"air_date"`
	EpisodeType   string  `json:"episode_type"`
	Runtime       int     `json:"runtime"`
	StillPath     string  `json:"still_path"`
	VoteAverage   float64 `json:"vote_average"`
	VoteCount     int     `json:"vote_count"`
	GuestStars    []CastMember `json:"guest_stars"`
	Crew          []CrewMember `json:"crew"`
	Credits       *struct {
		Cast       []CastMember `json:"cast"`
		GuestStars []CastMember `json:"guest_stars"`
		Crew       []CrewMember `json:"crew"`
	} `json:"credits"`
}

// ──────────────────── People ────────────────────

type PersonDetails struct {
	ID           int64   `json:"id"`
	Name         string  `json:"name"`
	Gender       int     `json:"gender"`
	Birthday     string  `json:"birthday"`
	Deathday     string  `json:"deathday"`
	PlaceOfBirth string  `json:"place_of_birth"`
	KnownFor     string  `json:"known_for_department"`
	Popularity   float64 `json:"popularity"`
	ProfilePath  string  `json:"profile_path"`
}

type PersonExternalIDs struct {
	IMDBID      string `json:"imdb_id"`
	FacebookID  string `json:"facebook_id"`
	InstagramID string `json:"instagram_id"`
	TwitterID   string `json:"twitter_id"`
	TikTokID    string `json:"tiktok_id"`
	YouTubeID   string `json:"youtube_id"`
}

// ──────────────────── Images ────────────────────

type Image struct {
	FilePath    string  `json:"file_path"`
	VoteAverage float64 `json:"vote_average"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
}

type Images struct {
	Posters   []Image `json:"posters"`
	Backdrops []Image `json:"backdrops"`
}
