package models

import "fmt"

// ──────────────────── Entity Kinds ────────────────────

// EntityKind is the closed set of content kinds the sync core operates on.
// Every table name and identity-key decision flows through the kindInfo
// lookup below; nothing else in the codebase branches on raw kind strings.
type EntityKind string

const (
	KindMovie    EntityKind = "movie"
	KindTVSeries EntityKind = "tv"
	KindDrama    EntityKind = "drama"
	KindPerson   EntityKind = "person"
	KindSeason   EntityKind = "season"
	KindEpisode  EntityKind = "episode"
	KindVideo    EntityKind = "video"
)

type kindInfo struct {
	tablePrefix string
	// aggregate-credit kinds fetch roles/jobs arrays with episode tallies
	// instead of single character/job labels.
	aggregateCredits bool
	hasSeasons       bool
	hasEpisodes      bool
}

var kinds = map[EntityKind]kindInfo{
	KindMovie:    {tablePrefix: "tmu_movies"},
	KindTVSeries: {tablePrefix: "tmu_tv_series", aggregateCredits: true, hasSeasons: true, hasEpisodes: true},
	KindDrama:    {tablePrefix: "tmu_dramas", aggregateCredits: true, hasEpisodes: true},
	KindPerson:   {tablePrefix: "tmu_people"},
	KindVideo:    {tablePrefix: "tmu_videos"},
}

// ParseKind validates a kind string from the wire.
func ParseKind(s string) (EntityKind, error) {
	k := EntityKind(s)
	switch k {
	case KindMovie, KindTVSeries, KindDrama, KindPerson, KindSeason, KindEpisode, KindVideo:
		return k, nil
	}
	return "", fmt.Errorf("unknown entity kind %q", s)
}

// TitleKinds are the kinds that own a Title row and a credit table pair.
func TitleKinds() []EntityKind {
	return []EntityKind{KindMovie, KindTVSeries, KindDrama}
}

func (k EntityKind) String() string { return string(k) }

func (k EntityKind) IsTitle() bool {
	return k == KindMovie || k == KindTVSeries || k == KindDrama
}

func (k EntityKind) Table() string        { return kinds[k].tablePrefix }
func (k EntityKind) CastTable() string    { return kinds[k].tablePrefix + "_cast" }
func (k EntityKind) CrewTable() string    { return kinds[k].tablePrefix + "_crew" }
func (k EntityKind) SeasonsTable() string { return kinds[k].tablePrefix + "_seasons" }

func (k EntityKind) EpisodesTable() string { return kinds[k].tablePrefix + "_episodes" }

// UsesAggregateCredits reports whether the kind's credits come from the
// aggregate-credits endpoint (roles/jobs arrays with episode tallies).
func (k EntityKind) UsesAggregateCredits() bool { return kinds[k].aggregateCredits }

// HasSeasons reports whether the kind participates in the
// series → season → episode cascade.
func (k EntityKind) HasSeasons() bool { return kinds[k].hasSeasons }

// HasEpisodes reports whether the kind owns episode rows at all; dramas have
// episodes without a season dimension.
func (k EntityKind) HasEpisodes() bool { return kinds[k].hasEpisodes }
