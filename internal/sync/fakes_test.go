package sync

import (
	"context"
	"errors"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/tmdb"
)

var errNotStubbed = errors.New("not stubbed")

// fakeFetcher answers from fixtures; any endpoint without a stub reports a
// fetch failure, which the reconciler treats as a skipped enrichment.
type fakeFetcher struct {
	movie     *tmdb.MovieDetails
	tv        *tmdb.TVDetails
	ratings   *tmdb.ContentRatings
	credits   *tmdb.Credits
	aggregate *tmdb.AggregateCredits
	seasons   map[int]*tmdb.SeasonDetails
	person    *tmdb.PersonDetails

	seasonFetches []int
}

func (f *fakeFetcher) MovieDetails(ctx context.Context, id int64) (*tmdb.MovieDetails, error) {
	if f.movie == nil {
		return nil, errNotStubbed
	}
	return f.movie, nil
}

func (f *fakeFetcher) TVDetails(ctx context.Context, id int64) (*tmdb.TVDetails, error) {
	if f.tv == nil {
		return nil, errNotStubbed
	}
	return f.tv, nil
}

func (f *fakeFetcher) TVContentRatings(ctx context.Context, id int64) (*tmdb.ContentRatings, error) {
	if f.ratings == nil {
		return nil, errNotStubbed
	}
	return f.ratings, nil
}

func (f *fakeFetcher) MovieCredits(ctx context.Context, id int64) (*tmdb.Credits, error) {
	if f.credits == nil {
		return nil, errNotStubbed
	}
	return f.credits, nil
}

func (f *fakeFetcher) TVAggregateCredits(ctx context.Context, id int64) (*tmdb.AggregateCredits, error) {
	if f.aggregate == nil {
		return nil, errNotStubbed
	}
	return f.aggregate, nil
}

func (f *fakeFetcher) SeasonDetails(ctx context.Context, seriesID int64, season int) (*tmdb.SeasonDetails, error) {
	f.seasonFetches = append(f.seasonFetches, season)
	d, ok := f.seasons[season]
	if !ok {
		return nil, errNotStubbed
	}
	return d, nil
}

func (f *fakeFetcher) EpisodeDetails(ctx context.Context, seriesID int64, season, episode int) (*tmdb.EpisodeDetails, error) {
	return nil, errNotStubbed
}

func (f *fakeFetcher) PersonDetails(ctx context.Context, id int64) (*tmdb.PersonDetails, error) {
	if f.person == nil {
		return nil, errNotStubbed
	}
	return f.person, nil
}

func (f *fakeFetcher) PersonExternalIDs(ctx context.Context, id int64) (*tmdb.PersonExternalIDs, error) {
	return nil, errNotStubbed
}

func (f *fakeFetcher) TitleImages(ctx context.Context, mediaPath string, id int64) (*tmdb.Images, error) {
	return nil, errNotStubbed
}

// noopMedia records nothing and never fails.
type noopMedia struct{}

func (noopMedia) AttachPoster(context.Context, models.EntityKind, int64, string) error   { return nil }
func (noopMedia) AttachGallery(context.Context, models.EntityKind, int64, []string) error {
	return nil
}
func (noopMedia) AttachSeasonPoster(context.Context, int64, string) error { return nil }
func (noopMedia) AttachEpisodeStill(context.Context, models.EntityKind, int64, string) error {
	return nil
}
func (noopMedia) AttachProfile(context.Context, int64, string) error { return nil }
func (noopMedia) ImportYouTubeVideo(context.Context, models.EntityKind, int64, string, string) error {
	return nil
}
