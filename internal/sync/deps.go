package sync

import (
	"context"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/tmdb"
)

// Fetcher is the slice of the provider client the reconciliation core calls.
// *tmdb.Client satisfies it; tests substitute fixture-backed fakes.
type Fetcher interface {
	MovieDetails(ctx context.Context, id int64) (*tmdb.MovieDetails, error)
	TVDetails(ctx context.Context, id int64) (*tmdb.TVDetails, error)
	TVContentRatings(ctx context.Context, id int64) (*tmdb.ContentRatings, error)
	MovieCredits(ctx context.Context, id int64) (*tmdb.Credits, error)
	TVAggregateCredits(ctx context.Context, id int64) (*tmdb.AggregateCredits, error)
	SeasonDetails(ctx context.Context, seriesID int64, season int) (*tmdb.SeasonDetails, error)
	EpisodeDetails(ctx context.Context, seriesID int64, season, episode int) (*tmdb.EpisodeDetails, error)
	PersonDetails(ctx context.Context, id int64) (*tmdb.PersonDetails, error)
	PersonExternalIDs(ctx context.Context, id int64) (*tmdb.PersonExternalIDs, error)
	TitleImages(ctx context.Context, mediaPath string, id int64) (*tmdb.Images, error)
}

// MediaImporter attaches remote artwork and videos to local rows. Every
// method is best-effort from the caller's point of view: the reconciler logs
// failures and keeps going.
type MediaImporter interface {
	AttachPoster(ctx context.Context, kind models.EntityKind, titleID int64, remotePath string) error
	AttachGallery(ctx context.Context, kind models.EntityKind, titleID int64, remotePaths []string) error
	AttachSeasonPoster(ctx context.Context, seasonID int64, remotePath string) error
	AttachEpisodeStill(ctx context.Context, kind models.EntityKind, episodeID int64, remotePath string) error
	AttachProfile(ctx context.Context, personID int64, remotePath string) error
	ImportYouTubeVideo(ctx context.Context, ownerKind models.EntityKind, ownerID int64, key, contentType string) error
}
