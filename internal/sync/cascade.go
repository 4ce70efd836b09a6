package sync

import (
	"context"
	"fmt"
	"log"
	stdsync "sync"
	"time"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
	"github.com/tmuhq/tmusync/internal/tmdb"
)

// Cascader walks series → seasons → episodes and keeps the three table
// levels consistent. Season detail fetches run concurrently up to a bound;
// all writes stay serialized per series so rows never interleave.
type Cascader struct {
	seasons     *repository.SeasonRepository
	episodes    *repository.EpisodeRepository
	merger      *CreditMerger
	fetch       Fetcher
	media       MediaImporter
	concurrency int
	now         func() time.Time
}

func NewCascader(seasons *repository.SeasonRepository, episodes *repository.EpisodeRepository,
	merger *CreditMerger, fetch Fetcher, media MediaImporter, concurrency int) *Cascader {
	if concurrency < 1 {
		concurrency = 4
	}
	return &Cascader{
		seasons:     seasons,
		episodes:    episodes,
		merger:      merger,
		fetch:       fetch,
		media:       media,
		concurrency: concurrency,
		now:         time.Now,
	}
}

// SyncSeasons cascades a series save across its seasons. Season 0 (specials)
// is always skipped; onlySeason narrows the pass to a single season number.
// A season whose detail fetch fails is skipped, not fatal.
func (c *Cascader) SyncSeasons(ctx context.Context, series *models.Title, tmdbID int64, remote []tmdb.SeasonSummary, onlySeason int) error {
	var wanted []tmdb.SeasonSummary
	for _, s := range remote {
		if s.SeasonNumber == 0 {
			continue
		}
		if onlySeason != 0 && s.SeasonNumber != onlySeason {
			continue
		}
		wanted = append(wanted, s)
	}
	if len(wanted) == 0 {
		return nil
	}

	details := make([]*tmdb.SeasonDetails, len(wanted))
	var wg stdsync.WaitGroup
	sem := make(chan struct{}, c.concurrency)
	for i, s := range wanted {
		wg.Add(1)
		go func(i int, s tmdb.SeasonSummary) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			d, err := c.fetch.SeasonDetails(ctx, tmdbID, s.SeasonNumber)
			if err != nil {
				log.Printf("Sync: series %d season %d fetch failed: %v", series.ID, s.SeasonNumber, err)
				return
			}
			details[i] = d
		}(i, s)
	}
	wg.Wait()

	for i, s := range wanted {
		if details[i] == nil {
			continue
		}
		if err := c.syncSeason(ctx, series, s, details[i]); err != nil {
			return fmt.Errorf("season %d: %w", s.SeasonNumber, err)
		}
	}
	return nil
}

func (c *Cascader) syncSeason(ctx context.Context, series *models.Title, summary tmdb.SeasonSummary, details *tmdb.SeasonDetails) error {
	season := &models.Season{
		SeriesID:     series.ID,
		SeasonNumber: summary.SeasonNumber,
		TMDBID:       int64Ptr(summary.ID),
		Name:         summary.Name,
		AirDate:      strPtr(summary.AirDate),
		EpisodeCount: summary.EpisodeCount,
		PublishedAt:  backdatedPublish(dateToUnix(summary.AirDate), c.now()),
	}
	if err := c.seasons.Upsert(season); err != nil {
		return err
	}

	if summary.PosterPath != "" {
		if err := c.media.AttachSeasonPoster(ctx, season.ID, summary.PosterPath); err != nil {
			log.Printf("Sync: season %d poster attach failed: %v", season.ID, err)
		}
	}

	count, avg, err := c.syncEpisodes(ctx, series, season.Name, summary.SeasonNumber, details.Episodes)
	if err != nil {
		return err
	}
	return c.seasons.SetRollup(season.ID, count, avg)
}

// syncEpisodes upserts one row per remote episode and returns the rollup
// (count, mean vote average). Order-independent: identity is the
// (parent, season, episode) key, never the position in the list.
func (c *Cascader) syncEpisodes(ctx context.Context, series *models.Title, seasonName string, seasonNumber int, eps []tmdb.EpisodeDetails) (int, *float64, error) {
	var sum float64
	count := 0
	for i := range eps {
		ep := &eps[i]
		title := episodeTitle(series.Title, seasonName, ep.EpisodeNumber)

		existing, err := c.episodes.Find(series.Kind, series.ID, seasonNumber, ep.EpisodeNumber)
		if err != nil {
			return 0, nil, err
		}
		if existing == nil {
			// a stale row holding this exact generated title under another
			// key would shadow the fresh one
			if n, err := c.episodes.DeleteByTitleExcept(series.Kind, series.ID, title, seasonNumber, ep.EpisodeNumber); err != nil {
				return 0, nil, err
			} else if n > 0 {
				log.Printf("Sync: series %d purged %d stale episode rows titled %q", series.ID, n, title)
			}
		}

		row := &models.Episode{
			ParentID:      series.ID,
			ParentKind:    series.Kind,
			SeasonNumber:  seasonNumber,
			EpisodeNumber: ep.EpisodeNumber,
			Title:         title,
			AirDate:       strPtr(ep.AirDate),
			AirTimestamp:  int64Ptr(dateToUnix(ep.AirDate)),
			EpisodeType:   strPtr(ep.EpisodeType),
			Runtime:       intPtr(ep.Runtime),
			Overview:      strPtr(ep.Overview),
			Credits:       c.merger.EpisodeCredits(ctx, ep),
			VoteAverage:   floatPtr(ep.VoteAverage),
			VoteCount:     intPtr(ep.VoteCount),
		}
		if err := c.episodes.Upsert(row); err != nil {
			return 0, nil, err
		}

		if row.StillPath == nil && ep.StillPath != "" {
			if err := c.media.AttachEpisodeStill(ctx, series.Kind, row.ID, ep.StillPath); err != nil {
				log.Printf("Sync: episode %d still attach failed: %v", row.ID, err)
			}
		}

		count++
		sum += ep.VoteAverage
	}
	return count, averageRating(sum, count), nil
}

// SyncDramaEpisodes is the season-less flattening: everything hangs off the
// drama row directly, keyed by episode number alone.
func (c *Cascader) SyncDramaEpisodes(ctx context.Context, drama *models.Title, tmdbID int64, seasonNumber int) error {
	if seasonNumber == 0 {
		seasonNumber = 1
	}
	details, err := c.fetch.SeasonDetails(ctx, tmdbID, seasonNumber)
	if err != nil {
		log.Printf("Sync: drama %d episode list fetch failed: %v", drama.ID, err)
		return nil
	}
	_, _, err = c.syncEpisodes(ctx, drama, "", seasonNumber, details.Episodes)
	return err
}

// episodeTitle builds the deterministic display title used for both the row
// and the stale-duplicate purge.
func episodeTitle(seriesTitle, seasonName string, episode int) string {
	if seasonName != "" {
		return fmt.Sprintf("%s %s Episode %d", seriesTitle, seasonName, episode)
	}
	return fmt.Sprintf("%s Episode %d", seriesTitle, episode)
}
