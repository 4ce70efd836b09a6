package sync

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"reflect"
	"strings"
	stdsync "sync"
	"time"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
	"github.com/tmuhq/tmusync/internal/tmdb"
)

// certificationCountry is the region used for certification and theatrical
// release lookups.
const certificationCountry = "US"

// Service is the save-event reconciler. One call covers the whole cascade
// for a title: details fetch, field fill, credit merge, season/episode walk,
// media attach. Everything runs inline; the caller decides whether to put it
// behind a queue.
type Service struct {
	titles   *repository.TitleRepository
	people   *repository.PersonRepository
	videos   *repository.VideoRepository
	credits  *repository.CreditRepository
	seasons  *repository.SeasonRepository
	episodes *repository.EpisodeRepository

	fetch    Fetcher
	media    MediaImporter
	resolver *Resolver
	merger   *CreditMerger
	cascader *Cascader

	now func() time.Time
}

func NewService(db *sql.DB, fetch Fetcher, media MediaImporter, concurrency int) *Service {
	people := repository.NewPersonRepository(db)
	credits := repository.NewCreditRepository(db)
	seasons := repository.NewSeasonRepository(db)
	episodes := repository.NewEpisodeRepository(db)

	resolver := NewResolver(people, fetch, media)
	merger := NewCreditMerger(credits, resolver)

	return &Service{
		titles:   repository.NewTitleRepository(db),
		people:   people,
		videos:   repository.NewVideoRepository(db),
		credits:  credits,
		seasons:  seasons,
		episodes: episodes,
		fetch:    fetch,
		media:    media,
		resolver: resolver,
		merger:   merger,
		cascader: NewCascader(seasons, episodes, merger, fetch, media, concurrency),
		now:      time.Now,
	}
}

// Sync reconciles one title save event and returns the stored row.
func (s *Service) Sync(ctx context.Context, req *SyncRequest) (*models.Title, error) {
	switch req.Kind {
	case models.KindMovie:
		return s.syncMovie(ctx, req)
	case models.KindTVSeries, models.KindDrama:
		return s.syncSeries(ctx, req)
	default:
		return nil, fmt.Errorf("cannot sync kind %q", req.Kind)
	}
}

// SyncPerson refreshes (or creates) a person row from the provider.
func (s *Service) SyncPerson(ctx context.Context, tmdbID int64) (*models.Person, error) {
	if tmdbID <= 0 {
		return nil, fmt.Errorf("person sync requires a tmdb id")
	}
	return s.resolver.createFromRemote(ctx, tmdbID, "")
}

// Delete removes a title and every dependent row.
func (s *Service) Delete(ctx context.Context, kind models.EntityKind, id int64) error {
	if !kind.IsTitle() {
		return fmt.Errorf("cannot delete kind %q", kind)
	}
	if err := s.credits.DeleteForParent(kind, id); err != nil {
		return err
	}
	if kind.HasEpisodes() {
		if err := s.episodes.DeleteByParent(kind, id); err != nil {
			return err
		}
	}
	if kind.HasSeasons() {
		if err := s.seasons.DeleteBySeries(id); err != nil {
			return err
		}
	}
	if err := s.videos.DeleteByOwner(kind, id); err != nil {
		return err
	}
	return s.titles.Delete(kind, id)
}

// ──────────────────── Movies ────────────────────

func (s *Service) syncMovie(ctx context.Context, req *SyncRequest) (*models.Title, error) {
	title, err := s.target(req)
	if err != nil {
		return nil, err
	}

	details, err := s.fetch.MovieDetails(ctx, req.TMDBID)
	if err != nil {
		return nil, fmt.Errorf("%w: movie %d: %v", ErrDetailsUnavailable, req.TMDBID, err)
	}

	// independent sibling fetches; writes happen strictly after the join
	var (
		creditsDoc *tmdb.Credits
		imagesDoc  *tmdb.Images
		wg         stdsync.WaitGroup
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		var ferr error
		if creditsDoc, ferr = s.fetch.MovieCredits(ctx, req.TMDBID); ferr != nil {
			log.Printf("Sync: movie %d credits fetch failed: %v", req.TMDBID, ferr)
		}
	}()
	if req.RefreshImages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var ferr error
			if imagesDoc, ferr = s.fetch.TitleImages(ctx, "movie", req.TMDBID); ferr != nil {
				log.Printf("Sync: movie %d images fetch failed: %v", req.TMDBID, ferr)
			}
		}()
	}
	wg.Wait()

	dirty := s.reconcileMovieFields(req, title, details)

	isNew := title.ID == 0
	if isNew {
		if err := s.titles.Create(title); err != nil {
			return nil, err
		}
		dirty = false
	}

	if creditsDoc != nil {
		res, err := s.applySimpleCredits(ctx, req, title, creditsDoc)
		if err != nil {
			return nil, err
		}
		dirty = s.applyCreditResult(title, res, req.RefreshCredits) || dirty
	}
	if ch, err := s.applySubmittedCredits(ctx, req, title); err != nil {
		return nil, err
	} else {
		dirty = ch || dirty
	}

	if dirty {
		if err := s.titles.Update(title); err != nil {
			return nil, err
		}
	}

	s.attachTitleMedia(ctx, req, title, details.PosterPath, details.Videos.Results, imagesDoc, isNew)
	return title, nil
}

func (s *Service) reconcileMovieFields(req *SyncRequest, title *models.Title, d *tmdb.MovieDetails) bool {
	dirty := s.reconcileNames(req, title, d.Title, d.OriginalTitle)

	dirty = fillStrField(&title.Tagline, req.Tagline, d.Tagline) || dirty
	dirty = fillIntField(&title.Runtime, req.Runtime, d.Runtime) || dirty
	dirty = fillStrField(&title.Certification, req.Certification, d.Certification(certificationCountry)) || dirty
	dirty = fillFloatField(&title.Popularity, req.Popularity, d.Popularity) || dirty
	dirty = fillFloatField(&title.VoteAverage, req.VoteAverage, d.VoteAverage) || dirty
	dirty = fillIntField(&title.VoteCount, req.VoteCount, d.VoteCount) || dirty
	dirty = fillInt64Field(&title.Revenue, req.Revenue, d.Revenue) || dirty
	dirty = fillInt64Field(&title.Budget, req.Budget, d.Budget) || dirty
	dirty = fillStrField(&title.ProductionHouse, req.ProductionHouse, companyNames(d.ProductionCompanies)) || dirty
	dirty = fillStrField(&title.ReleaseDate, req.ReleaseDate, d.ReleaseDate) || dirty

	// submitted date first, then the theatrical entry, then the headline date
	ts := dateToUnix(req.ReleaseDate)
	if ts == 0 {
		ts = dateToUnix(d.ReleaseOfType(certificationCountry, tmdb.ReleaseTypeTheatrical))
	}
	if ts == 0 {
		ts = dateToUnix(d.ReleaseDate)
	}
	dirty = s.applyReleaseTimestamp(req, title, ts) || dirty
	return dirty
}

// ──────────────────── Series (tv / drama) ────────────────────

func (s *Service) syncSeries(ctx context.Context, req *SyncRequest) (*models.Title, error) {
	title, err := s.target(req)
	if err != nil {
		return nil, err
	}

	details, err := s.fetch.TVDetails(ctx, req.TMDBID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s %d: %v", ErrDetailsUnavailable, req.Kind, req.TMDBID, err)
	}

	var (
		ratingsDoc *tmdb.ContentRatings
		creditsDoc *tmdb.AggregateCredits
		imagesDoc  *tmdb.Images
		wg         stdsync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		var ferr error
		if ratingsDoc, ferr = s.fetch.TVContentRatings(ctx, req.TMDBID); ferr != nil {
			log.Printf("Sync: %s %d ratings fetch failed: %v", req.Kind, req.TMDBID, ferr)
		}
	}()
	go func() {
		defer wg.Done()
		var ferr error
		if creditsDoc, ferr = s.fetch.TVAggregateCredits(ctx, req.TMDBID); ferr != nil {
			log.Printf("Sync: %s %d credits fetch failed: %v", req.Kind, req.TMDBID, ferr)
		}
	}()
	if req.RefreshImages {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var ferr error
			if imagesDoc, ferr = s.fetch.TitleImages(ctx, "tv", req.TMDBID); ferr != nil {
				log.Printf("Sync: %s %d images fetch failed: %v", req.Kind, req.TMDBID, ferr)
			}
		}()
	}
	wg.Wait()

	dirty := s.reconcileSeriesFields(req, title, details, ratingsDoc)

	isNew := title.ID == 0
	if isNew {
		if err := s.titles.Create(title); err != nil {
			return nil, err
		}
		dirty = false
	}

	if creditsDoc != nil {
		res, err := s.applyAggregateCredits(ctx, req, title, creditsDoc)
		if err != nil {
			return nil, err
		}
		dirty = s.applyCreditResult(title, res, req.RefreshCredits) || dirty
	}
	if ch, err := s.applySubmittedCredits(ctx, req, title); err != nil {
		return nil, err
	} else {
		dirty = ch || dirty
	}

	if dirty {
		if err := s.titles.Update(title); err != nil {
			return nil, err
		}
	}

	if req.Kind == models.KindDrama {
		if err := s.cascader.SyncDramaEpisodes(ctx, title, req.TMDBID, req.OnlySeason); err != nil {
			return nil, err
		}
	} else {
		if err := s.cascader.SyncSeasons(ctx, title, req.TMDBID, details.Seasons, req.OnlySeason); err != nil {
			return nil, err
		}
	}

	s.attachTitleMedia(ctx, req, title, details.PosterPath, details.Videos.Results, imagesDoc, isNew)
	return title, nil
}

func (s *Service) reconcileSeriesFields(req *SyncRequest, title *models.Title, d *tmdb.TVDetails, ratings *tmdb.ContentRatings) bool {
	dirty := s.reconcileNames(req, title, d.Name, d.OriginalName)

	runtime := 0
	if len(d.EpisodeRunTime) > 0 {
		runtime = d.EpisodeRunTime[0]
	}
	certification := ""
	if ratings != nil {
		certification = ratings.Rating(certificationCountry)
	}

	dirty = fillStrField(&title.Tagline, req.Tagline, d.Tagline) || dirty
	dirty = fillIntField(&title.Runtime, req.Runtime, runtime) || dirty
	dirty = fillStrField(&title.Certification, req.Certification, certification) || dirty
	dirty = fillFloatField(&title.Popularity, req.Popularity, d.Popularity) || dirty
	dirty = fillFloatField(&title.VoteAverage, req.VoteAverage, d.VoteAverage) || dirty
	dirty = fillIntField(&title.VoteCount, req.VoteCount, d.VoteCount) || dirty
	dirty = fillStrField(&title.ProductionHouse, req.ProductionHouse, networkNames(d)) || dirty
	dirty = fillStrField(&title.ReleaseDate, req.ReleaseDate, d.FirstAirDate) || dirty

	ts := dateToUnix(req.ReleaseDate)
	if ts == 0 {
		ts = dateToUnix(d.FirstAirDate)
	}
	dirty = s.applyReleaseTimestamp(req, title, ts) || dirty

	// the finished latch only ever flips forward
	if !title.Finished && (d.Status == "Ended" || d.Status == "Canceled") {
		title.Finished = true
		dirty = true
	}
	if last := d.LastEpisodeToAir; last != nil {
		if title.LastSeason == nil || *title.LastSeason != last.SeasonNumber {
			title.LastSeason = &last.SeasonNumber
			dirty = true
		}
		if title.LastEpisode == nil || *title.LastEpisode != last.EpisodeNumber {
			title.LastEpisode = &last.EpisodeNumber
			dirty = true
		}
	}
	return dirty
}

// ──────────────────── Shared steps ────────────────────

// target loads the row being saved and enforces provider-id uniqueness. A
// collision is reported as a ConflictError; neither row is ever deleted.
func (s *Service) target(req *SyncRequest) (*models.Title, error) {
	if req.TMDBID <= 0 {
		return nil, fmt.Errorf("%s sync requires a tmdb id", req.Kind)
	}
	owner, err := s.titles.TMDBIDOwner(req.Kind, req.TMDBID)
	if err != nil {
		return nil, err
	}
	if owner != 0 && owner != req.LocalID {
		return nil, &ConflictError{
			Kind:       req.Kind,
			TMDBID:     req.TMDBID,
			ExistingID: owner,
			AttemptID:  req.LocalID,
		}
	}

	if req.LocalID == 0 {
		tmdbID := req.TMDBID
		return &models.Title{Kind: req.Kind, TMDBID: &tmdbID}, nil
	}
	title, err := s.titles.GetByID(req.Kind, req.LocalID)
	if err != nil {
		return nil, err
	}
	if title == nil {
		return nil, fmt.Errorf("%s %d not found", req.Kind, req.LocalID)
	}
	if title.TMDBID == nil {
		tmdbID := req.TMDBID
		title.TMDBID = &tmdbID
	}
	return title, nil
}

func (s *Service) reconcileNames(req *SyncRequest, title *models.Title, remoteTitle, remoteOriginal string) bool {
	dirty := false
	switch {
	case req.Title != "" && req.Title != title.Title:
		title.Title = req.Title
		dirty = true
	case title.Title == "" && remoteTitle != "":
		title.Title = remoteTitle
		dirty = true
	}
	dirty = fillStrField(&title.OriginalTitle, req.OriginalTitle, remoteOriginal) || dirty
	return dirty
}

func (s *Service) applyReleaseTimestamp(req *SyncRequest, title *models.Title, ts int64) bool {
	req.DerivedReleaseTimestamp = ts
	if ts != 0 {
		req.DerivedReleaseYear = time.Unix(ts, 0).UTC().Year()
	}
	dirty := false
	if ts != 0 && (title.ReleaseTimestamp == nil || *title.ReleaseTimestamp != ts) {
		title.ReleaseTimestamp = &ts
		dirty = true
	}
	if title.PublishedAt == nil {
		if p := backdatedPublish(ts, s.now()); p != nil {
			title.PublishedAt = p
			dirty = true
		}
	}
	return dirty
}

func (s *Service) applySimpleCredits(ctx context.Context, req *SyncRequest, title *models.Title, doc *tmdb.Credits) (*CreditResult, error) {
	if req.RefreshCredits {
		return s.merger.ReplaceCredits(ctx, req.Kind, title.ID, doc, req.DerivedReleaseYear)
	}
	return s.merger.MergeCredits(ctx, req.Kind, title.ID, doc, req.DerivedReleaseYear)
}

func (s *Service) applyAggregateCredits(ctx context.Context, req *SyncRequest, title *models.Title, doc *tmdb.AggregateCredits) (*CreditResult, error) {
	if req.RefreshCredits {
		return s.merger.ReplaceAggregateCredits(ctx, req.Kind, title.ID, doc, req.DerivedReleaseYear)
	}
	return s.merger.MergeAggregateCredits(ctx, req.Kind, title.ID, doc, req.DerivedReleaseYear)
}

// applyCreditResult folds a credit pass into the title row: the full
// snapshot always, the star-cast snapshot only when its 4th slot is missing
// or fresh credits were explicitly requested.
func (s *Service) applyCreditResult(title *models.Title, res *CreditResult, refreshed bool) bool {
	dirty := false
	if !reflect.DeepEqual(title.Credits, res.Snapshot) {
		title.Credits = res.Snapshot
		dirty = true
	}
	if len(res.Stars) > 0 && (refreshed || title.StarCast.FourthSlotEmpty()) {
		snap := &models.StarCastSnapshot{Version: models.SnapshotVersion, Entries: res.Stars}
		if !reflect.DeepEqual(title.StarCast, snap) {
			title.StarCast = snap
			dirty = true
		}
		for _, star := range res.Stars {
			if err := s.people.AddKnownFor(star.PersonID, title.ID); err != nil {
				log.Printf("Sync: known-for update for person %d failed: %v", star.PersonID, err)
			}
		}
	}
	return dirty
}

// applySubmittedCredits merges hand-entered credits, using the pending
// snapshot to skip work when the submission matches the last one seen.
func (s *Service) applySubmittedCredits(ctx context.Context, req *SyncRequest, title *models.Title) (bool, error) {
	if len(req.CustomCast) == 0 && len(req.CustomCrew) == 0 {
		return false, nil
	}
	pending := submittedSnapshot(req)
	if reflect.DeepEqual(title.PendingCredits, pending) {
		return false, nil
	}
	if err := s.merger.MergeSubmitted(ctx, req.Kind, title.ID, req.CustomCast, req.CustomCrew, req.DerivedReleaseYear); err != nil {
		return false, err
	}
	title.PendingCredits = pending
	return true, nil
}

func (s *Service) attachTitleMedia(ctx context.Context, req *SyncRequest, title *models.Title, posterPath string, videos []tmdb.VideoEntry, images *tmdb.Images, isNew bool) {
	if posterPath != "" {
		if err := s.media.AttachPoster(ctx, req.Kind, title.ID, posterPath); err != nil {
			log.Printf("Sync: %s %d poster attach failed: %v", req.Kind, title.ID, err)
		}
	}
	if images != nil {
		var paths []string
		for _, im := range images.Posters {
			paths = append(paths, im.FilePath)
		}
		for _, im := range images.Backdrops {
			paths = append(paths, im.FilePath)
		}
		if err := s.media.AttachGallery(ctx, req.Kind, title.ID, paths); err != nil {
			log.Printf("Sync: %s %d gallery attach failed: %v", req.Kind, title.ID, err)
		}
	}
	if isNew || req.RefreshVideos {
		for _, v := range videos {
			if v.Site != "YouTube" || v.Key == "" {
				continue
			}
			if err := s.media.ImportYouTubeVideo(ctx, req.Kind, title.ID, v.Key, v.Type); err != nil {
				log.Printf("Sync: %s %d video %s import failed: %v", req.Kind, title.ID, v.Key, err)
			}
		}
	}
}

// ──────────────────── Field helpers ────────────────────

func fillStrField(dst **string, submitted, remote string) bool {
	v, changed := fillString(submitted, *dst, remote)
	if changed {
		*dst = strPtr(v)
	}
	return changed
}

func fillIntField(dst **int, submitted, remote int) bool {
	v, changed := fillInt(submitted, *dst, remote)
	if changed {
		*dst = intPtr(v)
	}
	return changed
}

func fillInt64Field(dst **int64, submitted, remote int64) bool {
	v, changed := fillInt64(submitted, *dst, remote)
	if changed {
		*dst = int64Ptr(v)
	}
	return changed
}

func fillFloatField(dst **float64, submitted, remote float64) bool {
	v, changed := fillFloat(submitted, *dst, remote)
	if changed {
		*dst = floatPtr(v)
	}
	return changed
}

func submittedSnapshot(req *SyncRequest) *models.CreditsSnapshot {
	snap := &models.CreditsSnapshot{Version: models.SnapshotVersion}
	for _, c := range req.CustomCast {
		snap.Cast = append(snap.Cast, models.CreditEntry{PersonID: c.PersonID, Name: c.Name, Job: c.Role})
	}
	for _, c := range req.CustomCrew {
		snap.Crew = append(snap.Crew, models.CreditEntry{PersonID: c.PersonID, Name: c.Name, Job: c.Job, Department: c.Department})
	}
	return snap
}

func companyNames(companies []tmdb.ProductionCompany) string {
	var names []string
	for _, c := range companies {
		if c.Name != "" {
			names = append(names, c.Name)
		}
	}
	return joinComma(names)
}

func networkNames(d *tmdb.TVDetails) string {
	var names []string
	for _, n := range d.Networks {
		if n.Name != "" {
			names = append(names, n.Name)
		}
	}
	if len(names) == 0 {
		for _, c := range d.ProductionCompanies {
			if c.Name != "" {
				names = append(names, c.Name)
			}
		}
	}
	return joinComma(names)
}

func joinComma(parts []string) string {
	return strings.Join(parts, ", ")
}
