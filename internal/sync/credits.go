package sync

import (
	"context"
	"fmt"
	"log"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
	"github.com/tmuhq/tmusync/internal/tmdb"
)

// starCastSize is the number of top-billed cast entries snapshotted onto the
// title row.
const starCastSize = 4

// CreditMerger reconciles fetched cast/crew lists against the local _cast and
// _crew tables. Incremental merges only ever add or relabel rows; the
// delete-all-reinsert path runs only on an explicit credits refresh.
type CreditMerger struct {
	credits  *repository.CreditRepository
	resolver *Resolver
}

func NewCreditMerger(credits *repository.CreditRepository, resolver *Resolver) *CreditMerger {
	return &CreditMerger{credits: credits, resolver: resolver}
}

// CreditResult carries what the reconciler needs after a credit pass: the
// serialized snapshot for the title row and the top-billed entries the
// star-cast derivation reads.
type CreditResult struct {
	Snapshot *models.CreditsSnapshot
	Stars    []models.StarCastEntry
}

// ──────────────────── Simple credits (movies) ────────────────────

func (m *CreditMerger) MergeCredits(ctx context.Context, kind models.EntityKind, parentID int64, fetched *tmdb.Credits, releaseYear int) (*CreditResult, error) {
	res := newCreditResult()
	for _, cm := range fetched.Cast {
		person, err := m.resolver.ResolvePerson(ctx, cm.ID, cm.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve cast %q: %w", cm.Name, err)
		}
		if err := m.mergeCastRow(kind, parentID, person.ID, cm.Character, releaseYear, nil, cm.Order); err != nil {
			return nil, err
		}
		res.addCast(person, cm.Character)
	}
	for _, cm := range fetched.Crew {
		person, err := m.resolver.ResolvePerson(ctx, cm.ID, cm.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve crew %q: %w", cm.Name, err)
		}
		if err := m.mergeCrewRow(kind, parentID, person.ID, cm.Department, cm.Job, releaseYear, nil); err != nil {
			return nil, err
		}
		res.addCrew(person, cm.Job, cm.Department)
	}
	return res, nil
}

func (m *CreditMerger) ReplaceCredits(ctx context.Context, kind models.EntityKind, parentID int64, fetched *tmdb.Credits, releaseYear int) (*CreditResult, error) {
	res := newCreditResult()
	var cast []*models.CastCredit
	var crew []*models.CrewCredit
	for _, cm := range fetched.Cast {
		person, err := m.resolver.ResolvePerson(ctx, cm.ID, cm.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve cast %q: %w", cm.Name, err)
		}
		cast = append(cast, &models.CastCredit{
			ParentID:    parentID,
			PersonID:    person.ID,
			Role:        cm.Character,
			ReleaseYear: intPtr(releaseYear),
			SortOrder:   cm.Order,
		})
		res.addCast(person, cm.Character)
	}
	for _, cm := range fetched.Crew {
		person, err := m.resolver.ResolvePerson(ctx, cm.ID, cm.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve crew %q: %w", cm.Name, err)
		}
		crew = append(crew, &models.CrewCredit{
			ParentID:    parentID,
			PersonID:    person.ID,
			Department:  cm.Department,
			Job:         cm.Job,
			ReleaseYear: intPtr(releaseYear),
		})
		res.addCrew(person, cm.Job, cm.Department)
	}
	if err := m.credits.ReplaceAll(kind, parentID, cast, crew); err != nil {
		return nil, err
	}
	return res, nil
}

// ──────────────────── Aggregate credits (tv / drama) ────────────────────

func (m *CreditMerger) MergeAggregateCredits(ctx context.Context, kind models.EntityKind, parentID int64, fetched *tmdb.AggregateCredits, releaseYear int) (*CreditResult, error) {
	res := newCreditResult()
	for _, cm := range fetched.Cast {
		person, err := m.resolver.ResolvePerson(ctx, cm.ID, cm.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve cast %q: %w", cm.Name, err)
		}
		label := JoinAggregate(roleNames(cm))
		if err := m.mergeCastRow(kind, parentID, person.ID, label, releaseYear,
			intPtr(cm.TotalEpisodeCount), cm.Order); err != nil {
			return nil, err
		}
		res.addCast(person, label)
	}
	for _, cm := range fetched.Crew {
		person, err := m.resolver.ResolvePerson(ctx, cm.ID, cm.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve crew %q: %w", cm.Name, err)
		}
		for _, job := range cm.Jobs {
			if err := m.mergeCrewRow(kind, parentID, person.ID, cm.Department, job.Job,
				releaseYear, intPtr(job.EpisodeCount)); err != nil {
				return nil, err
			}
			res.addCrew(person, job.Job, cm.Department)
		}
	}
	return res, nil
}

func (m *CreditMerger) ReplaceAggregateCredits(ctx context.Context, kind models.EntityKind, parentID int64, fetched *tmdb.AggregateCredits, releaseYear int) (*CreditResult, error) {
	res := newCreditResult()
	var cast []*models.CastCredit
	var crew []*models.CrewCredit
	for _, cm := range fetched.Cast {
		person, err := m.resolver.ResolvePerson(ctx, cm.ID, cm.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve cast %q: %w", cm.Name, err)
		}
		label := JoinAggregate(roleNames(cm))
		cast = append(cast, &models.CastCredit{
			ParentID:     parentID,
			PersonID:     person.ID,
			Role:         label,
			ReleaseYear:  intPtr(releaseYear),
			EpisodeCount: intPtr(cm.TotalEpisodeCount),
			SortOrder:    cm.Order,
		})
		res.addCast(person, label)
	}
	for _, cm := range fetched.Crew {
		person, err := m.resolver.ResolvePerson(ctx, cm.ID, cm.Name)
		if err != nil {
			return nil, fmt.Errorf("resolve crew %q: %w", cm.Name, err)
		}
		for _, job := range cm.Jobs {
			crew = append(crew, &models.CrewCredit{
				ParentID:     parentID,
				PersonID:     person.ID,
				Department:   cm.Department,
				Job:          job.Job,
				ReleaseYear:  intPtr(releaseYear),
				EpisodeCount: intPtr(job.EpisodeCount),
			})
			res.addCrew(person, job.Job, cm.Department)
		}
	}
	if err := m.credits.ReplaceAll(kind, parentID, cast, crew); err != nil {
		return nil, err
	}
	return res, nil
}

// ──────────────────── Hand-entered credits ────────────────────

// MergeSubmitted folds user-entered credits in through the same append-only
// path. There is no delete-all here regardless of flags.
func (m *CreditMerger) MergeSubmitted(ctx context.Context, kind models.EntityKind, parentID int64, cast, crew []SubmittedCredit, releaseYear int) error {
	for _, sc := range cast {
		person, err := m.resolvedSubmitted(ctx, sc)
		if err != nil {
			return err
		}
		if err := m.mergeCastRow(kind, parentID, person.ID, sc.Role, releaseYear, nil, 999); err != nil {
			return err
		}
	}
	for _, sc := range crew {
		person, err := m.resolvedSubmitted(ctx, sc)
		if err != nil {
			return err
		}
		if err := m.mergeCrewRow(kind, parentID, person.ID, sc.Department, sc.Job, releaseYear, nil); err != nil {
			return err
		}
	}
	return nil
}

func (m *CreditMerger) resolvedSubmitted(ctx context.Context, sc SubmittedCredit) (*models.Person, error) {
	if sc.PersonID > 0 {
		if p, err := m.resolver.people.GetByID(sc.PersonID); err != nil || p != nil {
			return p, err
		}
	}
	return m.resolver.ResolvePerson(ctx, sc.TMDBID, sc.Name)
}

// ──────────────────── Episode credits ────────────────────

// EpisodeCredits resolves an episode's guest stars and crew into the
// serialized per-episode blob. These never touch the parent's _cast/_crew
// tables; a person that fails to resolve is skipped, not fatal.
func (m *CreditMerger) EpisodeCredits(ctx context.Context, ep *tmdb.EpisodeDetails) *models.EpisodeCredits {
	guests := ep.GuestStars
	crew := ep.Crew
	if ep.Credits != nil {
		guests = append(guests, ep.Credits.GuestStars...)
		crew = append(crew, ep.Credits.Crew...)
	}

	out := &models.EpisodeCredits{Version: models.SnapshotVersion}
	seen := make(map[int64]struct{})
	for _, gs := range guests {
		if _, dup := seen[gs.ID]; dup {
			continue
		}
		seen[gs.ID] = struct{}{}
		person, err := m.resolver.ResolvePerson(ctx, gs.ID, gs.Name)
		if err != nil {
			log.Printf("Sync: episode guest %q resolve failed: %v", gs.Name, err)
			continue
		}
		out.Cast = append(out.Cast, models.CreditEntry{
			PersonID: person.ID, Name: person.Name, Job: gs.Character,
		})
	}
	for _, cm := range crew {
		person, err := m.resolver.ResolvePerson(ctx, cm.ID, cm.Name)
		if err != nil {
			log.Printf("Sync: episode crew %q resolve failed: %v", cm.Name, err)
			continue
		}
		out.Crew = append(out.Crew, models.CreditEntry{
			PersonID: person.ID, Name: person.Name, Job: cm.Job, Department: cm.Department,
		})
	}
	if len(out.Cast) == 0 && len(out.Crew) == 0 {
		return nil
	}
	return out
}

// ──────────────────── Row helpers ────────────────────

func (m *CreditMerger) mergeCastRow(kind models.EntityKind, parentID, personID int64, label string, releaseYear int, episodeCount *int, order int) error {
	existing, err := m.credits.GetCast(kind, parentID, personID)
	if err != nil {
		return err
	}
	if existing != nil {
		label = MergeLabel(existing.Role, label)
		order = existing.SortOrder
	}
	return m.credits.UpsertCast(kind, &models.CastCredit{
		ParentID:     parentID,
		PersonID:     personID,
		Role:         label,
		ReleaseYear:  intPtr(releaseYear),
		EpisodeCount: episodeCount,
		SortOrder:    order,
	})
}

func (m *CreditMerger) mergeCrewRow(kind models.EntityKind, parentID, personID int64, department, job string, releaseYear int, episodeCount *int) error {
	if job == "" {
		return nil
	}
	return m.credits.UpsertCrew(kind, &models.CrewCredit{
		ParentID:     parentID,
		PersonID:     personID,
		Department:   department,
		Job:          job,
		ReleaseYear:  intPtr(releaseYear),
		EpisodeCount: episodeCount,
	})
}

func newCreditResult() *CreditResult {
	return &CreditResult{Snapshot: &models.CreditsSnapshot{Version: models.SnapshotVersion}}
}

func (r *CreditResult) addCast(p *models.Person, label string) {
	r.Snapshot.Cast = append(r.Snapshot.Cast, models.CreditEntry{
		PersonID: p.ID, Name: p.Name, Job: label,
	})
	if len(r.Stars) < starCastSize {
		r.Stars = append(r.Stars, models.StarCastEntry{
			PersonID: p.ID, Name: p.Name, Character: label,
		})
	}
}

func (r *CreditResult) addCrew(p *models.Person, job, department string) {
	r.Snapshot.Crew = append(r.Snapshot.Crew, models.CreditEntry{
		PersonID: p.ID, Name: p.Name, Job: job, Department: department,
	})
}

func roleNames(cm tmdb.AggregateCastMember) []string {
	names := make([]string, 0, len(cm.Roles))
	for _, role := range cm.Roles {
		names = append(names, role.Character)
	}
	return names
}
