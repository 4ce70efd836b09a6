package sync

import (
	"context"
	"log"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
	"github.com/tmuhq/tmusync/internal/tmdb"
)

// Resolver maps a provider credit member to a local person row, creating one
// on first sight. Provider id wins; an exact name match is the fallback for
// hand-entered credits that carry no id.
type Resolver struct {
	people *repository.PersonRepository
	fetch  Fetcher
	media  MediaImporter
}

func NewResolver(people *repository.PersonRepository, fetch Fetcher, media MediaImporter) *Resolver {
	return &Resolver{people: people, fetch: fetch, media: media}
}

func (r *Resolver) ResolvePerson(ctx context.Context, tmdbID int64, name string) (*models.Person, error) {
	if tmdbID > 0 {
		p, err := r.people.GetByTMDBID(tmdbID)
		if err != nil {
			return nil, err
		}
		if p != nil {
			return p, nil
		}
		return r.createFromRemote(ctx, tmdbID, name)
	}

	p, err := r.people.FindByName(name)
	if err != nil {
		return nil, err
	}
	if p != nil {
		return p, nil
	}
	p = &models.Person{Name: name, Gender: models.GenderNotSpecified}
	if err := r.people.CreateWithoutTMDBID(p); err != nil {
		return nil, err
	}
	return p, nil
}

// createFromRemote builds a person row from the provider record. The upsert
// is keyed on tmdb_id, so two concurrent resolutions of the same person
// collapse into one row instead of racing into duplicates.
func (r *Resolver) createFromRemote(ctx context.Context, tmdbID int64, name string) (*models.Person, error) {
	p := &models.Person{
		TMDBID: &tmdbID,
		Name:   name,
		Gender: models.GenderNotSpecified,
	}

	details, err := r.fetch.PersonDetails(ctx, tmdbID)
	if err != nil {
		// degrade to a bare row; the next sync fills the rest
		log.Printf("Sync: person %d details fetch failed: %v", tmdbID, err)
	} else {
		if details.Name != "" {
			p.Name = details.Name
		}
		p.Gender = models.GenderFromTMDB(details.Gender)
		p.Birthday = strPtr(details.Birthday)
		p.Deathday = strPtr(details.Deathday)
		p.Birthplace = strPtr(details.PlaceOfBirth)
		p.Profession = strPtr(details.KnownFor)
		p.Popularity = floatPtr(details.Popularity)
		p.ProfilePath = strPtr(details.ProfilePath)
	}

	if ids, err := r.fetch.PersonExternalIDs(ctx, tmdbID); err == nil {
		p.Social = socialLinks(ids)
	}

	if err := r.people.Upsert(p); err != nil {
		return nil, err
	}

	if p.ProfilePath != nil {
		if err := r.media.AttachProfile(ctx, p.ID, *p.ProfilePath); err != nil {
			log.Printf("Sync: person %d profile attach failed: %v", p.ID, err)
		}
	}
	return p, nil
}

func socialLinks(ids *tmdb.PersonExternalIDs) *models.SocialLinks {
	add := func(links []models.SocialLink, platform, base, id string) []models.SocialLink {
		if id == "" {
			return links
		}
		return append(links, models.SocialLink{Platform: platform, URL: base + id})
	}
	var links []models.SocialLink
	links = add(links, "imdb", "https://www.imdb.com/name/", ids.IMDBID)
	links = add(links, "facebook", "https://www.facebook.com/", ids.FacebookID)
	links = add(links, "instagram", "https://www.instagram.com/", ids.InstagramID)
	links = add(links, "twitter", "https://twitter.com/", ids.TwitterID)
	links = add(links, "tiktok", "https://www.tiktok.com/@", ids.TikTokID)
	links = add(links, "youtube", "https://www.youtube.com/", ids.YouTubeID)
	if len(links) == 0 {
		return nil
	}
	return &models.SocialLinks{Version: models.SnapshotVersion, Links: links}
}
