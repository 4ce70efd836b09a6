package tmdb

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

const (
	apiBase   = "https://api.themoviedb.org/3"
	imageBase = "https://image.tmdb.org/t/p"
)

// Image size segments, varying per call site.
const (
	SizePoster   = "w500"
	SizeBackdrop = "w1280"
	SizeStill    = "w300"
	SizeProfile  = "w185"
	SizeOriginal = "original"
	SizeGallery  = "w600_and_h900_bestv2"
)

// Client is the typed TMDB fetcher. Every method is a single GET with no
// retries; callers treat an error as "skip this enrichment", never as a
// reason to abort the whole save (the details fetch being the one
// prerequisite exception, enforced by the reconciler).
type Client struct {
	apiKey   string
	language string
	http     *http.Client
	limiter  *rate.Limiter
}

func NewClient(apiKey, language string) *Client {
	if language == "" {
		language = "en-US"
	}
	return &Client{
		apiKey:   apiKey,
		language: language,
		http:     &http.Client{Timeout: 10 * time.Second},
		// TMDB allows ~50 req/s; stay well under it.
		limiter: rate.NewLimiter(rate.Limit(20), 10),
	}
}

// ImageURL joins a relative provider path to the image CDN with a size segment.
func ImageURL(size, path string) string {
	if path == "" {
		return ""
	}
	return imageBase + "/" + size + path
}

func (c *Client) get(ctx context.Context, path string, params url.Values, dst interface{}) error {
	if c.apiKey == "" {
		return fmt.Errorf("TMDB API key not configured")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.apiKey)
	params.Set("language", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiBase+path+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("TMDB %s returned %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

// ──────────────────── Title details ────────────────────

func (c *Client) MovieDetails(ctx context.Context, id int64) (*MovieDetails, error) {
	params := url.Values{"append_to_response": {"release_dates,videos,keywords"}}
	var d MovieDetails
	if err := c.get(ctx, fmt.Sprintf("/movie/%d", id), params, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (c *Client) TVDetails(ctx context.Context, id int64) (*TVDetails, error) {
	params := url.Values{"append_to_response": {"external_ids,videos,keywords"}}
	var d TVDetails
	if err := c.get(ctx, fmt.Sprintf("/tv/%d", id), params, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// TVContentRatings fetches the per-country TV certification list.
func (c *Client) TVContentRatings(ctx context.Context, id int64) (*ContentRatings, error) {
	var r ContentRatings
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/content_ratings", id), nil, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ──────────────────── Credits ────────────────────

func (c *Client) MovieCredits(ctx context.Context, id int64) (*Credits, error) {
	var cr Credits
	if err := c.get(ctx, fmt.Sprintf("/movie/%d/credits", id), nil, &cr); err != nil {
		return nil, err
	}
	return &cr, nil
}

// TVAggregateCredits fetches series-level credits; cast entries carry a
// roles array and crew entries a jobs array instead of single labels.
func (c *Client) TVAggregateCredits(ctx context.Context, id int64) (*AggregateCredits, error) {
	var cr AggregateCredits
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/aggregate_credits", id), nil, &cr); err != nil {
		return nil, err
	}
	return &cr, nil
}

// ──────────────────── Seasons / Episodes ────────────────────

func (c *Client) SeasonDetails(ctx context.Context, seriesID int64, season int) (*SeasonDetails, error) {
	var s SeasonDetails
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d", seriesID, season), nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) EpisodeDetails(ctx context.Context, seriesID int64, season, episode int) (*EpisodeDetails, error) {
	params := url.Values{"append_to_response": {"credits"}}
	var e EpisodeDetails
	if err := c.get(ctx, fmt.Sprintf("/tv/%d/season/%d/episode/%d", seriesID, season, episode), params, &e); err != nil {
		return nil, err
	}
	return &e, nil
}

// ──────────────────── People ────────────────────

func (c *Client) PersonDetails(ctx context.Context, id int64) (*PersonDetails, error) {
	var p PersonDetails
	if err := c.get(ctx, fmt.Sprintf("/person/%d", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (c *Client) PersonExternalIDs(ctx context.Context, id int64) (*PersonExternalIDs, error) {
	var p PersonExternalIDs
	if err := c.get(ctx, fmt.Sprintf("/person/%d/external_ids", id), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ──────────────────── Images / Keywords ────────────────────

// TitleImages fetches posters and backdrops for a movie or tv title.
// mediaPath is "movie" or "tv".
func (c *Client) TitleImages(ctx context.Context, mediaPath string, id int64) (*Images, error) {
	// language filter would drop untagged artwork
	params := url.Values{"include_image_language": {"en,null"}}
	var im Images
	if err := c.get(ctx, fmt.Sprintf("/%s/%d/images", mediaPath, id), params, &im); err != nil {
		return nil, err
	}
	return &im, nil
}
