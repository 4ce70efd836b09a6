package media

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/chai2010/webp"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
)

const (
	defaultImageBase = "https://image.tmdb.org/t/p"
	defaultThumbBase = "https://img.youtube.com/vi"

	// anything smaller is a YouTube placeholder, not a real thumbnail
	minThumbnailBytes = 1024

	thumbnailQuality = 80
)

// thumbnail resolution ladder, best first
var thumbnailLadder = []string{"maxresdefault.jpg", "sddefault.jpg", "hqdefault.jpg"}

// Importer downloads remote artwork into the local data directory and keeps
// the video table in step. Every attach is best-effort and idempotent: an
// entity that already has the asset is left alone.
type Importer struct {
	dataDir string
	videos  *repository.VideoRepository
	http    *http.Client

	// overridable in tests
	ImageBase string
	ThumbBase string
}

func NewImporter(dataDir string, videos *repository.VideoRepository) *Importer {
	return &Importer{
		dataDir:   dataDir,
		videos:    videos,
		http:      &http.Client{Timeout: 30 * time.Second},
		ImageBase: defaultImageBase,
		ThumbBase: defaultThumbBase,
	}
}

// ──────────────────── Artwork ────────────────────

// AttachPoster stores the primary poster for a title. No-op when one exists.
func (m *Importer) AttachPoster(ctx context.Context, kind models.EntityKind, titleID int64, remotePath string) error {
	return m.attachOnce(ctx, filepath.Join("posters", kind.String(), fmt.Sprintf("%d.jpg", titleID)), "w500", remotePath)
}

// AttachGallery stores secondary artwork. It only runs when the entity has
// no gallery directory yet; partial galleries are never topped up.
func (m *Importer) AttachGallery(ctx context.Context, kind models.EntityKind, titleID int64, remotePaths []string) error {
	if len(remotePaths) == 0 {
		return nil
	}
	dir := filepath.Join(m.dataDir, "gallery", kind.String(), fmt.Sprintf("%d", titleID))
	if entries, err := os.ReadDir(dir); err == nil && len(entries) > 0 {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	for i, p := range remotePaths {
		data, err := m.download(ctx, m.ImageBase+"/w600_and_h900_bestv2"+p)
		if err != nil {
			continue
		}
		if err := os.WriteFile(filepath.Join(dir, fmt.Sprintf("%03d.jpg", i)), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

func (m *Importer) AttachSeasonPoster(ctx context.Context, seasonID int64, remotePath string) error {
	return m.attachOnce(ctx, filepath.Join("posters", "season", fmt.Sprintf("%d.jpg", seasonID)), "w500", remotePath)
}

func (m *Importer) AttachEpisodeStill(ctx context.Context, kind models.EntityKind, episodeID int64, remotePath string) error {
	return m.attachOnce(ctx, filepath.Join("stills", kind.String(), fmt.Sprintf("%d.jpg", episodeID)), "w300", remotePath)
}

func (m *Importer) AttachProfile(ctx context.Context, personID int64, remotePath string) error {
	return m.attachOnce(ctx, filepath.Join("profiles", fmt.Sprintf("%d.jpg", personID)), "w185", remotePath)
}

func (m *Importer) attachOnce(ctx context.Context, rel, size, remotePath string) error {
	if remotePath == "" {
		return nil
	}
	dst := filepath.Join(m.dataDir, rel)
	if _, err := os.Stat(dst); err == nil {
		return nil
	}
	data, err := m.download(ctx, m.ImageBase+"/"+size+remotePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}

// ──────────────────── Videos ────────────────────

// ImportYouTubeVideo registers the video row and tries to store a thumbnail,
// walking the resolution ladder until a real image comes back. A dead ladder
// skips the thumbnail without failing the import.
func (m *Importer) ImportYouTubeVideo(ctx context.Context, ownerKind models.EntityKind, ownerID int64, key, contentType string) error {
	v := &models.Video{
		OwnerKind:   ownerKind,
		OwnerID:     ownerID,
		Source:      key,
		ContentType: contentType,
	}
	if err := m.videos.Upsert(v); err != nil {
		return err
	}
	if v.ThumbnailPath != nil {
		return nil
	}

	data := m.fetchThumbnail(ctx, key)
	if data == nil {
		return nil
	}

	rel := filepath.Join("thumbs", key+".webp")
	dst := filepath.Join(m.dataDir, rel)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	encoded, err := reencodeWebP(data)
	if err != nil {
		return nil
	}
	if err := os.WriteFile(dst, encoded, 0o644); err != nil {
		return err
	}
	return m.videos.SetThumbnail(v.ID, rel)
}

func (m *Importer) fetchThumbnail(ctx context.Context, key string) []byte {
	for _, name := range thumbnailLadder {
		data, err := m.download(ctx, m.ThumbBase+"/"+key+"/"+name)
		if err != nil || len(data) < minThumbnailBytes {
			continue
		}
		return data
	}
	return nil
}

// reencodeWebP downsizes storage cost by converting the JPEG thumbnail to
// lossy webp at fixed quality.
func reencodeWebP(data []byte) ([]byte, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	return webp.EncodeRGB(img, thumbnailQuality)
}

func (m *Importer) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: status %d", url, resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
