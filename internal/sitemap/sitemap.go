package sitemap

import (
	"encoding/xml"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/tmuhq/tmusync/internal/models"
	"github.com/tmuhq/tmusync/internal/repository"
)

// PageSize is the number of URLs per sitemap file, per the protocol limit
// headroom used by the original site.
const PageSize = 10000

// Builder renders the sitemap index, the per-family pages and robots.txt
// from published titles. Families can be excluded from crawling via the
// sitemap_<kind>_enabled settings keys.
type Builder struct {
	titles   *repository.TitleRepository
	settings *repository.SettingsRepository
	baseURL  string
}

func NewBuilder(titles *repository.TitleRepository, settings *repository.SettingsRepository, baseURL string) *Builder {
	return &Builder{
		titles:   titles,
		settings: settings,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

type sitemapIndex struct {
	XMLName  xml.Name       `xml:"sitemapindex"`
	Xmlns    string         `xml:"xmlns,attr"`
	Sitemaps []sitemapEntry `xml:"sitemap"`
}

type sitemapEntry struct {
	Loc string `xml:"loc"`
}

type urlSet struct {
	XMLName xml.Name   `xml:"urlset"`
	Xmlns   string     `xml:"xmlns,attr"`
	URLs    []urlEntry `xml:"url"`
}

type urlEntry struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

const xmlns = "http://www.sitemaps.org/schemas/sitemap/0.9"

func (b *Builder) enabled(kind models.EntityKind) bool {
	return b.settings.GetBool("sitemap_"+kind.String()+"_enabled", true)
}

// Index renders the sitemap index listing one page file per PageSize slice
// of each enabled family.
func (b *Builder) Index() ([]byte, error) {
	idx := sitemapIndex{Xmlns: xmlns}
	for _, kind := range models.TitleKinds() {
		if !b.enabled(kind) {
			continue
		}
		total, err := b.titles.CountPublished(kind)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", kind, err)
		}
		pages := (total + PageSize - 1) / PageSize
		for p := 1; p <= pages; p++ {
			idx.Sitemaps = append(idx.Sitemaps, sitemapEntry{
				Loc: fmt.Sprintf("%s/sitemaps/sitemap-%s-%d.xml", b.baseURL, kind, p),
			})
		}
	}
	return render(idx)
}

// Page renders one sitemap page for a family. Pages are 1-based.
func (b *Builder) Page(kind models.EntityKind, page int) ([]byte, error) {
	if !kind.IsTitle() {
		return nil, fmt.Errorf("no sitemap for kind %q", kind)
	}
	if !b.enabled(kind) {
		return nil, fmt.Errorf("sitemap disabled for %s", kind)
	}
	if page < 1 {
		return nil, fmt.Errorf("invalid sitemap page %d", page)
	}
	entries, err := b.titles.ListPublished(kind, PageSize, (page-1)*PageSize)
	if err != nil {
		return nil, err
	}

	set := urlSet{Xmlns: xmlns}
	for _, e := range entries {
		set.URLs = append(set.URLs, urlEntry{
			Loc:     fmt.Sprintf("%s/%s/%d", b.baseURL, kind, e.ID),
			LastMod: e.UpdatedAt.UTC().Format("2006-01-02"),
		})
	}
	return render(set)
}

// Robots renders robots.txt: disabled families get a Disallow line and the
// index is always advertised.
func (b *Builder) Robots() []byte {
	var sb strings.Builder
	sb.WriteString("User-agent: *\n")
	for _, kind := range models.TitleKinds() {
		if !b.enabled(kind) {
			fmt.Fprintf(&sb, "Disallow: /%s/\n", kind)
		}
	}
	fmt.Fprintf(&sb, "Sitemap: %s/sitemap.xml\n", b.baseURL)
	return []byte(sb.String())
}

var pageFileRe = regexp.MustCompile(`^sitemap-([a-z_]+)-(\d+)\.xml$`)

// ParsePageFile splits a sitemap page filename into its family and page
// number. Returns an error for anything that is not a generated filename.
func ParsePageFile(name string) (models.EntityKind, int, error) {
	m := pageFileRe.FindStringSubmatch(name)
	if m == nil {
		return "", 0, fmt.Errorf("not a sitemap page: %q", name)
	}
	kind, err := models.ParseKind(m[1])
	if err != nil {
		return "", 0, err
	}
	page, err := strconv.Atoi(m[2])
	if err != nil || page < 1 {
		return "", 0, fmt.Errorf("invalid sitemap page in %q", name)
	}
	return kind, page, nil
}

func render(v interface{}) ([]byte, error) {
	body, err := xml.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), body...), nil
}
