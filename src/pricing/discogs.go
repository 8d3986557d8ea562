package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/pigstyle/records/backend/src/logger"
)

const defaultDiscogsBaseURL = "https://api.discogs.com"

// DiscogsClient wraps the two Discogs endpoints the store uses: the catalog
// search and the marketplace price-suggestions lookup. Price suggestions are
// cached per release id for five minutes so repeated estimates for the same
// record during intake don't burn through the API quota.
type DiscogsClient struct {
	token      string
	userAgent  string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	priceCache *cache.Cache
}

// CatalogResult is one formatted row of a Discogs catalog search, shaped
// for the intake screen.
type CatalogResult struct {
	Artist        string `json:"artist"`
	Title         string `json:"title"`
	ImageURL      string `json:"image_url"`
	CatalogNumber string `json:"catalog_number"`
	DiscogsID     string `json:"discogs_id"`
	Year          string `json:"year"`
	Format        string `json:"format"`
	Country       string `json:"country"`
	MasterID      int64  `json:"master_id"`
	Genre         string `json:"genre"`
	Barcode       string `json:"barcode"`
}

// NewDiscogsClient builds a client for the given personal access token.
// priceCache may be nil to disable caching (tests do this).
func NewDiscogsClient(token, userAgent string, priceCache *cache.Cache) *DiscogsClient {
	if userAgent == "" {
		userAgent = "PigStyleRecords/1.0"
	}
	return &DiscogsClient{
		token:      token,
		userAgent:  userAgent,
		baseURL:    defaultDiscogsBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		// Discogs allows 60 authenticated requests per minute.
		limiter:    rate.NewLimiter(rate.Every(time.Second), 2),
		priceCache: priceCache,
	}
}

// SetBaseURL points the client at a different host. Used by tests.
func (c *DiscogsClient) SetBaseURL(u string) { c.baseURL = u }

func (c *DiscogsClient) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	if c.token == "" {
		return nil, ErrCredentialsMissing
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Discogs token="+c.token)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: discogs returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}
	return resp, nil
}

// PriceSuggestion fetches the marketplace price suggestions for a release
// and extracts a single price for the requested grade. The matching cascade
// is: exact Discogs label, then case-insensitive synonym match against each
// returned label, then the numerically lowest available price.
func (c *DiscogsClient) PriceSuggestion(ctx context.Context, releaseID string, grade ConditionGrade) (float64, error) {
	suggestions, err := c.priceSuggestions(ctx, releaseID)
	if err != nil {
		return 0, err
	}
	if len(suggestions) == 0 {
		return 0, ErrNoDataFound
	}

	if price, ok := suggestions[grade.DiscogsLabel()]; ok {
		return price, nil
	}

	for label, price := range suggestions {
		if grade.MatchesText(label) {
			logger.L.Debug("discogs condition matched by synonym", "requested", grade.DiscogsLabel(), "label", label)
			return price, nil
		}
	}

	lowest := 0.0
	first := true
	for _, price := range suggestions {
		if first || price < lowest {
			lowest = price
			first = false
		}
	}
	logger.L.Debug("discogs condition not listed, using lowest suggestion",
		"requested", grade.DiscogsLabel(), "releaseID", releaseID, "lowest", lowest)
	return lowest, nil
}

func (c *DiscogsClient) priceSuggestions(ctx context.Context, releaseID string) (map[string]float64, error) {
	if releaseID == "" {
		return nil, ErrNoDataFound
	}
	if c.priceCache != nil {
		if cached, ok := c.priceCache.Get("suggestions:" + releaseID); ok {
			return cached.(map[string]float64), nil
		}
	}

	resp, err := c.get(ctx, "/marketplace/price_suggestions/"+url.PathEscape(releaseID), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw map[string]struct {
		Value    float64 `json:"value"`
		Currency string  `json:"currency"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding price suggestions: %v", ErrUpstreamUnavailable, err)
	}

	suggestions := make(map[string]float64, len(raw))
	for label, entry := range raw {
		if entry.Value > 0 {
			suggestions[label] = entry.Value
		}
	}
	if c.priceCache != nil {
		c.priceCache.Set("suggestions:"+releaseID, suggestions, cache.DefaultExpiration)
	}
	return suggestions, nil
}

// FindReleaseID runs a catalog search for artist+title and returns the id
// of the first release hit. Used when an estimate request arrives without a
// known Discogs id.
func (c *DiscogsClient) FindReleaseID(ctx context.Context, artist, title string) (string, error) {
	results, err := c.Search(ctx, strings.TrimSpace(artist+" "+title))
	if err != nil {
		return "", err
	}
	if len(results) == 0 {
		return "", ErrNoDataFound
	}
	return results[0].DiscogsID, nil
}

// Search queries the Discogs database for releases and formats the results
// for the intake screen, deduplicating multiple pressings of the same
// master release.
func (c *DiscogsClient) Search(ctx context.Context, query string) ([]CatalogResult, error) {
	q := url.Values{}
	q.Set("q", query)
	q.Set("type", "release")
	q.Set("per_page", "25")
	q.Set("currency", "USD")

	resp, err := c.get(ctx, "/database/search", q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var raw struct {
		Results []discogsSearchResult `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: decoding search results: %v", ErrUpstreamUnavailable, err)
	}

	seenMasters := make(map[int64]bool)
	formatted := make([]CatalogResult, 0, len(raw.Results))
	for _, r := range raw.Results {
		if r.MasterID != 0 {
			if seenMasters[r.MasterID] {
				continue
			}
			seenMasters[r.MasterID] = true
		}
		artist, title := splitArtistTitle(r.Title)
		formatted = append(formatted, CatalogResult{
			Artist:        artist,
			Title:         title,
			ImageURL:      firstNonEmpty(r.CoverImage, r.Thumb),
			CatalogNumber: r.CatNo,
			DiscogsID:     fmt.Sprintf("%d", r.ID),
			Year:          r.Year,
			Format:        strings.Join(r.Format, ", "),
			Country:       r.Country,
			MasterID:      r.MasterID,
			Genre:         firstOf(r.Genre, r.Style),
			Barcode:       firstBarcode(r.Barcode),
		})
	}
	return formatted, nil
}

type discogsSearchResult struct {
	ID         int64    `json:"id"`
	MasterID   int64    `json:"master_id"`
	Title      string   `json:"title"`
	Year       string   `json:"year"`
	Country    string   `json:"country"`
	CatNo      string   `json:"catno"`
	Thumb      string   `json:"thumb"`
	CoverImage string   `json:"cover_image"`
	Format     []string `json:"format"`
	Genre      []string `json:"genre"`
	Style      []string `json:"style"`
	Barcode    []string `json:"barcode"`
}

// Discogs disambiguates artists with a numeric suffix like "Nirvana (2)".
var artistSuffixRe = regexp.MustCompile(`\s*\(\d+\)\s*$`)

// splitArtistTitle breaks a Discogs "Artist - Title" string apart.
func splitArtistTitle(combined string) (string, string) {
	parts := strings.SplitN(combined, " - ", 2)
	if len(parts) != 2 {
		return "Unknown Artist", strings.TrimSpace(combined)
	}
	artist := artistSuffixRe.ReplaceAllString(strings.TrimSpace(parts[0]), "")
	return artist, strings.TrimSpace(parts[1])
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstOf(lists ...[]string) string {
	for _, list := range lists {
		if len(list) > 0 {
			return list[0]
		}
	}
	return ""
}

func firstBarcode(barcodes []string) string {
	if len(barcodes) == 0 {
		return ""
	}
	return barcodes[0]
}
