package pricing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/pigstyle/records/backend/src/logger"
)

const (
	defaultEbayAPIURL   = "https://api.ebay.com"
	defaultEbayTokenURL = "https://api.ebay.com/identity/v1/oauth2/token"
	ebayScope           = "https://api.ebay.com/oauth/api_scope"

	// Browse API caps the free-text query length.
	maxQueryLength = 100
	searchLimit    = 50
	// Listings returned for display; statistics still use the full set.
	maxReturnedListings = 20

	// Refresh the cached token this long before eBay says it expires.
	tokenExpiryMargin = 5 * time.Minute
)

// vinylKeywords mark a listing as an actual record rather than a CD, shirt
// or poster that happens to mention the album.
var vinylKeywords = []string{"vinyl", "lp", "record", `12"`, `7"`, "45 rpm", "33 rpm"}

// Listing is one eBay marketplace result that survived the vinyl filter.
// Field names follow the JSON shape the POS frontend already consumes.
type Listing struct {
	Title            string  `json:"title"`
	Price            float64 `json:"price"`
	ShippingCost     float64 `json:"shipping"`
	Total            float64 `json:"total"`
	ConditionText    string  `json:"condition"`
	MatchesCondition bool    `json:"matches_condition"`
	FreeShipping     bool    `json:"free_shipping"`
	URL              string  `json:"url"`
	ImageURL         string  `json:"image_url"`
}

// EbayResult carries the two median signals plus the display listings.
// A count of zero means the corresponding median is undefined.
type EbayResult struct {
	MedianAll       float64
	MedianCondition float64
	AllCount        int
	ConditionCount  int
	PriceMin        float64
	PriceMax        float64
	Listings        []Listing
}

// EbayClient searches the Browse API for comparable listings. OAuth
// client-credentials tokens are cached in process memory and refreshed
// synchronously once they come within tokenExpiryMargin of expiry; the
// mutex makes that safe under concurrent estimate requests.
type EbayClient struct {
	oauthCfg   *clientcredentials.Config
	apiURL     string
	httpClient *http.Client

	mu    sync.Mutex
	token *oauth2.Token
}

func NewEbayClient(clientID, clientSecret string) *EbayClient {
	return &EbayClient{
		oauthCfg: &clientcredentials.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			TokenURL:     defaultEbayTokenURL,
			Scopes:       []string{ebayScope},
			AuthStyle:    oauth2.AuthStyleInHeader,
		},
		apiURL:     defaultEbayAPIURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// SetEndpoints overrides the API and token URLs. Used by tests.
func (c *EbayClient) SetEndpoints(apiURL, tokenURL string) {
	c.apiURL = apiURL
	c.oauthCfg.TokenURL = tokenURL
}

func (c *EbayClient) accessToken(ctx context.Context) (string, error) {
	if c.oauthCfg.ClientID == "" || c.oauthCfg.ClientSecret == "" {
		return "", ErrCredentialsMissing
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != nil && c.token.Valid() && time.Until(c.token.Expiry) > tokenExpiryMargin {
		return c.token.AccessToken, nil
	}

	token, err := c.oauthCfg.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: ebay token fetch: %v", ErrUpstreamUnavailable, err)
	}
	c.token = token
	logger.L.Debug("refreshed ebay oauth token", "expiry", token.Expiry)
	return token.AccessToken, nil
}

// Search runs one Browse API item-summary search for the given record,
// filters the results to vinyl-like listings, and computes the all-listings
// and condition-matched medians over item price plus shipping.
func (c *EbayClient) Search(ctx context.Context, artist, title string, grade ConditionGrade) (EbayResult, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return EbayResult{}, err
	}

	query := strings.TrimSpace(artist + " " + title + " vinyl")
	if len(query) > maxQueryLength {
		query = query[:maxQueryLength]
	}

	q := url.Values{}
	q.Set("q", query)
	q.Set("limit", strconv.Itoa(searchLimit))
	q.Set("filter", "priceCurrency:USD")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.apiURL+"/buy/browse/v1/item_summary/search?"+q.Encode(), nil)
	if err != nil {
		return EbayResult{}, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return EbayResult{}, fmt.Errorf("%w: ebay search: %v", ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return EbayResult{}, fmt.Errorf("%w: ebay search returned status %d", ErrUpstreamUnavailable, resp.StatusCode)
	}

	var raw struct {
		ItemSummaries []ebayItemSummary `json:"itemSummaries"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return EbayResult{}, fmt.Errorf("%w: decoding ebay response: %v", ErrUpstreamUnavailable, err)
	}

	listings := filterVinylListings(raw.ItemSummaries, grade)
	result := summarize(listings)
	logger.L.Debug("ebay search complete", "query", query,
		"vinylListings", result.AllCount, "conditionMatches", result.ConditionCount)
	return result, nil
}

type ebayItemSummary struct {
	Title      string     `json:"title"`
	Condition  string     `json:"condition"`
	ItemWebURL string     `json:"itemWebUrl"`
	Price      ebayAmount `json:"price"`
	Image      struct {
		ImageURL string `json:"imageUrl"`
	} `json:"image"`
	ShippingOptions []struct {
		ShippingCost ebayAmount `json:"shippingCost"`
	} `json:"shippingOptions"`
}

type ebayAmount struct {
	Value    string `json:"value"`
	Currency string `json:"currency"`
}

func (a ebayAmount) float() float64 {
	v, err := strconv.ParseFloat(a.Value, 64)
	if err != nil {
		return 0
	}
	return v
}

func filterVinylListings(items []ebayItemSummary, grade ConditionGrade) []Listing {
	listings := make([]Listing, 0, len(items))
	for _, item := range items {
		if !looksLikeVinyl(item.Title) && !looksLikeVinyl(item.Condition) {
			continue
		}
		price := item.Price.float()
		if price <= 0 {
			continue
		}
		// Shipping may be absent; a missing cost means the listing did
		// not publish one, not that shipping is free of charge, but the
		// total still has to be computable.
		shipping := 0.0
		if len(item.ShippingOptions) > 0 {
			shipping = item.ShippingOptions[0].ShippingCost.float()
		}
		listings = append(listings, Listing{
			Title:            item.Title,
			Price:            price,
			ShippingCost:     shipping,
			Total:            price + shipping,
			ConditionText:    item.Condition,
			MatchesCondition: grade.MatchesText(item.Condition) || grade.MatchesText(item.Title),
			FreeShipping:     shipping == 0,
			URL:              item.ItemWebURL,
			ImageURL:         item.Image.ImageURL,
		})
	}
	return listings
}

func looksLikeVinyl(text string) bool {
	lower := strings.ToLower(text)
	for _, kw := range vinylKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

func summarize(listings []Listing) EbayResult {
	totals := make([]float64, 0, len(listings))
	conditionTotals := make([]float64, 0, len(listings))
	for _, l := range listings {
		totals = append(totals, l.Total)
		if l.MatchesCondition {
			conditionTotals = append(conditionTotals, l.Total)
		}
	}

	result := EbayResult{
		AllCount:       len(totals),
		ConditionCount: len(conditionTotals),
	}
	if m, ok := median(totals); ok {
		result.MedianAll = m
		result.PriceMin, result.PriceMax = minMax(totals)
	}
	if m, ok := median(conditionTotals); ok {
		result.MedianCondition = m
	}

	sorted := make([]Listing, len(listings))
	copy(sorted, listings)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Total < sorted[j].Total })
	if len(sorted) > maxReturnedListings {
		sorted = sorted[:maxReturnedListings]
	}
	result.Listings = sorted
	return result
}
