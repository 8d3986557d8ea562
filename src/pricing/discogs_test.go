package pricing

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/patrickmn/go-cache"
)

func newDiscogsTestServer(t *testing.T, suggestions string, search string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/marketplace/price_suggestions/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" || r.Header.Get("User-Agent") == "" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(suggestions))
	})
	mux.HandleFunc("/database/search", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(search))
	})
	return httptest.NewServer(mux)
}

const suggestionBody = `{
	"Mint (M)": {"value": 30.00, "currency": "USD"},
	"Very Good Plus (VG+)": {"value": 22.50, "currency": "USD"},
	"Good (G)": {"value": 5.25, "currency": "USD"}
}`

func TestPriceSuggestionExactLabel(t *testing.T) {
	srv := newDiscogsTestServer(t, suggestionBody, `{"results": []}`)
	defer srv.Close()

	c := NewDiscogsClient("tok", "test/1.0", nil)
	c.SetBaseURL(srv.URL)

	price, err := c.PriceSuggestion(context.Background(), "7817943", VeryGoodPlus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 22.50 {
		t.Errorf("price = %v, want exactly the map value 22.50", price)
	}
}

func TestPriceSuggestionFallsBackToLowest(t *testing.T) {
	srv := newDiscogsTestServer(t, suggestionBody, `{"results": []}`)
	defer srv.Close()

	c := NewDiscogsClient("tok", "test/1.0", nil)
	c.SetBaseURL(srv.URL)

	// Poor is not in the map and no label contains a Poor synonym, so the
	// lowest available suggestion wins.
	price, err := c.PriceSuggestion(context.Background(), "7817943", Poor)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if price != 5.25 {
		t.Errorf("price = %v, want lowest suggestion 5.25", price)
	}
}

func TestPriceSuggestionMissingToken(t *testing.T) {
	c := NewDiscogsClient("", "test/1.0", nil)
	_, err := c.PriceSuggestion(context.Background(), "1", Mint)
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Errorf("err = %v, want ErrCredentialsMissing", err)
	}
}

func TestPriceSuggestionUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewDiscogsClient("tok", "test/1.0", nil)
	c.SetBaseURL(srv.URL)

	_, err := c.PriceSuggestion(context.Background(), "1", Mint)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestPriceSuggestionEmptyMap(t *testing.T) {
	srv := newDiscogsTestServer(t, `{}`, `{"results": []}`)
	defer srv.Close()

	c := NewDiscogsClient("tok", "test/1.0", nil)
	c.SetBaseURL(srv.URL)

	_, err := c.PriceSuggestion(context.Background(), "1", Mint)
	if !errors.Is(err, ErrNoDataFound) {
		t.Errorf("err = %v, want ErrNoDataFound", err)
	}
}

func TestPriceSuggestionUsesCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(suggestionBody))
	}))
	defer srv.Close()

	c := NewDiscogsClient("tok", "test/1.0", cache.New(cache.NoExpiration, 0))
	c.SetBaseURL(srv.URL)

	for i := 0; i < 3; i++ {
		if _, err := c.PriceSuggestion(context.Background(), "42", Mint); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if calls != 1 {
		t.Errorf("upstream called %d times, want 1 (cached)", calls)
	}
}

const searchBody = `{"results": [
	{"id": 111, "master_id": 9, "title": "Asleep At The Wheel (2) - Framed", "year": "1980",
	 "country": "US", "catno": "MCA-5131", "cover_image": "http://img/1.jpg",
	 "format": ["Vinyl", "LP"], "genre": ["Rock"], "barcode": ["07673351311"]},
	{"id": 112, "master_id": 9, "title": "Asleep At The Wheel - Framed", "year": "1981",
	 "country": "CA", "catno": "MCA-5131C", "format": ["Vinyl"], "genre": ["Rock"]},
	{"id": 113, "master_id": 0, "title": "Framed Sessions", "year": "1999",
	 "country": "US", "catno": "", "format": ["CD"], "genre": []}
]}`

func TestSearchDeduplicatesMasters(t *testing.T) {
	srv := newDiscogsTestServer(t, `{}`, searchBody)
	defer srv.Close()

	c := NewDiscogsClient("tok", "test/1.0", nil)
	c.SetBaseURL(srv.URL)

	results, err := c.Search(context.Background(), "asleep at the wheel framed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (master deduplicated)", len(results))
	}
	first := results[0]
	if first.Artist != "Asleep At The Wheel" {
		t.Errorf("artist = %q, want disambiguation suffix stripped", first.Artist)
	}
	if first.Title != "Framed" || first.DiscogsID != "111" || first.Genre != "Rock" {
		t.Errorf("unexpected first result: %+v", first)
	}
	if results[1].Artist != "Unknown Artist" {
		t.Errorf("artist without separator should be Unknown Artist, got %q", results[1].Artist)
	}
}

func TestFindReleaseID(t *testing.T) {
	srv := newDiscogsTestServer(t, `{}`, searchBody)
	defer srv.Close()

	c := NewDiscogsClient("tok", "test/1.0", nil)
	c.SetBaseURL(srv.URL)

	id, err := c.FindReleaseID(context.Background(), "Asleep At The Wheel", "Framed")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "111" {
		t.Errorf("release id = %q, want first hit 111", id)
	}
}
