package pricing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeEbay stands in for both the identity and browse endpoints.
type fakeEbay struct {
	tokenCalls  int
	searchCalls int
	searchBody  string
	srv         *httptest.Server
}

func newFakeEbay(t *testing.T, searchBody string) *fakeEbay {
	t.Helper()
	f := &fakeEbay{searchBody: searchBody}
	mux := http.NewServeMux()
	mux.HandleFunc("/identity/v1/oauth2/token", func(w http.ResponseWriter, r *http.Request) {
		f.tokenCalls++
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token": "fake-token", "token_type": "Bearer", "expires_in": 7200}`)
	})
	mux.HandleFunc("/buy/browse/v1/item_summary/search", func(w http.ResponseWriter, r *http.Request) {
		f.searchCalls++
		if r.Header.Get("Authorization") != "Bearer fake-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, f.searchBody)
	})
	f.srv = httptest.NewServer(mux)
	return f
}

func (f *fakeEbay) client() *EbayClient {
	c := NewEbayClient("id", "secret")
	c.SetEndpoints(f.srv.URL, f.srv.URL+"/identity/v1/oauth2/token")
	return c
}

func item(title, condition string, price, shipping float64) map[string]any {
	m := map[string]any{
		"title":      title,
		"condition":  condition,
		"itemWebUrl": "https://ebay.example/item",
		"price":      map[string]string{"value": fmt.Sprintf("%.2f", price), "currency": "USD"},
	}
	if shipping >= 0 {
		m["shippingOptions"] = []map[string]any{
			{"shippingCost": map[string]string{"value": fmt.Sprintf("%.2f", shipping), "currency": "USD"}},
		}
	}
	return m
}

func searchJSON(t *testing.T, items ...map[string]any) string {
	t.Helper()
	b, err := json.Marshal(map[string]any{"itemSummaries": items})
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestEbaySearchFiltersAndSummarizes(t *testing.T) {
	body := searchJSON(t,
		item("Framed LP vinyl VG+", "Used", 10.00, 2.00),              // matches VG+, total 12
		item("Framed vinyl record", "Very Good Plus (VG+)", 20.00, 0), // matches VG+, total 20
		item("Framed 12\" single", "Used", 28.00, 2.00),               // vinyl, no condition match, total 30
		item("Framed CD remaster", "New", 5.00, 0),                    // not vinyl, dropped
		item("Framed t-shirt", "New", 15.00, 0),                       // not vinyl, dropped
		item("Framed LP", "VG+ sleeve", 14.00, -1),                    // matches, shipping absent -> 0, total 14
	)
	f := newFakeEbay(t, body)
	defer f.srv.Close()

	res, err := f.client().Search(context.Background(), "Asleep At The Wheel", "Framed", VeryGoodPlus)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if res.AllCount != 4 {
		t.Fatalf("AllCount = %d, want 4 vinyl listings", res.AllCount)
	}
	if res.ConditionCount != 3 {
		t.Fatalf("ConditionCount = %d, want 3 VG+ matches", res.ConditionCount)
	}
	// Totals: all = {12, 20, 30, 14} -> low-median 14; condition = {12, 20, 14} -> 14.
	if !close2(res.MedianAll, 14.00) {
		t.Errorf("MedianAll = %v, want 14.00", res.MedianAll)
	}
	if !close2(res.MedianCondition, 14.00) {
		t.Errorf("MedianCondition = %v, want 14.00", res.MedianCondition)
	}
	if !close2(res.PriceMin, 12.00) || !close2(res.PriceMax, 30.00) {
		t.Errorf("price range = (%v, %v), want (12, 30)", res.PriceMin, res.PriceMax)
	}

	// Listings come back sorted ascending by total.
	for i := 1; i < len(res.Listings); i++ {
		if res.Listings[i].Total < res.Listings[i-1].Total {
			t.Fatalf("listings not sorted by total: %v then %v", res.Listings[i-1].Total, res.Listings[i].Total)
		}
	}
	if !res.Listings[0].MatchesCondition {
		t.Error("cheapest listing should be flagged as condition matched")
	}
}

func TestEbaySearchCapsDisplayListings(t *testing.T) {
	items := make([]map[string]any, 0, 30)
	for i := 0; i < 30; i++ {
		items = append(items, item(fmt.Sprintf("Record LP %d", i), "Used", float64(10+i), 0))
	}
	f := newFakeEbay(t, searchJSON(t, items...))
	defer f.srv.Close()

	res, err := f.client().Search(context.Background(), "a", "b", Good)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.AllCount != 30 {
		t.Errorf("statistics should use the full set, AllCount = %d", res.AllCount)
	}
	if len(res.Listings) != 20 {
		t.Errorf("display listings = %d, want capped at 20", len(res.Listings))
	}
}

func TestEbayTokenIsCached(t *testing.T) {
	f := newFakeEbay(t, searchJSON(t))
	defer f.srv.Close()

	c := f.client()
	for i := 0; i < 3; i++ {
		if _, err := c.Search(context.Background(), "a", "b", Good); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if f.tokenCalls != 1 {
		t.Errorf("token endpoint called %d times, want 1", f.tokenCalls)
	}
	if f.searchCalls != 3 {
		t.Errorf("search endpoint called %d times, want 3", f.searchCalls)
	}
}

func TestEbayMissingCredentials(t *testing.T) {
	c := NewEbayClient("", "")
	_, err := c.Search(context.Background(), "a", "b", Good)
	if !errors.Is(err, ErrCredentialsMissing) {
		t.Errorf("err = %v, want ErrCredentialsMissing", err)
	}
}

func TestEbaySearchUpstreamError(t *testing.T) {
	f := newFakeEbay(t, searchJSON(t))
	f.searchBody = "" // will still 200; instead point search at a failing server
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "oauth2/token") {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token": "t", "token_type": "Bearer", "expires_in": 7200}`)
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	defer f.srv.Close()

	c := NewEbayClient("id", "secret")
	c.SetEndpoints(srv.URL, srv.URL+"/identity/v1/oauth2/token")
	_, err := c.Search(context.Background(), "a", "b", Good)
	if !errors.Is(err, ErrUpstreamUnavailable) {
		t.Errorf("err = %v, want ErrUpstreamUnavailable", err)
	}
}

func TestEbayQueryTruncated(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "oauth2/token") {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token": "t", "token_type": "Bearer", "expires_in": 7200}`)
			return
		}
		gotQuery = r.URL.Query().Get("q")
		fmt.Fprint(w, `{"itemSummaries": []}`)
	}))
	defer srv.Close()

	c := NewEbayClient("id", "secret")
	c.SetEndpoints(srv.URL, srv.URL+"/identity/v1/oauth2/token")

	long := strings.Repeat("x", 150)
	if _, err := c.Search(context.Background(), long, "title", Good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gotQuery) != maxQueryLength {
		t.Errorf("query length = %d, want truncated to %d", len(gotQuery), maxQueryLength)
	}
	if !strings.HasPrefix(gotQuery, "xxxx") {
		t.Errorf("unexpected query: %q", gotQuery)
	}
}
