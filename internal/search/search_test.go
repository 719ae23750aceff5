package search

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

var testDenylist = []string{"trailer", "teaser", "preview", "short", "snippet", "clip", "預告", "片段"}
var testAllowlist = []string{"full song", "full version", "完整版"}

func autoPolicy() Policy {
	return Policy{Limit: 10, MinSeconds: 60, MaxSeconds: 1200, Denylist: testDenylist, Allowlist: testAllowlist}
}

func syntheticCandidates() []Candidate {
	return []Candidate{
		{Title: "Song A official", URL: "u1", ViewCount: 500, DurationSeconds: 10},
		{Title: "Song A (Official Trailer)", URL: "u2", ViewCount: 9000, DurationSeconds: 120},
		{Title: "Song A full song trailer cut", URL: "u3", ViewCount: 700, DurationSeconds: 240},
		{Title: "Song A live", URL: "u4", ViewCount: 700, DurationSeconds: 300},
		{Title: "Song A 10 hour loop", URL: "u5", ViewCount: 99999, DurationSeconds: 2000},
		{Title: "Song A teaser", URL: "u6", ViewCount: 50, DurationSeconds: 90},
		{Title: "Song A lyrics", URL: "u7", ViewCount: 1200, DurationSeconds: 59},
		{Title: "Song A 完整版", URL: "u8", ViewCount: 700, DurationSeconds: 200},
		{Title: "Song A 預告", URL: "u9", ViewCount: 800, DurationSeconds: 100},
		{Title: "Song A audio", URL: "u10", ViewCount: 3000, DurationSeconds: 1200},
	}
}

func urls(candidates []Candidate) []string {
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, c.URL)
	}
	return out
}

func TestFilterAndRankSyntheticList(t *testing.T) {
	got := Rank(Filter(syntheticCandidates(), autoPolicy()))
	want := []string{"u10", "u3", "u4", "u8"}
	if !reflect.DeepEqual(urls(got), want) {
		t.Fatalf("unexpected ranking. got=%v want=%v", urls(got), want)
	}
}

func TestFilterManualBoundsAreWider(t *testing.T) {
	manual := Policy{Limit: 15, MinSeconds: 30, MaxSeconds: 1800, Denylist: testDenylist, Allowlist: testAllowlist}
	got := Filter([]Candidate{
		{URL: "a", DurationSeconds: 45},
		{URL: "b", DurationSeconds: 1500},
		{URL: "c", DurationSeconds: 1801},
		{URL: "d", DurationSeconds: 29},
	}, manual)
	if !reflect.DeepEqual(urls(got), []string{"a", "b"}) {
		t.Fatalf("unexpected manual filter result %v", urls(got))
	}
}

func TestFilterWithoutUpperBound(t *testing.T) {
	p := Policy{MinSeconds: 60}
	if !p.Accept(Candidate{Title: "x", DurationSeconds: 100000}) {
		t.Fatalf("expected no upper bound when MaxSeconds is zero")
	}
}

func TestRankIsStableOnTies(t *testing.T) {
	got := Rank([]Candidate{
		{URL: "first", ViewCount: 10},
		{URL: "second", ViewCount: 20},
		{URL: "third", ViewCount: 10},
	})
	if !reflect.DeepEqual(urls(got), []string{"second", "first", "third"}) {
		t.Fatalf("unexpected order %v", urls(got))
	}
}

func TestAugmentQuery(t *testing.T) {
	cases := map[string]string{
		"晴天":            "晴天 完整版 full song",
		"晴天 完整":         "晴天 完整 full song",
		"Song Full Mix": "Song Full Mix full song",
	}
	for in, want := range cases {
		if got := AugmentQuery(in); got != want {
			t.Fatalf("AugmentQuery(%q) = %q, want %q", in, got, want)
		}
	}
}

type fakeSearcher struct {
	results map[string][]Candidate
	errs    map[string]error
	queries []string
}

func (f *fakeSearcher) Search(ctx context.Context, query string, limit int) ([]Candidate, error) {
	f.queries = append(f.queries, query)
	if err := f.errs[query]; err != nil {
		return nil, err
	}
	return f.results[query], nil
}

func TestAutoPicksTopRanked(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]Candidate{
		AugmentQuery("song"): syntheticCandidates(),
	}}
	ranker := NewRanker(searcher, autoPolicy(), autoPolicy(), nil, nil)

	result, err := ranker.Auto(context.Background(), "song")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.Candidate.URL != "u10" || result.UsedPlain {
		t.Fatalf("unexpected result %+v", result)
	}
	if len(searcher.queries) != 1 {
		t.Fatalf("expected a single search, got %v", searcher.queries)
	}
}

func TestAutoFallsBackToPlainQuery(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]Candidate{
		AugmentQuery("song"): {{Title: "song trailer", URL: "t", DurationSeconds: 100}},
		"song":               {{Title: "song", URL: "plain", DurationSeconds: 200}},
	}}
	ranker := NewRanker(searcher, autoPolicy(), autoPolicy(), nil, nil)

	result, err := ranker.Auto(context.Background(), "song")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Found || result.Candidate.URL != "plain" || !result.UsedPlain {
		t.Fatalf("expected plain fallback, got %+v", result)
	}
	if !reflect.DeepEqual(searcher.queries, []string{AugmentQuery("song"), "song"}) {
		t.Fatalf("unexpected queries %v", searcher.queries)
	}
}

func TestAutoReportsNotFoundWithoutError(t *testing.T) {
	throttled := errors.New("HTTP Error 429")
	searcher := &fakeSearcher{errs: map[string]error{
		AugmentQuery("song"): errors.New("exit 1"),
		"song":               throttled,
	}}
	ranker := NewRanker(searcher, autoPolicy(), autoPolicy(), nil, nil)

	result, err := ranker.Auto(context.Background(), "song")
	if err != nil {
		t.Fatalf("expected not-found signal, got error %v", err)
	}
	if result.Found {
		t.Fatalf("expected not found, got %+v", result)
	}
	if !errors.Is(result.Err, throttled) {
		t.Fatalf("expected the search failure on the result, got %v", result.Err)
	}
}

func TestManualCarriesSearchFailure(t *testing.T) {
	failure := errors.New("exit 1")
	searcher := &fakeSearcher{errs: map[string]error{AugmentQuery("song"): failure, "song": failure}}
	ranker := NewRanker(searcher, autoPolicy(), autoPolicy(), nil, nil)
	never := func(context.Context, string, []Candidate) (int, error) {
		t.Fatalf("choose should not run without candidates")
		return 0, nil
	}

	result, err := ranker.Manual(context.Background(), "song", never)
	if err != nil || result.Found || !errors.Is(result.Err, failure) {
		t.Fatalf("unexpected result %+v (%v)", result, err)
	}
}

func TestManualSelectionAndCancel(t *testing.T) {
	searcher := &fakeSearcher{results: map[string][]Candidate{
		AugmentQuery("song"): {
			{Title: "a", URL: "a", ViewCount: 1, DurationSeconds: 100},
			{Title: "b", URL: "b", ViewCount: 2, DurationSeconds: 100},
		},
	}}
	ranker := NewRanker(searcher, autoPolicy(), autoPolicy(), nil, nil)

	pick := func(n int) ChooseFunc {
		return func(ctx context.Context, query string, candidates []Candidate) (int, error) {
			return n, nil
		}
	}

	result, err := ranker.Manual(context.Background(), "song", pick(2))
	if err != nil || !result.Found || result.Candidate.URL != "a" {
		t.Fatalf("expected second ranked candidate, got %+v (%v)", result, err)
	}

	for _, n := range []int{0, 3, -1} {
		result, err = ranker.Manual(context.Background(), "song", pick(n))
		if err != nil || result.Found || !result.Cancelled {
			t.Fatalf("index %d: expected cancel, got %+v (%v)", n, result, err)
		}
	}
}

func TestPlainRankerSkipsFallback(t *testing.T) {
	searcher := &fakeSearcher{}
	ranker := NewRanker(searcher, autoPolicy(), autoPolicy(), nil, nil)
	ranker.PreferFull = false

	result, err := ranker.Auto(context.Background(), "song")
	if err != nil || result.Found {
		t.Fatalf("unexpected result %+v (%v)", result, err)
	}
	if len(searcher.queries) != 1 || searcher.queries[0] != "song" {
		t.Fatalf("expected one plain search, got %v", searcher.queries)
	}
}
