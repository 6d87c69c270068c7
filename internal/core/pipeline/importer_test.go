package pipeline

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"recipe-importer/internal/core/ai/extraction"
	"recipe-importer/internal/core/ingest/chunker"
	"recipe-importer/internal/core/recipe"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

const cookiesJSON = `[{"title":"Chocolate Chip Cookies","ingredients":["2 cups flour","1 cup chocolate chips"],"steps":["Mix.","Bake for 12 minutes."]}]`

type fakeProvider struct {
	mu      sync.Mutex
	results []fakeResult
	calls   int
	onCall  func(n int)
}

type fakeResult struct {
	text string
	err  error
}

func (p *fakeProvider) Generate(ctx context.Context, prompt string, opts extraction.SamplingConfig) (string, error) {
	p.mu.Lock()
	idx := p.calls
	p.calls++
	p.mu.Unlock()

	if p.onCall != nil {
		p.onCall(idx)
	}
	if idx >= len(p.results) {
		idx = len(p.results) - 1
	}
	return p.results[idx].text, p.results[idx].err
}

func (p *fakeProvider) Name() string { return "fake/model" }

type sleeper struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (s *sleeper) Sleep(ctx context.Context, d time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delays = append(s.delays, d)
	return ctx.Err()
}

// 100 個字元、切成 [0,60) 與 [40,100) 兩塊
var twoChunks = chunker.Config{MaxChunkSize: 60, OverlapSize: 20, MinFinalChunkSize: 10}

func sampleText() string {
	return strings.Repeat("x", 100)
}

func newTestImporter(t *testing.T, p *fakeProvider, s *sleeper, opts ...Option) *Importer {
	t.Helper()
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	client := extraction.NewClient(p, extraction.Config{
		InterChunkDelay:     2 * time.Second,
		RateLimitRetryDelay: 15 * time.Second,
	},
		extraction.WithSleep(s.Sleep),
		extraction.WithClock(func() time.Time { return fixed }),
	)
	imp, err := NewImporter(client, twoChunks, opts...)
	if err != nil {
		t.Fatalf("NewImporter: %v", err)
	}
	return imp
}

func TestImportDeduplicatesAcrossOverlappingChunks(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{{text: cookiesJSON}}}
	s := &sleeper{}
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	imp := newTestImporter(t, p, s, WithMetrics(m))

	res, err := imp.Import(context.Background(), sampleText(), Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Chunks != 2 || p.calls != 2 {
		t.Fatalf("chunks = %d, provider calls = %d, want 2 and 2", res.Chunks, p.calls)
	}
	if len(res.Recipes) != 1 || res.Recipes[0].Title != "Chocolate Chip Cookies" {
		t.Fatalf("recipes = %+v", res.Recipes)
	}
	if res.Duplicates != 1 {
		t.Errorf("duplicates = %d, want 1", res.Duplicates)
	}
	if res.Recipes[0].CookTime != recipe.DefaultCookTime || res.Recipes[0].Servings != recipe.DefaultServings {
		t.Errorf("defaults not applied: %+v", res.Recipes[0])
	}
	if len(s.delays) != 1 || s.delays[0] != 2*time.Second {
		t.Errorf("pacing delays = %v, want [2s]", s.delays)
	}
	if res.ID == "" || res.Partial {
		t.Errorf("unexpected result metadata: id=%q partial=%v", res.ID, res.Partial)
	}

	if got := testutil.ToFloat64(m.ChunksProcessed); got != 2 {
		t.Errorf("chunks processed metric = %v", got)
	}
	if got := testutil.ToFloat64(m.DuplicatesDropped); got != 1 {
		t.Errorf("duplicates metric = %v", got)
	}
	if got := testutil.ToFloat64(m.RecipesEmitted); got != 1 {
		t.Errorf("recipes metric = %v", got)
	}
}

func TestImportKeepsGoingAfterChunkFailure(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{
		{err: &extraction.StatusError{StatusCode: http.StatusInternalServerError}},
		{text: cookiesJSON},
	}}
	imp := newTestImporter(t, p, &sleeper{})

	res, err := imp.Import(context.Background(), sampleText(), Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Recipes) != 1 {
		t.Fatalf("recipes = %d, want 1", len(res.Recipes))
	}
	if len(res.ChunkErrors) != 1 {
		t.Fatalf("chunk errors = %+v", res.ChunkErrors)
	}
	ce := res.ChunkErrors[0]
	if ce.Index != 0 || ce.Stage != StageExtraction || ce.Kind != string(extraction.KindUnavailable) {
		t.Errorf("chunk error = %+v", ce)
	}
}

func TestImportAllChunksFail(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{
		{err: &extraction.StatusError{StatusCode: http.StatusBadGateway}},
	}}
	imp := newTestImporter(t, p, &sleeper{})

	res, err := imp.Import(context.Background(), sampleText(), Options{})
	if !errors.Is(err, ErrExtractionFailed) {
		t.Fatalf("err = %v, want ErrExtractionFailed", err)
	}
	if !extraction.IsKind(err, extraction.KindUnavailable) {
		t.Errorf("joined error should carry the chunk kind: %v", err)
	}
	if res == nil || len(res.ChunkErrors) != 2 {
		t.Fatalf("result = %+v", res)
	}
}

func TestImportStopsOnQuotaExceeded(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{
		{err: &extraction.StatusError{StatusCode: http.StatusPaymentRequired}},
	}}
	imp := newTestImporter(t, p, &sleeper{})

	res, err := imp.Import(context.Background(), sampleText(), Options{})
	if !errors.Is(err, ErrExtractionFailed) || !extraction.IsKind(err, extraction.KindQuotaExceeded) {
		t.Fatalf("err = %v", err)
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}
	if len(res.ChunkErrors) != 1 || res.ChunkErrors[0].Kind != string(extraction.KindQuotaExceeded) {
		t.Errorf("chunk errors = %+v", res.ChunkErrors)
	}
}

func TestImportNoRecipesFound(t *testing.T) {
	tests := []struct {
		name     string
		response string
		rejected int
	}{
		{name: "empty array", response: `[]`},
		{name: "empty candidates", response: `[{"title":"Nothing"}]`, rejected: 2},
		{name: "prose", response: `Sorry, I could not find a recipe.`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &fakeProvider{results: []fakeResult{{text: tt.response}}}
			imp := newTestImporter(t, p, &sleeper{})

			res, err := imp.Import(context.Background(), sampleText(), Options{})
			if !errors.Is(err, ErrNoRecipesFound) {
				t.Fatalf("err = %v, want ErrNoRecipesFound", err)
			}
			if res.Rejected != tt.rejected {
				t.Errorf("rejected = %d, want %d", res.Rejected, tt.rejected)
			}
		})
	}
}

func TestImportParseFailureRecorded(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{
		{text: `not json at all`},
		{text: cookiesJSON},
	}}
	imp := newTestImporter(t, p, &sleeper{})

	res, err := imp.Import(context.Background(), sampleText(), Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.ChunkErrors) != 1 || res.ChunkErrors[0].Stage != StageNormalization {
		t.Errorf("chunk errors = %+v", res.ChunkErrors)
	}
}

func TestImportEmptyText(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{{text: cookiesJSON}}}
	imp := newTestImporter(t, p, &sleeper{})

	res, err := imp.Import(context.Background(), "", Options{})
	if !errors.Is(err, ErrNoRecipesFound) {
		t.Fatalf("err = %v, want ErrNoRecipesFound", err)
	}
	if res.Chunks != 0 || p.calls != 0 {
		t.Errorf("chunks = %d, calls = %d", res.Chunks, p.calls)
	}
}

func TestImportCancelledBetweenChunks(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	p := &fakeProvider{
		results: []fakeResult{{text: cookiesJSON}},
		onCall: func(n int) {
			if n == 0 {
				cancel()
			}
		},
	}
	imp := newTestImporter(t, p, &sleeper{})

	res, err := imp.Import(ctx, sampleText(), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if !res.Partial || len(res.Recipes) != 1 {
		t.Errorf("partial result = %+v", res)
	}
	if p.calls != 1 {
		t.Errorf("provider calls = %d, want 1", p.calls)
	}
}

func TestImportChunkingOverride(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{{text: cookiesJSON}}}
	imp := newTestImporter(t, p, &sleeper{})

	res, err := imp.Import(context.Background(), sampleText(), Options{
		Chunking: &chunker.Config{MaxChunkSize: 200, OverlapSize: 0},
	})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Chunks != 1 || p.calls != 1 {
		t.Errorf("chunks = %d, calls = %d", res.Chunks, p.calls)
	}

	_, err = imp.Import(context.Background(), sampleText(), Options{
		Chunking: &chunker.Config{MaxChunkSize: 10, OverlapSize: 10},
	})
	if !errors.Is(err, chunker.ErrInvalidConfig) {
		t.Errorf("err = %v, want ErrInvalidConfig", err)
	}
}

type fakeSuggester struct {
	err error
}

func (s *fakeSuggester) Suggest(ctx context.Context, r recipe.CandidateRecipe) ([]recipe.Suggestion, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []recipe.Suggestion{{
		StepIndex: 1,
		Action: recipe.CookingAction{
			MethodID:   "bake",
			Parameters: map[string]interface{}{"target_cavity_temp": 350.0},
		},
	}}, nil
}

func TestImportSuggestActions(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{{text: cookiesJSON}}}
	imp := newTestImporter(t, p, &sleeper{}, WithSuggester(&fakeSuggester{}))

	res, err := imp.Import(context.Background(), sampleText(), Options{SuggestActions: true})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	steps := res.Recipes[0].Steps
	if steps[0].CookingAction != nil {
		t.Errorf("step 0 should not be decorated")
	}
	if steps[1].CookingAction == nil || steps[1].CookingAction.MethodID != "bake" {
		t.Errorf("step 1 action = %+v", steps[1].CookingAction)
	}

	// 未要求建議時不呼叫
	res, err = imp.Import(context.Background(), sampleText(), Options{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if res.Recipes[0].Steps[1].CookingAction != nil {
		t.Error("suggestions applied without SuggestActions")
	}
}

func TestImportSuggesterFailureKeepsRecipe(t *testing.T) {
	p := &fakeProvider{results: []fakeResult{{text: cookiesJSON}}}
	imp := newTestImporter(t, p, &sleeper{}, WithSuggester(&fakeSuggester{err: errors.New("down")}))

	res, err := imp.Import(context.Background(), sampleText(), Options{SuggestActions: true})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(res.Recipes) != 1 || res.Recipes[0].Steps[1].CookingAction != nil {
		t.Errorf("recipe = %+v", res.Recipes)
	}
}
