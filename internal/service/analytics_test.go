package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/metrics"
	"github.com/avatarstudio/avatarstudio/internal/model"
	"github.com/avatarstudio/avatarstudio/internal/store"
	"github.com/avatarstudio/avatarstudio/internal/testutil"
)

func newTestAnalytics(st store.Store) (*AnalyticsService, *clock, *metrics.InMemoryRecorder) {
	recorder := metrics.NewInMemory()
	svc := NewAnalyticsService(st, testutil.DiscardLogger(), recorder)
	clk := newClock()
	svc.now = clk.Now
	return svc, clk, recorder
}

func TestAnalytics_CreateAndGet(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk, _ := newTestAnalytics(store.NewMemory())

	all, err := svc.GetAllAnalytics(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("empty GetAllAnalytics = %v, %v; want [], nil", all, err)
	}

	rec, err := svc.CreateVideoAnalytics(ctx, "vid-1", "Intro")
	if err != nil {
		t.Fatalf("CreateVideoAnalytics failed: %v", err)
	}
	if rec.ID == "" || rec.Views != 0 || rec.EngagementRate != 0 || rec.LastViewed != nil {
		t.Errorf("new record not zeroed: %+v", rec)
	}
	if !rec.CreatedAt.Equal(clk.Now()) {
		t.Errorf("CreatedAt = %v, want %v", rec.CreatedAt, clk.Now())
	}

	got, err := svc.GetVideoAnalytics(ctx, "vid-1")
	if err != nil || got == nil || got.ID != rec.ID {
		t.Fatalf("GetVideoAnalytics = %+v, %v", got, err)
	}

	missing, err := svc.GetVideoAnalytics(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetVideoAnalytics(missing) = %+v, %v; want nil, nil", missing, err)
	}
}

func TestAnalytics_DuplicateCreateKeepsFirstForLookup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestAnalytics(store.NewMemory())

	first, _ := svc.CreateVideoAnalytics(ctx, "vid-1", "First")
	if _, err := svc.CreateVideoAnalytics(ctx, "vid-1", "Second"); err != nil {
		t.Fatalf("duplicate create failed: %v", err)
	}

	all, _ := svc.GetAllAnalytics(ctx)
	if len(all) != 2 {
		t.Fatalf("records = %d, want 2", len(all))
	}
	got, _ := svc.GetVideoAnalytics(ctx, "vid-1")
	if got.ID != first.ID {
		t.Errorf("lookup returned %s, want first record %s", got.ID, first.ID)
	}

	deleted, err := svc.DeleteVideoAnalytics(ctx, "vid-1")
	if err != nil || !deleted {
		t.Fatalf("DeleteVideoAnalytics = %v, %v", deleted, err)
	}
	all, _ = svc.GetAllAnalytics(ctx)
	if len(all) != 0 {
		t.Errorf("records after delete = %d, want 0", len(all))
	}
}

func TestAnalytics_EngagementRateInvariant(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, recorder := newTestAnalytics(store.NewMemory())

	if _, err := svc.CreateVideoAnalytics(ctx, "vid-1", "Demo"); err != nil {
		t.Fatal(err)
	}

	steps := []func() error{
		func() error { return svc.RecordEngagement(ctx, "vid-1", model.EngagementLike) },
		func() error { return svc.RecordView(ctx, "vid-1", 12.5, true, model.ViewSourceDirect) },
		func() error { return svc.RecordView(ctx, "vid-1", 3, false, model.ViewSourceShare) },
		func() error { return svc.RecordEngagement(ctx, "vid-1", model.EngagementShare) },
		func() error { return svc.RecordView(ctx, "vid-1", 8, true, model.ViewSourcePreview) },
		func() error { return svc.RecordEngagement(ctx, "vid-1", model.EngagementComment) },
		func() error { return svc.RecordEngagement(ctx, "vid-1", model.EngagementComment) },
	}

	for i, step := range steps {
		if err := step(); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		rec, _ := svc.GetVideoAnalytics(ctx, "vid-1")
		want := 0
		if rec.Views > 0 {
			want = model.Percent(rec.Likes+rec.Shares+rec.Comments, rec.Views)
		}
		if rec.EngagementRate != want {
			t.Errorf("step %d: engagementRate = %d, want %d (%+v)", i, rec.EngagementRate, want, rec)
		}
	}

	rec, _ := svc.GetVideoAnalytics(ctx, "vid-1")
	if rec.Views != 3 || rec.WatchTime != 23.5 || len(rec.ViewHistory) != 3 {
		t.Errorf("views/watchTime/history = %d/%v/%d", rec.Views, rec.WatchTime, len(rec.ViewHistory))
	}
	// 4 actions over 3 views.
	if rec.EngagementRate != 133 {
		t.Errorf("engagementRate = %d, want 133", rec.EngagementRate)
	}
	if rec.LastViewed == nil {
		t.Error("LastViewed not set after view")
	}

	snap := recorder.Snapshot()
	if snap.VideoViews != 3 || snap.EngagementLikes != 1 || snap.EngagementShares != 1 || snap.EngagementComments != 2 {
		t.Errorf("metrics snapshot = %+v", snap)
	}
}

func TestAnalytics_FirstEngagementBeforeViewsKeepsRateZero(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestAnalytics(store.NewMemory())

	_, _ = svc.CreateVideoAnalytics(ctx, "vid-1", "Demo")
	_ = svc.RecordEngagement(ctx, "vid-1", model.EngagementLike)

	rec, _ := svc.GetVideoAnalytics(ctx, "vid-1")
	if rec.Likes != 1 || rec.EngagementRate != 0 {
		t.Errorf("likes=%d rate=%d, want 1 and 0", rec.Likes, rec.EngagementRate)
	}
}

func TestAnalytics_MissingVideoIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newFlakyStore()
	svc, _, _ := newTestAnalytics(st)

	_, _ = svc.CreateVideoAnalytics(ctx, "vid-1", "Demo")
	before, _, _ := st.Get(ctx, store.KeyAnalytics)
	writesBefore := st.writes()

	if err := svc.RecordView(ctx, "ghost", 10, true, model.ViewSourceDirect); err != nil {
		t.Fatalf("RecordView(ghost) err = %v", err)
	}
	if err := svc.RecordEngagement(ctx, "ghost", model.EngagementLike); err != nil {
		t.Fatalf("RecordEngagement(ghost) err = %v", err)
	}
	if err := svc.RecordEngagement(ctx, "vid-1", model.EngagementType("poke")); err != nil {
		t.Fatalf("RecordEngagement(unknown kind) err = %v", err)
	}

	after, _, _ := st.Get(ctx, store.KeyAnalytics)
	if before != after {
		t.Errorf("collection changed:\nbefore %s\nafter  %s", before, after)
	}
	if st.writes() != writesBefore {
		t.Errorf("store written %d times, want 0", st.writes()-writesBefore)
	}
}

func TestAnalytics_Summary(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestAnalytics(store.NewMemory())

	seed := []struct {
		id      string
		views   int
		actions int
		watch   float64
	}{
		{"a", 10, 2, 50},
		{"b", 20, 8, 100},
		{"c", 5, 1, 25},
	}
	for _, s := range seed {
		_, _ = svc.CreateVideoAnalytics(ctx, s.id, s.id)
		for i := 0; i < s.views; i++ {
			_ = svc.RecordView(ctx, s.id, s.watch/float64(s.views), true, model.ViewSourceDirect)
		}
		for i := 0; i < s.actions; i++ {
			_ = svc.RecordEngagement(ctx, s.id, model.EngagementLike)
		}
	}

	summary, err := svc.GetAnalyticsSummary(ctx)
	if err != nil {
		t.Fatalf("GetAnalyticsSummary failed: %v", err)
	}
	if summary.TotalViews != 35 {
		t.Errorf("TotalViews = %d, want 35", summary.TotalViews)
	}
	if summary.TotalEngagementActions != 11 {
		t.Errorf("TotalEngagementActions = %d, want 11", summary.TotalEngagementActions)
	}
	if summary.TotalVideos != 3 {
		t.Errorf("TotalVideos = %d, want 3", summary.TotalVideos)
	}
	if summary.TopPerformingVideo == nil || summary.TopPerformingVideo.VideoID != "b" {
		t.Errorf("TopPerformingVideo = %+v, want the 20-view record", summary.TopPerformingVideo)
	}
	// 175s over 35 views.
	if summary.AverageWatchTime != 5 {
		t.Errorf("AverageWatchTime = %d, want 5", summary.AverageWatchTime)
	}
	// rates 20, 40, 20.
	if summary.AverageEngagementRate != 27 {
		t.Errorf("AverageEngagementRate = %d, want 27", summary.AverageEngagementRate)
	}
}

func TestAnalytics_SummaryEmptyAndTies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestAnalytics(store.NewMemory())

	summary, err := svc.GetAnalyticsSummary(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if *summary != (model.AnalyticsSummary{}) {
		t.Errorf("empty summary = %+v", summary)
	}

	_, _ = svc.CreateVideoAnalytics(ctx, "first", "first")
	_, _ = svc.CreateVideoAnalytics(ctx, "second", "second")
	summary, _ = svc.GetAnalyticsSummary(ctx)
	if summary.TopPerformingVideo == nil || summary.TopPerformingVideo.VideoID != "first" {
		t.Errorf("tie should go to the first record, got %+v", summary.TopPerformingVideo)
	}
	if summary.AverageWatchTime != 0 {
		t.Errorf("AverageWatchTime with no views = %d", summary.AverageWatchTime)
	}
}

func TestAnalytics_SummaryIsCachedAfterMutation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	svc, _, _ := newTestAnalytics(st)

	_, _ = svc.CreateVideoAnalytics(ctx, "vid-1", "Demo")
	_ = svc.RecordView(ctx, "vid-1", 4, true, model.ViewSourceDirect)

	raw, found, _ := st.Get(ctx, store.KeyAnalyticsSummary)
	if !found {
		t.Fatal("summary cache not written")
	}
	var cached model.AnalyticsSummary
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		t.Fatalf("decode cached summary: %v", err)
	}
	if cached.TotalViews != 1 || cached.TotalVideos != 1 {
		t.Errorf("cached summary = %+v", cached)
	}
}

func TestAnalytics_DateRangeInclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk, _ := newTestAnalytics(store.NewMemory())

	start := clk.Now()
	_, _ = svc.CreateVideoAnalytics(ctx, "on-start", "")
	clk.Advance(24 * time.Hour)
	_, _ = svc.CreateVideoAnalytics(ctx, "middle", "")
	clk.Advance(24 * time.Hour)
	end := clk.Now()
	_, _ = svc.CreateVideoAnalytics(ctx, "on-end", "")
	clk.Advance(time.Second)
	_, _ = svc.CreateVideoAnalytics(ctx, "after", "")

	got, err := svc.GetAnalyticsForDateRange(ctx, start, end)
	if err != nil {
		t.Fatal(err)
	}
	var ids []string
	for _, rec := range got {
		ids = append(ids, rec.VideoID)
	}
	want := []string{"on-start", "middle", "on-end"}
	if len(ids) != len(want) {
		t.Fatalf("range = %v, want %v", ids, want)
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("range[%d] = %s, want %s", i, ids[i], want[i])
		}
	}
}

func TestAnalytics_Export(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk, _ := newTestAnalytics(store.NewMemory())

	_, _ = svc.CreateVideoAnalytics(ctx, "vid-1", "Demo")
	_ = svc.RecordView(ctx, "vid-1", 2, false, model.ViewSourceShare)

	out, err := svc.ExportAnalytics(ctx)
	if err != nil {
		t.Fatalf("ExportAnalytics failed: %v", err)
	}
	var doc struct {
		Summary    model.AnalyticsSummary `json:"summary"`
		Analytics  []model.VideoAnalytics `json:"analytics"`
		ExportedAt time.Time              `json:"exportedAt"`
	}
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("export is not JSON: %v", err)
	}
	if doc.Summary.TotalViews != 1 || len(doc.Analytics) != 1 || !doc.ExportedAt.Equal(clk.Now()) {
		t.Errorf("export = %+v", doc)
	}
}

func TestAnalytics_StoreFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newFlakyStore()
	svc, _, recorder := newTestAnalytics(st)

	_, _ = svc.CreateVideoAnalytics(ctx, "vid-1", "Demo")
	st.setFailures(true, false, store.KeyAnalytics)

	all, err := svc.GetAllAnalytics(ctx)
	if !errors.Is(err, ErrStore) {
		t.Errorf("GetAllAnalytics err = %v, want ErrStore", err)
	}
	if all == nil || len(all) != 0 {
		t.Errorf("GetAllAnalytics default = %v, want empty slice", all)
	}

	summary, err := svc.GetAnalyticsSummary(ctx)
	if !errors.Is(err, ErrStore) || summary == nil || summary.TotalVideos != 0 {
		t.Errorf("GetAnalyticsSummary = %+v, %v; want zeroed, ErrStore", summary, err)
	}

	if err := svc.RecordView(ctx, "vid-1", 1, true, model.ViewSourceDirect); !errors.Is(err, ErrStore) {
		t.Errorf("RecordView err = %v, want ErrStore", err)
	}
	if recorder.Snapshot().StoreErrors == 0 {
		t.Error("store errors not counted")
	}
}

func TestAnalytics_MalformedDataIsStoreError(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	_ = st.Set(ctx, store.KeyAnalytics, "{not json")
	svc, _, _ := newTestAnalytics(st)

	if _, err := svc.GetAllAnalytics(ctx); !errors.Is(err, ErrStore) {
		t.Errorf("err = %v, want ErrStore", err)
	}
	if _, err := svc.CreateVideoAnalytics(ctx, "v", "t"); !errors.Is(err, ErrStore) {
		t.Errorf("create over malformed data err = %v, want ErrStore", err)
	}
	raw, _, _ := st.Get(ctx, store.KeyAnalytics)
	if raw != "{not json" {
		t.Errorf("malformed data overwritten: %q", raw)
	}
}

func TestAnalytics_ConcurrentViewsAreNotLost(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, _ := newTestAnalytics(store.NewMemory())
	_, _ = svc.CreateVideoAnalytics(ctx, "vid-1", "Demo")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = svc.RecordView(ctx, "vid-1", 1, true, model.ViewSourceDirect)
		}()
	}
	wg.Wait()

	rec, _ := svc.GetVideoAnalytics(ctx, "vid-1")
	if rec.Views != n {
		t.Errorf("views = %d, want %d", rec.Views, n)
	}
}

// writeLog wraps a Memory store and records every Set in order.
type writeLog struct {
	*store.Memory

	mu     sync.Mutex
	writes []kvWrite
}

type kvWrite struct {
	key, value string
}

func (w *writeLog) Set(ctx context.Context, key, value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, kvWrite{key: key, value: value})
	return w.Memory.Set(ctx, key, value)
}

func TestAnalytics_SummaryCacheFollowsEveryWrite(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := &writeLog{Memory: store.NewMemory()}
	svc, _, _ := newTestAnalytics(st)
	_, _ = svc.CreateVideoAnalytics(ctx, "vid-1", "Demo")
	_, _ = svc.CreateVideoAnalytics(ctx, "vid-2", "Other")

	const n = 40
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = svc.RecordView(ctx, "vid-1", 2, true, model.ViewSourceDirect)
		}()
		go func() {
			defer wg.Done()
			_ = svc.RecordEngagement(ctx, "vid-2", model.EngagementLike)
		}()
	}
	wg.Wait()

	st.mu.Lock()
	writes := st.writes
	st.mu.Unlock()

	if len(writes) != 2*(2+2*n) {
		t.Fatalf("writes = %d, want %d", len(writes), 2*(2+2*n))
	}
	for i := 0; i < len(writes); i += 2 {
		records, summary := writes[i], writes[i+1]
		if records.key != store.KeyAnalytics || summary.key != store.KeyAnalyticsSummary {
			t.Fatalf("write %d: keys = %q, %q", i, records.key, summary.key)
		}
		var items []model.VideoAnalytics
		if err := json.Unmarshal([]byte(records.value), &items); err != nil {
			t.Fatalf("decode records: %v", err)
		}
		want, _ := json.Marshal(summarize(items))
		if summary.value != string(want) {
			t.Fatalf("write %d: summary %s does not match records %s", i+1, summary.value, want)
		}
	}

	final, _ := svc.GetAnalyticsSummary(ctx)
	var cached model.AnalyticsSummary
	if err := json.Unmarshal([]byte(writes[len(writes)-1].value), &cached); err != nil {
		t.Fatalf("decode cached summary: %v", err)
	}
	if cached.TotalViews != n || cached.TotalEngagementActions != final.TotalEngagementActions {
		t.Errorf("cached summary = %+v, want %+v", cached, *final)
	}
}
