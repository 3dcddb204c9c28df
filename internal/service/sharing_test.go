package service

import (
	"context"
	"crypto/rand"
	"errors"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/avatarstudio/avatarstudio/internal/metrics"
	"github.com/avatarstudio/avatarstudio/internal/model"
	"github.com/avatarstudio/avatarstudio/internal/store"
	"github.com/avatarstudio/avatarstudio/internal/testutil"
)

const (
	testShareBase = "https://studio.example.com/"
	testQRService = "https://qr.example.com/v1/create-qr-code/"
)

func newTestSharing(st store.Store) (*SharingService, *clock, *metrics.InMemoryRecorder) {
	recorder := metrics.NewInMemory()
	svc := NewSharingService(st, testShareBase, testQRService, testutil.DiscardLogger(), recorder)
	clk := newClock()
	svc.now = clk.Now
	return svc, clk, recorder
}

func mustShare(t *testing.T, svc *SharingService, input model.ShareInput) *model.SharedVideo {
	t.Helper()
	share, err := svc.ShareVideo(context.Background(), input)
	if err != nil {
		t.Fatalf("ShareVideo failed: %v", err)
	}
	return share
}

func boolPtr(b bool) *bool { return &b }

var shareIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{12}$`)

func TestSharing_ShareVideoDerivedFields(t *testing.T) {
	t.Parallel()
	svc, clk, recorder := newTestSharing(store.NewMemory())

	share := mustShare(t, svc, testutil.NewShareInput("vid-1"))

	if !shareIDPattern.MatchString(share.ID) {
		t.Errorf("share id %q is not 12 alphanumerics", share.ID)
	}
	wantURL := "https://studio.example.com/watch/" + share.ID
	if share.ShareURL != wantURL {
		t.Errorf("ShareURL = %s, want %s", share.ShareURL, wantURL)
	}
	wantQR := testQRService + "?size=300x300&data=" + url.QueryEscape(wantURL)
	if share.QRCodeURL != wantQR {
		t.Errorf("QRCodeURL = %s, want %s", share.QRCodeURL, wantQR)
	}
	if !share.IsPublic {
		t.Error("shares should default to public")
	}
	if share.ExpiresAt != nil {
		t.Errorf("ExpiresAt = %v, want nil", share.ExpiresAt)
	}
	if !share.CreatedAt.Equal(clk.Now()) || share.ViewCount != 0 || share.LeadCount != 0 {
		t.Errorf("share = %+v", share)
	}

	other := mustShare(t, svc, testutil.NewShareInput("vid-1"))
	if other.ID == share.ID {
		t.Error("share ids should be generated fresh")
	}
	if recorder.Snapshot().SharesCreated != 2 {
		t.Errorf("SharesCreated = %d", recorder.Snapshot().SharesCreated)
	}
}

func TestSharing_ShareVideoOptions(t *testing.T) {
	t.Parallel()
	svc, clk, _ := newTestSharing(store.NewMemory())

	input := testutil.NewShareInput("vid-1")
	input.IsPublic = boolPtr(false)
	input.Password = "p1"
	input.ExpirationDays = 7
	share := mustShare(t, svc, input)

	if share.IsPublic || share.Password != "p1" {
		t.Errorf("access = public %v, password %q", share.IsPublic, share.Password)
	}
	want := clk.Now().Add(7 * 24 * time.Hour)
	if share.ExpiresAt == nil || !share.ExpiresAt.Equal(want) {
		t.Errorf("ExpiresAt = %v, want %v", share.ExpiresAt, want)
	}
}

func TestSharing_LazyExpiryAndCleanup(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk, recorder := newTestSharing(store.NewMemory())

	short := testutil.NewShareInput("vid-1")
	short.ExpirationDays = 1
	expiring := mustShare(t, svc, short)
	expiring2 := mustShare(t, svc, short)
	forever := mustShare(t, svc, testutil.NewShareInput("vid-2"))
	long := testutil.NewShareInput("vid-3")
	long.ExpirationDays = 30
	later := mustShare(t, svc, long)

	clk.Advance(48 * time.Hour)

	if got, err := svc.GetSharedVideo(ctx, expiring.ID); got != nil || err != nil {
		t.Errorf("GetSharedVideo(expired) = %+v, %v; want nil, nil", got, err)
	}
	if got, _ := svc.GetSharedVideo(ctx, forever.ID); got == nil {
		t.Error("GetSharedVideo(no expiry) = nil")
	}
	if got, _ := svc.GetSharedVideo(ctx, later.ID); got == nil {
		t.Error("GetSharedVideo(future expiry) = nil")
	}

	all, _ := svc.GetAllSharedVideos(ctx)
	if len(all) != 4 {
		t.Fatalf("expired shares should stay until cleanup, have %d", len(all))
	}

	// Counters still move on expired records.
	if ok, err := svc.RecordView(ctx, expiring.ID); !ok || err != nil {
		t.Errorf("RecordView(expired) = %v, %v; want true, nil", ok, err)
	}
	if ok, err := svc.RecordLead(ctx, expiring2.ID); !ok || err != nil {
		t.Errorf("RecordLead(expired) = %v, %v; want true, nil", ok, err)
	}

	removed, err := svc.CleanupExpiredShares(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredShares failed: %v", err)
	}
	if removed != 2 {
		t.Errorf("removed = %d, want 2", removed)
	}
	all, _ = svc.GetAllSharedVideos(ctx)
	if len(all) != 2 {
		t.Errorf("remaining = %d, want 2", len(all))
	}
	if recorder.Snapshot().SharesExpired != 2 {
		t.Errorf("SharesExpired = %d", recorder.Snapshot().SharesExpired)
	}

	removed, _ = svc.CleanupExpiredShares(ctx)
	if removed != 0 {
		t.Errorf("second cleanup removed %d, want 0", removed)
	}
}

func TestSharing_ExpiryBoundaryIsInclusive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk, _ := newTestSharing(store.NewMemory())

	input := testutil.NewShareInput("vid-1")
	input.ExpirationDays = 1
	share := mustShare(t, svc, input)

	clk.Advance(24*time.Hour - time.Second)
	if got, _ := svc.GetSharedVideo(ctx, share.ID); got == nil {
		t.Fatal("share expired early")
	}
	clk.Advance(time.Second)
	if got, _ := svc.GetSharedVideo(ctx, share.ID); got != nil {
		t.Error("share should be expired at expiresAt")
	}
}

func TestSharing_ValidateAccess(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk, _ := newTestSharing(store.NewMemory())

	public := mustShare(t, svc, testutil.NewShareInput("vid-1"))

	protectedInput := testutil.NewShareInput("vid-1")
	protectedInput.IsPublic = boolPtr(false)
	protectedInput.Password = "p1"
	protected := mustShare(t, svc, protectedInput)

	openInput := testutil.NewShareInput("vid-1")
	openInput.IsPublic = boolPtr(false)
	open := mustShare(t, svc, openInput)

	expiringInput := testutil.NewShareInput("vid-1")
	expiringInput.ExpirationDays = 1
	expiring := mustShare(t, svc, expiringInput)

	publicWithPassword := testutil.NewShareInput("vid-1")
	publicWithPassword.Password = "ignored"
	publicPw := mustShare(t, svc, publicWithPassword)

	clk.Advance(25 * time.Hour)

	tests := []struct {
		name     string
		id       string
		password string
		want     bool
	}{
		{"public no password", public.ID, "", true},
		{"public any password", public.ID, "whatever", true},
		{"public ignores stored password", publicPw.ID, "", true},
		{"private exact", protected.ID, "p1", true},
		{"private wrong", protected.ID, "p2", false},
		{"private case sensitive", protected.ID, "P1", false},
		{"private prefix", protected.ID, "p", false},
		{"private empty", protected.ID, "", false},
		{"private without stored password", open.ID, "anything", true},
		{"expired", expiring.ID, "", false},
		{"missing", "AAAAAAAAAAAA", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := svc.ValidateAccess(ctx, tt.id, tt.password)
			if err != nil {
				t.Fatalf("ValidateAccess err = %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateAccess = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSharing_UpdateAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, clk, _ := newTestSharing(store.NewMemory())

	input := testutil.NewShareInput("vid-1")
	input.ExpirationDays = 3
	share := mustShare(t, svc, input)

	password := "s3cret"
	updated, err := svc.UpdateSharedVideo(ctx, share.ID, model.ShareUpdate{
		IsPublic: boolPtr(false),
		Password: &password,
	})
	if err != nil || updated == nil {
		t.Fatalf("UpdateSharedVideo = %+v, %v", updated, err)
	}
	if updated.IsPublic || updated.Password != password || updated.ShareURL != share.ShareURL {
		t.Errorf("updated = %+v", updated)
	}
	if updated.ExpiresAt == nil {
		t.Error("expiry dropped by an update that did not mention it")
	}

	updated, _ = svc.UpdateSharedVideo(ctx, share.ID, model.ShareUpdate{ClearExpiry: true})
	if updated.ExpiresAt != nil {
		t.Errorf("ClearExpiry left ExpiresAt = %v", updated.ExpiresAt)
	}

	clk.Advance(10 * 24 * time.Hour)
	if got, _ := svc.GetSharedVideo(ctx, share.ID); got == nil {
		t.Error("share with cleared expiry should not expire")
	}

	if missing, err := svc.UpdateSharedVideo(ctx, "nope", model.ShareUpdate{}); missing != nil || err != nil {
		t.Errorf("UpdateSharedVideo(missing) = %+v, %v", missing, err)
	}

	if ok, err := svc.DeleteSharedVideo(ctx, share.ID); !ok || err != nil {
		t.Fatalf("DeleteSharedVideo = %v, %v", ok, err)
	}
	if ok, _ := svc.DeleteSharedVideo(ctx, share.ID); ok {
		t.Error("second DeleteSharedVideo returned true")
	}
	if ok, _ := svc.RecordView(ctx, share.ID); ok {
		t.Error("RecordView on deleted share returned true")
	}
}

func TestSharing_Analytics(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	svc, _, recorder := newTestSharing(store.NewMemory())

	views := []int{3, 10, 0, 7, 1, 5}
	var ids []string
	for i, n := range views {
		videoID := "vid-a"
		if i >= 4 {
			videoID = "vid-b"
		}
		share := mustShare(t, svc, testutil.NewShareInput(videoID))
		ids = append(ids, share.ID)
		for j := 0; j < n; j++ {
			_, _ = svc.RecordView(ctx, share.ID)
		}
	}
	_, _ = svc.RecordLead(ctx, ids[1])
	_, _ = svc.RecordLead(ctx, ids[1])
	_, _ = svc.RecordLead(ctx, ids[5])

	all, err := svc.GetShareAnalytics(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if all.TotalShares != 6 || all.TotalViews != 26 || all.TotalLeads != 3 {
		t.Errorf("totals = %+v", all)
	}
	// 3 of 26.
	if all.ConversionRate != 12 {
		t.Errorf("ConversionRate = %d, want 12", all.ConversionRate)
	}
	if len(all.TopPerformingShares) != 5 {
		t.Fatalf("top shares = %d, want 5", len(all.TopPerformingShares))
	}
	wantTop := []int{10, 7, 5, 3, 1}
	for i, share := range all.TopPerformingShares {
		if share.ViewCount != wantTop[i] {
			t.Errorf("top[%d].ViewCount = %d, want %d", i, share.ViewCount, wantTop[i])
		}
	}

	b, _ := svc.GetShareAnalytics(ctx, "vid-b")
	if b.TotalShares != 2 || b.TotalViews != 6 || b.TotalLeads != 1 || b.ConversionRate != 17 {
		t.Errorf("vid-b analytics = %+v", b)
	}

	none, _ := svc.GetShareAnalytics(ctx, "vid-none")
	if none.TotalShares != 0 || none.ConversionRate != 0 || none.TopPerformingShares == nil {
		t.Errorf("empty analytics = %+v", none)
	}

	shares, _ := svc.GetVideoShares(ctx, "vid-b")
	if len(shares) != 2 {
		t.Errorf("GetVideoShares(vid-b) = %d, want 2", len(shares))
	}

	snap := recorder.Snapshot()
	if snap.ShareViews != 26 || snap.ShareLeads != 3 {
		t.Errorf("metrics = %+v", snap)
	}
}

func TestSharing_StoreFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := newFlakyStore()
	svc, _, _ := newTestSharing(st)
	share := mustShare(t, svc, testutil.NewShareInput("vid-1"))

	st.setFailures(true, false, store.KeySharedVideos)

	if got, err := svc.GetSharedVideo(ctx, share.ID); got != nil || !errors.Is(err, ErrStore) {
		t.Errorf("GetSharedVideo = %+v, %v", got, err)
	}
	if ok, err := svc.ValidateAccess(ctx, share.ID, ""); ok || !errors.Is(err, ErrStore) {
		t.Errorf("ValidateAccess = %v, %v; want false, ErrStore", ok, err)
	}
	if n, err := svc.CleanupExpiredShares(ctx); n != 0 || !errors.Is(err, ErrStore) {
		t.Errorf("CleanupExpiredShares = %d, %v", n, err)
	}
	stats, err := svc.GetShareAnalytics(ctx, "")
	if !errors.Is(err, ErrStore) || stats == nil || stats.TotalShares != 0 {
		t.Errorf("GetShareAnalytics = %+v, %v", stats, err)
	}
}

func TestSharing_RandomSourceFailure(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	st := store.NewMemory()
	svc, _, recorder := newTestSharing(st)
	svc.random = failingReader{}

	share, err := svc.ShareVideo(ctx, testutil.NewShareInput("vid-1"))
	if share != nil || !errors.Is(err, errNoEntropy) {
		t.Fatalf("ShareVideo = %+v, %v; want nil, errNoEntropy", share, err)
	}
	if all, _ := svc.GetAllSharedVideos(ctx); len(all) != 0 {
		t.Errorf("share persisted despite failure: %+v", all)
	}
	if recorder.Snapshot().SharesCreated != 0 {
		t.Error("failed share counted as created")
	}
}

func TestGenerateShareID(t *testing.T) {
	t.Parallel()

	seen := make(map[string]bool)
	for range 50 {
		id, err := generateShareID(rand.Reader)
		if err != nil {
			t.Fatalf("generateShareID: %v", err)
		}
		if len(id) != shareIDLength || strings.Trim(id, shareIDAlphabet) != "" {
			t.Fatalf("id %q is not %d alphabet characters", id, shareIDLength)
		}
		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}
		seen[id] = true
	}

	if _, err := generateShareID(failingReader{}); !errors.Is(err, errNoEntropy) {
		t.Errorf("err = %v, want errNoEntropy", err)
	}
}

var errNoEntropy = errors.New("entropy source exhausted")

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errNoEntropy }

func TestGenerateShareMessage(t *testing.T) {
	t.Parallel()

	expires := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	share := model.SharedVideo{
		Title:       "Spring Listing Tour",
		CreatorName: "Casey",
		ShareURL:    "https://studio.example.com/watch/abc123def456",
	}

	msg := GenerateShareMessage(share)
	for _, want := range []string{"Spring Listing Tour", "Casey", share.ShareURL} {
		if !strings.Contains(msg, want) {
			t.Errorf("message missing %q:\n%s", want, msg)
		}
	}
	if strings.Contains(msg, "password") || strings.Contains(msg, "expires") {
		t.Errorf("public message without expiry mentions extras:\n%s", msg)
	}

	share.IsPublic = false
	share.Password = "p1"
	share.ExpiresAt = &expires
	msg = GenerateShareMessage(share)
	if !strings.Contains(msg, "password protected") || !strings.Contains(msg, "April 1, 2025") {
		t.Errorf("message missing protection or expiry:\n%s", msg)
	}
	if strings.Contains(msg, "p1") {
		t.Error("message leaks the password")
	}
}

func TestGenerateEmailTemplate(t *testing.T) {
	t.Parallel()

	share := model.SharedVideo{
		Title:        "Welcome",
		CreatorName:  "Casey",
		CreatorEmail: "casey@example.com",
		ShareURL:     "https://studio.example.com/watch/abc123def456",
		IsPublic:     true,
	}

	tpl := GenerateEmailTemplate(share, "Jordan")
	if tpl.Subject != "Casey shared a video with you: Welcome" {
		t.Errorf("Subject = %q", tpl.Subject)
	}
	for _, want := range []string{"Hi Jordan,", share.ShareURL, "casey@example.com", "\"Welcome\""} {
		if !strings.Contains(tpl.Body, want) {
			t.Errorf("body missing %q:\n%s", want, tpl.Body)
		}
	}

	anon := GenerateEmailTemplate(share, "  ")
	if !strings.HasPrefix(anon.Body, "Hi there,") {
		t.Errorf("anonymous greeting = %q", strings.SplitN(anon.Body, "\n", 2)[0])
	}
}
