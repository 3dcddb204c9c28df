package model

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestPercent(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		part  int
		whole int
		want  int
	}{
		{"zero whole", 5, 0, 0},
		{"negative whole", 5, -1, 0},
		{"exact", 1, 4, 25},
		{"rounds half up", 1, 8, 13},
		{"rounds down", 1, 3, 33},
		{"rounds up", 2, 3, 67},
		{"over 100", 30, 10, 300},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Percent(tt.part, tt.whole); got != tt.want {
				t.Errorf("Percent(%d, %d) = %d, want %d", tt.part, tt.whole, got, tt.want)
			}
		})
	}
}

func TestNormalizeTags(t *testing.T) {
	t.Parallel()

	got := NormalizeTags([]string{"vip"}, "VIP", " Hot ", "", "hot", "Cold")
	want := []string{"vip", "hot", "cold"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("NormalizeTags() = %v, want %v", got, want)
	}
}

func TestLeadFilter_Match(t *testing.T) {
	t.Parallel()

	lead := &Lead{
		Name:     "Jane Roe",
		Email:    "jane@acme.io",
		Company:  "Acme",
		Source:   LeadSourceVideo,
		Status:   LeadStatusNew,
		Priority: LeadPriorityMedium,
		Tags:     []string{"vip", "webinar"},
	}

	tests := []struct {
		name   string
		filter LeadFilter
		want   bool
	}{
		{"empty filter", LeadFilter{}, true},
		{"status match", LeadFilter{Status: LeadStatusNew}, true},
		{"status mismatch", LeadFilter{Status: LeadStatusLost}, false},
		{"priority mismatch", LeadFilter{Priority: LeadPriorityHigh}, false},
		{"source match", LeadFilter{Source: LeadSourceVideo}, true},
		{"any tag", LeadFilter{Tags: []string{"cold", "VIP"}}, true},
		{"no tag", LeadFilter{Tags: []string{"cold"}}, false},
		{"search company", LeadFilter{Search: "ACME"}, true},
		{"search miss", LeadFilter{Search: "globex"}, false},
		{"and composition", LeadFilter{Status: LeadStatusNew, Search: "acme"}, true},
		{"and composition miss", LeadFilter{Status: LeadStatusContacted, Search: "acme"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.filter.Match(lead); got != tt.want {
				t.Errorf("Match() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSharedVideo_IsExpired(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	if (&SharedVideo{}).IsExpired(now) {
		t.Error("share without expiry should never expire")
	}
	if !(&SharedVideo{ExpiresAt: &past}).IsExpired(now) {
		t.Error("share with past expiry should be expired")
	}
	if (&SharedVideo{ExpiresAt: &future}).IsExpired(now) {
		t.Error("share with future expiry should not be expired")
	}
}

func TestCollections_JSONRoundTrip(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 4, 5, 6, 7, 8, time.UTC)
	later := now.Add(time.Hour)

	analytics := []VideoAnalytics{{
		ID: "01J", VideoID: "v1", VideoTitle: "Intro", Views: 2, Likes: 1, WatchTime: 12.5,
		CreatedAt: now, LastViewed: &later, EngagementRate: 50,
		ViewHistory: []ViewEvent{{Timestamp: now, Duration: 10, Completed: true, Source: ViewSourceShare}},
	}}
	leads := []Lead{{
		ID: "lead_1_1", Name: "A", Email: "a@b.c", Source: LeadSourceForm, Status: LeadStatusNew,
		Priority: LeadPriorityMedium, Tags: []string{"vip"}, CreatedAt: now, LastContactedAt: &later,
		Notes:        []LeadNote{{ID: "n1", Text: "hi", CreatedAt: now, Type: NoteTypeCall}},
		CustomFields: map[string]string{"budget": "10k"},
	}, {
		ID: "lead_2_2", Name: "B", Email: "b@c.d", Source: LeadSourceDirect, Status: LeadStatusNew,
		Priority: LeadPriorityMedium, Tags: []string{}, CreatedAt: now, Notes: []LeadNote{},
		CustomFields: map[string]string{},
	}, {
		ID: "lead_3_3", Name: "C", Email: "c@d.e", Source: LeadSourceVideo, Status: LeadStatusLost,
		Priority: LeadPriorityLow, CreatedAt: now,
	}}
	shares := []SharedVideo{{
		ID: "abcdefghijkl", VideoID: "v1", Title: "Intro", IsPublic: false, Password: "p1",
		ExpiresAt: &later, CreatedAt: now, ViewCount: 3, LeadCount: 1,
	}}

	roundTrip(t, analytics)
	roundTrip(t, leads)
	roundTrip(t, shares)
}

func roundTrip[T any](t *testing.T, in []T) {
	t.Helper()

	data, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !reflect.DeepEqual(in, out) {
		t.Errorf("round trip mismatch:\n in: %+v\nout: %+v", in, out)
	}
}
