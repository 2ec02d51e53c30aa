package analytics

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) (*Store, *time.Time) {
	t.Helper()
	ctx := context.Background()
	s, err := Open(ctx, filepath.Join(t.TempDir(), "analytics.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	return s, &now
}

func TestHashIPIsStableAndOpaque(t *testing.T) {
	t.Parallel()

	s, _ := newStore(t)
	a := s.HashIP("203.0.113.7")
	require.Len(t, a, 16)
	require.Equal(t, a, s.HashIP("203.0.113.7"))
	require.NotEqual(t, a, s.HashIP("203.0.113.8"))
	require.NotContains(t, a, "203")
}

func TestStatsAggregates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, now := newStore(t)

	*now = now.Add(-8 * 24 * time.Hour)
	require.NoError(t, s.RecordVisit(ctx, "10.0.0.1", "old-agent", "/"))
	*now = now.Add(8*24*time.Hour - 2*time.Hour)
	require.NoError(t, s.RecordVisit(ctx, "10.0.0.1", "agent", "/"))
	*now = now.Add(2 * time.Hour)
	require.NoError(t, s.RecordVisit(ctx, "10.0.0.2", "agent", "/"))

	require.NoError(t, s.RecordClick(ctx, "proofbase"))
	require.NoError(t, s.RecordClick(ctx, "proofbase"))
	require.NoError(t, s.RecordClick(ctx, "skillden"))
	require.NoError(t, s.RecordGalleryEvent(ctx, "skillden", "open", "overlay"))
	require.NoError(t, s.RecordGalleryEvent(ctx, "skillden", "next", "overlay"))
	require.NoError(t, s.RecordGalleryEvent(ctx, "studentvault", "open", "overlay"))
	require.NoError(t, s.SaveMessage(ctx, Message{ID: "01A", Name: "Ada", Email: "ada@example.com", Message: "hi"}))

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 3, st.TotalVisitors)
	require.EqualValues(t, 2, st.UniqueVisitors)
	require.EqualValues(t, 2, st.VisitorsToday)
	require.EqualValues(t, 2, st.VisitorsThisWeek)
	require.EqualValues(t, 3, st.TotalClicks)

	require.Len(t, st.Products, 3)
	require.Equal(t, ProductStat{Product: "proofbase", Clicks: 2}, st.Products[0])
	require.Equal(t, ProductStat{Product: "skillden", Clicks: 1, GalleryOpens: 1, GalleryNavs: 1}, st.Products[1])
	require.Equal(t, ProductStat{Product: "studentvault", GalleryOpens: 1}, st.Products[2])

	require.Len(t, st.RecentVisitors, 3)
	require.Equal(t, "agent", st.RecentVisitors[0].UserAgent)
	require.Len(t, st.RecentMessages, 1)
	require.Equal(t, "Ada", st.RecentMessages[0].Name)
}

func TestCleanupDropsOldVisitors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, now := newStore(t)

	*now = now.Add(-400 * 24 * time.Hour)
	require.NoError(t, s.RecordVisit(ctx, "10.0.0.1", "ua", "/"))
	*now = now.Add(400 * 24 * time.Hour)
	require.NoError(t, s.RecordVisit(ctx, "10.0.0.1", "ua", "/"))

	n, err := s.Cleanup(ctx, Retention)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	require.EqualValues(t, 1, st.TotalVisitors)
}

func TestSaveMessageRejectsDuplicateID(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s, _ := newStore(t)
	m := Message{ID: "01B", Name: "Bo", Email: "bo@example.com", Message: "hello"}
	require.NoError(t, s.SaveMessage(ctx, m))
	require.Error(t, s.SaveMessage(ctx, m))
}
