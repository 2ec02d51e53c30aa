package analytics

import (
	"context"
	"fmt"
	"time"
)

type VisitorMetric struct {
	ID        int       `json:"id"`
	HashedIP  string    `json:"hashed_ip"`
	UserAgent string    `json:"user_agent"`
	Path      string    `json:"path"`
	Timestamp time.Time `json:"timestamp"`
}

type ProductStat struct {
	Product      string `json:"product"`
	Clicks       int64  `json:"clicks"`
	GalleryOpens int64  `json:"gallery_opens"`
	GalleryNavs  int64  `json:"gallery_navigations"`
}

type Stats struct {
	TotalVisitors    int64           `json:"total_visitors"`
	UniqueVisitors   int64           `json:"unique_visitors"`
	VisitorsToday    int64           `json:"visitors_today"`
	VisitorsThisWeek int64           `json:"visitors_this_week"`
	TotalClicks      int64           `json:"total_clicks"`
	Products         []ProductStat   `json:"products"`
	RecentVisitors   []VisitorMetric `json:"recent_visitors"`
	RecentMessages   []Message       `json:"recent_messages"`
}

// Stats aggregates the admin dashboard numbers.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	now := s.now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	st := &Stats{}

	counts := []struct {
		dst   *int64
		query string
		args  []any
	}{
		{&st.TotalVisitors, `SELECT COUNT(*) FROM visitors`, nil},
		{&st.UniqueVisitors, `SELECT COUNT(DISTINCT hashed_ip) FROM visitors`, nil},
		{&st.VisitorsToday, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{startOfDay}},
		{&st.VisitorsThisWeek, `SELECT COUNT(*) FROM visitors WHERE timestamp >= ?`, []any{now.Add(-7 * 24 * time.Hour)}},
		{&st.TotalClicks, `SELECT COALESCE(SUM(clicks), 0) FROM outbound_clicks`, nil},
	}
	for _, c := range counts {
		if err := s.db.QueryRowContext(ctx, c.query, c.args...).Scan(c.dst); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
	}

	products, err := s.productStats(ctx)
	if err != nil {
		return nil, err
	}
	st.Products = products

	if st.RecentVisitors, err = s.RecentVisitors(ctx, 50); err != nil {
		return nil, err
	}
	if st.RecentMessages, err = s.RecentMessages(ctx, 20); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) productStats(ctx context.Context) ([]ProductStat, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.product,
			COALESCE((SELECT clicks FROM outbound_clicks c WHERE c.product = p.product), 0),
			(SELECT COUNT(*) FROM gallery_events g WHERE g.product = p.product AND g.op = 'open'),
			(SELECT COUNT(*) FROM gallery_events g WHERE g.product = p.product AND g.op IN ('next', 'prev', 'jump'))
		FROM (
			SELECT product FROM outbound_clicks
			UNION
			SELECT product FROM gallery_events
		) p
		ORDER BY 2 DESC, 3 DESC, p.product`)
	if err != nil {
		return nil, fmt.Errorf("product stats: %w", err)
	}
	defer rows.Close()

	var out []ProductStat
	for rows.Next() {
		var ps ProductStat
		if err := rows.Scan(&ps.Product, &ps.Clicks, &ps.GalleryOpens, &ps.GalleryNavs); err != nil {
			return nil, fmt.Errorf("scan product stat: %w", err)
		}
		out = append(out, ps)
	}
	return out, rows.Err()
}

func (s *Store) RecentVisitors(ctx context.Context, limit int) ([]VisitorMetric, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, hashed_ip, COALESCE(user_agent, ''), COALESCE(path, ''), timestamp
		FROM visitors
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visitors: %w", err)
	}
	defer rows.Close()

	var out []VisitorMetric
	for rows.Next() {
		var v VisitorMetric
		if err := rows.Scan(&v.ID, &v.HashedIP, &v.UserAgent, &v.Path, &v.Timestamp); err != nil {
			return nil, fmt.Errorf("scan visitor: %w", err)
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

func (s *Store) RecentMessages(ctx context.Context, limit int) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, email, message, timestamp
		FROM contact_messages
		ORDER BY timestamp DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent messages: %w", err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.Name, &m.Email, &m.Message, &m.Timestamp); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
