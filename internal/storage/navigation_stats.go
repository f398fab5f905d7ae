package storage

import (
	"context"
	"fmt"
	"time"
)

// NavigationStats holds aggregate statistics about the audit log.
type NavigationStats struct {
	Total    int64       `json:"total"`
	Allowed  int64       `json:"allowed"`
	Denied   int64       `json:"denied"`
	Earliest *time.Time  `json:"earliest"`
	Latest   *time.Time  `json:"latest"`
	ByRoute  []RouteStat `json:"by_route"`
}

// RouteStat summarizes the navigations that ended on one route.
type RouteStat struct {
	RouteName string `json:"route_name"`
	Allowed   int64  `json:"allowed"`
	Denied    int64  `json:"denied"`
}

// GetNavigationStats aggregates the navigation log.
func (db *DB) GetNavigationStats(ctx context.Context) (*NavigationStats, error) {
	stats := &NavigationStats{}

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE outcome = $1),
		       COUNT(*) FILTER (WHERE outcome = $2),
		       MIN(created_at), MAX(created_at)
		FROM navigation_logs`, OutcomeAllowed, OutcomeDenied,
	).Scan(&stats.Total, &stats.Allowed, &stats.Denied, &stats.Earliest, &stats.Latest)
	if err != nil {
		return nil, fmt.Errorf("counting navigations: %w", err)
	}

	// route_name is where the navigation ended, so denials group under
	// login and home.
	rows, err := db.Pool.Query(ctx, `
		SELECT route_name,
		       COUNT(*) FILTER (WHERE outcome = $1),
		       COUNT(*) FILTER (WHERE outcome = $2)
		FROM navigation_logs
		GROUP BY route_name
		ORDER BY COUNT(*) DESC, route_name`, OutcomeAllowed, OutcomeDenied)
	if err != nil {
		return nil, fmt.Errorf("querying route stats: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rs RouteStat
		if err := rows.Scan(&rs.RouteName, &rs.Allowed, &rs.Denied); err != nil {
			return nil, fmt.Errorf("scanning route stat: %w", err)
		}
		stats.ByRoute = append(stats.ByRoute, rs)
	}
	return stats, rows.Err()
}
