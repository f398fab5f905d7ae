package storage

import (
	"context"
	"fmt"
	"time"
)

// Caller is a tailnet identity that has driven navigations through the API.
type Caller struct {
	Login       string    `json:"login"`
	DisplayName string    `json:"display_name"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	Navigations int64     `json:"navigations"`
}

// TouchCaller records a navigation by login, creating the caller on first
// sight. An empty display name keeps the stored one.
func (db *DB) TouchCaller(ctx context.Context, login, displayName string) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO tailnet_callers (login, display_name, navigations)
		VALUES ($1, $2, 1)
		ON CONFLICT (login) DO UPDATE
			SET last_seen = NOW(),
			    navigations = tailnet_callers.navigations + 1,
			    display_name = COALESCE(NULLIF($2, ''), tailnet_callers.display_name)
	`, login, displayName)
	if err != nil {
		return fmt.Errorf("touching caller %s: %w", login, err)
	}
	return nil
}

// ListCallers returns callers, most recently seen first.
func (db *DB) ListCallers(ctx context.Context) ([]Caller, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT login, display_name, first_seen, last_seen, navigations
		 FROM tailnet_callers ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying callers: %w", err)
	}
	defer rows.Close()

	var result []Caller
	for rows.Next() {
		var c Caller
		if err := rows.Scan(&c.Login, &c.DisplayName, &c.FirstSeen, &c.LastSeen, &c.Navigations); err != nil {
			return nil, fmt.Errorf("scanning caller: %w", err)
		}
		result = append(result, c)
	}
	return result, rows.Err()
}
