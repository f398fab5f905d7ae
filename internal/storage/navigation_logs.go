package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Navigation outcomes.
const (
	OutcomeAllowed = "allowed"
	OutcomeDenied  = "denied"
)

// NavigationLog records one completed navigation and its authorization outcome.
type NavigationLog struct {
	ID            uuid.UUID `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	RequestedPath string    `json:"requested_path"`
	FinalPath     string    `json:"final_path"`
	RouteName     string    `json:"route_name"`
	Outcome       string    `json:"outcome"`
	DenialKind    *string   `json:"denial_kind"`
	RequiredRoles []string  `json:"required_roles,omitempty"`
	UserID        *string   `json:"user_id"`
}

// InsertNavigationLog stores a navigation entry and returns its ID.
// A zero ID is replaced by a fresh random one.
func (db *DB) InsertNavigationLog(ctx context.Context, log NavigationLog) (uuid.UUID, error) {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	_, err := db.Pool.Exec(ctx,
		`INSERT INTO navigation_logs (id, requested_path, final_path, route_name,
		 outcome, denial_kind, required_roles, user_id)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		log.ID, log.RequestedPath, log.FinalPath, log.RouteName,
		log.Outcome, log.DenialKind, log.RequiredRoles, log.UserID,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting navigation log: %w", err)
	}
	return log.ID, nil
}

// QueryNavigationLogs returns the most recent navigation entries.
func (db *DB) QueryNavigationLogs(ctx context.Context, limit int) ([]NavigationLog, error) {
	rows, err := db.Pool.Query(ctx,
		`SELECT id, created_at, requested_path, final_path, route_name,
		 outcome, denial_kind, required_roles, user_id
		 FROM navigation_logs
		 ORDER BY created_at DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying navigation logs: %w", err)
	}
	defer rows.Close()

	var result []NavigationLog
	for rows.Next() {
		var l NavigationLog
		if err := rows.Scan(&l.ID, &l.CreatedAt, &l.RequestedPath, &l.FinalPath, &l.RouteName,
			&l.Outcome, &l.DenialKind, &l.RequiredRoles, &l.UserID); err != nil {
			return nil, fmt.Errorf("scanning navigation log: %w", err)
		}
		result = append(result, l)
	}
	return result, rows.Err()
}
