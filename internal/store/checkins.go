package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/saadjs/kcaldebt/internal/model"
)

const checkInColumns = `id, ts_ms, is_dry_day, conditions_json, weight_kg, is_saved, created_ms, updated_ms`

func (s *SQLStore) ListCheckIns(ctx context.Context) ([]model.CheckIn, error) {
	return s.queryCheckIns(ctx, `SELECT `+checkInColumns+` FROM check_ins ORDER BY ts_ms ASC, id ASC`)
}

func (s *SQLStore) ListCheckInsBetween(ctx context.Context, from, to time.Time) ([]model.CheckIn, error) {
	return s.queryCheckIns(ctx, `SELECT `+checkInColumns+` FROM check_ins WHERE ts_ms >= ? AND ts_ms <= ? ORDER BY ts_ms ASC, id ASC`, toMillis(from), toMillis(to))
}

func (s *SQLStore) InsertCheckIn(ctx context.Context, c model.CheckIn) (int64, error) {
	conditions, err := encodeConditions(c.Conditions)
	if err != nil {
		return 0, err
	}
	now := nowMillis()
	res, err := s.q.ExecContext(ctx, `
INSERT INTO check_ins(ts_ms, is_dry_day, conditions_json, weight_kg, is_saved, created_ms, updated_ms)
VALUES(?, ?, ?, ?, ?, ?, ?)
`, toMillis(c.Timestamp), boolToInt(c.IsDryDay), conditions, nullWeight(c.Weight), boolToInt(c.IsSaved), now, now)
	if err != nil {
		return 0, fmt.Errorf("insert check-in: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read check-in id: %w", err)
	}
	return id, nil
}

func (s *SQLStore) UpdateCheckIn(ctx context.Context, c model.CheckIn) error {
	conditions, err := encodeConditions(c.Conditions)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
UPDATE check_ins
SET ts_ms = ?, is_dry_day = ?, conditions_json = ?, weight_kg = ?, is_saved = ?, updated_ms = ?
WHERE id = ?
`, toMillis(c.Timestamp), boolToInt(c.IsDryDay), conditions, nullWeight(c.Weight), boolToInt(c.IsSaved), nowMillis(), c.ID)
	if err != nil {
		return fmt.Errorf("update check-in %d: %w", c.ID, err)
	}
	return requireAffected(res, fmt.Sprintf("check-in %d", c.ID))
}

func (s *SQLStore) queryCheckIns(ctx context.Context, query string, args ...any) ([]model.CheckIn, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list check-ins: %w", err)
	}
	defer rows.Close()

	out := make([]model.CheckIn, 0)
	for rows.Next() {
		var (
			c                          model.CheckIn
			tsMs, createdMs, updatedMs int64
			dry, saved                 int
			conditions                 string
			weight                     sql.NullFloat64
		)
		if err := rows.Scan(&c.ID, &tsMs, &dry, &conditions, &weight, &saved, &createdMs, &updatedMs); err != nil {
			return nil, fmt.Errorf("scan check-in: %w", err)
		}
		c.Timestamp = s.fromMillis(tsMs)
		c.CreatedAt = s.fromMillis(createdMs)
		c.UpdatedAt = s.fromMillis(updatedMs)
		c.IsDryDay = dry == 1
		c.IsSaved = saved == 1
		if weight.Valid {
			w := weight.Float64
			c.Weight = &w
		}
		if err := json.Unmarshal([]byte(conditions), &c.Conditions); err != nil {
			return nil, fmt.Errorf("decode check-in %d conditions: %w", c.ID, err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check-ins: %w", err)
	}
	return out, nil
}

func encodeConditions(conditions map[string]bool) (string, error) {
	if len(conditions) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(conditions)
	if err != nil {
		return "", fmt.Errorf("encode check-in conditions: %w", err)
	}
	return string(b), nil
}

func nullWeight(w *float64) any {
	if w == nil {
		return nil
	}
	return *w
}
