package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/saadjs/kcaldebt/internal/model"
)

const entryColumns = `id, kind, ts_ms, kcal, volume_ml, strength_pct, carbs_per_100ml, style, brewery, rating, drink_count, activity, duration_min, annotation, created_ms, updated_ms`

func (s *SQLStore) ListEntries(ctx context.Context) ([]model.LogEntry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM log_entries ORDER BY ts_ms ASC, id ASC`)
}

func (s *SQLStore) ListEntriesBetween(ctx context.Context, from, to time.Time) ([]model.LogEntry, error) {
	return s.queryEntries(ctx, `SELECT `+entryColumns+` FROM log_entries WHERE ts_ms >= ? AND ts_ms <= ? ORDER BY ts_ms ASC, id ASC`, toMillis(from), toMillis(to))
}

func (s *SQLStore) GetEntry(ctx context.Context, id int64) (model.LogEntry, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM log_entries WHERE id = ?`, id)
	e, err := s.scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.LogEntry{}, fmt.Errorf("log entry %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.LogEntry{}, fmt.Errorf("get log entry %d: %w", id, err)
	}
	return e, nil
}

func (s *SQLStore) InsertEntry(ctx context.Context, e model.LogEntry) (int64, error) {
	if err := e.Validate(); err != nil {
		return 0, err
	}
	now := nowMillis()
	args := append([]any{string(e.Kind()), toMillis(e.Timestamp), e.KCal}, variantArgs(e)...)
	args = append(args, now, now)
	res, err := s.q.ExecContext(ctx, `
INSERT INTO log_entries(kind, ts_ms, kcal, volume_ml, strength_pct, carbs_per_100ml, style, brewery, rating, drink_count, activity, duration_min, annotation, created_ms, updated_ms)
VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`, args...)
	if err != nil {
		return 0, fmt.Errorf("insert log entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read log entry id: %w", err)
	}
	return id, nil
}

func (s *SQLStore) UpdateEntry(ctx context.Context, e model.LogEntry) error {
	if err := e.Validate(); err != nil {
		return err
	}
	args := append([]any{string(e.Kind()), toMillis(e.Timestamp), e.KCal}, variantArgs(e)...)
	args = append(args, nowMillis(), e.ID)
	res, err := s.q.ExecContext(ctx, `
UPDATE log_entries
SET kind = ?, ts_ms = ?, kcal = ?, volume_ml = ?, strength_pct = ?, carbs_per_100ml = ?, style = ?, brewery = ?, rating = ?, drink_count = ?,
    activity = ?, duration_min = ?, annotation = ?, updated_ms = ?
WHERE id = ?
`, args...)
	if err != nil {
		return fmt.Errorf("update log entry %d: %w", e.ID, err)
	}
	return requireAffected(res, fmt.Sprintf("log entry %d", e.ID))
}

func (s *SQLStore) DeleteEntry(ctx context.Context, id int64) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM log_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete log entry %d: %w", id, err)
	}
	return requireAffected(res, fmt.Sprintf("log entry %d", id))
}

func (s *SQLStore) DeleteEntries(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	if _, err := s.q.ExecContext(ctx, `DELETE FROM log_entries WHERE id IN (`+placeholders+`)`, args...); err != nil {
		return fmt.Errorf("delete %d log entries: %w", len(ids), err)
	}
	return nil
}

func (s *SQLStore) queryEntries(ctx context.Context, query string, args ...any) ([]model.LogEntry, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	defer rows.Close()

	out := make([]model.LogEntry, 0)
	for rows.Next() {
		e, err := s.scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan log entry: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate log entries: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) scanEntry(row rowScanner) (model.LogEntry, error) {
	var (
		e                          model.LogEntry
		kind                       string
		tsMs, createdMs, updatedMs int64
		volume, strength, carbs    sql.NullFloat64
		style, brewery             sql.NullString
		rating, count              sql.NullInt64
		activity, annotation       sql.NullString
		duration                   sql.NullFloat64
	)
	if err := row.Scan(&e.ID, &kind, &tsMs, &e.KCal, &volume, &strength, &carbs, &style, &brewery, &rating, &count, &activity, &duration, &annotation, &createdMs, &updatedMs); err != nil {
		return model.LogEntry{}, err
	}
	e.Timestamp = s.fromMillis(tsMs)
	e.CreatedAt = s.fromMillis(createdMs)
	e.UpdatedAt = s.fromMillis(updatedMs)

	switch model.EntryKind(kind) {
	case model.KindDebt:
		e.Drink = &model.Drink{
			VolumeMl:      volume.Float64,
			StrengthPct:   strength.Float64,
			CarbsPer100ml: carbs.Float64,
			Style:         style.String,
			Brewery:       brewery.String,
			Rating:        int(rating.Int64),
			Count:         int(count.Int64),
		}
	case model.KindCredit:
		e.Workout = &model.Workout{
			Activity:    activity.String,
			DurationMin: duration.Float64,
			Annotation:  annotation.String,
		}
	default:
		return model.LogEntry{}, fmt.Errorf("unknown entry kind %q", kind)
	}
	return e, nil
}

// variantArgs returns the drink then workout columns, NULL for the variant not in use.
func variantArgs(e model.LogEntry) []any {
	if d := e.Drink; d != nil {
		return []any{d.VolumeMl, d.StrengthPct, d.CarbsPer100ml, nullString(d.Style), nullString(d.Brewery), d.Rating, d.Count, nil, nil, nil}
	}
	w := e.Workout
	return []any{nil, nil, nil, nil, nil, nil, nil, w.Activity, w.DurationMin, nullString(w.Annotation)}
}

func nullString(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}

func requireAffected(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}
