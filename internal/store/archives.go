package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/saadjs/kcaldebt/internal/model"
)

const archiveColumns = `id, start_ms, end_ms, mode, total_balance, entries_json, created_ms, updated_ms`

// archivedEntry is the JSON snapshot form of a log entry.
type archivedEntry struct {
	ID          int64    `json:"id"`
	Kind        string   `json:"kind"`
	TimestampMs int64    `json:"ts_ms"`
	KCal        float64  `json:"kcal"`
	Drink       *drink   `json:"drink,omitempty"`
	Workout     *workout `json:"workout,omitempty"`
	CreatedMs   int64    `json:"created_ms"`
	UpdatedMs   int64    `json:"updated_ms"`
}

type drink struct {
	VolumeMl      float64 `json:"volume_ml"`
	StrengthPct   float64 `json:"strength_pct"`
	CarbsPer100ml float64 `json:"carbs_per_100ml,omitempty"`
	Style         string  `json:"style,omitempty"`
	Brewery       string  `json:"brewery,omitempty"`
	Rating        int     `json:"rating,omitempty"`
	Count         int     `json:"count"`
}

type workout struct {
	Activity    string  `json:"activity"`
	DurationMin float64 `json:"duration_min"`
	Annotation  string  `json:"annotation,omitempty"`
}

func (s *SQLStore) ListArchives(ctx context.Context) ([]model.PeriodArchive, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+archiveColumns+` FROM period_archives ORDER BY start_ms ASC`)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	out := make([]model.PeriodArchive, 0)
	for rows.Next() {
		a, err := s.scanArchive(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archives: %w", err)
	}
	return out, nil
}

func (s *SQLStore) GetArchive(ctx context.Context, id string) (model.PeriodArchive, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+archiveColumns+` FROM period_archives WHERE id = ?`, id)
	a, err := s.scanArchive(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.PeriodArchive{}, fmt.Errorf("archive %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.PeriodArchive{}, err
	}
	return a, nil
}

// InsertArchive refuses a duplicate start or an overlapping range with ErrInconsistentArchive.
func (s *SQLStore) InsertArchive(ctx context.Context, a model.PeriodArchive) error {
	if strings.TrimSpace(a.ID) == "" {
		return fmt.Errorf("archive id is required")
	}
	var conflicts int
	if err := s.q.QueryRowContext(ctx, `
SELECT COUNT(1) FROM period_archives WHERE start_ms = ? OR (start_ms <= ? AND end_ms >= ?)
`, toMillis(a.StartDate), toMillis(a.EndDate), toMillis(a.StartDate)).Scan(&conflicts); err != nil {
		return fmt.Errorf("check archive overlap: %w", err)
	}
	if conflicts > 0 {
		return fmt.Errorf("archive %s..%s: %w", a.StartDate.Format("2006-01-02"), a.EndDate.Format("2006-01-02"), ErrInconsistentArchive)
	}

	entries, err := encodeEntries(a.Entries)
	if err != nil {
		return err
	}
	now := nowMillis()
	if _, err := s.q.ExecContext(ctx, `
INSERT INTO period_archives(id, start_ms, end_ms, mode, total_balance, entries_json, created_ms, updated_ms)
VALUES(?, ?, ?, ?, ?, ?, ?, ?)
`, a.ID, toMillis(a.StartDate), toMillis(a.EndDate), string(a.Mode), a.TotalBalance, entries, now, now); err != nil {
		return fmt.Errorf("insert archive: %w", err)
	}
	return nil
}

func (s *SQLStore) UpdateArchive(ctx context.Context, a model.PeriodArchive) error {
	entries, err := encodeEntries(a.Entries)
	if err != nil {
		return err
	}
	res, err := s.q.ExecContext(ctx, `
UPDATE period_archives SET total_balance = ?, entries_json = ?, updated_ms = ? WHERE id = ?
`, a.TotalBalance, entries, nowMillis(), a.ID)
	if err != nil {
		return fmt.Errorf("update archive %s: %w", a.ID, err)
	}
	return requireAffected(res, "archive "+a.ID)
}

func (s *SQLStore) DeleteAllArchives(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM period_archives`); err != nil {
		return fmt.Errorf("delete archives: %w", err)
	}
	return nil
}

func (s *SQLStore) scanArchive(row rowScanner) (model.PeriodArchive, error) {
	var (
		a                                  model.PeriodArchive
		mode, entries                      string
		startMs, endMs, createdMs, updated int64
	)
	if err := row.Scan(&a.ID, &startMs, &endMs, &mode, &a.TotalBalance, &entries, &createdMs, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.PeriodArchive{}, err
		}
		return model.PeriodArchive{}, fmt.Errorf("scan archive: %w", err)
	}
	a.StartDate = s.fromMillis(startMs)
	a.EndDate = s.fromMillis(endMs)
	a.Mode = model.PeriodMode(mode)
	a.CreatedAt = s.fromMillis(createdMs)
	a.UpdatedAt = s.fromMillis(updated)

	var snapshot []archivedEntry
	if err := json.Unmarshal([]byte(entries), &snapshot); err != nil {
		return model.PeriodArchive{}, fmt.Errorf("decode archive %s entries: %w", a.ID, err)
	}
	a.Entries = make([]model.LogEntry, 0, len(snapshot))
	for _, item := range snapshot {
		a.Entries = append(a.Entries, s.fromArchived(item))
	}
	return a, nil
}

func encodeEntries(entries []model.LogEntry) (string, error) {
	snapshot := make([]archivedEntry, 0, len(entries))
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return "", fmt.Errorf("archive entry %d: %w", e.ID, err)
		}
		snapshot = append(snapshot, toArchived(e))
	}
	b, err := json.Marshal(snapshot)
	if err != nil {
		return "", fmt.Errorf("encode archive entries: %w", err)
	}
	return string(b), nil
}

func toArchived(e model.LogEntry) archivedEntry {
	out := archivedEntry{
		ID:          e.ID,
		Kind:        string(e.Kind()),
		TimestampMs: toMillis(e.Timestamp),
		KCal:        e.KCal,
		CreatedMs:   toMillis(e.CreatedAt),
		UpdatedMs:   toMillis(e.UpdatedAt),
	}
	if d := e.Drink; d != nil {
		out.Drink = &drink{d.VolumeMl, d.StrengthPct, d.CarbsPer100ml, d.Style, d.Brewery, d.Rating, d.Count}
	}
	if w := e.Workout; w != nil {
		out.Workout = &workout{w.Activity, w.DurationMin, w.Annotation}
	}
	return out
}

func (s *SQLStore) fromArchived(a archivedEntry) model.LogEntry {
	e := model.LogEntry{
		ID:        a.ID,
		Timestamp: s.fromMillis(a.TimestampMs),
		KCal:      a.KCal,
		CreatedAt: s.fromMillis(a.CreatedMs),
		UpdatedAt: s.fromMillis(a.UpdatedMs),
	}
	if d := a.Drink; d != nil {
		e.Drink = &model.Drink{VolumeMl: d.VolumeMl, StrengthPct: d.StrengthPct, CarbsPer100ml: d.CarbsPer100ml, Style: d.Style, Brewery: d.Brewery, Rating: d.Rating, Count: d.Count}
	}
	if w := a.Workout; w != nil {
		e.Workout = &model.Workout{Activity: w.Activity, DurationMin: w.DurationMin, Annotation: w.Annotation}
	}
	return e
}
