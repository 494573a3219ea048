package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/saadjs/kcaldebt/internal/model"
)

const (
	StatePeriodMode  = "period_mode"
	StatePeriodStart = "period_start_ms"
	StatePeriodEnd   = "period_end_ms"
	StatePeriodLabel = "period_label"
)

func (s *SQLStore) SetState(ctx context.Context, key, value string) error {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return fmt.Errorf("state key is required")
	}
	_, err := s.q.ExecContext(ctx, `
INSERT INTO app_state(key, value, updated_at)
VALUES(?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at
`, key, strings.TrimSpace(value))
	if err != nil {
		return fmt.Errorf("set state %q: %w", key, err)
	}
	return nil
}

func (s *SQLStore) GetState(ctx context.Context, key string) (string, bool, error) {
	key = strings.TrimSpace(strings.ToLower(key))
	if key == "" {
		return "", false, fmt.Errorf("state key is required")
	}
	var value string
	err := s.q.QueryRowContext(ctx, `SELECT value FROM app_state WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get state %q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) ListState(ctx context.Context) (map[string]string, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT key, value FROM app_state ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("list state: %w", err)
	}
	defer rows.Close()
	out := map[string]string{}
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("scan state: %w", err)
		}
		out[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate state: %w", err)
	}
	return out, nil
}

// LoadPeriodState reads the persisted period state. ok is false on first run.
func LoadPeriodState(ctx context.Context, s Store, loc *time.Location) (model.PeriodState, bool, error) {
	values, err := s.ListState(ctx)
	if err != nil {
		return model.PeriodState{}, false, err
	}
	rawMode, ok := values[StatePeriodMode]
	if !ok {
		return model.PeriodState{}, false, nil
	}
	mode, err := model.ParsePeriodMode(rawMode)
	if err != nil {
		return model.PeriodState{}, false, fmt.Errorf("stored period state: %w", err)
	}
	start, err := parseMillis(values[StatePeriodStart], loc)
	if err != nil {
		return model.PeriodState{}, false, fmt.Errorf("stored period start: %w", err)
	}
	state := model.PeriodState{Mode: mode, PeriodStart: start, Label: values[StatePeriodLabel]}
	if raw := values[StatePeriodEnd]; raw != "" {
		end, err := parseMillis(raw, loc)
		if err != nil {
			return model.PeriodState{}, false, fmt.Errorf("stored period end: %w", err)
		}
		state.PeriodEnd = &end
	}
	return state, true, nil
}

// SavePeriodState writes every field; the end and label are cleared outside custom mode.
func SavePeriodState(ctx context.Context, s Store, state model.PeriodState) error {
	end, label := "", ""
	if state.Mode == model.PeriodCustom {
		if state.PeriodEnd != nil {
			end = strconv.FormatInt(state.PeriodEnd.UnixMilli(), 10)
		}
		label = state.Label
	}
	for _, kv := range [][2]string{
		{StatePeriodMode, string(state.Mode)},
		{StatePeriodStart, strconv.FormatInt(state.PeriodStart.UnixMilli(), 10)},
		{StatePeriodEnd, end},
		{StatePeriodLabel, label},
	} {
		if err := s.SetState(ctx, kv[0], kv[1]); err != nil {
			return err
		}
	}
	return nil
}

func parseMillis(raw string, loc *time.Location) (time.Time, error) {
	ms, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid milliseconds %q", raw)
	}
	if loc == nil {
		loc = time.Local
	}
	return time.UnixMilli(ms).In(loc), nil
}
