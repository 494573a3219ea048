package service

import (
	"errors"
	"fmt"

	"github.com/saadjs/kcaldebt/internal/store"
)

var (
	// ErrInvalidInput is returned before any write when a request is malformed.
	ErrInvalidInput = errors.New("invalid input")
	ErrStorage      = errors.New("storage failure")
	// ErrRecalculation wraps a storage failure inside the recalculation cascade.
	// The mutation that triggered it has been rolled back.
	ErrRecalculation = errors.New("history recalculation failed")
	ErrNotFound      = store.ErrNotFound
)

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}

// storageErr tags err as a storage failure unless it is already classified.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStorage) || errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound) || errors.Is(err, ErrRecalculation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrStorage, err)
}

func recalcErr(err error) error {
	if err == nil || errors.Is(err, ErrRecalculation) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrRecalculation, storageErr(err))
}
