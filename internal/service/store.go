package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/academy-reconcile-api/internal/observability"
)

// ErrStoreUnavailable matches every failed or timed out store read. An empty
// result is never returned in its place.
var ErrStoreUnavailable = errors.New("store unavailable")

// FetchError reports which store read failed.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrStoreUnavailable) hold for any fetch failure.
func (e *FetchError) Is(target error) bool {
	return target == ErrStoreUnavailable
}

const defaultStoreTimeout = 5 * time.Second

// fetch runs one store call under its own timeout. Missing rows are returned
// as is so callers can map them to their own not-found errors.
func fetch(ctx context.Context, timeout time.Duration, source string, call func(ctx context.Context) error) error {
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := call(callCtx); err != nil {
		if passThrough(err) {
			return err
		}
		observability.StoreFetchFailures().WithLabelValues(source).Inc()
		return &FetchError{Source: source, Err: err}
	}
	return nil
}

// passThrough reports errors that describe the request rather than the store.
func passThrough(err error) bool {
	var fetchErr *FetchError
	switch {
	case errors.As(err, &fetchErr):
		return true
	case errors.Is(err, gorm.ErrRecordNotFound),
		errors.Is(err, ErrRelieveExceedsExcess),
		errors.Is(err, ErrStudentNotAssigned),
		errors.Is(err, ErrAttendanceDuplicate),
		errors.Is(err, ErrLockTimeout):
		return true
	}
	return false
}
