package program

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRecordings means there is nothing to generate from.
	ErrNoRecordings = errors.New("no recordings to process")
	// ErrGenerationInProgress means another generation holds the lock for
	// this key. Recoverable by caller retry, not a pipeline failure.
	ErrGenerationInProgress = errors.New("generation already in progress")
)

// FetchError reports a required, non-substitutable asset that could not be
// retrieved.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch failed for %s: status %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch failed for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// MixError reports an external mixing tool failure with its diagnostic
// output attached.
type MixError struct {
	Op     string
	Output string
	Err    error
}

func (e *MixError) Error() string {
	return fmt.Sprintf("mixing failed (%s): %v", e.Op, e.Err)
}

func (e *MixError) Unwrap() error { return e.Err }

// PublishError reports a failed upload of the final track. A generation
// without a retrievable output is useless, so this is fatal.
type PublishError struct {
	Key string
	Err error
}

func (e *PublishError) Error() string {
	return fmt.Sprintf("publish failed for %s: %v", e.Key, e.Err)
}

func (e *PublishError) Unwrap() error { return e.Err }
