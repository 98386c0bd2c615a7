package repurpose

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrDurationExceeded = errors.New("duration_exceeded")
	ErrProcessingFailed = errors.New("processing_failed")
	ErrUnsupportedMedia = errors.New("unsupported media")
)

// DurationError reports a video longer than the accepted limit.
type DurationError struct {
	Duration time.Duration
	Limit    time.Duration
}

func (e *DurationError) Error() string {
	return fmt.Sprintf("duration_exceeded: %.1fs > %.0fs", e.Duration.Seconds(), e.Limit.Seconds())
}

func (e *DurationError) Is(target error) bool {
	return target == ErrDurationExceeded
}
