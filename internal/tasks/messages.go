package tasks

import (
	"errors"
	"fmt"

	"repurposer/internal/access"
	"repurposer/internal/repurpose"
)

const (
	accessDeniedText = "🔒 *Access Denied*\n\nYour license is no longer valid."

	unexpectedErrorText = "❌ *Processing Error*\n\n" +
		"An unexpected error occurred.\n" +
		"Please try again or contact support if the issue persists."
)

func noun(kind Kind) string {
	if kind == KindVideo {
		return "video"
	}
	return "image"
}

func article(kind Kind) string {
	if kind == KindVideo {
		return "a video"
	}
	return "an image"
}

func startedText(kind Kind) string {
	return fmt.Sprintf("⏳ *Processing initiated...*\n• Downloading %s...", noun(kind))
}

func processingText(j *job) string {
	if j.Kind == KindVideo {
		return fmt.Sprintf("⏳ *Processing...*\n"+
			"• Video download complete (%.1fs)\n"+
			"• Video duration: %.1fs\n"+
			"• Optimizing with premium settings...",
			j.timings.download.Seconds(), j.video.Seconds())
	}
	return fmt.Sprintf("⏳ *Processing...*\n"+
		"• Image download complete (%.1fs)\n"+
		"• Applying modifications...",
		j.timings.download.Seconds())
}

func uploadingText(j *job) string {
	return fmt.Sprintf("✅ *Processing complete!*\n"+
		"• Processing time: %.1fs\n"+
		"• Uploading optimized %s...",
		j.timings.process.Seconds(), noun(j.Kind))
}

func captionText(kind Kind) string {
	if kind == KindVideo {
		return "✅ *Video optimized successfully*\n\nYour content is ready for multi-account posting."
	}
	return "✅ *Image optimized successfully*\n\nYour content is ready for multi-account posting."
}

func doneText(j *job) string {
	t := j.timings
	return fmt.Sprintf("✅ *Process complete*\n\n"+
		"• Total time: %.1fs\n"+
		"• Download: %.1fs\n"+
		"• Processing: %.1fs\n"+
		"• Upload: %.1fs\n\n"+
		"Your optimized %s is ready to use.",
		t.total.Seconds(), t.download.Seconds(), t.process.Seconds(), t.upload.Seconds(), noun(j.Kind))
}

// failureText maps a job error to what the user is told.
func failureText(kind Kind, err error) string {
	var de *repurpose.DurationError
	switch {
	case errors.Is(err, access.ErrNotAuthorized):
		return accessDeniedText
	case errors.As(err, &de):
		return fmt.Sprintf("⚠️ *Video duration exceeds the %.0f-second limit*\n\n"+
			"Your video is %.1f seconds long.\n"+
			"Please trim your video to %.0f seconds or less and try again.",
			de.Limit.Seconds(), de.Duration.Seconds(), de.Limit.Seconds())
	case errors.Is(err, repurpose.ErrDurationExceeded):
		return "⚠️ *Video duration exceeds the limit*\n\nPlease trim your video and try again."
	case errors.Is(err, repurpose.ErrUnsupportedMedia), errors.Is(err, errKindMismatch):
		return fmt.Sprintf("❌ *Processing Error*\n\n"+
			"This file could not be read as %s.\n"+
			"Please send a standard photo or video file.", article(kind))
	case errors.Is(err, repurpose.ErrProcessingFailed):
		return fmt.Sprintf("❌ *Processing Error*\n\n"+
			"There was an issue processing your %s.\n"+
			"Error: `%s`\n\n"+
			"Please try again or contact support.", noun(kind), repurpose.ErrProcessingFailed)
	default:
		return unexpectedErrorText
	}
}

// outcome is the metrics label for a finished job.
func outcome(err error) string {
	switch {
	case err == nil:
		return "done"
	case errors.Is(err, access.ErrNotAuthorized):
		return "denied"
	case errors.Is(err, repurpose.ErrDurationExceeded):
		return "too_long"
	case errors.Is(err, repurpose.ErrUnsupportedMedia), errors.Is(err, errKindMismatch):
		return "unsupported"
	case errors.Is(err, errJobPanicked):
		return "panic"
	default:
		return "failed"
	}
}
