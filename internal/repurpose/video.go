package repurpose

import (
	"context"
	"errors"
	"fmt"
	"os"

	"repurposer/internal/media/video"
)

// CheckVideo probes in and rejects it when it runs longer than the limit.
// The probe result is returned either way so callers can report it.
func (e *Engine) CheckVideo(ctx context.Context, in string) (video.Info, error) {
	info, err := e.prober.Probe(ctx, in)
	if err != nil {
		if errors.Is(err, video.ErrNoVideoStream) {
			return info, fmt.Errorf("%w: %w", ErrUnsupportedMedia, err)
		}
		return info, fmt.Errorf("%w: %w", ErrProcessingFailed, err)
	}
	if info.Duration > e.opts.MaxVideoDuration {
		return info, &DurationError{Duration: info.Duration, Limit: e.opts.MaxVideoDuration}
	}
	if info.Width < 2 || info.Height < 2 {
		return info, fmt.Errorf("%w: frame %dx%d", ErrUnsupportedMedia, info.Width, info.Height)
	}
	return info, nil
}

// RepurposeVideo re-encodes in to out through the planned filter chain and
// stamps a synthesized container metadata block. Videos over the duration
// limit are rejected before the transcoder runs.
func (e *Engine) RepurposeVideo(ctx context.Context, in, out string) (Output, error) {
	info, err := e.CheckVideo(ctx, in)
	if err != nil {
		return Output{}, err
	}

	p := e.planner.PlanVideo(info.Width, info.Height)
	args := video.EncodeArgs(in, out, p, info.HasAudio)

	if err := e.runner.Run(ctx, args); err != nil {
		removeQuietly(out)
		return Output{}, fmt.Errorf("%w: %w", ErrProcessingFailed, err)
	}

	st, err := os.Stat(out)
	if err != nil {
		return Output{}, fmt.Errorf("%w: missing output: %w", ErrProcessingFailed, err)
	}
	if st.Size() < e.opts.MinOutputBytes {
		removeQuietly(out)
		return Output{}, fmt.Errorf("%w: output %d bytes", ErrProcessingFailed, st.Size())
	}

	steps := []string{
		fmt.Sprintf("crop %dx%d", p.Crop.Dx(), p.Crop.Dy()),
		fmt.Sprintf("look %s", p.Look),
		fmt.Sprintf("speed %.4f", p.Speed),
	}
	if p.Noise > 0 {
		steps = append(steps, fmt.Sprintf("noise %d", p.Noise))
	}

	e.log.Debug().
		Str("filename", p.Filename).
		Strs("steps", steps).
		Float64("duration_s", info.Seconds()).
		Int64("bytes", st.Size()).
		Msg("video repurposed")

	return Output{Path: out, Filename: p.Filename, Size: st.Size(), Steps: steps}, nil
}
