package video

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"gopkg.in/vansante/go-ffprobe.v2"
)

var ErrNoVideoStream = errors.New("no video stream")

// Info is what the encoder needs to know about a source file.
type Info struct {
	Width    int
	Height   int
	FPS      float64
	Frames   int64
	Duration time.Duration
	HasAudio bool
}

// Seconds is the duration as a float, for status text.
func (i Info) Seconds() float64 {
	return i.Duration.Seconds()
}

type Prober interface {
	Probe(ctx context.Context, path string) (Info, error)
}

type FFProbe struct {
	timeout time.Duration
}

func NewFFProbe(binPath string, timeout time.Duration) *FFProbe {
	if binPath != "" {
		ffprobe.SetFFProbeBinPath(binPath)
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &FFProbe{timeout: timeout}
}

func (p *FFProbe) Probe(ctx context.Context, path string) (Info, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	data, err := ffprobe.ProbeURL(ctx, path)
	if err != nil {
		return Info{}, fmt.Errorf("ffprobe %s: %w", path, err)
	}
	return infoFrom(data)
}

func infoFrom(data *ffprobe.ProbeData) (Info, error) {
	stream := data.FirstVideoStream()
	if stream == nil {
		return Info{}, ErrNoVideoStream
	}

	info := Info{
		Width:    stream.Width,
		Height:   stream.Height,
		HasAudio: data.FirstAudioStream() != nil,
	}

	info.FPS = parseRate(stream.AvgFrameRate)
	if info.FPS <= 0 {
		info.FPS = parseRate(stream.RFrameRate)
	}
	if n, err := strconv.ParseInt(stream.NbFrames, 10, 64); err == nil {
		info.Frames = n
	}

	// Frame count over frame rate first; container durations are often
	// rounded or missing on phone recordings.
	var seconds float64
	switch {
	case info.Frames > 0 && info.FPS > 0:
		seconds = float64(info.Frames) / info.FPS
	case stream.Duration != "":
		seconds, _ = strconv.ParseFloat(stream.Duration, 64)
	}
	if seconds <= 0 && data.Format != nil {
		seconds = data.Format.DurationSeconds
	}
	info.Duration = time.Duration(seconds * float64(time.Second))

	if info.Frames == 0 && info.FPS > 0 && seconds > 0 {
		info.Frames = int64(math.Round(seconds * info.FPS))
	}
	return info, nil
}

// parseRate reads ffprobe's "num/den" notation.
func parseRate(rate string) float64 {
	num, den, ok := strings.Cut(rate, "/")
	if !ok {
		f, err := strconv.ParseFloat(rate, 64)
		if err != nil {
			return 0
		}
		return f
	}
	n, err1 := strconv.ParseFloat(num, 64)
	d, err2 := strconv.ParseFloat(den, 64)
	if err1 != nil || err2 != nil || d == 0 {
		return 0
	}
	return n / d
}
