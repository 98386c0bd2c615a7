package video

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"repurposer/internal/media/plan"
)

const stderrTail = 2048

// EncodeArgs builds the full ffmpeg argument list for one re-encode.
func EncodeArgs(in, out string, p plan.VideoPlan, hasAudio bool) []string {
	args := []string{
		"-hide_banner", "-loglevel", "error", "-y",
		"-i", in,
		"-map_metadata", "-1",
		"-vf", VideoFilters(p),
	}
	if hasAudio {
		args = append(args, "-af", AudioFilters(p), "-c:a", "aac", "-b:a", "96k")
	} else {
		args = append(args, "-an")
	}
	args = append(args,
		"-c:v", "libx264",
		"-preset", "veryfast",
		"-profile:v", "high",
		"-pix_fmt", "yuv420p",
		"-crf", "21",
		"-maxrate", "5M",
		"-bufsize", "10M",
		"-movflags", "+faststart+use_metadata_tags",
	)
	args = append(args, ContainerFor(p).Args()...)
	return append(args, out)
}

type Runner interface {
	Run(ctx context.Context, args []string) error
}

// FFmpeg runs the transcoder as a subprocess.
type FFmpeg struct {
	bin string
	log zerolog.Logger
}

func NewFFmpeg(bin string, log zerolog.Logger) *FFmpeg {
	if bin == "" {
		bin = "ffmpeg"
	}
	return &FFmpeg{bin: bin, log: log.With().Str("component", "ffmpeg").Logger()}
}

func (f *FFmpeg) Run(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, f.bin, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	f.log.Debug().Strs("args", args).Msg("running transcoder")
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("ffmpeg: %w: %s", err, tail(stderr.String()))
	}
	return nil
}

// LookPath verifies the configured binaries are installed.
func LookPath(bins ...string) error {
	for _, bin := range bins {
		if bin == "" {
			continue
		}
		if _, err := exec.LookPath(bin); err != nil {
			return fmt.Errorf("%s not found: %w", bin, err)
		}
	}
	return nil
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > stderrTail {
		return s[len(s)-stderrTail:]
	}
	return s
}
