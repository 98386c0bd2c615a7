// Package repurpose turns one source image or video into a perceptually
// identical file with new bytes, a new name and a synthesized device identity.
//
// A failed call never leaves its output path behind.
package repurpose

import (
	"os"
	"time"

	"github.com/rs/zerolog"

	"repurposer/internal/media/plan"
	"repurposer/internal/media/video"
)

// Output describes a successful transform.
type Output struct {
	Path     string
	Filename string
	Size     int64
	Steps    []string
}

type Options struct {
	MaxVideoDuration time.Duration
	MinOutputBytes   int64
	JPEGQuality      int
}

func (o Options) withDefaults() Options {
	if o.MaxVideoDuration <= 0 {
		o.MaxVideoDuration = 60 * time.Second
	}
	if o.MinOutputBytes <= 0 {
		o.MinOutputBytes = 1000
	}
	if o.JPEGQuality <= 0 {
		o.JPEGQuality = 95
	}
	return o
}

type Engine struct {
	planner *plan.Planner
	prober  video.Prober
	runner  video.Runner
	opts    Options
	log     zerolog.Logger
}

func NewEngine(planner *plan.Planner, prober video.Prober, runner video.Runner, opts Options, log zerolog.Logger) *Engine {
	return &Engine{
		planner: planner,
		prober:  prober,
		runner:  runner,
		opts:    opts.withDefaults(),
		log:     log.With().Str("component", "repurpose").Logger(),
	}
}

func removeQuietly(path string) {
	_ = os.Remove(path)
}
