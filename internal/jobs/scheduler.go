package jobs

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"repurposer/internal/config"
	"repurposer/internal/metrics"
	"repurposer/internal/models"
	"repurposer/internal/tasks"
)

type TokenSummary interface {
	Summary() map[models.TokenState]int
}

// LiveScratch reports scratch directories still owned by running jobs.
type LiveScratch interface {
	LiveScratch() map[string]struct{}
}

type Scheduler struct {
	cron        *cron.Cron
	cfg         config.JobsConfig
	scratchRoot string
	tokens      TokenSummary
	live        LiveScratch
	now         func() time.Time
	log         zerolog.Logger
}

func NewScheduler(cfg config.JobsConfig, scratchRoot string, tokens TokenSummary, live LiveScratch, log zerolog.Logger) *Scheduler {
	if scratchRoot == "" {
		scratchRoot = os.TempDir()
	}
	return &Scheduler{
		cron:        cron.New(cron.WithSeconds()),
		cfg:         cfg,
		scratchRoot: scratchRoot,
		tokens:      tokens,
		live:        live,
		now:         time.Now,
		log:         log.With().Str("component", "scheduler").Logger(),
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.sweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc("0 * * * * *", s.RefreshGauges); err != nil { // every minute
		return err
	}

	s.RefreshGauges()
	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for running tasks to return.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) sweep() {
	removed, err := s.SweepScratch()
	if err != nil {
		s.log.Error().Err(err).Msg("scratch sweep failed")
		return
	}
	if removed > 0 {
		s.log.Info().Int("removed", removed).Msg("stale scratch directories removed")
	}
}

// SweepScratch deletes job scratch directories whose mtime is older than
// jobs.scratchmaxage. Directories of unfinished jobs are kept however old.
func (s *Scheduler) SweepScratch() (int, error) {
	entries, err := os.ReadDir(s.scratchRoot)
	if err != nil {
		return 0, err
	}
	var live map[string]struct{}
	if s.live != nil {
		live = s.live.LiveScratch()
	}

	cutoff := s.now().Add(-s.cfg.ScratchMaxAge)
	removed := 0
	for _, entry := range entries {
		if !entry.IsDir() || !strings.HasPrefix(entry.Name(), tasks.ScratchPrefix) {
			continue
		}
		if _, ok := live[entry.Name()]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.scratchRoot, entry.Name())
		if err := os.RemoveAll(path); err != nil {
			s.log.Warn().Err(err).Str("dir", path).Msg("remove scratch failed")
			continue
		}
		removed++
	}
	return removed, nil
}

func (s *Scheduler) RefreshGauges() {
	if s.tokens == nil {
		return
	}
	metrics.SetTokens(s.tokens.Summary())
}
