package jobs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repurposer/internal/config"
	"repurposer/internal/models"
)

type summaryFunc func() map[models.TokenState]int

func (f summaryFunc) Summary() map[models.TokenState]int { return f() }

type liveSet map[string]struct{}

func (l liveSet) LiveScratch() map[string]struct{} { return l }

func mkdirAged(t *testing.T, root, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(root, name)
	require.NoError(t, os.MkdirAll(path, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(path, "source.mp4"), []byte("x"), 0o600))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
	return path
}

func TestSweepScratch(t *testing.T) {
	root := t.TempDir()
	stale := mkdirAged(t, root, "repurposer_111", 7*time.Hour)
	fresh := mkdirAged(t, root, "repurposer_222", time.Minute)
	foreign := mkdirAged(t, root, "other_333", 30*time.Hour)
	plain := filepath.Join(root, "repurposer_file")
	require.NoError(t, os.WriteFile(plain, []byte("x"), 0o600))
	old := time.Now().Add(-48 * time.Hour)
	require.NoError(t, os.Chtimes(plain, old, old))

	s := NewScheduler(config.JobsConfig{ScratchMaxAge: 6 * time.Hour, SweepSchedule: "0 */15 * * * *"}, root, nil, nil, zerolog.Nop())
	removed, err := s.SweepScratch()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
	assert.DirExists(t, foreign)
	assert.FileExists(t, plain)
}

func TestSweepScratch_KeepsUnfinishedJobs(t *testing.T) {
	root := t.TempDir()
	hung := mkdirAged(t, root, "repurposer_444", 12*time.Hour)
	stale := mkdirAged(t, root, "repurposer_555", 12*time.Hour)

	live := liveSet{"repurposer_444": {}}
	s := NewScheduler(config.JobsConfig{ScratchMaxAge: 6 * time.Hour}, root, nil, live, zerolog.Nop())
	removed, err := s.SweepScratch()
	require.NoError(t, err)
	assert.Equal(t, 1, removed)

	assert.DirExists(t, hung)
	assert.NoDirExists(t, stale)
}

func TestSweepScratch_MissingRoot(t *testing.T) {
	s := NewScheduler(config.JobsConfig{ScratchMaxAge: time.Hour}, filepath.Join(t.TempDir(), "gone"), nil, nil, zerolog.Nop())
	_, err := s.SweepScratch()
	assert.Error(t, err)
}

func TestStartStop(t *testing.T) {
	calls := 0
	tokens := summaryFunc(func() map[models.TokenState]int {
		calls++
		return map[models.TokenState]int{models.TokenStateActive: 2}
	})
	s := NewScheduler(config.JobsConfig{ScratchMaxAge: time.Hour, SweepSchedule: "0 */15 * * * *"}, t.TempDir(), tokens, nil, zerolog.Nop())
	require.NoError(t, s.Start())
	s.Stop()
	assert.GreaterOrEqual(t, calls, 1, "gauges refreshed at start")
}

func TestStart_BadSchedule(t *testing.T) {
	s := NewScheduler(config.JobsConfig{SweepSchedule: "every now and then"}, t.TempDir(), nil, nil, zerolog.Nop())
	assert.Error(t, s.Start())
}
