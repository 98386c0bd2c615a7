package tasks

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"repurposer/internal/access"
	"repurposer/internal/ids"
	"repurposer/internal/media/sniffer"
	"repurposer/internal/metrics"
	"repurposer/internal/repurpose"
)

type Options struct {
	ScratchRoot   string
	MaxVideoBytes int64
	MaxConcurrent int64
}

type Option func(*Processor)

func WithArchiver(a Archiver) Option {
	return func(p *Processor) { p.archiver = a }
}

func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// Processor runs one goroutine per accepted job. Every job releases its user
// slot and removes its scratch directory on every exit path.
type Processor struct {
	transport Transport
	engine    Engine
	gate      Gate
	auth      Authorizer
	archiver  Archiver
	sem       *semaphore.Weighted
	opts      Options
	log       zerolog.Logger
	now       func() time.Time

	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	closed bool
	live   map[string]struct{}
	wg     sync.WaitGroup
}

func NewProcessor(transport Transport, engine Engine, gate Gate, auth Authorizer, opts Options, log zerolog.Logger, options ...Option) *Processor {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = 16
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Processor{
		transport: transport,
		engine:    engine,
		gate:      gate,
		auth:      auth,
		sem:       semaphore.NewWeighted(opts.MaxConcurrent),
		opts:      opts,
		log:       log.With().Str("component", "processor").Logger(),
		now:       time.Now,
		ctx:       ctx,
		cancel:    cancel,
		live:      make(map[string]struct{}),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

// Submit admits req and starts its job in the background. It returns
// access.ErrNotAuthorized, access.ErrBusy or ErrFileTooLarge without starting
// anything.
func (p *Processor) Submit(req Request) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return "", ErrShuttingDown
	}

	if err := p.gate.Admit(req.UserID); err != nil {
		return "", err
	}
	if req.Kind == KindVideo && p.opts.MaxVideoBytes > 0 && req.Size > p.opts.MaxVideoBytes {
		p.gate.Release(req.UserID)
		return "", ErrFileTooLarge
	}

	j := &job{Request: req, ID: ids.New(), started: p.now()}
	p.wg.Add(1)
	metrics.JobStarted()
	go p.run(j)
	return j.ID, nil
}

// LiveScratch returns the base names of scratch directories owned by jobs
// that have not finished, hung ones included.
func (p *Processor) LiveScratch() map[string]struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]struct{}, len(p.live))
	for name := range p.live {
		out[name] = struct{}{}
	}
	return out
}

// Shutdown stops accepting jobs and waits for running ones. When ctx ends
// first the remaining jobs are cancelled.
func (p *Processor) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

func (p *Processor) run(j *job) {
	log := p.log.With().
		Str("job_id", j.ID).
		Int64("user_id", j.UserID).
		Int64("chat_id", j.ChatID).
		Str("kind", string(j.Kind)).
		Logger()

	var err error
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", errJobPanicked, r)
			metrics.Panic("job")
			log.Error().
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("job panicked")
			p.report(j, failureText(j.Kind, err))
		}
		p.finish(j, err, log)
	}()

	if acquireErr := p.sem.Acquire(p.ctx, 1); acquireErr != nil {
		err = &StageError{Stage: StageDownloading, Err: acquireErr}
		return
	}
	defer p.sem.Release(1)

	ref, notifyErr := p.transport.Notify(p.ctx, j.ChatID, j.ReplyTo, startedText(j.Kind))
	if notifyErr != nil {
		log.Warn().Err(notifyErr).Msg("status message failed")
	}
	j.status = ref

	err = p.execute(p.ctx, j, log)
	if err != nil {
		p.report(j, failureText(j.Kind, err))
	}
}

// finish is the single cleanup point for a job.
func (p *Processor) finish(j *job, err error, log zerolog.Logger) {
	if j.dir != "" {
		if rmErr := os.RemoveAll(j.dir); rmErr != nil {
			log.Warn().Err(rmErr).Str("dir", j.dir).Msg("scratch cleanup failed")
		}
		p.mu.Lock()
		delete(p.live, filepath.Base(j.dir))
		p.mu.Unlock()
	}
	p.gate.Release(j.UserID)
	metrics.JobFinished(string(j.Kind), outcome(err))
	p.wg.Done()

	elapsed := p.now().Sub(j.started)
	if err != nil {
		stage := StageFailed
		var se *StageError
		if errors.As(err, &se) {
			stage = se.Stage
		}
		log.Warn().Err(err).Str("stage", string(stage)).Dur("elapsed", elapsed).Msg("job failed")
		return
	}
	log.Info().Dur("elapsed", elapsed).Msg("job done")
}

func (p *Processor) execute(ctx context.Context, j *job, log zerolog.Logger) error {
	kind := string(j.Kind)

	// downloading
	start := p.now()
	in, err := p.download(ctx, j)
	if err != nil {
		return &StageError{Stage: StageDownloading, Err: err}
	}
	j.timings.download = p.now().Sub(start)
	metrics.ObserveStage(kind, string(StageDownloading), j.timings.download)
	log.Debug().Str("stage", string(StageDownloading)).Dur("took", j.timings.download).Send()

	// validating
	start = p.now()
	if err := p.validate(ctx, j, in); err != nil {
		return &StageError{Stage: StageValidating, Err: err}
	}
	metrics.ObserveStage(kind, string(StageValidating), p.now().Sub(start))
	p.update(j, processingText(j))

	// transforming
	start = p.now()
	out := filepath.Join(j.dir, "output"+j.Kind.extension())
	var res repurpose.Output
	if j.Kind == KindVideo {
		res, err = p.engine.RepurposeVideo(ctx, in, out)
	} else {
		res, err = p.engine.RepurposeImage(ctx, in, out)
	}
	if err != nil {
		return &StageError{Stage: StageTransforming, Err: err}
	}
	j.timings.process = p.now().Sub(start)
	metrics.ObserveStage(kind, string(StageTransforming), j.timings.process)
	log.Debug().
		Str("stage", string(StageTransforming)).
		Str("filename", res.Filename).
		Strs("steps", res.Steps).
		Dur("took", j.timings.process).
		Send()
	p.update(j, uploadingText(j))

	// uploading
	start = p.now()
	final := filepath.Join(j.dir, res.Filename)
	if err := os.Rename(res.Path, final); err != nil {
		return &StageError{Stage: StageUploading, Err: fmt.Errorf("rename output: %w", err)}
	}
	if err := p.transport.Deliver(ctx, j.ChatID, j.Kind, final, captionText(j.Kind)); err != nil {
		return &StageError{Stage: StageUploading, Err: err}
	}
	if p.archiver != nil {
		if err := p.archiver.Archive(ctx, j.ID, final, res.Filename); err != nil {
			log.Warn().Err(err).Msg("archive failed")
		}
	}
	j.timings.upload = p.now().Sub(start)
	metrics.ObserveStage(kind, string(StageUploading), j.timings.upload)

	j.timings.total = p.now().Sub(j.started)
	p.update(j, doneText(j))
	return nil
}

func (p *Processor) download(ctx context.Context, j *job) (string, error) {
	dir, err := os.MkdirTemp(p.opts.ScratchRoot, ScratchPrefix)
	if err != nil {
		return "", fmt.Errorf("scratch dir: %w", err)
	}
	j.dir = dir
	p.mu.Lock()
	p.live[filepath.Base(dir)] = struct{}{}
	p.mu.Unlock()

	in := filepath.Join(dir, "source"+j.Kind.extension())
	f, err := os.Create(in)
	if err != nil {
		return "", fmt.Errorf("create source: %w", err)
	}
	if err := p.transport.Download(ctx, j.FileID, f); err != nil {
		f.Close()
		return "", fmt.Errorf("download: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close source: %w", err)
	}
	return in, nil
}

// validate re-checks authorization, which may have been revoked since the
// job was admitted, and fails fast on the wrong content or an over-long video.
func (p *Processor) validate(ctx context.Context, j *job, in string) error {
	if !p.auth.StillAuthorized(j.UserID) {
		return access.ErrNotAuthorized
	}

	detected, err := sniffer.DetectFile(in)
	if err != nil {
		return fmt.Errorf("%w: %w", errKindMismatch, err)
	}
	if (j.Kind == KindVideo && !detected.IsVideo()) || (j.Kind == KindPhoto && !detected.IsImage()) {
		return fmt.Errorf("%w: got %s", errKindMismatch, detected.MIME)
	}

	if j.Kind == KindVideo {
		info, err := p.engine.CheckVideo(ctx, in)
		j.video = info
		if err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) update(j *job, text string) {
	if !j.status.valid() {
		return
	}
	if err := p.transport.Update(p.ctx, j.status, text); err != nil {
		p.log.Warn().Err(err).Str("job_id", j.ID).Msg("status update failed")
	}
}

// report shows a final failure message, editing the status message when one
// exists.
func (p *Processor) report(j *job, text string) {
	if j.status.valid() {
		p.update(j, text)
		return
	}
	if _, err := p.transport.Notify(p.ctx, j.ChatID, j.ReplyTo, text); err != nil {
		p.log.Warn().Err(err).Str("job_id", j.ID).Msg("failure notice failed")
	}
}
