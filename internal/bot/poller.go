package bot

import (
	"context"
	"runtime/debug"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"repurposer/internal/metrics"
)

type UpdateSource interface {
	GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error)
}

type Handler interface {
	Handle(ctx context.Context, update tgbotapi.Update)
}

// Poller long-polls for updates. A failed poll is logged and retried after the
// backoff; it never ends the loop.
type Poller struct {
	source  UpdateSource
	handler Handler
	timeout time.Duration
	backoff time.Duration
	log     zerolog.Logger
}

func NewPoller(source UpdateSource, handler Handler, pollTimeout, backoff time.Duration, log zerolog.Logger) *Poller {
	if backoff <= 0 {
		backoff = 10 * time.Second
	}
	return &Poller{
		source:  source,
		handler: handler,
		timeout: pollTimeout,
		backoff: backoff,
		log:     log.With().Str("component", "poller").Logger(),
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = int(p.timeout.Seconds())

	p.log.Info().Dur("poll_timeout", p.timeout).Msg("polling started")
	for {
		if ctx.Err() != nil {
			p.log.Info().Msg("polling stopped")
			return
		}

		updates, err := p.source.GetUpdates(cfg)
		if err != nil {
			p.log.Error().Err(err).Dur("backoff", p.backoff).Msg("poll failed, retrying")
			select {
			case <-ctx.Done():
			case <-time.After(p.backoff):
			}
			continue
		}

		for _, update := range updates {
			if update.UpdateID >= cfg.Offset {
				cfg.Offset = update.UpdateID + 1
			}
			p.dispatch(ctx, update)
		}
	}
}

func (p *Poller) dispatch(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			metrics.Panic("update")
			p.log.Error().
				Int("update_id", update.UpdateID).
				Interface("panic", r).
				Bytes("stack", debug.Stack()).
				Msg("update handler panicked")
		}
	}()
	p.handler.Handle(ctx, update)
}
