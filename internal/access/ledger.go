package access

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"repurposer/internal/models"
)

const DefaultValidityDays = 30

// Ledger owns issued tokens and mirrors successful activations into a Gate.
type Ledger struct {
	mu          sync.Mutex
	tokens      map[string]models.TokenRecord
	store       Store
	gate        *Gate
	defaultDays int
	now         func() time.Time
	log         zerolog.Logger
}

type Option func(*Ledger)

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithDefaultDays(days int) Option {
	return func(l *Ledger) {
		if days > 0 {
			l.defaultDays = days
		}
	}
}

// NewLedger loads the persisted tokens and seeds the gate with every user
// holding an active, unexpired token. A missing or unreadable store yields an
// empty ledger.
func NewLedger(ctx context.Context, store Store, gate *Gate, log zerolog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		tokens:      map[string]models.TokenRecord{},
		store:       store,
		gate:        gate,
		defaultDays: DefaultValidityDays,
		now:         time.Now,
		log:         log.With().Str("component", "ledger").Logger(),
	}
	for _, opt := range opts {
		opt(l)
	}

	records, err := store.Load(ctx)
	if err != nil {
		l.log.Error().Err(err).Msg("load ledger failed, starting empty")
	} else {
		l.tokens = records
	}

	for _, userID := range l.AuthorizedUsers() {
		gate.Authorize(userID)
	}
	l.log.Info().Int("tokens", len(l.tokens)).Msg("ledger loaded")
	return l
}

// Issue creates a token bound to userID. days <= 0 selects the default period.
func (l *Ledger) Issue(ctx context.Context, userID string, days int) (models.AccessToken, error) {
	if days <= 0 {
		days = l.defaultDays
	}
	token, err := generateToken(TokenBytes)
	if err != nil {
		return models.AccessToken{}, err
	}

	now := l.now()
	expires := now.Add(time.Duration(days) * 24 * time.Hour)
	record := models.TokenRecord{
		UserID:  userID,
		Created: now.Format(models.TimeLayout),
		Expires: expires.Format(models.TimeLayout),
		Active:  true,
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.tokens[token] = record
	if err := l.store.Save(ctx, l.tokens); err != nil {
		delete(l.tokens, token)
		return models.AccessToken{}, fmt.Errorf("persist issued token: %w", err)
	}

	l.log.Info().Str("user_id", userID).Int("days", days).Msg("token issued")
	return models.AccessToken{
		Token:     token,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: expires,
		Active:    true,
		State:     models.TokenStateActive,
	}, nil
}

// Validate reports whether token is active, bound to userID and unexpired.
func (l *Ledger) Validate(token string, userID string) bool {
	l.mu.Lock()
	record, ok := l.tokens[token]
	l.mu.Unlock()
	if !ok || !record.Active || record.UserID != userID {
		return false
	}
	expires, err := record.ExpiresAt()
	if err != nil {
		return false
	}
	return l.now().Before(expires)
}

// Activate validates the token and, on success, authorizes the user.
func (l *Ledger) Activate(token string, userID int64) bool {
	if !l.Validate(token, strconv.FormatInt(userID, 10)) {
		return false
	}
	l.gate.Authorize(userID)
	l.log.Info().Int64("user_id", userID).Msg("user activated")
	return true
}

// StillAuthorized is the re-check run against a job already in flight: the
// user must be in the gate and still hold a usable token. The gate itself is
// left untouched.
func (l *Ledger) StillAuthorized(userID int64) bool {
	if !l.gate.IsAuthorized(userID) {
		return false
	}
	_, ok := l.ActiveFor(strconv.FormatInt(userID, 10))
	return ok
}

// Revoke deactivates a token in place. It reports whether the token existed.
func (l *Ledger) Revoke(ctx context.Context, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	record, ok := l.tokens[token]
	if !ok {
		return false, nil
	}
	previous := record
	record.Active = false
	l.tokens[token] = record
	if err := l.store.Save(ctx, l.tokens); err != nil {
		l.tokens[token] = previous
		return true, fmt.Errorf("persist revoked token: %w", err)
	}
	l.log.Info().Str("user_id", record.UserID).Msg("token revoked")
	return true, nil
}

// List returns every token ordered by creation time.
func (l *Ledger) List() []models.AccessToken {
	now := l.now()

	l.mu.Lock()
	out := make([]models.AccessToken, 0, len(l.tokens))
	for token, record := range l.tokens {
		out = append(out, decode(token, record, now))
	}
	l.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Token < out[j].Token
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// ActiveFor returns the earliest-created usable token for the user.
func (l *Ledger) ActiveFor(userID string) (models.AccessToken, bool) {
	for _, token := range l.List() {
		if token.UserID == userID && token.State == models.TokenStateActive {
			return token, true
		}
	}
	return models.AccessToken{}, false
}

// AuthorizedUsers derives the users that currently hold a usable token.
func (l *Ledger) AuthorizedUsers() []int64 {
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[int64]struct{})
	var users []int64
	for token, record := range l.tokens {
		if record.UserID == "" || record.State(now) != models.TokenStateActive {
			continue
		}
		id, err := strconv.ParseInt(record.UserID, 10, 64)
		if err != nil {
			l.log.Warn().Err(err).Str("token", token).Msg("token bound to non-numeric user")
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		users = append(users, id)
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	return users
}

// Summary counts tokens per state.
func (l *Ledger) Summary() map[models.TokenState]int {
	now := l.now()
	counts := map[models.TokenState]int{
		models.TokenStateActive:  0,
		models.TokenStateRevoked: 0,
		models.TokenStateExpired: 0,
		models.TokenStateDamaged: 0,
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	for _, record := range l.tokens {
		counts[record.State(now)]++
	}
	return counts
}

func decode(token string, record models.TokenRecord, now time.Time) models.AccessToken {
	out := models.AccessToken{
		Token:  token,
		UserID: record.UserID,
		Active: record.Active,
		State:  record.State(now),
	}
	if created, err := record.CreatedAt(); err == nil {
		out.CreatedAt = created
	}
	if expires, err := record.ExpiresAt(); err == nil {
		out.ExpiresAt = expires
	}
	return out
}
