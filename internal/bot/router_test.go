package bot

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repurposer/internal/access"
	"repurposer/internal/config"
	"repurposer/internal/models"
	"repurposer/internal/tasks"
)

const (
	adminID  = int64(1)
	memberID = int64(42)
	guestID  = int64(77)
)

var fixedNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

type fakeSender struct {
	replies []Reply
}

func (f *fakeSender) Reply(_ context.Context, r Reply) error {
	f.replies = append(f.replies, r)
	return nil
}

func (f *fakeSender) last(t *testing.T) Reply {
	t.Helper()
	require.NotEmpty(t, f.replies)
	return f.replies[len(f.replies)-1]
}

type fakeLedger struct {
	tokens    []models.AccessToken
	valid     map[string]int64
	issued    []string
	issueDays []int
	issueErr  error
	revoked   []string
	members   map[int64]bool
}

func (f *fakeLedger) Issue(_ context.Context, userID string, days int) (models.AccessToken, error) {
	if f.issueErr != nil {
		return models.AccessToken{}, f.issueErr
	}
	f.issued = append(f.issued, userID)
	f.issueDays = append(f.issueDays, days)
	if days <= 0 {
		days = 30
	}
	return models.AccessToken{
		Token:     "abcdef0123456789",
		UserID:    userID,
		CreatedAt: fixedNow,
		ExpiresAt: fixedNow.Add(time.Duration(days) * 24 * time.Hour),
		Active:    true,
		State:     models.TokenStateActive,
	}, nil
}

func (f *fakeLedger) Activate(token string, userID int64) bool {
	if owner, ok := f.valid[token]; ok && owner == userID {
		f.members[userID] = true
		return true
	}
	return false
}

func (f *fakeLedger) Revoke(_ context.Context, token string) (bool, error) {
	for _, t := range f.tokens {
		if t.Token == token && t.Active {
			f.revoked = append(f.revoked, token)
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeLedger) List() []models.AccessToken { return f.tokens }

func (f *fakeLedger) ActiveFor(userID string) (models.AccessToken, bool) {
	for _, t := range f.tokens {
		if t.UserID == userID && t.State == models.TokenStateActive {
			return t, true
		}
	}
	return models.AccessToken{}, false
}

func (f *fakeLedger) IsAuthorized(userID int64) bool { return f.members[userID] }

type fakeSubmitter struct {
	requests []tasks.Request
	err      error
}

func (f *fakeSubmitter) Submit(req tasks.Request) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.requests = append(f.requests, req)
	return "job-1", nil
}

type harness struct {
	router *Router
	sender *fakeSender
	ledger *fakeLedger
	jobs   *fakeSubmitter
}

func newHarness() *harness {
	ledger := &fakeLedger{
		tokens: []models.AccessToken{{
			Token:     "feedfacecafebeef",
			UserID:    "42",
			CreatedAt: fixedNow.Add(-24 * time.Hour),
			ExpiresAt: fixedNow.Add(10*24*time.Hour + time.Hour),
			Active:    true,
			State:     models.TokenStateActive,
		}},
		valid:   map[string]int64{"0011223344556677": guestID},
		members: map[int64]bool{memberID: true},
	}
	sender := &fakeSender{}
	jobs := &fakeSubmitter{}
	router := NewRouter(sender, ledger, ledger, jobs, config.TelegramConfig{
		AdminID:        adminID,
		SupportContact: "@helpdesk",
	}, zerolog.Nop())
	router.now = func() time.Time { return fixedNow }
	return &harness{router: router, sender: sender, ledger: ledger, jobs: jobs}
}

func message(from int64, text string) tgbotapi.Update {
	msg := &tgbotapi.Message{
		MessageID: 900,
		From:      &tgbotapi.User{ID: from},
		Chat:      &tgbotapi.Chat{ID: from + 1000},
		Text:      text,
	}
	if strings.HasPrefix(text, "/") {
		name := strings.Fields(text)[0]
		msg.Entities = []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(name)}}
	}
	return tgbotapi.Update{UpdateID: 1, Message: msg}
}

func (h *harness) handle(u tgbotapi.Update) {
	h.router.Handle(context.Background(), u)
}

func TestStart(t *testing.T) {
	h := newHarness()

	h.handle(message(memberID, "/start"))
	reply := h.sender.last(t)
	assert.Equal(t, MemberKeyboard, reply.Keyboard)
	assert.Equal(t, memberID+1000, reply.ChatID)
	assert.Contains(t, reply.Text, "Send me any video")

	h.handle(message(guestID, "/start"))
	reply = h.sender.last(t)
	assert.Equal(t, GuestKeyboard, reply.Keyboard)
	assert.Contains(t, reply.Text, "`77`")
	assert.Contains(t, reply.Text, "@helpdesk")
}

func TestHelp(t *testing.T) {
	h := newHarness()

	h.handle(message(memberID, "/help"))
	assert.Contains(t, h.sender.last(t).Text, "/status - Check your license status")

	h.handle(message(guestID, "/help"))
	assert.Contains(t, h.sender.last(t).Text, "/activate [token] - Activate your license")
}

func TestStatus(t *testing.T) {
	h := newHarness()

	h.handle(message(memberID, "/status"))
	text := h.sender.last(t).Text
	assert.Contains(t, text, "License Status: Active")
	assert.Contains(t, text, "`feedfacecafebeef`")
	assert.Contains(t, text, "Expires: 2026-05-20 10:30")
	assert.Contains(t, text, "Days remaining: 10")

	h.handle(message(guestID, "/status"))
	assert.Contains(t, h.sender.last(t).Text, "No License")

	h.ledger.members[99] = true
	h.handle(message(99, "/status"))
	assert.Contains(t, h.sender.last(t).Text, "Unusual")
}

func TestActivate(t *testing.T) {
	h := newHarness()

	h.handle(message(guestID, "/activate"))
	assert.Equal(t, activateUsageText, h.sender.last(t).Text)

	h.handle(message(guestID, "/activate ffffffffffffffff"))
	assert.Contains(t, h.sender.last(t).Text, "Invalid or expired token")
	assert.False(t, h.ledger.members[guestID])

	h.handle(message(guestID, "/activate 0011223344556677"))
	reply := h.sender.last(t)
	assert.Contains(t, reply.Text, "License activated successfully")
	assert.Equal(t, MemberKeyboard, reply.Keyboard)
	assert.True(t, h.ledger.members[guestID])
}

func TestCreateToken(t *testing.T) {
	h := newHarness()

	h.handle(message(adminID, "/createtoken"))
	assert.Equal(t, createUsageText, h.sender.last(t).Text)

	h.handle(message(adminID, "/createtoken someone"))
	assert.Equal(t, createUsageText, h.sender.last(t).Text)

	h.handle(message(adminID, "/createtoken 555 7"))
	reply := h.sender.last(t)
	assert.Equal(t, 900, reply.ReplyTo)
	assert.Contains(t, reply.Text, "Token created successfully")
	assert.Contains(t, reply.Text, "User ID: `555`")
	assert.Contains(t, reply.Text, "Valid for: 7 days")
	assert.Contains(t, reply.Text, "`/activate abcdef0123456789`")

	h.handle(message(adminID, "/createtoken 556 soon"))
	assert.Contains(t, h.sender.last(t).Text, "Valid for: 30 days")
	assert.Equal(t, []int{7, 0}, h.ledger.issueDays)

	h.ledger.issueErr = errors.New("disk full")
	h.handle(message(adminID, "/createtoken 557"))
	assert.Equal(t, "❌ Error creating token: disk full", h.sender.last(t).Text)
}

func TestAdminCommands_NonAdminFallsThrough(t *testing.T) {
	h := newHarness()

	h.handle(message(memberID, "/createtoken 555 7"))
	assert.Equal(t, sendMediaText, h.sender.last(t).Text)
	assert.Empty(t, h.ledger.issued)

	h.handle(message(guestID, "/listtokens"))
	assert.Contains(t, h.sender.last(t).Text, "Access Required")
}

func TestRevokeToken(t *testing.T) {
	h := newHarness()

	h.handle(message(adminID, "/revoketoken"))
	assert.Equal(t, revokeUsageText, h.sender.last(t).Text)

	h.handle(message(adminID, "/revoketoken feedfacecafebeef"))
	assert.Equal(t, "✅ Token `feedfacecafebeef` revoked successfully!", h.sender.last(t).Text)

	h.handle(message(adminID, "/revoketoken nope"))
	assert.Equal(t, "❌ Token `nope` not found or already revoked.", h.sender.last(t).Text)
}

func TestListTokens(t *testing.T) {
	h := newHarness()
	h.ledger.tokens = append(h.ledger.tokens,
		models.AccessToken{Token: "t-revoked", UserID: "5", CreatedAt: fixedNow, ExpiresAt: fixedNow.Add(time.Hour), State: models.TokenStateRevoked},
		models.AccessToken{Token: "t-expired", UserID: "6", CreatedAt: fixedNow, ExpiresAt: fixedNow, Active: true, State: models.TokenStateExpired},
	)

	h.handle(message(adminID, "/listtokens"))
	text := h.sender.last(t).Text
	assert.True(t, strings.HasPrefix(text, "📋 *Access Tokens*"))
	assert.Contains(t, text, "🔑 Token: `feedfacecafebeef`\n👤 User ID: `42`\n📅 Created: 2026-05-09 09:30\n")
	assert.Contains(t, text, "✅ Active")
	assert.Contains(t, text, "❌ Inactive")
	assert.Contains(t, text, "⏱ Expired")

	h.ledger.tokens = nil
	h.handle(message(adminID, "/listtokens"))
	assert.Equal(t, noTokensText, h.sender.last(t).Text)
}

func TestButtons(t *testing.T) {
	h := newHarness()

	tests := []struct {
		name string
		from int64
		text string
		want string
	}{
		{name: "instructions member", from: memberID, text: buttonInstructions, want: "*Instructions*"},
		{name: "instructions guest", from: guestID, text: buttonInstructions, want: "activate your license first"},
		{name: "status", from: memberID, text: buttonStatus, want: "License Status: Active"},
		{name: "stats member", from: memberID, text: buttonStats, want: "License expires in: 10 days"},
		{name: "stats guest", from: guestID, text: buttonStats, want: "activate your license first"},
		{name: "activate", from: guestID, text: buttonActivate, want: "Your User ID: `77`"},
		{name: "support", from: guestID, text: buttonSupport, want: "👤 @helpdesk on Telegram"},
		{name: "other text member", from: memberID, text: "hello", want: sendMediaText},
		{name: "other text guest", from: guestID, text: "hello", want: "Access Required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.handle(message(tt.from, tt.text))
			assert.Contains(t, h.sender.last(t).Text, tt.want)
		})
	}
}

func TestStats_NoActiveToken(t *testing.T) {
	h := newHarness()
	h.ledger.members[99] = true

	h.handle(message(99, buttonStats))
	assert.Contains(t, h.sender.last(t).Text, "No active license found")
}

func TestMedia_Submit(t *testing.T) {
	h := newHarness()

	video := message(memberID, "")
	video.Message.Video = &tgbotapi.Video{FileID: "vid", FileSize: 1234}
	h.handle(video)

	photo := message(memberID, "")
	photo.Message.Photo = []tgbotapi.PhotoSize{
		{FileID: "small", Width: 90, FileSize: 10},
		{FileID: "large", Width: 1280, FileSize: 900},
	}
	h.handle(photo)

	doc := message(memberID, "")
	doc.Message.Document = &tgbotapi.Document{FileID: "doc", FileName: "clip.MOV", FileSize: 55}
	h.handle(doc)

	require.Len(t, h.jobs.requests, 3)
	assert.Equal(t, tasks.Request{ChatID: memberID + 1000, UserID: memberID, FileID: "vid", Kind: tasks.KindVideo, Size: 1234, ReplyTo: 900}, h.jobs.requests[0])
	assert.Equal(t, "large", h.jobs.requests[1].FileID)
	assert.Equal(t, tasks.KindPhoto, h.jobs.requests[1].Kind)
	assert.Equal(t, tasks.KindVideo, h.jobs.requests[2].Kind)
	assert.Empty(t, h.sender.replies)
}

func TestMedia_UnsupportedDocument(t *testing.T) {
	h := newHarness()

	doc := message(memberID, "")
	doc.Message.Document = &tgbotapi.Document{FileID: "doc", FileName: "notes.pdf", MimeType: "application/pdf"}
	h.handle(doc)

	assert.Empty(t, h.jobs.requests)
	assert.Equal(t, sendMediaText, h.sender.last(t).Text)
}

func TestMedia_SubmitErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "not authorized", err: access.ErrNotAuthorized, want: "Access Restricted"},
		{name: "busy", err: access.ErrBusy, want: busyText},
		{name: "too large", err: tasks.ErrFileTooLarge, want: tooLargeText},
		{name: "shutting down", err: tasks.ErrShuttingDown, want: restartingText},
		{name: "other", err: errors.New("boom"), want: submitFailedText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			h.jobs.err = tt.err

			u := message(guestID, "")
			u.Message.Video = &tgbotapi.Video{FileID: "vid"}
			h.handle(u)

			reply := h.sender.last(t)
			assert.Contains(t, reply.Text, tt.want)
			assert.Equal(t, 900, reply.ReplyTo)
		})
	}
}

func TestDocumentKind(t *testing.T) {
	tests := []struct {
		declared string
		filename string
		kind     tasks.Kind
		ok       bool
	}{
		{declared: "video/mp4", filename: "a.bin", kind: tasks.KindVideo, ok: true},
		{declared: "image/png; charset=binary", filename: "", kind: tasks.KindPhoto, ok: true},
		{declared: "", filename: "shot.JPG", kind: tasks.KindPhoto, ok: true},
		{declared: "application/octet-stream", filename: "clip.mp4", kind: tasks.KindVideo, ok: true},
		{declared: "image/svg+xml", filename: "logo.svg"},
		{declared: "application/zip", filename: "a.zip"},
		{declared: "", filename: "README"},
	}
	for _, tt := range tests {
		kind, ok := documentKind(tt.declared, tt.filename)
		assert.Equal(t, tt.ok, ok, "%s %s", tt.declared, tt.filename)
		assert.Equal(t, tt.kind, kind, "%s %s", tt.declared, tt.filename)
	}
}

func TestHandle_IgnoresNonMessages(t *testing.T) {
	h := newHarness()
	h.handle(tgbotapi.Update{UpdateID: 5})
	assert.Empty(t, h.sender.replies)
}
