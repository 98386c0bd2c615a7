package bot

import (
	"context"
	"errors"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"repurposer/internal/access"
	"repurposer/internal/config"
	"repurposer/internal/media/sniffer"
	"repurposer/internal/metrics"
	"repurposer/internal/models"
	"repurposer/internal/tasks"
)

type Sender interface {
	Reply(ctx context.Context, r Reply) error
}

type Ledger interface {
	Issue(ctx context.Context, userID string, days int) (models.AccessToken, error)
	Activate(token string, userID int64) bool
	Revoke(ctx context.Context, token string) (bool, error)
	List() []models.AccessToken
	ActiveFor(userID string) (models.AccessToken, bool)
}

type Membership interface {
	IsAuthorized(userID int64) bool
}

type Submitter interface {
	Submit(req tasks.Request) (string, error)
}

// Router turns incoming updates into replies, ledger operations and jobs.
type Router struct {
	sender  Sender
	ledger  Ledger
	members Membership
	jobs    Submitter
	adminID int64
	text    texts
	now     func() time.Time
	log     zerolog.Logger
}

func NewRouter(sender Sender, ledger Ledger, members Membership, jobs Submitter, cfg config.TelegramConfig, log zerolog.Logger) *Router {
	return &Router{
		sender:  sender,
		ledger:  ledger,
		members: members,
		jobs:    jobs,
		adminID: cfg.AdminID,
		text:    newTexts(cfg.SupportContact),
		now:     time.Now,
		log:     log.With().Str("component", "router").Logger(),
	}
}

// incoming is the sender and chat of one message.
type incoming struct {
	msg    *tgbotapi.Message
	userID int64
	chatID int64
}

func (r *Router) Handle(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		metrics.Update("other")
		return
	}
	in := incoming{msg: msg, userID: msg.From.ID, chatID: msg.Chat.ID}

	switch {
	case msg.IsCommand():
		metrics.Update("command")
		r.command(ctx, in)
	case msg.Video != nil:
		metrics.Update("video")
		r.video(ctx, in)
	case len(msg.Photo) > 0:
		metrics.Update("photo")
		r.photo(ctx, in)
	case msg.Document != nil:
		metrics.Update("document")
		r.document(ctx, in)
	default:
		metrics.Update("text")
		r.button(ctx, in)
	}
}

func (r *Router) command(ctx context.Context, in incoming) {
	args := strings.Fields(in.msg.CommandArguments())

	switch in.msg.Command() {
	case "start":
		r.start(ctx, in)
	case "help":
		r.help(ctx, in)
	case "status":
		r.status(ctx, in)
	case "activate":
		r.activate(ctx, in, args)
	case "createtoken":
		if r.isAdmin(in.userID) {
			r.createToken(ctx, in, args)
			return
		}
		r.fallback(ctx, in)
	case "revoketoken":
		if r.isAdmin(in.userID) {
			r.revokeToken(ctx, in, args)
			return
		}
		r.fallback(ctx, in)
	case "listtokens":
		if r.isAdmin(in.userID) {
			r.listTokens(ctx, in)
			return
		}
		r.fallback(ctx, in)
	default:
		r.fallback(ctx, in)
	}
}

func (r *Router) button(ctx context.Context, in incoming) {
	switch strings.TrimSpace(in.msg.Text) {
	case buttonInstructions:
		if !r.members.IsAuthorized(in.userID) {
			r.send(ctx, in.chatID, 0, r.text.notActivated(), NoKeyboard)
			return
		}
		r.send(ctx, in.chatID, 0, r.text.instructions(), NoKeyboard)
	case buttonStatus:
		r.status(ctx, in)
	case buttonStats:
		r.stats(ctx, in)
	case buttonActivate:
		r.send(ctx, in.chatID, 0, r.text.activateLicense(in.userID), NoKeyboard)
	case buttonSupport:
		r.send(ctx, in.chatID, 0, r.text.contactSupport(), NoKeyboard)
	default:
		r.fallback(ctx, in)
	}
}

func (r *Router) start(ctx context.Context, in incoming) {
	if r.members.IsAuthorized(in.userID) {
		r.send(ctx, in.chatID, 0, r.text.welcomeMember(), MemberKeyboard)
		return
	}
	r.send(ctx, in.chatID, 0, r.text.welcomeGuest(in.userID), GuestKeyboard)
}

func (r *Router) help(ctx context.Context, in incoming) {
	if r.members.IsAuthorized(in.userID) {
		r.send(ctx, in.chatID, 0, r.text.helpMember(), NoKeyboard)
		return
	}
	r.send(ctx, in.chatID, 0, r.text.helpGuest(in.userID), NoKeyboard)
}

func (r *Router) status(ctx context.Context, in incoming) {
	if !r.members.IsAuthorized(in.userID) {
		r.send(ctx, in.chatID, 0, r.text.statusNone(in.userID), NoKeyboard)
		return
	}
	token, ok := r.ledger.ActiveFor(strconv.FormatInt(in.userID, 10))
	if !ok {
		r.send(ctx, in.chatID, 0, r.text.statusUnusual(), NoKeyboard)
		return
	}
	r.send(ctx, in.chatID, 0, r.text.statusActive(token, r.now()), NoKeyboard)
}

func (r *Router) stats(ctx context.Context, in incoming) {
	if !r.members.IsAuthorized(in.userID) {
		r.send(ctx, in.chatID, 0, r.text.notActivated(), NoKeyboard)
		return
	}
	token, ok := r.ledger.ActiveFor(strconv.FormatInt(in.userID, 10))
	if !ok {
		r.send(ctx, in.chatID, 0, r.text.noActiveLicense(), NoKeyboard)
		return
	}
	r.send(ctx, in.chatID, 0, r.text.stats(token.DaysLeft(r.now())), NoKeyboard)
}

func (r *Router) activate(ctx context.Context, in incoming, args []string) {
	if len(args) < 1 {
		r.send(ctx, in.chatID, 0, activateUsageText, NoKeyboard)
		return
	}
	if !r.ledger.Activate(args[0], in.userID) {
		r.log.Info().Int64("user_id", in.userID).Msg("activation rejected")
		r.send(ctx, in.chatID, 0, r.text.invalidToken(), NoKeyboard)
		return
	}
	r.send(ctx, in.chatID, 0, r.text.activated(), MemberKeyboard)
}

func (r *Router) createToken(ctx context.Context, in incoming, args []string) {
	if len(args) < 1 {
		r.send(ctx, in.chatID, in.msg.MessageID, createUsageText, NoKeyboard)
		return
	}
	if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
		r.send(ctx, in.chatID, in.msg.MessageID, createUsageText, NoKeyboard)
		return
	}

	days := 0
	if len(args) >= 2 {
		if n, err := strconv.Atoi(args[1]); err == nil && n > 0 {
			days = n
		}
	}

	token, err := r.ledger.Issue(ctx, args[0], days)
	if err != nil {
		r.log.Error().Err(err).Str("user_id", args[0]).Msg("create token failed")
		r.send(ctx, in.chatID, in.msg.MessageID, adminErrorText("creating token", err), NoKeyboard)
		return
	}
	validFor := int(token.ExpiresAt.Sub(token.CreatedAt).Round(time.Hour) / (24 * time.Hour))
	r.send(ctx, in.chatID, in.msg.MessageID, tokenCreatedText(token, validFor), NoKeyboard)
}

func (r *Router) revokeToken(ctx context.Context, in incoming, args []string) {
	if len(args) < 1 {
		r.send(ctx, in.chatID, in.msg.MessageID, revokeUsageText, NoKeyboard)
		return
	}
	token := args[0]
	found, err := r.ledger.Revoke(ctx, token)
	switch {
	case err != nil:
		r.log.Error().Err(err).Msg("revoke token failed")
		r.send(ctx, in.chatID, in.msg.MessageID, adminErrorText("revoking token", err), NoKeyboard)
	case !found:
		r.send(ctx, in.chatID, in.msg.MessageID, tokenNotFoundText(token), NoKeyboard)
	default:
		r.send(ctx, in.chatID, in.msg.MessageID, tokenRevokedText(token), NoKeyboard)
	}
}

func (r *Router) listTokens(ctx context.Context, in incoming) {
	tokens := r.ledger.List()
	if len(tokens) == 0 {
		r.send(ctx, in.chatID, in.msg.MessageID, noTokensText, NoKeyboard)
		return
	}
	r.send(ctx, in.chatID, in.msg.MessageID, tokenListText(tokens), NoKeyboard)
}

func (r *Router) video(ctx context.Context, in incoming) {
	v := in.msg.Video
	r.submit(ctx, in, tasks.KindVideo, v.FileID, int64(v.FileSize))
}

// photo submits the largest rendition; Telegram lists sizes in ascending order.
func (r *Router) photo(ctx context.Context, in incoming) {
	largest := in.msg.Photo[len(in.msg.Photo)-1]
	r.submit(ctx, in, tasks.KindPhoto, largest.FileID, int64(largest.FileSize))
}

func (r *Router) document(ctx context.Context, in incoming) {
	doc := in.msg.Document
	kind, ok := documentKind(doc.MimeType, doc.FileName)
	if !ok {
		r.fallback(ctx, in)
		return
	}
	r.submit(ctx, in, kind, doc.FileID, int64(doc.FileSize))
}

var extensionTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".mov":  "video/quicktime",
	".webm": "video/webm",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// documentKind classifies a file sent as a document by its declared type,
// then by its name.
func documentKind(declared, filename string) (tasks.Kind, bool) {
	mimeType := sniffer.MimeTypeFromHeader(declared)
	if mimeType == "" || mimeType == "application/octet-stream" {
		ext := strings.ToLower(filepath.Ext(filename))
		mimeType = extensionTypes[ext]
		if mimeType == "" {
			mimeType = sniffer.MimeTypeFromHeader(mime.TypeByExtension(ext))
		}
	}
	switch {
	case strings.HasPrefix(mimeType, "video/"):
		return tasks.KindVideo, true
	case strings.HasPrefix(mimeType, "image/") && mimeType != "image/svg+xml":
		return tasks.KindPhoto, true
	}
	return "", false
}

func (r *Router) submit(ctx context.Context, in incoming, kind tasks.Kind, fileID string, size int64) {
	jobID, err := r.jobs.Submit(tasks.Request{
		ChatID:  in.chatID,
		UserID:  in.userID,
		FileID:  fileID,
		Kind:    kind,
		Size:    size,
		ReplyTo: in.msg.MessageID,
	})
	if err == nil {
		r.log.Info().
			Str("job_id", jobID).
			Int64("user_id", in.userID).
			Str("kind", string(kind)).
			Int64("size", size).
			Msg("job accepted")
		return
	}

	var text string
	switch {
	case errors.Is(err, access.ErrNotAuthorized):
		text = r.text.accessRestricted(in.userID)
	case errors.Is(err, access.ErrBusy):
		text = busyText
	case errors.Is(err, tasks.ErrFileTooLarge):
		text = tooLargeText
	case errors.Is(err, tasks.ErrShuttingDown):
		text = restartingText
	default:
		r.log.Error().Err(err).Int64("user_id", in.userID).Msg("submit failed")
		text = submitFailedText
	}
	r.send(ctx, in.chatID, in.msg.MessageID, text, NoKeyboard)
}

func (r *Router) fallback(ctx context.Context, in incoming) {
	if r.members.IsAuthorized(in.userID) {
		r.send(ctx, in.chatID, in.msg.MessageID, sendMediaText, NoKeyboard)
		return
	}
	r.send(ctx, in.chatID, in.msg.MessageID, r.text.accessRequired(in.userID), NoKeyboard)
}

func (r *Router) isAdmin(userID int64) bool {
	return r.adminID != 0 && userID == r.adminID
}

func (r *Router) send(ctx context.Context, chatID int64, replyTo int, text string, kb Keyboard) {
	if err := r.sender.Reply(ctx, Reply{ChatID: chatID, ReplyTo: replyTo, Text: text, Keyboard: kb}); err != nil {
		r.log.Warn().Err(err).Int64("chat_id", chatID).Msg("reply failed")
	}
}
