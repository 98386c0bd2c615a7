package bot

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"repurposer/internal/media/sniffer"
	"repurposer/internal/tasks"
)

// API is the part of *tgbotapi.BotAPI the client uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

var (
	_ API             = (*tgbotapi.BotAPI)(nil)
	_ UpdateSource    = (*tgbotapi.BotAPI)(nil)
	_ tasks.Transport = (*Client)(nil)
	_ Sender          = (*Client)(nil)
)

type Keyboard int

const (
	NoKeyboard Keyboard = iota
	MemberKeyboard
	GuestKeyboard
)

// Reply is an outgoing text message.
type Reply struct {
	ChatID   int64
	ReplyTo  int
	Text     string
	Keyboard Keyboard
}

// Client sends chat messages and moves files to and from the chat service.
// It implements tasks.Transport.
type Client struct {
	api  API
	http *http.Client
	log  zerolog.Logger
}

func NewClient(api API, httpTimeout time.Duration, log zerolog.Logger) *Client {
	if httpTimeout <= 0 {
		httpTimeout = 2 * time.Minute
	}
	return &Client{
		api:  api,
		http: &http.Client{Timeout: httpTimeout},
		log:  log.With().Str("component", "telegram").Logger(),
	}
}

func (c *Client) Reply(ctx context.Context, r Reply) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := tgbotapi.NewMessage(r.ChatID, r.Text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyToMessageID = r.ReplyTo
	if markup, ok := keyboardMarkup(r.Keyboard); ok {
		msg.ReplyMarkup = markup
	}
	if _, err := c.api.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	return nil
}

func (c *Client) Notify(ctx context.Context, chatID int64, replyTo int, text string) (tasks.StatusRef, error) {
	if err := ctx.Err(); err != nil {
		return tasks.StatusRef{}, err
	}
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyToMessageID = replyTo
	sent, err := c.api.Send(msg)
	if err != nil {
		return tasks.StatusRef{}, fmt.Errorf("send status: %w", err)
	}
	return tasks.StatusRef{ChatID: chatID, MessageID: sent.MessageID}, nil
}

func (c *Client) Update(ctx context.Context, ref tasks.StatusRef, text string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	edit := tgbotapi.NewEditMessageText(ref.ChatID, ref.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := c.api.Request(edit); err != nil {
		return fmt.Errorf("edit status %d: %w", ref.MessageID, err)
	}
	return nil
}

// Download resolves the file's direct URL and streams its body into w.
func (c *Client) Download(ctx context.Context, fileID string, w io.Writer) error {
	url, err := c.api.GetFileDirectURL(fileID)
	if err != nil {
		return fmt.Errorf("resolve file: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("fetch file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch file: unexpected status %d", resp.StatusCode)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return fmt.Errorf("read file: %w", err)
	}
	c.log.Debug().
		Str("file_id", fileID).
		Int64("bytes", n).
		Str("content_type", sniffer.MimeTypeFromHeader(resp.Header.Get("Content-Type"))).
		Msg("file downloaded")
	return nil
}

func (c *Client) Deliver(ctx context.Context, chatID int64, kind tasks.Kind, path, caption string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	var upload tgbotapi.Chattable
	if kind == tasks.KindVideo {
		v := tgbotapi.NewVideo(chatID, tgbotapi.FilePath(path))
		v.Caption = caption
		v.ParseMode = tgbotapi.ModeMarkdown
		v.SupportsStreaming = true
		upload = v
	} else {
		p := tgbotapi.NewPhoto(chatID, tgbotapi.FilePath(path))
		p.Caption = caption
		p.ParseMode = tgbotapi.ModeMarkdown
		upload = p
	}
	if _, err := c.api.Send(upload); err != nil {
		return fmt.Errorf("upload %s: %w", kind, err)
	}
	return nil
}

func keyboardMarkup(k Keyboard) (tgbotapi.ReplyKeyboardMarkup, bool) {
	var markup tgbotapi.ReplyKeyboardMarkup
	switch k {
	case MemberKeyboard:
		markup = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(buttonInstructions),
				tgbotapi.NewKeyboardButton(buttonStatus),
			),
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(buttonStats),
				tgbotapi.NewKeyboardButton(buttonSupport),
			),
		)
	case GuestKeyboard:
		markup = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton(buttonActivate),
				tgbotapi.NewKeyboardButton(buttonSupport),
			),
		)
	default:
		return markup, false
	}
	markup.ResizeKeyboard = true
	return markup, true
}
