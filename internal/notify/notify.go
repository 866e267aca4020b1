// Package notify delivers human-readable status messages. Delivery is best
// effort: errors are logged and never returned to the caller.
package notify

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Telegram posts Markdown messages to one chat through a bot.
type Telegram struct {
	token    string
	chatID   string
	endpoint string
	hc       *http.Client

	bot *tgbotapi.BotAPI
}

type Option func(*Telegram)

// WithEndpoint overrides the Bot API endpoint format ("https://api.telegram.org/bot%s/%s").
func WithEndpoint(endpoint string) Option {
	return func(t *Telegram) { t.endpoint = endpoint }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(t *Telegram) { t.hc = hc }
}

// NewTelegram does no network I/O; the bot is authorized on the first Send so
// that a Telegram outage at startup cannot stop the scheduler.
func NewTelegram(token, chatID string, opts ...Option) *Telegram {
	t := &Telegram{
		token:    token,
		chatID:   strings.TrimSpace(chatID),
		endpoint: tgbotapi.APIEndpoint,
		hc:       &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Telegram) Send(ctx context.Context, text string) {
	if err := ctx.Err(); err != nil {
		log.Printf("notify: not sent (%v): %s", err, text)
		return
	}
	if t.bot == nil {
		bot, err := tgbotapi.NewBotAPIWithClient(t.token, t.endpoint, t.hc)
		if err != nil {
			log.Printf("notify: failed to authorize telegram bot: %v", err)
			return
		}
		log.Printf("notify: authorized on account %s", bot.Self.UserName)
		t.bot = bot
	}

	msg := t.message(text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := t.bot.Send(msg); err != nil {
		log.Printf("notify: failed to send message to telegram chat: %v", err)
	}
}

// message addresses numeric chat ids directly and anything else (@channel) by username.
func (t *Telegram) message(text string) tgbotapi.MessageConfig {
	if id, err := strconv.ParseInt(t.chatID, 10, 64); err == nil {
		return tgbotapi.NewMessage(id, text)
	}
	return tgbotapi.NewMessageToChannel(t.chatID, text)
}

// Log writes messages to the process log. Used when no bot token is configured.
type Log struct{}

func (Log) Send(ctx context.Context, text string) {
	log.Printf("notify: %s", text)
}

// maxCode bounds the text placed in a code span; Telegram rejects messages
// over 4096 characters.
const maxCode = 1000

// Code renders err as a Markdown code span. Backticks inside it would end the
// span early and make Telegram reject the whole message, so they become quotes.
func Code(err error) string {
	s := strings.ReplaceAll(err.Error(), "`", "'")
	if r := []rune(s); len(r) > maxCode {
		s = string(r[:maxCode]) + "…"
	}
	return "`" + s + "`"
}
