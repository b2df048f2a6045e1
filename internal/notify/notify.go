package notify

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"creative-forge/internal/campaign"
)

// queueSize caps the undelivered notifications held while Telegram is
// slow. Overflow is dropped, never waited for.
const queueSize = 64

type Options struct {
	Token      string
	ChatID     int64
	HTTPClient *http.Client
	Logger     *slog.Logger
	Debug      bool

	// PathRoot resolves the relative asset paths carried by events,
	// usually the parent of the output directory.
	PathRoot string

	// Endpoint overrides the Telegram API endpoint format, e.g. for a
	// self-hosted bot API server. Defaults to the public endpoint.
	Endpoint string
}

// Notifier pushes run milestones to a Telegram chat. A nil Notifier is
// valid and does nothing, so callers never branch on configuration.
// Delivery runs on its own goroutine: Observe only enqueues, so a slow
// or stalled Telegram send can never hold up the event stream.
type Notifier struct {
	bot      *tgbotapi.BotAPI
	chatID   int64
	pathRoot string
	logger   *slog.Logger

	queue chan campaign.Event
	done  chan struct{}
}

func New(opts Options) (*Notifier, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.ChatID == 0 {
		return nil, errors.New("telegram chat id is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}

	endpoint := opts.Endpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, endpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	n := &Notifier{
		bot:      bot,
		chatID:   opts.ChatID,
		pathRoot: opts.PathRoot,
		logger:   logger,
		queue:    make(chan campaign.Event, queueSize),
		done:     make(chan struct{}),
	}
	go n.deliver()
	return n, nil
}

// Observe enqueues one orchestrator event for delivery. When the queue
// is full the event is dropped; notifications are best-effort and never
// disturb or delay the run.
func (n *Notifier) Observe(ev campaign.Event) {
	if n == nil {
		return
	}
	select {
	case n.queue <- ev:
	default:
		n.logger.Warn("notification dropped, telegram delivery is behind",
			"campaign_id", ev.CampaignID, "type", ev.Type)
	}
}

// Close stops accepting events and blocks until every queued
// notification has been handed to Telegram. Call it once, after the
// last Observe.
func (n *Notifier) Close() {
	if n == nil {
		return
	}
	close(n.queue)
	<-n.done
}

func (n *Notifier) deliver() {
	defer close(n.done)
	for ev := range n.queue {
		n.handle(ev)
	}
}

func (n *Notifier) handle(ev campaign.Event) {
	switch {
	case ev.Type == campaign.EventProgress && ev.Status == campaign.StatusGenerating && ev.Index == 1:
		n.sendText(fmt.Sprintf("Campaign %s started: %d units queued", ev.CampaignID, ev.Total))

	case ev.Type == campaign.EventProgress && ev.Status == campaign.StatusError:
		n.sendText(fmt.Sprintf("Unit %d/%d failed (%s %s): %s",
			ev.Index, ev.Total, ev.Product, ev.AspectRatio, ev.Message))

	case ev.Type == campaign.EventComplete && ev.Summary != nil:
		n.sendSummary(ev.Summary)

	case ev.Type == campaign.EventError:
		n.sendText(fmt.Sprintf("Campaign %s failed: %s", ev.CampaignID, ev.Message))
	}
}

func (n *Notifier) sendSummary(s *campaign.RunSummary) {
	text := fmt.Sprintf("Campaign %s finished: %d/%d assets saved, %d failed",
		s.CampaignID, s.SuccessfulAssets, s.TotalAssets, s.FailedAssets)

	if len(s.SampleAssets) == 0 {
		n.sendText(text)
		return
	}
	if err := n.sendPhotoFile(s.SampleAssets[0], text); err != nil {
		n.logger.Warn("sample photo failed, sending text", "path", s.SampleAssets[0], "err", err)
		n.sendText(text)
	}
}

func (n *Notifier) sendText(text string) {
	for _, part := range splitByBytes(text, 4096) {
		if _, err := n.bot.Send(tgbotapi.NewMessage(n.chatID, part)); err != nil {
			n.logger.Warn("telegram send failed", "err", err)
			return
		}
	}
}

func (n *Notifier) sendPhotoFile(relPath string, caption string) error {
	full := filepath.Join(n.pathRoot, filepath.FromSlash(relPath))
	data, err := os.ReadFile(full)
	if err != nil {
		return err
	}

	photo := tgbotapi.NewPhoto(n.chatID, tgbotapi.FileBytes{
		Name:  filepath.Base(full),
		Bytes: data,
	})
	photo.Caption = truncateByBytes(caption, 1024)

	_, err = n.bot.Send(photo)
	return err
}

func splitByBytes(text string, maxBytes int) []string {
	if len([]byte(text)) <= maxBytes || maxBytes <= 0 {
		return []string{text}
	}

	var out []string
	var buf strings.Builder
	buf.Grow(maxBytes)

	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len([]byte(string(r)))
		}

		if buf.Len() > 0 && buf.Len()+runeBytes > maxBytes {
			out = append(out, buf.String())
			buf.Reset()
		}
		buf.WriteRune(r)
	}

	if buf.Len() > 0 {
		out = append(out, buf.String())
	}

	return out
}

func truncateByBytes(text string, maxBytes int) string {
	if len([]byte(text)) <= maxBytes || maxBytes <= 0 {
		return text
	}

	var buf strings.Builder
	buf.Grow(maxBytes)
	for _, r := range text {
		runeBytes := utf8.RuneLen(r)
		if runeBytes < 0 {
			runeBytes = len([]byte(string(r)))
		}

		if buf.Len()+runeBytes > maxBytes {
			break
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
