// Package bot is the Telegram transport: it turns chat messages and
// commands into ledger operations and renders the results back as
// replies or document uploads.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"riel/internal/core"
	"riel/internal/report"
)

// Store extends the reporting store with the bot-only delete-last
// operation.
type Store interface {
	report.Store
	DeleteLast(ctx context.Context, ownerID string) (int64, error)
}

type Bot struct {
	api       *tgbotapi.BotAPI
	reports   *report.Service
	store     Store
	extractor *core.Extractor
	guard     *dupGuard
	exportDir string
}

func New(token string, reports *report.Service, store Store, extractor *core.Extractor, exportDir string) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("create bot api: %w", err)
	}
	b := newBot(reports, store, extractor, exportDir)
	b.api = api
	return b, nil
}

func newBot(reports *report.Service, store Store, extractor *core.Extractor, exportDir string) *Bot {
	return &Bot{
		reports:   reports,
		store:     store,
		extractor: extractor,
		guard:     newDupGuard(dupWindow),
		exportDir: exportDir,
	}
}

// reply is what a command produces: a text message and optionally a
// document to upload alongside it.
type reply struct {
	text     string
	filePath string
	caption  string
}

// Run polls for updates until the context is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30

	updates := b.api.GetUpdatesChan(u)
	slog.InfoContext(ctx, "Bot polling started", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return fmt.Errorf("update channel closed")
			}
			if update.Message == nil || !update.Message.IsCommand() {
				continue
			}
			b.handleMessage(ctx, update.Message)
		}
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *tgbotapi.Message) {
	ownerID := strconv.FormatInt(msg.From.ID, 10)
	who := displayName(msg.From)
	cmd := msg.Command()
	args := msg.CommandArguments()

	slog.InfoContext(ctx, "Handling command",
		"command", cmd,
		"owner", ownerID)

	res, err := b.dispatch(ctx, ownerID, who, cmd, args)
	if err != nil {
		slog.ErrorContext(ctx, "Command failed",
			"command", cmd,
			"owner", ownerID,
			"error", err)
		res = reply{text: "Something went wrong, please try again."}
	}

	if res.filePath != "" {
		doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FilePath(res.filePath))
		doc.Caption = res.caption
		if _, err := b.api.Send(doc); err != nil {
			slog.ErrorContext(ctx, "Failed sending document", "error", err)
		}
	}
	if res.text != "" {
		out := tgbotapi.NewMessage(msg.Chat.ID, res.text)
		if _, err := b.api.Send(out); err != nil {
			slog.ErrorContext(ctx, "Failed sending reply", "error", err)
		}
	}
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return "unknown"
	}
	if u.UserName != "" {
		return "@" + u.UserName
	}
	if u.FirstName != "" {
		return u.FirstName
	}
	return fmt.Sprintf("ID:%d", u.ID)
}
