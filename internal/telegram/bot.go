package telegram

import (
	"context"
	"runtime/debug"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// NewBot creates new telegram bot
func NewBot(c BotConfig, deps Deps) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(c.Token)
	if err != nil {
		return nil, errors.Wrap(err, "could not create telegram bot")
	}

	api.Debug = c.Debug

	return newBot(api, c, deps), nil
}

func newBot(api *tgbotapi.BotAPI, c BotConfig, deps Deps) *Bot {
	return &Bot{
		API:    api,
		Config: c,
		deps:   deps,
	}
}

// GetUpdatesChannel gets new updates updates
func (b *Bot) GetUpdatesChannel() tgbotapi.UpdatesChannel {
	updatesConfig := tgbotapi.NewUpdate(0)
	if b.Config.UpdatesTimeout > 0 {
		updatesConfig.Timeout = b.Config.UpdatesTimeout
	}
	return b.API.GetUpdatesChan(updatesConfig)
}

// Stop stops the long polling started by GetUpdatesChannel.
func (b *Bot) Stop() {
	b.API.StopReceivingUpdates()
}

// SendMessage sends a telegram message
func (b *Bot) SendMessage(m Message) error {
	msg := tgbotapi.NewMessage(m.ChatID, m.Text)
	msg.ReplyToMessageID = m.MessageID
	msg.DisableWebPagePreview = true
	if !m.Plain {
		msg.ParseMode = tgbotapi.ModeMarkdownV2
	}
	if m.Markup != nil {
		msg.ReplyMarkup = m.Markup
	}
	_, err := b.API.Send(msg)
	return errors.Wrapf(err, "could not send message to chat %d", m.ChatID)
}

// Notify sends an unsolicited MarkdownV2 message, e.g. a triggered alert.
func (b *Bot) Notify(chatID int64, text string) error {
	return b.SendMessage(Message{ChatID: chatID, Text: text})
}

// HandleUpdate processes one Telegram update. Panics are recovered so one
// bad update cannot stop the worker.
func (b *Bot) HandleUpdate(ctx context.Context, u tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("Recovered from panic: %v\nStack trace: %s", r, debug.Stack())
		}
	}()

	switch {
	case u.CallbackQuery != nil:
		b.handleCallbackQuery(u.CallbackQuery)
	case u.InlineQuery != nil:
		b.handleInlineQuery(ctx, u.InlineQuery)
	case u.Message != nil:
		b.handleMessage(ctx, u.Message)
	default:
		log.Debug("Received unsupported update")
	}
}

func (b *Bot) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	if m.Chat == nil || m.Text == "" {
		return
	}

	reply, ok := b.Respond(ctx, m)
	if !ok {
		return
	}

	if b.deps.Metrics != nil {
		b.deps.Metrics.ObserveMessage(m.Chat.ID, m.Chat.Title)
	}

	if err := b.SendMessage(reply); err != nil {
		log.Errorf("Failed to send message: %v", err)
		return
	}
	if b.deps.Metrics != nil && m.IsCommand() {
		b.deps.Metrics.CommandsProcessed.Inc()
	}
}

func (b *Bot) handleCallbackQuery(q *tgbotapi.CallbackQuery) {
	if _, err := b.API.Request(tgbotapi.NewCallback(q.ID, "")); err != nil {
		log.WithError(err).Debug("failed to answer callback query")
	}
	if q.Message == nil {
		return
	}

	text, ok := menuText(q.Data)
	if !ok {
		log.WithField("data", q.Data).Debug("unknown callback data")
		return
	}
	edit := tgbotapi.NewEditMessageText(q.Message.Chat.ID, q.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.API.Send(edit); err != nil {
		log.WithError(err).Error("failed to edit menu message")
	}
}

func (b *Bot) handleInlineQuery(ctx context.Context, q *tgbotapi.InlineQuery) {
	article, ok := b.InlineArticle(ctx, q.ID, q.Query)
	if !ok {
		return
	}

	answer := tgbotapi.InlineConfig{
		InlineQueryID: q.ID,
		Results:       []interface{}{article},
		CacheTime:     10,
		IsPersonal:    true,
	}
	if _, err := b.API.Request(answer); err != nil {
		log.WithError(err).Error("failed to answer inline query")
	}
}
