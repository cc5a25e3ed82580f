package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"crypto-assistant-bot/internal/airdrop"
	"crypto-assistant-bot/internal/alert"
	"crypto-assistant-bot/internal/chat"
	"crypto-assistant-bot/internal/commands"
	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/intent"
	"crypto-assistant-bot/lib/helpers"
	"crypto-assistant-bot/lib/translation"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func menuKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("💰 "+translation.Translate("Prices"), "menu_price"),
			tgbotapi.NewInlineKeyboardButtonData("🔔 "+translation.Translate("Alerts"), "menu_alerts"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🎁 "+translation.Translate("Airdrops"), "menu_air"),
			tgbotapi.NewInlineKeyboardButtonData("🤖 "+translation.Translate("Ask AI"), "menu_ai"),
		),
	)
}

// menuText is the MarkdownV2 body shown for a menu button.
func menuText(data string) (string, bool) {
	var lines []string
	switch data {
	case "menu_price":
		lines = []string{"/price btc usdt", "/prices btc,eth idr", "/convert 0.25 btc idr", "0,5 eth ke idr", "price sol, ada", "/top", "/ohlc btc usd 7"}
	case "menu_alerts":
		lines = []string{"/alert add btc usd above 70000", "/alert del 1", "/alerts"}
	case "menu_air":
		lines = []string{"/airdrops", "/airdrops zk", "/hunt monad"}
	case "menu_ai":
		lines = []string{"/ask " + translation.Translate("any question")}
	default:
		return "", false
	}
	for i, l := range lines {
		lines[i] = "• " + helpers.EscapeMarkdownV2(l)
	}
	return strings.Join(lines, "\n"), true
}

// Respond builds the reply to an incoming message. ok is false when the bot
// should stay silent.
func (b *Bot) Respond(ctx context.Context, m *tgbotapi.Message) (Message, bool) {
	reply := Message{ChatID: m.Chat.ID, MessageID: m.MessageID}
	code := b.chatFiat(m.Chat.ID)
	args := strings.TrimSpace(m.CommandArguments())
	log.Debugf("received command: %s", m.Command())

	var err error
	switch m.Command() {
	case "":
		return b.respondText(ctx, m, code)
	case "start", "help":
		reply.Text = translation.Translate("Command help message")
		reply.Markup = menuKeyboard()
	case "price", "p":
		reply.Text, err = b.deps.Commands.Price(ctx, args, code)
		err = usageOr(err, "/price <symbol> [fiat]")
	case "prices":
		reply.Text, err = b.deps.Commands.Prices(ctx, args, code)
		err = usageOr(err, "/prices <symbol,symbol,...> [fiat]")
	case "convert":
		reply.Text, err = b.deps.Commands.Convert(ctx, args, code)
		err = usageOr(err, "/convert <amount> <symbol> <fiat>")
	case "top", "dominance", "fear", "gas", "ohlc":
		if b.deps.Overview == nil {
			return reply, false
		}
		reply.Text, err = b.overview(ctx, m.Command(), args, code)
	case "setfiat":
		reply.Text, err = b.setFiat(m.Chat.ID, args, code)
	case "status":
		reply.Text = b.deps.Commands.Status(ctx, b.Config.ProviderName, code)
	case "ask":
		if args == "" {
			reply.Text = helpers.EscapeMarkdownV2(translation.Translate("Usage: %s", "/ask <question>"))
			break
		}
		reply.Text, reply.Plain = b.ask(ctx, args, false), true
	case "alert":
		reply.Text, err = b.alert(ctx, m.Chat.ID, args, code)
	case "alerts":
		reply.Text, err = b.listAlerts(m.Chat.ID)
	case "airdrops":
		reply.Text = b.airdrops(ctx, args)
	case "hunt":
		if args == "" {
			reply.Text = helpers.EscapeMarkdownV2(translation.Translate("Usage: %s", "/hunt <keyword>"))
			break
		}
		reply.Text = b.airdrops(ctx, args)
	default:
		return reply, false
	}

	if err != nil {
		reply.Text = b.errorText(err)
	}
	return reply, reply.Text != ""
}

func (b *Bot) overview(ctx context.Context, command, args string, code fiat.Code) (string, error) {
	switch command {
	case "top":
		text, err := b.deps.Overview.Top(ctx, args, code)
		return text, usageOr(err, "/top [fiat]")
	case "dominance":
		return b.deps.Overview.Dominance(ctx)
	case "fear":
		return b.deps.Overview.Fear(ctx)
	case "gas":
		return b.deps.Overview.Gas(ctx)
	default:
		text, err := b.deps.Overview.OHLC(ctx, args, code)
		return text, usageOr(err, "/ohlc <symbol> [fiat] [days]")
	}
}

func (b *Bot) respondText(ctx context.Context, m *tgbotapi.Message, code fiat.Code) (Message, bool) {
	reply := Message{ChatID: m.Chat.ID, MessageID: m.MessageID}

	// "$btc" and "$btc idr" are price shortcuts.
	if strings.HasPrefix(m.Text, "$") {
		text, err := b.deps.Commands.Price(ctx, strings.TrimPrefix(m.Text, "$"), code)
		if err != nil {
			if errors.Is(err, commands.ErrUsage) {
				return reply, false
			}
			text = b.errorText(err)
		}
		reply.Text = text
		return reply, true
	}

	in, text, err := b.deps.Commands.Handle(ctx, m.Text, code)
	if b.deps.Metrics != nil {
		b.deps.Metrics.Intents.WithLabelValues(intent.Kind(in)).Inc()
	}

	switch {
	case err == nil:
		reply.Text = text
	case commands.ChatFallback(in, err):
		if !b.deps.Assistant.Enabled() && !m.Chat.IsPrivate() {
			return reply, false
		}
		reply.Text, reply.Plain = b.ask(ctx, m.Text, true), true
	default:
		reply.Text = b.errorText(err)
	}
	return reply, true
}

func (b *Bot) chatFiat(chatID int64) fiat.Code {
	if b.deps.Settings == nil {
		return b.Config.DefaultFiat
	}
	stored, err := b.deps.Settings.GetFiat(chatID)
	if err != nil {
		log.WithError(err).WithField("chat_id", chatID).Warn("failed to load chat fiat")
	}
	return b.deps.Fiats.Default(stored, b.Config.DefaultFiat)
}

func (b *Bot) setFiat(chatID int64, args string, current fiat.Code) (string, error) {
	if args == "" {
		return helpers.EscapeMarkdownV2(translation.Translate(
			"Current currency: %s\nUsage: %s", current.Upper(), "/setfiat "+allowedList(b.deps.Fiats, "|"),
		)), nil
	}

	code, err := b.deps.Fiats.Validate(args)
	if err != nil {
		return "", err
	}
	if err := b.deps.Settings.SetFiat(chatID, code.String()); err != nil {
		return "", err
	}
	return helpers.EscapeMarkdownV2(translation.Translate("Default currency set to %s", code.Upper())), nil
}

func (b *Bot) ask(ctx context.Context, text string, fallback bool) string {
	var (
		answer string
		err    error
	)
	if fallback {
		answer, err = b.deps.Assistant.Reply(ctx, text)
	} else {
		answer, err = b.deps.Assistant.Ask(ctx, text)
	}

	switch {
	case errors.Is(err, chat.ErrDisabled):
		return translation.Translate("AI assistant is disabled (OPENAI_API_KEY is not set).")
	case err != nil:
		log.WithError(err).Error("chat assistant failed")
		return translation.Translate("AI assistant is unavailable, please try again later")
	}
	return answer
}

func (b *Bot) alert(ctx context.Context, chatID int64, args string, code fiat.Code) (string, error) {
	sub, rest, _ := strings.Cut(args, " ")
	switch strings.ToLower(sub) {
	case "add":
		a, err := b.deps.Alerts.Add(ctx, chatID, rest, code)
		if err != nil {
			return "", err
		}
		return helpers.EscapeMarkdownV2(translation.Translate("Alert set: %s", b.deps.Alerts.Describe(a))), nil
	case "del", "delete", "rm":
		n, err := strconv.Atoi(strings.TrimSpace(rest))
		if err != nil {
			return "", alert.ErrNoSuchAlert
		}
		a, err := b.deps.Alerts.Delete(chatID, n)
		if err != nil {
			return "", err
		}
		return helpers.EscapeMarkdownV2(translation.Translate("Alert removed: %s", b.deps.Alerts.Describe(a))), nil
	case "list", "":
		return b.listAlerts(chatID)
	default:
		return "", alert.ErrUsage
	}
}

func (b *Bot) listAlerts(chatID int64) (string, error) {
	alerts, err := b.deps.Alerts.List(chatID)
	if err != nil {
		return "", err
	}
	if len(alerts) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("You have no active alerts.")), nil
	}

	var list strings.Builder
	list.WriteString("*" + helpers.EscapeMarkdownV2(translation.Translate("Active alerts:")) + "*\n")
	for i, a := range alerts {
		list.WriteString(fmt.Sprintf("%d\\. %s _%s_\n",
			i+1,
			helpers.EscapeMarkdownV2(b.deps.Alerts.Describe(a)),
			helpers.EscapeMarkdownV2(helpers.FormatDate(a.CreatedAt)),
		))
	}
	return strings.TrimRight(list.String(), "\n"), nil
}

func (b *Bot) airdrops(ctx context.Context, query string) string {
	items := b.deps.Airdrops.Fetch(ctx, query, airdrop.DefaultLimit)
	if len(items) == 0 {
		return helpers.EscapeMarkdownV2(translation.Translate("No matching airdrops right now."))
	}

	parts := make([]string, 0, len(items))
	for _, it := range items {
		summary := helpers.Truncate(it.Summary, 280)
		if b.deps.Assistant.Enabled() {
			source := it.Summary
			if source == "" {
				source = it.Title
			}
			if s, err := b.deps.Assistant.Summarize(ctx, source); err == nil {
				summary = s
			} else {
				log.WithError(err).WithField("link", it.Link).Warn("airdrop summary failed")
			}
		}

		part := "▫️ *" + helpers.EscapeMarkdownV2(it.Title) + "*\n"
		if summary != "" {
			part += helpers.EscapeMarkdownV2(summary) + "\n"
		}
		part += helpers.EscapeMarkdownV2(it.Link)
		parts = append(parts, part)
	}
	return "🎁 *" + helpers.EscapeMarkdownV2(translation.Translate("Potential airdrops")) + "*\n\n" + strings.Join(parts, "\n\n")
}

// InlineArticle answers "<symbol>[ /fiat]" typed after the bot's username.
func (b *Bot) InlineArticle(ctx context.Context, id, query string) (tgbotapi.InlineQueryResultArticle, bool) {
	query = strings.TrimSpace(strings.ReplaceAll(query, "/", " "))
	if query == "" {
		return tgbotapi.InlineQueryResultArticle{}, false
	}

	text, err := b.deps.Commands.Price(ctx, query, b.Config.DefaultFiat)
	if err != nil {
		log.WithError(err).WithField("query", query).Debug("inline query not answered")
		return tgbotapi.InlineQueryResultArticle{}, false
	}

	title := "💰 " + strings.ToUpper(query)
	return tgbotapi.NewInlineQueryResultArticleMarkdownV2(id, title, text), true
}

func (b *Bot) errorText(err error) string {
	var usage usageError
	switch {
	case errors.As(err, &usage):
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: %s", usage.usage))
	case errors.Is(err, alert.ErrUsage):
		return helpers.EscapeMarkdownV2(translation.Translate("Usage: %s", "/alert add <symbol> [fiat] above|below <price>, /alert del <n>"))
	case errors.Is(err, alert.ErrNoSuchAlert):
		return helpers.EscapeMarkdownV2(translation.Translate("No such alert. See /alerts for the numbers."))
	}
	return b.deps.Commands.ErrorText(err)
}

type usageError struct {
	usage string
}

func (e usageError) Error() string { return "usage: " + e.usage }

func usageOr(err error, usage string) error {
	if errors.Is(err, commands.ErrUsage) {
		return usageError{usage: usage}
	}
	return err
}

func allowedList(v *fiat.Validator, sep string) string {
	var codes []string
	for _, c := range v.Allowed() {
		codes = append(codes, c.String())
	}
	return strings.Join(codes, sep)
}
