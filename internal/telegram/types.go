package telegram

import (
	"context"

	"crypto-assistant-bot/internal/airdrop"
	"crypto-assistant-bot/internal/alert"
	"crypto-assistant-bot/internal/commands"
	"crypto-assistant-bot/internal/fiat"
	"crypto-assistant-bot/internal/metrics"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// BotConfig configuration of the bot
type BotConfig struct {
	Token          string
	Debug          bool
	UpdatesTimeout int
	DefaultFiat    fiat.Code
	ProviderName   string
}

// Settings stores per-chat preferences.
type Settings interface {
	GetFiat(chatID int64) (string, error)
	SetFiat(chatID int64, fiat string) error
}

// Assistant is the chat-completion fallback.
type Assistant interface {
	Enabled() bool
	Ask(ctx context.Context, question string) (string, error)
	Reply(ctx context.Context, text string) (string, error)
	Summarize(ctx context.Context, text string) (string, error)
}

// Airdrops lists airdrop announcements.
type Airdrops interface {
	Fetch(ctx context.Context, query string, limit int) []airdrop.Item
}

// Deps are the services the bot dispatches to.
type Deps struct {
	Commands  *commands.Service
	Overview  *commands.Overview
	Alerts    *alert.Service
	Fiats     *fiat.Validator
	Settings  Settings
	Assistant Assistant
	Airdrops  Airdrops
	Metrics   *metrics.BotMetrics
}

// Bot telegram interaction client
type Bot struct {
	API    *tgbotapi.BotAPI
	Config BotConfig
	deps   Deps
}

// Message a telegram message struct
type Message struct {
	ChatID    int64
	MessageID int
	Text      string
	// Plain disables MarkdownV2, for text that is not escaped.
	Plain  bool
	Markup interface{}
}
