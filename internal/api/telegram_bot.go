// Package api provides handlers for external APIs and interfaces
package api

import (
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/abelzeko/aqualim-harvester/internal/usecases"
)

// TelegramBot handles interactions with the Telegram API
type TelegramBot struct {
	bot     *tgbotapi.BotAPI
	useCase *usecases.StationQueryUseCase
	log     *zap.SugaredLogger
}

// NewTelegramBot creates a new Telegram bot handler
func NewTelegramBot(botToken string, useCase *usecases.StationQueryUseCase, log *zap.SugaredLogger) (*TelegramBot, error) {
	bot, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %v", err)
	}

	return &TelegramBot{
		bot:     bot,
		useCase: useCase,
		log:     log,
	}, nil
}

// Start begins listening for and handling Telegram messages
func (t *TelegramBot) Start() {
	t.log.Infow("Authorized on Telegram account", "username", t.bot.Self.UserName)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)
	t.log.Info("Bot is now listening for messages...")

	for update := range updates {
		if update.Message == nil {
			continue
		}

		t.log.Infow("Received message",
			"from", update.Message.From.UserName,
			"id", update.Message.From.ID,
			"text", update.Message.Text)

		t.handleMessage(update)
	}
}

// handleMessage processes a Telegram message update
func (t *TelegramBot) handleMessage(update tgbotapi.Update) {
	msg := tgbotapi.NewMessage(update.Message.Chat.ID, "")

	switch {
	case update.Message.IsCommand():
		t.handleCommand(update.Message, &msg)
	default:
		t.handleNonCommand(update.Message, &msg)
	}

	if _, err := t.bot.Send(msg); err != nil {
		t.log.Errorw("Error sending message", "error", err)
	}
}

// handleCommand processes commands like /start, /help, etc.
func (t *TelegramBot) handleCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	switch message.Command() {
	case "start":
		msg.Text = "Welcome to the Aqualim bot! Use /rivers to see the list of monitored rivers or /help for more information."

	case "help":
		msg.Text = "Available commands:\n" +
			"/start - Start the bot\n" +
			"/rivers - Show the list of rivers\n" +
			"/river [name] - Show the latest measurements for a river\n" +
			"/help - Show this help message"

	case "rivers":
		t.handleRiversCommand(msg)

	case "river":
		t.handleRiverCommand(message.CommandArguments(), msg)

	default:
		t.log.Infow("Received unknown command", "command", message.Command(), "from", message.From.UserName)
		msg.Text = "Unknown command. Use /help to see available commands."
	}
}

// handleRiversCommand processes the /rivers command
func (t *TelegramBot) handleRiversCommand(msg *tgbotapi.MessageConfig) {
	rivers, err := t.useCase.GetAvailableRivers()
	if err != nil {
		msg.Text = "Error fetching river data. Please try again later."
		t.log.Errorw("Error fetching rivers", "error", err)
		return
	}

	lastUpdate, _ := t.useCase.GetLastUpdateTime()

	msg.Text = "Monitored rivers:\n\n"
	for _, river := range rivers {
		msg.Text += "• " + river + "\n"
	}
	msg.Text += "\nUse /river [name] to get detailed information."
	msg.Text += fmt.Sprintf("\n\n🕒 Last update: %s", lastUpdate.Format("2006-01-02 15:04:05"))
}

// handleRiverCommand processes the /river [name] command
func (t *TelegramBot) handleRiverCommand(args string, msg *tgbotapi.MessageConfig) {
	if args == "" {
		msg.Text = "Please specify a river name. Example: /river AMBLEVE"
		return
	}

	stations, err := t.useCase.GetStationsByRiver(args)
	if err != nil {
		msg.Text = "Error fetching river data. Please try again later."
		t.log.Errorw("Error fetching stations", "river", args, "error", err)
		return
	}

	if len(stations) == 0 {
		msg.Text = fmt.Sprintf("No information found for river '%s'. Use /rivers to see the available rivers.", args)
		return
	}

	msg.Text = t.useCase.FormatRiverInfo(strings.ToUpper(strings.TrimSpace(args)), stations)
}

// handleNonCommand processes regular messages
func (t *TelegramBot) handleNonCommand(message *tgbotapi.Message, msg *tgbotapi.MessageConfig) {
	if strings.HasPrefix(message.Text, "/river ") {
		t.handleRiverCommand(strings.TrimPrefix(message.Text, "/river "), msg)
		return
	}

	msg.Text = "I don't understand. Use /help to see available commands."
}
