package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/iamvkosarev/ye-chat/config"
	"github.com/iamvkosarev/ye-chat/internal/model"
	"github.com/iamvkosarev/ye-chat/pkg/local"
	"github.com/sourcegraph/conc"
	"go.uber.org/zap"
)

var (
	MessageServerError = local.TextSet{
		local.Eng: "Something wrong with me. Try later",
		local.Rus: "Что-то пошло не так. Попробуйте позже",
	}
	MessageUserNoAccess = local.TextSet{
		local.Eng: "You are not allowed to use this bot",
		local.Rus: "У вас нет доступа к этому боту",
	}
	MessageCommandHelp = local.TextSet{
		local.Eng: "Ask Ye anything. Use /new to clear the conversation and start over.",
		local.Rus: "Спросите Ye о чём угодно. Команда /new начинает разговор заново.",
	}
	MessageCommandUnknown = local.TextSet{
		local.Eng: "I don't know that command",
		local.Rus: "Я не знаю такой команды",
	}
)

const (
	CommandStart = "start"
	CommandHelp  = "help"
	CommandNew   = "new"
)

type Bot interface {
	Send(c api.Chattable) (api.Message, error)
	Request(c api.Chattable) (*api.APIResponse, error)
	GetUpdatesChan(config api.UpdateConfig) api.UpdatesChannel
	StopReceivingUpdates()
}

type TelegramUsecaseDeps struct {
	Chat   *ChatUsecase
	Bot    Bot
	Logger *zap.Logger
}

// TelegramUsecase serves every Telegram chat as its own session.
type TelegramUsecase struct {
	TelegramUsecaseDeps
	cfg          config.Telegram
	allowedUsers map[int64]struct{}
}

func NewTelegramUsecase(cfg config.Telegram, deps TelegramUsecaseDeps) (*TelegramUsecase, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	allowedUsers := make(map[int64]struct{}, len(cfg.AllowedTelegramID))
	for _, userID := range cfg.AllowedTelegramID {
		allowedUsers[userID] = struct{}{}
	}

	_, err := deps.Bot.Request(
		api.NewSetMyCommands(
			[]api.BotCommand{
				{
					Command:     CommandHelp,
					Description: "Get help",
				},
				{
					Command:     CommandNew,
					Description: "Clear context and start a new conversation",
				},
			}...,
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to set bot commands: %w", err)
	}

	return &TelegramUsecase{
		TelegramUsecaseDeps: deps,
		cfg:                 cfg,
		allowedUsers:        allowedUsers,
	}, nil
}

func (t *TelegramUsecase) Run(ctx context.Context) error {
	u := api.NewUpdate(0)
	u.Timeout = t.cfg.UpdateTimeout

	updates := t.Bot.GetUpdatesChan(u)
	defer t.Bot.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			if err := t.handleMessage(ctx, update.Message); err != nil {
				t.Logger.Error("error handling message", zap.Error(err))
			}
		}
	}
}

func (t *TelegramUsecase) handleMessage(ctx context.Context, msg *api.Message) error {
	chatID := msg.Chat.ID
	var lang local.Language
	if msg.From != nil {
		lang = local.ParseLanguage(msg.From.LanguageCode)
	}

	if !t.isAllowed(chatID) {
		t.sendMessageAndHandleErr(chatID, MessageUserNoAccess.Text(lang))
		return nil
	}

	if msg.IsCommand() {
		return t.handleCommand(ctx, chatID, lang, msg.Command())
	}
	return t.handleText(ctx, chatID, lang, msg.Text)
}

func (t *TelegramUsecase) isAllowed(chatID int64) bool {
	if len(t.allowedUsers) == 0 {
		return true
	}
	_, ok := t.allowedUsers[chatID]
	return ok
}

func (t *TelegramUsecase) handleCommand(ctx context.Context, chatID int64, lang local.Language, command string) error {
	sessionKey := getSessionKey(chatID)
	switch command {
	case CommandStart:
		transcript, err := t.Chat.Initialize(ctx, sessionKey)
		if err != nil {
			t.sendMessageAndHandleErr(chatID, MessageServerError.Text(lang))
			return fmt.Errorf("failed to initialize session: %w", err)
		}
		t.sendMessageAndHandleErr(chatID, transcript.Messages[0].Content)
	case CommandNew:
		transcript, err := t.Chat.Reset(ctx, sessionKey)
		if err != nil {
			t.sendMessageAndHandleErr(chatID, MessageServerError.Text(lang))
			return fmt.Errorf("failed to reset session: %w", err)
		}
		t.sendMessageAndHandleErr(chatID, transcript.Messages[0].Content)
	case CommandHelp:
		t.sendMessageAndHandleErr(chatID, MessageCommandHelp.Text(lang))
	default:
		t.sendMessageAndHandleErr(chatID, MessageCommandUnknown.Text(lang))
	}
	return nil
}

func (t *TelegramUsecase) handleText(ctx context.Context, chatID int64, lang local.Language, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	sessionKey := getSessionKey(chatID)

	var (
		answer  string
		sendErr error
	)
	wg := conc.NewWaitGroup()
	wg.Go(
		func() {
			if _, err := t.Bot.Request(api.NewChatAction(chatID, api.ChatTyping)); err != nil {
				t.Logger.Warn("failed to send chat action", zap.Int64("chat_id", chatID), zap.Error(err))
			}
		},
	)
	wg.Go(
		func() {
			transcript, err := t.Chat.Submit(ctx, sessionKey, text)
			if err != nil {
				sendErr = err
				return
			}
			if last, ok := transcript.Last(); ok && last.Role == model.MessageRoleAssistant {
				answer = last.Content
			}
		},
	)
	wg.Wait()

	if sendErr != nil {
		var genErr *GenerationError
		if errors.As(sendErr, &genErr) {
			t.sendMessageAndHandleErr(chatID, genErr.Notice())
			return nil
		}
		t.sendMessageAndHandleErr(chatID, MessageServerError.Text(lang))
		return fmt.Errorf("failed to submit message: %w", sendErr)
	}
	if answer == "" {
		return nil
	}
	t.sendMessageAndHandleErr(chatID, answer)
	return nil
}

func (t *TelegramUsecase) sendMessageAndHandleErr(chatID int64, message string) api.Message {
	msg, err := t.sendMessage(chatID, message)
	if err != nil {
		t.Logger.Error("failed to send new message to bot", zap.Int64("chat_id", chatID), zap.Error(err))
	}
	return msg
}

func (t *TelegramUsecase) sendMessage(chatID int64, message string) (api.Message, error) {
	return t.Bot.Send(api.NewMessage(chatID, message))
}

func getSessionKey(chatID int64) string {
	return fmt.Sprintf("telegram_%d", chatID)
}
