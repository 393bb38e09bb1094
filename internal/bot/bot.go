// Package bot is the Telegram front end: photos become drafts with inline
// confirm/discard buttons, and confirmed drafts land in the user's inventory.
package bot

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/snapshelf/internal/expiry"
	"github.com/raine/snapshelf/internal/ingest"
	"github.com/raine/snapshelf/internal/storage"
	"github.com/rs/zerolog/log"
)

// DefaultIngestTimeout bounds a single photo ingestion.
const DefaultIngestTimeout = 90 * time.Second

// Set at build time with -ldflags "-X github.com/raine/snapshelf/internal/bot.Version=..."
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Ingester runs the photo ingestion pipeline.
type Ingester interface {
	IngestFromImage(ctx context.Context, image []byte, storageLocation string) (*ingest.Result, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg            BotAPI
	state         BotState
	store         storage.Store
	ingester      Ingester
	downloader    *ImageDownloader
	adminID       int64
	detectedBy    string
	ingestTimeout time.Duration
	now           func() time.Time
}

// NewBot creates a new Bot instance.
func NewBot(tg BotAPI, store storage.Store, ingester Ingester, adminID int64) *Bot {
	bot := &Bot{
		tg:            tg,
		store:         store,
		ingester:      ingester,
		downloader:    NewImageDownloader(),
		adminID:       adminID,
		detectedBy:    "vision",
		ingestTimeout: DefaultIngestTimeout,
		now:           time.Now,
	}
	bot.state = bot.NewBotState()
	return bot
}

// WithDetectedBy sets the provider name recorded in draft notes.
func (b *Bot) WithDetectedBy(name string) *Bot {
	b.detectedBy = name
	return b
}

// WithIngestTimeout sets the time limit for one photo ingestion.
func (b *Bot) WithIngestTimeout(d time.Duration) *Bot {
	b.ingestTimeout = d
	return b
}

// WithDownloader replaces the Telegram file downloader.
func (b *Bot) WithDownloader(d *ImageDownloader) *Bot {
	b.downloader = d
	return b
}

// Shutdown stops all session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	if update.CallbackQuery != nil && update.CallbackQuery.From != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	// Whitelist check MUST come before getUserSession so random user IDs
	// cannot allocate sessions
	if userId != b.adminID {
		allowed, err := b.store.IsUserAllowed(userId)
		if err != nil {
			log.Error().Err(err).Int64("user_id", userId).Msg("whitelist check failed")
			return // Fail closed
		}
		if !allowed {
			return // Silent drop
		}
	}

	session := b.state.getUserSession(userId)

	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          "callback",
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	log.Info().Int64("userId", userId).Str("text", update.Message.Text).Int("photos", len(update.Message.Photo)).Msg("got message")

	if len(update.Message.Photo) > 0 {
		send(SessionMessage{
			Type:    "photo",
			Ctx:     ctx,
			Message: update.Message,
		})
	} else {
		send(SessionMessage{
			Type:    "text",
			Ctx:     ctx,
			Message: update.Message,
			Text:    update.Message.Text,
		})
	}
}

// HandleSessionMessage implements MessageHandler.
// It runs on the session worker goroutine, so session state needs no locking.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "callback":
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case "photo":
		b.handlePhotoMessage(ctx, session, msg.Message)
	case "text":
		b.handleTextMessage(ctx, session, msg.Message)
	}
}

// handleTextMessage processes text messages.
func (b *Bot) handleTextMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	if message.ReplyToMessage != nil && !strings.HasPrefix(message.Text, "/") {
		draftID, err := b.store.DraftForMessage(session.userId, message.ReplyToMessage.MessageID)
		switch {
		case err != nil:
			session.replyWithError(err)
		case draftID == "":
			session.reply(MsgDraftEditNotFound)
		default:
			b.handleDraftEdit(session, draftID, message.Text)
		}
		return
	}

	b.handleCommand(ctx, session, message)
}

// handleCommand processes bot commands.
func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	switch command {
	case "/start", "/help":
		session.reply(MsgStart)
	case "/drafts":
		b.handleDraftsCommand(session)
	case "/inventory":
		b.handleInventoryCommand(session)
	case "/location":
		b.handleLocationCommand(session, args)
	case "/reminders":
		b.handleRemindersCommand(session, args)
	case "/admin":
		b.handleAdminCommand(session, args)
	case "/version":
		session.reply(MsgVersionInfo, Version, BuildTime)
	default:
		session.reply(MsgStartPrompt)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	callback := tgbotapi.NewCallback(query.ID, "")
	if _, err := b.tg.Request(callback); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback query")
	}

	if strings.HasPrefix(query.Data, draftCallbackPrefix) {
		b.handleDraftCallback(session, query)
		return
	}
	log.Warn().Str("data", query.Data).Msg("unknown callback data")
}

// storageLocation returns the user's default storage location for new photos.
func (b *Bot) storageLocation(userId int64) string {
	location, err := b.store.GetStorageLocation(userId)
	if err != nil {
		log.Warn().Err(err).Int64("userId", userId).Msg("failed to get storage location")
	}
	if location == "" {
		return expiry.LocationFridge
	}
	return location
}

// handleLocationCommand handles /location - show or set the default storage location.
func (b *Bot) handleLocationCommand(session *UserSession, args []string) {
	if len(args) == 0 {
		session.reply(MsgLocationCurrent, b.storageLocation(session.userId))
		return
	}

	location := strings.ToLower(strings.TrimSpace(args[0]))
	if !slices.Contains(expiry.Locations, location) {
		session.reply(MsgLocationInvalid)
		return
	}
	if err := b.store.SetStorageLocation(session.userId, location); err != nil {
		session.replyWithError(err)
		return
	}
	session.reply(MsgLocationUpdated, location)
}

func (b *Bot) handleRemindersCommand(session *UserSession, args []string) {
	if len(args) == 0 {
		enabled, err := b.store.RemindersEnabled(session.userId)
		if err != nil {
			session.replyWithError(err)
			return
		}
		if enabled {
			session.reply(MsgRemindersOn)
		} else {
			session.reply(MsgRemindersOff)
		}
		return
	}

	var enabled bool
	switch strings.ToLower(args[0]) {
	case "on":
		enabled = true
	case "off":
		enabled = false
	default:
		session.reply(MsgRemindersInvalid)
		return
	}

	if err := b.store.SetRemindersEnabled(session.userId, enabled); err != nil {
		session.replyWithError(err)
		return
	}
	if enabled {
		session.reply(MsgRemindersOn)
	} else {
		session.reply(MsgRemindersOff)
	}
}

// handleAdminCommand handles /admin command with subcommands.
// Only the admin user can use this command.
func (b *Bot) handleAdminCommand(session *UserSession, args []string) {
	// Verify caller is admin even though the whitelist check passed
	if session.userId != b.adminID {
		return
	}

	if len(args) == 0 {
		session.reply(MsgAdminUsage)
		return
	}

	switch args[0] {
	case "add", "remove":
		if len(args) < 2 {
			session.reply(MsgAdminUsage)
			return
		}
		userID, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			session.reply(MsgAdminUserInvalidID)
			return
		}
		if args[0] == "add" {
			if err := b.store.AddAllowedUser(userID, session.userId); err != nil {
				session.replyWithError(err)
				return
			}
			session.reply(MsgAdminUserAdded, userID)
			return
		}
		if err := b.store.RemoveAllowedUser(userID); err != nil {
			session.replyWithError(err)
			return
		}
		session.reply(MsgAdminUserRemoved, userID)

	case "list":
		users, err := b.store.GetAllowedUsers()
		if err != nil {
			session.replyWithError(err)
			return
		}
		if len(users) == 0 {
			session.reply(MsgAdminNoUsers)
			return
		}
		var sb strings.Builder
		sb.WriteString(MsgAdminAllowedUsers)
		for _, u := range users {
			sb.WriteString(fmt.Sprintf("• `%d` (added %s)\n", u.TelegramID, u.AddedAt.Format(storage.DateLayout)))
		}
		session.reply(sb.String())

	default:
		session.reply(MsgAdminUsage)
	}
}
