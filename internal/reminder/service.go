// Package reminder notifies Telegram users about inventory items that are
// about to expire.
package reminder

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/snapshelf/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	// PollInterval is the time between polling cycles.
	PollInterval = time.Hour

	// DefaultLeadDays is how many days ahead of expiry a reminder is sent.
	DefaultLeadDays = 2

	telegramOwnerPrefix = "tg:"
)

// BotSender abstracts the Telegram bot API for sending messages.
type BotSender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Store is the subset of storage used for reminders.
type Store interface {
	RemindersEnabled(telegramID int64) (bool, error)
	ListUnremindedItems(ownerPrefix string, through time.Time) ([]storage.InventoryItem, error)
	MarkReminded(itemIDs []string, at time.Time) error
}

// Service periodically sends one reminder per item, grouped into a single
// message per user.
type Service struct {
	store    Store
	bot      BotSender
	leadDays int
	now      func() time.Time
}

// NewService creates a reminder service that warns leadDays before expiry.
func NewService(store Store, bot BotSender, leadDays int) *Service {
	return &Service{
		store:    store,
		bot:      bot,
		leadDays: leadDays,
		now:      time.Now,
	}
}

// Run starts the polling loop. It blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) {
	log.Info().Dur("interval", PollInterval).Int("leadDays", s.leadDays).Msg("starting reminder service")

	// Let the bot finish starting before the first poll
	select {
	case <-ctx.Done():
		return
	case <-time.After(5 * time.Second):
	}
	s.poll(ctx)

	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("reminder service stopped")
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

// poll executes one reminder cycle.
func (s *Service) poll(ctx context.Context) {
	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	through := today.AddDate(0, 0, s.leadDays)

	items, err := s.store.ListUnremindedItems(telegramOwnerPrefix, through)
	if err != nil {
		log.Error().Err(err).Msg("failed to fetch expiring items")
		return
	}
	if len(items) == 0 {
		log.Debug().Msg("no items to remind about")
		return
	}

	// Items arrive ordered by owner
	grouped := make(map[string][]storage.InventoryItem)
	var owners []string
	for _, item := range items {
		if _, ok := grouped[item.OwnerID]; !ok {
			owners = append(owners, item.OwnerID)
		}
		grouped[item.OwnerID] = append(grouped[item.OwnerID], item)
	}

	for _, owner := range owners {
		if ctx.Err() != nil {
			return
		}
		s.remindOwner(owner, grouped[owner], today)
	}
}

func (s *Service) remindOwner(ownerID string, items []storage.InventoryItem, today time.Time) {
	userID, err := strconv.ParseInt(strings.TrimPrefix(ownerID, telegramOwnerPrefix), 10, 64)
	if err != nil {
		log.Warn().Str("ownerID", ownerID).Msg("skipping reminders for malformed owner")
		return
	}

	ids := make([]string, len(items))
	for i, item := range items {
		ids[i] = item.ID
	}

	enabled, err := s.store.RemindersEnabled(userID)
	if err != nil {
		log.Error().Err(err).Int64("userID", userID).Msg("failed to check reminders setting")
		return
	}
	if !enabled {
		// Muted users are not reminded later about items that expired meanwhile
		if err := s.store.MarkReminded(ids, s.now()); err != nil {
			log.Error().Err(err).Int64("userID", userID).Msg("failed to mark items reminded")
		}
		return
	}

	msg := tgbotapi.NewMessage(userID, formatReminder(items, today))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := s.bot.Send(msg); err != nil {
		log.Error().Err(err).Int64("userID", userID).Int("items", len(items)).Msg("failed to send reminder")
		return
	}
	log.Info().Int64("userID", userID).Int("items", len(items)).Msg("reminder sent")

	if err := s.store.MarkReminded(ids, s.now()); err != nil {
		log.Error().Err(err).Int64("userID", userID).Msg("failed to mark items reminded")
	}
}

func formatReminder(items []storage.InventoryItem, today time.Time) string {
	var sb strings.Builder
	sb.WriteString("⏰ *Use these soon*\n\n")
	for _, item := range items {
		fmt.Fprintf(&sb, "• *%s* (%s) %s\n",
			tgbotapi.EscapeText(tgbotapi.ModeMarkdown, item.Name),
			item.StorageLocation,
			describeExpiry(item.ExpiryDate, today))
	}
	return strings.TrimSuffix(sb.String(), "\n")
}

func describeExpiry(expiry, today time.Time) string {
	days := int(expiry.Sub(today).Hours() / 24)
	switch {
	case days < -1:
		return fmt.Sprintf("expired %d days ago", -days)
	case days == -1:
		return "expired yesterday"
	case days == 0:
		return "expires today"
	case days == 1:
		return "expires tomorrow"
	default:
		return fmt.Sprintf("expires in %d days", days)
	}
}
