package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/snapshelf/internal/storage"
)

// handleInventoryCommand handles /inventory - list confirmed items, soonest expiry first.
func (b *Bot) handleInventoryCommand(session *UserSession) {
	items, err := b.store.ListInventory(ownerID(session.userId))
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(items) == 0 {
		session.reply(MsgInventoryEmpty)
		return
	}
	session.replyWithMessage(tgbotapi.MessageConfig{
		Text:      formatInventory(items, b.now()),
		ParseMode: tgbotapi.ModeMarkdown,
	})
}

func formatInventory(items []storage.InventoryItem, now time.Time) string {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var sb strings.Builder
	fmt.Fprintf(&sb, MsgInventoryHeader, pluralize("item", "items", len(items)))
	for _, item := range items {
		fmt.Fprintf(&sb, "• *%s* %s %s, %s, expires %s",
			escapeMarkdown(item.Name),
			formatQuantity(item.Quantity),
			item.Unit,
			item.StorageLocation,
			item.ExpiryDate.Format(storage.DateLayout),
		)
		if item.ExpiryDate.Before(today) {
			sb.WriteString(" ⚠️")
		}
		sb.WriteString("\n")
	}
	return strings.TrimRight(sb.String(), "\n")
}
