package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/snapshelf/internal/ingest"
	"github.com/rs/zerolog/log"
)

// handlePhotoMessage runs a photo through the ingestion pipeline and sends
// one draft message per detected item.
func (b *Bot) handlePhotoMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	photo := largestPhoto(message.Photo)

	typingCtx, stopTyping := context.WithCancel(ctx)
	defer stopTyping()
	go session.startTypingLoop(typingCtx)

	image, err := b.downloader.DownloadFromTelegramFileID(ctx, b.tg.GetFileDirectURL, photo.FileID)
	if err != nil {
		session.replyWithError(fmt.Errorf("failed to download photo: %w", err))
		return
	}

	location := b.storageLocation(session.userId)

	ingestCtx, cancel := context.WithTimeout(ctx, b.ingestTimeout)
	defer cancel()
	result, err := b.ingester.IngestFromImage(ingestCtx, image, location)
	stopTyping()
	if err != nil {
		session.replyWithError(err)
		return
	}
	if !result.Success {
		log.Info().Int64("userId", session.userId).Str("reason", result.ErrorMessage).Msg("photo ingestion failed")
		session.replyPlain(result.ErrorMessage)
		return
	}

	drafts, err := b.store.CreateDrafts(ingest.BuildDrafts(ownerID(session.userId), location, b.detectedBy, result.Items))
	if err != nil {
		session.replyWithError(err)
		return
	}

	log.Info().Int64("userId", session.userId).Int("drafts", len(drafts)).Str("location", location).Msg("created drafts from photo")
	session.reply(MsgDraftsCreated, pluralize("item", "items", len(drafts)))
	for _, draft := range drafts {
		b.sendDraftMessage(session, draft)
	}
}

// largestPhoto picks the highest resolution variant Telegram sent.
func largestPhoto(sizes []tgbotapi.PhotoSize) tgbotapi.PhotoSize {
	best := sizes[0]
	for _, p := range sizes[1:] {
		if p.Width*p.Height > best.Width*best.Height {
			best = p
		}
	}
	return best
}
