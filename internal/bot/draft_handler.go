package bot

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/snapshelf/internal/expiry"
	"github.com/raine/snapshelf/internal/food"
	"github.com/raine/snapshelf/internal/storage"
	"github.com/rs/zerolog/log"
)

const (
	draftCallbackPrefix = "draft:"
	draftActionConfirm  = "confirm"
	draftActionDiscard  = "discard"
)

func draftCallbackData(action, draftID string) string {
	return draftCallbackPrefix + action + ":" + draftID
}

func draftKeyboard(draftID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(BtnConfirm, draftCallbackData(draftActionConfirm, draftID)),
			tgbotapi.NewInlineKeyboardButtonData(BtnDiscard, draftCallbackData(draftActionDiscard, draftID)),
		),
	)
}

// formatDraftMessage renders a draft as a Markdown message body.
func formatDraftMessage(d storage.Draft) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*%s*\n", escapeMarkdown(d.Name))

	quantity := "?"
	if d.Quantity != nil {
		quantity = formatQuantity(*d.Quantity)
		if d.Unit != "" {
			quantity += " " + d.Unit
		}
	}
	fmt.Fprintf(&sb, "Quantity: %s\n", quantity)
	fmt.Fprintf(&sb, "Category: %s\n", orUnknown(escapeMarkdown(d.Category)))
	fmt.Fprintf(&sb, "Location: %s\n", orUnknown(d.Location))

	expires := "?"
	if d.ExpirationDate != nil {
		expires = d.ExpirationDate.Format(storage.DateLayout)
	}
	fmt.Fprintf(&sb, "Expires: %s", expires)

	if missing := d.MissingFields(); len(missing) > 0 {
		fmt.Fprintf(&sb, "\n\n_Missing: %s_", escapeMarkdown(strings.Join(missing, ", ")))
	}
	return sb.String()
}

func orUnknown(s string) string {
	if s == "" {
		return "?"
	}
	return s
}

// sendDraftMessage sends a draft with confirm/discard buttons and remembers
// the message so replies to it edit the draft.
func (b *Bot) sendDraftMessage(session *UserSession, draft storage.Draft) {
	msg := tgbotapi.NewMessage(session.userId, formatDraftMessage(draft))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = draftKeyboard(draft.ID)
	sent := session.replyWithMessage(msg)
	if sent.MessageID == 0 {
		return
	}
	if err := b.store.TrackDraftMessage(session.userId, sent.MessageID, draft.ID); err != nil {
		log.Error().Err(err).Int64("userId", session.userId).Str("draftId", draft.ID).Msg("failed to track draft message")
	}
}

// handleDraftsCommand handles /drafts - resend every pending draft.
func (b *Bot) handleDraftsCommand(session *UserSession) {
	drafts, err := b.store.ListDrafts(ownerID(session.userId))
	if err != nil {
		session.replyWithError(err)
		return
	}
	if len(drafts) == 0 {
		session.reply(MsgNoDrafts)
		return
	}
	for _, draft := range drafts {
		b.sendDraftMessage(session, draft)
	}
}

// handleDraftCallback handles the confirm and discard buttons.
func (b *Bot) handleDraftCallback(session *UserSession, query *tgbotapi.CallbackQuery) {
	action, draftID, ok := strings.Cut(strings.TrimPrefix(query.Data, draftCallbackPrefix), ":")
	if !ok || draftID == "" {
		log.Warn().Str("data", query.Data).Msg("malformed draft callback")
		return
	}
	owner := ownerID(session.userId)

	switch action {
	case draftActionConfirm:
		item, err := b.store.ConfirmDraft(owner, draftID)
		var incomplete *storage.IncompleteDraftError
		switch {
		case errors.As(err, &incomplete):
			name := draftID
			if draft, _ := b.store.GetDraft(owner, draftID); draft != nil {
				name = draft.Name
			}
			session.reply(MsgDraftIncomplete, escapeMarkdown(name), escapeMarkdown(strings.Join(incomplete.Missing, ", ")))
		case errors.Is(err, storage.ErrNotFound):
			b.editDraftMessage(session, query, MsgDraftGone)
		case err != nil:
			session.replyWithError(err)
		default:
			log.Info().Int64("userId", session.userId).Str("draftId", draftID).Str("itemId", item.ID).Msg("draft confirmed")
			b.editDraftMessage(session, query, fmt.Sprintf(MsgDraftConfirmed, escapeMarkdown(item.Name)))
		}

	case draftActionDiscard:
		draft, err := b.store.GetDraft(owner, draftID)
		if err != nil {
			session.replyWithError(err)
			return
		}
		if draft == nil {
			b.editDraftMessage(session, query, MsgDraftGone)
			return
		}
		err = b.store.DeleteDraft(owner, draftID)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			session.replyWithError(err)
			return
		}
		log.Info().Int64("userId", session.userId).Str("draftId", draftID).Msg("draft discarded")
		b.editDraftMessage(session, query, fmt.Sprintf(MsgDraftDiscarded, escapeMarkdown(draft.Name)))

	default:
		log.Warn().Str("data", query.Data).Msg("unknown draft action")
	}
}

// editDraftMessage replaces the draft message text, which also drops its buttons.
func (b *Bot) editDraftMessage(session *UserSession, query *tgbotapi.CallbackQuery, text string) {
	if query.Message == nil {
		session.replyWithMessage(tgbotapi.MessageConfig{Text: text, ParseMode: tgbotapi.ModeMarkdown})
		return
	}
	edit := tgbotapi.NewEditMessageText(session.userId, query.Message.MessageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.tg.Send(edit); err != nil {
		log.Error().Err(err).Int("messageId", query.Message.MessageID).Msg("failed to edit draft message")
	}
}

// handleDraftEdit applies a reply like "qty 2 kg" to the draft it replies to.
func (b *Bot) handleDraftEdit(session *UserSession, draftID, text string) {
	patch, err := parseDraftEdit(text)
	if err != nil {
		session.replyPlain(fmt.Sprintf(MsgDraftEditInvalid, err))
		return
	}

	draft, err := b.store.UpdateDraft(ownerID(session.userId), draftID, patch)
	if errors.Is(err, storage.ErrNotFound) {
		session.reply(MsgDraftGone)
		return
	}
	if err != nil {
		session.replyWithError(err)
		return
	}

	log.Info().Int64("userId", session.userId).Str("draftId", draftID).Msg("draft edited")
	b.sendDraftMessage(session, *draft)
}

// parseDraftEdit parses one edit directive per line:
//
//	qty 2 kg
//	unit liters
//	category dairy
//	expires 2026-11-01
//	name oat milk
//	location freezer
func parseDraftEdit(text string) (storage.DraftPatch, error) {
	var patch storage.DraftPatch
	var applied bool

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		key, value, _ := strings.Cut(line, " ")
		value = strings.TrimSpace(value)
		if value == "" {
			return patch, fmt.Errorf("missing value for %q", key)
		}

		switch strings.ToLower(key) {
		case "name":
			patch.Name = &value
		case "qty", "quantity":
			fields := strings.Fields(value)
			q, err := strconv.ParseFloat(strings.ReplaceAll(fields[0], ",", "."), 64)
			if err != nil || q < 0 || math.IsInf(q, 0) || math.IsNaN(q) {
				return patch, fmt.Errorf("invalid quantity %q", fields[0])
			}
			patch.Quantity = &q
			if len(fields) > 1 {
				unit, err := parseUnit(strings.Join(fields[1:], " "))
				if err != nil {
					return patch, err
				}
				patch.Unit = &unit
			}
		case "unit":
			unit, err := parseUnit(value)
			if err != nil {
				return patch, err
			}
			patch.Unit = &unit
		case "category", "cat":
			c := string(food.NormalizeCategory(value))
			patch.Category = &c
		case "expires", "expiry", "exp":
			t, err := time.Parse(storage.DateLayout, value)
			if err != nil {
				return patch, fmt.Errorf("expiry must be YYYY-MM-DD, got %q", value)
			}
			patch.ExpirationDate = &t
		case "location", "loc":
			loc := strings.ToLower(value)
			if !slices.Contains(expiry.Locations, loc) {
				return patch, fmt.Errorf("unknown location %q", value)
			}
			patch.Location = &loc
		default:
			return patch, fmt.Errorf("unknown field %q", key)
		}
		applied = true
	}

	if !applied {
		return patch, fmt.Errorf("nothing to change")
	}
	return patch, nil
}

func parseUnit(raw string) (string, error) {
	unit := food.NormalizeUnit(raw)
	if unit == "" {
		return "", fmt.Errorf("unknown unit %q", raw)
	}
	return string(unit), nil
}
