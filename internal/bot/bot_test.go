package bot

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/snapshelf/internal/food"
	"github.com/raine/snapshelf/internal/ingest"
	"github.com/raine/snapshelf/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type botApiMock struct {
	mock.Mock
}

func (m *botApiMock) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	args := m.Called(c)
	return args.Get(0).(tgbotapi.Message), args.Error(1)
}

func (m *botApiMock) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	args := m.Called(c)
	return args.Get(0).(*tgbotapi.APIResponse), args.Error(1)
}

func (m *botApiMock) GetFileDirectURL(fileID string) (string, error) {
	args := m.Called(fileID)
	return args.Get(0).(string), args.Error(1)
}

type stubIngester struct {
	mu       sync.Mutex
	result   *ingest.Result
	err      error
	image    []byte
	location string
}

func (s *stubIngester) IngestFromImage(ctx context.Context, image []byte, storageLocation string) (*ingest.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.image = image
	s.location = storageLocation
	return s.result, s.err
}

func setup(t *testing.T) (int64, *botApiMock, *Bot, *storage.SQLiteStore, *stubIngester) {
	t.Helper()
	userId := int64(1)
	tg := new(botApiMock)

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "bot.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ingester := &stubIngester{}
	bot := NewBot(tg, store, ingester, userId).WithDetectedBy("Gemini")
	bot.now = func() time.Time { return time.Date(2026, 10, 17, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(bot.Shutdown)

	return userId, tg, bot, store, ingester
}

// draftShownBy returns the draft a chat message was tracked for.
func draftShownBy(t *testing.T, store *storage.SQLiteStore, userId int64, messageID int) string {
	t.Helper()
	draftID, err := store.DraftForMessage(userId, messageID)
	require.NoError(t, err)
	return draftID
}

func makeUpdateWithMessageText(userId int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userId},
			Text: text,
		},
	}
}

func makeCallbackUpdate(userId int64, messageID int, data string) tgbotapi.Update {
	return tgbotapi.Update{
		CallbackQuery: &tgbotapi.CallbackQuery{
			ID:      "cb-1",
			From:    &tgbotapi.User{ID: userId},
			Message: &tgbotapi.Message{MessageID: messageID},
			Data:    data,
		},
	}
}

func makeMessage(userId int64, text string) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(userId, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	return msg
}

func makeEdit(userId int64, messageID int, text string) tgbotapi.EditMessageTextConfig {
	edit := tgbotapi.NewEditMessageText(userId, messageID, text)
	edit.ParseMode = tgbotapi.ModeMarkdown
	return edit
}

func ptr[T any](v T) *T { return &v }

func createDraft(t *testing.T, store *storage.SQLiteStore, d storage.Draft) storage.Draft {
	t.Helper()
	created, err := store.CreateDrafts([]storage.Draft{d})
	require.NoError(t, err)
	return created[0]
}

func completeDraft(userId int64) storage.Draft {
	expires := time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)
	return storage.Draft{
		OwnerID:        ownerID(userId),
		Name:           "Milk",
		Quantity:       ptr(1.0),
		Unit:           "Liters",
		ExpirationDate: &expires,
		Category:       "dairy",
		Location:       "fridge",
		Source:         storage.SourceImage,
	}
}

func TestHandleUpdate_NotAllowedUserIsDropped(t *testing.T) {
	_, tg, bot, _, _ := setup(t)

	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(999, "/start"))

	tg.AssertExpectations(t)
	tg.AssertNotCalled(t, "Send", mock.Anything)
	assert.Empty(t, bot.state.sessions)
}

func TestHandleUpdate_AllowedUserStart(t *testing.T) {
	_, tg, bot, store, _ := setup(t)
	require.NoError(t, store.AddAllowedUser(2, 1))

	tg.On("Send", makeMessage(2, formatReplyText(MsgStart))).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(2, "/start"))
	tg.AssertExpectations(t)
}

func TestHandleUpdate_UnknownTextGetsPrompt(t *testing.T) {
	userId, tg, bot, _, _ := setup(t)

	tg.On("Send", makeMessage(userId, MsgStartPrompt)).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "hello"))
	tg.AssertExpectations(t)
}

func TestHandleUpdate_Version(t *testing.T) {
	userId, tg, bot, _, _ := setup(t)

	tg.On("Send", makeMessage(userId, fmt.Sprintf(MsgVersionInfo, Version, BuildTime))).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/version"))
	tg.AssertExpectations(t)
}

func TestLocationCommand(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)

	tg.On("Send", makeMessage(userId, formatReplyText(MsgLocationCurrent, "fridge"))).Return(tgbotapi.Message{}, nil).Once()
	tg.On("Send", makeMessage(userId, formatReplyText(MsgLocationUpdated, "freezer"))).Return(tgbotapi.Message{}, nil).Once()
	tg.On("Send", makeMessage(userId, MsgLocationInvalid)).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/location"))
	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/location Freezer"))
	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/location garage"))
	tg.AssertExpectations(t)

	location, err := store.GetStorageLocation(userId)
	require.NoError(t, err)
	assert.Equal(t, "freezer", location)
}

func TestRemindersCommand(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)

	tg.On("Send", makeMessage(userId, formatReplyText(MsgRemindersOn))).Return(tgbotapi.Message{}, nil).Once()
	tg.On("Send", makeMessage(userId, formatReplyText(MsgRemindersOff))).Return(tgbotapi.Message{}, nil).Once()
	tg.On("Send", makeMessage(userId, formatReplyText(MsgRemindersInvalid))).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/reminders"))
	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/reminders OFF"))
	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/reminders sometimes"))
	tg.AssertExpectations(t)

	enabled, err := store.RemindersEnabled(userId)
	require.NoError(t, err)
	assert.False(t, enabled)
}

func TestAdminCommand(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)

	tg.On("Send", makeMessage(userId, formatReplyText(MsgAdminUserAdded, 42))).Return(tgbotapi.Message{}, nil).Once()
	tg.On("Send", makeMessage(userId, MsgAdminUserInvalidID)).Return(tgbotapi.Message{}, nil).Once()
	tg.On("Send", makeMessage(userId, MsgAdminUsage)).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/admin add 42"))
	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/admin add abc"))
	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/admin"))
	tg.AssertExpectations(t)

	allowed, err := store.IsUserAllowed(42)
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestAdminCommand_IgnoredForNonAdmin(t *testing.T) {
	_, tg, bot, store, _ := setup(t)
	require.NoError(t, store.AddAllowedUser(2, 1))

	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(2, "/admin add 3"))

	tg.AssertNotCalled(t, "Send", mock.Anything)
	allowed, err := store.IsUserAllowed(3)
	require.NoError(t, err)
	assert.False(t, allowed)
}

func newPhotoServer(t *testing.T, body []byte) *httptest.Server {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func makePhotoUpdate(userId int64) tgbotapi.Update {
	return tgbotapi.Update{
		Message: &tgbotapi.Message{
			MessageID: 10,
			From:      &tgbotapi.User{ID: userId},
			Photo: []tgbotapi.PhotoSize{
				{FileID: "small", Width: 90, Height: 120},
				{FileID: "large", Width: 960, Height: 1280},
				{FileID: "medium", Width: 320, Height: 427},
			},
		},
	}
}

func TestPhoto_CreatesDrafts(t *testing.T) {
	userId, tg, bot, store, ingester := setup(t)
	require.NoError(t, store.SetStorageLocation(userId, "pantry"))

	image := []byte{0xFF, 0xD8, 0xFF, 0xE0}
	ts := newPhotoServer(t, image)

	ingester.result = &ingest.Result{
		Success: true,
		Items: []ingest.Prediction{
			{Name: "Rice", Category: "", PredictedExpiry: "2026-11-16", ConfidenceScore: 0.75, Reasoning: "No category rule; default shelf life for 'pantry'", Quantity: ptr(1.0), Unit: food.UnitKilograms},
			{Name: "Bread", Category: food.CategoryBakery, PredictedExpiry: "2026-10-22", ConfidenceScore: 0.75, Reasoning: "Based on category 'bakery' stored in 'pantry'"},
		},
	}

	tg.On("GetFileDirectURL", "large").Return(ts.URL+"/large.jpg", nil).Once()
	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil).Maybe()
	tg.On("Send", makeMessage(userId, formatReplyText(MsgDraftsCreated, "2 items"))).Return(tgbotapi.Message{MessageID: 20}, nil).Once()
	tg.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 21}, nil).Once()
	tg.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 22}, nil).Once()

	bot.handleUpdateSync(context.Background(), makePhotoUpdate(userId))
	tg.AssertExpectations(t)

	assert.Equal(t, image, ingester.image)
	assert.Equal(t, "pantry", ingester.location)

	drafts, err := store.ListDrafts(ownerID(userId))
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "Rice", drafts[0].Name)
	assert.Equal(t, "Kilograms", drafts[0].Unit)
	assert.Equal(t, "pantry", drafts[0].Location)
	assert.Contains(t, drafts[0].Notes, "[Image detection - Gemini]")
	assert.Equal(t, "bakery", drafts[1].Category)

	assert.Equal(t, drafts[0].ID, draftShownBy(t, store, userId, 21))
	assert.Equal(t, drafts[1].ID, draftShownBy(t, store, userId, 22))
}

func TestPhoto_FailedResultRepliesVerbatim(t *testing.T) {
	userId, tg, bot, store, ingester := setup(t)
	ts := newPhotoServer(t, []byte{0x89, 0x50, 0x4E, 0x47})

	ingester.result = &ingest.Result{Success: false, ErrorMessage: ingest.NoItemsMessage}

	tg.On("GetFileDirectURL", "large").Return(ts.URL+"/large.png", nil).Once()
	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil).Maybe()
	tg.On("Send", tgbotapi.NewMessage(userId, ingest.NoItemsMessage)).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makePhotoUpdate(userId))
	tg.AssertExpectations(t)

	assert.Equal(t, "fridge", ingester.location)
	drafts, err := store.ListDrafts(ownerID(userId))
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestPhoto_IngestErrorRepliesWithError(t *testing.T) {
	userId, tg, bot, _, ingester := setup(t)
	ts := newPhotoServer(t, []byte{0xFF, 0xD8, 0xFF})

	ingester.err = fmt.Errorf("predict expiry for %q: boom", "Milk")

	tg.On("GetFileDirectURL", "large").Return(ts.URL+"/large.jpg", nil).Once()
	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil).Maybe()
	tg.On("Send", tgbotapi.NewMessage(userId, fmt.Sprintf(MsgUnexpectedErr, ingester.err))).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makePhotoUpdate(userId))
	tg.AssertExpectations(t)
}

func TestDraftCallback_Confirm(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)
	draft := createDraft(t, store, completeDraft(userId))

	tg.On("Request", tgbotapi.NewCallback("cb-1", "")).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()
	tg.On("Send", makeEdit(userId, 55, fmt.Sprintf(MsgDraftConfirmed, "Milk"))).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeCallbackUpdate(userId, 55, "draft:confirm:"+draft.ID))
	tg.AssertExpectations(t)

	items, err := store.ListInventory(ownerID(userId))
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Milk", items[0].Name)

	remaining, err := store.GetDraft(ownerID(userId), draft.ID)
	require.NoError(t, err)
	assert.Nil(t, remaining)
}

func TestDraftCallback_ConfirmIncomplete(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)
	draft := createDraft(t, store, storage.Draft{
		OwnerID:  ownerID(userId),
		Name:     "Apples",
		Category: "fruits",
		Location: "fridge",
	})

	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()
	tg.On("Send", makeMessage(userId, formatReplyText(MsgDraftIncomplete, "Apples", `quantity, unit, expiration\_date`))).
		Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeCallbackUpdate(userId, 56, "draft:confirm:"+draft.ID))
	tg.AssertExpectations(t)

	items, err := store.ListInventory(ownerID(userId))
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestDraftCallback_ConfirmMissingDraft(t *testing.T) {
	userId, tg, bot, _, _ := setup(t)

	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()
	tg.On("Send", makeEdit(userId, 57, MsgDraftGone)).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeCallbackUpdate(userId, 57, "draft:confirm:does-not-exist"))
	tg.AssertExpectations(t)
}

func TestDraftCallback_Discard(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)
	draft := createDraft(t, store, completeDraft(userId))

	tg.On("Request", mock.Anything).Return(&tgbotapi.APIResponse{Ok: true}, nil).Once()
	tg.On("Send", makeEdit(userId, 58, fmt.Sprintf(MsgDraftDiscarded, "Milk"))).Return(tgbotapi.Message{}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeCallbackUpdate(userId, 58, "draft:discard:"+draft.ID))
	tg.AssertExpectations(t)

	drafts, err := store.ListDrafts(ownerID(userId))
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestDraftEdit_ReplyUpdatesDraft(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)
	draft := createDraft(t, store, storage.Draft{OwnerID: ownerID(userId), Name: "Apples"})

	require.NoError(t, store.TrackDraftMessage(userId, 77, draft.ID))

	tg.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 78}, nil).Once()

	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:           &tgbotapi.User{ID: userId},
			Text:           "qty 2 kg\ncategory Fruits\nexpires 2026-11-01",
			ReplyToMessage: &tgbotapi.Message{MessageID: 77},
		},
	}
	bot.handleUpdateSync(context.Background(), update)
	tg.AssertExpectations(t)

	updated, err := store.GetDraft(ownerID(userId), draft.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, 2.0, *updated.Quantity)
	assert.Equal(t, "Kilograms", updated.Unit)
	assert.Equal(t, "fruits", updated.Category)
	assert.Equal(t, "2026-11-01", updated.ExpirationDate.Format(storage.DateLayout))
	assert.Equal(t, draft.ID, draftShownBy(t, store, userId, 78))
}

func TestDraftEdit_InvalidEdit(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)
	draft := createDraft(t, store, storage.Draft{OwnerID: ownerID(userId), Name: "Apples"})

	require.NoError(t, store.TrackDraftMessage(userId, 80, draft.ID))

	tg.On("Send", tgbotapi.NewMessage(userId, fmt.Sprintf(MsgDraftEditInvalid, `unknown unit "buckets"`))).Return(tgbotapi.Message{}, nil).Once()

	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:           &tgbotapi.User{ID: userId},
			Text:           "qty 3 buckets",
			ReplyToMessage: &tgbotapi.Message{MessageID: 80},
		},
	}
	bot.handleUpdateSync(context.Background(), update)
	tg.AssertExpectations(t)
}

func TestDraftEdit_ReplyToUnknownMessage(t *testing.T) {
	userId, tg, bot, _, _ := setup(t)

	tg.On("Send", makeMessage(userId, MsgDraftEditNotFound)).Return(tgbotapi.Message{}, nil).Once()

	update := tgbotapi.Update{
		Message: &tgbotapi.Message{
			From:           &tgbotapi.User{ID: userId},
			Text:           "qty 2",
			ReplyToMessage: &tgbotapi.Message{MessageID: 1234},
		},
	}
	bot.handleUpdateSync(context.Background(), update)
	tg.AssertExpectations(t)
}

func TestDraftEdit_ReplyAfterRestart(t *testing.T) {
	userId, tg, bot, store, ingester := setup(t)
	draft := createDraft(t, store, storage.Draft{OwnerID: ownerID(userId), Name: "Apples"})

	tg.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 95}, nil).Once()
	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/drafts"))
	bot.Shutdown()

	// A new process over the same database still knows message 95
	restarted := NewBot(tg, store, ingester, userId).WithDetectedBy("Gemini")
	t.Cleanup(restarted.Shutdown)
	tg.On("Send", mock.AnythingOfType("tgbotapi.MessageConfig")).Return(tgbotapi.Message{MessageID: 96}, nil).Once()

	restarted.handleUpdateSync(context.Background(), makeReplyUpdate(userId, 95, "qty 4"))
	tg.AssertExpectations(t)

	updated, err := store.GetDraft(ownerID(userId), draft.ID)
	require.NoError(t, err)
	require.NotNil(t, updated)
	require.NotNil(t, updated.Quantity)
	assert.Equal(t, 4.0, *updated.Quantity)
}

func TestDraftEdit_ReplyToConfirmedDraft(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)
	draft := createDraft(t, store, completeDraft(userId))
	require.NoError(t, store.TrackDraftMessage(userId, 97, draft.ID))

	_, err := store.ConfirmDraft(ownerID(userId), draft.ID)
	require.NoError(t, err)

	tg.On("Send", makeMessage(userId, MsgDraftEditNotFound)).Return(tgbotapi.Message{}, nil).Once()
	bot.handleUpdateSync(context.Background(), makeReplyUpdate(userId, 97, "qty 2"))
	tg.AssertExpectations(t)
}

func TestDraftsCommand(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)

	tg.On("Send", makeMessage(userId, MsgNoDrafts)).Return(tgbotapi.Message{}, nil).Once()
	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/drafts"))
	tg.AssertExpectations(t)

	draft := createDraft(t, store, completeDraft(userId))
	expected := makeMessage(userId, formatDraftMessage(draft))
	expected.ReplyMarkup = draftKeyboard(draft.ID)
	tg.On("Send", expected).Return(tgbotapi.Message{MessageID: 90}, nil).Once()

	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/drafts"))
	tg.AssertExpectations(t)
	assert.Equal(t, draft.ID, draftShownBy(t, store, userId, 90))
}

func TestInventoryCommand(t *testing.T) {
	userId, tg, bot, store, _ := setup(t)

	tg.On("Send", makeMessage(userId, MsgInventoryEmpty)).Return(tgbotapi.Message{}, nil).Once()
	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/inventory"))
	tg.AssertExpectations(t)

	draft := createDraft(t, store, completeDraft(userId))
	_, err := store.ConfirmDraft(ownerID(userId), draft.ID)
	require.NoError(t, err)

	tg.On("Send", makeMessage(userId, "*Inventory* (1 item)\n\n• *Milk* 1 Liters, fridge, expires 2026-10-24")).
		Return(tgbotapi.Message{}, nil).Once()
	bot.handleUpdateSync(context.Background(), makeUpdateWithMessageText(userId, "/inventory"))
	tg.AssertExpectations(t)
}
