package bot

import (
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/snapshelf/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDraftEdit(t *testing.T) {
	expires := time.Date(2026, 11, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		text string
		want storage.DraftPatch
	}{
		{
			name: "quantity with unit",
			text: "qty 2 kg",
			want: storage.DraftPatch{Quantity: ptr(2.0), Unit: ptr("Kilograms")},
		},
		{
			name: "quantity with comma decimal",
			text: "quantity 0,5",
			want: storage.DraftPatch{Quantity: ptr(0.5)},
		},
		{
			name: "unit alone",
			text: "unit ml",
			want: storage.DraftPatch{Unit: ptr("Milliliters")},
		},
		{
			name: "category is normalized",
			text: "category Bread",
			want: storage.DraftPatch{Category: ptr("bakery")},
		},
		{
			name: "unknown category passes through lowercased",
			text: "cat Grains",
			want: storage.DraftPatch{Category: ptr("grains")},
		},
		{
			name: "expiry date",
			text: "expires 2026-11-01",
			want: storage.DraftPatch{ExpirationDate: &expires},
		},
		{
			name: "name keeps spaces",
			text: "name  oat milk ",
			want: storage.DraftPatch{Name: ptr("oat milk")},
		},
		{
			name: "location",
			text: "loc Freezer",
			want: storage.DraftPatch{Location: ptr("freezer")},
		},
		{
			name: "several lines",
			text: "name Oat milk\n\nqty 1 l\nexp 2026-11-01",
			want: storage.DraftPatch{Name: ptr("Oat milk"), Quantity: ptr(1.0), Unit: ptr("Liters"), ExpirationDate: &expires},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseDraftEdit(tt.text)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDraftEdit_Errors(t *testing.T) {
	tests := []struct {
		text    string
		wantErr string
	}{
		{"", "nothing to change"},
		{"qty", `missing value for "qty"`},
		{"qty lots", `invalid quantity "lots"`},
		{"qty -1", `invalid quantity "-1"`},
		{"qty Inf", `invalid quantity "Inf"`},
		{"qty NaN", `invalid quantity "NaN"`},
		{"quantity -infinity", `invalid quantity "-infinity"`},
		{"qty 2 cups", `unknown unit "cups"`},
		{"unit buckets", `unknown unit "buckets"`},
		{"expires tomorrow", `expiry must be YYYY-MM-DD, got "tomorrow"`},
		{"location garage", `unknown location "garage"`},
		{"colour red", `unknown field "colour"`},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			_, err := parseDraftEdit(tt.text)
			require.Error(t, err)
			assert.Equal(t, tt.wantErr, err.Error())
		})
	}
}

func TestFormatDraftMessage(t *testing.T) {
	expires := time.Date(2026, 10, 24, 0, 0, 0, 0, time.UTC)

	t.Run("complete draft", func(t *testing.T) {
		d := storage.Draft{
			Name:           "Whole_milk",
			Quantity:       ptr(1.5),
			Unit:           "Liters",
			ExpirationDate: &expires,
			Category:       "dairy",
			Location:       "fridge",
		}
		assert.Equal(t,
			"*Whole\\_milk*\nQuantity: 1.5 Liters\nCategory: dairy\nLocation: fridge\nExpires: 2026-10-24",
			formatDraftMessage(d))
	})

	t.Run("incomplete draft lists missing fields", func(t *testing.T) {
		d := storage.Draft{Name: "Apples", Location: "pantry"}
		assert.Equal(t,
			"*Apples*\nQuantity: ?\nCategory: ?\nLocation: pantry\nExpires: ?\n\n_Missing: category, quantity, unit, expiration\\_date_",
			formatDraftMessage(d))
	})
}

func TestDraftKeyboard(t *testing.T) {
	kb := draftKeyboard("abc")
	require.Len(t, kb.InlineKeyboard, 1)
	require.Len(t, kb.InlineKeyboard[0], 2)
	assert.Equal(t, "draft:confirm:abc", *kb.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "draft:discard:abc", *kb.InlineKeyboard[0][1].CallbackData)
}

func TestFormatInventory_FlagsExpiredItems(t *testing.T) {
	now := time.Date(2026, 10, 17, 8, 0, 0, 0, time.UTC)
	items := []storage.InventoryItem{
		{Name: "Yogurt", Quantity: 2, Unit: "Pieces", StorageLocation: "fridge", ExpiryDate: time.Date(2026, 10, 16, 0, 0, 0, 0, time.UTC)},
		{Name: "Peas", Quantity: 500, Unit: "Grams", StorageLocation: "freezer", ExpiryDate: time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)},
	}

	assert.Equal(t,
		"*Inventory* (2 items)\n\n"+
			"• *Yogurt* 2 Pieces, fridge, expires 2026-10-16 ⚠️\n"+
			"• *Peas* 500 Grams, freezer, expires 2027-01-15",
		formatInventory(items, now))
}

func TestLargestPhoto(t *testing.T) {
	sizes := []tgbotapi.PhotoSize{
		{FileID: "a", Width: 90, Height: 90},
		{FileID: "b", Width: 800, Height: 600},
		{FileID: "c", Width: 320, Height: 320},
	}
	assert.Equal(t, "b", largestPhoto(sizes).FileID)
}

func TestParseCommand(t *testing.T) {
	cmd, args := parseCommand("/location@snapshelf_bot  freezer")
	assert.Equal(t, "/location", cmd)
	assert.Equal(t, []string{"freezer"}, args)

	cmd, args = parseCommand("")
	assert.Equal(t, "", cmd)
	assert.Empty(t, args)
}
