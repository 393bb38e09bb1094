package bot

// =============================================================================
// General messages
// =============================================================================

const (
	MsgUnexpectedErr = `Unexpected error: %s`
	MsgStartPrompt   = "Send a photo of your groceries to add them to your shelf."
	MsgVersionInfo   = "Version: %s\nBuilt: %s"
	MsgStart         = `
		*SnapShelf*

		Send a photo of food and I will turn it into drafts you can confirm into your inventory.

		Reply to a draft to edit it:
		` + "`qty 2 kg`" + `
		` + "`category dairy`" + `
		` + "`expires 2026-11-01`" + `
		` + "`name oat milk`" + `
		` + "`location freezer`" + `

		/drafts - pending drafts
		/inventory - confirmed items
		/location - default storage location
		/reminders - expiry reminders on or off
	`
)

// =============================================================================
// Ingestion messages
// =============================================================================

const (
	MsgDraftsCreated = "Found %s. Confirm or discard each one."
)

// =============================================================================
// Draft messages
// =============================================================================

const (
	MsgNoDrafts          = "No pending drafts. Send a photo to create some."
	MsgDraftConfirmed    = "✅ Added *%s* to inventory."
	MsgDraftDiscarded    = "🗑 Discarded *%s*."
	MsgDraftGone         = "This draft no longer exists."
	MsgDraftIncomplete   = "Can't confirm *%s* yet, missing: %s\n\nReply to the draft to fill them in."
	MsgDraftEditInvalid  = "Couldn't understand that edit: %s"
	MsgDraftEditNotFound = "That message is not a pending draft."
)

// =============================================================================
// Inventory messages
// =============================================================================

const (
	MsgInventoryEmpty  = "Your inventory is empty."
	MsgInventoryHeader = "*Inventory* (%s)\n\n"
)

// =============================================================================
// Storage location messages
// =============================================================================

const (
	MsgLocationCurrent = "New photos are stored in *%s*.\n\nChange with `/location fridge|freezer|pantry`"
	MsgLocationUpdated = "✅ New photos will be stored in *%s*."
	MsgLocationInvalid = "Unknown location. Use one of: fridge, freezer, pantry"
)

// =============================================================================
// Reminder messages
// =============================================================================

const (
	MsgRemindersOn      = "⏰ Expiry reminders are *on*. Turn off with `/reminders off`"
	MsgRemindersOff     = "🔕 Expiry reminders are *off*. Turn on with `/reminders on`"
	MsgRemindersInvalid = "Usage: `/reminders on|off`"
)

// =============================================================================
// Admin command messages
// =============================================================================

const (
	MsgAdminUsage         = "Usage:\n`/admin add <user_id>`\n`/admin remove <user_id>`\n`/admin list`"
	MsgAdminUserInvalidID = "Invalid user ID. Give a number."
	MsgAdminUserAdded     = "✅ User `%d` added."
	MsgAdminUserRemoved   = "🗑 User `%d` removed."
	MsgAdminNoUsers       = "No allowed users."
	MsgAdminAllowedUsers  = "*Allowed users:*\n"
)

// =============================================================================
// Button labels
// =============================================================================

const (
	BtnConfirm = "✅ Confirm"
	BtnDiscard = "🗑 Discard"
)
