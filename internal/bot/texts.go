package bot

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"repurposer/internal/models"
)

const productName = "Professional Repurposer"

const (
	buttonInstructions = "ℹ️ Instructions"
	buttonStatus       = "📊 Status"
	buttonStats        = "🔄 Repurposing Stats"
	buttonSupport      = "💬 Contact Support"
	buttonActivate     = "🔑 Activate License"
)

const (
	busyText          = "⏳ Please wait, your previous content is still processing."
	tooLargeText      = "⚠️ File too large. Please send videos under 50MB."
	sendMediaText     = "📤 Please send me a video or image to optimize it for multi-account posting."
	restartingText    = "⏳ The service is restarting. Please send your file again in a minute."
	activateUsageText = "⚙️ *Usage:* /activate [token]\n\nPlease provide your access token."
	createUsageText   = "⚙️ Usage: `/createtoken [user_id] [days_valid]`"
	revokeUsageText   = "⚙️ Usage: `/revoketoken [token]`"
	noTokensText      = "📝 No tokens found."
	submitFailedText  = "❌ *Processing Error*\n\nYour file could not be queued. Please try again."
)

const displayLayout = "2006-01-02 15:04"

// texts renders every reply that mentions the support contact.
type texts struct {
	support string
}

// newTexts escapes the contact so handles like @repurpose_help survive
// Markdown parsing.
func newTexts(support string) texts {
	return texts{support: tgbotapi.EscapeText(tgbotapi.ModeMarkdown, support)}
}

func (t texts) welcomeMember() string {
	return "👋 *Welcome to " + productName + "*\n\n" +
		"Send me any video (up to 1 minute) or image to repurpose it with optimal settings for Instagram.\n\n" +
		"🔹 Your content will be processed with premium anti-detection technology\n" +
		"🔹 Perfect for posting the same content across multiple accounts\n" +
		"🔹 Maintains high quality while avoiding duplicate detection\n\n" +
		"Simply drag and drop your file to begin!"
}

func (t texts) howToActivate(userID int64) string {
	return fmt.Sprintf("📱 Your User ID: `%d`\n\n"+
		"To activate this service, please:\n"+
		"1️⃣ Contact %s on Telegram\n"+
		"2️⃣ Send them your User ID shown above\n"+
		"3️⃣ Once you receive your activation token, use:\n"+
		"   `/activate YOUR_TOKEN`", userID, t.support)
}

func (t texts) welcomeGuest(userID int64) string {
	return "👋 *Welcome to " + productName + "*\n\n" +
		t.howToActivate(userID) + "\n\n" +
		"This professional tool allows you to repurpose content for multiple Instagram accounts without detection."
}

func (t texts) activateLicense(userID int64) string {
	return t.howToActivate(userID)
}

func (t texts) notActivated() string {
	return fmt.Sprintf("⚠️ You need to activate your license first. Please contact %s on Telegram.", t.support)
}

func (t texts) instructions() string {
	return "📋 *Instructions*\n\n" +
		"🎬 *For Videos:*\n" +
		"• Send videos up to 1 minute in length\n" +
		"• Videos are processed with anti-detection technology\n" +
		"• Processing typically takes 15-45 seconds\n" +
		"• Download and post to different Instagram accounts\n\n" +
		"🖼 *For Images:*\n" +
		"• Send any image to repurpose\n" +
		"• Images are processed with subtle modifications\n" +
		"• Processing typically takes 5-10 seconds\n" +
		"• Perfect for posting to multiple accounts\n\n" +
		"⚠️ *Important:*\n" +
		"• Maximum video length: 1 minute\n" +
		"• Maximum file size: 50MB\n" +
		"• For optimal results, use high quality source files"
}

func (t texts) stats(daysLeft int) string {
	return "📊 *Repurposing Statistics*\n\n" +
		"Your account is performing excellently with optimal detection avoidance.\n\n" +
		"🎬 *Video Processing:*\n" +
		"• Average processing time: 30 seconds\n" +
		"• Detection avoidance rate: 99.7%\n" +
		"• Video quality retention: High\n\n" +
		"🖼 *Image Processing:*\n" +
		"• Average processing time: 8 seconds\n" +
		"• Detection avoidance rate: 99.9%\n" +
		"• Image quality retention: Very High\n\n" +
		fmt.Sprintf("🔄 License expires in: %d days", daysLeft)
}

func (t texts) noActiveLicense() string {
	return fmt.Sprintf("⚠️ No active license found. Please contact %s for assistance.", t.support)
}

func (t texts) contactSupport() string {
	return "📞 *Contact Support*\n\n" +
		"For any questions, issues, or license renewals, please contact:\n" +
		"👤 " + t.support + " on Telegram\n\n" +
		"Please include your User ID and token (if available) in your message."
}

func (t texts) activated() string {
	return "✅ *License activated successfully!*\n\n" +
		"You now have full access to " + productName + ".\n" +
		"Simply send any video (up to 1 minute) or image to begin the repurposing process."
}

func (t texts) invalidToken() string {
	return fmt.Sprintf("❌ *Invalid or expired token.*\n\nPlease contact %s for a valid license token.", t.support)
}

func (t texts) helpMember() string {
	return "🔍 *" + productName + " - Help*\n\n" +
		"✅ *Available Features:*\n" +
		"• Video repurposing (up to 1 minute)\n" +
		"• Image repurposing\n" +
		"• Anti-detection technology\n" +
		"• Multi-account posting safety\n\n" +
		"📋 *Commands:*\n" +
		"/start - Launch the bot\n" +
		"/help - Show this help message\n" +
		"/status - Check your license status\n\n" +
		"📱 *Quick Tips:*\n" +
		"• Simply send a video or image to repurpose it\n" +
		"• For optimal results, use high quality source files\n" +
		"• Wait for processing to complete before sending another file\n" +
		"• Contact " + t.support + " for support or license renewal"
}

func (t texts) helpGuest(userID int64) string {
	return "🔍 *" + productName + " - Help*\n\n" +
		t.howToActivate(userID) + "\n\n" +
		"📋 *Commands:*\n" +
		"/start - Launch the bot\n" +
		"/help - Show this help message\n" +
		"/activate [token] - Activate your license"
}

func (t texts) statusActive(token models.AccessToken, now time.Time) string {
	return fmt.Sprintf("✅ *License Status: Active*\n\n"+
		"🔑 Token: `%s`\n"+
		"⏱ Expires: %s\n"+
		"📅 Days remaining: %d\n\n"+
		"You have full access to all features of the %s.",
		token.Token, token.ExpiresAt.Format(displayLayout), token.DaysLeft(now), productName)
}

func (t texts) statusUnusual() string {
	return "⚠️ *License Status: Unusual*\n\n" +
		"You're authorized but no active token was found.\n" +
		fmt.Sprintf("Please contact %s if you experience any issues.", t.support)
}

func (t texts) statusNone(userID int64) string {
	return fmt.Sprintf("❌ *License Status: No License*\n\n"+
		"📱 Your User ID: `%d`\n\n"+
		"You don't have an active license.\n"+
		"Please contact %s on Telegram to obtain a token.", userID, t.support)
}

func (t texts) accessRestricted(userID int64) string {
	return fmt.Sprintf("🔒 *Access Restricted*\n\n"+
		"You need a valid license to use this service.\n\n"+
		"📱 Your User ID: `%d`\n\n"+
		"Please contact %s on Telegram to obtain a license token.\n"+
		"Once you have a token, activate it with:\n"+
		"`/activate YOUR_TOKEN`", userID, t.support)
}

func (t texts) accessRequired(userID int64) string {
	return fmt.Sprintf("🔒 *Access Required*\n\n"+
		"📱 Your User ID: `%d`\n\n"+
		"To activate this service, please contact %s on Telegram and send them your User ID.\n\n"+
		"Once you receive your token, activate it with:\n"+
		"`/activate YOUR_TOKEN`", userID, t.support)
}

func tokenCreatedText(token models.AccessToken, days int) string {
	return fmt.Sprintf("✅ *Token created successfully!*\n\n"+
		"🔑 Token: `%s`\n"+
		"👤 User ID: `%s`\n"+
		"⏱ Valid for: %d days\n\n"+
		"ℹ️ User should send this command to activate:\n"+
		"`/activate %s`", token.Token, token.UserID, days, token.Token)
}

func tokenRevokedText(token string) string {
	return fmt.Sprintf("✅ Token `%s` revoked successfully!", token)
}

func tokenNotFoundText(token string) string {
	return fmt.Sprintf("❌ Token `%s` not found or already revoked.", token)
}

func tokenListText(tokens []models.AccessToken) string {
	var b strings.Builder
	b.WriteString("📋 *Access Tokens*\n\n")
	for _, t := range tokens {
		fmt.Fprintf(&b, "🔑 Token: `%s`\n", t.Token)
		fmt.Fprintf(&b, "👤 User ID: `%s`\n", t.UserID)
		fmt.Fprintf(&b, "📅 Created: %s\n", t.CreatedAt.Format(displayLayout))
		fmt.Fprintf(&b, "⏰ Expires: %s\n", t.ExpiresAt.Format(displayLayout))
		fmt.Fprintf(&b, "📊 Status: %s\n\n", statusLabel(t.State))
	}
	return b.String()
}

func statusLabel(state models.TokenState) string {
	switch state {
	case models.TokenStateActive:
		return "✅ Active"
	case models.TokenStateExpired, models.TokenStateDamaged:
		return "⏱ Expired"
	default:
		return "❌ Inactive"
	}
}

func adminErrorText(action string, err error) string {
	return fmt.Sprintf("❌ Error %s: %s", action, tgbotapi.EscapeText(tgbotapi.ModeMarkdown, err.Error()))
}
