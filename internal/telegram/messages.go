package telegram

import "fmt"

const (
	welcomeTemplate = "👋 Welcome to Terabox Premium Bot!\n\n" +
		"I can help you download files from Terabox without any ads, captchas, or waiting.\n\n" +
		"🔹 *Free users*: %d downloads per day\n" +
		"🔸 *Premium users*: Unlimited downloads\n\n" +
		"Simply send me a Terabox link to get started!\n\n" +
		"Use /help to see all available commands."

	helpTemplate = "🤖 *Terabox Premium Bot Help*\n\n" +
		"*Commands:*\n" +
		"/start - Start the bot\n" +
		"/help - Show this help message\n" +
		"/status - Check your account status\n" +
		"/premium - Upgrade to premium\n\n" +
		"*How to use:*\n" +
		"1. Send any Terabox link to get a direct download link\n" +
		"2. Free users get %d downloads per day\n" +
		"3. Premium users get unlimited downloads\n\n" +
		"*Premium Benefits:*\n" +
		"✅ Unlimited downloads\n" +
		"✅ No daily limits\n" +
		"✅ Priority processing\n" +
		"✅ Support for larger files"

	limitReachedTemplate = "⚠️ *Daily Limit Reached*\n\n" +
		"You've used all %d of your free downloads for today.\n\n" +
		"🌟 *Upgrade to Premium* for unlimited downloads!"

	processingMessage = "⏳ Processing your Terabox link..."

	invalidURLMessage = "❌ *Invalid URL*\n\n" +
		"The link you sent doesn't appear to be a valid Terabox link.\n" +
		"Please check the URL and try again."

	downloadReadyTemplate = "✅ *Download Ready*\n\n" +
		"📁 *File:* %s\n" +
		"📏 *Size:* %s\n\n" +
		"⬇️ [Download Now](%s)\n\n" +
		"🔗 This link will expire in 24 hours."

	downloadErrorMessage = "❌ *Download Error*\n\n" +
		"Sorry, I couldn't process this Terabox link.\n" +
		"Please try again or contact support if the issue persists."

	fileTooLargeTemplate = "❌ *File Too Large*\n\n" +
		"This file is %s, which exceeds your %s limit.\n" +
		"Premium users can download files up to 10 GB."

	upgradeTemplate = "🌟 *Upgrade to Premium*\n\n" +
		"Enjoy unlimited Terabox downloads with our premium plans:\n\n%s"

	paymentWelcomeMessage = "💳 *Terabox Premium Payment*\n\n" +
		"Welcome to the payment process for Terabox Premium.\n" +
		"Please select a plan to continue."

	paymentSuccessTemplate = "✅ *Payment Successful*\n\n" +
		"Thank you for upgrading to Terabox Premium!\n\n" +
		"Your premium plan is now active.\n" +
		"Plan: %s\n" +
		"Valid until: %s\n\n" +
		"Return to @%s to enjoy your premium benefits!"

	paymentCancelledMessage = "❌ *Payment Cancelled*\n\n" +
		"Your payment process has been cancelled.\n" +
		"You can restart the upgrade process anytime using /start."

	paymentPendingTemplate = "⏳ *Payment Pending*\n\n" +
		"Order %s has not been paid yet.\n" +
		"Complete the checkout and press the button again."

	paymentErrorMessage = "⚠️ *Payment Error*\n\n" +
		"There was an error processing your payment.\n" +
		"Please try again or contact support if the issue persists."
)

// formatSize renders a byte count the way the chat messages expect.
func formatSize(bytes int64) string {
	const (
		kb = 1 << 10
		mb = 1 << 20
		gb = 1 << 30
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.2f GB", float64(bytes)/gb)
	case bytes >= mb:
		return fmt.Sprintf("%.2f MB", float64(bytes)/mb)
	case bytes >= kb:
		return fmt.Sprintf("%.2f KB", float64(bytes)/kb)
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
