// Package tgui holds small helpers for Telegram message text: HTML-safe
// fragments for ParseMode "HTML" and page labels for paginated lists.
package tgui
