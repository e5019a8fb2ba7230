// Package reminder implements the periodic reminder scan: on each firing it
// matches every habit's time of day against a lookback window and sends one
// Telegram message per match to the owner's chat.
package reminder
