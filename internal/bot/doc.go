// Package bot holds the Telegram commands of habitbot: registration, the
// habit write path, listings and the operator commands.
package bot
