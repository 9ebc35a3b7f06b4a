// Package state keeps per-user conversation sessions for Telegram bots.
// It knows nothing about the session contents; callers supply the type.
package state
