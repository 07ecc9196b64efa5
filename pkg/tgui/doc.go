// Package tgui contains small helpers for composing Telegram message text.
//
// HTML helpers (Esc, B, Code, ...) serve bot replies sent with ParseMode="HTML".
// EscMarkdownV2 serves notice payloads sent with ParseMode="MarkdownV2".
package tgui
