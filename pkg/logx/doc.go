// Package logx is the bot's structured logging, built on zerolog.
//
// Console output is human readable with a short caller, the optional file
// sink is JSON, and warnings can be forwarded to an operator Telegram chat
// (rate limited, never blocking the caller).
package logx
