// Package storage persists the two documents the bot owns: the notice archive
// and the subscriber roster.
//
// Each document is loaded and saved whole. Documents serializes every
// read-modify-write of one document so the poll cycle and inbound
// registrations never interleave into a lost update.
package storage
