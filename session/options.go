package session

import (
	"github.com/quillflow/agent-core/transcript"
)

// Config holds session configuration.
type Config struct {
	// RequestID identifies the operation for cancellation. Starting a
	// new session under the same id supersedes the old one. Generated
	// when empty.
	RequestID string

	// DocumentID identifies the document this session edits.
	DocumentID string

	// DocumentText is the immutable snapshot updates are applied
	// against. Successful updates advance the session's working copy;
	// the caller's string is never mutated.
	DocumentText string

	// History is replayed into the accumulator before any frame is
	// processed. Replay establishes baseline state without deltas.
	History []transcript.Turn

	// UserText opens the session with a user turn when non-empty.
	UserText string

	// Attachments are file excerpts attached to the opening user turn.
	Attachments []transcript.Attachment

	// EventBufferSize is the event channel buffer size (default: 100).
	EventBufferSize int
}

func defaultConfig() Config {
	return Config{EventBufferSize: 100}
}

// Option is a functional option for configuring a Session.
type Option func(*Config)

// WithRequestID sets the operation id used for cancellation.
func WithRequestID(id string) Option {
	return func(c *Config) {
		c.RequestID = id
	}
}

// WithDocument sets the target document id and text snapshot.
func WithDocument(id, text string) Option {
	return func(c *Config) {
		c.DocumentID = id
		c.DocumentText = text
	}
}

// WithHistory seeds prior conversation turns.
func WithHistory(turns []transcript.Turn) Option {
	return func(c *Config) {
		c.History = turns
	}
}

// WithUserTurn opens the session with a user message.
func WithUserTurn(text string, attachments ...transcript.Attachment) Option {
	return func(c *Config) {
		c.UserText = text
		c.Attachments = attachments
	}
}

// WithEventBufferSize sets the event channel buffer size.
func WithEventBufferSize(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.EventBufferSize = n
		}
	}
}
