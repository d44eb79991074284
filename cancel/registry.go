// Package cancel provides the process-wide cancellation registry: one
// authoritative map from operation id to cancellation token, safe for
// concurrent creation and cancellation from multiple callers.
//
// The registry is constructed explicitly and passed by reference to
// whoever needs it — there is no package-level default. One instance
// per process is the intended wiring.
package cancel

import (
	"fmt"
	"sync"
)

// ReasonSuperseded is recorded on a token displaced by a newer operation
// started under the same id.
const ReasonSuperseded = "superseded"

// CancelledError signals that cooperative cancellation was observed at a
// checkpoint. It is recovered locally by finalizing the operation; it is
// never a crash.
type CancelledError struct {
	OpID   string
	Reason string
}

func (e *CancelledError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("operation %s cancelled: %s", e.OpID, e.Reason)
	}
	return fmt.Sprintf("operation %s cancelled", e.OpID)
}

// Token is a single operation's cancellation handle. It is created by
// Registry.Create and observed by the operation's worker; cancellation
// is cooperative — workers poll Cancelled or select on Done at safe
// points, they are never preempted.
type Token struct {
	opID string

	mu        sync.Mutex
	cancelled bool
	reason    string
	done      chan struct{}
}

func newToken(opID string) *Token {
	return &Token{opID: opID, done: make(chan struct{})}
}

// OpID returns the operation id this token belongs to.
func (t *Token) OpID() string { return t.opID }

// Cancelled reports whether the token has been cancelled.
func (t *Token) Cancelled() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.cancelled
}

// Reason returns the cancellation reason, empty while active.
func (t *Token) Reason() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.reason
}

// Done returns a channel closed when the token is cancelled.
func (t *Token) Done() <-chan struct{} { return t.done }

// Check returns a *CancelledError once the token is cancelled, nil otherwise.
func (t *Token) Check() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return &CancelledError{OpID: t.opID, Reason: t.reason}
	}
	return nil
}

// cancel marks the token cancelled. Idempotent; only the first reason sticks.
func (t *Token) cancel(reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.cancelled {
		return
	}
	t.cancelled = true
	t.reason = reason
	close(t.done)
}

// Registry maps operation ids to cancellation tokens. At most one token
// per id is active at any time.
type Registry struct {
	mu     sync.Mutex
	tokens map[string]*Token
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tokens: make(map[string]*Token)}
}

// Create installs and returns a new token for opID. If a token already
// exists for opID it is cancelled with reason "superseded" and removed
// first — last writer wins, and the previous holder observes the
// cancellation asynchronously via its token.
func (r *Registry) Create(opID string) *Token {
	r.mu.Lock()
	prev := r.tokens[opID]
	tok := newToken(opID)
	r.tokens[opID] = tok
	r.mu.Unlock()

	if prev != nil {
		prev.cancel(ReasonSuperseded)
	}
	return tok
}

// Cancel marks the token for opID cancelled and removes it from the
// table. Returns false when no active token exists; cancelling twice is
// a no-op, not an error.
func (r *Registry) Cancel(opID, reason string) bool {
	r.mu.Lock()
	tok := r.tokens[opID]
	delete(r.tokens, opID)
	r.mu.Unlock()

	if tok == nil {
		return false
	}
	tok.cancel(reason)
	return true
}

// IsCancelled reports whether the token registered under opID has been
// cancelled. Absent tokens report false.
func (r *Registry) IsCancelled(opID string) bool {
	r.mu.Lock()
	tok := r.tokens[opID]
	r.mu.Unlock()
	return tok != nil && tok.Cancelled()
}

// Check is the cooperative cancellation checkpoint: it returns a
// *CancelledError when the token for opID is cancelled, nil otherwise.
func (r *Registry) Check(opID string) error {
	r.mu.Lock()
	tok := r.tokens[opID]
	r.mu.Unlock()
	if tok == nil {
		return nil
	}
	return tok.Check()
}

// Release removes tok from the table on normal completion. The entry is
// only removed if it still maps to tok, so releasing a superseded token
// never evicts its successor.
func (r *Registry) Release(tok *Token) {
	if tok == nil {
		return
	}
	r.mu.Lock()
	if r.tokens[tok.opID] == tok {
		delete(r.tokens, tok.opID)
	}
	r.mu.Unlock()
}

// AbortAll cancels every active token and clears the table. Intended
// only for process shutdown.
func (r *Registry) AbortAll(reason string) {
	r.mu.Lock()
	tokens := make([]*Token, 0, len(r.tokens))
	for _, tok := range r.tokens {
		tokens = append(tokens, tok)
	}
	r.tokens = make(map[string]*Token)
	r.mu.Unlock()

	for _, tok := range tokens {
		tok.cancel(reason)
	}
}

// Active returns the number of active tokens.
func (r *Registry) Active() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}
