package client

import (
	"context"
	"sync"
)

// Ticket identifies one issued request. Later tickets compare greater.
type Ticket uint64

// Sequencer keeps a slow, superseded response from overwriting the state
// produced by a newer request.
type Sequencer struct {
	mu     sync.Mutex
	latest Ticket
	cancel context.CancelFunc
}

// Begin issues a new ticket and cancels the context of the request it
// supersedes.
func (s *Sequencer) Begin(parent context.Context) (context.Context, Ticket) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}
	s.latest++
	ctx, cancel := context.WithCancel(parent)
	s.cancel = cancel
	return ctx, s.latest
}

// Latest reports whether t is still the newest ticket.
func (s *Sequencer) Latest(t Ticket) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return t == s.latest
}

// Commit runs apply only if t is still the newest ticket and reports whether
// it did. apply runs under the sequencer lock so no newer Begin can interleave.
func (s *Sequencer) Commit(t Ticket, apply func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t != s.latest {
		return false
	}
	apply()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	return true
}
