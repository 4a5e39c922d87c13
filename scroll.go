package main

import (
	"fmt"
	"sync"
)

// ScrollHost installs and removes the capturing, non-passive wheel handler
// that suppresses default scrolling in a window.
type ScrollHost interface {
	BlockWheel(win string) error
	UnblockWheel(win string) error
}

// scrollInterceptor toggles the wheel blocker per window. Repeated calls in
// the same direction do not reach the host.
type scrollInterceptor struct {
	host ScrollHost

	mu      sync.Mutex
	blocked map[string]bool
}

func newScrollInterceptor(host ScrollHost) *scrollInterceptor {
	return &scrollInterceptor{host: host, blocked: make(map[string]bool)}
}

func (s *scrollInterceptor) disable(win string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blocked[win] {
		return nil
	}
	if err := s.host.BlockWheel(win); err != nil {
		return fmt.Errorf("disabling scroll in window %q: %w", win, err)
	}
	s.blocked[win] = true
	return nil
}

func (s *scrollInterceptor) enable(win string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.blocked[win] {
		return nil
	}
	if err := s.host.UnblockWheel(win); err != nil {
		return fmt.Errorf("enabling scroll in window %q: %w", win, err)
	}
	delete(s.blocked, win)
	return nil
}

func (s *scrollInterceptor) disabled(win string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.blocked[win]
}
