// internal/storefront/notice/board.go
package notice

import (
	"fmt"
	"sync"
)

// Kind is the severity of a notice
type Kind string

const (
	KindSuccess Kind = "success"
	KindDanger  Kind = "danger"
)

// Notice is a dismissible message shown to the shopper
type Notice struct {
	Kind Kind
	Text string
}

// Board holds notices in the order they were raised. Safe for concurrent use.
type Board struct {
	mu      sync.Mutex
	notices []Notice
}

// NewBoard creates an empty board
func NewBoard() *Board {
	return &Board{}
}

// Push appends a notice
func (b *Board) Push(kind Kind, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = append(b.notices, Notice{Kind: kind, Text: text})
}

// Success appends a success notice
func (b *Board) Success(text string) { b.Push(KindSuccess, text) }

// Danger appends an error notice
func (b *Board) Danger(text string) { b.Push(KindDanger, text) }

// Dismiss removes the notice at index i
func (b *Board) Dismiss(i int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if i < 0 || i >= len(b.notices) {
		return fmt.Errorf("no notice at index %d", i)
	}
	b.notices = append(b.notices[:i], b.notices[i+1:]...)
	return nil
}

// List returns a copy of the current notices
func (b *Board) List() []Notice {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := make([]Notice, len(b.notices))
	copy(out, b.notices)
	return out
}

// Clear dismisses every notice
func (b *Board) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.notices = nil
}
