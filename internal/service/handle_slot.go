// internal/service/handle_slot.go
package service

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"terminal-bridge/pkg/terminal"
)

// SlotPolicy decides what happens when an operation starts while its slot is held
type SlotPolicy string

const (
	// SlotPolicyReplace overwrites the held handle; the old operation keeps
	// running but can no longer be canceled by the bridge
	SlotPolicyReplace SlotPolicy = "replace"
	// SlotPolicyReject refuses the new operation
	SlotPolicyReject SlotPolicy = "reject"
)

// ParseSlotPolicy validates a configured policy name
func ParseSlotPolicy(name string) (SlotPolicy, error) {
	switch SlotPolicy(name) {
	case SlotPolicyReplace, SlotPolicyReject:
		return SlotPolicy(name), nil
	case "":
		return SlotPolicyReplace, nil
	default:
		return "", fmt.Errorf("invalid handle policy: %s", name)
	}
}

// HandleSlot holds the cancel handle of at most one in-flight operation
type HandleSlot struct {
	name     string
	policy   SlotPolicy
	mu       sync.Mutex
	handle   terminal.Cancelable
	reserved bool
	logger   *zap.Logger
}

// NewHandleSlot creates an empty slot
func NewHandleSlot(name string, policy SlotPolicy, logger *zap.Logger) *HandleSlot {
	return &HandleSlot{
		name:   name,
		policy: policy,
		logger: logger.With(zap.String("slot", name)),
	}
}

// Policy returns the slot policy
func (s *HandleSlot) Policy() SlotPolicy {
	return s.policy
}

// Acquire reserves the slot for an operation about to start. Under the reject
// policy it fails while another operation holds or has reserved the slot.
func (s *HandleSlot) Acquire() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.policy == SlotPolicyReject && (s.handle != nil || s.reserved) {
		return false
	}
	s.reserved = true
	return true
}

// Release drops a reservation whose operation never produced a handle
func (s *HandleSlot) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reserved = false
}

// Store places handle in the slot and ends the reservation
func (s *HandleSlot) Store(handle terminal.Cancelable) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle != nil && s.handle != handle {
		s.logger.Warn("Replacing in-flight operation handle, previous operation can no longer be canceled")
	}
	s.handle = handle
	s.reserved = false
}

// Take removes and returns the held handle
func (s *HandleSlot) Take() (terminal.Cancelable, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	handle := s.handle
	s.handle = nil
	return handle, handle != nil
}

// ClearIf empties the slot only if it still holds handle
func (s *HandleSlot) ClearIf(handle terminal.Cancelable) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.handle == nil || s.handle != handle {
		return false
	}
	s.handle = nil
	return true
}

// Occupied reports whether a handle is held
func (s *HandleSlot) Occupied() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle != nil
}
