package common

import "errors"

// ErrModulePaused is returned by Guard when a module's mutating operations
// have been switched off.
var ErrModulePaused = errors.New("module paused")

// PauseView answers whether a native module is currently paused. Read-only
// operations are never guarded.
type PauseView interface {
	IsPaused(module string) bool
}

// Guard aborts a mutating operation when the module is paused. A nil view or
// empty module name disables the check.
func Guard(p PauseView, module string) error {
	if p == nil || module == "" {
		return nil
	}
	if p.IsPaused(module) {
		return ErrModulePaused
	}
	return nil
}

// Switchboard is a static PauseView populated from configuration at boot.
type Switchboard struct {
	paused map[string]struct{}
}

// NewSwitchboard marks the supplied module names as paused.
func NewSwitchboard(modules ...string) *Switchboard {
	sb := &Switchboard{paused: make(map[string]struct{}, len(modules))}
	for _, module := range modules {
		if module == "" {
			continue
		}
		sb.paused[module] = struct{}{}
	}
	return sb
}

// IsPaused implements the PauseView interface.
func (s *Switchboard) IsPaused(module string) bool {
	if s == nil {
		return false
	}
	_, ok := s.paused[module]
	return ok
}
