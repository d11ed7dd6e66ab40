package state

import (
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"

	"kliver/storage"
)

// Role identifiers understood by the ledger. Roles are granted at boot from
// the node configuration and stored alongside the rest of the state so the
// engines can answer HasRole without reaching back into config.
const (
	RoleVestingOwner      = "ROLE_VESTING_OWNER"
	RoleCampaignRegistrar = "ROLE_CAMPAIGN_REGISTRAR"
)

// Manager wraps a key-value database with RLP encoding and the role store.
// It is the single state implementation handed to every native engine.
type Manager struct {
	db storage.Database
}

// NewManager creates a manager over the provided database.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

// KVPut RLP-encodes value and stores it under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return fmt.Errorf("state: encode %q: %w", key, err)
	}
	return m.db.Put(key, encoded)
}

// KVGet loads and RLP-decodes the value stored under key into out. It returns
// false with a nil error when the key is absent. Passing a nil out performs a
// pure existence check.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	encoded, err := m.db.Get(key)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(encoded, out); err != nil {
		return false, fmt.Errorf("state: decode %q: %w", key, err)
	}
	return true, nil
}

func roleKey(role string, addr []byte) []byte {
	key := make([]byte, 0, len("roles/")+len(role)+1+len(addr))
	key = append(key, "roles/"...)
	key = append(key, role...)
	key = append(key, '/')
	key = append(key, addr...)
	return key
}

// GrantRole marks addr as holding role.
func (m *Manager) GrantRole(role string, addr []byte) error {
	return m.KVPut(roleKey(role, addr), true)
}

// RevokeRole removes role from addr. Revoking an absent role is a no-op.
func (m *Manager) RevokeRole(role string, addr []byte) error {
	return m.KVPut(roleKey(role, addr), false)
}

// HasRole reports whether addr holds role. Lookup failures read as "no".
func (m *Manager) HasRole(role string, addr []byte) bool {
	var granted bool
	ok, err := m.KVGet(roleKey(role, addr), &granted)
	if err != nil || !ok {
		return false
	}
	return granted
}
