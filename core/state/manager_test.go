package state

import (
	"math/big"
	"testing"

	"kliver/storage"
)

type record struct {
	Name   string
	Amount *big.Int
}

func TestManagerRoundTrip(t *testing.T) {
	m := NewManager(storage.NewMemDB())

	stored := &record{Name: "plan", Amount: big.NewInt(1500)}
	if err := m.KVPut([]byte("k"), stored); err != nil {
		t.Fatalf("put: %v", err)
	}

	loaded := new(record)
	ok, err := m.KVGet([]byte("k"), loaded)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !ok {
		t.Fatalf("expected key to exist")
	}
	if loaded.Name != stored.Name || loaded.Amount.Cmp(stored.Amount) != 0 {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}

	ok, err = m.KVGet([]byte("absent"), new(record))
	if err != nil {
		t.Fatalf("get absent: %v", err)
	}
	if ok {
		t.Fatalf("absent key reported present")
	}

	ok, err = m.KVGet([]byte("k"), nil)
	if err != nil || !ok {
		t.Fatalf("existence check failed: ok=%v err=%v", ok, err)
	}
}

func TestManagerRoles(t *testing.T) {
	m := NewManager(storage.NewMemDB())
	addr := []byte("owner-address-000000")

	if m.HasRole(RoleVestingOwner, addr) {
		t.Fatalf("role granted before grant")
	}
	if err := m.GrantRole(RoleVestingOwner, addr); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if !m.HasRole(RoleVestingOwner, addr) {
		t.Fatalf("role missing after grant")
	}
	if m.HasRole(RoleCampaignRegistrar, addr) {
		t.Fatalf("unrelated role granted")
	}
	if err := m.RevokeRole(RoleVestingOwner, addr); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if m.HasRole(RoleVestingOwner, addr) {
		t.Fatalf("role present after revoke")
	}
}
