package vesting_test

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/rlp"

	"kliver/native/tokens"
	"kliver/native/vesting"
)

type memoryStore struct {
	data  map[string][]byte
	roles map[string]bool
}

func newMemoryStore() *memoryStore {
	return &memoryStore{data: make(map[string][]byte), roles: make(map[string]bool)}
}

func (m *memoryStore) KVPut(key []byte, value interface{}) error {
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	m.data[string(key)] = encoded
	return nil
}

func (m *memoryStore) KVGet(key []byte, out interface{}) (bool, error) {
	encoded, ok := m.data[string(key)]
	if !ok {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(encoded, out); err != nil {
		return false, err
	}
	return true, nil
}

func (m *memoryStore) HasRole(role string, addr []byte) bool {
	return m.roles[role+"/"+string(addr)]
}

func (m *memoryStore) grant(role string, addr vesting.Address) {
	m.roles[role+"/"+string(addr[:])] = true
}

var (
	owner     = addr(0xA0)
	registrar = addr(0xB0)
	alice     = addr(0x01)
	bob       = addr(0x02)
)

func addr(b byte) vesting.Address {
	var out vesting.Address
	out[19] = b
	return out
}

func campaignID(b byte) vesting.CampaignID {
	var out vesting.CampaignID
	out[31] = b
	return out
}

type fixture struct {
	store    *memoryStore
	registry *vesting.Registry
	ledger   *tokens.Ledger
	engine   *vesting.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := newMemoryStore()
	store.grant("ROLE_VESTING_OWNER", owner)
	store.grant("ROLE_CAMPAIGN_REGISTRAR", registrar)
	ledger := tokens.NewLedger(store)
	return &fixture{
		store:    store,
		registry: vesting.NewRegistry(store),
		ledger:   ledger,
		engine:   vesting.NewEngine(store, ledger),
	}
}

// registerPlan registers a plan with the standard test schedule: cutoff at
// 14:00, 1000 per day, 500 one-time bonus.
func (f *fixture) registerPlan(t *testing.T) vesting.PlanID {
	t.Helper()
	return f.registerPlanWith(t, 14, big.NewInt(1000), big.NewInt(500))
}

func (f *fixture) registerPlanWith(t *testing.T, hour uint8, daily, special *big.Int) vesting.PlanID {
	t.Helper()
	id, err := f.registry.RegisterPlan(owner, hour, daily, special, "https://api.kliver.io/metadata/plan")
	if err != nil {
		t.Fatalf("register plan: %v", err)
	}
	return id
}

func (f *fixture) registerCampaign(t *testing.T, id vesting.CampaignID, planID vesting.PlanID, expiration, now uint64) {
	t.Helper()
	if err := f.registry.RegisterCampaign(registrar, id, planID, expiration, now); err != nil {
		t.Fatalf("register campaign: %v", err)
	}
}

func (f *fixture) whitelist(t *testing.T, planID vesting.PlanID, id vesting.CampaignID, account vesting.Address) {
	t.Helper()
	if err := f.registry.AddToWhitelist(owner, planID, id, account); err != nil {
		t.Fatalf("add to whitelist: %v", err)
	}
}

const farFuture = uint64(1 << 40)

func requireAmount(t *testing.T, got *big.Int, want int64) {
	t.Helper()
	if got == nil {
		t.Fatalf("amount is nil, want %d", want)
	}
	if got.Cmp(big.NewInt(want)) != 0 {
		t.Fatalf("amount = %s, want %d", got, want)
	}
}
