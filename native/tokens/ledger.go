package tokens

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"kliver/core/events"
)

const moduleName = "tokens"

const roleTokenAdmin = "ROLE_VESTING_OWNER"

var (
	ErrUnauthorized   = errors.New("tokens: unauthorized")
	ErrInvalidAmount  = errors.New("tokens: amount must be positive")
	ErrLengthMismatch = errors.New("tokens: accounts and token ids length mismatch")
)

type ledgerState interface {
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
	HasRole(role string, addr []byte) bool
}

// Ledger is the multi-token balance ledger backing vesting payouts. Balances
// are keyed per (account, token id) where the token id is the vesting plan
// the balance was minted under.
type Ledger struct {
	st      ledgerState
	emitter events.Emitter
}

// NewLedger creates a ledger backed by the provided state manager.
func NewLedger(st ledgerState) *Ledger {
	return &Ledger{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast mints. Passing
// nil resets the emitter to a no-op implementation.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

func balanceKey(account [20]byte, tokenID uint64) []byte {
	key := make([]byte, 0, len("tokens/balance/")+20+8)
	key = append(key, "tokens/balance/"...)
	key = append(key, account[:]...)
	key = binary.BigEndian.AppendUint64(key, tokenID)
	return key
}

func supplyKey(tokenID uint64) []byte {
	key := make([]byte, 0, len("tokens/supply/")+8)
	key = append(key, "tokens/supply/"...)
	key = binary.BigEndian.AppendUint64(key, tokenID)
	return key
}

func baseURIKey() []byte { return []byte("tokens/baseuri") }

// Mint credits amount of tokenID to account and grows the token's total
// supply. The vesting engine is the only caller; it invokes Mint at most once
// per successful claim.
func (l *Ledger) Mint(account [20]byte, tokenID uint64, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	balance, err := l.BalanceOf(account, tokenID)
	if err != nil {
		return err
	}
	balance = new(big.Int).Add(balance, amount)
	if err := l.st.KVPut(balanceKey(account, tokenID), balance); err != nil {
		return err
	}
	supply, err := l.TotalSupply(tokenID)
	if err != nil {
		return err
	}
	supply = new(big.Int).Add(supply, amount)
	if err := l.st.KVPut(supplyKey(tokenID), supply); err != nil {
		return err
	}
	l.emit(events.TokenMinted{Account: account, TokenID: tokenID, Amount: new(big.Int).Set(amount)})
	return nil
}

// BalanceOf returns the balance of tokenID held by account. Accounts with no
// history read as zero.
func (l *Ledger) BalanceOf(account [20]byte, tokenID uint64) (*big.Int, error) {
	balance := new(big.Int)
	ok, err := l.st.KVGet(balanceKey(account, tokenID), balance)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return balance, nil
}

// BatchBalanceOf resolves balances for parallel account/token id slices, in
// the ERC-1155 balanceOfBatch shape.
func (l *Ledger) BatchBalanceOf(accounts [][20]byte, tokenIDs []uint64) ([]*big.Int, error) {
	if len(accounts) != len(tokenIDs) {
		return nil, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(accounts), len(tokenIDs))
	}
	out := make([]*big.Int, 0, len(accounts))
	for i := range accounts {
		balance, err := l.BalanceOf(accounts[i], tokenIDs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, balance)
	}
	return out, nil
}

// TotalSupply returns the amount of tokenID minted so far.
func (l *Ledger) TotalSupply(tokenID uint64) (*big.Int, error) {
	supply := new(big.Int)
	ok, err := l.st.KVGet(supplyKey(tokenID), supply)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return supply, nil
}

// SeedBaseURI installs the configured metadata base URI at boot when none has
// been stored yet. It never overwrites an operator-set value.
func (l *Ledger) SeedBaseURI(baseURI string) error {
	trimmed := strings.TrimSpace(baseURI)
	if trimmed == "" {
		return nil
	}
	ok, err := l.st.KVGet(baseURIKey(), nil)
	if err != nil {
		return err
	}
	if ok {
		return nil
	}
	return l.st.KVPut(baseURIKey(), trimmed)
}

// SetBaseURI rotates the metadata base URI. Owner only.
func (l *Ledger) SetBaseURI(caller [20]byte, baseURI string) error {
	if !l.st.HasRole(roleTokenAdmin, caller[:]) {
		return ErrUnauthorized
	}
	trimmed := strings.TrimSpace(baseURI)
	if err := l.st.KVPut(baseURIKey(), trimmed); err != nil {
		return err
	}
	l.emit(events.TokenURIUpdated{BaseURI: trimmed})
	return nil
}

// URI renders the metadata location of tokenID from the configured base URI.
// An unset base URI yields an empty string.
func (l *Ledger) URI(tokenID uint64) (string, error) {
	var base string
	ok, err := l.st.KVGet(baseURIKey(), &base)
	if err != nil {
		return "", err
	}
	if !ok || base == "" {
		return "", nil
	}
	return base + strconv.FormatUint(tokenID, 10), nil
}

func (l *Ledger) emit(event events.Event) {
	if l.emitter == nil {
		return
	}
	l.emitter.Emit(event)
}
