package vesting

import (
	"fmt"
	"math/big"

	"kliver/core/events"
	nativecommon "kliver/native/common"
)

// TokenLedger is the narrow view of the external balance ledger the claim
// engine needs. The engine calls Mint at most once per successful claim and
// never inspects the ledger's internal representation.
type TokenLedger interface {
	Mint(account [20]byte, tokenID uint64, amount *big.Int) error
	BalanceOf(account [20]byte, tokenID uint64) (*big.Int, error)
}

// Engine executes claims against the registry's records and settles them
// through the token ledger.
type Engine struct {
	st      registryState
	ledger  TokenLedger
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine creates a claim engine over the shared state manager and the
// minting ledger.
func NewEngine(st registryState, ledger TokenLedger) *Engine {
	return &Engine{st: st, ledger: ledger, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast claims. Passing
// nil resets the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetPauses wires the module pause switchboard into the engine.
func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

// Claim settles everything the caller has accrued against (planID,
// campaignID) at now: the one-time bonus on first claim plus every released
// day not yet paid. On success the minted amount is returned and the claim
// cursor advances to the released day count; repeating the call at the same
// now fails with ErrNothingToClaim. All checks run before any write, so a
// failed claim leaves no state behind.
func (e *Engine) Claim(caller Address, planID PlanID, campaignID CampaignID, now uint64) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	plan, err := loadPlan(e.st, planID)
	if err != nil {
		return nil, err
	}
	campaign, err := loadCampaign(e.st, campaignID)
	if err != nil {
		return nil, err
	}
	if campaign.PlanID != planID {
		return nil, fmt.Errorf("%w: campaign bound to plan %d", ErrCampaignPlanMismatch, campaign.PlanID)
	}
	listed, err := isWhitelisted(e.st, planID, campaignID, caller)
	if err != nil {
		return nil, err
	}
	if !listed {
		return nil, ErrNotWhitelisted
	}
	if now >= campaign.Expiration {
		return nil, ErrCampaignExpired
	}
	cursor, err := loadCursor(e.st, planID, campaignID, caller)
	if err != nil {
		return nil, err
	}
	owed := Claimable(plan, cursor, now)
	if owed.Sign() == 0 {
		if cursor.Claimed {
			return nil, fmt.Errorf("%w: no newly released days", ErrNothingToClaim)
		}
		return nil, fmt.Errorf("%w: nothing accrued yet", ErrNothingToClaim)
	}
	if err := e.ledger.Mint(caller, planID, owed); err != nil {
		return nil, err
	}
	released := ReleasedDays(now, plan.ReleaseHour)
	cursor.Claimed = true
	cursor.ReleasedDays = released
	if err := e.st.KVPut(cursorKey(planID, campaignID, caller), cursor); err != nil {
		return nil, err
	}
	e.emit(events.VestingClaimed{
		PlanID:       planID,
		CampaignID:   campaignID,
		Account:      caller,
		Amount:       new(big.Int).Set(owed),
		ReleasedDays: released,
	})
	return owed, nil
}

// Cursor returns the claim cursor for the triple. Unclaimed triples read as
// the zero cursor.
func (e *Engine) Cursor(planID PlanID, campaignID CampaignID, account Address) (*ClaimCursor, error) {
	return loadCursor(e.st, planID, campaignID, account)
}

func (e *Engine) emit(event events.Event) {
	if e.emitter == nil {
		return
	}
	e.emitter.Emit(event)
}
