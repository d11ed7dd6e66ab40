package vesting

import (
	"encoding/binary"
	"fmt"
	"math/big"
	"strings"

	"kliver/core/events"
	nativecommon "kliver/native/common"
)

const (
	roleOwner     = "ROLE_VESTING_OWNER"
	roleRegistrar = "ROLE_CAMPAIGN_REGISTRAR"
	moduleName    = "vesting"
)

type registryState interface {
	HasRole(role string, addr []byte) bool
	KVGet(key []byte, out interface{}) (bool, error)
	KVPut(key []byte, value interface{}) error
}

// Registry owns the persistent plan, campaign and whitelist records and the
// role checks guarding their mutation.
type Registry struct {
	st      registryState
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewRegistry creates a registry backed by the provided state manager.
func NewRegistry(st registryState) *Registry {
	return &Registry{st: st, emitter: events.NoopEmitter{}}
}

// SetEmitter configures the event emitter used to broadcast registry updates.
// Passing nil resets the emitter to a no-op implementation.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetPauses wires the module pause switchboard into the registry.
func (r *Registry) SetPauses(p nativecommon.PauseView) {
	if r == nil {
		return
	}
	r.pauses = p
}

func planKey(id PlanID) []byte {
	key := make([]byte, 0, len("vesting/plan/")+8)
	key = append(key, "vesting/plan/"...)
	key = binary.BigEndian.AppendUint64(key, id)
	return key
}

func planCounterKey() []byte { return []byte("vesting/plans/counter") }

func campaignKey(id CampaignID) []byte {
	key := make([]byte, 0, len("vesting/campaign/")+32)
	key = append(key, "vesting/campaign/"...)
	key = append(key, id[:]...)
	return key
}

func whitelistKey(planID PlanID, campaignID CampaignID, account Address) []byte {
	key := make([]byte, 0, len("vesting/whitelist/")+8+32+20)
	key = append(key, "vesting/whitelist/"...)
	key = binary.BigEndian.AppendUint64(key, planID)
	key = append(key, campaignID[:]...)
	key = append(key, account[:]...)
	return key
}

func cursorKey(planID PlanID, campaignID CampaignID, account Address) []byte {
	key := make([]byte, 0, len("vesting/cursor/")+8+32+20)
	key = append(key, "vesting/cursor/"...)
	key = binary.BigEndian.AppendUint64(key, planID)
	key = append(key, campaignID[:]...)
	key = append(key, account[:]...)
	return key
}

// RegisterPlan persists a new vesting plan and returns its sequential id.
// Owner only. A plan must release something: a zero daily amount requires a
// positive one-time bonus and vice versa.
func (r *Registry) RegisterPlan(caller Address, releaseHour uint8, releaseAmount, specialRelease *big.Int, metadataURI string) (PlanID, error) {
	if err := nativecommon.Guard(r.pauses, moduleName); err != nil {
		return 0, err
	}
	if !r.st.HasRole(roleOwner, caller[:]) {
		return 0, ErrUnauthorized
	}
	if releaseHour >= hoursPerDay {
		return 0, fmt.Errorf("%w: release hour %d out of range", ErrInvalidPlan, releaseHour)
	}
	if releaseAmount != nil && releaseAmount.Sign() < 0 {
		return 0, fmt.Errorf("%w: release amount must be non-negative", ErrInvalidPlan)
	}
	if specialRelease != nil && specialRelease.Sign() < 0 {
		return 0, fmt.Errorf("%w: special release must be non-negative", ErrInvalidPlan)
	}
	if (releaseAmount == nil || releaseAmount.Sign() == 0) && (specialRelease == nil || specialRelease.Sign() == 0) {
		return 0, fmt.Errorf("%w: plan releases nothing", ErrInvalidPlan)
	}

	var counter uint64
	if _, err := r.st.KVGet(planCounterKey(), &counter); err != nil {
		return 0, err
	}
	id := counter + 1

	plan := &Plan{
		ID:             id,
		ReleaseHour:    releaseHour,
		ReleaseAmount:  cloneBigInt(releaseAmount),
		SpecialRelease: cloneBigInt(specialRelease),
		MetadataURI:    strings.TrimSpace(metadataURI),
	}
	if err := r.st.KVPut(planKey(id), plan); err != nil {
		return 0, err
	}
	if err := r.st.KVPut(planCounterKey(), id); err != nil {
		return 0, err
	}
	r.emit(events.VestingPlanCreated{
		PlanID:         id,
		ReleaseHour:    plan.ReleaseHour,
		ReleaseAmount:  cloneBigInt(plan.ReleaseAmount),
		SpecialRelease: cloneBigInt(plan.SpecialRelease),
		MetadataURI:    plan.MetadataURI,
	})
	return id, nil
}

// GetPlan retrieves a plan by its identifier.
func (r *Registry) GetPlan(id PlanID) (*Plan, error) {
	return loadPlan(r.st, id)
}

// PlanCount returns the number of plans registered so far.
func (r *Registry) PlanCount() (uint64, error) {
	var counter uint64
	if _, err := r.st.KVGet(planCounterKey(), &counter); err != nil {
		return 0, err
	}
	return counter, nil
}

// TimeUntilRelease returns the seconds from now until the plan's next daily
// release boundary.
func (r *Registry) TimeUntilRelease(id PlanID, now uint64) (uint64, error) {
	plan, err := loadPlan(r.st, id)
	if err != nil {
		return 0, err
	}
	return TimeUntilRelease(now, plan.ReleaseHour), nil
}

func loadPlan(st registryState, id PlanID) (*Plan, error) {
	plan := new(Plan)
	ok, err := st.KVGet(planKey(id), plan)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPlanNotFound
	}
	return plan, nil
}

func loadCampaign(st registryState, id CampaignID) (*Campaign, error) {
	campaign := new(Campaign)
	ok, err := st.KVGet(campaignKey(id), campaign)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrCampaignNotFound
	}
	return campaign, nil
}

func loadCursor(st registryState, planID PlanID, campaignID CampaignID, account Address) (*ClaimCursor, error) {
	cursor := new(ClaimCursor)
	ok, err := st.KVGet(cursorKey(planID, campaignID, account), cursor)
	if err != nil {
		return nil, err
	}
	if !ok {
		return &ClaimCursor{}, nil
	}
	return cursor, nil
}

func isWhitelisted(st registryState, planID PlanID, campaignID CampaignID, account Address) (bool, error) {
	var listed bool
	ok, err := st.KVGet(whitelistKey(planID, campaignID, account), &listed)
	if err != nil {
		return false, err
	}
	return ok && listed, nil
}

func (r *Registry) emit(event events.Event) {
	if r.emitter == nil {
		return
	}
	r.emitter.Emit(event)
}
