package vesting_test

import (
	"errors"
	"math/big"
	"testing"

	"kliver/native/vesting"
)

func TestGetClaimableDoesNotGate(t *testing.T) {
	f := newFixture(t)
	planID := f.registerPlan(t)
	id := campaignID(0x30)
	f.registerCampaign(t, id, planID, day(2), hour(1))

	// Neither whitelisted nor live matters for the raw accrual read.
	owed, err := f.engine.GetClaimable(planID, id, alice, day(3)+hour(16))
	if err != nil {
		t.Fatalf("get claimable: %v", err)
	}
	requireAmount(t, owed, 4500)

	if _, err := f.engine.GetClaimable(99, id, alice, hour(1)); !errors.Is(err, vesting.ErrPlanNotFound) {
		t.Fatalf("unknown plan err = %v", err)
	}
	if _, err := f.engine.GetClaimable(planID, campaignID(0x99), alice, hour(1)); !errors.Is(err, vesting.ErrCampaignNotFound) {
		t.Fatalf("unknown campaign err = %v", err)
	}
}

func TestGetClaimableBatchParity(t *testing.T) {
	f := newFixture(t)
	planID := f.registerPlan(t)
	first := campaignID(0x31)
	second := campaignID(0x32)
	f.registerCampaign(t, first, planID, farFuture, hour(1))
	f.registerCampaign(t, second, planID, farFuture, hour(1))
	f.whitelist(t, planID, first, alice)

	// Put Alice's cursor ahead on the first campaign.
	if _, err := f.engine.Claim(alice, planID, first, hour(16)); err != nil {
		t.Fatalf("claim: %v", err)
	}

	now := day(2) + hour(16)
	entries, err := f.engine.GetClaimableBatch(planID, []vesting.CampaignID{first, second}, []vesting.Address{alice, bob}, now)
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(entries) != 4 {
		t.Fatalf("entries = %d, want 4", len(entries))
	}
	for _, entry := range entries {
		single, err := f.engine.GetClaimable(planID, entry.CampaignID, entry.Account, now)
		if err != nil {
			t.Fatalf("single: %v", err)
		}
		if entry.Amount.Cmp(single) != 0 {
			t.Fatalf("batch %s != single %s for campaign %x account %x", entry.Amount, single, entry.CampaignID, entry.Account)
		}
	}
	// Spot-check: first campaign for Alice accrued days 1-2 only.
	requireAmount(t, entries[0].Amount, 2000)
	// Bob never claimed: full accrual.
	requireAmount(t, entries[1].Amount, 3500)
}

func TestGetClaimableBatchEmptyInputs(t *testing.T) {
	f := newFixture(t)
	planID := f.registerPlan(t)

	entries, err := f.engine.GetClaimableBatch(planID, nil, []vesting.Address{alice}, hour(1))
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}
	entries, err = f.engine.GetClaimableBatch(planID, []vesting.CampaignID{campaignID(0x33)}, nil, hour(1))
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("entries = %d, want 0", len(entries))
	}
}

func TestWalletPlanSummaryFilters(t *testing.T) {
	f := newFixture(t)
	planID := f.registerPlan(t)
	otherPlan := f.registerPlanWith(t, 8, big.NewInt(10), nil)

	live := campaignID(0x34)
	expired := campaignID(0x35)
	unlisted := campaignID(0x36)
	foreign := campaignID(0x37)
	f.registerCampaign(t, live, planID, farFuture, hour(1))
	f.registerCampaign(t, expired, planID, day(1), hour(1))
	f.registerCampaign(t, unlisted, planID, farFuture, hour(1))
	f.registerCampaign(t, foreign, otherPlan, farFuture, hour(1))
	f.whitelist(t, planID, live, alice)
	f.whitelist(t, planID, expired, alice)

	// Seed a balance so current_balance is observable.
	if _, err := f.engine.Claim(alice, planID, live, hour(16)); err != nil {
		t.Fatalf("claim: %v", err)
	}

	now := day(2) + hour(16)
	requested := []vesting.CampaignID{live, expired, unlisted, foreign, campaignID(0x99)}
	summary, err := f.engine.WalletPlanSummary(planID, alice, requested, now)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Plan.ID != planID || summary.Account != alice {
		t.Fatalf("summary header: %+v", summary)
	}
	requireAmount(t, summary.CurrentBalance, 1500)
	if len(summary.Campaigns) != 1 {
		t.Fatalf("campaigns = %d, want only the live whitelisted one", len(summary.Campaigns))
	}
	if summary.Campaigns[0].CampaignID != live {
		t.Fatalf("unexpected campaign: %x", summary.Campaigns[0].CampaignID)
	}
	// Two new days accrued since the claim.
	requireAmount(t, summary.Campaigns[0].Amount, 2000)
	requireAmount(t, summary.TotalClaimable, 2000)

	if _, err := f.engine.WalletPlanSummary(99, alice, requested, now); !errors.Is(err, vesting.ErrPlanNotFound) {
		t.Fatalf("unknown plan err = %v", err)
	}
}

func TestWalletPlanSummaryMatchesSingleReads(t *testing.T) {
	f := newFixture(t)
	planID := f.registerPlan(t)
	first := campaignID(0x38)
	second := campaignID(0x39)
	f.registerCampaign(t, first, planID, farFuture, hour(1))
	f.registerCampaign(t, second, planID, farFuture, hour(1))
	f.whitelist(t, planID, first, alice)
	f.whitelist(t, planID, second, alice)

	now := day(4) + hour(16)
	summary, err := f.engine.WalletPlanSummary(planID, alice, []vesting.CampaignID{first, second}, now)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	total := big.NewInt(0)
	for _, line := range summary.Campaigns {
		single, err := f.engine.GetClaimable(planID, line.CampaignID, alice, now)
		if err != nil {
			t.Fatalf("single: %v", err)
		}
		if line.Amount.Cmp(single) != 0 {
			t.Fatalf("summary %s != single %s", line.Amount, single)
		}
		total.Add(total, line.Amount)
	}
	if summary.TotalClaimable.Cmp(total) != 0 {
		t.Fatalf("total = %s, want %s", summary.TotalClaimable, total)
	}
}

func TestWalletCampaignsSummaryGroupsByPlan(t *testing.T) {
	f := newFixture(t)
	firstPlan := f.registerPlan(t)
	secondPlan := f.registerPlanWith(t, 0, big.NewInt(100), nil)

	a := campaignID(0x3A)
	b := campaignID(0x3B)
	c := campaignID(0x3C)
	f.registerCampaign(t, a, firstPlan, farFuture, hour(1))
	f.registerCampaign(t, b, secondPlan, farFuture, hour(1))
	f.registerCampaign(t, c, firstPlan, farFuture, hour(1))
	f.whitelist(t, firstPlan, a, alice)
	f.whitelist(t, secondPlan, b, alice)
	f.whitelist(t, firstPlan, c, alice)

	now := day(1) + hour(16)
	// Interleaved input: grouping preserves first-seen plan order and skips
	// unknown ids.
	summaries, err := f.engine.WalletCampaignsSummary(alice, []vesting.CampaignID{a, b, c, campaignID(0x99)}, now)
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries = %d, want 2", len(summaries))
	}
	if summaries[0].Plan.ID != firstPlan || summaries[1].Plan.ID != secondPlan {
		t.Fatalf("plan order = %d, %d", summaries[0].Plan.ID, summaries[1].Plan.ID)
	}
	if len(summaries[0].Campaigns) != 2 || len(summaries[1].Campaigns) != 1 {
		t.Fatalf("campaign grouping = %d, %d", len(summaries[0].Campaigns), len(summaries[1].Campaigns))
	}
	// Plan one: special 500 + 2 days x1000 per campaign.
	requireAmount(t, summaries[0].TotalClaimable, 5000)
	// Plan two: midnight cutoff, 2 released days x100.
	requireAmount(t, summaries[1].TotalClaimable, 200)
}

func TestWalletCampaignsSummaryEmptyInput(t *testing.T) {
	f := newFixture(t)
	summaries, err := f.engine.WalletCampaignsSummary(alice, nil, hour(1))
	if err != nil {
		t.Fatalf("summaries: %v", err)
	}
	if len(summaries) != 0 {
		t.Fatalf("summaries = %d, want 0", len(summaries))
	}
}
