package services_test

import (
	"errors"
	"testing"
	"time"

	"referral-rewards-system/models"
	"referral-rewards-system/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// WORKFLOW TRANSITION TESTS
// =============================================================================

func TestTransitionStatus_NormalPathAllowed(t *testing.T) {
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypePartner, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypePartner, models.StatusSubmitted)

	got, err := e.referrals.TransitionStatus(ref.ID, models.StatusApproved, false, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestTransitionStatus_SkippingStagesRejected(t *testing.T) {
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypePartner, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypePartner, models.StatusSubmitted)

	_, err := e.referrals.TransitionStatus(ref.ID, models.StatusEligible, false, "admin-1")
	require.True(t, errors.Is(err, services.ErrInvalidTransition))

	// Nothing moved.
	var stored models.Referral
	require.NoError(t, e.db.First(&stored, "id = ?", ref.ID).Error)
	assert.Equal(t, models.StatusSubmitted, stored.Status)
}

func TestTransitionStatus_OverrideForcesAnyTransition(t *testing.T) {
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypePartner, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypePartner, models.StatusDenied)

	got, err := e.referrals.TransitionStatus(ref.ID, models.StatusApproved, true, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, got.Status)
}

func TestTransitionStatus_UnknownStatusRejected(t *testing.T) {
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypePartner, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypePartner, models.StatusSubmitted)

	_, err := e.referrals.TransitionStatus(ref.ID, models.ReferralStatus("Archived"), true, "admin-1")
	require.True(t, errors.Is(err, services.ErrInvalidTransition))
}

// =============================================================================
// DENIAL TESTS
// =============================================================================

func TestDeny_EmptyReasonStoresDefault(t *testing.T) {
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypeCustomer, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypeCustomer, models.StatusSubmitted)

	got, err := e.referrals.Deny(ref.ID, "   ", "admin-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusDenied, got.Status)
	require.NotNil(t, got.DeniedReason)
	assert.Equal(t, models.DefaultDeniedReason, *got.DeniedReason)
}

func TestDeny_ReasonIsStored(t *testing.T) {
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypeCustomer, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypeCustomer, models.StatusScheduled)

	got, err := e.referrals.Deny(ref.ID, "duplicate submission", "admin-1")
	require.NoError(t, err)
	require.NotNil(t, got.DeniedReason)
	assert.Equal(t, "duplicate submission", *got.DeniedReason)
}

func TestDeny_EligibleReferralCannotBeDenied(t *testing.T) {
	// Once the reward is issued the referral is settled; denial would strand
	// a ledger entry with no matching workflow state.
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypeCustomer, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypeCustomer, models.StatusEligible)

	_, err := e.referrals.Deny(ref.ID, "changed our mind", "admin-1")
	require.True(t, errors.Is(err, services.ErrInvalidTransition))
}

// =============================================================================
// COMPLETE-AND-ISSUE TESTS
// =============================================================================

func TestCompleteAndIssue_PartnerEarnsPoints(t *testing.T) {
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypePartner, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypePartner, models.StatusScheduled)
	seedRule(t, e.db, models.AccountTypePartner, models.JobTypeRepair, 100,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true)

	job, entry, err := e.referrals.CompleteAndIssue(ref.ID, models.JobTypeRepair, "INV-42", dec(2500), time.Now())
	require.NoError(t, err)

	assert.Equal(t, ref.ID, job.ReferralID)
	assert.Equal(t, models.JobTypeRepair, job.JobType)

	assert.Equal(t, models.EntryEarned, entry.EntryType)
	assert.Equal(t, models.CurrencyPoints, entry.CurrencyType)
	requireDecimalEqual(t, dec(100), entry.Amount)
	assert.Equal(t, "Earned 100 points for Repair referral (Invoice INV-42)", entry.Memo)

	var stored models.Referral
	require.NoError(t, e.db.First(&stored, "id = ?", ref.ID).Error)
	assert.Equal(t, models.StatusEligible, stored.Status)

	bal, err := e.ledger.BalanceFor(prof.ID, models.CurrencyPoints)
	require.NoError(t, err)
	requireDecimalEqual(t, dec(100), bal)
}

func TestCompleteAndIssue_CustomerCreditPreference(t *testing.T) {
	e := newTestEnv(t)
	pref := models.PayoutCredit
	prof := seedProfile(t, e.db, models.AccountTypeCustomer, &pref)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypeCustomer, models.StatusScheduled)
	seedRule(t, e.db, models.AccountTypeCustomer, models.JobTypeReplacement, 250,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true)

	_, entry, err := e.referrals.CompleteAndIssue(ref.ID, models.JobTypeReplacement, "INV-7", dec(12000), time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.EntryEarnedCredit, entry.EntryType)
	assert.Equal(t, models.CurrencyUSDCredit, entry.CurrencyType)
	requireDecimalEqual(t, dec(250), entry.Amount)

	bal, err := e.ledger.BalanceFor(prof.ID, models.CurrencyUSDCredit)
	require.NoError(t, err)
	requireDecimalEqual(t, dec(250), bal)
}

func TestCompleteAndIssue_CustomerDefaultsToCash(t *testing.T) {
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypeCustomer, nil) // no preference set
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypeCustomer, models.StatusScheduled)
	seedRule(t, e.db, models.AccountTypeCustomer, models.JobTypeRepair, 50,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true)

	_, entry, err := e.referrals.CompleteAndIssue(ref.ID, models.JobTypeRepair, "INV-8", dec(900), time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.EntryEarnedCash, entry.EntryType)
	assert.Equal(t, models.CurrencyUSDCash, entry.CurrencyType)
	assert.Equal(t, "Earned cash reward for Repair referral (Invoice INV-8)", entry.Memo)
}

func TestCompleteAndIssue_NoRule_RollsBackEverything(t *testing.T) {
	// The original flow issued the job and flipped statuses even when the
	// rule lookup failed. Here the failure aborts the whole sequence.
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypePartner, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypePartner, models.StatusScheduled)

	_, _, err := e.referrals.CompleteAndIssue(ref.ID, models.JobTypeRepair, "INV-1", dec(100), time.Now())
	require.True(t, errors.Is(err, services.ErrRuleNotFound))

	var jobCount, entryCount int64
	require.NoError(t, e.db.Model(&models.Job{}).Count(&jobCount).Error)
	require.NoError(t, e.db.Model(&models.LedgerEntry{}).Count(&entryCount).Error)
	assert.Zero(t, jobCount)
	assert.Zero(t, entryCount)

	var stored models.Referral
	require.NoError(t, e.db.First(&stored, "id = ?", ref.ID).Error)
	assert.Equal(t, models.StatusScheduled, stored.Status)
}

func TestCompleteAndIssue_SettledReferralRejected(t *testing.T) {
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypePartner, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypePartner, models.StatusScheduled)
	seedRule(t, e.db, models.AccountTypePartner, models.JobTypeRepair, 100,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true)

	_, _, err := e.referrals.CompleteAndIssue(ref.ID, models.JobTypeRepair, "INV-1", dec(100), time.Now())
	require.NoError(t, err)

	// Referral is now Eligible; a repeat issue attempt is refused.
	_, _, err = e.referrals.CompleteAndIssue(ref.ID, models.JobTypeRepair, "INV-1", dec(100), time.Now())
	require.True(t, errors.Is(err, services.ErrInvalidTransition))

	var entryCount int64
	require.NoError(t, e.db.Model(&models.LedgerEntry{}).Count(&entryCount).Error)
	assert.EqualValues(t, 1, entryCount)
}

func TestCompleteAndIssue_ExistingJobRejectedEvenAfterOverride(t *testing.T) {
	// Even if an admin forces the workflow backwards, the one-job-per-referral
	// guard blocks a second issue.
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypePartner, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypePartner, models.StatusScheduled)
	seedRule(t, e.db, models.AccountTypePartner, models.JobTypeRepair, 100,
		time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), true)

	_, _, err := e.referrals.CompleteAndIssue(ref.ID, models.JobTypeRepair, "INV-1", dec(100), time.Now())
	require.NoError(t, err)

	_, err = e.referrals.TransitionStatus(ref.ID, models.StatusScheduled, true, "admin-1")
	require.NoError(t, err)

	_, _, err = e.referrals.CompleteAndIssue(ref.ID, models.JobTypeRepair, "INV-2", dec(100), time.Now())
	require.True(t, errors.Is(err, services.ErrAlreadyIssued))

	var entryCount int64
	require.NoError(t, e.db.Model(&models.LedgerEntry{}).Count(&entryCount).Error)
	assert.EqualValues(t, 1, entryCount)
}

func TestCompleteAndIssue_InvalidJobTypeRejected(t *testing.T) {
	e := newTestEnv(t)
	prof := seedProfile(t, e.db, models.AccountTypePartner, nil)
	ref := seedReferral(t, e.db, prof.ID, models.AccountTypePartner, models.StatusScheduled)

	_, _, err := e.referrals.CompleteAndIssue(ref.ID, models.JobType("Paint"), "INV-1", dec(100), time.Now())
	require.Error(t, err)
}
