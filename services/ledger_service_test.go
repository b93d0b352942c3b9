package services_test

import (
	"testing"

	"referral-rewards-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestAppend_RunningBalanceTracksLedgerFold(t *testing.T) {
	e := newTestEnv(t)
	userID := uuid.NewString()

	earnPoints(t, e.ledger, userID, 100)
	earnPoints(t, e.ledger, userID, 150)
	earnPoints(t, e.ledger, userID, -80)

	running, err := e.ledger.BalanceFor(userID, models.CurrencyPoints)
	require.NoError(t, err)
	requireDecimalEqual(t, dec(170), running)

	// The running balance must equal the fold over the complete history.
	folded, err := e.ledger.RecomputeBalance(userID, models.CurrencyPoints)
	require.NoError(t, err)
	requireDecimalEqual(t, folded, running)
}

func TestAppend_CurrenciesAreIndependent(t *testing.T) {
	e := newTestEnv(t)
	userID := uuid.NewString()

	require.NoError(t, e.ledger.Append(&models.LedgerEntry{
		UserID:       userID,
		EntryType:    models.EntryEarnedCash,
		CurrencyType: models.CurrencyUSDCash,
		Amount:       dec(50),
	}))
	earnPoints(t, e.ledger, userID, 200)

	cash, err := e.ledger.BalanceFor(userID, models.CurrencyUSDCash)
	require.NoError(t, err)
	requireDecimalEqual(t, dec(50), cash)

	points, err := e.ledger.BalanceFor(userID, models.CurrencyPoints)
	require.NoError(t, err)
	requireDecimalEqual(t, dec(200), points)

	credit, err := e.ledger.BalanceFor(userID, models.CurrencyUSDCredit)
	require.NoError(t, err)
	requireDecimalEqual(t, dec(0), credit)
}

func TestBalanceFor_UnknownUserIsZero(t *testing.T) {
	e := newTestEnv(t)

	bal, err := e.ledger.BalanceFor(uuid.NewString(), models.CurrencyPoints)
	require.NoError(t, err)
	requireDecimalEqual(t, dec(0), bal)
}

func TestAppend_RequiresUserID(t *testing.T) {
	e := newTestEnv(t)

	err := e.ledger.Append(&models.LedgerEntry{
		EntryType:    models.EntryEarned,
		CurrencyType: models.CurrencyPoints,
		Amount:       dec(10),
	})
	require.Error(t, err)
}

func TestAppend_EntriesAreNeverMutated(t *testing.T) {
	// Appending more entries only ever adds rows; earlier rows are untouched.
	e := newTestEnv(t)
	userID := uuid.NewString()

	earnPoints(t, e.ledger, userID, 100)

	var before []models.LedgerEntry
	require.NoError(t, e.db.Where("user_id = ?", userID).Find(&before).Error)
	require.Len(t, before, 1)

	earnPoints(t, e.ledger, userID, -30)

	var first models.LedgerEntry
	require.NoError(t, e.db.First(&first, "id = ?", before[0].ID).Error)
	requireDecimalEqual(t, before[0].Amount, first.Amount)
	require.Equal(t, before[0].EntryType, first.EntryType)
}
