package services_test

import (
	"testing"
	"time"

	"referral-rewards-system/models"
	"referral-rewards-system/services"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type env struct {
	db          *gorm.DB
	profiles    *services.ProfileService
	ledger      *services.LedgerService
	rules       *services.RuleService
	referrals   *services.ReferralService
	catalog     *services.CatalogService
	redemptions *services.RedemptionService
}

func newTestEnv(t *testing.T) *env {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Profile{},
		&models.Referral{},
		&models.Job{},
		&models.RewardRule{},
		&models.LedgerEntry{},
		&models.AccountBalance{},
		&models.CatalogItem{},
		&models.RedemptionRequest{},
	))

	profiles := services.NewProfileService(db)
	ledger := services.NewLedgerService(db)
	rules := services.NewRuleService(db)

	return &env{
		db:          db,
		profiles:    profiles,
		ledger:      ledger,
		rules:       rules,
		referrals:   services.NewReferralService(db, rules, ledger, profiles),
		catalog:     services.NewCatalogService(db),
		redemptions: services.NewRedemptionService(db, ledger, profiles),
	}
}

func dec(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func seedProfile(t *testing.T, db *gorm.DB, accountType models.AccountType, pref *models.PayoutPreference) *models.Profile {
	t.Helper()
	prof := &models.Profile{
		ID:               uuid.NewString(),
		FullName:         "Test User",
		AccountType:      accountType,
		PayoutPreference: pref,
	}
	require.NoError(t, db.Create(prof).Error)
	return prof
}

func seedReferral(t *testing.T, db *gorm.DB, referrerID string, program models.AccountType, status models.ReferralStatus) *models.Referral {
	t.Helper()
	ref := &models.Referral{
		ID:             uuid.NewString(),
		ReferrerUserID: referrerID,
		ProgramType:    program,
		ReferredName:   "Jane Neighbor",
		ReferredPhone:  "+15550100",
		Status:         status,
	}
	require.NoError(t, db.Create(ref).Error)
	return ref
}

func seedRule(t *testing.T, db *gorm.DB, program models.AccountType, event models.JobType, amount int64, effectiveFrom time.Time, active bool) *models.RewardRule {
	t.Helper()
	rule := &models.RewardRule{
		ID:            uuid.NewString(),
		ProgramType:   program,
		EventType:     event,
		Amount:        dec(amount),
		IsActive:      active,
		EffectiveFrom: effectiveFrom,
	}
	require.NoError(t, db.Create(rule).Error)
	return rule
}

func seedCatalogItem(t *testing.T, db *gorm.DB, name string, cost int64) *models.CatalogItem {
	t.Helper()
	item := &models.CatalogItem{
		ID:         uuid.NewString(),
		Name:       name,
		Slug:       uuid.NewString(), // uniqueness is all tests need
		PointsCost: dec(cost),
		IsActive:   true,
	}
	require.NoError(t, db.Create(item).Error)
	return item
}

// earnPoints appends a points entry through the ledger writer. Negative
// amounts are recorded as redemptions, matching the sign convention.
func earnPoints(t *testing.T, ledger *services.LedgerService, userID string, amount int64) {
	t.Helper()
	entryType := models.EntryEarned
	if amount < 0 {
		entryType = models.EntryRedeemed
	}
	require.NoError(t, ledger.Append(&models.LedgerEntry{
		UserID:       userID,
		EntryType:    entryType,
		CurrencyType: models.CurrencyPoints,
		Amount:       dec(amount),
		Memo:         "test entry",
	}))
}

func requireDecimalEqual(t *testing.T, want, got decimal.Decimal) {
	t.Helper()
	require.True(t, want.Equal(got), "expected %s, got %s", want.String(), got.String())
}
