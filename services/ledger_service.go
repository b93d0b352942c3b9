// services/ledger_service.go
package services

import (
	"errors"
	"log"

	"referral-rewards-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LedgerService owns every write to ledger_entries and the running
// account_balances rows. Entries are append-only: this service has no
// update or delete method, and nothing else in the codebase touches the
// table.
type LedgerService struct {
	DB *gorm.DB
}

func NewLedgerService(db *gorm.DB) *LedgerService {
	return &LedgerService{DB: db}
}

// lockForUpdate applies a row lock where the dialect supports it.
// The sqlite test driver rejects FOR UPDATE; its writes are serialized anyway.
func lockForUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// AppendInTx inserts a ledger entry and moves the matching running balance
// inside the caller's transaction. This is the only write path to the ledger;
// issue and fulfillment both go through it so the entry and the balance can
// never commit separately.
func (s *LedgerService) AppendInTx(tx *gorm.DB, entry *models.LedgerEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.UserID == "" {
		return errors.New("ledger entry requires a user id")
	}
	if err := tx.Create(entry).Error; err != nil {
		return err
	}

	var bal models.AccountBalance
	err := lockForUpdate(tx).
		Where("user_id = ? AND currency_type = ?", entry.UserID, entry.CurrencyType).
		First(&bal).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		bal = models.AccountBalance{
			ID:           uuid.NewString(),
			UserID:       entry.UserID,
			CurrencyType: entry.CurrencyType,
			Balance:      entry.Amount,
		}
		return tx.Create(&bal).Error
	case err != nil:
		return err
	}

	bal.Balance = bal.Balance.Add(entry.Amount)
	return tx.Model(&models.AccountBalance{}).
		Where("id = ?", bal.ID).
		Update("balance", bal.Balance).Error
}

// Append is the standalone writer contract: one entry, one transaction.
func (s *LedgerService) Append(entry *models.LedgerEntry) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.AppendInTx(tx, entry)
	})
}

// BalanceFor reads the running balance for one currency. A user with no
// entries in that currency has balance zero.
func (s *LedgerService) BalanceFor(userID string, currency models.CurrencyType) (decimal.Decimal, error) {
	var bal models.AccountBalance
	err := s.DB.Where("user_id = ? AND currency_type = ?", userID, currency).First(&bal).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, err
	}
	return bal.Balance, nil
}

// RecomputeBalance folds the complete entry history for one (user, currency).
// Used by the reconciliation job and tests; never by request handlers, which
// read the running balance instead.
func (s *LedgerService) RecomputeBalance(userID string, currency models.CurrencyType) (decimal.Decimal, error) {
	var entries []models.LedgerEntry
	if err := s.DB.Where("user_id = ? AND currency_type = ?", userID, currency).
		Find(&entries).Error; err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	for _, e := range entries {
		sum = sum.Add(e.Amount)
	}
	return sum, nil
}

// --- User Handlers ---

// GetMyLedger returns the authenticated user's entries, newest first.
func (s *LedgerService) GetMyLedger(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	limit := c.QueryInt("limit", 50)
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	var entries []models.LedgerEntry
	if err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error; err != nil {
		log.Printf("DB Error fetching ledger for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch ledger"})
	}

	return c.JSON(entries)
}

// GetMyBalances returns the running balance per currency. This always
// reflects the full entry history regardless of any display limit on the
// ledger listing.
func (s *LedgerService) GetMyBalances(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var balances []models.AccountBalance
	if err := s.DB.Where("user_id = ?", userID).Find(&balances).Error; err != nil {
		log.Printf("DB Error fetching balances for user %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch balances"})
	}

	out := fiber.Map{
		string(models.CurrencyPoints):    decimal.Zero,
		string(models.CurrencyUSDCash):   decimal.Zero,
		string(models.CurrencyUSDCredit): decimal.Zero,
	}
	for _, b := range balances {
		out[string(b.CurrencyType)] = b.Balance
	}

	return c.JSON(out)
}
