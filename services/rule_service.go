// services/rule_service.go
package services

import (
	"errors"
	"log"
	"time"

	"referral-rewards-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// RuleService resolves and manages the versioned reward-rule table.
// Rules are append-only configuration: payout changes are new rows with a
// newer effective date, never in-place edits.
type RuleService struct {
	DB *gorm.DB
}

func NewRuleService(db *gorm.DB) *RuleService {
	return &RuleService{DB: db}
}

// Resolve picks the single applicable rule for (programType, eventType) as of
// the given time: active, effective on or before asOf, newest effective date
// wins. Ties on effective date are broken by created_at then id, newest
// first, so resolution is deterministic under identical rule data.
func (s *RuleService) Resolve(programType models.AccountType, eventType models.JobType, asOf time.Time) (*models.RewardRule, error) {
	return s.resolveWith(s.DB, programType, eventType, asOf)
}

// resolveWith lets the referral issue flow resolve inside its transaction.
func (s *RuleService) resolveWith(db *gorm.DB, programType models.AccountType, eventType models.JobType, asOf time.Time) (*models.RewardRule, error) {
	var rule models.RewardRule
	err := db.Where("program_type = ? AND event_type = ? AND is_active = ? AND effective_from <= ?",
		programType, eventType, true, asOf).
		Order("effective_from DESC, created_at DESC, id DESC").
		First(&rule).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRuleNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rule, nil
}

// --- Admin Handlers ---

// CreateRule inserts a new rule version (Admin only).
func (s *RuleService) CreateRule(c *fiber.Ctx) error {
	var req struct {
		ProgramType   models.AccountType `json:"program_type"`
		EventType     models.JobType     `json:"event_type"`
		Amount        decimal.Decimal    `json:"amount"`
		EffectiveFrom *time.Time         `json:"effective_from"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if req.ProgramType != models.AccountTypeCustomer && req.ProgramType != models.AccountTypePartner {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "program_type must be customer or partner"})
	}
	if !req.EventType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid event_type"})
	}
	if req.Amount.IsNegative() || req.Amount.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "amount must be positive"})
	}

	effectiveFrom := time.Now()
	if req.EffectiveFrom != nil {
		effectiveFrom = *req.EffectiveFrom
	}

	rule := &models.RewardRule{
		ID:            uuid.NewString(),
		ProgramType:   req.ProgramType,
		EventType:     req.EventType,
		Amount:        req.Amount,
		IsActive:      true,
		EffectiveFrom: effectiveFrom,
	}
	if err := s.DB.Create(rule).Error; err != nil {
		log.Printf("DB Error creating reward rule: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create rule"})
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

// DeactivateRule retires a rule version without touching its history (Admin only).
func (s *RuleService) DeactivateRule(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid rule ID"})
	}

	var rule models.RewardRule
	if err := s.DB.First(&rule, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rule not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Model(&rule).Update("is_active", false).Error; err != nil {
		log.Printf("DB Error deactivating rule %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to deactivate rule"})
	}

	return c.JSON(fiber.Map{"message": "Rule deactivated", "rule": rule})
}

// ListRules returns every rule version, newest effective first (Admin only).
func (s *RuleService) ListRules(c *fiber.Ctx) error {
	var rules []models.RewardRule
	if err := s.DB.Order("effective_from DESC").Find(&rules).Error; err != nil {
		log.Printf("DB Error listing reward rules: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch rules"})
	}
	return c.JSON(rules)
}
