// services/referral_service.go
package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"referral-rewards-system/models"
	"referral-rewards-system/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ReferralService drives a referral through its workflow and, on completed
// work, issues the reward: job row, rule lookup, ledger entry and status
// changes all commit in one transaction, so a failed rule lookup leaves no
// half-issued referral behind.
type ReferralService struct {
	DB       *gorm.DB
	Rules    *RuleService
	Ledger   *LedgerService
	Profiles *ProfileService
}

func NewReferralService(db *gorm.DB, rules *RuleService, ledger *LedgerService, profiles *ProfileService) *ReferralService {
	return &ReferralService{DB: db, Rules: rules, Ledger: ledger, Profiles: profiles}
}

// TransitionStatus moves a referral along the workflow. Normal-path calls
// must follow the allow-list; override forces any transition and is logged
// distinctly so audit can separate corrections from the regular flow.
func (s *ReferralService) TransitionStatus(referralID string, next models.ReferralStatus, override bool, adminID string) (*models.Referral, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, next)
	}

	var ref models.Referral
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&ref, "id = ?", referralID).Error; err != nil {
			return err
		}
		if ref.Status == next {
			return nil
		}
		if !ref.Status.CanTransitionTo(next) {
			if !override {
				return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, ref.Status, next)
			}
			log.Printf("⚠️ [OVERRIDE] admin %s forced referral %s: %s → %s", adminID, referralID, ref.Status, next)
		}
		ref.Status = next
		return tx.Model(&models.Referral{}).Where("id = ?", ref.ID).
			Update("status", next).Error
	})
	if err != nil {
		return nil, err
	}
	return &ref, nil
}

// Deny sets a referral to Denied with an audit reason. An empty reason
// stores the fixed default so the field is never blank.
func (s *ReferralService) Deny(referralID, reason string, adminID string) (*models.Referral, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = models.DefaultDeniedReason
	}

	var ref models.Referral
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&ref, "id = ?", referralID).Error; err != nil {
			return err
		}
		if ref.Status == models.StatusEligible {
			return fmt.Errorf("%w: %s → %s", ErrInvalidTransition, ref.Status, models.StatusDenied)
		}
		ref.Status = models.StatusDenied
		ref.DeniedReason = &reason
		return tx.Model(&models.Referral{}).Where("id = ?", ref.ID).
			Updates(map[string]interface{}{"status": models.StatusDenied, "denied_reason": reason}).Error
	})
	if err != nil {
		return nil, err
	}
	log.Printf("🚫 Referral %s denied by admin %s: %s", referralID, adminID, reason)
	return &ref, nil
}

// CompleteAndIssue is the composite reward operation, all-or-nothing:
//
//  1. create the Job (one per referral, a second call fails cleanly)
//  2. referral → Completed Work
//  3. resolve the reward rule for (program type, job type)
//  4. append the ledger entry: points for partners, cash/credit per the
//     referrer's payout preference for customers
//  5. referral → Eligible
//
// A missing rule rolls the whole sequence back, job included.
func (s *ReferralService) CompleteAndIssue(referralID string, jobType models.JobType, invoiceNumber string, invoiceTotal decimal.Decimal, now time.Time) (*models.Job, *models.LedgerEntry, error) {
	if !jobType.Valid() {
		return nil, nil, fmt.Errorf("invalid job type %q", jobType)
	}

	var job models.Job
	var entry models.LedgerEntry

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var ref models.Referral
		if err := lockForUpdate(tx).First(&ref, "id = ?", referralID).Error; err != nil {
			return err
		}
		if ref.Status == models.StatusDenied || ref.Status == models.StatusEligible {
			return fmt.Errorf("%w: referral is %s", ErrInvalidTransition, ref.Status)
		}

		var existing models.Job
		err := tx.Where("referral_id = ?", ref.ID).First(&existing).Error
		if err == nil {
			return ErrAlreadyIssued
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		job = models.Job{
			ID:            uuid.NewString(),
			ReferralID:    ref.ID,
			JobType:       jobType,
			InvoiceNumber: invoiceNumber,
			InvoiceTotal:  invoiceTotal,
			CompletedDate: now,
		}
		if err := tx.Create(&job).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Referral{}).Where("id = ?", ref.ID).
			Update("status", models.StatusCompletedWork).Error; err != nil {
			return err
		}

		rule, err := s.Rules.resolveWith(tx, ref.ProgramType, jobType, now)
		if err != nil {
			return err
		}

		entry = models.LedgerEntry{
			ID:         uuid.NewString(),
			UserID:     ref.ReferrerUserID,
			ReferralID: &ref.ID,
			JobID:      &job.ID,
			Amount:     rule.Amount,
		}

		if ref.ProgramType == models.AccountTypePartner {
			entry.EntryType = models.EntryEarned
			entry.CurrencyType = models.CurrencyPoints
			entry.Memo = fmt.Sprintf("Earned %s points for %s referral (Invoice %s)",
				rule.Amount.String(), jobType, invoiceNumber)
		} else {
			var prof models.Profile
			if err := tx.First(&prof, "id = ?", ref.ReferrerUserID).Error; err != nil {
				return err
			}
			pref := models.PayoutCash
			if prof.PayoutPreference != nil {
				pref = *prof.PayoutPreference
			}
			if pref == models.PayoutCredit {
				entry.EntryType = models.EntryEarnedCredit
				entry.CurrencyType = models.CurrencyUSDCredit
			} else {
				entry.EntryType = models.EntryEarnedCash
				entry.CurrencyType = models.CurrencyUSDCash
			}
			entry.Memo = fmt.Sprintf("Earned %s reward for %s referral (Invoice %s)",
				pref, jobType, invoiceNumber)
		}

		if err := s.Ledger.AppendInTx(tx, &entry); err != nil {
			return err
		}

		return tx.Model(&models.Referral{}).Where("id = ?", ref.ID).
			Update("status", models.StatusEligible).Error
	})
	if err != nil {
		return nil, nil, err
	}

	log.Printf("✅ Issued %s %s to %s for referral %s (job %s)",
		entry.Amount.String(), entry.CurrencyType, entry.UserID, referralID, job.ID)
	return &job, &entry, nil
}

// --- User Handlers ---

// SubmitReferral creates a referral for the authenticated user. Program type
// snapshots the submitter's current account type.
func (s *ReferralService) SubmitReferral(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		ReferredName    string `json:"referred_name"`
		ReferredPhone   string `json:"referred_phone"`
		ReferredEmail   string `json:"referred_email"`
		ReferredAddress string `json:"referred_address"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if strings.TrimSpace(req.ReferredName) == "" &&
		strings.TrimSpace(req.ReferredPhone) == "" &&
		strings.TrimSpace(req.ReferredEmail) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "At least one of name, phone or email is required"})
	}

	prof, err := s.Profiles.EnsureProfile(userID)
	if err != nil {
		log.Printf("DB Error ensuring profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}

	ref := &models.Referral{
		ID:              uuid.NewString(),
		ReferrerUserID:  userID,
		ProgramType:     prof.AccountType,
		ReferredName:    utils.NormalizeName(req.ReferredName),
		ReferredPhone:   strings.TrimSpace(req.ReferredPhone),
		ReferredEmail:   strings.TrimSpace(req.ReferredEmail),
		ReferredAddress: strings.TrimSpace(req.ReferredAddress),
		Status:          models.StatusSubmitted,
	}
	if err := s.DB.Create(ref).Error; err != nil {
		log.Printf("DB Error creating referral for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit referral"})
	}

	return c.Status(fiber.StatusCreated).JSON(ref)
}

// GetMyReferrals lists the authenticated user's referrals, newest first.
func (s *ReferralService) GetMyReferrals(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var refs []models.Referral
	if err := s.DB.Where("referrer_user_id = ?", userID).
		Order("created_at DESC").
		Find(&refs).Error; err != nil {
		log.Printf("DB Error fetching referrals for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referrals"})
	}

	return c.JSON(refs)
}

// --- Admin Handlers ---

// AdminReferralRow denormalizes the referrer's display name onto the
// referral for the office screen.
type AdminReferralRow struct {
	models.Referral
	ReferrerDisplay string `json:"referrer_display"`
}

// GetAllReferrals returns every referral with referrer display names (Admin only).
func (s *ReferralService) GetAllReferrals(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 200)
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var rows []AdminReferralRow
	if err := s.DB.Raw(`
		SELECT r.*, COALESCE(NULLIF(p.full_name, ''), r.referrer_user_id) AS referrer_display
		FROM referrals r
		LEFT JOIN profiles p ON p.id = r.referrer_user_id
		ORDER BY r.created_at DESC
		LIMIT ?
	`, limit).Scan(&rows).Error; err != nil {
		log.Printf("DB Error fetching admin referrals: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch referrals"})
	}

	return c.JSON(rows)
}

// UpdateReferralStatus applies a workflow transition (Admin only).
// Pass {"override": true} to force a transition outside the allow-list.
func (s *ReferralService) UpdateReferralStatus(c *fiber.Ctx) error {
	adminID := c.Locals("user_id").(string)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid referral ID"})
	}

	var req struct {
		Status   models.ReferralStatus `json:"status"`
		Override bool                  `json:"override"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ref, err := s.TransitionStatus(id, req.Status, req.Override, adminID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Referral not found"})
	case errors.Is(err, ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Printf("DB Error updating referral %s status: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update status"})
	}

	return c.JSON(fiber.Map{"message": fmt.Sprintf("Updated status to %s.", req.Status), "referral": ref})
}

// DenyReferral denies with an optional reason (Admin only).
func (s *ReferralService) DenyReferral(c *fiber.Ctx) error {
	adminID := c.Locals("user_id").(string)
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid referral ID"})
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.BodyParser(&req); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	ref, err := s.Deny(id, req.Reason, adminID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Referral not found"})
	case errors.Is(err, ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case err != nil:
		log.Printf("DB Error denying referral %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to deny referral"})
	}

	return c.JSON(fiber.Map{"message": "Referral denied.", "referral": ref})
}

// CompleteReferral runs the composite issue operation (Admin only).
func (s *ReferralService) CompleteReferral(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid referral ID"})
	}

	var req struct {
		JobType       models.JobType  `json:"job_type"`
		InvoiceNumber string          `json:"invoice_number"`
		InvoiceTotal  decimal.Decimal `json:"invoice_total"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if !req.JobType.Valid() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "job_type must be Repair, Replacement, VIP_MEMBERSHIP or VIP_RENEWAL"})
	}

	job, entry, err := s.CompleteAndIssue(id, req.JobType, req.InvoiceNumber, req.InvoiceTotal, time.Now())
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Referral not found"})
	case errors.Is(err, ErrAlreadyIssued):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Referral already has an issued job"})
	case errors.Is(err, ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrRuleNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active reward rule for this program and job type; nothing was issued"})
	case err != nil:
		log.Printf("DB Error completing referral %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to complete referral"})
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "Job created and reward issued.",
		"job":     job,
		"entry":   entry,
	})
}

// AttachJobInvoice uploads the invoice document for a job to R2 (Admin only).
// The attachment can be set once; the job row is otherwise immutable.
func (s *ReferralService) AttachJobInvoice(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid job ID"})
	}

	var job models.Job
	if err := s.DB.First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Job not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}
	if job.InvoiceURL != "" {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Job already has an invoice attachment"})
	}

	fileHeader, err := c.FormFile("invoice")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invoice file is required"})
	}

	url, err := utils.UploadAttachment(fileHeader, "invoices")
	if err != nil {
		log.Printf("R2 upload failed for job %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store invoice"})
	}

	if err := s.DB.Model(&models.Job{}).Where("id = ?", id).Update("invoice_url", url).Error; err != nil {
		log.Printf("DB Error saving invoice URL for job %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save invoice URL"})
	}

	return c.JSON(fiber.Map{"message": "Invoice attached", "invoice_url": url})
}
