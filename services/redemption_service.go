// services/redemption_service.go
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
	"gorm.io/gorm"
)

// RedemptionService handles partner redemption requests and their admin
// fulfillment. Both sides run in single transactions: the request locks the
// points balance so two concurrent requests cannot both pass the same check,
// and fulfillment locks the request so a double fulfill deducts exactly once.
type RedemptionService struct {
	DB       *gorm.DB
	Ledger   *LedgerService
	Profiles *ProfileService
}

func NewRedemptionService(db *gorm.DB, ledger *LedgerService, profiles *ProfileService) *RedemptionService {
	return &RedemptionService{DB: db, Ledger: ledger, Profiles: profiles}
}

// Request validates the points balance against the item cost and creates the
// request with a cost snapshot. Balance == cost is accepted; below is not.
func (s *RedemptionService) Request(userID, catalogItemID string) (*models.RedemptionRequest, error) {
	prof, err := s.Profiles.EnsureProfile(userID)
	if err != nil {
		return nil, err
	}
	if prof.AccountType != models.AccountTypePartner {
		return nil, ErrNotPartnerAccount
	}

	var req models.RedemptionRequest
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		var item models.CatalogItem
		if err := tx.Where("id = ? AND is_active = ?", catalogItemID, true).First(&item).Error; err != nil {
			return err
		}

		// Lock the balance row so concurrent requests serialize here.
		var bal models.AccountBalance
		err := lockForUpdate(tx).
			Where("user_id = ? AND currency_type = ?", userID, models.CurrencyPoints).
			First(&bal).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if bal.Balance.LessThan(item.PointsCost) {
			return fmt.Errorf("%w: have %s, need %s", ErrInsufficientBalance,
				bal.Balance.String(), item.PointsCost.String())
		}

		req = models.RedemptionRequest{
			ID:            uuid.NewString(),
			UserID:        userID,
			CatalogItemID: item.ID,
			PointsCost:    item.PointsCost,
			Status:        models.RedemptionRequested,
		}
		return tx.Create(&req).Error
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Fulfill deducts the snapshot cost and closes the request, atomically.
// A request can be fulfilled exactly once. The balance is not re-validated
// here: the office committed to the request when it was accepted, so a
// balance that has since dropped goes negative rather than stranding the
// request.
func (s *RedemptionService) Fulfill(requestID, reference string, now time.Time) (*models.RedemptionRequest, error) {
	reference = strings.TrimSpace(reference)

	var req models.RedemptionRequest
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := lockForUpdate(tx).First(&req, "id = ?", requestID).Error; err != nil {
			return err
		}
		if req.Status == models.RedemptionFulfilled {
			return ErrAlreadyFulfilled
		}

		var item models.CatalogItem
		itemName := req.CatalogItemID
		if err := tx.First(&item, "id = ?", req.CatalogItemID).Error; err == nil {
			itemName = item.Name
		}

		entry := models.LedgerEntry{
			ID:                  uuid.NewString(),
			UserID:              req.UserID,
			RedemptionRequestID: &req.ID,
			EntryType:           models.EntryRedeemed,
			CurrencyType:        models.CurrencyPoints,
			Amount:              req.PointsCost.Neg(),
			Memo:                fmt.Sprintf("Redeemed points for: %s", itemName),
		}
		if err := s.Ledger.AppendInTx(tx, &entry); err != nil {
			return err
		}

		updates := map[string]interface{}{
			"status":       models.RedemptionFulfilled,
			"fulfilled_at": now,
		}
		if reference != "" {
			updates["fulfillment_reference"] = reference
		}
		if err := tx.Model(&models.RedemptionRequest{}).Where("id = ?", req.ID).
			Updates(updates).Error; err != nil {
			return err
		}

		req.Status = models.RedemptionFulfilled
		req.FulfilledAt = &now
		if reference != "" {
			req.FulfillmentReference = &reference
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// --- User Handlers ---

// RequestRedemption submits a redemption request for the authenticated partner.
func (s *RedemptionService) RequestRedemption(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var body struct {
		CatalogItemID string `json:"catalog_item_id"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if _, err := uuid.Parse(body.CatalogItemID); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid catalog item ID"})
	}

	req, err := s.Request(userID, body.CatalogItemID)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Catalog item not found or inactive"})
	case errors.Is(err, ErrNotPartnerAccount):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, ErrInsufficientBalance):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": "Insufficient points."})
	case err != nil:
		log.Printf("DB Error creating redemption request for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to submit redemption request"})
	}

	return c.Status(fiber.StatusCreated).JSON(req)
}

// GetMyRedemptions lists the authenticated user's requests, newest first.
func (s *RedemptionService) GetMyRedemptions(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var reqs []models.RedemptionRequest
	if err := s.DB.Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&reqs).Error; err != nil {
		log.Printf("DB Error fetching redemptions for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch redemption requests"})
	}

	return c.JSON(reqs)
}

// --- Admin Handlers ---

// AdminRedemptionRow denormalizes requester and item names for the office screen.
type AdminRedemptionRow struct {
	models.RedemptionRequest
	UserDisplay     string `json:"user_display"`
	CatalogItemName string `json:"catalog_item_name"`
}

// GetAllRedemptions returns every request with display names (Admin only).
func (s *RedemptionService) GetAllRedemptions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 200)
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var rows []AdminRedemptionRow
	if err := s.DB.Raw(`
		SELECT rr.*,
		       COALESCE(NULLIF(p.full_name, ''), rr.user_id) AS user_display,
		       COALESCE(ci.name, rr.catalog_item_id)          AS catalog_item_name
		FROM redemption_requests rr
		LEFT JOIN profiles p ON p.id = rr.user_id
		LEFT JOIN catalog_items ci ON ci.id = rr.catalog_item_id
		ORDER BY rr.created_at DESC
		LIMIT ?
	`, limit).Scan(&rows).Error; err != nil {
		log.Printf("DB Error fetching admin redemptions: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch redemption requests"})
	}

	return c.JSON(rows)
}

// FulfillRedemption deducts points and closes the request (Admin only).
func (s *RedemptionService) FulfillRedemption(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid redemption request ID"})
	}

	var body struct {
		FulfillmentReference string `json:"fulfillment_reference"`
	}
	if err := c.BodyParser(&body); err != nil && !errors.Is(err, fiber.ErrUnprocessableEntity) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	req, err := s.Fulfill(id, body.FulfillmentReference, time.Now())
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Redemption request not found"})
	case errors.Is(err, ErrAlreadyFulfilled):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": "Redemption request already fulfilled"})
	case err != nil:
		log.Printf("DB Error fulfilling redemption %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fulfill redemption"})
	}

	log.Printf("✅ Redemption %s fulfilled: %s points deducted from %s", req.ID, req.PointsCost.String(), req.UserID)
	return c.JSON(fiber.Map{"message": "Redemption fulfilled and points deducted.", "request": req})
}

// AttachReceipt uploads the fulfillment receipt for a request to R2 (Admin only).
func (s *RedemptionService) AttachReceipt(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid redemption request ID"})
	}

	var req models.RedemptionRequest
	if err := s.DB.First(&req, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Redemption request not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	fileHeader, err := c.FormFile("receipt")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "receipt file is required"})
	}

	url, err := utils.UploadAttachment(fileHeader, "receipts")
	if err != nil {
		log.Printf("R2 upload failed for redemption %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to store receipt"})
	}

	if err := s.DB.Model(&models.RedemptionRequest{}).Where("id = ?", id).
		Update("receipt_url", url).Error; err != nil {
		log.Printf("DB Error saving receipt URL for redemption %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to save receipt URL"})
	}

	return c.JSON(fiber.Map{"message": "Receipt attached", "receipt_url": url})
}
