// services/profile_service.go
package services

import (
	"errors"
	"log"

	"referral-rewards-system/models"
	"referral-rewards-system/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ProfileService manages local profile records keyed by the identity
// provider's user ID. Profiles appear on first request and are refreshed by
// the identity sync worker; they are never deleted.
type ProfileService struct {
	DB *gorm.DB
}

func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db}
}

// EnsureProfile fetches the profile for userID, creating a default customer
// profile on first sight.
func (s *ProfileService) EnsureProfile(userID string) (*models.Profile, error) {
	var prof models.Profile
	err := s.DB.First(&prof, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		prof = models.Profile{
			ID:          userID,
			AccountType: models.AccountTypeCustomer,
		}
		if createErr := s.DB.Create(&prof).Error; createErr != nil {
			return nil, createErr
		}
		log.Printf("👤 Created profile for new user %s", userID)
		return &prof, nil
	}
	if err != nil {
		return nil, err
	}
	return &prof, nil
}

// IsAdmin checks the local admin flag for userID.
func (s *ProfileService) IsAdmin(userID string) (bool, error) {
	prof, err := s.EnsureProfile(userID)
	if err != nil {
		return false, err
	}
	return prof.IsAdmin, nil
}

// --- User Handlers ---

// GetMyProfile returns (creating if needed) the authenticated user's profile.
func (s *ProfileService) GetMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	prof, err := s.EnsureProfile(userID)
	if err != nil {
		log.Printf("DB Error ensuring profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}

	return c.JSON(prof)
}

// UpdateMyProfile handles onboarding: name, account type, payout preference.
// The admin flag is not self-service and cannot be set here.
func (s *ProfileService) UpdateMyProfile(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	var req struct {
		FullName         *string                  `json:"full_name"`
		AccountType      *models.AccountType      `json:"account_type"`
		PayoutPreference *models.PayoutPreference `json:"payout_preference"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	prof, err := s.EnsureProfile(userID)
	if err != nil {
		log.Printf("DB Error ensuring profile for %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to load profile"})
	}

	if req.FullName != nil {
		prof.FullName = utils.NormalizeName(*req.FullName)
	}
	if req.AccountType != nil {
		if *req.AccountType != models.AccountTypeCustomer && *req.AccountType != models.AccountTypePartner {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "account_type must be customer or partner"})
		}
		prof.AccountType = *req.AccountType
	}
	if req.PayoutPreference != nil {
		if *req.PayoutPreference != models.PayoutCash && *req.PayoutPreference != models.PayoutCredit {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "payout_preference must be cash or credit"})
		}
		prof.PayoutPreference = req.PayoutPreference
	}

	if err := s.DB.Save(prof).Error; err != nil {
		log.Printf("DB Error updating profile %s: %v", userID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update profile"})
	}

	return c.JSON(prof)
}
