// services/catalog_service.go
package services

import (
	"errors"
	"log"
	"strings"

	"referral-rewards-system/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CatalogService manages the points catalog partners redeem against.
type CatalogService struct {
	DB *gorm.DB
}

func NewCatalogService(db *gorm.DB) *CatalogService {
	return &CatalogService{DB: db}
}

// --- User Handlers ---

// GetActiveCatalog lists active items, cheapest first.
func (s *CatalogService) GetActiveCatalog(c *fiber.Ctx) error {
	var items []models.CatalogItem
	if err := s.DB.Where("is_active = ?", true).
		Order("points_cost ASC").
		Find(&items).Error; err != nil {
		log.Printf("DB Error fetching catalog: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch catalog"})
	}
	return c.JSON(items)
}

// --- Admin Handlers ---

// CreateItem adds a catalog item (Admin only). Name is required.
func (s *CatalogService) CreateItem(c *fiber.Ctx) error {
	var req struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		PointsCost  decimal.Decimal `json:"points_cost"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Catalog name required."})
	}
	if req.PointsCost.IsNegative() || req.PointsCost.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "points_cost must be positive"})
	}

	item := &models.CatalogItem{
		ID:          uuid.NewString(),
		Name:        name,
		Slug:        slug.Make(name),
		Description: strings.TrimSpace(req.Description),
		PointsCost:  req.PointsCost,
		IsActive:    true,
	}
	if err := s.DB.Create(item).Error; err != nil {
		log.Printf("DB Error creating catalog item: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to create catalog item"})
	}

	return c.Status(fiber.StatusCreated).JSON(item)
}

// ListAllItems returns active and inactive items (Admin only).
func (s *CatalogService) ListAllItems(c *fiber.Ctx) error {
	var items []models.CatalogItem
	if err := s.DB.Order("created_at DESC").Find(&items).Error; err != nil {
		log.Printf("DB Error fetching catalog items: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to fetch catalog items"})
	}
	return c.JSON(items)
}

// SetItemActive activates or deactivates an item (Admin only).
// Outstanding redemption requests keep their snapshot cost either way.
func (s *CatalogService) SetItemActive(c *fiber.Ctx) error {
	id := c.Params("id")
	if _, err := uuid.Parse(id); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid catalog item ID"})
	}

	var req struct {
		IsActive bool `json:"is_active"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	var item models.CatalogItem
	if err := s.DB.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Catalog item not found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "DB error"})
	}

	if err := s.DB.Model(&item).Update("is_active", req.IsActive).Error; err != nil {
		log.Printf("DB Error toggling catalog item %s: %v", id, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to update catalog item"})
	}

	return c.JSON(fiber.Map{"message": "Catalog item updated", "item": item})
}
