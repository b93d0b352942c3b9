// middleware/admin.go
package middleware

import (
	"errors"
	"log"

	"referral-rewards-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// AdminOnlyMiddleware guards the /admin group. A request passes if the
// gateway forwarded the admin role, or if the local profile carries the
// admin flag (the flag is set operationally, never self-service).
func AdminOnlyMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, _ := c.Locals("user_id").(string)
		if userID == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "authentication required"})
		}

		if HasRole(c, "admin") {
			return c.Next()
		}

		var prof models.Profile
		err := db.First(&prof, "id = ?", userID).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("DB Error checking admin flag for %s: %v", userID, err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to verify admin access"})
		}
		if !prof.IsAdmin {
			log.Printf("🚫 [ADMIN] user %s attempted admin route %s", userID, c.Path())
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "admin access required"})
		}

		return c.Next()
	}
}
