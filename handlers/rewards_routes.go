// handlers/rewards_routes.go
package handlers

import (
	"referral-rewards-system/middleware"
	"referral-rewards-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRewardsRoutes(app *fiber.App, db *gorm.DB, profileService *services.ProfileService, ledgerService *services.LedgerService, ruleService *services.RuleService) {
	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/profile", profileService.GetMyProfile)
	secured.Put("/profile", profileService.UpdateMyProfile)

	secured.Get("/ledger", ledgerService.GetMyLedger)
	secured.Get("/balances", ledgerService.GetMyBalances)

	// 🔒 Admin-only routes: reward rule versioning
	admin := secured.Group("/admin", middleware.AdminOnlyMiddleware(db))
	admin.Get("/rules", ruleService.ListRules)
	admin.Post("/rules", ruleService.CreateRule)
	admin.Patch("/rules/:id/deactivate", ruleService.DeactivateRule)
}
