// handlers/redemption_routes.go
package handlers

import (
	"referral-rewards-system/middleware"
	"referral-rewards-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupRedemptionRoutes(app *fiber.App, db *gorm.DB, catalogService *services.CatalogService, redemptionService *services.RedemptionService) {
	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/catalog", catalogService.GetActiveCatalog)
	secured.Post("/redemptions", redemptionService.RequestRedemption)
	secured.Get("/redemptions", redemptionService.GetMyRedemptions)

	// 🔒 Admin-only routes
	admin := secured.Group("/admin", middleware.AdminOnlyMiddleware(db))
	admin.Get("/catalog", catalogService.ListAllItems)
	admin.Post("/catalog", catalogService.CreateItem)
	admin.Patch("/catalog/:id/active", catalogService.SetItemActive)
	admin.Get("/redemptions", redemptionService.GetAllRedemptions)
	admin.Post("/redemptions/:id/fulfill", redemptionService.FulfillRedemption)
	admin.Post("/redemptions/:id/receipt", redemptionService.AttachReceipt)
}
