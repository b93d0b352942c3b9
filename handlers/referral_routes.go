// handlers/referral_routes.go
package handlers

import (
	"referral-rewards-system/middleware"
	"referral-rewards-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupReferralRoutes(app *fiber.App, db *gorm.DB, referralService *services.ReferralService) {
	// 🔐 Authenticated routes
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/referrals", referralService.SubmitReferral)
	secured.Get("/referrals", referralService.GetMyReferrals)

	// 🔒 Admin-only routes
	admin := secured.Group("/admin", middleware.AdminOnlyMiddleware(db))
	admin.Get("/referrals", referralService.GetAllReferrals)
	admin.Patch("/referrals/:id/status", referralService.UpdateReferralStatus)
	admin.Post("/referrals/:id/deny", referralService.DenyReferral)
	admin.Post("/referrals/:id/complete", referralService.CompleteReferral)
	admin.Post("/jobs/:id/invoice", referralService.AttachJobInvoice)
}
