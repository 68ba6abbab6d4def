package routes

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"workshop-billing-backend/internal/config"
	"workshop-billing-backend/internal/document"
	handler "workshop-billing-backend/internal/handlers"
	"workshop-billing-backend/internal/mailer"
	"workshop-billing-backend/internal/models"
	"workshop-billing-backend/internal/repository"
	"workshop-billing-backend/internal/services/auth"
	"workshop-billing-backend/internal/services/billing"
	"workshop-billing-backend/internal/services/catalog"
	"workshop-billing-backend/internal/services/inventory"
	"workshop-billing-backend/internal/services/orders"
	"workshop-billing-backend/internal/services/tax"
)

func RegisterRoutes(r *gin.Engine, db *gorm.DB, cfg *config.Config) error {
	store := repository.NewStore(db)

	classifier := tax.DefaultClassifier()
	if cfg.ClassifierRulesFile != "" {
		c, err := tax.LoadClassifier(cfg.ClassifierRulesFile)
		if err != nil {
			return fmt.Errorf("classifier rules: %w", err)
		}
		classifier = c
	}

	issuer := document.DefaultIssuer()
	issuer.Name = cfg.IssuerName
	issuer.TaxID = cfg.IssuerTaxID
	issuer.Phone = cfg.IssuerPhone
	issuer.Email = cfg.IssuerEmail
	issuer.DisplayName = cfg.MailFromName

	ledger := inventory.NewLedger()
	authService := auth.NewService(store, auth.Config{
		Secret:        cfg.JWTSecret,
		TTL:           cfg.JWTTTL,
		AdminUsername: cfg.AdminUsername,
	})
	mail := mailer.NewSendGrid(mailer.Config{
		APIKey:   cfg.SendGridAPIKey,
		From:     cfg.MailFrom,
		FromName: cfg.MailFromName,
	})

	billingService := billing.NewService(store, ledger, tax.NewCalculator(classifier), authService, mail, issuer)
	orderService := orders.NewService(store, ledger, authService)
	catalogService := catalog.NewService(store)

	authHandler := handler.NewAuthHandler(authService)
	invoiceHandler := handler.NewInvoiceHandler(billingService)
	orderHandler := handler.NewOrderHandler(orderService)
	catalogHandler := handler.NewCatalogHandler(catalogService)

	api := r.Group("/api")

	// Public
	api.GET("/health", handler.Health)
	api.POST("/auth/login", authHandler.Login)

	secured := api.Group("")
	secured.Use(auth.RequireAuth(authService))

	sellers := auth.RequireRole(models.RoleSeller)
	anyone := auth.RequireRole(models.RoleSeller, models.RoleMechanic)

	secured.POST("/auth/verify-admin", sellers, authHandler.VerifyAdmin)
	secured.GET("/catalog/available", anyone, catalogHandler.Available)

	// Invoice routes
	invoices := secured.Group("/invoices", sellers)
	{
		invoices.POST("", invoiceHandler.Create)
		invoices.POST("/independent", invoiceHandler.CreateIndependent)
		invoices.GET("", invoiceHandler.List)
		invoices.GET("/stats", invoiceHandler.Stats)
		invoices.GET("/labor-report", invoiceHandler.LaborReport)
		invoices.GET("/:id", invoiceHandler.Get)
		invoices.PUT("/:id", invoiceHandler.Edit)
		invoices.PATCH("/:id/payment-state", invoiceHandler.SetPaymentState)
		invoices.PUT("/:id/pay", invoiceHandler.Pay)
		invoices.PUT("/:id/unpay", invoiceHandler.Unpay)
		invoices.DELETE("/:id", invoiceHandler.Delete)
		invoices.DELETE("/:id/secure", invoiceHandler.DeleteSecured)
		invoices.PUT("/:id/restore", invoiceHandler.Restore)
		invoices.GET("/:id/editable", invoiceHandler.Editable)
		invoices.POST("/:id/validate-password", invoiceHandler.ValidatePassword)
		invoices.GET("/:id/pdf", invoiceHandler.PDF)
		invoices.POST("/:id/email", invoiceHandler.SendEmail)
	}

	// Order routes. Mechanics read their own orders and edit them through
	// mechanic-lines only.
	ordersGroup := secured.Group("/orders")
	{
		ordersGroup.GET("", anyone, orderHandler.List)
		ordersGroup.GET("/:id", anyone, orderHandler.Get)
		ordersGroup.PUT("/:id/mechanic-lines", auth.RequireRole(models.RoleMechanic), orderHandler.ReplaceLinesAsMechanic)

		ordersGroup.POST("", sellers, orderHandler.Create)
		ordersGroup.POST("/:id/lines", sellers, orderHandler.AddLine)
		ordersGroup.PUT("/:id/lines", sellers, orderHandler.ReplaceLines)
		ordersGroup.DELETE("/:id/lines", sellers, orderHandler.ClearLines)
		ordersGroup.PATCH("/:id/notes", sellers, orderHandler.UpdateNotes)
		ordersGroup.PATCH("/:id/state", anyone, orderHandler.Transition)
		ordersGroup.DELETE("/:id", sellers, orderHandler.Delete)
		ordersGroup.DELETE("/:id/secure", sellers, orderHandler.DeleteSecured)
	}

	return nil
}
