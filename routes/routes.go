package routes

import (
	"restaurant-pos-api/handlers"
	"restaurant-pos-api/middleware"
	"restaurant-pos-api/models"

	"github.com/gin-gonic/gin"
)

var (
	managers  = []models.UserRole{models.RoleAdmin, models.RoleManager}
	floor     = []models.UserRole{models.RoleAdmin, models.RoleManager, models.RoleWaiter, models.RoleCashier}
	kitchen   = []models.UserRole{models.RoleAdmin, models.RoleManager, models.RoleKitchen, models.RoleWaiter}
	cashiers  = []models.UserRole{models.RoleAdmin, models.RoleManager, models.RoleCashier, models.RoleWaiter}
	everybody = models.UserRoles
)

func SetupRoutes(r *gin.Engine) {
	r.GET("/health", handlers.Health)

	// ── Public routes ──────────────────────────────────────────────
	public := r.Group("/api")
	{
		public.POST("/auth/login", handlers.Login)
		public.GET("/state-machine", handlers.GetStateMachineInfo)
	}

	// product pages subscribe without a token; browsers cannot set headers on upgrades
	r.GET("/ws/products/:id", handlers.ProductSocket)

	// ── Any signed-in staff member ─────────────────────────────────
	staff := r.Group("/api")
	staff.Use(middleware.AuthRequired(), middleware.ActiveAccount(), middleware.RoleRequired(everybody...))
	{
		staff.GET("/profile", handlers.GetProfile)
		staff.PUT("/profile/password", handlers.ChangePassword)

		staff.GET("/categories", handlers.ListCategories)
		staff.GET("/categories/:id", handlers.GetCategory)
		staff.GET("/subcategories", handlers.ListSubcategories)
		staff.GET("/subcategories/:id", handlers.GetSubcategory)
		staff.GET("/products", handlers.ListProducts)
		staff.GET("/products/:id", handlers.GetProduct)
		staff.GET("/catalog/suggest", handlers.SuggestCatalogDefaults)

		staff.GET("/areas", handlers.ListAreas)
		staff.GET("/tables", handlers.ListTables)
		staff.GET("/tables/:id", handlers.GetTable)
		staff.GET("/tables-enhanced", handlers.ListTablesEnhanced)

		staff.GET("/orders", handlers.ListOrders)
		staff.GET("/orders/kitchen", handlers.GetKitchenOrders)
		staff.GET("/orders/:id", handlers.GetOrder)
		staff.PATCH("/orders/:id/status", handlers.UpdateOrderStatus)
	}

	// ── Floor service ──────────────────────────────────────────────
	service := r.Group("/api")
	service.Use(middleware.AuthRequired(), middleware.ActiveAccount(), middleware.RoleRequired(floor...))
	{
		service.POST("/orders", handlers.CreateOrder)
		service.PATCH("/tables/:id/status", handlers.UpdateTableStatus)
	}

	// ── Kitchen display ────────────────────────────────────────────
	line := r.Group("/api")
	line.Use(middleware.AuthRequired(), middleware.ActiveAccount(), middleware.RoleRequired(kitchen...))
	{
		line.PATCH("/orders/:id/items/:itemId/status", handlers.UpdateOrderItemStatus)
	}

	// ── Checkout ───────────────────────────────────────────────────
	till := r.Group("/api")
	till.Use(middleware.AuthRequired(), middleware.ActiveAccount(), middleware.RoleRequired(cashiers...))
	{
		till.POST("/orders/:id/checkout", handlers.Checkout)
	}

	// ── Management: catalog, floor plan, reports ───────────────────
	manage := r.Group("/api")
	manage.Use(middleware.AuthRequired(), middleware.ActiveAccount(), middleware.RoleRequired(managers...))
	{
		manage.POST("/categories", handlers.CreateCategory)
		manage.PUT("/categories/:id", handlers.UpdateCategory)
		manage.DELETE("/categories/:id", handlers.DeleteCategory)
		manage.POST("/subcategories", handlers.CreateSubcategory)
		manage.PUT("/subcategories/:id", handlers.UpdateSubcategory)
		manage.DELETE("/subcategories/:id", handlers.DeleteSubcategory)
		manage.POST("/products", handlers.CreateProduct)
		manage.PUT("/products/:id", handlers.UpdateProduct)
		manage.PATCH("/products/:id/availability", handlers.SetProductAvailability)
		manage.DELETE("/products/:id", handlers.DeleteProduct)
		manage.POST("/catalog/wizard", handlers.CreateCatalogWizard)

		manage.POST("/areas", handlers.CreateArea)
		manage.PUT("/areas/:id", handlers.UpdateArea)
		manage.DELETE("/areas/:id", handlers.DeleteArea)
		manage.POST("/tables", handlers.CreateTable)
		manage.PUT("/tables/:id", handlers.UpdateTable)
		manage.DELETE("/tables/:id", handlers.DeleteTable)

		manage.GET("/reports/summary", handlers.GetSalesSummary)
		manage.GET("/reports/products", handlers.GetProductSales)
		manage.GET("/reports/daily", handlers.GetDailyReports)
		manage.GET("/reports/daily.csv", handlers.ExportDailyReportsCSV)
		manage.GET("/reports/daily.xlsx", handlers.ExportDailyReportsXLSX)
	}

	// ── Organization settings ──────────────────────────────────────
	admin := r.Group("/api")
	admin.Use(middleware.AuthRequired(), middleware.ActiveAccount(), middleware.RoleRequired(models.RoleAdmin))
	{
		admin.GET("/companies", handlers.ListCompanies)
		admin.POST("/companies", handlers.CreateCompany)
		admin.PUT("/companies/:id", handlers.UpdateCompany)
		admin.DELETE("/companies/:id", handlers.DeleteCompany)
		admin.GET("/roles", handlers.ListRoles)
		admin.POST("/roles", handlers.CreateRole)
		admin.PUT("/roles/:id", handlers.UpdateRole)
		admin.DELETE("/roles/:id", handlers.DeleteRole)
		admin.GET("/users", handlers.ListUsers)
		admin.POST("/users", handlers.CreateUser)
		admin.PUT("/users/:id", handlers.UpdateUser)
	}
}
