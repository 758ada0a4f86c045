package router

import (
	"database/sql"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"

	"github.com/centrohq/centro/authz"
	"github.com/centrohq/centro/handlers"
	"github.com/centrohq/centro/internal/config"
	"github.com/centrohq/centro/services"
	"github.com/centrohq/centro/storage"
)

func NewGinRouter(pg *sql.DB, redisClient *redis.Client, blobs storage.BlobStore) *gin.Engine {
	r := gin.Default()

	// Add CORS middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, PATCH, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Policy engine and membership backend
	authorizer, members := authz.NewSimpleBackend(pg, redisClient)

	// Initialize services
	userService := services.NewUserService(pg)
	apiKeyService := services.NewAPIKeyService(pg)
	auditLogger := services.NewAuditLogger(pg)
	companyService := services.NewCompanyService(pg, authorizer, members)
	workspaceService := services.NewWorkspaceService(pg, authorizer, members,
		config.App.WorkspaceCascade.KanbanTasks, config.App.WorkspaceCascade.Assets)
	roleService := services.NewRoleService(pg, authorizer, members)
	ticketService := services.NewTicketService(pg, authorizer, auditLogger)
	kanbanService := services.NewKanbanService(pg, authorizer, auditLogger)
	assetService := services.NewAssetService(pg, authorizer, blobs, auditLogger)
	chatService := services.NewChatService(pg, authorizer, blobs)
	financeService := services.NewFinanceService(pg, authorizer)
	searchService := services.NewSearchService(pg, authorizer)

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService)
	companyHandler := handlers.NewCompanyHandler(companyService)
	workspaceHandler := handlers.NewWorkspaceHandler(workspaceService)
	roleHandler := handlers.NewRoleHandler(roleService)
	ticketHandler := handlers.NewTicketHandler(ticketService)
	kanbanHandler := handlers.NewKanbanHandler(kanbanService)
	assetHandler := handlers.NewAssetHandler(assetService)
	chatHandler := handlers.NewChatHandler(chatService)
	financeHandler := handlers.NewFinanceHandler(financeService)
	searchHandler := handlers.NewSearchHandler(searchService)
	apiKeyHandler := handlers.NewAPIKeyHandler(apiKeyService)

	authMiddleware := handlers.NewAuthMiddleware(config.App.JWTSecret, userService, apiKeyService)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(authMiddleware.RequireAuth())
	{
		// Users
		api.GET("/me", userHandler.Me)
		api.PATCH("/me/name", userHandler.UpdateName)
		api.GET("/users/:id", userHandler.Get)

		// API keys
		api.POST("/api-keys", apiKeyHandler.Create)
		api.GET("/api-keys", apiKeyHandler.List)
		api.DELETE("/api-keys/:id", apiKeyHandler.Revoke)

		// Companies
		api.POST("/companies", companyHandler.Create)
		api.GET("/companies", companyHandler.List)
		api.GET("/companies/memberships", companyHandler.MyMemberships)
		api.GET("/companies/:id", companyHandler.Get)
		api.PUT("/companies/:id", companyHandler.Update)
		api.DELETE("/companies/:id", companyHandler.Delete)
		api.POST("/companies/:id/transfer", companyHandler.TransferOwnership)
		api.GET("/companies/:id/membership", companyHandler.MyMembership)
		api.GET("/companies/:id/members", companyHandler.Members)
		api.POST("/companies/:id/join", companyHandler.RequestAccess)

		// Company members
		api.PUT("/company-members/:memberId", companyHandler.UpdateMemberProfile)
		api.PATCH("/company-members/:memberId/role", companyHandler.UpdateMemberRole)
		api.PATCH("/company-members/:memberId/status", companyHandler.UpdateMemberStatus)
		api.PATCH("/company-members/:memberId/designation", companyHandler.UpdateMemberDesignation)
		api.DELETE("/company-members/:memberId", companyHandler.RemoveMember)
	}

	// Workspace and downstream routes use a separate group so the company
	// param name stays distinct from :id.
	ws := r.Group("/api/v1")
	ws.Use(authMiddleware.RequireAuth())
	{
		// Workspaces
		ws.POST("/workspaces/company/:companyId", workspaceHandler.Create)
		ws.GET("/workspaces/company/:companyId", workspaceHandler.ListForCompany)
		ws.GET("/workspaces/company/:companyId/mine", workspaceHandler.MyMemberships)
		ws.GET("/workspaces/company/:companyId/admin-stats", workspaceHandler.AdminStats)
		ws.GET("/workspaces/requests/mine", workspaceHandler.MyAccessRequests)
		ws.GET("/workspaces/:id", workspaceHandler.Get)
		ws.GET("/workspaces/:id/me", workspaceHandler.Myself)
		ws.PUT("/workspaces/:id", workspaceHandler.Update)
		ws.PATCH("/workspaces/:id/head", workspaceHandler.UpdateHead)
		ws.DELETE("/workspaces/:id", workspaceHandler.Delete)
		ws.GET("/workspaces/:id/members", workspaceHandler.Members)
		ws.POST("/workspaces/:id/members", workspaceHandler.AddMember)
		ws.POST("/workspaces/:id/requests", workspaceHandler.RequestAccess)
		ws.GET("/workspaces/:id/requests", workspaceHandler.AccessRequests)
		ws.PATCH("/workspace-members/:memberId/role", workspaceHandler.UpdateMemberRole)
		ws.PATCH("/workspace-members/:memberId/designation", workspaceHandler.UpdateMemberDesignation)
		ws.DELETE("/workspace-members/:memberId", workspaceHandler.RemoveMember)
		ws.POST("/workspace-requests/:requestId/resolve", workspaceHandler.ResolveAccessRequest)

		// Roles
		ws.POST("/roles/company/:companyId", roleHandler.Create)
		ws.GET("/roles/company/:companyId", roleHandler.ListForCompany)
		ws.GET("/roles/company/:companyId/requests", roleHandler.Requests)
		ws.PUT("/roles/:id", roleHandler.Update)
		ws.DELETE("/roles/:id", roleHandler.Delete)
		ws.POST("/roles/:id/request", roleHandler.Request)
		ws.POST("/role-requests/:requestId/resolve", roleHandler.Resolve)

		// Tickets
		ws.POST("/tickets", ticketHandler.Create)
		ws.GET("/tickets/workspace/:workspaceId", ticketHandler.ListForWorkspace)
		ws.GET("/tickets/company/:companyId", ticketHandler.ListForCompany)
		ws.GET("/tickets/:id", ticketHandler.Get)
		ws.PUT("/tickets/:id", ticketHandler.Update)
		ws.DELETE("/tickets/:id", ticketHandler.Delete)
		ws.POST("/tickets/:id/transfer", ticketHandler.Transfer)
		ws.POST("/tickets/:id/comments", ticketHandler.AddComment)
		ws.GET("/tickets/:id/comments", ticketHandler.Comments)
		ws.GET("/tickets/:id/events", ticketHandler.Events)

		// Kanban
		ws.POST("/kanban/tasks", kanbanHandler.CreateTask)
		ws.GET("/kanban/workspace/:workspaceId", kanbanHandler.ListForWorkspace)
		ws.PUT("/kanban/tasks/:id", kanbanHandler.UpdateTask)
		ws.PATCH("/kanban/tasks/:id/status", kanbanHandler.MoveTask)
		ws.DELETE("/kanban/tasks/:id", kanbanHandler.DeleteTask)
		ws.POST("/kanban/tasks/:id/comments", kanbanHandler.AddComment)
		ws.GET("/kanban/tasks/:id/comments", kanbanHandler.Comments)
		ws.GET("/kanban/tasks/:id/events", kanbanHandler.Events)

		// Vault
		ws.POST("/assets/upload-url", assetHandler.GenerateUploadURL)
		ws.POST("/assets", assetHandler.Register)
		ws.GET("/assets/company/:companyId", assetHandler.ListForCompany)
		ws.GET("/assets/company/:companyId/events", assetHandler.Events)
		ws.GET("/assets/workspace/:workspaceId", assetHandler.ListForWorkspace)
		ws.PATCH("/assets/:id/visibility", assetHandler.SetRestricted)
		ws.DELETE("/assets/:id", assetHandler.Delete)

		// Chat
		ws.POST("/messages", chatHandler.Send)
		ws.GET("/messages/company/:companyId", chatHandler.List)

		// Finance
		ws.POST("/finance/transactions", financeHandler.LogTransaction)
		ws.GET("/finance/company/:companyId/transactions", financeHandler.Transactions)
		ws.PATCH("/finance/transactions/:id/status", financeHandler.UpdateTransactionStatus)
		ws.DELETE("/finance/transactions/:id", financeHandler.DeleteTransaction)
		ws.GET("/finance/company/:companyId/summary", financeHandler.Summary)
		ws.GET("/finance/company/:companyId/budget-overview", financeHandler.BudgetOverview)
		ws.PATCH("/finance/workspaces/:workspaceId/budget", financeHandler.SetWorkspaceBudget)
		ws.POST("/finance/retainers", financeHandler.CreateRetainer)
		ws.GET("/finance/company/:companyId/retainers", financeHandler.Retainers)
		ws.PATCH("/finance/retainers/:id", financeHandler.UpdateRetainerUsage)
		ws.POST("/finance/invoices", financeHandler.CreateInvoice)
		ws.GET("/finance/company/:companyId/invoices", financeHandler.Invoices)
		ws.PATCH("/finance/invoices/:id/status", financeHandler.UpdateInvoiceStatus)

		// Search
		ws.GET("/search/company/:companyId", searchHandler.Search)
	}

	log.Println("API routes registered")
	return r
}
