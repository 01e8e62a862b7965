package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/helpdesk/internal/api/http/handlers"
	"github.com/spec-kit/helpdesk/internal/auth"
	"github.com/spec-kit/helpdesk/internal/domain"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health            *handlers.HealthHandler
	Accounts          *handlers.AccountsHandler
	Tickets           *handlers.TicketsHandler
	Dashboards        *handlers.DashboardsHandler
	AdminUsers        *handlers.AdminUsersHandler
	SessionMiddleware *auth.SessionMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	authGroup := app.Group("/auth")
	authGroup.Post("/login", cfg.Accounts.Login)
	authGroup.Post("/logout", cfg.Accounts.Logout)
	authGroup.Get("/me", cfg.SessionMiddleware.Handle, cfg.Accounts.Me)

	tickets := app.Group("/tickets", cfg.SessionMiddleware.Handle)
	tickets.Get("/created", cfg.Tickets.ListCreated)
	tickets.Get("/assigned", auth.RequireRole(domain.RoleUser), cfg.Tickets.ListAssigned)
	tickets.Get("/departments", cfg.Tickets.ListTargetDepartments)
	tickets.Post("/", auth.RequireRole(domain.RoleUser, domain.RoleManager), cfg.Tickets.CreateTicket)
	tickets.Get("/:id", cfg.Tickets.GetTicket)
	tickets.Post("/:id/self-manage", auth.RequireRole(domain.RoleUser), cfg.Tickets.SelfManage)
	tickets.Post("/:id/approve", auth.RequireRole(domain.RoleManager), cfg.Tickets.Approve)
	tickets.Post("/:id/solve-myself", auth.RequireRole(domain.RoleManager), cfg.Tickets.SolveMyself)
	tickets.Post("/:id/close-solved", auth.RequireRole(domain.RoleManager), cfg.Tickets.CloseSolved)
	tickets.Post("/:id/status", auth.RequireRole(domain.RoleUser, domain.RoleManager), cfg.Tickets.ChangeStatus)

	dashboard := app.Group("/dashboard", cfg.SessionMiddleware.Handle)
	dashboard.Get("/department", auth.RequireRole(domain.RoleUser), cfg.Dashboards.UserDashboard)
	dashboard.Get("/manager", auth.RequireRole(domain.RoleManager), cfg.Dashboards.ManagerDashboard)
	dashboard.Get("/admin", auth.RequireRole(domain.RoleAdmin), cfg.Dashboards.AdminDashboard)

	admin := app.Group("/admin", cfg.SessionMiddleware.Handle, auth.RequireRole(domain.RoleAdmin))
	admin.Get("/users", cfg.AdminUsers.ListUsers)
	admin.Post("/users", cfg.AdminUsers.CreateUser)
	admin.Get("/users/:id", cfg.AdminUsers.GetUser)
	admin.Put("/users/:id", cfg.AdminUsers.UpdateUser)
}
