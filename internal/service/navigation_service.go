package service

import (
	"go.uber.org/zap"

	"github.com/custodia-systems/welfare-canteen-api/internal/models"
)

// Route paths served by the admin frontend. The API resolves them so every
// client agrees on where a role lands and what it may open.
const (
	RouteLogin         = "/login"
	RouteDashboard     = "/dashboard"
	RouteInmates       = "/inmates"
	RouteDeposits      = "/deposits"
	RoutePOS           = "/tuck-shop-pos"
	RouteInventory     = "/inventory"
	RouteStore         = "/store-inventory"
	RouteTransactions  = "/transactions"
	RouteUsers         = "/users"
	RouteReports       = "/reports"
	RouteAuditLogs     = "/audit-logs"
	RouteLocations     = "/locations"
	RouteBulkImport    = "/bulk-import"
	RouteInmateProfile = "/inmate-profile"
)

// Screen is one navigable view with its allowed roles.
type Screen struct {
	Path  string            `json:"path"`
	Title string            `json:"title"`
	Roles []models.UserRole `json:"roles"`
}

// NavigationService resolves role-based screen access and landing routes.
type NavigationService struct {
	screens []Screen
	logger  *zap.Logger
}

// NewNavigationService constructs a NavigationService with the fixed screen
// table.
func NewNavigationService(logger *zap.Logger) *NavigationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	adminOnly := []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin}
	return &NavigationService{
		logger: logger,
		screens: []Screen{
			{Path: RouteDashboard, Title: "Dashboard", Roles: adminOnly},
			{Path: RouteInmates, Title: "Inmates", Roles: adminOnly},
			{Path: RouteDeposits, Title: "Deposits", Roles: adminOnly},
			{Path: RoutePOS, Title: "Tuck Shop POS", Roles: []models.UserRole{models.RoleSuperAdmin, models.RoleAdmin, models.RolePOS}},
			{Path: RouteInventory, Title: "Canteen Inventory", Roles: adminOnly},
			{Path: RouteStore, Title: "Store Inventory", Roles: adminOnly},
			{Path: RouteTransactions, Title: "Transactions", Roles: adminOnly},
			{Path: RouteUsers, Title: "Users", Roles: []models.UserRole{models.RoleSuperAdmin}},
			{Path: RouteReports, Title: "Reports", Roles: adminOnly},
			{Path: RouteAuditLogs, Title: "Audit Logs", Roles: []models.UserRole{models.RoleSuperAdmin}},
			{Path: RouteLocations, Title: "Locations", Roles: []models.UserRole{models.RoleSuperAdmin}},
			{Path: RouteBulkImport, Title: "Bulk Import", Roles: adminOnly},
			{Path: RouteInmateProfile, Title: "My Profile", Roles: []models.UserRole{models.RoleInmate}},
		},
	}
}

// DefaultRoute returns the landing route for a role. Unknown roles land on
// the login screen.
func (s *NavigationService) DefaultRoute(role models.UserRole) string {
	switch role {
	case models.RolePOS:
		return RoutePOS
	case models.RoleInmate:
		return RouteInmateProfile
	case models.RoleAdmin, models.RoleSuperAdmin:
		return RouteDashboard
	default:
		return RouteLogin
	}
}

// CanAccess reports whether the role may open the given path.
func (s *NavigationService) CanAccess(role models.UserRole, path string) bool {
	for _, screen := range s.screens {
		if screen.Path != path {
			continue
		}
		for _, allowed := range screen.Roles {
			if allowed == role {
				return true
			}
		}
		return false
	}
	return false
}

// Resolve returns the requested path when the role may open it, otherwise
// the role's default route. An empty path resolves to the default route.
func (s *NavigationService) Resolve(role models.UserRole, path string) string {
	if path != "" && s.CanAccess(role, path) {
		return path
	}
	return s.DefaultRoute(role)
}

// ScreensFor returns the navigation menu for a role, in fixed order.
func (s *NavigationService) ScreensFor(role models.UserRole) []Screen {
	var out []Screen
	for _, screen := range s.screens {
		for _, allowed := range screen.Roles {
			if allowed == role {
				out = append(out, screen)
				break
			}
		}
	}
	return out
}
