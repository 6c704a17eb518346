package httpx

import (
	"log/slog"
	"net/http"

	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
	"github.com/chorusapp/sessiond/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth         AuthServiceInterface
	Sessions     *service.SessionService
	Authz        *service.AuthzService
	Entitlements *service.EntitlementService
	Limiter      *service.DeviceSessionLimiter
	Roles        *service.RoleDirectory
	Directory    ports.UserDirectoryRepository
	Logger       *slog.Logger // Logger for HTTP errors (optional)
}

// NewRouter creates and configures a new HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	sessionHandlers := &SessionHandlers{
		Sessions: services.Sessions,
		Authz:    services.Authz,
		Limiter:  services.Limiter,
	}
	authzHandlers := &AuthzHandlers{
		Authz:        services.Authz,
		Entitlements: services.Entitlements,
	}
	trialHandlers := &TrialHandlers{Entitlements: services.Entitlements}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	if services.Auth != nil {
		authHandlers := &AuthHandlers{Svc: services.Auth, Logger: services.Logger}
		mux.HandleFunc("GET /auth/login", authHandlers.Login)
		mux.HandleFunc("GET /auth/callback", authHandlers.Callback)
		mux.HandleFunc("POST /auth/logout", authHandlers.Logout)
	}

	mux.HandleFunc("GET /api/session", sessionHandlers.Current)
	mux.HandleFunc("POST /api/session/init", sessionHandlers.Initialize)
	mux.HandleFunc("POST /api/session/premium", sessionHandlers.GrantPremium)
	mux.HandleFunc("GET /api/session/devices", sessionHandlers.Devices)

	mux.HandleFunc("GET /api/authz/role", authzHandlers.CheckRole)
	mux.HandleFunc("GET /api/authz/page/{page}", authzHandlers.CheckPage)
	mux.HandleFunc("GET /api/authz/capabilities", authzHandlers.Capabilities)
	mux.HandleFunc("POST /api/authz/refresh", authzHandlers.Refresh)

	mux.HandleFunc("GET /api/trials/{kind}", trialHandlers.Status)
	mux.HandleFunc("POST /api/trials/{kind}", trialHandlers.Start)

	// User administration is gated on the superadmin role.
	if services.Directory != nil {
		userHandlers := &UserHandlers{Directory: services.Directory, Roles: services.Roles}
		admin := RequireRole(services.Authz, domainauth.RoleSuperAdmin)
		mux.Handle("GET /api/users/{id}", admin(http.HandlerFunc(userHandlers.Get)))
		mux.Handle("PUT /api/users/{id}/role", admin(http.HandlerFunc(userHandlers.SetRole)))
	}

	return mux
}
