package bootstrap

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/chorusapp/sessiond/config"
	"github.com/chorusapp/sessiond/internal/adapters/devauth"
	"github.com/chorusapp/sessiond/internal/adapters/localkv"
	"github.com/chorusapp/sessiond/internal/adapters/oidc"
	redisadapter "github.com/chorusapp/sessiond/internal/adapters/redis"
	"github.com/chorusapp/sessiond/internal/data"
	domainauth "github.com/chorusapp/sessiond/internal/domain/auth"
	"github.com/chorusapp/sessiond/internal/ports"
	"github.com/chorusapp/sessiond/internal/service"
)

// AuthStackConfig contains dependencies for building the auth stack.
type AuthStackConfig struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger

	// Optional overrides for testing
	Provider   ports.IdentityProvider
	Local      ports.LocalStore
	Classifier domainauth.DeviceClassifier
}

// AuthStack groups the constructed session and authorization services.
type AuthStack struct {
	Sessions     *service.SessionService
	Auth         *service.AuthService
	Authz        *service.AuthzService
	Entitlements *service.EntitlementService
	Limiter      *service.DeviceSessionLimiter
	Roles        *service.RoleDirectory
}

// BuildAuthStack wires the full session, entitlement, and
// authorization stack from configuration.
func BuildAuthStack(cfg AuthStackConfig) (*AuthStack, error) {
	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	local := cfg.Local
	if local == nil {
		store, err := localkv.New(localkv.StoreOptions{
			Path:   appCfg.Session.StatePath,
			Logger: cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("build local store: %w", err)
		}
		local = store
	}

	directory := &data.UserDirectoryRepo{DB: cfg.DB}

	roles, err := service.NewRoleDirectory(service.RoleDirectoryOptions{
		Repo: directory,
		Static: domainauth.AdminAllowlist{
			SuperAdmins: appCfg.Auth.SuperAdminEmails,
			Admins:      appCfg.Auth.AdminEmails,
		},
		CacheTTL: appCfg.Auth.Directory.CacheTTL,
		Timeout:  appCfg.Auth.Directory.LookupTimeout,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build role directory: %w", err)
	}

	limiter, err := service.NewDeviceSessionLimiter(service.DeviceSessionLimiterOptions{
		Repo: redisadapter.NewDeviceSessionStore(cfg.RedisClient),
		Caps: map[domainauth.DeviceType]int{
			domainauth.DevicePhone:  appCfg.Session.DeviceLimit,
			domainauth.DeviceTablet: appCfg.Session.DeviceLimit,
			domainauth.DeviceWeb:    appCfg.Session.DeviceLimit,
		},
		Logger:  cfg.Logger,
		Timeout: appCfg.Session.RemoteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build device limiter: %w", err)
	}

	sessions, err := service.NewSessionService(service.SessionServiceOptions{
		Local:         local,
		Limiter:       limiter,
		Premium:       redisadapter.NewPremiumCache(cfg.RedisClient),
		Mirror:        redisadapter.NewSessionStore(cfg.RedisClient),
		Classifier:    cfg.Classifier,
		Logger:        cfg.Logger,
		RemoteTimeout: appCfg.Session.RemoteTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("build session service: %w", err)
	}

	ledger, err := service.NewTrialLedger(local, cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("build trial ledger: %w", err)
	}

	entitlements, err := service.NewEntitlementService(service.EntitlementServiceOptions{
		Sessions: sessions,
		Ledger:   ledger,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build entitlement service: %w", err)
	}

	authz, err := service.NewAuthzService(service.AuthzServiceOptions{
		Sessions: sessions,
		Roles:    roles,
		Logger:   cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build authz service: %w", err)
	}

	provider := cfg.Provider
	if provider == nil {
		provider, err = buildProvider(appCfg.Auth, cfg.Logger)
		if err != nil {
			return nil, fmt.Errorf("build identity provider: %w", err)
		}
	}

	auth, err := service.NewAuthService(service.AuthServiceOptions{
		Provider:  provider,
		Sessions:  sessions,
		Roles:     roles,
		Directory: directory,
		Logger:    cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("build auth service: %w", err)
	}

	return &AuthStack{
		Sessions:     sessions,
		Auth:         auth,
		Authz:        authz,
		Entitlements: entitlements,
		Limiter:      limiter,
		Roles:        roles,
	}, nil
}

// buildProvider creates an identity provider based on the configured
// auth mode.
//
//nolint:ireturn // the mode decides which concrete provider backs the port.
func buildProvider(cfg config.AuthConfig, logger *slog.Logger) (ports.IdentityProvider, error) {
	switch cfg.Mode {
	case config.AuthModeMock:
		return devauth.NewProvider(devauth.Config{
			UserID: cfg.DevAuth.UserID,
			Email:  cfg.DevAuth.Email,
		})

	case config.AuthModeOIDC:
		oidcCfg := cfg.OIDC
		if oidcCfg.DiscoveryURL == "" || oidcCfg.ClientID == "" || oidcCfg.ClientSecret == "" {
			if logger != nil {
				logger.Warn("OIDC selected but required config missing; falling back to dev auth",
					"discovery_url_empty", oidcCfg.DiscoveryURL == "",
					"client_id_empty", oidcCfg.ClientID == "",
					"client_secret_empty", oidcCfg.ClientSecret == "",
				)
			}
			return devauth.NewProvider(devauth.Config{
				UserID: cfg.DevAuth.UserID,
				Email:  cfg.DevAuth.Email,
			})
		}
		return oidc.NewProvider(oidc.ProviderConfig{
			ClientID:     oidcCfg.ClientID,
			ClientSecret: oidcCfg.ClientSecret,
			RedirectURL:  oidcCfg.RedirectURL,
			Scope:        oidcCfg.Scope,
			DiscoveryURL: oidcCfg.DiscoveryURL,
		})

	default:
		return nil, fmt.Errorf("unsupported auth mode: %q", cfg.Mode)
	}
}
