package app

import (
	"errors"

	authapi "servicedesk/cmd/internal/auth/api"
)

// ValidateSecurityConfig enforces the production startup policy.
// Outside production every setting is accepted. All violations are reported together.
func ValidateSecurityConfig(cfg Config, authCfg authapi.Config) error {
	if cfg.Env != EnvProduction {
		return nil
	}

	var errs []error
	if !cfg.DBEnabled() {
		errs = append(errs, errors.New("security policy: DESK_DATABASE_URL is required in production"))
	}
	if cfg.DevUsers != "" {
		errs = append(errs, errors.New("security policy: DESK_DEV_USERS must be empty in production"))
	}
	if !authCfg.CookieSecure {
		errs = append(errs, errors.New("security policy: DESK_AUTH_COOKIE_SECURE must be true in production"))
	}
	if authCfg.ExposeToken {
		errs = append(errs, errors.New("security policy: DESK_AUTH_EXPOSE_TOKEN must be false in production"))
	}
	return errors.Join(errs...)
}
