package credentials

import (
	"context"
	"fmt"
	"strings"

	"filmgen/internal/domain"
	"filmgen/internal/infra"
)

// UseConfiguredKey is the explicit-key value that asks the resolver to look
// the key up instead of using it verbatim.
const UseConfiguredKey = "use-configured-key"

// IsSentinel reports whether key is the "look up configured key" marker.
func IsSentinel(key string) bool {
	return strings.EqualFold(strings.TrimSpace(key), UseConfiguredKey)
}

// Lookup is the subset of Store the resolver reads from.
type Lookup interface {
	SystemSetting(ctx context.Context, key string) (string, error)
	UserAPIKey(ctx context.Context, userID, service string) (string, error)
}

// Config is the process-level fallback state handed to the resolver at
// construction.
type Config struct {
	// EnvKeys maps a service id to its environment fallback key.
	EnvKeys map[string]string
}

// Resolver picks the API key for a call. Sources are tried in a fixed
// order: explicit, system-wide, per-user, environment.
type Resolver struct {
	lookup  Lookup
	envKeys map[string]string
	logger  *infra.Logger
}

func NewResolver(lookup Lookup, cfg Config, logger *infra.Logger) *Resolver {
	env := make(map[string]string, len(cfg.EnvKeys))
	for service, key := range cfg.EnvKeys {
		env[strings.ToLower(strings.TrimSpace(service))] = key
	}
	return &Resolver{lookup: lookup, envKeys: env, logger: infra.OrNop(logger)}
}

// Resolve returns the first non-blank key for service.
func (r *Resolver) Resolve(ctx context.Context, service, callerID, explicitKey string) (domain.ResolvedCredential, error) {
	service = strings.ToLower(strings.TrimSpace(service))
	callerID = strings.TrimSpace(callerID)

	if !IsSentinel(explicitKey) {
		if key := strings.TrimSpace(explicitKey); key != "" {
			return domain.ResolvedCredential{Value: key, Origin: domain.OriginExplicit}, nil
		}
	}

	if r.lookup != nil {
		key, err := r.lookup.SystemSetting(ctx, SystemSettingKey(service))
		if err != nil {
			r.logger.Warn().Err(err).Str("service", service).Msg("credentials: system-wide lookup failed")
		} else if key = strings.TrimSpace(key); key != "" {
			return domain.ResolvedCredential{Value: key, Origin: domain.OriginSystemWide}, nil
		}

		if callerID != "" {
			key, err := r.lookup.UserAPIKey(ctx, callerID, service)
			if err != nil {
				r.logger.Warn().Err(err).Str("service", service).Str("user_id", callerID).Msg("credentials: user key lookup failed")
			} else if key = strings.TrimSpace(key); key != "" {
				return domain.ResolvedCredential{Value: key, Origin: domain.OriginUserStored}, nil
			}
		}
	}

	if key := strings.TrimSpace(r.envKeys[service]); key != "" {
		return domain.ResolvedCredential{Value: key, Origin: domain.OriginEnvironment}, nil
	}

	hint := fmt.Sprintf("add a %s key under Settings > API Keys or set %s", service, infra.EnvKeyName(service))
	return domain.ResolvedCredential{}, domain.Wrap(domain.ErrCredentialMissing, "credentials", service, hint, nil)
}
