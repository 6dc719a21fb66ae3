package zpa

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Environment variables consulted when the provider block leaves a credential
// unset.
const (
	EnvClientID     = "ZPA_CLIENT_ID"
	EnvClientSecret = "ZPA_CLIENT_SECRET"
	EnvCustomerID   = "ZPA_CUSTOMER_ID"
	EnvCloud        = "ZPA_CLOUD"
	EnvVanityDomain = "ZPA_VANITY_DOMAIN"
)

// DefaultRequestTimeout bounds each HTTP request issued by the client.
const DefaultRequestTimeout = 60 * time.Second

// Config is the provider credential block supplied by the invoker.
// Fields left empty fall back to the ZPA_* environment variables.
type Config struct {
	// ClientID is the OAuth client id for the client-credentials grant.
	ClientID string `json:"client_id" yaml:"client_id" validate:"required"`

	// ClientSecret is the OAuth client secret.
	ClientSecret string `json:"client_secret" yaml:"client_secret" validate:"required"`

	// CustomerID is the ZPA tenant customer id embedded in every API path.
	CustomerID string `json:"customer_id" yaml:"customer_id" validate:"required"`

	// Cloud selects the ZPA cloud (production, beta, gov, govus, zpatwo).
	// Empty means production.
	Cloud string `json:"cloud,omitempty" yaml:"cloud,omitempty"`

	// VanityDomain, when set, routes authentication through the Zidentity
	// OneAPI endpoint for that domain instead of the legacy cloud endpoint.
	VanityDomain string `json:"vanity_domain,omitempty" yaml:"vanity_domain,omitempty"`

	// RequestTimeout bounds each HTTP request. Zero means DefaultRequestTimeout.
	RequestTimeout time.Duration `json:"request_timeout,omitempty" yaml:"request_timeout,omitempty"`
}

// cloudHosts maps cloud identifiers to API base hosts.
var cloudHosts = map[string]string{
	"production": "https://config.private.zscaler.com",
	"beta":       "https://config.zpabeta.net",
	"gov":        "https://config.zpagov.net",
	"govus":      "https://config.zpagov.us",
	"zpatwo":     "https://config.zpatwo.net",
	"preview":    "https://config.zpapreview.net",
}

// FromEnv fills any unset credential field from the environment.
// It returns the receiver for chaining.
func (c *Config) FromEnv() *Config {
	if c.ClientID == "" {
		c.ClientID = os.Getenv(EnvClientID)
	}
	if c.ClientSecret == "" {
		c.ClientSecret = os.Getenv(EnvClientSecret)
	}
	if c.CustomerID == "" {
		c.CustomerID = os.Getenv(EnvCustomerID)
	}
	if c.Cloud == "" {
		c.Cloud = os.Getenv(EnvCloud)
	}
	if c.VanityDomain == "" {
		c.VanityDomain = os.Getenv(EnvVanityDomain)
	}
	return c
}

// Validate checks that all required credentials are present after the
// environment fallback. Missing credentials surface as auth errors before any
// network call.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		var missing []string
		var verrs validator.ValidationErrors
		if ok := asValidationErrors(err, &verrs); ok {
			for _, fe := range verrs {
				missing = append(missing, strings.ToLower(fe.Field()))
			}
		}
		return NewAuthError(
			fmt.Sprintf("missing credentials: %s", strings.Join(missing, ", ")), err)
	}
	if c.Cloud != "" {
		if _, ok := cloudHosts[strings.ToLower(c.Cloud)]; !ok {
			return NewAuthError(fmt.Sprintf("unknown cloud %q", c.Cloud), nil)
		}
	}
	return nil
}

// BaseURL returns the management API base URL for the configured cloud.
func (c *Config) BaseURL() string {
	cloud := strings.ToLower(c.Cloud)
	if cloud == "" {
		cloud = "production"
	}
	if host, ok := cloudHosts[cloud]; ok {
		return host
	}
	return cloudHosts["production"]
}

// TokenURL returns the OAuth token endpoint for the client-credentials grant.
func (c *Config) TokenURL() string {
	if c.VanityDomain != "" {
		return fmt.Sprintf("https://%s.zslogin.net/oauth2/v1/token", c.VanityDomain)
	}
	return c.BaseURL() + "/signin"
}

// timeout returns the effective per-request timeout.
func (c *Config) timeout() time.Duration {
	if c.RequestTimeout > 0 {
		return c.RequestTimeout
	}
	return DefaultRequestTimeout
}

// asValidationErrors is a small errors.As shim kept separate so Validate reads
// linearly.
func asValidationErrors(err error, target *validator.ValidationErrors) bool {
	if verrs, ok := err.(validator.ValidationErrors); ok {
		*target = verrs
		return true
	}
	return false
}
