package validator

import (
	"errors"
	"os"

	v10 "github.com/go-playground/validator/v10"

	"github.com/edgeguard/go-cfaccess/internal/teamdomain"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvTeamDomain  = "CF_TEAM_DOMAIN"
	EnvAudienceTag = "CF_AUD_TAG"
)

var validate = v10.New()

// Config identifies the Access application that tokens must have been
// issued to. Both fields are required, but completeness is only checked
// when a token is validated: an unconfigured Validator can be built, and
// every ValidateToken call on it fails with a *ConfigError before any
// network activity.
type Config struct {
	// TeamDomain is the Cloudflare Access team domain, for example
	// "myteam.cloudflareaccess.com". A scheme prefix and trailing slash
	// are tolerated.
	TeamDomain string `validate:"required"`

	// AudienceTag is the Application Audience (AUD) tag from the Access
	// application configuration.
	AudienceTag string `validate:"required"`
}

// ConfigFromEnv builds a Config from the CF_TEAM_DOMAIN and CF_AUD_TAG
// environment variables. Unset variables leave the corresponding field
// empty; Validate reports them.
func ConfigFromEnv() Config {
	return Config{
		TeamDomain:  os.Getenv(EnvTeamDomain),
		AudienceTag: os.Getenv(EnvAudienceTag),
	}
}

// Validate reports whether the configuration is complete. An incomplete
// configuration is returned as a *ConfigError naming every missing field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrors v10.ValidationErrors
	if !errors.As(err, &fieldErrors) {
		return err
	}

	missing := make([]string, 0, len(fieldErrors))
	for _, fieldError := range fieldErrors {
		missing = append(missing, fieldError.Field())
	}

	return &ConfigError{Missing: missing}
}

// IssuerURL returns the issuer Access stamps into tokens for this team,
// "https://" followed by the normalized team domain.
func (c Config) IssuerURL() string {
	return teamdomain.IssuerURL(c.TeamDomain)
}

// CertsURL returns the endpoint the team's signing keys are published at.
func (c Config) CertsURL() string {
	return teamdomain.CertsURL(c.TeamDomain)
}
