package pitchside

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config carries the endpoints and credentials the SDK needs. Load it
// from PITCHSIDE_* environment variables via LoadConfig, or build it
// directly; functional options in New refine the result.
type Config struct {
	// APIURL is the REST backend base URL, e.g. https://api.pitchside.app.
	APIURL string `envconfig:"API_URL"`

	// SocketURL is the real-time endpoint, e.g. wss://rt.pitchside.app/ws.
	// Leave empty to run without the live channel.
	SocketURL string `envconfig:"SOCKET_URL"`

	// Identity provider (GoTrue) settings.
	IdentityURL        string `envconfig:"IDENTITY_URL"`
	IdentityProjectRef string `envconfig:"IDENTITY_PROJECT_REF"`
	IdentityAPIKey     string `envconfig:"IDENTITY_API_KEY"`

	// CredentialPath switches credential persistence to the file driver.
	// Empty keeps credentials in memory for the process lifetime.
	CredentialPath string `envconfig:"CREDENTIAL_PATH"`

	HTTPTimeout time.Duration `envconfig:"HTTP_TIMEOUT" default:"30s"`
	PageSize    int           `envconfig:"PAGE_SIZE" default:"20"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := envconfig.Process("pitchside", &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
