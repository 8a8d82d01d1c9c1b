package config

import "github.com/jrsteele09/go-mc-launcher/msa"

// Transport selection for the authentication flow.
const (
	TransportHTTP    = "http"
	TransportBackend = "backend"
)

const (
	clientIDVar       = "MSA_CLIENT_ID"
	authTransportVar  = "AUTH_TRANSPORT"
	backendCommandVar = "BACKEND_COMMAND"
)

type Auth struct{}

var _ AuthConfig = Auth{}

// GetClientID returns the OAuth2 client id used across all flows.
func (Auth) GetClientID() string {
	return GetEnv(clientIDVar, msa.ClientID)
}

// GetAuthTransport selects how the device-code flow is driven: "http" for
// direct API calls, "backend" for scraping the backend CLI subprocess.
func (Auth) GetAuthTransport() string {
	return GetEnv(authTransportVar, TransportHTTP)
}

// GetBackendCommand returns the backend CLI binary name.
func (Auth) GetBackendCommand() string {
	return GetEnv(backendCommandVar, "picomc")
}
