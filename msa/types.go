package msa

// DeviceCode is the authorization server's answer to a device-code request.
type DeviceCode struct {
	// DeviceCode is the opaque code the client polls the token endpoint with.
	// Never shown to the user.
	DeviceCode string `json:"device_code"`

	// UserCode is the short code the user types in at the verification page.
	UserCode string `json:"user_code"`

	// VerificationURI is the page the user must visit to enter UserCode.
	VerificationURI string `json:"verification_uri"`

	// ExpiresIn is the lifetime in seconds of the device code.
	ExpiresIn int `json:"expires_in"`

	// Interval is the minimum polling interval in seconds suggested by the
	// server.
	Interval int `json:"interval"`

	// Message is the server's ready-made instruction text.
	Message string `json:"message"`
}

// TokenPair is the Microsoft OAuth2 token pair issued once the user completes
// device authentication.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// Profile identifies the Minecraft profile attached to the account.
type Profile struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Xbox Live / XSTS request and response shapes. Field casing is dictated by
// the Xbox services.

type xboxAuthRequest struct {
	Properties   xboxAuthProperties `json:"Properties"`
	RelyingParty string             `json:"RelyingParty"`
	TokenType    string             `json:"TokenType"`
}

type xboxAuthProperties struct {
	AuthMethod string `json:"AuthMethod"`
	SiteName   string `json:"SiteName"`
	RpsTicket  string `json:"RpsTicket"`
}

type xboxAuthResponse struct {
	Token         string            `json:"Token"`
	DisplayClaims xboxDisplayClaims `json:"DisplayClaims"`
}

type xboxDisplayClaims struct {
	Xui []xboxXui `json:"xui"`
}

type xboxXui struct {
	UHS string `json:"uhs"`
}

type xstsAuthRequest struct {
	Properties   xstsAuthProperties `json:"Properties"`
	RelyingParty string             `json:"RelyingParty"`
	TokenType    string             `json:"TokenType"`
}

type xstsAuthProperties struct {
	SandboxID  string   `json:"SandboxId"`
	UserTokens []string `json:"UserTokens"`
}

type xstsAuthResponse struct {
	Token string `json:"Token"`
}

type minecraftLoginRequest struct {
	IdentityToken string `json:"identityToken"`
}

type minecraftLoginResponse struct {
	AccessToken string `json:"access_token"`
}
