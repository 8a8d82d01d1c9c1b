package msa

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// Fixed identifiers for the Microsoft device-code flow.
const (
	ClientID  = "c52aed44-3b4d-4215-99c5-824033d2bc0f"
	Scope     = "XboxLive.signin offline_access"
	grantType = "urn:ietf:params:oauth:grant-type:device_code"

	xblRelyingParty  = "http://auth.xboxlive.com"
	xstsRelyingParty = "rp://api.minecraftservices.com/"
	xstsSandboxID    = "RETAIL"
)

// Endpoints holds the URL of every exchange step. Overridable for tests.
type Endpoints struct {
	DeviceAuth     string
	Token          string
	XboxUserAuth   string
	XSTSAuthorize  string
	MinecraftLogin string
	Profile        string
}

// DefaultEndpoints returns the production Microsoft/Xbox/Minecraft endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		DeviceAuth:     "https://login.microsoftonline.com/consumers/oauth2/v2.0/devicecode",
		Token:          "https://login.microsoftonline.com/consumers/oauth2/v2.0/token",
		XboxUserAuth:   "https://user.auth.xboxlive.com/user/authenticate",
		XSTSAuthorize:  "https://xsts.auth.xboxlive.com/xsts/authorize",
		MinecraftLogin: "https://api.minecraftservices.com/authentication/login_with_xbox",
		Profile:        "https://api.minecraftservices.com/minecraft/profile",
	}
}

// Client performs the stateless HTTP exchanges of the Microsoft/Xbox
// authentication chain. Each call is a single request/response; ordering
// between them is owned by the caller.
type Client struct {
	httpClient *http.Client
	clientID   string
	endpoints  Endpoints
}

// ClientOption modifies a Client during construction.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithClientID overrides the OAuth2 client id.
func WithClientID(id string) ClientOption {
	return func(c *Client) {
		c.clientID = id
	}
}

// WithEndpoints overrides the exchange endpoints (primarily for testing).
func WithEndpoints(e Endpoints) ClientOption {
	return func(c *Client) {
		c.endpoints = e
	}
}

// NewClient creates a Client with a 30 second per-request timeout.
func NewClient(options ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		clientID:   ClientID,
		endpoints:  DefaultEndpoints(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// RequestDeviceCode starts a device-authorization session and returns the
// verification URL and user code to display.
func (c *Client) RequestDeviceCode(ctx context.Context) (*DeviceCode, error) {
	form := url.Values{
		"client_id": {c.clientID},
		"scope":     {Scope},
	}

	status, body, err := c.postForm(ctx, c.endpoints.DeviceAuth, form)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	if status != http.StatusOK {
		return nil, &ProtocolError{Step: "device code request", Status: status, Body: string(body)}
	}

	var dc DeviceCode
	if err := json.Unmarshal(body, &dc); err != nil {
		return nil, &ProtocolError{Step: "device code request", Status: status, Body: string(body)}
	}
	if dc.DeviceCode == "" || dc.UserCode == "" || dc.VerificationURI == "" {
		return nil, &ProtocolError{Step: "device code request", Status: status, Body: string(body)}
	}

	log.Debug().Str("verification_uri", dc.VerificationURI).Msg("device code issued")
	return &dc, nil
}

// PollToken asks the token endpoint whether the user has finished
// authenticating. Returns ErrAuthorizationPending while they have not, a
// FatalError on a definitive rejection, and the token pair on completion.
func (c *Client) PollToken(ctx context.Context, deviceCode string) (*TokenPair, error) {
	form := url.Values{
		"grant_type":  {grantType},
		"client_id":   {c.clientID},
		"device_code": {deviceCode},
	}

	status, body, err := c.postForm(ctx, c.endpoints.Token, form)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}

	switch {
	case status == http.StatusOK:
		var pair TokenPair
		if err := json.Unmarshal(body, &pair); err != nil || pair.AccessToken == "" || pair.RefreshToken == "" {
			return nil, &ProtocolError{Step: "token poll", Status: status, Body: string(body)}
		}
		return &pair, nil

	case status == http.StatusBadRequest:
		var te tokenErrorResponse
		if err := json.Unmarshal(body, &te); err != nil {
			return nil, &FatalError{Reason: string(body)}
		}
		if te.Error == "authorization_pending" {
			return nil, ErrAuthorizationPending
		}
		reason := te.ErrorDescription
		if reason == "" {
			reason = te.Error
		}
		return nil, &FatalError{Reason: reason}

	default:
		return nil, &FatalError{Reason: fmt.Sprintf("token request failed: %s", string(body))}
	}
}

// AuthenticateXboxLive exchanges a Microsoft access token for an Xbox Live
// token and the user hash needed for the game login.
func (c *Client) AuthenticateXboxLive(ctx context.Context, msAccessToken string) (xblToken, userHash string, err error) {
	payload := xboxAuthRequest{
		Properties: xboxAuthProperties{
			AuthMethod: "RPS",
			SiteName:   "user.auth.xboxlive.com",
			RpsTicket:  "d=" + msAccessToken,
		},
		RelyingParty: xblRelyingParty,
		TokenType:    "JWT",
	}

	var resp xboxAuthResponse
	if err := c.postJSON(ctx, "xbox live auth", c.endpoints.XboxUserAuth, payload, &resp); err != nil {
		return "", "", err
	}
	if resp.Token == "" || len(resp.DisplayClaims.Xui) == 0 || resp.DisplayClaims.Xui[0].UHS == "" {
		return "", "", &ProtocolError{Step: "xbox live auth", Status: http.StatusOK, Body: "missing token or user hash"}
	}
	return resp.Token, resp.DisplayClaims.Xui[0].UHS, nil
}

// AuthorizeXSTS exchanges an Xbox Live token for an XSTS token scoped to the
// Minecraft services relying party.
func (c *Client) AuthorizeXSTS(ctx context.Context, xblToken string) (string, error) {
	payload := xstsAuthRequest{
		Properties: xstsAuthProperties{
			SandboxID:  xstsSandboxID,
			UserTokens: []string{xblToken},
		},
		RelyingParty: xstsRelyingParty,
		TokenType:    "JWT",
	}

	var resp xstsAuthResponse
	if err := c.postJSON(ctx, "xsts auth", c.endpoints.XSTSAuthorize, payload, &resp); err != nil {
		return "", err
	}
	if resp.Token == "" {
		return "", &ProtocolError{Step: "xsts auth", Status: http.StatusOK, Body: "missing token"}
	}
	return resp.Token, nil
}

// LoginWithXbox exchanges the user hash and XSTS token for a Minecraft
// services access token.
func (c *Client) LoginWithXbox(ctx context.Context, userHash, xstsToken string) (string, error) {
	payload := minecraftLoginRequest{
		IdentityToken: fmt.Sprintf("XBL3.0 x=%s;%s", userHash, xstsToken),
	}

	var resp minecraftLoginResponse
	if err := c.postJSON(ctx, "minecraft login", c.endpoints.MinecraftLogin, payload, &resp); err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", &ProtocolError{Step: "minecraft login", Status: http.StatusOK, Body: "missing access token"}
	}
	return resp.AccessToken, nil
}

// FetchProfile returns the Minecraft profile for a game access token. A non-200
// response here commonly means the account owns no game license.
func (c *Client) FetchProfile(ctx context.Context, gameAccessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoints.Profile, nil)
	if err != nil {
		return nil, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+gameAccessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, &ProtocolError{Step: "profile fetch", Status: resp.StatusCode, Body: string(body)}
	}

	var profile Profile
	if err := json.Unmarshal(body, &profile); err != nil {
		return nil, &ProtocolError{Step: "profile fetch", Status: resp.StatusCode, Body: string(body)}
	}
	return &profile, nil
}

// Session is the final outcome of a completed chain: the game token, the
// refresh token to renew it later, and the profile it belongs to.
type Session struct {
	GameAccessToken string
	RefreshToken    string
	Profile         Profile
}

// CompleteChain runs the exchange tail (Xbox Live, XSTS, game login, profile)
// for an already-issued Microsoft token pair. The steps are strictly
// sequential; a failure at any step aborts the whole chain.
func (c *Client) CompleteChain(ctx context.Context, pair *TokenPair) (*Session, error) {
	xblToken, userHash, err := c.AuthenticateXboxLive(ctx, pair.AccessToken)
	if err != nil {
		return nil, err
	}

	xstsToken, err := c.AuthorizeXSTS(ctx, xblToken)
	if err != nil {
		return nil, err
	}

	gameToken, err := c.LoginWithXbox(ctx, userHash, xstsToken)
	if err != nil {
		return nil, err
	}

	profile, err := c.FetchProfile(ctx, gameToken)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("profile", profile.Name).Msg("exchange chain completed")
	return &Session{
		GameAccessToken: gameToken,
		RefreshToken:    pair.RefreshToken,
		Profile:         *profile,
	}, nil
}

// RefreshSession renews a session from a stored Microsoft refresh token
// without a new device code: refresh-token grant, then the full exchange tail.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*Session, error) {
	cfg := oauth2.Config{
		ClientID: c.clientID,
		Endpoint: oauth2.Endpoint{TokenURL: c.endpoints.Token},
		Scopes:   strings.Split(Scope, " "),
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := cfg.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token grant: %w", err)
	}

	pair := &TokenPair{AccessToken: token.AccessToken, RefreshToken: token.RefreshToken}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return c.CompleteChain(ctx, pair)
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, body, nil
}

func (c *Client) postJSON(ctx context.Context, step, endpoint string, payload, out any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", step, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%s: build request: %w", step, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return &ProtocolError{Step: step, Status: resp.StatusCode, Body: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &ProtocolError{Step: step, Status: resp.StatusCode, Body: string(body)}
	}
	return nil
}
