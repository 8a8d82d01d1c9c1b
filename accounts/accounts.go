package accounts

// PlaceholderValue is the sentinel stored in token and profile fields of an
// account that has not completed authentication yet. The backend CLI uses the
// same marker, so the file stays readable by both sides.
const PlaceholderValue = "-"

// Account represents a single launcher account as persisted in accounts.json.
// Field names follow the backend CLI's own file format so the file can be
// shared with it unchanged.
type Account struct {
	// UUID is the Minecraft profile identifier.
	// Placeholder "-" until the authentication chain completes.
	UUID string `json:"uuid"`

	// Online marks the account as an online (session-server validated) account.
	Online bool `json:"online"`

	// Microsoft is true for accounts driven through the Microsoft/Xbox
	// device-code flow, false for offline accounts.
	Microsoft bool `json:"microsoft"`

	// GName is the in-game display name reported by the profile endpoint.
	// Placeholder "-" until authenticated.
	GName string `json:"gname"`

	// AccessToken is the Minecraft services bearer token.
	// Security: never log this value. Placeholder "-" until authenticated.
	AccessToken string `json:"access_token"`

	// RefreshToken is the Microsoft OAuth2 refresh token used to renew the
	// session without a new device code. Placeholder "-" until authenticated.
	RefreshToken string `json:"refresh_token"`

	// Authenticated gates whether UUID/GName/AccessToken/RefreshToken are
	// valid. It is the only field that does.
	Authenticated bool `json:"is_authenticated"`
}

// File is the on-disk shape of accounts.json.
type File struct {
	// Default is the username used when none is selected explicitly.
	// nil until the first account is created.
	Default *string `json:"default"`

	// Accounts maps username to its record. Exactly one record per username.
	Accounts map[string]*Account `json:"accounts"`

	// ClientToken is a stable random identifier generated once when the file
	// is first created, used as a client correlation id by the backend.
	ClientToken string `json:"client_token"`
}

// AuthResult carries the outcome of a completed authentication chain,
// ready to be committed to the store.
type AuthResult struct {
	AccessToken  string
	RefreshToken string
	ProfileID    string
	ProfileName  string
}

func newPlaceholder() *Account {
	return &Account{
		UUID:          PlaceholderValue,
		Online:        true,
		Microsoft:     true,
		GName:         PlaceholderValue,
		AccessToken:   PlaceholderValue,
		RefreshToken:  PlaceholderValue,
		Authenticated: false,
	}
}
