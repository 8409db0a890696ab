package domain

// AccessTokenLifetimeSeconds is the advertised lifetime of issued access
// tokens. Clients exchange them at the provider before use, so the value
// reflects the provider-minted token rather than the local one.
const AccessTokenLifetimeSeconds = 3600

// AuthSession is the response body for every credential operation:
// register, login and refresh all return this shape.
type AuthSession struct {
	User         UserResponse `json:"user"`
	AccessToken  string       `json:"accessToken"`
	RefreshToken string       `json:"refreshToken"`
	ExpiresIn    int          `json:"expiresIn"`
	Message      string       `json:"message"`
	IsNewUser    bool         `json:"isNewUser,omitempty"`
}
