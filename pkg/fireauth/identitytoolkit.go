package fireauth

import (
	"bytes"
	"context"
	"crypto/rsa"
	"crypto/x509"
	"encoding/json"
	"encoding/pem"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultBaseURL  = "https://identitytoolkit.googleapis.com/v1"
	defaultTokenURL = "https://oauth2.googleapis.com/token"
	defaultCertsURL = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"

	adminScope = "https://www.googleapis.com/auth/identitytoolkit https://www.googleapis.com/auth/userinfo.email"
)

// RESTClient talks to the Google Identity Toolkit v1 API. Admin calls
// (create, lookup, update) authenticate with a short-lived OAuth2 token
// minted from the service credential; the optional web API key enables the
// signInWithPassword credential check.
type RESTClient struct {
	Credential *SigningCredential
	APIKey     string
	HTTPClient *http.Client

	BaseURL  string
	TokenURL string
	CertsURL string

	mu        sync.Mutex
	bearer    string
	bearerExp time.Time
	certs     map[string]*rsa.PublicKey
	certsExp  time.Time
}

// NewRESTClient builds a provider client with sane defaults and a request
// timeout, matching the caller policy of treating timeouts as retryable
// provider unavailability.
func NewRESTClient(cred *SigningCredential, apiKey string) *RESTClient {
	return &RESTClient{
		Credential: cred,
		APIKey:     apiKey,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		BaseURL:    defaultBaseURL,
		TokenURL:   defaultTokenURL,
		CertsURL:   defaultCertsURL,
	}
}

type accountRecord struct {
	LocalID       string `json:"localId"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	PhoneNumber   string `json:"phoneNumber"`
	EmailVerified bool   `json:"emailVerified"`
	Disabled      bool   `json:"disabled"`
}

func (a accountRecord) external() ExternalAccount {
	return ExternalAccount{
		UID:           a.LocalID,
		Email:         a.Email,
		DisplayName:   a.DisplayName,
		PhoneNumber:   a.PhoneNumber,
		EmailVerified: a.EmailVerified,
		Disabled:      a.Disabled,
	}
}

// CreateUser provisions a new provider account in our project.
func (c *RESTClient) CreateUser(ctx context.Context, email, password, displayName, phone string) (ExternalAccount, error) {
	body := map[string]any{
		"email":       email,
		"password":    password,
		"displayName": displayName,
	}
	if phone != "" {
		body["phoneNumber"] = phone
	}

	var resp accountRecord
	if err := c.doAdmin(ctx, c.projectURL("/accounts"), body, &resp); err != nil {
		return ExternalAccount{}, err
	}
	resp.Email = email
	resp.DisplayName = displayName
	return resp.external(), nil
}

// GetUserByEmail looks an account up by email address.
func (c *RESTClient) GetUserByEmail(ctx context.Context, email string) (ExternalAccount, error) {
	return c.lookup(ctx, map[string]any{"email": []string{email}})
}

// GetUserByUID looks an account up by its uid (localId).
func (c *RESTClient) GetUserByUID(ctx context.Context, uid string) (ExternalAccount, error) {
	return c.lookup(ctx, map[string]any{"localId": []string{uid}})
}

func (c *RESTClient) lookup(ctx context.Context, body map[string]any) (ExternalAccount, error) {
	var resp struct {
		Users []accountRecord `json:"users"`
	}
	if err := c.doAdmin(ctx, c.projectURL("/accounts:lookup"), body, &resp); err != nil {
		return ExternalAccount{}, err
	}
	if len(resp.Users) == 0 {
		return ExternalAccount{}, ErrUserNotFound
	}
	return resp.Users[0].external(), nil
}

// UpdateUserPassword replaces the account password.
func (c *RESTClient) UpdateUserPassword(ctx context.Context, uid, newPassword string) error {
	body := map[string]any{
		"localId":  uid,
		"password": newPassword,
	}
	var resp accountRecord
	return c.doAdmin(ctx, c.projectURL("/accounts:update"), body, &resp)
}

// SignInWithPassword verifies email+password through the public sign-in
// endpoint. Requires the web API key; admin credentials cannot check
// passwords.
func (c *RESTClient) SignInWithPassword(ctx context.Context, email, password string) (ExternalAccount, error) {
	if c.APIKey == "" {
		return ExternalAccount{}, errors.New("fireauth: web api key not configured")
	}

	body := map[string]any{
		"email":             email,
		"password":          password,
		"returnSecureToken": true,
	}
	var resp struct {
		LocalID     string `json:"localId"`
		Email       string `json:"email"`
		DisplayName string `json:"displayName"`
	}
	u := c.BaseURL + "/accounts:signInWithPassword?key=" + url.QueryEscape(c.APIKey)
	if err := c.doJSON(ctx, u, "", body, &resp); err != nil {
		return ExternalAccount{}, err
	}
	return ExternalAccount{UID: resp.LocalID, Email: resp.Email, DisplayName: resp.DisplayName}, nil
}

// VerifyIDToken verifies a provider-issued ID token against the provider's
// published signing certificates and this project's issuer and audience.
func (c *RESTClient) VerifyIDToken(ctx context.Context, token string) (Principal, error) {
	header, err := DecodeHeader(token)
	if err != nil {
		return Principal{}, err
	}
	if header.KID == "" {
		return Principal{}, ErrMalformedToken
	}

	key, err := c.certForKID(ctx, header.KID)
	if err != nil {
		return Principal{}, err
	}

	projectID := c.Credential.ProjectID()
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer("https://securetoken.google.com/"+projectID),
		jwt.WithAudience(projectID),
		jwt.WithExpirationRequired(),
	)
	if _, err := parser.Parse(token, func(t *jwt.Token) (any, error) { return key, nil }); err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Principal{}, ErrTokenExpired
		case errors.Is(err, jwt.ErrTokenMalformed):
			return Principal{}, ErrMalformedToken
		default:
			return Principal{}, ErrInvalidToken
		}
	}

	payload, err := DecodePayload(token)
	if err != nil {
		return Principal{}, err
	}
	sub := payload.Sub
	if sub == "" {
		sub = payload.UID
	}
	if sub == "" {
		return Principal{}, ErrInvalidToken
	}

	claims := payload.Claims
	if claims == nil {
		claims = map[string]any{}
	}
	return Principal{
		SubjectID:     sub,
		Email:         payload.Email,
		Name:          payload.Name,
		EmailVerified: payload.EmailVerified,
		Claims:        claims,
	}, nil
}

func (c *RESTClient) projectURL(path string) string {
	return c.BaseURL + "/projects/" + c.Credential.ProjectID() + path
}

// doAdmin performs an authenticated admin API call.
func (c *RESTClient) doAdmin(ctx context.Context, url string, body, out any) error {
	bearer, err := c.adminBearer(ctx)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, url, bearer, body, out)
}

func (c *RESTClient) doJSON(ctx context.Context, url, bearer string, body, out any) error {
	buf, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(buf))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= 400 {
		return providerError(resp.StatusCode, raw)
	}

	return json.Unmarshal(raw, out)
}

// providerError maps identity toolkit error codes onto the fireauth
// sentinels. The code is the first token of the error message, e.g.
// "EMAIL_EXISTS : The email address is already in use".
func providerError(status int, raw []byte) error {
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	_ = json.Unmarshal(raw, &body)

	code, _, _ := strings.Cut(body.Error.Message, " ")
	code = strings.TrimSuffix(code, ":")

	switch code {
	case "EMAIL_EXISTS", "DUPLICATE_EMAIL":
		return ErrEmailExists
	case "INVALID_EMAIL", "MISSING_EMAIL":
		return ErrInvalidEmail
	case "WEAK_PASSWORD", "MISSING_PASSWORD":
		return ErrWeakPassword
	case "EMAIL_NOT_FOUND", "USER_NOT_FOUND":
		return ErrUserNotFound
	case "INVALID_PASSWORD", "INVALID_LOGIN_CREDENTIALS":
		return ErrInvalidPassword
	case "USER_DISABLED":
		return ErrUserDisabled
	case "TOKEN_EXPIRED":
		return ErrTokenExpired
	case "TOKEN_REVOKED":
		return ErrTokenRevoked
	default:
		return fmt.Errorf("fireauth: provider error %d: %s", status, body.Error.Message)
	}
}

// adminBearer returns a cached OAuth2 access token for the admin API,
// minting a new one via the JWT bearer grant when the cache is stale.
func (c *RESTClient) adminBearer(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bearer != "" && time.Now().Before(c.bearerExp) {
		return c.bearer, nil
	}

	now := time.Now()
	assertion, err := jwt.NewWithClaims(jwt.SigningMethodRS256, jwt.MapClaims{
		"iss":   c.Credential.ClientEmail(),
		"scope": adminScope,
		"aud":   c.TokenURL,
		"iat":   now.Unix(),
		"exp":   now.Add(time.Hour).Unix(),
	}).SignedString(c.Credential.PrivateKey())
	if err != nil {
		return "", err
	}

	form := url.Values{
		"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
		"assertion":  {assertion},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: token endpoint status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	c.bearer = body.AccessToken
	// Refresh a minute early so in-flight requests never carry a token
	// about to lapse.
	c.bearerExp = now.Add(time.Duration(body.ExpiresIn)*time.Second - time.Minute)
	return c.bearer, nil
}

// certForKID returns the provider's public signing key for kid, refreshing
// the cert cache when the Cache-Control max-age has lapsed.
func (c *RESTClient) certForKID(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.certs == nil || time.Now().After(c.certsExp) {
		if err := c.refreshCerts(ctx); err != nil {
			return nil, err
		}
	}

	key, ok := c.certs[kid]
	if !ok {
		// The provider may have rotated since our last fetch.
		if err := c.refreshCerts(ctx); err != nil {
			return nil, err
		}
		if key, ok = c.certs[kid]; !ok {
			return nil, ErrInvalidToken
		}
	}
	return key, nil
}

func (c *RESTClient) refreshCerts(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.CertsURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: certs endpoint status %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var pems map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&pems); err != nil {
		return fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	certs := make(map[string]*rsa.PublicKey, len(pems))
	for kid, certPEM := range pems {
		block, _ := pem.Decode([]byte(certPEM))
		if block == nil {
			continue
		}
		cert, err := x509.ParseCertificate(block.Bytes)
		if err != nil {
			continue
		}
		if pub, ok := cert.PublicKey.(*rsa.PublicKey); ok {
			certs[kid] = pub
		}
	}
	if len(certs) == 0 {
		return fmt.Errorf("%w: no usable signing certs", ErrProviderUnavailable)
	}

	c.certs = certs
	c.certsExp = time.Now().Add(certsMaxAge(resp.Header.Get("Cache-Control")))
	return nil
}

// certsMaxAge parses the max-age directive; Google serves cert responses
// with long cache lifetimes to keep verification cheap.
func certsMaxAge(cacheControl string) time.Duration {
	for _, part := range strings.Split(cacheControl, ",") {
		part = strings.TrimSpace(part)
		if v, ok := strings.CutPrefix(part, "max-age="); ok {
			if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
				return time.Duration(secs) * time.Second
			}
		}
	}
	return time.Hour
}
