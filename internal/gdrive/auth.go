package gdrive

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"repairdesk/internal/backup"
	"repairdesk/internal/kv"
	"repairdesk/internal/logger"
)

// Storage keys for the signed-in user session.
const (
	KeyToken = "gdrive_token"
	KeyEmail = "gdrive_email"
)

// Google endpoints used outside the Drive API.
const (
	UserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	RevokeURL   = "https://oauth2.googleapis.com/revoke"
)

// UserInfoScope lets the app show which account backups go to.
const UserInfoScope = "https://www.googleapis.com/auth/userinfo.email"

// ErrNoCredentials is returned when neither a client ID nor a service
// account key is configured.
var ErrNoCredentials = errors.New("no Google Drive credentials configured")

// Authenticator provides authorized HTTP clients for the Drive API.
type Authenticator interface {
	// Client returns an HTTP client that adds credentials to each request.
	// It fails with backup.ErrUnauthorized when there is no session.
	Client(ctx context.Context) (*http.Client, error)

	// Authenticated reports whether a session exists.
	Authenticated(ctx context.Context) bool

	// SignOut drops the session.
	SignOut(ctx context.Context) error

	// Email names the account, or "" when unknown.
	Email(ctx context.Context) string
}

// OAuthConfig holds the installed-app OAuth client settings.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// UserAuth authorizes as the signed-in Google user. The token lives in the
// kv store under KeyToken and is rewritten whenever it is refreshed.
type UserAuth struct {
	oauth       *oauth2.Config
	kv          kv.Store
	http        *resty.Client
	userInfoURL string
	revokeURL   string
	log         zerolog.Logger

	mu sync.Mutex
}

// NewUserAuth creates a user authenticator persisting its session in store.
func NewUserAuth(cfg OAuthConfig, store kv.Store) *UserAuth {
	return &UserAuth{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{drive.DriveFileScope, UserInfoScope},
		},
		kv:          store,
		http:        resty.New().SetRetryCount(1),
		userInfoURL: UserInfoURL,
		revokeURL:   RevokeURL,
		log:         logger.WithComponent("gdrive"),
	}
}

// AuthCodeURL returns the consent page URL the user opens to sign in.
func (a *UserAuth) AuthCodeURL(state string) string {
	return a.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token, stores it and looks up
// the account email.
func (a *UserAuth) Exchange(ctx context.Context, code string) (email string, err error) {
	const op = "Exchange"

	tok, err := a.oauth.Exchange(ctx, strings.TrimSpace(code))
	if err != nil {
		return "", fmt.Errorf("%s: failed to exchange code: %w", op, err)
	}
	if err := a.saveToken(ctx, tok); err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	email, err = a.fetchEmail(ctx, tok)
	if err != nil {
		a.log.Warn().Err(err).Msg("Failed to look up account email")
		return "", nil
	}
	if err := a.kv.Put(ctx, KeyEmail, []byte(email)); err != nil {
		a.log.Warn().Err(err).Msg("Failed to store account email")
	}

	a.log.Info().Str("email", email).Msg("Signed in to Google Drive")
	return email, nil
}

// Email returns the stored account email, or "" when unknown.
func (a *UserAuth) Email(ctx context.Context) string {
	raw, err := a.kv.Get(ctx, KeyEmail)
	if err != nil {
		return ""
	}
	return string(raw)
}

// Authenticated reports whether a token is stored.
func (a *UserAuth) Authenticated(ctx context.Context) bool {
	tok, err := a.loadToken(ctx)
	return err == nil && tok != nil && (tok.RefreshToken != "" || tok.Valid())
}

// Client returns an HTTP client using the stored token. Refreshed tokens are
// written back to the kv store.
func (a *UserAuth) Client(ctx context.Context) (*http.Client, error) {
	const op = "Client"

	tok, err := a.loadToken(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if tok == nil {
		return nil, fmt.Errorf("%s: %w", op, backup.ErrUnauthorized)
	}

	src := &persistingSource{
		base: a.oauth.TokenSource(ctx, tok),
		save: a.saveToken,
		ctx:  ctx,
		last: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// SignOut revokes the token with Google and forgets the session. Revocation
// failures are logged only.
func (a *UserAuth) SignOut(ctx context.Context) error {
	const op = "SignOut"

	if tok, err := a.loadToken(ctx); err == nil && tok != nil {
		if err := a.revoke(ctx, tok); err != nil {
			a.log.Warn().Err(err).Msg("Failed to revoke token")
		}
	}

	var errs []error
	for _, key := range []string{KeyToken, KeyEmail} {
		if err := a.kv.Delete(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	a.log.Info().Msg("Signed out of Google Drive")
	return nil
}

func (a *UserAuth) loadToken(ctx context.Context) (*oauth2.Token, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var tok oauth2.Token
	found, err := kv.GetJSON(ctx, a.kv, KeyToken, &tok)
	if err != nil || !found {
		return nil, err
	}
	return &tok, nil
}

func (a *UserAuth) saveToken(ctx context.Context, tok *oauth2.Token) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return kv.PutJSON(ctx, a.kv, KeyToken, tok)
}

type userInfo struct {
	Email string `json:"email"`
}

func (a *UserAuth) fetchEmail(ctx context.Context, tok *oauth2.Token) (string, error) {
	var info userInfo
	resp, err := a.http.R().
		SetContext(ctx).
		SetAuthToken(tok.AccessToken).
		SetResult(&info).
		Get(a.userInfoURL)
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", responseError(resp)
	}
	return info.Email, nil
}

func (a *UserAuth) revoke(ctx context.Context, tok *oauth2.Token) error {
	token := tok.RefreshToken
	if token == "" {
		token = tok.AccessToken
	}
	resp, err := a.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{"token": token}).
		Post(a.revokeURL)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return responseError(resp)
	}
	return nil
}

func responseError(resp *resty.Response) error {
	err := fmt.Errorf("google api error: %s: %s", resp.Status(), strings.TrimSpace(resp.String()))
	if resp.StatusCode() == http.StatusUnauthorized {
		return fmt.Errorf("%w: %v", backup.ErrUnauthorized, err)
	}
	return err
}

// persistingSource stores every newly minted token.
type persistingSource struct {
	base oauth2.TokenSource
	save func(context.Context, *oauth2.Token) error
	ctx  context.Context

	mu   sync.Mutex
	last string
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken != p.last {
		if err := p.save(p.ctx, tok); err != nil {
			return nil, err
		}
		p.last = tok.AccessToken
	}
	return tok, nil
}

// ServiceAccountAuth authorizes with a service account key, as unattended
// installations do. It is always authenticated and cannot sign out.
type ServiceAccountAuth struct {
	email string
	cfg   interface {
		Client(ctx context.Context) *http.Client
	}
	log zerolog.Logger
}

// NewServiceAccountAuth parses a service account JSON key.
func NewServiceAccountAuth(creds []byte) (*ServiceAccountAuth, error) {
	const op = "NewServiceAccountAuth"

	cfg, err := google.JWTConfigFromJSON(creds, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to parse credentials: %w", op, err)
	}

	return &ServiceAccountAuth{
		email: cfg.Email,
		cfg:   cfg,
		log:   logger.WithComponent("gdrive"),
	}, nil
}

// Email returns the service account address.
func (a *ServiceAccountAuth) Email(context.Context) string {
	return a.email
}

func (a *ServiceAccountAuth) Client(ctx context.Context) (*http.Client, error) {
	return a.cfg.Client(ctx), nil
}

func (a *ServiceAccountAuth) Authenticated(context.Context) bool {
	return true
}

func (a *ServiceAccountAuth) SignOut(context.Context) error {
	a.log.Warn().Str("email", a.email).Msg("Service account credentials cannot be signed out; remove them from the configuration")
	return nil
}
