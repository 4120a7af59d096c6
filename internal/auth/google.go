package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"storefront-service/internal/config"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// ErrOAuthDisabled is returned when no Google client id is configured.
var ErrOAuthDisabled = errors.New("auth: google sign-in is not configured")

// GoogleProfile is the subset of the userinfo response used for sign-in.
type GoogleProfile struct {
	ID    string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// GoogleProvider runs the authorization-code flow against Google.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider returns nil when cfg has no client id.
func NewGoogleProvider(cfg config.GoogleOAuthConfig, backendURL string) *GoogleProvider {
	if cfg.ClientID == "" {
		return nil
	}
	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  backendURL + "/api/auth/google/callback",
			Scopes:       []string{"openid", "profile", "email"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// AuthCodeURL is where the browser is sent to consent. state is echoed back to the callback.
func (g *GoogleProvider) AuthCodeURL(state string) string {
	return g.oauth.AuthCodeURL(state)
}

// FetchProfile exchanges code for a token and reads the user's profile with it.
func (g *GoogleProvider) FetchProfile(ctx context.Context, code string) (*GoogleProfile, error) {
	tok, err := g.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: code exchange failed: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to build userinfo request: %w", err)
	}
	resp, err := g.oauth.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: userinfo request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: userinfo returned %s", resp.Status)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth: failed to decode userinfo: %w", err)
	}
	if profile.ID == "" || profile.Email == "" {
		return nil, errors.New("auth: google profile has no id or email")
	}
	return &profile, nil
}
