package oauthx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/veridian-labs/veridian/pkg/config"
	"github.com/veridian-labs/veridian/pkg/errx"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const googleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"

// GoogleProvider authenticates against Google OAuth 2.0.
type GoogleProvider struct {
	cfg *oauth2.Config
}

// NewGoogleProvider builds the Google adapter from config.
func NewGoogleProvider(cfg *config.OAuthProviderConfig) *GoogleProvider {
	return &GoogleProvider{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     google.Endpoint,
			Scopes:       []string{"openid", "profile", "email"},
		},
	}
}

func (p *GoogleProvider) Name() string {
	return "google"
}

func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the code for a token and fetches the userinfo document.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, ErrRegistryX.NewWithCause(CodeExchangeFailed, err).WithDetail("provider", p.Name())
	}

	var info struct {
		ID    string `json:"id"`
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := fetchJSON(ctx, p.cfg.Client(ctx, token), googleUserInfoURL, &info); err != nil {
		return nil, ErrRegistryX.NewWithCause(CodeProfileFailed, err).WithDetail("provider", p.Name())
	}

	return &Profile{
		Provider:       p.Name(),
		ProviderUserID: info.ID,
		Email:          info.Email,
		Name:           info.Name,
	}, nil
}

func fetchJSON(ctx context.Context, client *http.Client, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errx.External(fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, url))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
