package oauthx

import (
	"context"
	"strconv"

	"github.com/veridian-labs/veridian/pkg/config"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	githubUserURL   = "https://api.github.com/user"
	githubEmailsURL = "https://api.github.com/user/emails"
)

// GitHubProvider authenticates against GitHub OAuth.
type GitHubProvider struct {
	cfg *oauth2.Config
}

// NewGitHubProvider builds the GitHub adapter from config.
func NewGitHubProvider(cfg *config.OAuthProviderConfig) *GitHubProvider {
	return &GitHubProvider{
		cfg: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
	}
}

func (p *GitHubProvider) Name() string {
	return "github"
}

func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.cfg.AuthCodeURL(state)
}

// Exchange trades the code for a token and fetches the user document.
// GitHub hides the email for privacy-conscious accounts, so a second call
// to the emails endpoint picks the primary verified address.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Profile, error) {
	token, err := p.cfg.Exchange(ctx, code)
	if err != nil {
		return nil, ErrRegistryX.NewWithCause(CodeExchangeFailed, err).WithDetail("provider", p.Name())
	}

	client := p.cfg.Client(ctx, token)

	var user struct {
		ID    int64  `json:"id"`
		Login string `json:"login"`
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := fetchJSON(ctx, client, githubUserURL, &user); err != nil {
		return nil, ErrRegistryX.NewWithCause(CodeProfileFailed, err).WithDetail("provider", p.Name())
	}

	email := user.Email
	if email == "" {
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := fetchJSON(ctx, client, githubEmailsURL, &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					email = e.Email
					break
				}
			}
		}
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &Profile{
		Provider:       p.Name(),
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Email:          email,
		Name:           name,
	}, nil
}
