package auth_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/veridian-labs/veridian/pkg/auth"
	"github.com/veridian-labs/veridian/pkg/auth/authinfra"
	"github.com/veridian-labs/veridian/pkg/auth/oauthx"
	"github.com/veridian-labs/veridian/pkg/config"
	"github.com/veridian-labs/veridian/pkg/errx"
)

// fakeProvider satisfies oauthx.Provider with canned exchange results.
type fakeProvider struct {
	name    string
	profile *oauthx.Profile
	err     error
}

func (p *fakeProvider) Name() string { return p.name }

func (p *fakeProvider) AuthCodeURL(state string) string {
	return "https://provider.test/authorize?state=" + url.QueryEscape(state)
}

func (p *fakeProvider) Exchange(_ context.Context, _ string) (*oauthx.Profile, error) {
	if p.err != nil {
		return nil, p.err
	}
	profile := *p.profile
	return &profile, nil
}

type testApp struct {
	*testEnv
	app    *fiber.App
	google *fakeProvider
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	env := newTestEnv(t)

	google := &fakeProvider{name: "google", profile: googleProfile("ada@example.com")}
	github := &fakeProvider{name: "github", profile: &oauthx.Profile{
		Provider: "github", ProviderUserID: "gh-1", Email: "ada@example.com", Name: "Ada",
	}}

	handlers := auth.NewHandlers(
		env.service,
		env.reconciler,
		oauthx.Registry{"google": google, "github": github},
		authinfra.NewMemoryStateStore(),
		env.tokens,
		&config.OAuthConfig{StateTTL: time.Minute, SuccessRedirect: "https://app.test/oauth/done"},
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var e *errx.Error
			if errx.As(err, &e) {
				return c.Status(e.HTTPStatus).JSON(e)
			}
			return c.Status(fiber.StatusInternalServerError).SendString(err.Error())
		},
	})

	protected := []fiber.Handler{
		env.middleware.Authenticate(),
		env.middleware.RequireRoles(),
	}
	handlers.RegisterRoutes(app, protected, auth.RouteLimiters{})

	return &testApp{testEnv: env, app: app, google: google}
}

func (ta *testApp) postJSON(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return ta.do(t, req)
}

func (ta *testApp) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := ta.app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal %q: %v", raw, err)
	}
	return out
}

func assertStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	if resp.StatusCode != want {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected status %d, got %d: %s", want, resp.StatusCode, raw)
	}
}

// --- password endpoints ---

func TestHandlers_Login(t *testing.T) {
	ta := newTestApp(t)
	ta.seedPasswordUser(t, "ada@example.com", "correct horse battery")

	resp := ta.postJSON(t, "/auth/login", fiber.Map{
		"email": "ada@example.com", "password": "correct horse battery",
	})
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	access, _ := body["accessToken"].(string)
	refresh, _ := body["refreshToken"].(string)
	if access == "" || refresh == "" {
		t.Fatalf("expected a token pair, got %v", body)
	}
}

func TestHandlers_LoginWrongPassword(t *testing.T) {
	ta := newTestApp(t)
	ta.seedPasswordUser(t, "ada@example.com", "correct horse battery")

	resp := ta.postJSON(t, "/auth/login", fiber.Map{
		"email": "ada@example.com", "password": "wrong",
	})
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestHandlers_LoginMalformedBody(t *testing.T) {
	ta := newTestApp(t)

	req, _ := http.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader([]byte("{not json")))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestHandlers_Register(t *testing.T) {
	ta := newTestApp(t)

	resp := ta.postJSON(t, "/auth/register", fiber.Map{
		"username": "ada", "email": "ada@example.com", "password": "correct horse battery",
	})
	assertStatus(t, resp, http.StatusCreated)

	body := decodeBody(t, resp)
	if access, _ := body["accessToken"].(string); access == "" {
		t.Fatalf("expected an access token, got %v", body)
	}
	user, ok := body["user"].(map[string]any)
	if !ok || user["email"] != "ada@example.com" {
		t.Fatalf("expected the created user, got %v", body)
	}
}

func TestHandlers_RegisterDuplicate(t *testing.T) {
	ta := newTestApp(t)
	ta.seedPasswordUser(t, "ada@example.com", "correct horse battery")

	resp := ta.postJSON(t, "/auth/register", fiber.Map{
		"username": "ada2", "email": "ada@example.com", "password": "another password",
	})
	assertStatus(t, resp, http.StatusConflict)
}

func TestHandlers_Refresh(t *testing.T) {
	ta := newTestApp(t)
	user := ta.seedPasswordUser(t, "ada@example.com", "correct horse battery")
	refresh, _ := ta.tokens.IssueRefresh(user.ID)

	resp := ta.postJSON(t, "/auth/refresh", fiber.Map{"refreshToken": refresh})
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	access, _ := body["accessToken"].(string)
	if _, err := ta.tokens.VerifyAccess(access); err != nil {
		t.Fatalf("returned access token does not verify: %v", err)
	}
}

func TestHandlers_RefreshMissingToken(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.postJSON(t, "/auth/refresh", fiber.Map{})
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestHandlers_RefreshBadToken(t *testing.T) {
	ta := newTestApp(t)
	resp := ta.postJSON(t, "/auth/refresh", fiber.Map{"refreshToken": "garbage"})
	assertStatus(t, resp, http.StatusUnauthorized)
}

// --- protected routes ---

func TestHandlers_MeRequiresToken(t *testing.T) {
	ta := newTestApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestHandlers_Me(t *testing.T) {
	ta := newTestApp(t)
	user := ta.seedPasswordUser(t, "ada@example.com", "correct horse battery")
	access, _ := ta.tokens.IssueAccess(user.ID)

	req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusOK)

	body := decodeBody(t, resp)
	if body["user_id"] != user.ID.String() {
		t.Fatalf("expected principal %s, got %v", user.ID, body)
	}
}

// A valid token whose subject holds no roles is authenticated but always
// fails the role gate.
func TestHandlers_RolelessPrincipalForbidden(t *testing.T) {
	ta := newTestApp(t)
	user := ta.state.addUser("ada@example.com", "ada", nil)
	access, _ := ta.tokens.IssueAccess(user.ID)

	req, _ := http.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusForbidden)
}

func TestHandlers_Unlink(t *testing.T) {
	ta := newTestApp(t)
	user := ta.seedPasswordUser(t, "ada@example.com", "correct horse battery")
	ta.state.addLink(user.ID, "google", "goog-1")
	access, _ := ta.tokens.IssueAccess(user.ID)

	req, _ := http.NewRequest(http.MethodDelete, "/auth/unlink/google", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusOK)

	if ta.state.linkCount(user.ID) != 0 {
		t.Fatal("expected the link to be removed")
	}
}

func TestHandlers_UnlinkRequiresAuth(t *testing.T) {
	ta := newTestApp(t)

	req, _ := http.NewRequest(http.MethodDelete, "/auth/unlink/google", nil)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusUnauthorized)
}

func TestHandlers_UnlinkUnknownProvider(t *testing.T) {
	ta := newTestApp(t)
	user := ta.seedPasswordUser(t, "ada@example.com", "correct horse battery")
	access, _ := ta.tokens.IssueAccess(user.ID)

	req, _ := http.NewRequest(http.MethodDelete, "/auth/unlink/myspace", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestHandlers_UnlinkLastMethod(t *testing.T) {
	ta := newTestApp(t)
	user := ta.state.addUser("ada@example.com", "ada", nil)
	ta.state.assign(user.ID, ta.state.roles["user"].ID)
	ta.state.addLink(user.ID, "google", "goog-1")
	access, _ := ta.tokens.IssueAccess(user.ID)

	req, _ := http.NewRequest(http.MethodDelete, "/auth/unlink/google", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+access)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusBadRequest)
}

// --- OAuth flow ---

func TestHandlers_OAuthBeginUnknownProvider(t *testing.T) {
	ta := newTestApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/auth/myspace", nil)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusBadRequest)
}

func TestHandlers_OAuthLoginFlow(t *testing.T) {
	ta := newTestApp(t)

	// Begin: capture the state from the consent redirect.
	req, _ := http.NewRequest(http.MethodGet, "/auth/google", nil)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusFound)

	consent, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	if err != nil {
		t.Fatalf("parse consent URL: %v", err)
	}
	state := consent.Query().Get("state")
	if state == "" {
		t.Fatal("expected a state nonce in the consent URL")
	}

	// Callback: no prior account, so a new one is registered.
	req, _ = http.NewRequest(http.MethodGet, "/auth/google/callback?code=xyz&state="+url.QueryEscape(state), nil)
	resp = ta.do(t, req)
	assertStatus(t, resp, http.StatusFound)

	done, err := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	if err != nil {
		t.Fatalf("parse redirect: %v", err)
	}
	if done.Query().Get("kind") != string(auth.OutcomeRegistered) {
		t.Fatalf("expected a registered outcome, got %q", done.Query().Get("kind"))
	}
	token := done.Query().Get("token")
	claims, err := ta.tokens.VerifyAccess(token)
	if err != nil {
		t.Fatalf("redirect token does not verify: %v", err)
	}
	if claims.UserID.String() != done.Query().Get("user_id") {
		t.Fatal("redirect token subject does not match user_id")
	}
}

// Replaying a consumed state must fail: the nonce is one-shot, and an unknown
// state is treated as a linking token, which a random nonce is not.
func TestHandlers_OAuthStateIsOneShot(t *testing.T) {
	ta := newTestApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/auth/google", nil)
	resp := ta.do(t, req)
	consent, _ := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	state := consent.Query().Get("state")

	callback := "/auth/google/callback?code=xyz&state=" + url.QueryEscape(state)
	req, _ = http.NewRequest(http.MethodGet, callback, nil)
	assertStatus(t, ta.do(t, req), http.StatusFound)

	req, _ = http.NewRequest(http.MethodGet, callback, nil)
	assertStatus(t, ta.do(t, req), http.StatusUnauthorized)
}

// A nonce minted for one provider must not authorize another's callback.
func TestHandlers_OAuthStateProviderMismatch(t *testing.T) {
	ta := newTestApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/auth/github", nil)
	resp := ta.do(t, req)
	consent, _ := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	state := consent.Query().Get("state")

	req, _ = http.NewRequest(http.MethodGet, "/auth/google/callback?code=xyz&state="+url.QueryEscape(state), nil)
	assertStatus(t, ta.do(t, req), http.StatusUnauthorized)
}

func TestHandlers_OAuthCallbackProviderError(t *testing.T) {
	ta := newTestApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/auth/google/callback?error=access_denied", nil)
	assertStatus(t, ta.do(t, req), http.StatusBadRequest)
}

func TestHandlers_OAuthBeginLinkingRequiresToken(t *testing.T) {
	ta := newTestApp(t)

	req, _ := http.NewRequest(http.MethodGet, "/auth/google?linking=true", nil)
	assertStatus(t, ta.do(t, req), http.StatusBadRequest)

	req, _ = http.NewRequest(http.MethodGet, "/auth/google?linking=true&token=garbage", nil)
	assertStatus(t, ta.do(t, req), http.StatusUnauthorized)
}

func TestHandlers_OAuthLinkingFlow(t *testing.T) {
	ta := newTestApp(t)
	user := ta.seedPasswordUser(t, "ada@example.com", "correct horse battery")
	access, _ := ta.tokens.IssueAccess(user.ID)

	// Begin: the access token rides along as the state.
	req, _ := http.NewRequest(http.MethodGet, "/auth/google?linking=true&token="+url.QueryEscape(access), nil)
	resp := ta.do(t, req)
	assertStatus(t, resp, http.StatusFound)

	consent, _ := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	if consent.Query().Get("state") != access {
		t.Fatal("expected the linking token as the consent state")
	}

	// Callback: the unknown state is recognized as a linking token.
	req, _ = http.NewRequest(http.MethodGet, "/auth/google/callback?code=xyz&state="+url.QueryEscape(access), nil)
	resp = ta.do(t, req)
	assertStatus(t, resp, http.StatusFound)

	done, _ := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	if done.Query().Get("kind") != string(auth.OutcomeLinked) {
		t.Fatalf("expected a linked outcome, got %q", done.Query().Get("kind"))
	}
	if done.Query().Get("token") != access {
		t.Fatal("expected the linking token to continue as the session token")
	}
	if ta.state.linkCount(user.ID) != 1 {
		t.Fatal("expected the provider link to be persisted")
	}
}

func TestHandlers_OAuthExchangeFailure(t *testing.T) {
	ta := newTestApp(t)
	ta.google.err = oauthx.ErrRegistryX.New(oauthx.CodeExchangeFailed)

	req, _ := http.NewRequest(http.MethodGet, "/auth/google", nil)
	resp := ta.do(t, req)
	consent, _ := url.Parse(resp.Header.Get(fiber.HeaderLocation))
	state := consent.Query().Get("state")

	req, _ = http.NewRequest(http.MethodGet, "/auth/google/callback?code=xyz&state="+url.QueryEscape(state), nil)
	assertStatus(t, ta.do(t, req), http.StatusBadGateway)
}
