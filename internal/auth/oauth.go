package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
	"golang.org/x/oauth2/google"

	"github.com/creationgoals/server/internal/apperror"
)

// Profile is the normalized identity a provider hands to the reconciler.
//
// Every optional field is a *string: nil means the provider did not supply
// the value at all, which the reconciler treats as "leave the stored value
// alone". A non-nil pointer — even to an empty string — is an explicit
// value and overwrites. This distinction is the whole merge contract, so
// providers must be careful to only set pointers for fields they actually
// received.
//
// Email is plain string: it's the reconciliation key. Google guarantees
// it (login fails otherwise); GitHub may leave it empty when the user
// hides their email.
type Profile struct {
	Provider    string // "google" or "github"
	GoogleID    *string
	GitHubID    *string
	Email       string
	DisplayName *string
	FirstName   *string
	LastName    *string
	Image       *string
	Bio         *string
	Location    *string
	Company     *string
	Website     *string
}

// Provider is one OAuth identity source. Both implementations wrap
// golang.org/x/oauth2 for the Authorization Code flow:
//
//  1. Redirect the user to the provider's authorization endpoint (AuthURL)
//  2. The provider redirects back to our callback with a short-lived code
//  3. Exchange trades the code for an access token (server-to-server, so
//     the token never touches the browser) and fetches the user profile
//
// The callback handler is provider-agnostic: it holds a Provider, calls
// Exchange, and passes the Profile to the reconciler.
type Provider interface {
	Name() string
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*Profile, string, error)
}

// ---------------------------------------------------------------------
// Google
// ---------------------------------------------------------------------

// googleUserinfo is the portion of Google's userinfo response we care about.
//
// https://www.googleapis.com/oauth2/v2/userinfo with scopes "profile email".
type googleUserinfo struct {
	ID         string `json:"id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// GoogleProvider implements Provider for Google Sign-In.
type GoogleProvider struct {
	config *oauth2.Config
}

// NewGoogleProvider creates a GoogleProvider with the given credentials.
// Register the OAuth client in the Google Cloud console; callbackURL must
// match the authorized redirect URI exactly.
func NewGoogleProvider(clientID, clientSecret, callbackURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"profile", "email"},
			Endpoint:     google.Endpoint,
		},
	}
}

func (p *GoogleProvider) Name() string { return "google" }

// AuthURL returns the URL to redirect the user to for authorization.
// The state parameter is verified on callback to block CSRF.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow: code → access token → userinfo → Profile.
//
// A Google account without a usable email is a hard failure
// (apperror.ErrMissingEmail): email is the key the reconciler matches
// identities on, and Google normally always supplies one.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*Profile, string, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("auth: exchanging Google OAuth code: %w", err)
	}

	client := p.config.Client(ctx, oauthToken)
	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, "", fmt.Errorf("auth: calling Google userinfo API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("auth: Google userinfo API returned status %d", resp.StatusCode)
	}

	var info googleUserinfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, "", fmt.Errorf("auth: decoding Google userinfo response: %w", err)
	}

	if info.ID == "" {
		return nil, "", fmt.Errorf("auth: Google returned an invalid user (empty id)")
	}
	if info.Email == "" {
		return nil, "", apperror.MissingEmail("google")
	}

	// Google always reports the name parts, possibly empty — an empty
	// part is still an explicit value here, matching how the login screen
	// treated it before.
	return &Profile{
		Provider:    "google",
		GoogleID:    ptr(info.ID),
		Email:       info.Email,
		DisplayName: ptr(info.Name),
		FirstName:   ptr(info.GivenName),
		LastName:    ptr(info.FamilyName),
		Image:       ptr(info.Picture),
	}, oauthToken.AccessToken, nil
}

// ---------------------------------------------------------------------
// GitHub
// ---------------------------------------------------------------------

// githubUser is the portion of the GitHub /user API response we care about.
// GitHub returns a much larger object — we only unmarshal the fields we need.
// Nullable JSON fields stay *string so a null is distinguishable from "".
//
// GitHub API docs: https://docs.github.com/en/rest/users/users#get-the-authenticated-user
type githubUser struct {
	ID        int64   `json:"id"` // GitHub's numeric user ID — stable, never changes
	Login     string  `json:"login"`
	Name      *string `json:"name"`  // display name; null if never set
	Email     *string `json:"email"` // primary public email; null if hidden
	AvatarURL string  `json:"avatar_url"`
	Bio       *string `json:"bio"`
	Location  *string `json:"location"`
	Company   *string `json:"company"`
	Blog      *string `json:"blog"`
}

// githubEmail is one entry of the /user/emails response.
type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider implements Provider for GitHub OAuth.
type GitHubProvider struct {
	config *oauth2.Config
}

// NewGitHubProvider creates a GitHubProvider with the given credentials.
//
// Register an OAuth App at https://github.com/settings/developers;
// callbackURL must match the configured Authorization callback URL.
//
// Scopes:
//   - "read:user" — public profile (id, login, avatar, bio, ...)
//   - "user:email" — email addresses, needed for the /user/emails fallback
func NewGitHubProvider(clientID, clientSecret, callbackURL string) *GitHubProvider {
	return &GitHubProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
	}
}

func (p *GitHubProvider) Name() string { return "github" }

// AuthURL returns the URL to redirect the user to for authorization.
func (p *GitHubProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange completes the flow: code → access token → /user → Profile.
//
// Users can hide their email on GitHub, in which case /user reports it as
// null. We then fall back to /user/emails and pick the primary verified
// address. If that also yields nothing the login still proceeds with an
// empty email — unlike Google, a GitHub identity is allowed in without
// one, and the reconciler will simply never match it to another account.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*Profile, string, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, "", fmt.Errorf("auth: exchanging GitHub OAuth code: %w", err)
	}

	client := p.config.Client(ctx, oauthToken)

	resp, err := client.Get("https://api.github.com/user")
	if err != nil {
		return nil, "", fmt.Errorf("auth: calling GitHub /user API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("auth: GitHub /user API returned status %d", resp.StatusCode)
	}

	var ghUser githubUser
	if err := json.NewDecoder(resp.Body).Decode(&ghUser); err != nil {
		return nil, "", fmt.Errorf("auth: decoding GitHub /user response: %w", err)
	}

	if ghUser.ID == 0 {
		return nil, "", fmt.Errorf("auth: GitHub returned an invalid user (ID = 0)")
	}

	email := ""
	if ghUser.Email != nil {
		email = *ghUser.Email
	}
	if email == "" {
		email = p.primaryEmail(ctx, client)
	}

	profile := &Profile{
		Provider:    "github",
		GitHubID:    ptr(strconv.FormatInt(ghUser.ID, 10)),
		Email:       email,
		DisplayName: ghUser.Name,
		Bio:         ghUser.Bio,
		Location:    ghUser.Location,
		Company:     ghUser.Company,
		Website:     ghUser.Blog,
	}
	if ghUser.AvatarURL != "" {
		profile.Image = ptr(ghUser.AvatarURL)
	}

	// GitHub has no separate name parts — split the display name on the
	// first space. Both parts are explicit values (empty when there's no
	// display name at all), same as the account screens always did.
	first, last := splitDisplayName(ghUser.Name)
	profile.FirstName = ptr(first)
	profile.LastName = ptr(last)

	return profile, oauthToken.AccessToken, nil
}

// primaryEmail fetches /user/emails and returns the primary verified
// address, or "" if none is available. Failures here are non-fatal — the
// email is a best-effort enrichment for hidden-email accounts.
func (p *GitHubProvider) primaryEmail(ctx context.Context, client *http.Client) string {
	resp, err := client.Get("https://api.github.com/user/emails")
	if err != nil {
		return ""
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ""
	}

	var emails []githubEmail
	if err := json.NewDecoder(resp.Body).Decode(&emails); err != nil {
		return ""
	}

	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	if len(emails) > 0 {
		return emails[0].Email
	}
	return ""
}

// splitDisplayName splits "Ada Lovelace King" into ("Ada", "Lovelace King").
func splitDisplayName(name *string) (first, last string) {
	if name == nil {
		return "", ""
	}
	parts := strings.SplitN(strings.TrimSpace(*name), " ", 2)
	first = parts[0]
	if len(parts) > 1 {
		last = parts[1]
	}
	return first, last
}

// ptr is a small helper for building Profile fields from known values.
func ptr(s string) *string { return &s }
