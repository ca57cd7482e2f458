// Package discord wraps the Discord OAuth2 flow and the identity fetch done
// after login. The OAuth token exchange talks to the Discord token endpoint
// directly, everything else goes through discordgo with the user's bearer
// token.
package discord

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

const (
	authorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	tokenEndpoint     = "https://discord.com/api/oauth2/token"

	// scopes cover the profile, email and guild list needed by the dashboard
	scopes = "identify email guilds"
)

// Client performs the OAuth2 code flow against Discord
type Client struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	// HTTPClient is overridable for tests, defaults to a 10s-timeout client
	HTTPClient *http.Client
}

// Identity is the Discord view of the logged-in user
type Identity struct {
	User   *discordgo.User
	Guilds []*discordgo.UserGuild
}

func (c *Client) httpClient() *http.Client {
	if c.HTTPClient != nil {
		return c.HTTPClient
	}
	return &http.Client{Timeout: 10 * time.Second}
}

// AuthorizeURL builds the Discord consent page URL for the given state
func (c *Client) AuthorizeURL(state string) string {
	q := url.Values{}
	q.Set("client_id", c.ClientID)
	q.Set("redirect_uri", c.RedirectURI)
	q.Set("response_type", "code")
	q.Set("scope", scopes)
	q.Set("state", state)
	return authorizeEndpoint + "?" + q.Encode()
}

// ExchangeCode swaps the OAuth authorization code for a user access token
func (c *Client) ExchangeCode(ctx context.Context, code string) (string, error) {
	form := url.Values{}
	form.Set("client_id", c.ClientID)
	form.Set("client_secret", c.ClientSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", c.RedirectURI)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenEndpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient().Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discord token endpoint returned %d", resp.StatusCode)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.AccessToken == "" {
		return "", fmt.Errorf("discord token endpoint returned no access token")
	}
	return body.AccessToken, nil
}

// FetchIdentity loads the user profile and guild list with the user's access
// token
func (c *Client) FetchIdentity(ctx context.Context, accessToken string) (*Identity, error) {
	session, err := discordgo.New("Bearer " + accessToken)
	if err != nil {
		return nil, err
	}
	session.Client = c.httpClient()

	user, err := session.User("@me", discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discord user: %w", err)
	}

	guilds, err := session.UserGuilds(200, "", "", false, discordgo.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch discord guilds: %w", err)
	}

	return &Identity{User: user, Guilds: guilds}, nil
}

// CanManage reports whether the user can manage the guild from the dashboard:
// owner, administrator or manage-server permission.
func CanManage(g *discordgo.UserGuild) bool {
	if g.Owner {
		return true
	}
	return g.Permissions&(discordgo.PermissionAdministrator|discordgo.PermissionManageServer) != 0
}
