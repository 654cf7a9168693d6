package gamectl

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/go-resty/resty/v2"

	"github.com/louisbranch/pecking-order/internal/platform/timeouts"
	"github.com/louisbranch/pecking-order/internal/services/game/app"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/manifest"
	"github.com/louisbranch/pecking-order/internal/services/game/domain/orchestrator"
)

// Client calls the game admin API.
type Client struct {
	http *resty.Client
}

type apiError struct {
	Error string `json:"error"`
}

// NewClient returns a client for baseURL authenticated with token.
func NewClient(baseURL, token string) *Client {
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeouts.AdminRequest).
		SetHeader("Content-Type", "application/json")
	if token != "" {
		c.SetAuthToken(token)
	}
	return &Client{http: c}
}

// CreateGame initializes a new game.
func (c *Client) CreateGame(ctx context.Context, p orchestrator.InitPayload) (app.Status, error) {
	var st app.Status
	return st, c.post(ctx, "/admin/games", p, &st)
}

// Status fetches a game's status.
func (c *Client) Status(ctx context.Context, gameID string) (app.Status, error) {
	var st app.Status
	var apiErr apiError
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&st).
		SetError(&apiErr).
		Get(gamePath(gameID, ""))
	return st, check(resp, err, &apiErr)
}

// Advance moves a game to its next stage.
func (c *Client) Advance(ctx context.Context, gameID string) (app.Status, error) {
	var st app.Status
	return st, c.post(ctx, gamePath(gameID, "/advance"), struct{}{}, &st)
}

// Inject raises one timeline action now.
func (c *Client) Inject(ctx context.Context, gameID string, action manifest.Action, payload json.RawMessage) (app.Status, error) {
	var st app.Status
	body := orchestrator.InjectPayload{Action: action, Payload: payload}
	return st, c.post(ctx, gamePath(gameID, "/inject"), body, &st)
}

// Narrate posts a narrator message to group chat.
func (c *Client) Narrate(ctx context.Context, gameID, text string) error {
	return c.post(ctx, gamePath(gameID, "/narrator"), app.NarratorRequest{Text: text}, nil)
}

// IssueToken mints a player token.
func (c *Client) IssueToken(ctx context.Context, gameID, playerID, ttl string) (string, error) {
	var out app.TokenResponse
	err := c.post(ctx, gamePath(gameID, "/tokens"), app.TokenRequest{PlayerID: playerID, TTL: ttl}, &out)
	return out.Token, err
}

func (c *Client) post(ctx context.Context, path string, body, result any) error {
	var apiErr apiError
	req := c.http.R().SetContext(ctx).SetBody(body).SetError(&apiErr)
	if result != nil {
		req.SetResult(result)
	}
	resp, err := req.Post(path)
	return check(resp, err, &apiErr)
}

func check(resp *resty.Response, err error, apiErr *apiError) error {
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error != "" {
			return fmt.Errorf("%s: %s", resp.Status(), apiErr.Error)
		}
		return fmt.Errorf("%s", resp.Status())
	}
	return nil
}

func gamePath(gameID, suffix string) string {
	return "/admin/games/" + url.PathEscape(gameID) + suffix
}
