// Package apifootball is a GET-only client for the API-Football v3 REST
// API, generalized from the teacher's fixed-path Sleeper client into a
// parameter-map client plus a typed error taxonomy and rate-limiter
// integration.
package apifootball

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/mrab54/football-ingestor/internal/ratelimit"
)

// Client is the API-Football HTTP client.
type Client struct {
	http    *resty.Client
	baseURL string
	limiter *ratelimit.Limiter
	logger  *zap.Logger
}

// New builds a Client against baseURL, authenticating with apiKey and
// rate-limited by limiter.
func New(baseURL, apiKey string, timeout time.Duration, limiter *ratelimit.Limiter, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(timeout).
		SetRetryCount(3).
		SetRetryWaitTime(1 * time.Second).
		SetRetryMaxWaitTime(10 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return r.StatusCode() >= 500
		}).
		SetHeader("x-apisports-key", apiKey)

	return &Client{
		http:    httpClient,
		baseURL: baseURL,
		limiter: limiter,
		logger:  logger,
	}
}

// Get issues a rate-limited GET against endpoint with the given query
// parameters and returns the decoded envelope. Callers are responsible
// for unmarshalling envelope.Response into the endpoint-specific type.
func (c *Client) Get(ctx context.Context, endpoint string, params map[string]string) (*Envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		if errors.Is(err, ratelimit.ErrEmergencyStop) {
			return nil, newError(ErrEmergencyStop, endpoint, 0, err)
		}
		return nil, newError(ErrTransport, endpoint, 0, err)
	}

	url := c.baseURL + endpoint
	req := c.http.R().SetContext(ctx).SetHeader("Accept", "application/json")
	for k, v := range params {
		req = req.SetQueryParam(k, v)
	}

	c.logger.Debug("api request", zap.String("endpoint", endpoint), zap.Any("params", params))

	resp, err := req.Get(url)
	if err != nil {
		if ctx.Err() != nil || resp == nil {
			return nil, newError(ErrTimeout, endpoint, 0, err)
		}
		return nil, newError(ErrTransport, endpoint, 0, err)
	}

	headers := map[string]string{}
	for k := range resp.Header() {
		headers[k] = resp.Header().Get(k)
	}
	if err := c.limiter.UpdateFromHeaders(headers); err != nil {
		c.logger.Warn("rate limiter emergency stop observed", zap.String("endpoint", endpoint))
		return nil, newError(ErrEmergencyStop, endpoint, resp.StatusCode(), err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		// fallthrough to decode below
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, newError(ErrAuth, endpoint, resp.StatusCode(), fmt.Errorf("auth rejected: %s", resp.Status()))
	case http.StatusTooManyRequests:
		return nil, newError(ErrRateLimited, endpoint, resp.StatusCode(), fmt.Errorf("rate limited: %s", resp.Status()))
	default:
		if resp.StatusCode() >= 500 {
			return nil, newError(ErrServer, endpoint, resp.StatusCode(), fmt.Errorf("server error: %s", resp.Status()))
		}
		return nil, newError(ErrUnexpectedStatus, endpoint, resp.StatusCode(), fmt.Errorf("unexpected status: %s body=%s", resp.Status(), resp.Body()))
	}

	var envelope Envelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return nil, newError(ErrUnexpectedStatus, endpoint, resp.StatusCode(), fmt.Errorf("decode envelope: %w", err))
	}

	// A 200 whose envelope errors carry a rateLimit entry is a soft 429.
	var envErrs map[string]json.RawMessage
	if json.Unmarshal(envelope.Errors, &envErrs) == nil {
		if _, limited := envErrs["rateLimit"]; limited {
			return nil, newError(ErrRateLimited, endpoint, resp.StatusCode(), fmt.Errorf("envelope rate limit: %s", envelope.Errors))
		}
	}

	return &envelope, nil
}

// GetCountries fetches /countries, the full reference list of countries
// API-Football recognizes.
func (c *Client) GetCountries(ctx context.Context) ([]Country, error) {
	env, err := c.Get(ctx, "/countries", nil)
	if err != nil {
		return nil, err
	}
	var countries []Country
	if err := json.Unmarshal(env.Response, &countries); err != nil {
		return nil, newError(ErrUnexpectedStatus, "/countries", 0, err)
	}
	return countries, nil
}

// GetTimezones fetches /timezones, a flat array of IANA timezone names.
func (c *Client) GetTimezones(ctx context.Context) ([]string, error) {
	env, err := c.Get(ctx, "/timezones", nil)
	if err != nil {
		return nil, err
	}
	var zones []string
	if err := json.Unmarshal(env.Response, &zones); err != nil {
		return nil, newError(ErrUnexpectedStatus, "/timezones", 0, err)
	}
	return zones, nil
}

// GetLeagues fetches /leagues filtered by params (e.g. {"id": "39"} or
// {"season": "2024"}).
func (c *Client) GetLeagues(ctx context.Context, params map[string]string) ([]League, error) {
	env, err := c.Get(ctx, "/leagues", params)
	if err != nil {
		return nil, err
	}
	var leagues []League
	if err := json.Unmarshal(env.Response, &leagues); err != nil {
		return nil, newError(ErrUnexpectedStatus, "/leagues", 0, err)
	}
	return leagues, nil
}

// GetTeams fetches /teams filtered by params.
func (c *Client) GetTeams(ctx context.Context, params map[string]string) ([]Team, error) {
	env, err := c.Get(ctx, "/teams", params)
	if err != nil {
		return nil, err
	}
	var teams []Team
	if err := json.Unmarshal(env.Response, &teams); err != nil {
		return nil, newError(ErrUnexpectedStatus, "/teams", 0, err)
	}
	return teams, nil
}

// GetFixtures fetches /fixtures filtered by params.
func (c *Client) GetFixtures(ctx context.Context, params map[string]string) ([]Fixture, error) {
	env, err := c.Get(ctx, "/fixtures", params)
	if err != nil {
		return nil, err
	}
	var fixtures []Fixture
	if err := json.Unmarshal(env.Response, &fixtures); err != nil {
		return nil, newError(ErrUnexpectedStatus, "/fixtures", 0, err)
	}
	return fixtures, nil
}

// GetFixtureEvents fetches /fixtures/events for a single fixture id.
func (c *Client) GetFixtureEvents(ctx context.Context, fixtureID int64) ([]FixtureEvent, error) {
	env, err := c.Get(ctx, "/fixtures/events", map[string]string{"fixture": fmt.Sprint(fixtureID)})
	if err != nil {
		return nil, err
	}
	var events []FixtureEvent
	if err := json.Unmarshal(env.Response, &events); err != nil {
		return nil, newError(ErrUnexpectedStatus, "/fixtures/events", 0, err)
	}
	return events, nil
}

// GetInjuries fetches /injuries filtered by params.
func (c *Client) GetInjuries(ctx context.Context, params map[string]string) ([]Injury, error) {
	env, err := c.Get(ctx, "/injuries", params)
	if err != nil {
		return nil, err
	}
	var injuries []Injury
	if err := json.Unmarshal(env.Response, &injuries); err != nil {
		return nil, newError(ErrUnexpectedStatus, "/injuries", 0, err)
	}
	return injuries, nil
}

// GetStandings fetches /standings for a league/season.
func (c *Client) GetStandings(ctx context.Context, leagueID, season int) ([][]Standing, error) {
	env, err := c.Get(ctx, "/standings", map[string]string{"league": fmt.Sprint(leagueID), "season": fmt.Sprint(season)})
	if err != nil {
		return nil, err
	}
	var wrapper []struct {
		League struct {
			Standings [][]Standing `json:"standings"`
		} `json:"league"`
	}
	if err := json.Unmarshal(env.Response, &wrapper); err != nil {
		return nil, newError(ErrUnexpectedStatus, "/standings", 0, err)
	}
	if len(wrapper) == 0 {
		return nil, nil
	}
	return wrapper[0].League.Standings, nil
}

// GetTopScorers fetches /players/topscorers for a league/season.
func (c *Client) GetTopScorers(ctx context.Context, leagueID, season int) ([]TopScorer, error) {
	env, err := c.Get(ctx, "/players/topscorers", map[string]string{"league": fmt.Sprint(leagueID), "season": fmt.Sprint(season)})
	if err != nil {
		return nil, err
	}
	var scorers []TopScorer
	if err := json.Unmarshal(env.Response, &scorers); err != nil {
		return nil, newError(ErrUnexpectedStatus, "/players/topscorers", 0, err)
	}
	return scorers, nil
}

// GetTeamStatistics fetches /teams/statistics for a league/season/team.
func (c *Client) GetTeamStatistics(ctx context.Context, leagueID, season int, teamID int64) (*TeamStatistics, error) {
	env, err := c.Get(ctx, "/teams/statistics", map[string]string{
		"league": fmt.Sprint(leagueID), "season": fmt.Sprint(season), "team": fmt.Sprint(teamID),
	})
	if err != nil {
		return nil, err
	}
	var stats TeamStatistics
	if err := json.Unmarshal(env.Response, &stats); err != nil {
		return nil, newError(ErrUnexpectedStatus, "/teams/statistics", 0, err)
	}
	return &stats, nil
}
