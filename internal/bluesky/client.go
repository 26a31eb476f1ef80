package bluesky

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"skyrelay/internal/config"
	"skyrelay/internal/storage"
)

// ErrExpiredToken is the API's signal that the bearer token must be
// refreshed by logging in again.
var ErrExpiredToken = errors.New("bluesky: expired token")

const requestTimeout = 30 * time.Second

// Client talks to the source platform's XRPC API. It holds the login
// credentials and keeps the bearer token in the injected TokenStore so it
// survives process restarts.
type Client struct {
	httpClient *http.Client
	host       string
	identifier string
	password   string
	tokens     storage.TokenStore
	log        logrus.FieldLogger
}

// NewClient creates a client for the configured PDS host.
func NewClient(cfg config.BlueskyConfig, tokens storage.TokenStore, logger logrus.FieldLogger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		host:       cfg.PDSHost,
		identifier: cfg.Identifier,
		password:   cfg.Password,
		tokens:     tokens,
		log:        logger.WithField("component", "bluesky"),
	}
}

// login creates a session and persists the new bearer token.
func (c *Client) login(ctx context.Context) (string, error) {
	c.log.WithField("identifier", c.identifier).Info("Creating session")

	body, err := json.Marshal(map[string]string{
		"identifier":      c.identifier,
		"password":        c.password,
		"authFactorToken": "",
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal login request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.host+"/xrpc/com.atproto.server.createSession", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("login failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var session sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return "", fmt.Errorf("failed to decode session response: %w", err)
	}
	if session.AccessJwt == "" {
		return "", fmt.Errorf("login succeeded but no bearer token was returned")
	}

	if err := c.tokens.SetToken(ctx, session.AccessJwt); err != nil {
		return "", fmt.Errorf("failed to persist token: %w", err)
	}

	c.log.WithField("handle", session.Handle).Info("Session created")
	return session.AccessJwt, nil
}

// token returns the persisted bearer token, logging in first when absent.
func (c *Client) token(ctx context.Context) (string, error) {
	token, err := c.tokens.Token(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		c.log.Info("No stored token, logging in")
		return c.login(ctx)
	}
	if err != nil {
		return "", err
	}
	return token, nil
}

// FetchRecentPosts retrieves the latest feed items for actor. On an expired
// token it re-authenticates exactly once and retries the same request; a
// second failure, or any other non-success status, is returned to the
// caller and the poll cycle is treated as a no-op.
func (c *Client) FetchRecentPosts(ctx context.Context, actor string, limit int) ([]FeedItem, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	items, err := c.authorFeed(ctx, token, actor, limit)
	if errors.Is(err, ErrExpiredToken) {
		c.log.Info("Token expired, refreshing and retrying")
		token, err = c.login(ctx)
		if err != nil {
			return nil, err
		}
		items, err = c.authorFeed(ctx, token, actor, limit)
	}
	if err != nil {
		return nil, err
	}

	c.log.WithField("count", len(items)).Debug("Fetched author feed")
	return items, nil
}

func (c *Client) authorFeed(ctx context.Context, token, actor string, limit int) ([]FeedItem, error) {
	q := url.Values{}
	q.Set("actor", actor)
	q.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.host+"/xrpc/app.bsky.feed.getAuthorFeed?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build feed request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("feed request failed: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var feed feedResponse
		if err := json.NewDecoder(resp.Body).Decode(&feed); err != nil {
			return nil, fmt.Errorf("failed to decode feed response: %w", err)
		}
		return feed.Feed, nil

	case http.StatusBadRequest:
		respBody, _ := io.ReadAll(resp.Body)
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error == "ExpiredToken" {
			return nil, ErrExpiredToken
		}
		return nil, fmt.Errorf("feed request failed with status %d: %s", resp.StatusCode, string(respBody))

	default:
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("feed request failed with status %d: %s", resp.StatusCode, string(respBody))
	}
}
