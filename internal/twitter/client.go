package twitter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/dghubble/oauth1"
	"github.com/sirupsen/logrus"

	"skyrelay/internal/config"
)

const (
	defaultUploadURL = "https://upload.twitter.com/1.1/media/upload.json"
	defaultTweetURL  = "https://api.x.com/2/tweets"

	requestTimeout = 60 * time.Second
)

// Client publishes to the destination platform. API calls are signed with
// OAuth1 user-context credentials; media blobs are fetched with a separate
// unsigned client.
type Client struct {
	authClient  *http.Client
	fetchClient *http.Client
	uploadURL   string
	tweetURL    string
	log         logrus.FieldLogger
}

// NewClient builds a client from the configured OAuth1 credentials.
func NewClient(cfg config.TwitterConfig, logger logrus.FieldLogger) *Client {
	oauthConfig := oauth1.NewConfig(cfg.APIKey, cfg.APISecretKey)
	token := oauth1.NewToken(cfg.AccessToken, cfg.AccessTokenSecret)

	authClient := oauthConfig.Client(oauth1.NoContext, token)
	authClient.Timeout = requestTimeout

	return &Client{
		authClient:  authClient,
		fetchClient: &http.Client{Timeout: requestTimeout},
		uploadURL:   defaultUploadURL,
		tweetURL:    defaultTweetURL,
		log:         logger.WithField("component", "twitter"),
	}
}

type tweetRequest struct {
	Text  string      `json:"text"`
	Media *tweetMedia `json:"media,omitempty"`
	Reply *tweetReply `json:"reply,omitempty"`
}

type tweetMedia struct {
	MediaIDs []string `json:"media_ids"`
}

type tweetReply struct {
	InReplyToTweetID string `json:"in_reply_to_tweet_id"`
}

type tweetResponse struct {
	Data struct {
		ID string `json:"id"`
	} `json:"data"`
}

type uploadResponse struct {
	MediaIDString string `json:"media_id_string"`
}

// downloadMedia fetches the blob at mediaURL into a transient local file and
// returns its path with a cleanup function that removes it.
func (c *Client) downloadMedia(ctx context.Context, mediaURL string) (string, func(), error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to build media request: %w", err)
	}

	resp, err := c.fetchClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("failed to download media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("failed to download media: status %d", resp.StatusCode)
	}

	// Source CDN URLs end in e.g. .../abc@jpeg; turn the suffix into a
	// regular file extension.
	name := strings.ReplaceAll(path.Base(mediaURL), "@", ".")

	tmp, err := os.CreateTemp("", "skyrelay-*-"+name)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create temp file for media: %w", err)
	}

	cleanup := func() {
		tmp.Close()
		os.Remove(tmp.Name())
	}

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to save media to %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("failed to close media file %s: %w", tmp.Name(), err)
	}

	return tmp.Name(), cleanup, nil
}

// UploadMedia downloads the blob at mediaURL and uploads it to the media
// endpoint, returning the media id to attach to a tweet.
func (c *Client) UploadMedia(ctx context.Context, mediaURL string) (string, error) {
	log := c.log.WithField("media_url", mediaURL)

	filePath, cleanup, err := c.downloadMedia(ctx, mediaURL)
	if err != nil {
		return "", err
	}
	defer cleanup()

	file, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to open downloaded media: %w", err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("media", path.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return "", fmt.Errorf("failed to read media into multipart body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("failed to build upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.authClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("media upload failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("media upload failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var upload uploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&upload); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}

	log.WithField("media_id", upload.MediaIDString).Info("Media uploaded")
	return upload.MediaIDString, nil
}

// PostTweet publishes text, optionally with an uploaded media id attached,
// and returns the created tweet's id.
func (c *Client) PostTweet(ctx context.Context, text, mediaID string) (string, error) {
	payload := tweetRequest{Text: text}
	if mediaID != "" {
		payload.Media = &tweetMedia{MediaIDs: []string{mediaID}}
	}
	return c.createTweet(ctx, payload)
}

// Reply publishes text as a reply to the tweet with id inReplyToID.
func (c *Client) Reply(ctx context.Context, text, inReplyToID string) (string, error) {
	payload := tweetRequest{
		Text:  text,
		Reply: &tweetReply{InReplyToTweetID: inReplyToID},
	}
	return c.createTweet(ctx, payload)
}

func (c *Client) createTweet(ctx context.Context, payload tweetRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal tweet request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.tweetURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to build tweet request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.authClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tweet request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("tweet request failed with status %d: %s", resp.StatusCode, string(respBody))
	}

	var created tweetResponse
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return "", fmt.Errorf("failed to decode tweet response: %w", err)
	}

	c.log.WithField("tweet_id", created.Data.ID).Info("Tweet posted")
	return created.Data.ID, nil
}
