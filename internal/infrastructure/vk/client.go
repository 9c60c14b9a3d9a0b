package vk

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
	"strings"
	"time"

	"WallRelay/internal/domain"
	"WallRelay/internal/ports"
)

const (
	DefaultBaseURL    = "https://api.vk.com"
	DefaultAPIVersion = "5.64"
	DefaultCount      = 5

	reasonInvalid = "invalid_response"
	reasonEmpty   = "empty_response"

	userAgent = "WallRelay/1.0"
)

// Options configures the wall client.
type Options struct {
	BaseURL    string
	APIVersion string
	Token      string
	GroupID    int64
	Count      int
	Timeout    time.Duration
}

// Client reads a community wall through the VK API and downloads video pages.
type Client struct {
	baseURL    string
	apiVersion string
	token      string
	groupID    int64
	count      int
	http       *http.Client
}

var _ ports.WallSource = (*Client)(nil)
var _ ports.PageFetcher = (*Client)(nil)

// NewClient builds a client; zero options fall back to the defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.APIVersion == "" {
		opts.APIVersion = DefaultAPIVersion
	}
	if opts.Count <= 0 {
		opts.Count = DefaultCount
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		apiVersion: opts.APIVersion,
		token:      opts.Token,
		groupID:    opts.GroupID,
		count:      opts.Count,
		http:       &http.Client{Timeout: opts.Timeout},
	}
}

// FetchWall requests the latest posts of the configured community.
// Payloads that are not JSON or carry no post list are reported as
// *domain.MalformedFeedError with the raw body attached.
func (c *Client) FetchWall(ctx context.Context) ([]domain.Post, error) {
	endpoint, err := c.wallURL()
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("wall.get: %w", err)
	}

	return decodeWall(body)
}

// FetchPage downloads an HTML page, used to look up embedded players.
func (c *Client) FetchPage(ctx context.Context, pageURL string) ([]byte, error) {
	body, err := c.get(ctx, pageURL)
	if err != nil {
		return nil, fmt.Errorf("fetch page %s: %w", pageURL, err)
	}
	return body, nil
}

func (c *Client) wallURL() (string, error) {
	parsed, err := url.Parse(c.baseURL + "/method/wall.get")
	if err != nil {
		return "", fmt.Errorf("invalid api url %s: %w", c.baseURL, err)
	}

	query := parsed.Query()
	query.Set("v", c.apiVersion)
	query.Set("owner_id", strconv.FormatInt(c.groupID, 10))
	query.Set("access_token", c.token)
	query.Set("count", strconv.Itoa(c.count))
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", redactToken(err, c.token))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	return body, nil
}

type wallEnvelope struct {
	Response *struct {
		Items *[]wallItem `json:"items"`
	} `json:"response"`
	Error *struct {
		Code    int    `json:"error_code"`
		Message string `json:"error_msg"`
	} `json:"error"`
}

type wallItem struct {
	ID          int64            `json:"id"`
	FromID      int64            `json:"from_id"`
	Date        int64            `json:"date"`
	IsPinned    flag             `json:"is_pinned"`
	MarkedAsAds flag             `json:"marked_as_ads"`
	Text        string           `json:"text"`
	Attachments []wallAttachment `json:"attachments"`
}

type wallAttachment struct {
	Type  string                     `json:"type"`
	Link  *wallLink                  `json:"link"`
	Photo map[string]json.RawMessage `json:"photo"`
	Video *wallVideo                 `json:"video"`
}

type wallLink struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type wallVideo struct {
	OwnerID  int64  `json:"owner_id"`
	ID       int64  `json:"id"`
	Platform string `json:"platform"`
}

// flag accepts the 0/1 integers VK uses as well as JSON booleans.
type flag bool

func (f *flag) UnmarshalJSON(data []byte) error {
	s := string(bytes.TrimSpace(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}

	switch s {
	case "true", "1":
		*f = true
	case "false", "0", "null", "":
		*f = false
	default:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid flag %s", s)
		}
		*f = n != 0
	}
	return nil
}

func decodeWall(body []byte) ([]domain.Post, error) {
	var env wallEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &domain.MalformedFeedError{Reason: reasonInvalid, Detail: err.Error(), Body: body}
	}

	if env.Response == nil || env.Response.Items == nil {
		detail := ""
		if env.Error != nil {
			detail = fmt.Sprintf("api error %d: %s", env.Error.Code, env.Error.Message)
		}
		return nil, &domain.MalformedFeedError{Reason: reasonEmpty, Detail: detail, Body: body}
	}

	items := *env.Response.Items
	posts := make([]domain.Post, 0, len(items))
	for _, item := range items {
		posts = append(posts, item.toDomain())
	}
	return posts, nil
}

func (w wallItem) toDomain() domain.Post {
	post := domain.Post{
		ID:        w.ID,
		CreatedAt: w.Date,
		AuthorID:  w.FromID,
		IsPinned:  bool(w.IsPinned),
		IsAd:      bool(w.MarkedAsAds),
		Text:      w.Text,
	}

	for _, att := range w.Attachments {
		switch att.Type {
		case "link":
			if att.Link != nil {
				post.Attachments = append(post.Attachments, domain.Link{Title: att.Link.Title, URL: att.Link.URL})
			}
		case "photo":
			if att.Photo != nil {
				post.Attachments = append(post.Attachments, domain.Photo{Variants: photoVariants(att.Photo)})
			}
		case "video":
			if att.Video != nil {
				post.Attachments = append(post.Attachments, domain.Video{
					OwnerID:           att.Video.OwnerID,
					VideoID:           att.Video.ID,
					HasExternalPlayer: att.Video.Platform != "",
				})
			}
		}
	}

	return post
}

// photoVariants collects the photo_<size> fields of a photo object.
func photoVariants(raw map[string]json.RawMessage) map[int]string {
	variants := make(map[int]string)
	for key, value := range raw {
		sizeText, ok := strings.CutPrefix(key, "photo_")
		if !ok {
			continue
		}
		size, err := strconv.Atoi(sizeText)
		if err != nil {
			continue
		}
		var u string
		if err := json.Unmarshal(value, &u); err != nil || u == "" {
			continue
		}
		variants[size] = u
	}
	return variants
}

// redactToken keeps the access token out of logged transport errors.
func redactToken(err error, token string) error {
	if token == "" || !strings.Contains(err.Error(), token) {
		return err
	}
	return errors.New(strings.ReplaceAll(err.Error(), token, "***"))
}
