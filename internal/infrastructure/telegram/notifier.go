package telegram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"WallRelay/internal/ports"
)

const DefaultBaseURL = "https://api.telegram.org"

// Options configures the Bot API client.
type Options struct {
	BaseURL  string
	BotToken string
	ChatID   string
	// Proxy is an optional http, https or socks5 URL for outbound requests.
	// A bare host:port is treated as an http proxy.
	Proxy   string
	Timeout time.Duration
}

// Notifier posts messages and photos to a Telegram channel via bot API.
type Notifier struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Publisher = (*Notifier)(nil)

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code"`
	Description string `json:"description"`
}

// NewNotifier registers bot token and chat identifier.
func NewNotifier(opts Options) (*Notifier, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if opts.Proxy != "" {
		raw := opts.Proxy
		if !strings.Contains(raw, "://") {
			raw = "http://" + raw
		}
		proxyURL, err := url.Parse(raw)
		if err != nil || proxyURL.Host == "" {
			return nil, fmt.Errorf("invalid telegram proxy %q", opts.Proxy)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
	}

	return &Notifier{
		baseURL:  strings.TrimSuffix(opts.BaseURL, "/"),
		botToken: opts.BotToken,
		chatID:   opts.ChatID,
		client:   &http.Client{Timeout: opts.Timeout, Transport: transport},
	}, nil
}

// SendText posts an HTML formatted message.
func (n *Notifier) SendText(ctx context.Context, html string) error {
	form := url.Values{}
	form.Set("text", html)
	form.Set("parse_mode", "HTML")
	return n.call(ctx, "sendMessage", form)
}

// SendPhoto posts a single photo by URL.
func (n *Notifier) SendPhoto(ctx context.Context, photoURL string) error {
	form := url.Values{}
	form.Set("photo", photoURL)
	return n.call(ctx, "sendPhoto", form)
}

func (n *Notifier) call(ctx context.Context, method string, form url.Values) error {
	if n.botToken == "" || n.chatID == "" || n.client == nil {
		return fmt.Errorf("telegram notifier misconfigured")
	}

	endpoint := fmt.Sprintf("%s/bot%s/%s", n.baseURL, n.botToken, method)
	form.Set("chat_id", n.chatID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: do request: %s", method, strings.ReplaceAll(err.Error(), n.botToken, "***"))
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var result apiResponse
	decodeErr := json.Unmarshal(payload, &result)

	if resp.StatusCode != http.StatusOK || decodeErr != nil || !result.OK {
		if result.Description != "" {
			return fmt.Errorf("telegram error %s: %s", resp.Status, result.Description)
		}
		return fmt.Errorf("telegram error: %s", resp.Status)
	}

	return nil
}
