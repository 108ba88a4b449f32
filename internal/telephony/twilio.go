package telephony

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hvac-backoffice/internal/config"

	"golang.org/x/time/rate"
)

const twilioAPIBase = "https://api.twilio.com"

// Twilio queues anything above one message per second per long-code sender.
const smsPerSecond = 1

// TwilioProvider talks to the Twilio REST API with account credentials.
type TwilioProvider struct {
	accountSID string
	authToken  string
	from       string

	// baseURL is overridable for tests.
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
}

func NewTwilioProvider(cfg config.TwilioConfig, client *http.Client) (*TwilioProvider, error) {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.FromNumber == "" {
		return nil, errors.New("telephony: twilio account sid, auth token and from number are required")
	}
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &TwilioProvider{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		from:       cfg.FromNumber,
		baseURL:    twilioAPIBase,
		client:     client,
		limiter:    rate.NewLimiter(rate.Limit(smsPerSecond), 1),
	}, nil
}

func (p *TwilioProvider) Name() string { return "twilio" }

// HealthCheck fetches the account resource, the lightest authenticated call.
func (p *TwilioProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.accountURL(".json"), nil)
	if err != nil {
		return err
	}
	resp, err := p.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type twilioMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type twilioError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (p *TwilioProvider) SendSMS(ctx context.Context, to, body string) (string, error) {
	if strings.TrimSpace(to) == "" || strings.TrimSpace(body) == "" {
		return "", errors.New("telephony: sms requires to and body")
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("telephony: sms rate limit: %w", err)
	}
	form := url.Values{}
	form.Set("To", to)
	form.Set("From", p.from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.accountURL("/Messages.json"), strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var msg twilioMessage
	if err := json.NewDecoder(resp.Body).Decode(&msg); err != nil {
		return "", fmt.Errorf("telephony: decode twilio message: %w", err)
	}
	if msg.SID == "" {
		return "", errors.New("telephony: twilio returned no message sid")
	}
	return msg.SID, nil
}

func (p *TwilioProvider) accountURL(suffix string) string {
	return p.baseURL + "/2010-04-01/Accounts/" + url.PathEscape(p.accountSID) + suffix
}

// do sends req with basic auth and turns non-2xx responses into errors.
func (p *TwilioProvider) do(req *http.Request) (*http.Response, error) {
	req.SetBasicAuth(p.accountSID, p.authToken)
	req.Header.Set("Accept", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("telephony: twilio request: %w", err)
	}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return resp, nil
	}
	defer resp.Body.Close()
	var te twilioError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&te)
	if te.Message == "" {
		te.Message = http.StatusText(resp.StatusCode)
	}
	return nil, fmt.Errorf("telephony: twilio %d (code %d): %s", resp.StatusCode, te.Code, te.Message)
}
