package mpesa

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/KeithOmondi/kian-optics/internal/config"
)

// Client talks to the M-Pesa Daraja gateway: a Basic-auth token grant
// followed by a Bearer-authorised STK push request.
type Client struct {
	BaseURL             string
	ConsumerKey         string
	ConsumerSecret      string
	Shortcode           string
	LipaShortcode       string
	LipaShortcodeSecret string
	Paybill             string
	Passkey             string
	CallbackURL         string

	HTTPClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:             cfg.MPESA_BASE_URL,
		ConsumerKey:         cfg.MPESA_CONSUMER_KEY,
		ConsumerSecret:      cfg.MPESA_CONSUMER_SECRET,
		Shortcode:           cfg.MPESA_SHORTCODE,
		LipaShortcode:       cfg.MPESA_LIPA_SHORTCODE,
		LipaShortcodeSecret: cfg.MPESA_LIPA_SHORTCODE_SECRET,
		Paybill:             cfg.MPESA_PAYBILL,
		Passkey:             cfg.MPESA_PASSKEY,
		CallbackURL:         cfg.MPESA_CALLBACK_URL,
		HTTPClient:          &http.Client{Timeout: 30 * time.Second},
	}
}

// AccessToken exchanges the service credentials for a short-lived bearer token.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	url := c.BaseURL + "/oauth/v1/generate?grant_type=client_credentials"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	auth := base64.StdEncoding.EncodeToString([]byte(c.ConsumerKey + ":" + c.ConsumerSecret))
	req.Header.Set("Authorization", "Basic "+auth)

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("mpesa: token request failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(res.Body)
		return "", fmt.Errorf("mpesa: token request returned %d: %s", res.StatusCode, body)
	}

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("mpesa: token decode failed: %w", err)
	}
	if out.AccessToken == "" {
		return "", fmt.Errorf("mpesa: empty access token")
	}
	return out.AccessToken, nil
}

// InitiatePayment obtains a token and issues the push-payment request. The
// gateway's response payload is returned as-is on success.
func (c *Client) InitiatePayment(ctx context.Context, amount float64, phoneNumber, accountNumber string) (map[string]interface{}, error) {
	token, err := c.AccessToken(ctx)
	if err != nil {
		return nil, err
	}

	payload := map[string]interface{}{
		"BusinessShortcode":                c.Shortcode,
		"LipaNaMpesaOnlineShortcode":       c.LipaShortcode,
		"LipaNaMpesaOnlineShortcodeSecret": c.LipaShortcodeSecret,
		"PhoneNumber":                      phoneNumber,
		"Amount":                           amount,
		"AccountReference":                 accountNumber,
		"PartyA":                           phoneNumber,
		"PartyB":                           c.Paybill,
		"Remarks":                          "Payment for order",
		"CallBackURL":                      c.CallbackURL,
		"Shortcode":                        c.Shortcode,
		"Passkey":                          c.Passkey,
		"TransactionType":                  "PayBill",
		"TransactionID":                    time.Now().UnixMilli(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	url := c.BaseURL + "/mpesa/stkpush/v1/processrequest"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mpesa: stk push failed: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(res.Body)
		return nil, fmt.Errorf("mpesa: stk push returned %d: %s", res.StatusCode, body)
	}

	var out map[string]interface{}
	if err := json.NewDecoder(res.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("mpesa: stk push decode failed: %w", err)
	}
	return out, nil
}
