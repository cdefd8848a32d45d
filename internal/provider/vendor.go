package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pquerna/otp/totp"

	"cryptosignals/internal/model"
)

// VendorConfig holds credentials for the paid data-vendor API.
// The vendor requires a session login with API key, client code, and a
// time-based one-time password generated from a shared secret.
type VendorConfig struct {
	BaseURL    string
	APIKey     string
	ClientCode string
	TOTPSecret string
}

// Enabled reports whether enough credentials are present to use the vendor.
func (c VendorConfig) Enabled() bool {
	return c.BaseURL != "" && c.APIKey != "" && c.TOTPSecret != ""
}

// Vendor is the authenticated fallback source of last resort. Sessions are
// short-lived JWTs; the client re-logs-in transparently on expiry or 401.
type Vendor struct {
	cfg    VendorConfig
	client *http.Client

	mu       sync.Mutex
	token    string
	tokenExp time.Time
}

// NewVendor creates a Vendor source from credentials.
func NewVendor(cfg VendorConfig) *Vendor {
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Vendor{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (v *Vendor) Name() string { return "vendor" }

// SpotPrice fetches the quote endpoint.
func (v *Vendor) SpotPrice(ctx context.Context, symbol string) (model.SpotQuote, error) {
	var quote model.SpotQuote
	params := url.Values{"symbol": {strings.ToUpper(symbol)}}
	if err := v.getJSON(ctx, "/v1/market/quote", params, &quote); err != nil {
		return model.SpotQuote{}, err
	}
	quote.Symbol = strings.ToUpper(symbol)
	return quote, nil
}

// Candles fetches the candle endpoint, oldest first.
func (v *Vendor) Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	var resp struct {
		Candles []model.Candle `json:"candles"`
	}
	params := url.Values{
		"symbol":   {strings.ToUpper(symbol)},
		"interval": {string(tf)},
		"limit":    {strconv.Itoa(limit)},
	}
	if err := v.getJSON(ctx, "/v1/market/candles", params, &resp); err != nil {
		return nil, err
	}
	return resp.Candles, nil
}

// OrderBook fetches the aggregate depth endpoint.
func (v *Vendor) OrderBook(ctx context.Context, symbol string) (model.OrderBookSummary, error) {
	var resp struct {
		BidVolume float64 `json:"bid_volume"`
		AskVolume float64 `json:"ask_volume"`
	}
	params := url.Values{"symbol": {strings.ToUpper(symbol)}}
	if err := v.getJSON(ctx, "/v1/market/depth", params, &resp); err != nil {
		return model.OrderBookSummary{}, err
	}
	return model.NewOrderBookSummary(resp.BidVolume, resp.AskVolume), nil
}

// ensureSession logs in when no valid token is held. The TOTP code is
// generated locally from the shared secret, mirroring the vendor's 2FA flow.
func (v *Vendor) ensureSession(ctx context.Context) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.token != "" && time.Now().Before(v.tokenExp.Add(-30*time.Second)) {
		return nil
	}

	code, err := totp.GenerateCode(v.cfg.TOTPSecret, time.Now())
	if err != nil {
		return fmt.Errorf("vendor: generate totp: %w", err)
	}

	body, _ := json.Marshal(map[string]string{
		"api_key":     v.cfg.APIKey,
		"client_code": v.cfg.ClientCode,
		"totp":        code,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.BaseURL+"/v1/auth/session", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("vendor: create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := v.client.Do(req)
	if err != nil {
		return fmt.Errorf("vendor: login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("vendor: login: unexpected status %d", resp.StatusCode)
	}

	var session struct {
		Token     string `json:"token"`
		ExpiresIn int64  `json:"expires_in"` // seconds
	}
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return fmt.Errorf("vendor: login: decode: %w", err)
	}
	if session.Token == "" {
		return fmt.Errorf("vendor: login: empty token")
	}

	v.token = session.Token
	v.tokenExp = time.Now().Add(time.Duration(session.ExpiresIn) * time.Second)
	return nil
}

func (v *Vendor) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := v.ensureSession(ctx); err != nil {
		return err
	}

	status, err := v.doGet(ctx, path, params, out)
	if err != nil {
		return err
	}
	if status == http.StatusUnauthorized {
		// Session expired server-side; drop it and retry once.
		v.mu.Lock()
		v.token = ""
		v.mu.Unlock()
		if err := v.ensureSession(ctx); err != nil {
			return err
		}
		status, err = v.doGet(ctx, path, params, out)
		if err != nil {
			return err
		}
	}
	if status != http.StatusOK {
		return fmt.Errorf("vendor: %s: unexpected status %d", path, status)
	}
	return nil
}

// doGet performs one authorized GET. A non-200 status returns with the code
// and no decode; transport errors return an error.
func (v *Vendor) doGet(ctx context.Context, path string, params url.Values, out any) (int, error) {
	u := v.cfg.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, fmt.Errorf("vendor: create request: %w", err)
	}
	v.mu.Lock()
	req.Header.Set("Authorization", "Bearer "+v.token)
	v.mu.Unlock()
	req.Header.Set("X-API-Key", v.cfg.APIKey)

	resp, err := v.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("vendor: %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("vendor: %s: decode: %w", path, err)
	}
	return resp.StatusCode, nil
}
