package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"zcash-dca-bot-go/internal/config"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	baseURL = "https://api.kraken.com"

	tickerPath      = "/0/public/Ticker"
	addOrderPath    = "/0/private/AddOrder"
	queryOrdersPath = "/0/private/QueryOrders"

	orderTypeMarket = "market"
	orderSideBuy    = "buy"
)

// ClientInterface defines the operations the bot needs from Kraken.
type ClientInterface interface {
	LastPrice(pair string) (string, error)
	AddMarketBuy(pair, volume, clientOrderID string) (*OrderResult, error)
}

// OrderResult carries the authoritative fill data for a placed order.
// Volume and cost are reported by the exchange as decimal strings.
type OrderResult struct {
	TxID           string
	VolumeExecuted string
	Cost           string
}

// Client is a client for the Kraken REST API.
// It implements the ClientInterface.
type Client struct {
	client    *resty.Client
	apiKey    string
	secretKey string
	logger    *zap.Logger
	limiter   *rate.Limiter
	nonce     func() int64
}

// ensure Client implements the interface
var _ ClientInterface = (*Client)(nil)

// NewClient creates a new Kraken REST API client.
func NewClient(cfg *config.Kraken, logger *zap.Logger) *Client {
	client := resty.New().SetBaseURL(baseURL)

	// Kraken's private endpoints are tightly rate limited, so every request
	// waits on the limiter first.
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateLimitBurst)

	return &Client{
		client:    client,
		apiKey:    cfg.ApiKey,
		secretKey: cfg.SecretKey,
		logger:    logger,
		limiter:   limiter,
		nonce:     func() int64 { return time.Now().UnixMilli() },
	}
}

// sign creates the API-Sign header value for a private request:
// base64(HMAC-SHA512(path + SHA256(nonce + postData), base64-decoded secret)).
func (c *Client) sign(path, nonce, postData string) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(c.secretKey)
	if err != nil {
		return "", fmt.Errorf("secret key is not valid base64: %w", err)
	}

	digest := sha256.Sum256([]byte(nonce + postData))
	mac := hmac.New(sha512.New, secret)
	mac.Write([]byte(path))
	mac.Write(digest[:])
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

// apiError converts Kraken's error array into a Go error, or nil when empty.
func apiError(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("kraken api error: %s", strings.Join(errs, ", "))
}

// tickerInfo is the slice of ticker fields we care about; c[0] is the price
// of the last trade.
type tickerInfo struct {
	Close []string `json:"c"`
}

// LastPrice fetches the last traded price for the given pair, as reported by
// the exchange. The raw decimal string is returned untouched; rounding is the
// caller's concern.
func (c *Client) LastPrice(pair string) (string, error) {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return "", fmt.Errorf("rate limiter wait failed: %w", err)
	}

	var envelope struct {
		Error  []string              `json:"error"`
		Result map[string]tickerInfo `json:"result"`
	}

	c.logger.Debug("Fetching ticker", zap.String("pair", pair))
	resp, err := c.client.R().
		SetQueryParam("pair", pair).
		SetResult(&envelope).
		Get(tickerPath)
	if err != nil {
		return "", fmt.Errorf("ticker request failed: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("ticker request failed with status %s: %s", resp.Status(), resp.String())
	}
	if err := apiError(envelope.Error); err != nil {
		return "", err
	}

	// Kraken normalizes pair names (ZECEUR becomes XZECZEUR), so take the
	// single entry of the result map rather than indexing by the request pair.
	for name, info := range envelope.Result {
		if len(info.Close) == 0 {
			return "", fmt.Errorf("ticker for %s has no last trade price", name)
		}
		return info.Close[0], nil
	}
	return "", fmt.Errorf("no ticker data returned for pair %s", pair)
}

// AddMarketBuy places an immediate market buy order and returns the fill data
// the exchange reports for it. The requested volume is a decimal string in
// asset units; clientOrderID is attached as Kraken's cl_ord_id.
func (c *Client) AddMarketBuy(pair, volume, clientOrderID string) (*OrderResult, error) {
	txid, err := c.addOrder(pair, volume, clientOrderID)
	if err != nil {
		return nil, err
	}

	filled, cost, err := c.queryOrder(txid)
	if err != nil {
		return nil, err
	}

	c.logger.Info("Order executed",
		zap.String("txid", txid),
		zap.String("vol_exec", filled),
		zap.String("cost", cost),
	)

	return &OrderResult{TxID: txid, VolumeExecuted: filled, Cost: cost}, nil
}

func (c *Client) addOrder(pair, volume, clientOrderID string) (string, error) {
	params := url.Values{}
	params.Set("pair", pair)
	params.Set("type", orderSideBuy)
	params.Set("ordertype", orderTypeMarket)
	params.Set("volume", volume)
	params.Set("cl_ord_id", clientOrderID)

	var envelope struct {
		Error  []string `json:"error"`
		Result struct {
			Descr struct {
				Order string `json:"order"`
			} `json:"descr"`
			TxID []string `json:"txid"`
		} `json:"result"`
	}

	if err := c.privatePost(addOrderPath, params, &envelope); err != nil {
		c.logger.Error("Failed to place order", zap.Error(err), zap.String("pair", pair))
		return "", fmt.Errorf("failed to place order: %w", err)
	}
	if err := apiError(envelope.Error); err != nil {
		c.logger.Error("Order rejected by exchange", zap.Error(err), zap.String("pair", pair))
		return "", err
	}
	if len(envelope.Result.TxID) == 0 {
		return "", fmt.Errorf("exchange accepted order but returned no transaction id")
	}

	c.logger.Info("Order placed",
		zap.String("descr", envelope.Result.Descr.Order),
		zap.Strings("txid", envelope.Result.TxID),
	)
	return envelope.Result.TxID[0], nil
}

func (c *Client) queryOrder(txid string) (volExec, cost string, err error) {
	params := url.Values{}
	params.Set("txid", txid)

	var envelope struct {
		Error  []string `json:"error"`
		Result map[string]struct {
			Status  string `json:"status"`
			VolExec string `json:"vol_exec"`
			Cost    string `json:"cost"`
			Price   string `json:"price"`
		} `json:"result"`
	}

	if err := c.privatePost(queryOrdersPath, params, &envelope); err != nil {
		return "", "", fmt.Errorf("failed to query order %s: %w", txid, err)
	}
	if err := apiError(envelope.Error); err != nil {
		return "", "", err
	}

	order, ok := envelope.Result[txid]
	if !ok {
		return "", "", fmt.Errorf("order %s not found in query response", txid)
	}
	return order.VolExec, order.Cost, nil
}

// privatePost signs and executes an authenticated POST against a private
// endpoint, decoding the JSON response into result.
func (c *Client) privatePost(path string, params url.Values, result any) error {
	if err := c.limiter.Wait(context.Background()); err != nil {
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	nonce := strconv.FormatInt(c.nonce(), 10)
	params.Set("nonce", nonce)
	postData := params.Encode()

	signature, err := c.sign(path, nonce, postData)
	if err != nil {
		return err
	}

	resp, err := c.client.R().
		SetHeader("API-Key", c.apiKey).
		SetHeader("API-Sign", signature).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBody(postData).
		SetResult(result).
		Post(path)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("request failed with status %s: %s", resp.Status(), resp.String())
	}
	return nil
}
