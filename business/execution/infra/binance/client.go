package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker/v2"

	"github.com/fd1az/perp-arbitrage/business/execution/domain"
	"github.com/fd1az/perp-arbitrage/internal/apperror"
	"github.com/fd1az/perp-arbitrage/internal/circuitbreaker"
	"github.com/fd1az/perp-arbitrage/internal/httpclient"
	"github.com/fd1az/perp-arbitrage/internal/logger"
	"github.com/fd1az/perp-arbitrage/internal/ratelimit"
)

const (
	// VenueName identifies the venue in logs and metrics.
	VenueName = "binance"

	// BaseURL is the USDⓈ-M futures REST endpoint.
	BaseURL = "https://fapi.binance.com"

	defaultRecvWindow        = 5 * time.Second
	defaultRequestTimeout    = 10 * time.Second
	defaultRequestsPerMinute = 1200

	// rateLimitBackoff holds every request after a 429 or 418 answer.
	rateLimitBackoff = 10 * time.Second
)

// Request weights charged by the venue per endpoint.
const (
	weightOrder    = 1
	weightLeverage = 1
	weightAccount  = 5
)

// Config holds configuration for the Binance venue.
type Config struct {
	BaseURL           string
	APIKey            string
	SecretKey         string
	Symbol            string
	RequestsPerMinute int
	RecvWindow        time.Duration
	RequestTimeout    time.Duration
}

// Venue places market orders on Binance futures through signed REST calls.
// Calls go through a rate limiter and a circuit breaker; order rejections
// do not count as breaker failures.
type Venue struct {
	config  Config
	http    httpclient.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[*httpclient.Response]
	logger  logger.LoggerInterface
	now     func() time.Time
}

// NewVenue creates a Binance venue.
func NewVenue(cfg Config, log logger.LoggerInterface) (*Venue, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		return nil, apperror.New(apperror.CodeMissingAPIKey, apperror.WithContext(VenueName))
	}
	if cfg.Symbol == "" {
		return nil, apperror.New(apperror.CodeRequiredField, apperror.WithContext("binance symbol"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}
	if cfg.RecvWindow <= 0 {
		cfg.RecvWindow = defaultRecvWindow
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithVenue(VenueName),
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
		httpclient.WithHeaders(map[string]string{"X-MBX-APIKEY": cfg.APIKey}),
	)
	if err != nil {
		return nil, fmt.Errorf("create http client: %w", err)
	}

	breakerCfg := circuitbreaker.DefaultConfig(VenueName)
	breakerCfg.IsSuccessful = func(err error) bool {
		return err == nil || apperror.GetCode(err) == apperror.CodeOrderRejected
	}
	breakerCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		log.Warn(context.Background(), "circuit breaker state changed",
			"breaker", name, "from", from.String(), "to", to.String())
	}

	return &Venue{
		config:  cfg,
		http:    client,
		limiter: ratelimit.New(cfg.RequestsPerMinute),
		breaker: circuitbreaker.New[*httpclient.Response](breakerCfg),
		logger:  log,
		now:     time.Now,
	}, nil
}

func (v *Venue) Name() string {
	return VenueName
}

// PlaceOrder sends a MARKET order. Closing legs are reduce-only so a repeated
// close can never open the opposite side.
func (v *Venue) PlaceOrder(ctx context.Context, leg domain.Leg) (domain.Fill, error) {
	params := map[string]string{
		"symbol":           v.config.Symbol,
		"side":             strings.ToUpper(string(leg.Side())),
		"type":             "MARKET",
		"quantity":         leg.Size.String(),
		"newClientOrderId": uuid.NewString(),
	}
	if leg.Action == domain.ActionClose {
		params["reduceOnly"] = "true"
	}

	resp, err := v.signed(ctx, http.MethodPost, PathOrder, weightOrder, params)
	if err != nil {
		return domain.Fill{}, err
	}

	var order OrderResponse
	if err := json.Unmarshal(resp.Body(), &order); err != nil {
		return domain.Fill{}, apperror.New(apperror.CodeBinanceAPIError,
			apperror.WithContext("decode order response"), apperror.WithCause(err))
	}

	return domain.Fill{
		Venue:   VenueName,
		OrderID: strconv.FormatInt(order.OrderID, 10),
		Leg:     leg,
		At:      v.now(),
	}, nil
}

// SetLeverage sets the initial leverage for the symbol.
func (v *Venue) SetLeverage(ctx context.Context, leverage int) error {
	_, err := v.signed(ctx, http.MethodPost, PathLeverage, weightLeverage, map[string]string{
		"symbol":   v.config.Symbol,
		"leverage": strconv.Itoa(leverage),
	})
	return err
}

// AvailableBalance returns the account's available margin balance.
func (v *Venue) AvailableBalance(ctx context.Context) (decimal.Decimal, error) {
	resp, err := v.signed(ctx, http.MethodGet, PathAccount, weightAccount, map[string]string{})
	if err != nil {
		return decimal.Zero, err
	}

	var account AccountResponse
	if err := json.Unmarshal(resp.Body(), &account); err != nil {
		return decimal.Zero, apperror.New(apperror.CodeBinanceAPIError,
			apperror.WithContext("decode account response"), apperror.WithCause(err))
	}
	return account.AvailableBalance, nil
}

// SignedQuery adds recvWindow and timestamp to params and returns the
// encoded query with its signature appended.
func (v *Venue) SignedQuery(params map[string]string) string {
	params["recvWindow"] = strconv.FormatInt(v.config.RecvWindow.Milliseconds(), 10)
	params["timestamp"] = strconv.FormatInt(v.now().UnixMilli(), 10)

	query := httpclient.EncodeQuery(params)
	return query + "&signature=" + Sign(v.config.SecretKey, query)
}

func (v *Venue) signed(ctx context.Context, method, path string, weight int, params map[string]string) (*httpclient.Response, error) {
	if err := v.limiter.WaitN(ctx, weight); err != nil {
		return nil, apperror.New(apperror.CodeVenueRateLimited, apperror.WithContext(VenueName), apperror.WithCause(err))
	}

	resp, err := v.breaker.Execute(func() (*httpclient.Response, error) {
		resp, err := v.http.NewRequest(
			httpclient.WithClassifier(checkResponse),
			httpclient.WithEndpoint(path),
			httpclient.WithRedactedHeaders("X-MBX-APIKEY"),
		).
			SetRawQuery(v.SignedQuery(params)).
			Do(ctx, method, path)
		if err != nil && !apperror.IsAppError(err) {
			return resp, apperror.New(apperror.CodeBinanceAPIError, apperror.WithContext(path), apperror.WithCause(err))
		}
		return resp, err
	})
	if apperror.GetCode(err) == apperror.CodeVenueRateLimited {
		v.limiter.Pause(rateLimitBackoff)
		v.logger.Warn(ctx, "venue rate limit hit, pausing requests", "venue", VenueName, "pause", rateLimitBackoff.String())
	}
	return resp, err
}

// checkResponse maps Binance error payloads to application errors. 4xx
// answers other than rate limits are the venue refusing the request.
func checkResponse(statusCode int, body []byte) error {
	if statusCode < 400 {
		return nil
	}

	var apiErr APIError
	_ = json.Unmarshal(body, &apiErr)
	detail := fmt.Sprintf("status %d, code %d: %s", statusCode, apiErr.Code, apiErr.Msg)

	switch {
	case statusCode == http.StatusTooManyRequests || statusCode == http.StatusTeapot:
		return apperror.New(apperror.CodeVenueRateLimited, apperror.WithContext(VenueName+": "+detail))
	case statusCode >= 500:
		return apperror.New(apperror.CodeBinanceAPIError, apperror.WithContext(detail))
	default:
		return apperror.New(apperror.CodeOrderRejected, apperror.WithContext(VenueName+": "+detail))
	}
}
