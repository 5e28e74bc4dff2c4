package bitget

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
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
	VenueName = "bitget"

	// BaseURL is the Bitget REST endpoint.
	BaseURL = "https://api.bitget.com"

	defaultRequestTimeout    = 10 * time.Second
	defaultRequestsPerMinute = 600

	rateLimitBackoff = 5 * time.Second
)

// Config holds configuration for the Bitget venue.
type Config struct {
	BaseURL    string
	APIKey     string
	SecretKey  string
	Passphrase string
	// ProductSymbol is the mix product id, e.g. ETHUSDT_UMCBL.
	ProductSymbol     string
	RequestsPerMinute int
	RequestTimeout    time.Duration
}

// Venue places market orders on Bitget futures through signed REST calls.
type Venue struct {
	config  Config
	http    httpclient.Client
	limiter *ratelimit.Limiter
	breaker *circuitbreaker.CircuitBreaker[*httpclient.Response]
	logger  logger.LoggerInterface
	now     func() time.Time
}

// NewVenue creates a Bitget venue.
func NewVenue(cfg Config, log logger.LoggerInterface) (*Venue, error) {
	if cfg.APIKey == "" || cfg.SecretKey == "" || cfg.Passphrase == "" {
		return nil, apperror.New(apperror.CodeMissingAPIKey, apperror.WithContext(VenueName))
	}
	if cfg.ProductSymbol == "" {
		return nil, apperror.New(apperror.CodeRequiredField, apperror.WithContext("bitget product symbol"))
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = defaultRequestsPerMinute
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = defaultRequestTimeout
	}

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithVenue(VenueName),
		httpclient.WithRequestTimeout(cfg.RequestTimeout),
		httpclient.WithHeaders(map[string]string{
			"ACCESS-KEY":        cfg.APIKey,
			"ACCESS-PASSPHRASE": cfg.Passphrase,
			"Content-Type":      "application/json",
			"locale":            "en-US",
		}),
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

// OrderSide maps a leg to Bitget's hedge-mode side.
func OrderSide(leg domain.Leg) string {
	return string(leg.Action) + "_" + string(leg.PositionSide)
}

// PlaceOrder sends a market order.
func (v *Venue) PlaceOrder(ctx context.Context, leg domain.Leg) (domain.Fill, error) {
	body, err := json.Marshal(PlaceOrderRequest{
		Symbol:     v.config.ProductSymbol,
		MarginCoin: MarginCoin,
		Size:       leg.Size.String(),
		Side:       OrderSide(leg),
		OrderType:  "market",
		ClientOid:  uuid.NewString(),
	})
	if err != nil {
		return domain.Fill{}, fmt.Errorf("encode order: %w", err)
	}

	var data PlaceOrderData
	if err := v.call(ctx, http.MethodPost, PathPlaceOrder, "", body, &data); err != nil {
		return domain.Fill{}, err
	}

	return domain.Fill{
		Venue:   VenueName,
		OrderID: data.OrderID,
		Leg:     leg,
		At:      v.now(),
	}, nil
}

// SetLeverage sets the leverage of the product.
func (v *Venue) SetLeverage(ctx context.Context, leverage int) error {
	body, err := json.Marshal(SetLeverageRequest{
		Symbol:     v.config.ProductSymbol,
		MarginCoin: MarginCoin,
		Leverage:   strconv.Itoa(leverage),
	})
	if err != nil {
		return fmt.Errorf("encode leverage: %w", err)
	}
	return v.call(ctx, http.MethodPost, PathSetLeverage, "", body, nil)
}

// AvailableBalance returns the available USDT margin of the product account.
func (v *Venue) AvailableBalance(ctx context.Context) (decimal.Decimal, error) {
	query := httpclient.EncodeQuery(map[string]string{
		"symbol":     v.config.ProductSymbol,
		"marginCoin": MarginCoin,
	})

	var account AccountData
	if err := v.call(ctx, http.MethodGet, PathAccount, query, nil, &account); err != nil {
		return decimal.Zero, err
	}
	return account.Available, nil
}

// call signs and sends one request, then decodes the envelope's data into out.
func (v *Venue) call(ctx context.Context, method, path, query string, body []byte, out any) error {
	if err := v.limiter.Wait(ctx); err != nil {
		return apperror.New(apperror.CodeVenueRateLimited, apperror.WithContext(VenueName), apperror.WithCause(err))
	}

	resp, err := v.breaker.Execute(func() (*httpclient.Response, error) {
		requestPath := path
		if query != "" {
			requestPath += "?" + query
		}
		timestamp := strconv.FormatInt(v.now().UnixMilli(), 10)

		resp, err := v.http.NewRequest(
			httpclient.WithClassifier(checkResponse),
			httpclient.WithEndpoint(path),
			httpclient.WithRedactedHeaders("ACCESS-KEY", "ACCESS-SIGN", "ACCESS-PASSPHRASE"),
		).
			SetHeader("ACCESS-TIMESTAMP", timestamp).
			SetHeader("ACCESS-SIGN", Sign(v.config.SecretKey, timestamp, method, requestPath, string(body))).
			SetRawQuery(query).
			SetBody(body).
			Do(ctx, method, path)
		if err != nil && !apperror.IsAppError(err) {
			return resp, apperror.New(apperror.CodeBitgetAPIError, apperror.WithContext(path), apperror.WithCause(err))
		}
		return resp, err
	})
	if apperror.GetCode(err) == apperror.CodeVenueRateLimited {
		v.limiter.Pause(rateLimitBackoff)
		v.logger.Warn(ctx, "venue rate limit hit, pausing requests", "venue", VenueName, "pause", rateLimitBackoff.String())
	}
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	var envelope Envelope
	if err := json.Unmarshal(resp.Body(), &envelope); err != nil {
		return apperror.New(apperror.CodeBitgetAPIError, apperror.WithContext("decode response"), apperror.WithCause(err))
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return apperror.New(apperror.CodeBitgetAPIError, apperror.WithContext("decode data"), apperror.WithCause(err))
	}
	return nil
}

// checkResponse maps Bitget answers to application errors. Bitget can
// refuse an order with HTTP 200 and a non-success code.
func checkResponse(statusCode int, body []byte) error {
	var envelope Envelope
	decodeErr := json.Unmarshal(body, &envelope)

	if statusCode < 400 && decodeErr == nil && envelope.Code == CodeSuccess {
		return nil
	}

	detail := fmt.Sprintf("status %d, code %s: %s", statusCode, envelope.Code, envelope.Msg)
	switch {
	case statusCode == http.StatusTooManyRequests || envelope.Code == "429":
		return apperror.New(apperror.CodeVenueRateLimited, apperror.WithContext(VenueName+": "+detail))
	case statusCode >= 500:
		return apperror.New(apperror.CodeBitgetAPIError, apperror.WithContext(detail))
	case statusCode < 400 && decodeErr != nil:
		return apperror.New(apperror.CodeBitgetAPIError,
			apperror.WithContext("undecodable response"), apperror.WithCause(decodeErr))
	default:
		return apperror.New(apperror.CodeOrderRejected, apperror.WithContext(VenueName+": "+detail))
	}
}
