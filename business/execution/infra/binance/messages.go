package binance

import "github.com/shopspring/decimal"

// REST paths.
const (
	PathOrder    = "/fapi/v1/order"
	PathLeverage = "/fapi/v1/leverage"
	PathAccount  = "/fapi/v2/account"
)

// OrderResponse is the subset of the new-order response the venue reads.
type OrderResponse struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Symbol        string `json:"symbol"`
	Status        string `json:"status"`
	Side          string `json:"side"`
}

// AccountResponse is the subset of the account endpoint the venue reads.
type AccountResponse struct {
	TotalWalletBalance decimal.Decimal `json:"totalWalletBalance"`
	AvailableBalance   decimal.Decimal `json:"availableBalance"`
}

// APIError is Binance's error payload.
type APIError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}
