package bitget

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// REST paths.
const (
	PathPlaceOrder  = "/api/mix/v1/order/placeOrder"
	PathSetLeverage = "/api/mix/v1/account/setLeverage"
	PathAccount     = "/api/mix/v1/account/account"
)

// CodeSuccess is the code Bitget returns on every accepted call.
const CodeSuccess = "00000"

// MarginCoin is the settlement coin of USDT-margined contracts.
const MarginCoin = "USDT"

// Envelope wraps every REST response.
type Envelope struct {
	Code        string          `json:"code"`
	Msg         string          `json:"msg"`
	RequestTime int64           `json:"requestTime"`
	Data        json.RawMessage `json:"data"`
}

// PlaceOrderRequest is the body of a market order. Field order is the
// serialized order, which is part of the signature.
type PlaceOrderRequest struct {
	Symbol     string `json:"symbol"`
	MarginCoin string `json:"marginCoin"`
	Size       string `json:"size"`
	Side       string `json:"side"`
	OrderType  string `json:"orderType"`
	ClientOid  string `json:"clientOid,omitempty"`
}

// PlaceOrderData is the data of a successful order.
type PlaceOrderData struct {
	OrderID   string `json:"orderId"`
	ClientOid string `json:"clientOid"`
}

// SetLeverageRequest is the body of a leverage change.
type SetLeverageRequest struct {
	Symbol     string `json:"symbol"`
	MarginCoin string `json:"marginCoin"`
	Leverage   string `json:"leverage"`
}

// AccountData is the subset of the single-account response the venue reads.
type AccountData struct {
	MarginCoin string          `json:"marginCoin"`
	Available  decimal.Decimal `json:"available"`
	Equity     decimal.Decimal `json:"equity"`
}
