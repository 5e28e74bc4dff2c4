// Package bitget streams the USDT-FUTURES books5 channel of one symbol.
package bitget

import (
	"encoding/json"
)

const (
	InstTypeUSDTFutures = "USDT-FUTURES"
	ChannelBooks5       = "books5"

	ActionSnapshot = "snapshot"
	ActionUpdate   = "update"

	EventSubscribe = "subscribe"
	EventError     = "error"
)

// SubscriptionArg names one channel subscription.
type SubscriptionArg struct {
	InstType string `json:"instType"`
	Channel  string `json:"channel"`
	InstID   string `json:"instId"`
}

// WSRequest is an op request such as subscribe.
type WSRequest struct {
	Op   string            `json:"op"`
	Args []SubscriptionArg `json:"args"`
}

// NewSubscribeRequest returns the books5 subscription for symbol.
func NewSubscribeRequest(symbol string) WSRequest {
	return WSRequest{
		Op: "subscribe",
		Args: []SubscriptionArg{{
			InstType: InstTypeUSDTFutures,
			Channel:  ChannelBooks5,
			InstID:   symbol,
		}},
	}
}

// BookData is one book entry of a push. Levels are [price, qty], best first.
type BookData struct {
	Asks     [][]string `json:"asks"`
	Bids     [][]string `json:"bids"`
	Checksum int64      `json:"checksum"`
	Ts       string     `json:"ts"`
}

// PushMessage covers both channel pushes and event acknowledgements.
type PushMessage struct {
	Event  string          `json:"event,omitempty"`
	Code   json.Number     `json:"code,omitempty"`
	Msg    string          `json:"msg,omitempty"`
	Action string          `json:"action,omitempty"`
	Arg    SubscriptionArg `json:"arg"`
	Data   []BookData      `json:"data,omitempty"`
}

func parsePushMessage(data []byte) (*PushMessage, error) {
	var msg PushMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
