package apperror

// messages are the default texts; WithMessage overrides them.
var messages = map[Code]string{
	CodeRequiredField:      "required field is missing",
	CodeInvalidInput:       "invalid input",
	CodeInvalidFormat:      "invalid data format",
	CodeConfigurationError: "invalid configuration",
	CodeServiceTimeout:     "request timed out",
	CodeUnknownError:       "unknown error",

	CodeWebSocketConnectionError: "websocket connection failed",
	CodeWebSocketClosed:          "websocket client closed",
	CodeWebSocketSendError:       "websocket send failed",
	CodeFeedSubscribeFailed:      "order book subscription failed",
	CodeInvalidBookMessage:       "malformed order book message",

	CodeBinanceAPIError:     "binance request failed",
	CodeBitgetAPIError:      "bitget request failed",
	CodeVenueRateLimited:    "venue rate limit hit",
	CodeMissingAPIKey:       "venue API credentials are missing",
	CodeCircuitOpen:         "venue circuit breaker is open",
	CodeOrderRejected:       "order rejected by venue",
	CodeLegFailed:           "order leg failed",
	CodePartialFill:         "only one leg of the pair filled",
	CodeBalanceFetchFailed:  "balance fetch failed",
	CodeLeverageSetupFailed: "leverage setup failed",

	CodePositionAlreadyOpen: "a position is already open",
	CodeNoOpenPosition:      "no open position",
	CodeInvalidTradeSize:    "invalid trade size",
	CodeInsufficientMargin:  "balance does not cover maintenance margin",
	CodeDecisionPanic:       "panic recovered in decision loop",
	CodeJournalWriteFailed:  "trade journal write failed",
}
