package apperror

// Code identifies a failure class. Callers branch on it, never on messages.
type Code string

const (
	CodeRequiredField      Code = "REQUIRED_FIELD"
	CodeInvalidInput       Code = "INVALID_INPUT"
	CodeInvalidFormat      Code = "INVALID_FORMAT"
	CodeConfigurationError Code = "CONFIGURATION_ERROR"
	CodeServiceTimeout     Code = "SERVICE_TIMEOUT"
	CodeUnknownError       Code = "UNKNOWN_ERROR"
)

// Market data.
const (
	CodeWebSocketConnectionError Code = "WEBSOCKET_CONNECTION_ERROR"
	CodeWebSocketClosed          Code = "WEBSOCKET_CLOSED"
	CodeWebSocketSendError       Code = "WEBSOCKET_SEND_ERROR"
	CodeFeedSubscribeFailed      Code = "FEED_SUBSCRIBE_FAILED"
	CodeInvalidBookMessage       Code = "INVALID_BOOK_MESSAGE"
)

// Venue REST and order execution.
const (
	CodeBinanceAPIError     Code = "BINANCE_API_ERROR"
	CodeBitgetAPIError      Code = "BITGET_API_ERROR"
	CodeVenueRateLimited    Code = "VENUE_RATE_LIMITED"
	CodeMissingAPIKey       Code = "MISSING_API_KEY"
	CodeCircuitOpen         Code = "CIRCUIT_OPEN"
	CodeOrderRejected       Code = "ORDER_REJECTED"
	CodeLegFailed           Code = "LEG_FAILED"
	CodePartialFill         Code = "PARTIAL_FILL"
	CodeBalanceFetchFailed  Code = "BALANCE_FETCH_FAILED"
	CodeLeverageSetupFailed Code = "LEVERAGE_SETUP_FAILED"
)

// Positions and the decision loop.
const (
	CodePositionAlreadyOpen Code = "POSITION_ALREADY_OPEN"
	CodeNoOpenPosition      Code = "NO_OPEN_POSITION"
	CodeInvalidTradeSize    Code = "INVALID_TRADE_SIZE"
	CodeInsufficientMargin  Code = "INSUFFICIENT_MARGIN"
	CodeDecisionPanic       Code = "DECISION_PANIC"
	CodeJournalWriteFailed  Code = "JOURNAL_WRITE_FAILED"
)
