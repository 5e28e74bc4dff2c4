// Package di contains dependency injection tokens for the market context.
package di

import (
	"github.com/fd1az/perp-arbitrage/business/market/app"
	"github.com/fd1az/perp-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BinanceFeed = di.NewToken[app.Feed]("market.BinanceFeed")
	BitgetFeed  = di.NewToken[app.Feed]("market.BitgetFeed")
)

// GetBinanceFeed returns venue A's feed.
func GetBinanceFeed(c di.ServiceRegistry) app.Feed {
	return di.GetToken(c, BinanceFeed)
}

// GetBitgetFeed returns venue B's feed.
func GetBitgetFeed(c di.ServiceRegistry) app.Feed {
	return di.GetToken(c, BitgetFeed)
}
