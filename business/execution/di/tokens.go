// Package di contains dependency injection tokens for the execution context.
package di

import (
	"github.com/fd1az/perp-arbitrage/business/execution/app"
	"github.com/fd1az/perp-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Executor = di.NewToken[*app.Executor]("execution.Executor")
)

// Private dependency tokens - internal to execution module
var (
	VenueA = di.NewToken[app.Venue]("execution:venueA")
	VenueB = di.NewToken[app.Venue]("execution:venueB")
)

// GetExecutor returns the two-leg executor.
func GetExecutor(c di.ServiceRegistry) *app.Executor {
	return di.GetToken(c, Executor)
}

func GetVenueA(c di.ServiceRegistry) app.Venue {
	return di.GetToken(c, VenueA)
}

func GetVenueB(c di.ServiceRegistry) app.Venue {
	return di.GetToken(c, VenueB)
}
