// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/perp-arbitrage/business/arbitrage/app"
	"github.com/fd1az/perp-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Engine = di.NewToken[*app.Engine]("arbitrage.Engine")
)

// Private dependency tokens - internal to arbitrage module
var (
	Evaluator       = di.NewToken[*app.SpreadEvaluator]("arbitrage:evaluator")
	PositionManager = di.NewToken[*app.PositionManager]("arbitrage:positionManager")
	Reporter        = di.NewToken[app.Reporter]("arbitrage:reporter")
)

// Helper functions for type-safe access
func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetEvaluator(c di.ServiceRegistry) *app.SpreadEvaluator {
	return di.GetToken(c, Evaluator)
}

func GetPositionManager(c di.ServiceRegistry) *app.PositionManager {
	return di.GetToken(c, PositionManager)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}
