// Package di contains dependency injection tokens for the journal context.
package di

import (
	"github.com/fd1az/perp-arbitrage/business/journal/app"
	"github.com/fd1az/perp-arbitrage/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Journal = di.NewToken[*app.Journal]("journal.Journal")
)

// GetJournal returns the trade journal. It has no sinks until the module
// has started.
func GetJournal(c di.ServiceRegistry) *app.Journal {
	return di.GetToken(c, Journal)
}
