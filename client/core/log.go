// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/client/db/bolt"
	"decred.org/wadwallet/client/db/pool"
	"decred.org/wadwallet/client/mint"
	"decred.org/wadwallet/client/wallet"
)

// log is a logger that is initialized with no output filters. This means the
// package will not perform any logging by default until the caller requests it.
var log = cashu.Disabled

// DisableLog disables all library log output.  Logging output is disabled
// by default until UseLogger is called.
func DisableLog() {
	log = cashu.Disabled
}

// UseLoggerMaker sets the loggers of core and the packages it drives.
func UseLoggerMaker(maker *cashu.LoggerMaker) {
	log = maker.Logger("CORE")
	bolt.UseLogger(maker.Logger("DB"))
	pool.UseLogger(maker.Logger("POOL"))
	mint.UseLogger(maker.Logger("MINT"))
	wallet.UseLogger(maker.Logger("WLLT"))
}
