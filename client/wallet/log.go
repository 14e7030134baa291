// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package wallet

import "decred.org/wadwallet/cashu"

var log = cashu.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger cashu.Logger) {
	log = logger
}
