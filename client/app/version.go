// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package app

// Version is the application version. It may be set at build time with
// -ldflags "-X decred.org/wadwallet/client/app.Version=x.y.z".
var Version = "0.1.0-pre"
