// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package rpcserver

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/msgjson"
	"decred.org/wadwallet/client/core"
)

// routes
const (
	balancesRoute    = "getbalances"
	receiveWadsRoute = "receivewads"
	createWadsRoute  = "createwads"
	historyRoute     = "history"
	seedRoute        = "seed"
	helpRoute        = "help"
	versionRoute     = "version"
)

// createResponse creates a msgjson response payload.
func createResponse(op string, res any, resErr *msgjson.Error) *msgjson.ResponsePayload {
	encodedRes, err := json.Marshal(res)
	if err != nil {
		err := fmt.Errorf("unable to marshal data for %s: %w", op, err)
		panic(err)
	}
	return &msgjson.ResponsePayload{Result: encodedRes, Error: resErr}
}

// coreErrorResponse responds with the classified core error.
func coreErrorResponse(op string, err error) *msgjson.ResponsePayload {
	log.Debugf("%s failed: %v", op, err)
	return createResponse(op, nil, core.RPCError(err))
}

// usage creates and returns usage for route combined with a passed error as a
// *msgjson.ResponsePayload.
func usage(route string, err error) *msgjson.ResponsePayload {
	usage, _ := commandUsage(route)
	resErr := msgjson.NewError(msgjson.RPCArgumentsError, "%v\n\n%s", err, usage)
	return createResponse(route, nil, resErr)
}

type routeHandler func(ctx context.Context, s *RPCServer, params *RawParams) *msgjson.ResponsePayload

// routes maps routes to a handler function.
var routes = map[string]routeHandler{
	balancesRoute:    handleBalances,
	receiveWadsRoute: handleReceiveWads,
	createWadsRoute:  handleCreateWads,
	historyRoute:     handleHistory,
	seedRoute:        handleSeed,
	helpRoute:        handleHelp,
	versionRoute:     handleVersion,
}

// handleHelp handles requests for help. Returns general help for all commands
// if no arguments are passed or verbose help if the passed argument is a known
// command.
func handleHelp(_ context.Context, _ *RPCServer, params *RawParams) *msgjson.ResponsePayload {
	helpWith, err := parseHelpArgs(params)
	if err != nil {
		return usage(helpRoute, err)
	}
	res := ""
	if helpWith == "" {
		// List all commands if no arguments.
		res = ListCommands()
	} else {
		var err error
		res, err = commandUsage(helpWith)
		if err != nil {
			resErr := msgjson.NewError(msgjson.RPCUnknownRoute, "%v", err)
			return createResponse(helpRoute, nil, resErr)
		}
	}
	return createResponse(helpRoute, &res, nil)
}

// handleVersion handles requests for version. It returns the rpc server version
// and the wallet version.
func handleVersion(_ context.Context, s *RPCServer, _ *RawParams) *msgjson.ResponsePayload {
	result := &versionResponse{
		RPCServerVer: &semver{
			Major: rpcSemverMajor,
			Minor: rpcSemverMinor,
			Patch: rpcSemverPatch,
		},
		AppVersion: s.appVer,
	}
	return createResponse(versionRoute, result, nil)
}

// handleBalances handles requests for getbalances.
func handleBalances(ctx context.Context, s *RPCServer, params *RawParams) *msgjson.ResponsePayload {
	if err := checkNArgs(params, []int{0}); err != nil {
		return usage(balancesRoute, err)
	}
	bals, err := s.core.Balances(ctx)
	if err != nil {
		return coreErrorResponse(balancesRoute, err)
	}
	return createResponse(balancesRoute, bals, nil)
}

// handleReceiveWads handles requests for receivewads.
func handleReceiveWads(ctx context.Context, s *RPCServer, params *RawParams) *msgjson.ResponsePayload {
	wads, err := parseReceiveWadsArgs(params)
	if err != nil {
		return usage(receiveWadsRoute, err)
	}
	received, err := s.core.ReceiveWads(ctx, wads)
	if err != nil {
		return coreErrorResponse(receiveWadsRoute, err)
	}
	return createResponse(receiveWadsRoute, &core.WadsReceived{WadsReceived: received}, nil)
}

// handleCreateWads handles requests for createwads.
func handleCreateWads(ctx context.Context, s *RPCServer, params *RawParams) *msgjson.ResponsePayload {
	form, err := parseCreateWadsArgs(params)
	if err != nil {
		return usage(createWadsRoute, err)
	}
	wads, err := s.core.CreateWads(ctx, form.amount, form.asset)
	if err != nil {
		return coreErrorResponse(createWadsRoute, err)
	}
	return createResponse(createWadsRoute, &core.WadsCreated{Wads: wads}, nil)
}

// handleHistory handles requests for history.
func handleHistory(ctx context.Context, s *RPCServer, params *RawParams) *msgjson.ResponsePayload {
	n, err := parseHistoryArgs(params)
	if err != nil {
		return usage(historyRoute, err)
	}
	entries, err := s.core.History(ctx, n)
	if err != nil {
		resErr := msgjson.NewError(msgjson.RPCHistoryError, "unable to get history: %v", err)
		return createResponse(historyRoute, nil, resErr)
	}
	return createResponse(historyRoute, entries, nil)
}

// handleSeed handles requests for seed. The mnemonic is returned in the clear.
func handleSeed(ctx context.Context, s *RPCServer, params *RawParams) *msgjson.ResponsePayload {
	if err := checkNArgs(params, []int{0}); err != nil {
		return usage(seedRoute, err)
	}
	seed, err := s.core.ExportSeed(ctx)
	if err != nil {
		resErr := msgjson.NewError(msgjson.RPCExportSeedError, "unable to export seed: %v", err)
		return createResponse(seedRoute, nil, resErr)
	}
	return createResponse(seedRoute, seed, nil)
}

// format concatenates thing and tail. If thing is empty, returns an empty
// string.
func format(thing, tail string) string {
	if thing == "" {
		return ""
	}
	return fmt.Sprintf("%s%s", thing, tail)
}

// ListCommands prints a short usage string for every route available to the
// rpcserver.
func ListCommands() string {
	var sb strings.Builder
	for _, r := range sortHelpKeys() {
		msg := helpMsgs[r]
		if _, err := sb.WriteString(fmt.Sprintf("%s %s\n", r, msg.argsShort)); err != nil {
			log.Errorf("unable to parse help message for %s", r)
			return ""
		}
	}
	s := sb.String()
	// Remove trailing newline.
	return s[:len(s)-1]
}

// commandUsage returns a help message for cmd or an error if cmd is unknown.
func commandUsage(cmd string) (string, error) {
	msg, exists := helpMsgs[cmd]
	if !exists {
		return "", fmt.Errorf("%w: %s", errUnknownCmd, cmd)
	}
	return fmt.Sprintf("%s %s\n\n%s\n\n%s%s", cmd, msg.argsShort,
		msg.cmdSummary, format(msg.argsLong, "\n\n"), msg.returns), nil
}

// sortHelpKeys returns a sorted list of helpMsgs keys.
func sortHelpKeys() []string {
	keys := make([]string, 0, len(helpMsgs))
	for k := range helpMsgs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// knownUnitsHelp describes the units with a known asset. Amounts in any other
// unit are shown as reported by the mint.
func knownUnitsHelp() string {
	var sb strings.Builder
	sb.WriteString("Known units:")
	for _, ui := range cashu.KnownUnits() {
		fmt.Fprintf(&sb, "\n    %s: %s, 10^-%d %s", ui.Unit, ui.Description, ui.Decimals, ui.Asset)
	}
	return sb.String()
}

type helpMsg struct {
	argsShort, cmdSummary, argsLong, returns string
}

// helpMsgs are a map of routes to help messages. They are broken down into
// sections.
// Examples are given in the help messages for commands with arguments.
var helpMsgs = map[string]helpMsg{
	helpRoute: {
		argsShort:  `("cmd")`,
		cmdSummary: `Print a help message.`,
		argsLong: `Args:
    cmd (string): Optional. The command to print help for.`,
		returns: `Returns:
    string: The help message for command.`,
	},
	versionRoute: {
		cmdSummary: `Print the wallet rpcserver version.`,
		returns: `Returns:
    obj: The rpc server and wallet versions.
    {
      "rpcServerVersion" (obj): The rpc server semver.
      "appVersion" (string): The wallet version.
    }`,
	},
	balancesRoute: {
		cmdSummary: `List the balances held at every registered mint. Units with a
    zero balance are omitted.` + "\n\n" + knownUnitsHelp(),
		returns: `Returns:
    array: The balances per mint.
    [
      {
        "url" (string): The mint url.
        "balances" (array): The balances.
        [
          {
            "unit" (string): The unit.
            "amount" (int): The amount in that unit.
          },...
        ]
      },...
    ]`,
	},
	receiveWadsRoute: {
		argsShort: `"wads"`,
		cmdSummary: `Receive a bundle of wads. Each wad's proofs are swapped at its mint
    and the new proofs are credited to the wallet. The mint is registered if it
    is new. Wads before a failed one stay received.`,
		argsLong: `Args:
    wads (string): The ':' separated wads.`,
		returns: `Returns:
    obj: The received wads.
    {
      "wads_received" (array): One entry per wad.
      [
        {
          "mint_url" (string): The mint url.
          "amount" (int): The amount received.
          "unit" (string): The unit.
          "memo" (string): The wad's memo, if any.
        },...
      ]
    }`,
	},
	createWadsRoute: {
		argsShort: `"amount" "asset"`,
		cmdSummary: `Create a bundle of wads for an amount of an asset, drawing from as
    few mints as possible.`,
		argsLong: `Args:
    amount (string): The decimal amount, e.g. "0.0005".
    asset (string): The asset. One of "BTC", "ETH", "STRK".`,
		returns: `Returns:
    obj: The created wads.
    {
      "wads" (string): The ':' separated wads.
    }`,
	},
	historyRoute: {
		argsShort:  `(n)`,
		cmdSummary: `List the wads sent and received, newest first.`,
		argsLong: `Args:
    n (int): Optional. The number of entries. All entries if omitted or 0.`,
		returns: `Returns:
    array: The wad history.
    [
      {
        "id" (string): The wad's ledger id.
        "direction" (string): "in" or "out".
        "mint_url" (string): The mint url.
        "unit" (string): The unit.
        "amount" (int): The amount.
        "memo" (string): The memo, if any.
        "proofs" (int): The number of proofs.
        "stamp" (int): Creation time in milliseconds.
      },...
    ]`,
	},
	seedRoute: {
		cmdSummary: `Print the wallet's mnemonic seed phrase.`,
		returns: `Returns:
    obj: The seed.
    {
      "mnemonic" (string): The 12 word mnemonic.
    }`,
	},
}
