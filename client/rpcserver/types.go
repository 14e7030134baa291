// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package rpcserver

import (
	"errors"
	"fmt"
	"strconv"
)

var (
	// errArgs is wrapped when arguments to the known command cannot be parsed.
	errArgs = errors.New("unable to parse arguments")
)

// RawParams is used for all server requests.
type RawParams struct {
	Args []string `json:"args"`
}

// semver holds a semver version JSON object.
type semver struct {
	Major uint32 `json:"major"`
	Minor uint32 `json:"minor"`
	Patch uint32 `json:"patch"`
}

// String satisfies the Stringer interface.
func (v semver) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
}

// versionResponse is used when responding to the version route.
type versionResponse struct {
	RPCServerVer *semver `json:"rpcServerVersion"`
	AppVersion   string  `json:"appVersion"`
}

// createWadsForm is information necessary to create wads.
type createWadsForm struct {
	amount string
	asset  string
}

// checkNArgs checks that args is the correct length. One integer in nArgs is
// an exact match, two are the min and max.
func checkNArgs(params *RawParams, nArgs []int) error {
	have := len(params.Args)
	if len(nArgs) == 1 {
		if nArgs[0] != have {
			return fmt.Errorf("%w: wanted %d but got %d", errArgs, nArgs[0], have)
		}
		return nil
	}
	if have < nArgs[0] || have > nArgs[1] {
		return fmt.Errorf("%w: wanted between %d and %d but got %d", errArgs, nArgs[0], nArgs[1], have)
	}
	return nil
}

func checkUIntArg(arg, name string, bitSize int) (uint64, error) {
	i, err := strconv.ParseUint(arg, 10, bitSize)
	if err != nil {
		return i, fmt.Errorf("%w: cannot parse %s: %v", errArgs, name, err)
	}
	return i, nil
}

func parseHelpArgs(params *RawParams) (string, error) {
	if err := checkNArgs(params, []int{0, 1}); err != nil {
		return "", err
	}
	if len(params.Args) > 0 {
		return params.Args[0], nil
	}
	return "", nil
}

func parseReceiveWadsArgs(params *RawParams) (string, error) {
	if err := checkNArgs(params, []int{1}); err != nil {
		return "", err
	}
	return params.Args[0], nil
}

func parseCreateWadsArgs(params *RawParams) (*createWadsForm, error) {
	if err := checkNArgs(params, []int{2}); err != nil {
		return nil, err
	}
	return &createWadsForm{
		amount: params.Args[0],
		asset:  params.Args[1],
	}, nil
}

func parseHistoryArgs(params *RawParams) (int, error) {
	if err := checkNArgs(params, []int{0, 1}); err != nil {
		return 0, err
	}
	if len(params.Args) == 0 {
		return 0, nil
	}
	n, err := checkUIntArg(params.Args[0], "n", 31)
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// nArgs are the argument counts accepted by each route. One integer is an
// exact count, two are the min and max.
var nArgs = map[string][]int{
	balancesRoute:    {0},
	receiveWadsRoute: {1},
	createWadsRoute:  {2},
	historyRoute:     {0, 1},
	seedRoute:        {0},
	helpRoute:        {0, 1},
	versionRoute:     {0},
}

// RouteExists checks if a route exists.
func RouteExists(route string) bool {
	_, exists := routes[route]
	return exists
}

// ParseCmdArgs checks the number of arguments for the route and packages them
// for a request.
func ParseCmdArgs(cmd string, args []string) (*RawParams, error) {
	n, exists := nArgs[cmd]
	if !exists {
		return nil, fmt.Errorf("%w: %s", errUnknownCmd, cmd)
	}
	params := &RawParams{Args: args}
	if err := checkNArgs(params, n); err != nil {
		return nil, err
	}
	return params, nil
}
