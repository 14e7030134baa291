package core

import (
	"errors"
	"fmt"
	"testing"

	"decred.org/wadwallet/cashu/msgjson"
	"decred.org/wadwallet/client/db/pool"
)

func TestCoreError(t *testing.T) {
	baseErr := errors.New("base")
	err := codedError(DBErr, fmt.Errorf("wrapped: %w", baseErr))
	if !errorHasCode(err, DBErr) {
		t.Fatalf("code not found")
	}
	if errorHasCode(err, PoolErr) {
		t.Fatalf("wrong code found")
	}
	if !errors.Is(err, baseErr) {
		t.Fatalf("base error not wrapped")
	}
	if err.Error() != "wrapped: base" {
		t.Fatalf("wrong error string %q", err)
	}

	wrapped := fmt.Errorf("outer: %w", newError(ReceiveWadErr, "inner %d: %w", 1, baseErr))
	if !errorHasCode(wrapped, ReceiveWadErr) {
		t.Fatalf("code not found through wrapping")
	}

	// A pool timeout is a pool error whatever the step.
	timeout := fmt.Errorf("%w after 1s", pool.ErrTimeout)
	for _, code := range []ErrorCode{DBErr, RegisterNodeErr, ReceiveWadErr, PlanSpendingErr, SeedPhraseErr} {
		if !errorHasCode(stepError(code, timeout), PoolErr) {
			t.Fatalf("timeout in step %d not a pool error", code)
		}
		if !errorHasCode(stepError(code, baseErr), code) {
			t.Fatalf("step %d error lost its code", code)
		}
	}
	if !errorHasCode(storageError(baseErr), DBErr) {
		t.Fatalf("storage error not a db error")
	}

	nef := notEnoughFunds(7)
	if !errorHasCode(nef, NotEnoughFundsErr) || nef.Error() != "not enough funds in node 7" {
		t.Fatalf("wrong not enough funds error %v", nef)
	}
}

func TestUnwrapErr(t *testing.T) {
	baseErr := errors.New("base")
	err := fmt.Errorf("a: %w", fmt.Errorf("b: %w", codedError(DBErr, baseErr)))
	if UnwrapErr(err) != baseErr {
		t.Fatalf("wrong innermost error")
	}
	if UnwrapErr(baseErr) != baseErr {
		t.Fatalf("unwrapped error changed")
	}
}

func TestErrorMessages(t *testing.T) {
	for code := PoolErr; code <= NotEnoughFundsErr; code++ {
		if _, found := errorMessages[code]; !found {
			t.Fatalf("no message for code %d", code)
		}
	}
	if ErrorCode(100).Message() != "unknown error" {
		t.Fatalf("wrong message for unknown code")
	}
}

func TestRPCError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
		data    string
	}{
		{
			name:    "pool",
			err:     stepError(ReceiveWadErr, fmt.Errorf("%w after 5s", pool.ErrTimeout)),
			code:    msgjson.RPCInternal,
			message: "failed to get a database connection from the pool",
			data:    `"timed out waiting for a database connection after 5s"`,
		},
		{
			name:    "db",
			err:     storageError(errors.New("disk full")),
			code:    msgjson.RPCInternal,
			message: "failed to interact with the database",
			data:    `"disk full"`,
		},
		{
			name:    "wads param",
			err:     codedError(WadsParamErr, errors.New("bad prefix")),
			code:    msgjson.RPCInvalidParams,
			message: "invalid value for wads parameter",
			data:    `"bad prefix"`,
		},
		{
			name:    "seed",
			err:     codedError(SeedPhraseErr, errors.New("locked")),
			code:    msgjson.RPCInternal,
			message: "failed to retreive the wallet seed phrase",
			data:    `"locked"`,
		},
		{
			name:    "connect",
			err:     newError(ConnectNodeErr, "node %d: %w", 2, errors.New("refused")),
			code:    msgjson.RPCInternal,
			message: "failed to connect to the mint node",
			data:    `"node 2: refused"`,
		},
		{
			name:    "register",
			err:     codedError(RegisterNodeErr, errors.New("x")),
			code:    msgjson.RPCInternal,
			message: "failed to register the mint node",
			data:    `"x"`,
		},
		{
			name:    "receive",
			err:     codedError(ReceiveWadErr, errors.New("x")),
			code:    msgjson.RPCInternal,
			message: "failed to receive a wad",
			data:    `"x"`,
		},
		{
			name:    "amount param",
			err:     codedError(AmountParamErr, errors.New("x")),
			code:    msgjson.RPCInvalidParams,
			message: "invalid argument amount",
			data:    `"x"`,
		},
		{
			name:    "plan",
			err:     codedError(PlanSpendingErr, errors.New("x")),
			code:    msgjson.RPCInternal,
			message: "could not plan spending",
			data:    `"x"`,
		},
		{
			name:    "funds",
			err:     notEnoughFunds(3),
			code:    msgjson.RPCInternal,
			message: "not enough funds",
			data:    `"not enough funds in node 3"`,
		},
		{
			name:    "uncoded",
			err:     errors.New("boom"),
			code:    msgjson.RPCInternal,
			message: "internal error",
			data:    `"boom"`,
		},
	}
	for _, tt := range tests {
		rpcErr := RPCError(tt.err)
		if rpcErr.Code != tt.code {
			t.Fatalf("%s: wrong code %d", tt.name, rpcErr.Code)
		}
		if rpcErr.Message != tt.message {
			t.Fatalf("%s: wrong message %q", tt.name, rpcErr.Message)
		}
		if string(rpcErr.Data) != tt.data {
			t.Fatalf("%s: wrong data %s", tt.name, rpcErr.Data)
		}
	}
}
