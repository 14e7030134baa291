// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package core

import (
	"errors"
	"fmt"

	"decred.org/wadwallet/cashu/msgjson"
	"decred.org/wadwallet/client/db/pool"
)

// ErrorCode is the kind of failure behind an Error.
type ErrorCode int

const (
	PoolErr ErrorCode = iota
	DBErr
	WadsParamErr
	SeedPhraseErr
	ConnectNodeErr
	RegisterNodeErr
	ReceiveWadErr
	AmountParamErr
	PlanSpendingErr
	NotEnoughFundsErr
)

var errorMessages = map[ErrorCode]string{
	PoolErr:           "failed to get a database connection from the pool",
	DBErr:             "failed to interact with the database",
	WadsParamErr:      "invalid value for wads parameter",
	SeedPhraseErr:     "failed to retreive the wallet seed phrase",
	ConnectNodeErr:    "failed to connect to the mint node",
	RegisterNodeErr:   "failed to register the mint node",
	ReceiveWadErr:     "failed to receive a wad",
	AmountParamErr:    "invalid argument amount",
	PlanSpendingErr:   "could not plan spending",
	NotEnoughFundsErr: "not enough funds",
}

// Message is the fixed human-readable message for the code.
func (c ErrorCode) Message() string {
	if msg, found := errorMessages[c]; found {
		return msg
	}
	return "unknown error"
}

// InvalidParams is true for codes caused by bad caller input.
func (c ErrorCode) InvalidParams() bool {
	return c == WadsParamErr || c == AmountParamErr
}

// Error is an error code and a wrapped error.
type Error struct {
	code ErrorCode
	err  error
}

// Error returns the error string. Satisfies the error interface.
func (e *Error) Error() string {
	return e.err.Error()
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Unwrap returns the underlying wrapped error.
func (e *Error) Unwrap() error {
	return e.err
}

// newError is a constructor for a new Error.
func newError(code ErrorCode, s string, a ...any) error {
	return &Error{
		code: code,
		err:  fmt.Errorf(s, a...), // s may contain a %w verb to wrap an error
	}
}

// codedError converts the error to an Error with the specified code.
func codedError(code ErrorCode, err error) error {
	return &Error{
		code: code,
		err:  err,
	}
}

// ErrorWithCode is an Error with the code wrapping err, for Core fakes in
// other packages.
func ErrorWithCode(code ErrorCode, err error) error {
	return codedError(code, err)
}

// stepError codes a failed step. A connection pool timeout is always a
// PoolErr, whatever the step.
func stepError(code ErrorCode, err error) error {
	if errors.Is(err, pool.ErrTimeout) {
		return codedError(PoolErr, err)
	}
	return codedError(code, err)
}

// storageError codes a failed ledger access.
func storageError(err error) error {
	return stepError(DBErr, err)
}

// notEnoughFunds is the error for a node that can't cover its share.
func notEnoughFunds(nodeID uint32) error {
	return newError(NotEnoughFundsErr, "not enough funds in node %d", nodeID)
}

// errorHasCode checks whether the error is an Error and has the specified code.
func errorHasCode(err error, code ErrorCode) bool {
	var e *Error
	return errors.As(err, &e) && e.code == code
}

// UnwrapErr returns the result of calling the Unwrap method on err,
// until it returns a non-wrapped error.
func UnwrapErr(err error) error {
	InnerErr := errors.Unwrap(err)
	if InnerErr == nil {
		return err
	}
	return UnwrapErr(InnerErr)
}

// RPCError classifies an error returned by Core. Caller input errors get the
// invalid params code and everything else is internal. The data is the JSON
// string of the underlying error.
func RPCError(err error) *msgjson.Error {
	var e *Error
	if !errors.As(err, &e) {
		return msgjson.NewErrorWithData(msgjson.RPCInternal, "internal error", err.Error())
	}
	rpcCode := msgjson.RPCInternal
	if e.code.InvalidParams() {
		rpcCode = msgjson.RPCInvalidParams
	}
	return msgjson.NewErrorWithData(rpcCode, e.code.Message(), e.err.Error())
}
