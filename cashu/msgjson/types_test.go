// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package msgjson

import (
	"errors"
	"strings"
	"testing"
)

func TestResponseRoundTrip(t *testing.T) {
	type result struct {
		Wads string `json:"wads"`
	}
	msg, err := NewResponse(7, &result{Wads: "cashuB..."}, nil)
	if err != nil {
		t.Fatalf("NewResponse error: %v", err)
	}
	reMsg, err := DecodeMessage([]byte(msg.String()))
	if err != nil {
		t.Fatalf("DecodeMessage error: %v", err)
	}
	var res result
	if err := reMsg.UnmarshalResult(&res); err != nil {
		t.Fatalf("UnmarshalResult error: %v", err)
	}
	if res.Wads != "cashuB..." || reMsg.ID != 7 {
		t.Fatalf("wrong result %+v, id %d", res, reMsg.ID)
	}
}

func TestErrorResponse(t *testing.T) {
	rpcErr := NewErrorWithData(RPCInvalidParams, "invalid argument amount", "\"x\" is not a decimal number")
	msg, err := NewResponse(1, nil, rpcErr)
	if err != nil {
		t.Fatalf("NewResponse error: %v", err)
	}
	err = msg.UnmarshalResult(new(string))
	var msgErr *Error
	if !errors.As(err, &msgErr) {
		t.Fatalf("expected *Error, got %v", err)
	}
	if msgErr.Code != RPCInvalidParams || !strings.Contains(string(msgErr.Data), "decimal") {
		t.Fatalf("wrong error %+v", msgErr)
	}
}

func TestNewRequest(t *testing.T) {
	if _, err := NewRequest(0, "help", nil); err == nil {
		t.Fatalf("no error for zero id")
	}
	if _, err := NewRequest(1, "", nil); err == nil {
		t.Fatalf("no error for empty route")
	}
	msg, err := NewRequest(1, "getbalances", nil)
	if err != nil {
		t.Fatalf("NewRequest error: %v", err)
	}
	if _, err := msg.Response(); err == nil {
		t.Fatalf("no error decoding a request as a response")
	}
	if _, err := DecodeMessage([]byte("null")); err == nil {
		t.Fatalf("no error for null message")
	}
}
