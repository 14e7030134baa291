// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package rpcserver

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/msgjson"
	"decred.org/wadwallet/client/core"
)

func verifyResponse(payload *msgjson.ResponsePayload, res any, wantErrCode int) error {
	if wantErrCode != -1 {
		if payload.Error == nil {
			return errors.New("no error")
		}
		if payload.Error.Code != wantErrCode {
			return errors.New("wrong error code")
		}
	} else if payload.Error != nil {
		return errors.New("unexpected error")
	}
	if err := json.Unmarshal(payload.Result, res); err != nil {
		return errors.New("unable to unmarshal res")
	}
	return nil
}

type Dummy struct {
	Status string
}

func TestCreateResponse(t *testing.T) {
	type createResTest struct {
		op          string
		res         any
		resErr      *msgjson.Error
		wantErrCode int
	}
	tests := []createResTest{
		{
			"test one",
			Dummy{"ok"},
			nil,
			-1,
		},
		{
			"test two",
			"",
			msgjson.NewError(msgjson.RPCParseError, "failed to encode response"),
			msgjson.RPCParseError,
		},
	}

	for _, test := range tests {
		payload := createResponse(test.op, &test.res, test.resErr)
		if err := verifyResponse(payload, &test.res, test.wantErrCode); err != nil {
			t.Fatal(err)
		}
	}
}

func tServer(c *TCore) *RPCServer {
	return &RPCServer{core: c, appVer: "1.2.3"}
}

func params(args ...string) *RawParams {
	return &RawParams{Args: args}
}

func TestHelp(t *testing.T) {
	payload := handleHelp(context.Background(), nil, params())
	res := ""
	if err := verifyResponse(payload, &res, -1); err != nil {
		t.Fatal(err)
	}
	for route := range routes {
		if !strings.Contains(res, route) {
			t.Fatalf("%s not listed", route)
		}
	}

	payload = handleHelp(context.Background(), nil, params(createWadsRoute))
	if err := verifyResponse(payload, &res, -1); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(res, `createwads "amount" "asset"`) {
		t.Fatalf("wrong usage %q", res)
	}

	// The balances help lists the unit catalog.
	payload = handleHelp(context.Background(), nil, params(balancesRoute))
	if err := verifyResponse(payload, &res, -1); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Known units:", "sat: A sat, 10^-8 BTC", "millistrk: A milli strk, 10^-6 STRK"} {
		if !strings.Contains(res, want) {
			t.Fatalf("balances help missing %q:\n%s", want, res)
		}
	}

	payload = handleHelp(context.Background(), nil, params("nope"))
	if err := verifyResponse(payload, &res, msgjson.RPCUnknownRoute); err != nil {
		t.Fatal(err)
	}

	payload = handleHelp(context.Background(), nil, params("a", "b"))
	if err := verifyResponse(payload, &res, msgjson.RPCArgumentsError); err != nil {
		t.Fatal(err)
	}
}

func TestHelpMsgs(t *testing.T) {
	// routes and helpMsgs must have the same keys.
	if len(routes) != len(helpMsgs) {
		t.Fatal("routes and helpMsgs have different number of routes")
	}
	for k := range routes {
		if _, exists := helpMsgs[k]; !exists {
			t.Fatalf("%v exists in routes but not in helpMsgs", k)
		}
	}
}

func TestVersion(t *testing.T) {
	payload := handleVersion(context.Background(), tServer(&TCore{}), params())
	res := &versionResponse{}
	if err := verifyResponse(payload, res, -1); err != nil {
		t.Fatal(err)
	}
	if res.AppVersion != "1.2.3" {
		t.Fatalf("wrong app version %q", res.AppVersion)
	}
	if res.RPCServerVer.String() != "0.1.0" {
		t.Fatalf("wrong rpc server version %s", res.RPCServerVer)
	}
}

func TestHandleBalances(t *testing.T) {
	bals := []*core.MintBalances{{
		URL:      "https://mint.example",
		Balances: []*core.Balance{{Unit: cashu.Satoshi, Amount: 42}},
	}}
	tests := []struct {
		name        string
		params      *RawParams
		balancesErr error
		wantErrCode int
	}{{
		name:        "ok",
		params:      params(),
		wantErrCode: -1,
	}, {
		name:        "too many args",
		params:      params("x"),
		wantErrCode: msgjson.RPCArgumentsError,
	}, {
		name:        "core error",
		params:      params(),
		balancesErr: errors.New("boom"),
		wantErrCode: msgjson.RPCInternal,
	}}
	for _, test := range tests {
		tc := &TCore{balances: bals, balancesErr: test.balancesErr}
		payload := handleBalances(context.Background(), tServer(tc), test.params)
		var res []*core.MintBalances
		if err := verifyResponse(payload, &res, test.wantErrCode); err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if test.wantErrCode == -1 && (len(res) != 1 || res[0].Balances[0].Amount != 42) {
			t.Fatalf("%s: wrong balances", test.name)
		}
	}
}

func TestHandleReceiveWads(t *testing.T) {
	memo := "thanks"
	received := []*core.WadReceptionInfo{{
		MintURL: "https://mint.example",
		Amount:  21,
		Unit:    cashu.Satoshi,
		Memo:    &memo,
	}}
	tests := []struct {
		name        string
		params      *RawParams
		receiveErr  error
		wantErrCode int
	}{{
		name:        "ok",
		params:      params("cashuBabc"),
		wantErrCode: -1,
	}, {
		name:        "no args",
		params:      params(),
		wantErrCode: msgjson.RPCArgumentsError,
	}, {
		name:        "bad wads",
		params:      params("cashuBabc"),
		receiveErr:  testCoreError(core.WadsParamErr),
		wantErrCode: msgjson.RPCInvalidParams,
	}}
	for _, test := range tests {
		tc := &TCore{received: received, receiveErr: test.receiveErr}
		payload := handleReceiveWads(context.Background(), tServer(tc), test.params)
		var res core.WadsReceived
		if err := verifyResponse(payload, &res, test.wantErrCode); err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if test.wantErrCode != -1 {
			continue
		}
		if tc.receivedWads != "cashuBabc" {
			t.Fatalf("%s: wrong wads passed %q", test.name, tc.receivedWads)
		}
		if len(res.WadsReceived) != 1 || *res.WadsReceived[0].Memo != memo {
			t.Fatalf("%s: wrong receipts", test.name)
		}
	}
}

func TestHandleCreateWads(t *testing.T) {
	tests := []struct {
		name        string
		params      *RawParams
		createErr   error
		wantErrCode int
		wantData    string
	}{{
		name:        "ok",
		params:      params("1.5", "STRK"),
		wantErrCode: -1,
	}, {
		name:        "one arg",
		params:      params("1.5"),
		wantErrCode: msgjson.RPCArgumentsError,
	}, {
		name:        "bad amount",
		params:      params("x", "STRK"),
		createErr:   testCoreError(core.AmountParamErr),
		wantErrCode: msgjson.RPCInvalidParams,
		wantData:    `"test error"`,
	}, {
		name:        "not enough funds",
		params:      params("100", "BTC"),
		createErr:   testCoreError(core.NotEnoughFundsErr),
		wantErrCode: msgjson.RPCInternal,
		wantData:    `"test error"`,
	}}
	for _, test := range tests {
		tc := &TCore{created: "cashuBxyz", createErr: test.createErr}
		payload := handleCreateWads(context.Background(), tServer(tc), test.params)
		var res core.WadsCreated
		if err := verifyResponse(payload, &res, test.wantErrCode); err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if test.wantData != "" && string(payload.Error.Data) != test.wantData {
			t.Fatalf("%s: wrong error data %s", test.name, payload.Error.Data)
		}
		if test.wantErrCode != -1 {
			continue
		}
		if res.Wads != "cashuBxyz" || tc.createAmount != "1.5" || tc.createAsset != "STRK" {
			t.Fatalf("%s: wrong result", test.name)
		}
	}
}

func TestHandleHistory(t *testing.T) {
	entries := []*core.WadHistoryEntry{{ID: "a", Direction: "in"}, {ID: "b", Direction: "out"}}
	tests := []struct {
		name        string
		params      *RawParams
		historyErr  error
		wantN       int
		wantErrCode int
	}{{
		name:        "all",
		params:      params(),
		wantErrCode: -1,
	}, {
		name:        "n",
		params:      params("5"),
		wantN:       5,
		wantErrCode: -1,
	}, {
		name:        "negative n",
		params:      params("-1"),
		wantErrCode: msgjson.RPCArgumentsError,
	}, {
		name:        "core error",
		params:      params(),
		historyErr:  errors.New("boom"),
		wantErrCode: msgjson.RPCHistoryError,
	}}
	for _, test := range tests {
		tc := &TCore{history: entries, historyErr: test.historyErr, historyN: -1}
		payload := handleHistory(context.Background(), tServer(tc), test.params)
		var res []*core.WadHistoryEntry
		if err := verifyResponse(payload, &res, test.wantErrCode); err != nil {
			t.Fatalf("%s: %v", test.name, err)
		}
		if test.wantErrCode != -1 {
			continue
		}
		if tc.historyN != test.wantN {
			t.Fatalf("%s: wrong n %d", test.name, tc.historyN)
		}
		if len(res) != 2 {
			t.Fatalf("%s: wrong number of entries %d", test.name, len(res))
		}
	}
}

func TestHandleSeed(t *testing.T) {
	tc := &TCore{exportSeed: &core.SeedExport{Mnemonic: "half depart obvious"}}
	payload := handleSeed(context.Background(), tServer(tc), params())
	var res core.SeedExport
	if err := verifyResponse(payload, &res, -1); err != nil {
		t.Fatal(err)
	}
	if res.Mnemonic != "half depart obvious" {
		t.Fatalf("wrong mnemonic %q", res.Mnemonic)
	}

	tc.exportSeedErr = errors.New("locked")
	payload = handleSeed(context.Background(), tServer(tc), params())
	if err := verifyResponse(payload, &res, msgjson.RPCExportSeedError); err != nil {
		t.Fatal(err)
	}
}

func testCoreError(code core.ErrorCode) error {
	return core.ErrorWithCode(code, errors.New("test error"))
}
