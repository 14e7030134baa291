// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package config

import (
	"os"
	"path/filepath"
	"testing"
)

type rpcCreds struct {
	User    string `ini:"rpcuser"`
	Pass    string `ini:"rpcpass"`
	Addr    string `ini:"rpcaddr"`
	Testnet bool   `ini:"testnet"`
}

func TestParse(t *testing.T) {
	data := []byte(`
[Application Options]
rpcuser=alice
rpcpass=hunter2
testnet=1

[RPC]
rpcaddr=127.0.0.1:5760
`)
	cfgPath := filepath.Join(t.TempDir(), "wadwallet.conf")
	if err := os.WriteFile(cfgPath, data, 0600); err != nil {
		t.Fatalf("WriteFile error: %v", err)
	}
	for _, src := range []any{data, cfgPath} {
		var creds rpcCreds
		if err := Parse(src, &creds); err != nil {
			t.Fatalf("Parse error: %v", err)
		}
		if creds.User != "alice" || creds.Pass != "hunter2" || creds.Addr != "127.0.0.1:5760" || !creds.Testnet {
			t.Fatalf("wrong parsed config %+v", creds)
		}
	}
}

func TestOptions(t *testing.T) {
	opts := map[string]string{"b": "2", "a": "1"}
	data := OptionsMapToINIData(opts)
	if string(data) != "a=1\nb=2\n" {
		t.Fatalf("wrong ini data %q", string(data))
	}
	reOpts, err := Options(data)
	if err != nil {
		t.Fatalf("Options error: %v", err)
	}
	if len(reOpts) != 2 || reOpts["a"] != "1" || reOpts["b"] != "2" {
		t.Fatalf("wrong options %v", reOpts)
	}
}
