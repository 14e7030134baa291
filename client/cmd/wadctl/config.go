// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"decred.org/wadwallet/cashu"
	cashuconfig "decred.org/wadwallet/cashu/config"
	"decred.org/wadwallet/client/rpcserver"
	"github.com/decred/dcrd/dcrutil/v4"
	flags "github.com/jessevdk/go-flags"
)

const (
	defaultRPCAddr          = "127.0.0.1:5959"
	defaultConfigFilename   = "wadctl.conf"
	defaultRPCCertFile      = "rpc.cert"
	walletConfigFilename    = "wadwallet.conf"
	showHelpMessage         = "Specify -h to show available options"
	listCmdMessage          = "Specify -l to list available commands"
	stdinParameterExplainer = "The special parameter `-` indicates that a parameter should be read from the\nnext unread line from standard input."
)

var (
	appDir            = dcrutil.AppDataDir("wadctl", false)
	walletAppDir      = dcrutil.AppDataDir("wadwallet", false)
	defaultConfigPath = filepath.Join(appDir, defaultConfigFilename)
)

// config defines the configuration options for wadctl.
type config struct {
	ShowVersion   bool   `short:"V" long:"version" description:"Display version information and exit"`
	ListCommands  bool   `short:"l" long:"listcommands" description:"List all of the supported commands and exit"`
	Config        string `short:"C" long:"config" description:"Path to configuration file"`
	WalletConfig  string `long:"walletconfig" description:"Path to the wallet's configuration file, read for rpc settings not given here"`
	RPCUser       string `short:"u" long:"rpcuser" description:"RPC username"`
	RPCPass       string `short:"P" long:"rpcpass" default-mask:"-" description:"RPC password"`
	AskPass       bool   `short:"p" long:"askpass" description:"Prompt for the RPC password"`
	RPCAddr       string `short:"a" long:"rpcaddr" description:"RPC server to connect to"`
	RPCCert       string `short:"c" long:"rpccert" description:"RPC server certificate chain for validation"`
	PrintJSON     bool   `short:"j" long:"json" description:"Print json messages sent and received"`
	Proxy         string `long:"proxy" description:"Connect via SOCKS5 proxy (eg. 127.0.0.1:9050)"`
	ProxyUser     string `long:"proxyuser" description:"Username for proxy server"`
	ProxyPass     string `long:"proxypass" default-mask:"-" description:"Password for proxy server"`
	TLSServerName string `long:"tlsservername" description:"Server name to verify the certificate against, if not the rpcaddr host"`
}

// walletRPCConfig are the rpc settings read from the wallet's config file.
type walletRPCConfig struct {
	RPCUser string `ini:"rpcuser"`
	RPCPass string `ini:"rpcpass"`
	RPCAddr string `ini:"rpcaddr"`
	RPCCert string `ini:"rpccert"`
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	if _, err := os.Stat(name); err != nil {
		if os.IsNotExist(err) {
			return false
		}
	}
	return true
}

// configure parses command line options and a config file if present. Returns
// an instantiated *config, leftover command line arguments, and a bool that
// is true if there is nothing further to do (i.e. version was printed and we
// can exit), or a parsing error, in that order.
func configure() (*config, []string, bool, error) {
	stop := true
	cfg := &config{
		Config: defaultConfigPath,
	}
	preParser := flags.NewParser(cfg, flags.HelpFlag)
	_, err := preParser.Parse()
	if err != nil {
		var flagErr *flags.Error
		if errors.As(err, &flagErr) && flagErr.Type == flags.ErrHelp {
			// This line is printed below the help message.
			fmt.Printf("%v\n%s\n", err, stdinParameterExplainer)
			return nil, nil, stop, nil
		}
		return nil, nil, false, err
	}

	// Show the version and exit if the version flag was specified.
	appName := filepath.Base(os.Args[0])
	appName = strings.TrimSuffix(appName, filepath.Ext(appName))
	if cfg.ShowVersion {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n", appName,
			version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		return nil, nil, stop, nil
	}

	// Show the available commands and exit if the associated flag was
	// specified.
	if cfg.ListCommands {
		fmt.Println(rpcserver.ListCommands())
		return nil, nil, stop, nil
	}

	parser := flags.NewParser(cfg, flags.Default)

	cfg.Config = cashu.CleanAndExpandPath(cfg.Config)
	if fileExists(cfg.Config) {
		// Load additional config from file.
		err = flags.NewIniParser(parser).ParseFile(cfg.Config)
		if err != nil {
			return nil, nil, false, err
		}
	}

	// Parse command line options again to ensure they take precedence.
	remainingArgs, err := parser.Parse()
	if err != nil {
		return nil, nil, false, err
	}

	// Fill in anything missing from the wallet's own config file.
	walletCfgPath := cfg.WalletConfig
	if walletCfgPath == "" {
		walletCfgPath = filepath.Join(walletAppDir, walletConfigFilename)
	}
	walletCfgPath = cashu.CleanAndExpandPath(walletCfgPath)
	if fileExists(walletCfgPath) {
		var wcfg walletRPCConfig
		if err := cashuconfig.Parse(walletCfgPath, &wcfg); err != nil {
			return nil, nil, false, fmt.Errorf("error reading wallet config %s: %w", walletCfgPath, err)
		}
		fillFromWalletConfig(cfg, &wcfg)
	}

	if cfg.RPCCert == "" {
		// Check in ~/.wadctl first.
		cfg.RPCCert = cashu.CleanAndExpandPath(filepath.Join(appDir, defaultRPCCertFile))
		if !fileExists(cfg.RPCCert) { // Then in ~/.wadwallet
			cfg.RPCCert = cashu.CleanAndExpandPath(filepath.Join(walletAppDir, defaultRPCCertFile))
		}
	} else {
		// Handle environment variable and tilde expansion in the given path.
		cfg.RPCCert = cashu.CleanAndExpandPath(cfg.RPCCert)
	}

	if cfg.RPCAddr == "" {
		cfg.RPCAddr = defaultRPCAddr
	}

	return cfg, remainingArgs, false, nil
}

// fillFromWalletConfig sets the rpc settings that were not given on the command
// line or in wadctl's config file.
func fillFromWalletConfig(cfg *config, wcfg *walletRPCConfig) {
	if cfg.RPCUser == "" {
		cfg.RPCUser = wcfg.RPCUser
	}
	if cfg.RPCPass == "" && !cfg.AskPass {
		cfg.RPCPass = wcfg.RPCPass
	}
	if cfg.RPCAddr == "" {
		cfg.RPCAddr = wcfg.RPCAddr
	}
	if cfg.RPCCert == "" {
		cfg.RPCCert = wcfg.RPCCert
	}
}
