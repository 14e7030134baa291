// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package app

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/client/core"
	"decred.org/wadwallet/client/mint"
	"decred.org/wadwallet/client/rpcserver"
	"github.com/decred/dcrd/dcrutil/v4"
	"github.com/jessevdk/go-flags"
)

const (
	defaultRPCCertFile = "rpc.cert"
	defaultRPCKeyFile  = "rpc.key"
	defaultMainnetHost = "127.0.0.1"
	defaultTestnetHost = "127.0.0.2"
	defaultRegtestHost = "127.0.0.3"
	defaultRPCPort     = "5959"
	defaultLogLevel    = "info"
	defaultMaxDBConns  = 8
	defaultDBTimeout   = 5 * time.Second
	configFilename     = "wadwallet.conf"
	dbFilename         = "wadwallet.db"
	logFilename        = "wadwallet.log"
)

var (
	defaultApplicationDirectory = dcrutil.AppDataDir("wadwallet", false)
	defaultConfigPath           = filepath.Join(defaultApplicationDirectory, configFilename)
)

// Network selects default directories and addresses.
type Network uint8

const (
	Mainnet Network = iota
	Testnet
	Regtest
)

// String returns the network name, which is also its directory name.
func (n Network) String() string {
	switch n {
	case Mainnet:
		return "mainnet"
	case Testnet:
		return "testnet"
	case Regtest:
		return "regtest"
	}
	return "unknown"
}

// RPCConfig encapsulates the configuration needed for the RPC server.
type RPCConfig struct {
	RPCAddr string `long:"rpcaddr" description:"RPC server listen address"`
	RPCUser string `long:"rpcuser" description:"RPC server user name"`
	RPCPass string `long:"rpcpass" default-mask:"-" description:"RPC server password"`
	RPCCert string `long:"rpccert" description:"RPC server certificate file location"`
	RPCKey  string `long:"rpckey" description:"RPC server key file location"`
	// CertHosts is a list of hosts given to certgen.NewTLSCertPair for the
	// "Subject Alternate Name" values of the generated TLS certificate. It is
	// set automatically, not via the config file or cli args.
	CertHosts []string
}

// RPC creates a rpc server configuration.
func (cfg *RPCConfig) RPC(c *core.Core, log cashu.Logger) *rpcserver.Config {
	rpcserver.UseLogger(log)
	return &rpcserver.Config{
		Core:       c,
		Addr:       cfg.RPCAddr,
		User:       cfg.RPCUser,
		Pass:       cfg.RPCPass,
		Cert:       cfg.RPCCert,
		Key:        cfg.RPCKey,
		AppVersion: Version,
		CertHosts:  cfg.CertHosts,
	}
}

// LedgerConfig encapsulates the ledger database settings.
type LedgerConfig struct {
	DBPath     string        `long:"db" description:"Database filepath. Database will be created if it does not exist."`
	MaxDBConns int           `long:"maxdbconns" description:"Maximum number of concurrent ledger connections."`
	DBTimeout  time.Duration `long:"dbtimeout" description:"How long to wait for a free ledger connection, e.g. 5s."`
}

// MintConfig encapsulates the mint transport settings.
type MintConfig struct {
	MintTimeout time.Duration `long:"minttimeout" description:"Timeout for each request to a mint, e.g. 30s."`
	MintRate    float64       `long:"mintrate" description:"Maximum requests per second to any one mint."`
	Proxy       string        `long:"proxy" description:"Connect to mints via a SOCKS5 proxy (eg. 127.0.0.1:9050)."`
}

// Mint creates a mint connector configuration.
func (cfg *MintConfig) Mint() *mint.Config {
	return &mint.Config{
		Timeout: cfg.MintTimeout,
		Rate:    cfg.MintRate,
		Proxy:   cfg.Proxy,
	}
}

// LogConfig encapsulates the logging-related settings.
type LogConfig struct {
	LogDir     string `long:"logdir" description:"Directory to log output."`
	DebugLevel string `long:"debuglevel" description:"Logging level {trace, debug, info, warn, error, critical}, or per subsystem, e.g. CORE=debug,DB=trace"`
	LocalLogs  bool   `long:"loglocal" description:"Use local time zone time stamps in log entries."`
	// LogPath is a derivative field set by ResolveConfig.
	LogPath string
}

// Config is the common application configuration definition.
type Config struct {
	LedgerConfig
	MintConfig
	RPCConfig
	LogConfig
	// AppData and ConfigPath should be parsed from the command-line,
	// as it makes no sense to set these in the config file itself. If no values
	// are assigned, defaults will be used.
	AppData    string `long:"appdata" description:"Path to application directory."`
	ConfigPath string `long:"config" description:"Path to an INI configuration file."`
	Testnet    bool   `long:"testnet" description:"use testnet"`
	Regtest    bool   `long:"regtest" description:"use regtest"`
	Restore    bool   `long:"restore" description:"Restore the wallet seed from a mnemonic, prompted on start. The wallet must not have a seed yet."`
	WalletPass string `long:"walletpass" default-mask:"-" description:"Wallet password. Prompted on start if not set."`
	ShowVer    bool   `short:"V" long:"version" description:"Display version information and exit"`
	// Net is a derivative field set by ResolveConfig.
	Net Network
}

var DefaultConfig = Config{
	AppData:    defaultApplicationDirectory,
	ConfigPath: defaultConfigPath,
	LogConfig:  LogConfig{DebugLevel: defaultLogLevel},
	LedgerConfig: LedgerConfig{
		MaxDBConns: defaultMaxDBConns,
		DBTimeout:  defaultDBTimeout,
	},
	MintConfig: MintConfig{
		MintTimeout: mint.DefaultTimeout,
		MintRate:    mint.DefaultRate,
	},
	RPCConfig: RPCConfig{
		CertHosts: []string{defaultTestnetHost, defaultRegtestHost, defaultMainnetHost},
	},
}

// ParseCLIConfig parses the command-line arguments into the provided struct
// with go-flags tags. If the --help flag has been passed, the struct is
// described back to the terminal and the program exits using os.Exit.
func ParseCLIConfig(cfg any) error {
	preParser := flags.NewParser(cfg, flags.HelpFlag|flags.PassDoubleDash)
	_, flagerr := preParser.Parse()

	if flagerr != nil {
		e, ok := flagerr.(*flags.Error)
		if !ok || e.Type != flags.ErrHelp {
			preParser.WriteHelp(os.Stderr)
		}
		if ok && e.Type == flags.ErrHelp {
			preParser.WriteHelp(os.Stdout)
			os.Exit(0)
		}
		return flagerr
	}
	return nil
}

// ResolveCLIConfigPaths resolves the app data directory path and the
// configuration file path from the CLI config, (presumably parsed with
// ParseCLIConfig).
func ResolveCLIConfigPaths(cfg *Config) (appData, configPath string) {
	// If the app directory has been changed, replace shortcut chars such
	// as "~" with the full path.
	if cfg.AppData != defaultApplicationDirectory {
		cfg.AppData = cashu.CleanAndExpandPath(cfg.AppData)
		// If the app directory has been changed, but the config file path hasn't,
		// reform the config file path with the new directory.
		if cfg.ConfigPath == defaultConfigPath {
			cfg.ConfigPath = filepath.Join(cfg.AppData, configFilename)
		}
	}
	cfg.ConfigPath = cashu.CleanAndExpandPath(cfg.ConfigPath)
	return cfg.AppData, cfg.ConfigPath
}

// ParseFileConfig parses the INI file into the provided struct with go-flags
// tags. The CLI args are then parsed, and take precedence over the file values.
func ParseFileConfig(path string, cfg any) error {
	parser := flags.NewParser(cfg, flags.Default)
	err := flags.NewIniParser(parser).ParseFile(path)
	if err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			fmt.Fprintln(os.Stderr, err)
			parser.WriteHelp(os.Stderr)
			return err
		}
		// Missing file is not an error.
	}

	// Parse command line options again to ensure they take precedence.
	_, err = parser.Parse()
	if err != nil {
		if e, ok := err.(*flags.Error); !ok || e.Type != flags.ErrHelp {
			parser.WriteHelp(os.Stderr)
		}
		return err
	}
	return nil
}

// ResolveConfig sets derivative fields of the Config struct using the specified
// app data directory (presumably returned from ResolveCLIConfigPaths). Some
// unset values are given defaults.
func ResolveConfig(appData string, cfg *Config) error {
	if cfg.Regtest && cfg.Testnet {
		return fmt.Errorf("regtest and testnet cannot both be specified")
	}
	if cfg.MaxDBConns <= 0 {
		return fmt.Errorf("maxdbconns must be positive, got %d", cfg.MaxDBConns)
	}
	if cfg.DBTimeout <= 0 {
		return fmt.Errorf("dbtimeout must be positive, got %s", cfg.DBTimeout)
	}

	cfg.AppData = appData

	switch {
	case cfg.Testnet:
		cfg.Net = Testnet
	case cfg.Regtest:
		cfg.Net = Regtest
	default:
		cfg.Net = Mainnet
	}
	netDir, err := setNet(appData, cfg.Net)
	if err != nil {
		return err
	}

	// If the RPC server address is not set, use the network specific
	// default.
	if cfg.RPCAddr == "" {
		cfg.RPCAddr = net.JoinHostPort(DefaultHostByNetwork(cfg.Net), defaultRPCPort)
	}

	if cfg.RPCCert == "" {
		cfg.RPCCert = filepath.Join(appData, defaultRPCCertFile)
	} else {
		cfg.RPCCert = cashu.CleanAndExpandPath(cfg.RPCCert)
	}

	if cfg.RPCKey == "" {
		cfg.RPCKey = filepath.Join(appData, defaultRPCKeyFile)
	} else {
		cfg.RPCKey = cashu.CleanAndExpandPath(cfg.RPCKey)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(netDir, dbFilename)
	} else {
		cfg.DBPath = cashu.CleanAndExpandPath(cfg.DBPath)
	}

	if cfg.LogDir == "" {
		cfg.LogDir = filepath.Join(netDir, "logs")
	} else {
		cfg.LogDir = cashu.CleanAndExpandPath(cfg.LogDir)
	}
	cfg.LogPath = filepath.Join(cfg.LogDir, logFilename)
	return nil
}

// setNet creates the network directory and returns its path.
func setNet(applicationDirectory string, net Network) (string, error) {
	netDirectory := filepath.Join(applicationDirectory, net.String())
	if err := os.MkdirAll(netDirectory, 0700); err != nil {
		return "", fmt.Errorf("failed to create net directory: %w", err)
	}
	return netDirectory, nil
}

// DefaultHostByNetwork accepts configured network and returns the network
// specific default host
func DefaultHostByNetwork(network Network) string {
	switch network {
	case Testnet:
		return defaultTestnetHost
	case Regtest:
		return defaultRegtestHost
	default:
		return defaultMainnetHost
	}
}
