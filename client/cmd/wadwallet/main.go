// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"strings"
	"syscall"
	"time"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/encode"
	"decred.org/wadwallet/client/app"
	"decred.org/wadwallet/client/core"
	"decred.org/wadwallet/client/db/bolt"
	"decred.org/wadwallet/client/db/pool"
	"decred.org/wadwallet/client/mint"
	"decred.org/wadwallet/client/rpcserver"
	"decred.org/wadwallet/client/wallet"
)

// appName defines the application name.
const appName = "wadwallet"

var (
	appCtx, cancel = context.WithCancel(context.Background())
	log            cashu.Logger
)

func runCore(cfg *app.Config) error {
	defer cancel() // for the earliest returns

	// Initialize logging.
	utc := !cfg.LocalLogs
	logMaker, closeLogger, err := app.InitLogging(cfg.LogPath, cfg.DebugLevel, true, utc)
	if err != nil {
		return err
	}
	defer closeLogger()
	log = logMaker.Logger("WADW")
	log.Infof("%s version %v (Go version %s)", appName, app.Version, runtime.Version())
	if utc {
		log.Infof("Logging with UTC time stamps. Current local time is %v",
			time.Now().Local().Format("15:04:05 MST"))
	}
	log.Infof("%s starting for network: %s", appName, cfg.Net)
	core.UseLoggerMaker(logMaker)

	defer func() {
		if pv := recover(); pv != nil {
			log.Criticalf("Uh-oh! \n\nPanic:\n\n%v\n\nStack:\n\n%v\n\n",
				pv, string(debug.Stack()))
		}
	}()

	// Steps that succeed are undone in reverse if a later one fails.
	closer := cashu.NewErrorCloser()
	defer closer.Done(log)

	// Open the ledger. It is closed when appCtx is canceled.
	boltDB, err := bolt.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("error opening database: %w", err)
	}
	dbRunner := cashu.NewStartStopWaiter(boltDB)
	dbRunner.Start(appCtx)
	closer.Add(func() error {
		dbRunner.Stop()
		dbRunner.WaitForShutdown()
		return nil
	})

	// Unlock or create the wallet seed.
	pw, err := walletPassword(cfg, boltDB)
	if err != nil {
		return err
	}
	var restore string
	if cfg.Restore {
		if restore, err = app.LinePrompt(os.Stdin, "Enter the mnemonic seed phrase to restore: "); err != nil {
			encode.ClearBytes(pw)
			return fmt.Errorf("error reading mnemonic: %w", err)
		}
	}
	crypter, created, err := wallet.InitSeed(boltDB, pw, restore)
	encode.ClearBytes(pw)
	if err != nil {
		return fmt.Errorf("error loading wallet seed: %w", err)
	}
	closer.Add(func() error {
		crypter.Close()
		return nil
	})
	if created && !cfg.Restore {
		log.Infof("A new wallet seed was created. Back it up with the %q command.", "seed")
	}

	connPool := pool.New(boltDB, cfg.MaxDBConns, cfg.DBTimeout)
	clientCore, err := core.New(&core.Config{
		Pool:      connPool,
		Seeds:     wallet.NewSeedManager(connPool, crypter),
		Connector: wallet.MintConnector(mint.NewConnector(cfg.Mint())),
	})
	if err != nil {
		return fmt.Errorf("error creating client core: %w", err)
	}

	rpcSrv, err := rpcserver.New(cfg.RPC(clientCore, logMaker.Logger("RPC")))
	if err != nil {
		return fmt.Errorf("failed to create rpc server: %w", err)
	}
	rpcCM := cashu.NewConnectionMaster(rpcSrv)
	if err := rpcCM.Connect(appCtx); err != nil {
		return fmt.Errorf("error starting rpc server: %w", err)
	}
	closer.Success()

	// Shut down on SIGINT or SIGTERM.
	killChan := make(chan os.Signal, 1)
	signal.Notify(killChan, os.Interrupt, syscall.SIGTERM)
	select {
	case sig := <-killChan:
		log.Infof("Received %s. Shutting down...", sig)
	case <-rpcCM.Done():
		log.Errorf("RPC server stopped unexpectedly")
	}

	cancel()
	rpcCM.Disconnect()
	dbRunner.WaitForShutdown()
	crypter.Close()
	log.Info("Exiting wadwallet main.")
	return nil
}

// walletPassword gets the wallet password from the config or a prompt. A new
// password is entered twice.
func walletPassword(cfg *app.Config, boltDB *bolt.BoltDB) ([]byte, error) {
	if cfg.WalletPass != "" {
		return []byte(cfg.WalletPass), nil
	}
	if _, _, err := boltDB.Seed(); err == nil {
		return app.PasswordPrompt("Wallet password: ")
	}
	return app.NewPasswordPrompt()
}

func configure() (*app.Config, error) {
	// Pre-parse the command line options to see if an alternative config file
	// or the version flag was specified. Override any environment variables
	// with parsed command line flags.
	iniCfg := app.DefaultConfig
	preCfg := iniCfg
	if err := app.ParseCLIConfig(&preCfg); err != nil {
		return nil, err
	}

	// Show the version and exit if the version flag was specified.
	if preCfg.ShowVer {
		fmt.Printf("%s version %s (Go version %s %s/%s)\n",
			strings.TrimSuffix(filepath.Base(os.Args[0]), filepath.Ext(os.Args[0])),
			app.Version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		os.Exit(0)
	}

	// If the app directory has been changed, but the config file path hasn't,
	// reform the config file path with the new directory.
	appData, configPath := app.ResolveCLIConfigPaths(&preCfg)

	// Load additional config from file.
	if err := app.ParseFileConfig(configPath, &iniCfg); err != nil {
		return nil, err
	}

	cfg := &iniCfg
	if err := app.ResolveConfig(appData, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	// Wrap the actual main so defers run in it.
	if err := mainCore(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(0)
}

func mainCore() error {
	cfg, err := configure()
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	return runCore(cfg)
}
