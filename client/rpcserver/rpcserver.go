// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package rpcserver serves the wallet's JSON-RPC API over HTTPS.
package rpcserver

import (
	"context"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/subtle"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/msgjson"
	"decred.org/wadwallet/client/core"
	"github.com/decred/dcrd/certgen"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const (
	// rpcSemverMajor is bumped when a route changes incompatibly.
	rpcSemverMajor uint32 = 0
	rpcSemverMinor uint32 = 1
	rpcSemverPatch uint32 = 0

	// rpcTimeout bounds reading a request and writing its response. Wad
	// operations make several mint round trips.
	rpcTimeout = 2 * time.Minute
	// maxRequestSize is the largest request body accepted. Wad bundles can
	// be large.
	maxRequestSize = 1 << 22
)

var (
	// errUnknownCmd is wrapped when the command is not known.
	errUnknownCmd = errors.New("unknown command")
)

// clientCore is satisfied by core.Core.
type clientCore interface {
	Balances(ctx context.Context) ([]*core.MintBalances, error)
	ReceiveWads(ctx context.Context, wads string) ([]*core.WadReceptionInfo, error)
	CreateWads(ctx context.Context, amount, asset string) (string, error)
	History(ctx context.Context, n int) ([]*core.WadHistoryEntry, error)
	ExportSeed(ctx context.Context) (*core.SeedExport, error)
}

var _ clientCore = (*core.Core)(nil)

// RPCServer is a single-client https server.
type RPCServer struct {
	core      clientCore
	mux       *chi.Mux
	addr      string
	tlsConfig *tls.Config
	srv       *http.Server
	authSHA   [32]byte
	appVer    string
}

// Config holds variables needed to create a new RPC Server.
type Config struct {
	Core                        clientCore
	Addr, User, Pass, Cert, Key string
	// AppVersion is the version reported by the version route.
	AppVersion string
	// CertHosts are extra host names for a generated certificate.
	CertHosts []string
}

// fileExists reports whether the named file or directory exists.
func fileExists(name string) bool {
	_, err := os.Stat(name)
	return !os.IsNotExist(err)
}

// genCertPair generates a key/cert pair to the paths provided.
func genCertPair(certFile, keyFile string, hosts []string) error {
	log.Infof("Generating TLS certificates...")

	org := "wadwallet autogenerated cert"
	validUntil := time.Now().Add(10 * 365 * 24 * time.Hour)
	cert, key, err := certgen.NewTLSCertPair(elliptic.P521(), org,
		validUntil, hosts)
	if err != nil {
		return err
	}

	// Write cert and key files.
	if err = os.WriteFile(certFile, cert, 0644); err != nil {
		return err
	}
	if err = os.WriteFile(keyFile, key, 0600); err != nil {
		os.Remove(certFile)
		return err
	}

	log.Infof("Done generating TLS certificates")
	return nil
}

// New is the constructor for an RPCServer. A self-signed certificate is
// generated if neither the certificate nor the key exist.
func New(cfg *Config) (*RPCServer, error) {
	if cfg.Core == nil {
		return nil, errors.New("no core")
	}
	if cfg.Pass == "" {
		return nil, errors.New("missing rpc password")
	}

	// Find or create the key pair.
	keyExists := fileExists(cfg.Key)
	certExists := fileExists(cfg.Cert)
	if certExists == !keyExists {
		return nil, errors.New("missing cert pair file")
	}
	if !keyExists && !certExists {
		hosts := cfg.CertHosts
		if h := hostPort(cfg.Addr); h != "" {
			hosts = append(hosts, h)
		}
		if err := genCertPair(cfg.Cert, cfg.Key, hosts); err != nil {
			return nil, err
		}
	}
	keypair, err := tls.LoadX509KeyPair(cfg.Cert, cfg.Key)
	if err != nil {
		return nil, err
	}

	// Prepare the TLS configuration.
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{keypair},
		MinVersion:   tls.VersionTLS12,
	}

	// Create an HTTP router.
	mux := chi.NewRouter()
	httpServer := &http.Server{
		Handler:      mux,
		ReadTimeout:  rpcTimeout, // slow requests should not hold connections opened
		WriteTimeout: rpcTimeout, // hung responses must die
	}

	// Make the server.
	s := &RPCServer{
		core:      cfg.Core,
		mux:       mux,
		srv:       httpServer,
		addr:      cfg.Addr,
		tlsConfig: tlsConfig,
		appVer:    cfg.AppVersion,
	}

	// Create the SHA256 hash of the auth string for comparison with the
	// client's Authorization header.
	login := cfg.User + ":" + cfg.Pass
	auth := "Basic " + base64.StdEncoding.EncodeToString([]byte(login))
	s.authSHA = sha256.Sum256([]byte(auth))

	// Middleware
	mux.Use(middleware.Recoverer)
	mux.Use(middleware.RealIP)
	mux.Use(s.authMiddleware)
	mux.Use(middleware.RequestSize(maxRequestSize))

	// The RPC handler.
	mux.Post("/", s.handleJSON)

	return s, nil
}

// Connect starts the RPC server. Satisfies the cashu.Connector interface.
func (s *RPCServer) Connect(ctx context.Context) (*sync.WaitGroup, error) {
	// Create listener.
	listener, err := tls.Listen("tcp", s.addr, s.tlsConfig)
	if err != nil {
		return nil, fmt.Errorf("can't listen on %s. rpc server quitting: %w", s.addr, err)
	}
	// Update the listening address in case a :0 was provided.
	s.addr = listener.Addr().String()

	// Close the listener on context cancellation.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		<-ctx.Done()

		if err := s.srv.Shutdown(context.Background()); err != nil {
			// Error from closing listeners:
			log.Errorf("HTTP server Shutdown: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := s.srv.Serve(listener); !errors.Is(err, http.ErrServerClosed) {
			log.Warnf("unexpected (http.Server).Serve error: %v", err)
		}
		log.Infof("RPC server off")
	}()
	log.Infof("RPC server listening on %s", s.addr)
	return &wg, nil
}

var _ cashu.Connector = (*RPCServer)(nil)

// Addr is the listening address. After Connect, a :0 port is resolved.
func (s *RPCServer) Addr() string {
	return s.addr
}

// handleJSON handles all https json requests.
func (s *RPCServer) handleJSON(w http.ResponseWriter, r *http.Request) {
	// Every request gets its own connection.
	w.Header().Set("Connection", "close")
	w.Header().Set("Content-Type", "application/json")
	r.Close = true

	body, err := io.ReadAll(r.Body)
	r.Body.Close()
	if err != nil {
		http.Error(w, "error reading request body", http.StatusBadRequest)
		return
	}
	req, err := msgjson.DecodeMessage(body)
	if err != nil {
		http.Error(w, "JSON decode error", http.StatusUnprocessableEntity)
		return
	}
	if req.Type != msgjson.Request {
		http.Error(w, "Responses not accepted", http.StatusMethodNotAllowed)
		return
	}
	// A client hanging up must not interrupt a wad operation between its mint
	// and ledger steps.
	s.parseHTTPRequest(context.WithoutCancel(r.Context()), w, req)
}

// parseHTTPRequest parses the msgjson message in the request body, creates a
// response message, and writes it to the http.ResponseWriter.
func (s *RPCServer) parseHTTPRequest(ctx context.Context, w http.ResponseWriter, req *msgjson.Message) {
	payload := s.handleRequest(ctx, req)
	resp, err := msgjson.NewResponse(req.ID, payload.Result, payload.Error)
	if err != nil {
		msg := fmt.Sprintf("error encoding response: %v", err)
		http.Error(w, msg, http.StatusInternalServerError)
		log.Errorf("parseHTTPRequest: NewResponse failed: %s", msg)
		return
	}
	writeJSON(w, resp)
}

// handleRequest sends the request to the correct handler function if able.
func (s *RPCServer) handleRequest(ctx context.Context, req *msgjson.Message) *msgjson.ResponsePayload {
	payload := new(msgjson.ResponsePayload)
	if req.Route == "" {
		log.Debugf("route not specified")
		payload.Error = msgjson.NewError(msgjson.RPCUnknownRoute, "no route was supplied")
		return payload
	}

	// Find the correct handler for this route.
	h, exists := routes[req.Route]
	if !exists {
		log.Debugf("%v: %v", errUnknownCmd, req.Route)
		payload.Error = msgjson.NewError(msgjson.RPCUnknownRoute, "%s", errUnknownCmd.Error())
		return payload
	}

	params := new(RawParams)
	if len(req.Payload) > 0 {
		if err := req.Unmarshal(params); err != nil {
			log.Debugf("cannot unmarshal params for route %s", req.Route)
			payload.Error = msgjson.NewError(msgjson.RPCParseError, "unable to unmarshal request")
			return payload
		}
	}

	log.Tracef("Handling %s request", req.Route)
	return h(ctx, s, params)
}

// authMiddleware checks incoming requests for authentication.
func (s *RPCServer) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header["Authorization"]
		if len(auth) == 0 {
			log.Warnf("authentication failure from ip: %s with auth: none", r.RemoteAddr)
			w.Header().Add("WWW-Authenticate", `Basic realm="wadwallet RPC"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		authSHA := sha256.Sum256([]byte(auth[0]))
		if subtle.ConstantTimeCompare(s.authSHA[:], authSHA[:]) != 1 {
			log.Warnf("authentication failure from ip: %s", r.RemoteAddr)
			w.Header().Add("WWW-Authenticate", `Basic realm="wadwallet RPC"`)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// writeJSON marshals the provided interface and writes the bytes to the
// ResponseWriter.
func writeJSON(w http.ResponseWriter, thing any) {
	b, err := json.Marshal(thing)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		log.Errorf("JSON encode error: %v", err)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, err = w.Write(append(b, byte('\n')))
	if err != nil {
		log.Errorf("Write error: %v", err)
	}
}

// hostPort splits a listen address for the certificate host list.
func hostPort(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
