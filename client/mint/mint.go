// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

// Package mint is the wallet's client for cashu mint REST APIs.
package mint

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"decred.org/wadwallet/cashu"
	"decred.org/wadwallet/cashu/mintnet"
	"github.com/decred/go-socks/socks"
	"golang.org/x/time/rate"
)

const (
	DefaultTimeout = 30 * time.Second
	// DefaultRate is the default per-mint request rate, in requests per
	// second.
	DefaultRate  = 10
	defaultBurst = 20
	// swapSizeLimit bounds swap responses, which may hold up to
	// cashu.MaxOutputs signatures.
	swapSizeLimit = 1 << 22
)

// Config is the Connector configuration.
type Config struct {
	// Timeout bounds every request to a mint.
	Timeout time.Duration
	// Proxy is an optional SOCKS5 proxy address, e.g. a Tor daemon.
	Proxy string
	// Rate is the maximum requests per second sent to any single mint.
	Rate float64
	// HTTPClient overrides the client built from the other settings.
	HTTPClient *http.Client
}

// Connector opens sessions with mints. A Connector is safe for concurrent
// use, and requests to the same host share a rate limiter.
type Connector struct {
	client  *http.Client
	timeout time.Duration
	rate    rate.Limit

	limiterMtx sync.Mutex
	limiters   map[string]*rate.Limiter
}

// NewConnector is the constructor for a Connector.
func NewConnector(cfg *Config) *Connector {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := cfg.Rate
	if r <= 0 {
		r = DefaultRate
	}
	client := cfg.HTTPClient
	if client == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.Proxy != "" {
			proxy := &socks.Proxy{
				Addr: cfg.Proxy,
			}
			transport.Proxy = nil
			transport.DialContext = proxy.DialContext
		} else {
			transport.DialContext = (&net.Dialer{Timeout: timeout}).DialContext
		}
		client = &http.Client{Transport: transport}
	}
	return &Connector{
		client:   client,
		timeout:  timeout,
		rate:     rate.Limit(r),
		limiters: make(map[string]*rate.Limiter),
	}
}

func (c *Connector) limiter(host string) *rate.Limiter {
	c.limiterMtx.Lock()
	defer c.limiterMtx.Unlock()
	lim, found := c.limiters[host]
	if !found {
		lim = rate.NewLimiter(c.rate, defaultBurst)
		c.limiters[host] = lim
	}
	return lim
}

// NormalizeURL checks that the mint URL is an absolute http(s) URL and strips
// trailing slashes and surrounding space. The host is lowercased.
func NormalizeURL(mintURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(mintURL))
	if err != nil {
		return "", fmt.Errorf("invalid mint url %q: %w", mintURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid mint url %q: scheme must be http or https", mintURL)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid mint url %q: no host", mintURL)
	}
	u.Host = strings.ToLower(u.Host)
	u.Path = strings.TrimRight(u.Path, "/")
	u.RawQuery, u.Fragment = "", ""
	return u.String(), nil
}

// Connect fetches the mint's info and keysets, returning a Session.
func (c *Connector) Connect(ctx context.Context, mintURL string) (*Session, error) {
	normURL, err := NormalizeURL(mintURL)
	if err != nil {
		return nil, err
	}
	u, _ := url.Parse(normURL)
	s := &Session{
		c:    c,
		url:  normURL,
		lim:  c.limiter(u.Host),
		keys: make(map[string]*Keyset),
	}

	s.info = new(Info)
	if err := s.get(ctx, InfoPath, s.info); err != nil {
		return nil, fmt.Errorf("error fetching mint info from %s: %w", normURL, err)
	}
	var ksResp KeysetsResponse
	if err := s.get(ctx, KeysetsPath, &ksResp); err != nil {
		return nil, fmt.Errorf("error fetching keysets from %s: %w", normURL, err)
	}
	s.keysets = make(map[string]*KeysetInfo, len(ksResp.Keysets))
	for _, ks := range ksResp.Keysets {
		if ks == nil || ks.ID == "" {
			return nil, fmt.Errorf("mint %s listed a keyset with no id", normURL)
		}
		s.keysets[ks.ID] = ks
		s.keysetList = append(s.keysetList, ks)
	}
	log.Debugf("Connected to mint %s (%s %s) with %d keysets", normURL, s.info.Name,
		s.info.Version, len(s.keysetList))
	return s, nil
}

// Session is a connection to a single mint. The keyset list is fixed at
// Connect time. Keys are fetched on demand and cached.
type Session struct {
	c          *Connector
	url        string
	lim        *rate.Limiter
	info       *Info
	keysets    map[string]*KeysetInfo
	keysetList []*KeysetInfo

	keysMtx sync.Mutex
	keys    map[string]*Keyset
}

// URL is the normalized mint URL.
func (s *Session) URL() string {
	return s.url
}

// Info is the mint's info.
func (s *Session) Info() *Info {
	return s.info
}

// Keysets lists the mint's keysets in the order the mint reported them.
func (s *Session) Keysets() []*KeysetInfo {
	return s.keysetList
}

// KeysetInfo looks up a keyset by id.
func (s *Session) KeysetInfo(id string) (*KeysetInfo, bool) {
	ks, found := s.keysets[id]
	return ks, found
}

// ActiveKeyset picks the active keyset for the unit with the lowest input
// fee. Ties go to the first listed.
func (s *Session) ActiveKeyset(unit cashu.Unit) (*KeysetInfo, error) {
	var best *KeysetInfo
	for _, ks := range s.keysetList {
		if !ks.Active || cashu.ParseUnit(ks.Unit) != unit {
			continue
		}
		if best == nil || ks.InputFeePPK < best.InputFeePPK {
			best = ks
		}
	}
	if best == nil {
		return nil, fmt.Errorf("mint %s has no active keyset for unit %s", s.url, unit)
	}
	return best, nil
}

// Keys fetches the keyset's public keys.
func (s *Session) Keys(ctx context.Context, id string) (*Keyset, error) {
	s.keysMtx.Lock()
	ks, found := s.keys[id]
	s.keysMtx.Unlock()
	if found {
		return ks, nil
	}

	var resp KeysResponse
	if err := s.get(ctx, KeysPath+id, &resp); err != nil {
		return nil, fmt.Errorf("error fetching keys for keyset %s from %s: %w", id, s.url, err)
	}
	for _, k := range resp.Keysets {
		if k == nil || k.ID != id {
			continue
		}
		ks, err := parseKeys(k.ID, k.Unit, k.Keys)
		if err != nil {
			return nil, err
		}
		s.keysMtx.Lock()
		s.keys[id] = ks
		s.keysMtx.Unlock()
		return ks, nil
	}
	return nil, fmt.Errorf("mint %s did not return keyset %s", s.url, id)
}

// Swap exchanges the inputs for blind signatures on the outputs. The
// signatures are returned in output order.
func (s *Session) Swap(ctx context.Context, inputs cashu.Proofs, outputs []*cashu.BlindedMessage) ([]*cashu.BlindedSignature, error) {
	if len(inputs) == 0 || len(outputs) == 0 {
		return nil, errors.New("swap needs inputs and outputs")
	}
	req := &SwapRequest{Inputs: inputs, Outputs: outputs}
	var resp SwapResponse
	if err := s.post(ctx, SwapPath, req, &resp, mintnet.WithSizeLimit(swapSizeLimit)); err != nil {
		return nil, fmt.Errorf("swap at %s failed: %w", s.url, err)
	}
	if len(resp.Signatures) != len(outputs) {
		return nil, fmt.Errorf("mint %s returned %d signatures for %d outputs",
			s.url, len(resp.Signatures), len(outputs))
	}
	for i, sig := range resp.Signatures {
		if sig == nil || sig.Amount != outputs[i].Amount || sig.ID != outputs[i].ID {
			return nil, fmt.Errorf("mint %s returned a mismatched signature at index %d", s.url, i)
		}
	}
	return resp.Signatures, nil
}

// InputFee is the fee the mint charges to spend the proofs, the sum of the
// per-proof fees in parts per thousand, rounded up.
func (s *Session) InputFee(proofs cashu.Proofs) (uint64, error) {
	var ppk uint64
	for _, p := range proofs {
		ks, found := s.keysets[p.ID]
		if !found {
			return 0, fmt.Errorf("proof from keyset %s unknown to mint %s", p.ID, s.url)
		}
		ppk += ks.InputFeePPK
	}
	return (ppk + 999) / 1000, nil
}

func (s *Session) get(ctx context.Context, path string, thing any) error {
	ctx, cancel := context.WithTimeout(ctx, s.c.timeout)
	defer cancel()
	if err := s.lim.Wait(ctx); err != nil {
		return err
	}
	return mintnet.Get(ctx, s.url+path, thing, mintnet.WithClient(s.c.client))
}

func (s *Session) post(ctx context.Context, path string, body, thing any, opts ...*mintnet.RequestOption) error {
	ctx, cancel := context.WithTimeout(ctx, s.c.timeout)
	defer cancel()
	if err := s.lim.Wait(ctx); err != nil {
		return err
	}
	opts = append(opts, mintnet.WithClient(s.c.client))
	return mintnet.Post(ctx, s.url+path, thing, body, opts...)
}
