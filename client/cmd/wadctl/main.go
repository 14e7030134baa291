// This code is available on the terms of the project LICENSE.md file,
// also available online at https://blueoakcouncil.org/license/1.0.0.

package main

import (
	"bufio"
	"bytes"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"

	"decred.org/wadwallet/cashu/msgjson"
	"decred.org/wadwallet/client/app"
	"decred.org/wadwallet/client/rpcserver"
	"github.com/decred/go-socks/socks"
)

var version = semver{major: 0, minor: 1, patch: 0}

// semver holds wadctl's semver values.
type semver struct {
	major, minor, patch uint32
}

// String satisfies fmt.Stringer
func (s semver) String() string {
	return fmt.Sprintf("%d.%d.%d", s.major, s.minor, s.patch)
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, args, stop, err := configure()
	if err != nil {
		return fmt.Errorf("unable to configure: %v\n%s", err, showHelpMessage)
	}

	if stop {
		return nil
	}

	if len(args) < 1 {
		return fmt.Errorf("no command specified\n%s", listCmdMessage)
	}

	methodStr := args[0]
	if !rpcserver.RouteExists(methodStr) {
		return fmt.Errorf("unrecognized command %q\n%s", methodStr, listCmdMessage)
	}

	params, err := readArgs(os.Stdin, args[1:])
	if err != nil {
		return err
	}

	// Parse the arguments and convert into a type the server accepts.
	parsedArgs, err := rpcserver.ParseCmdArgs(methodStr, params)
	if err != nil {
		return fmt.Errorf("unable to parse parameters: %v", err)
	}

	if cfg.AskPass {
		pw, err := app.PasswordPrompt("RPC password: ")
		if err != nil {
			return fmt.Errorf("unable to read password: %v", err)
		}
		cfg.RPCPass = string(pw)
	}

	// Create a request using the parsedArgs.
	msg, err := msgjson.NewRequest(1, methodStr, parsedArgs)
	if err != nil {
		return fmt.Errorf("unable to create request: %v", err)
	}

	// Marshal the command into a JSON-RPC byte slice in preparation for
	// sending it to the RPC server.
	marshalledJSON, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("unable to marshal message: %v", err)
	}

	if cfg.PrintJSON {
		fmt.Println(string(marshalledJSON))
	}

	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return err
	}

	// Send the JSON-RPC request to the server using the user-specified
	// connection configuration.
	msg, err = sendPostRequest(marshalledJSON, "https://"+cfg.RPCAddr, cfg, httpClient)
	if err != nil {
		return fmt.Errorf("unable to send request: %v", err)
	}

	if cfg.PrintJSON {
		fmt.Println(msg)
	}

	// Retrieve the payload from the response.
	payload, err := msg.Response()
	if err != nil {
		return fmt.Errorf("unable to unmarshal payload: %v", err)
	}

	if payload.Error != nil {
		return payload.Error
	}

	return printResult(os.Stdout, payload.Result)
}

// readArgs reads the command's arguments. A "-" argument is replaced with the
// next line from stdin.
func readArgs(stdin io.Reader, args []string) ([]string, error) {
	bio := bufio.NewReader(stdin)
	params := make([]string, 0, len(args))
	for _, arg := range args {
		if arg == "-" {
			param, err := bio.ReadString('\n')
			if err != nil && err != io.EOF {
				return nil, fmt.Errorf("failed to read data from stdin: %v", err)
			}
			if err == io.EOF && len(param) == 0 {
				return nil, errors.New("not enough lines provided on stdin")
			}
			param = strings.TrimRight(param, "\r\n")
			params = append(params, param)
			continue
		}
		params = append(params, arg)
	}
	return params, nil
}

// printResult chooses how to display the result based on its type.
func printResult(w io.Writer, result json.RawMessage) error {
	strResult := string(result)
	if strings.HasPrefix(strResult, "{") || strings.HasPrefix(strResult, "[") {
		var dst bytes.Buffer
		if err := json.Indent(&dst, result, "", "  "); err != nil {
			return fmt.Errorf("failed to format result: %v", err)
		}
		fmt.Fprintln(w, dst.String())
	} else if strings.HasPrefix(strResult, `"`) {
		var str string
		if err := json.Unmarshal(result, &str); err != nil {
			return fmt.Errorf("failed to unmarshal result: %v", err)
		}
		fmt.Fprintln(w, str)
	} else if strResult != "null" && strResult != "" {
		fmt.Fprintln(w, strResult)
	}
	return nil
}

// newHTTPClient returns a new HTTP client that trusts the RPC certificate and
// dials through the proxy, if one is configured.
func newHTTPClient(cfg *config) (*http.Client, error) {
	// Configure TLS.
	pem, err := os.ReadFile(cfg.RPCCert)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(pem); !ok {
		return nil, fmt.Errorf("invalid certificate file: %v",
			cfg.RPCCert)
	}
	serverName := cfg.TLSServerName
	if serverName == "" {
		serverName, _, err = net.SplitHostPort(cfg.RPCAddr)
		if err != nil {
			return nil, fmt.Errorf("error parsing rpc address: %v", err)
		}
	}
	tlsConfig := &tls.Config{
		RootCAs:    pool,
		ServerName: serverName,
		MinVersion: tls.VersionTLS12,
	}

	transport := &http.Transport{
		TLSClientConfig: tlsConfig,
	}
	if cfg.Proxy != "" {
		proxy := &socks.Proxy{
			Addr:     cfg.Proxy,
			Username: cfg.ProxyUser,
			Password: cfg.ProxyPass,
		}
		transport.DialContext = proxy.DialContext
	}

	// Create and return the new HTTP client potentially configured with a
	// proxy and TLS.
	return &http.Client{Transport: transport}, nil
}

// sendPostRequest sends the marshalled JSON-RPC command using HTTP-POST mode
// to the server described in the passed config struct. It also attempts to
// unmarshal the response as a msgjson.Message response and returns either the
// response or error.
func sendPostRequest(marshalledJSON []byte, urlStr string, cfg *config, httpClient *http.Client) (*msgjson.Message, error) {
	bodyReader := bytes.NewReader(marshalledJSON)
	httpRequest, err := http.NewRequest("POST", urlStr, bodyReader)
	if err != nil {
		return nil, err
	}
	httpRequest.Close = true
	httpRequest.Header.Set("Content-Type", "application/json")

	// Configure basic access authorization.
	httpRequest.SetBasicAuth(cfg.RPCUser, cfg.RPCPass)

	httpResponse, err := httpClient.Do(httpRequest)
	if err != nil {
		return nil, err
	}

	// Read the raw bytes and close the response.
	respBytes, err := io.ReadAll(httpResponse.Body)
	httpResponse.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("error reading json reply: %v", err)
	}

	// Handle unsuccessful HTTP responses
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		// Generate a standard error to return if the server body is
		// empty.
		if len(respBytes) == 0 {
			return nil, fmt.Errorf("%d %s", httpResponse.StatusCode,
				http.StatusText(httpResponse.StatusCode))
		}
		return nil, fmt.Errorf("%s", respBytes)
	}

	// Unmarshal the response.
	resp, err := msgjson.DecodeMessage(respBytes)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
