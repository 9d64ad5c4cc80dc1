// Package api implements the client-side API for code wishing to talk to
// the jsongrammar server.
//
// The client is configured with [ClientFromEnvironment], which reads
// JSONGRAMMAR_HOST the same way the server does.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"runtime"

	"github.com/ai-den/jsongrammar/envconfig"
	"github.com/ai-den/jsongrammar/version"
)

// Client encapsulates client state for interacting with the jsongrammar
// service. Use [ClientFromEnvironment] to create new Clients.
type Client struct {
	base *url.URL
	http *http.Client
}

func checkError(resp *http.Response, body []byte) error {
	if resp.StatusCode < http.StatusBadRequest {
		return nil
	}

	apiError := StatusError{StatusCode: resp.StatusCode, Status: resp.Status}

	err := json.Unmarshal(body, &apiError)
	if err != nil {
		// Use the full body as the message if we fail to decode a response.
		apiError.ErrorMessage = string(body)
	}

	return apiError
}

// ClientFromEnvironment creates a new [Client] using configuration from the
// environment variable JSONGRAMMAR_HOST, which points to the network host
// and port on which the server listens. If the variable is not set, a
// default host and port are used.
func ClientFromEnvironment() (*Client, error) {
	host, err := envconfig.Host()
	if err != nil {
		return nil, err
	}

	return &Client{
		base: &url.URL{
			Scheme: host.Scheme,
			Host:   host.String(),
		},
		http: http.DefaultClient,
	}, nil
}

func NewClient(base *url.URL, http *http.Client) *Client {
	return &Client{
		base: base,
		http: http,
	}
}

func (c *Client) do(ctx context.Context, method, path string, reqData, respData any) error {
	var reqBody io.Reader
	var data []byte
	var err error

	switch reqData := reqData.(type) {
	case io.Reader:
		// reqData is already an io.Reader
		reqBody = reqData
	case nil:
		// noop
	default:
		data, err = json.Marshal(reqData)
		if err != nil {
			return err
		}

		reqBody = bytes.NewReader(data)
	}

	requestURL := c.base.JoinPath(path)
	request, err := http.NewRequestWithContext(ctx, method, requestURL.String(), reqBody)
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")
	request.Header.Set("User-Agent", fmt.Sprintf("jsongrammar/%s (%s %s) Go/%s", version.Version, runtime.GOARCH, runtime.GOOS, runtime.Version()))

	respObj, err := c.http.Do(request)
	if err != nil {
		return err
	}
	defer respObj.Body.Close()

	respBody, err := io.ReadAll(respObj.Body)
	if err != nil {
		return err
	}

	if err := checkError(respObj, respBody); err != nil {
		return err
	}

	if len(respBody) > 0 && respData != nil {
		if err := json.Unmarshal(respBody, respData); err != nil {
			return err
		}
	}
	return nil
}

// Grammar compiles a JSON schema into a GBNF grammar.
func (c *Client) Grammar(ctx context.Context, req *GrammarRequest) (*GrammarResponse, error) {
	var resp GrammarResponse
	if err := c.do(ctx, http.MethodPost, "/api/grammar", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Check compiles a schema and reports, for each instance, whether the
// grammar accepts it and whether the schema validates it.
func (c *Client) Check(ctx context.Context, req *CheckRequest) (*CheckResponse, error) {
	var resp CheckResponse
	if err := c.do(ctx, http.MethodPost, "/api/check", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Heartbeat checks if the server has started and is responsive; if yes, it
// returns nil, otherwise an error.
func (c *Client) Heartbeat(ctx context.Context) error {
	if err := c.do(ctx, http.MethodHead, "/", nil, nil); err != nil {
		return err
	}
	return nil
}

// Version returns the jsongrammar server version as a string.
func (c *Client) Version(ctx context.Context) (string, error) {
	var version VersionResponse
	if err := c.do(ctx, http.MethodGet, "/api/version", nil, &version); err != nil {
		return "", err
	}

	return version.Version, nil
}
