// Package ipfs talks to a Kubo-compatible RPC endpoint (a local node or a pinning
// service exposing the same API) and, optionally, fetches through an HTTP gateway.
package ipfs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mlayerprotocol/go-airdrop/common/apperror"
	"github.com/mlayerprotocol/go-airdrop/pkg/log"
	"github.com/mlayerprotocol/go-airdrop/pkg/storage"
)

var logger = &log.Logger

// MaxDocumentSize bounds how much of a fetched document is read.
const MaxDocumentSize = 256 << 20

const defaultRequestTimeout = 60 * time.Second

type Options struct {
	APIURL     string
	GatewayURL string
	AuthToken  string
	// RequestTimeout bounds add, cat, gateway and pin/rm calls. The pin/ls
	// stream is only bounded until its response headers arrive; after that it
	// lives as long as the caller's context.
	RequestTimeout time.Duration
	HTTPClient     *http.Client
}

type Client struct {
	api     *url.URL
	gateway *url.URL
	token   string
	timeout time.Duration
	http    *http.Client
}

var _ storage.Store = (*Client)(nil)

func New(opts Options) (*Client, error) {
	api, err := url.Parse(strings.TrimRight(opts.APIURL, "/"))
	if err != nil || api.Scheme == "" || api.Host == "" {
		return nil, fmt.Errorf("ipfs: invalid api url %q", opts.APIURL)
	}
	c := &Client{api: api, token: opts.AuthToken, timeout: opts.RequestTimeout, http: opts.HTTPClient}
	if c.timeout <= 0 {
		c.timeout = defaultRequestTimeout
	}
	if opts.GatewayURL != "" {
		gw, err := url.Parse(strings.TrimRight(opts.GatewayURL, "/"))
		if err != nil || gw.Scheme == "" || gw.Host == "" {
			return nil, fmt.Errorf("ipfs: invalid gateway url %q", opts.GatewayURL)
		}
		c.gateway = gw
	}
	if c.http == nil {
		// no Client.Timeout: it would also cut off the streamed pin listing
		transport := http.DefaultTransport.(*http.Transport).Clone()
		transport.ResponseHeaderTimeout = c.timeout
		c.http = &http.Client{Transport: transport}
	}
	return c, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

type rpcError struct {
	Message string `json:"Message"`
	Code    int    `json:"Code"`
	Type    string `json:"Type"`
}

func (c *Client) rpcURL(command string, args url.Values) string {
	u := *c.api
	u.Path = u.Path + "/api/v0/" + command
	u.RawQuery = args.Encode()
	return u.String()
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode/100 != 2 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var rerr rpcError
		if json.Unmarshal(body, &rerr) == nil && rerr.Message != "" {
			return nil, fmt.Errorf("%s (status %d)", rerr.Message, resp.StatusCode)
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return resp, nil
}

type addResponse struct {
	Name string `json:"Name"`
	Hash string `json:"Hash"`
	Size string `json:"Size"`
}

// Publish adds data as a single file and pins it.
func (c *Client) Publish(ctx context.Context, data []byte) (storage.Reference, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "balance-map.json")
	if err != nil {
		return storage.Reference{}, apperror.InternalError("ipfs: build add request", err)
	}
	if _, err := part.Write(data); err != nil {
		return storage.Reference{}, apperror.InternalError("ipfs: build add request", err)
	}
	if err := mw.Close(); err != nil {
		return storage.Reference{}, apperror.InternalError("ipfs: build add request", err)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL("add", url.Values{"pin": {"true"}}), &body)
	if err != nil {
		return storage.Reference{}, apperror.InternalError("ipfs: build add request", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := c.do(req)
	if err != nil {
		return storage.Reference{}, apperror.Unavailable("ipfs: add", err)
	}
	defer resp.Body.Close()
	var added addResponse
	if err := json.NewDecoder(resp.Body).Decode(&added); err != nil {
		return storage.Reference{}, apperror.Unavailable("ipfs: decode add response", err)
	}
	ref, err := storage.ParseReference(added.Hash)
	if err != nil {
		return storage.Reference{}, apperror.Unavailable("ipfs: add returned an invalid reference", err)
	}
	logger.Infof("ipfs: published %s (%d bytes)", ref, len(data))
	return ref, nil
}

// Fetch reads a document through the gateway when one is configured, otherwise
// through the RPC cat command.
func (c *Client) Fetch(ctx context.Context, ref storage.Reference) ([]byte, error) {
	if !ref.Defined() {
		return nil, apperror.Reference("ipfs: undefined reference", nil)
	}
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	var req *http.Request
	var err error
	if c.gateway != nil {
		u := *c.gateway
		u.Path = u.Path + "/ipfs/" + ref.String()
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL("cat", url.Values{"arg": {ref.String()}}), nil)
	}
	if err != nil {
		return nil, apperror.InternalError("ipfs: build fetch request", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return nil, apperror.Unavailable(fmt.Sprintf("ipfs: fetch %s", ref), err)
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, apperror.Unavailable(fmt.Sprintf("ipfs: read %s", ref), err)
	}
	if len(data) > MaxDocumentSize {
		return nil, apperror.Unavailable(fmt.Sprintf("ipfs: %s exceeds %d bytes", ref, MaxDocumentSize), nil)
	}
	return data, nil
}

type pinEntry struct {
	Cid  string `json:"Cid"`
	Type string `json:"Type"`
}

// ListPinned streams recursive pins. The response is consumed lazily, one
// reference per line, so it stays open for as long as the caller takes to
// consume it; only ctx ends it.
func (c *Client) ListPinned(ctx context.Context) iter.Seq2[storage.Reference, error] {
	return func(yield func(storage.Reference, error) bool) {
		args := url.Values{"type": {"recursive"}, "stream": {"true"}}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL("pin/ls", args), nil)
		if err != nil {
			yield(storage.Reference{}, apperror.InternalError("ipfs: build pin/ls request", err))
			return
		}
		resp, err := c.do(req)
		if err != nil {
			yield(storage.Reference{}, apperror.Unavailable("ipfs: pin/ls", err))
			return
		}
		defer resp.Body.Close()
		dec := json.NewDecoder(resp.Body)
		for {
			var entry pinEntry
			err := dec.Decode(&entry)
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(storage.Reference{}, apperror.Unavailable("ipfs: decode pin/ls stream", err))
				return
			}
			ref, err := storage.ParseReference(entry.Cid)
			if err != nil {
				logger.Warnf("ipfs: skipping malformed pin %q", entry.Cid)
				continue
			}
			if !yield(ref, nil) {
				return
			}
		}
	}
}

// Unpin removes a recursive pin on the node.
func (c *Client) Unpin(ctx context.Context, ref storage.Reference) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.rpcURL("pin/rm", url.Values{"arg": {ref.String()}}), nil)
	if err != nil {
		return apperror.InternalError("ipfs: build pin/rm request", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return apperror.Unavailable(fmt.Sprintf("ipfs: unpin %s", ref), err)
	}
	resp.Body.Close()
	return nil
}
