// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package verify publishes contract sources on Etherscan compatible block
// explorers.
package verify

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/log"
	"golang.org/x/time/rate"
)

const loggerName = "verify"

const (
	statusOK = "1"

	resultPending         = "Pending in queue"
	resultVerified        = "Pass - Verified"
	resultAlreadyVerified = "already verified"

	codeFormat = "solidity-standard-json-input"
)

var (
	ErrVerificationFailed = errors.New("verification failed")
	ErrNoBuildInfo        = errors.New("artifact has no build info")
	ErrTimeout            = errors.New("verification did not finish in time")
)

// apiURLs are the explorer endpoints by chain id.
var apiURLs = map[int64]string{
	1:        "https://api.etherscan.io/api",
	5:        "https://api-goerli.etherscan.io/api",
	11155111: "https://api-sepolia.etherscan.io/api",
}

// APIURL returns the explorer endpoint of the chain.
func APIURL(chainID int64) (string, bool) {
	u, ok := apiURLs[chainID]
	return u, ok
}

type Options struct {
	APIURL     string
	APIKey     string
	HTTPClient *http.Client
	// RequestsPerSecond limits the request rate. The free Etherscan plan
	// allows five.
	RequestsPerSecond float64
	PollInterval      time.Duration
	MaxPolls          int
}

// Client verifies contracts through the Etherscan API.
type Client struct {
	logger       log.Logger
	httpClient   *http.Client
	apiURL       string
	apiKey       string
	limiter      *rate.Limiter
	pollInterval time.Duration
	maxPolls     int
	metrics      metrics
}

func New(logger log.Logger, o Options) *Client {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.RequestsPerSecond == 0 {
		o.RequestsPerSecond = 5
	}
	if o.PollInterval == 0 {
		o.PollInterval = 5 * time.Second
	}
	if o.MaxPolls == 0 {
		o.MaxPolls = 60
	}
	return &Client{
		logger:       logger.WithName(loggerName).Register(),
		httpClient:   o.HTTPClient,
		apiURL:       o.APIURL,
		apiKey:       o.APIKey,
		limiter:      rate.NewLimiter(rate.Limit(o.RequestsPerSecond), 1),
		pollInterval: o.PollInterval,
		maxPolls:     o.MaxPolls,
		metrics:      newMetrics(),
	}
}

type response struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

// Verify submits the source of the artifact deployed at address and waits
// until the explorer has processed it. A contract that is already verified
// is not an error.
func (c *Client) Verify(ctx context.Context, address common.Address, artifact *contracts.Artifact, constructorArgs []byte) error {
	if artifact.BuildInfo == nil {
		return fmt.Errorf("%s: %w", artifact.Name, ErrNoBuildInfo)
	}
	c.metrics.Submissions.Inc()

	form := url.Values{
		"apikey":                {c.apiKey},
		"module":                {"contract"},
		"action":                {"verifysourcecode"},
		"contractaddress":       {address.Hex()},
		"sourceCode":            {string(artifact.BuildInfo.Input)},
		"codeformat":            {codeFormat},
		"contractname":          {artifact.SourceName + ":" + artifact.Name},
		"compilerversion":       {"v" + artifact.BuildInfo.SolcLongVersion},
		"constructorArguements": {hex.EncodeToString(constructorArgs)},
	}
	resp, err := c.do(ctx, http.MethodPost, form)
	if err != nil {
		c.metrics.Failures.Inc()
		return err
	}
	if resp.Status != statusOK {
		if isAlreadyVerified(resp.Result) {
			c.logger.Info("contract already verified", "address", address)
			return nil
		}
		c.metrics.Failures.Inc()
		return fmt.Errorf("%w: %s", ErrVerificationFailed, resp.Result)
	}

	guid := resp.Result
	c.logger.Debug("verification submitted", "address", address, "guid", guid)

	for i := 0; i < c.maxPolls; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}

		resp, err := c.do(ctx, http.MethodGet, url.Values{
			"apikey": {c.apiKey},
			"module": {"contract"},
			"action": {"checkverifystatus"},
			"guid":   {guid},
		})
		if err != nil {
			c.metrics.Failures.Inc()
			return err
		}
		switch {
		case resp.Result == resultPending:
			continue
		case resp.Result == resultVerified, isAlreadyVerified(resp.Result):
			c.metrics.Verified.Inc()
			c.logger.Info("contract verified", "address", address, "contract", artifact.Name)
			return nil
		default:
			c.metrics.Failures.Inc()
			return fmt.Errorf("%w: %s", ErrVerificationFailed, resp.Result)
		}
	}
	c.metrics.Failures.Inc()
	return ErrTimeout
}

func isAlreadyVerified(result string) bool {
	return strings.Contains(strings.ToLower(result), resultAlreadyVerified)
}

func (c *Client) do(ctx context.Context, method string, values url.Values) (*response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		req *http.Request
		err error
	)
	if method == http.MethodPost {
		req, err = http.NewRequestWithContext(ctx, method, c.apiURL, strings.NewReader(values.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.apiURL+"?"+values.Encode(), nil)
	}
	if err != nil {
		return nil, err
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("explorer request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer request: unexpected status %s", res.Status)
	}
	var r response
	if err := json.NewDecoder(res.Body).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode explorer response: %w", err)
	}
	return &r, nil
}
