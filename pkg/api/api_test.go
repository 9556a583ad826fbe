// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package api_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery"
	"github.com/ethersphere/lottery/pkg/api"
	"github.com/ethersphere/lottery/pkg/deploy"
	"github.com/ethersphere/lottery/pkg/jsonhttp"
	"github.com/ethersphere/lottery/pkg/jsonhttp/jsonhttptest"
	"github.com/ethersphere/lottery/pkg/log"
	plottery "github.com/ethersphere/lottery/pkg/lottery"
	"github.com/ethersphere/lottery/pkg/lottery/mock"
	"resenje.org/web"
)

type deploymentsMock struct {
	deployments []deploy.Deployment
	err         error
}

func (d deploymentsMock) Get(name string) (*deploy.Deployment, error) {
	if d.err != nil {
		return nil, d.err
	}
	for _, dep := range d.deployments {
		if dep.Name == name {
			dep := dep
			return &dep, nil
		}
	}
	return nil, deploy.ErrDeploymentNotFound
}

func (d deploymentsMock) All() ([]deploy.Deployment, error) {
	return d.deployments, d.err
}

type testServerOptions struct {
	Lottery            plottery.Interface
	Deployments        api.DeploymentReader
	CORSAllowedOrigins []string
	Unconfigured       bool
}

func newTestServer(t *testing.T, o testServerOptions) *http.Client {
	t.Helper()

	s := api.New(log.Noop, api.Options{
		Network:            "hardhat",
		CORSAllowedOrigins: o.CORSAllowedOrigins,
	})
	if !o.Unconfigured {
		if o.Lottery == nil {
			o.Lottery = mock.New()
		}
		if o.Deployments == nil {
			o.Deployments = deploymentsMock{}
		}
		s.Configure(o.Lottery, o.Deployments)
	}
	ts := httptest.NewServer(s)
	t.Cleanup(ts.Close)

	return &http.Client{
		Transport: web.RoundTripperFunc(func(r *http.Request) (*http.Response, error) {
			u, err := url.Parse(ts.URL + r.URL.String())
			if err != nil {
				return nil, err
			}
			r.URL = u
			return ts.Client().Transport.RoundTrip(r)
		}),
	}
}

func TestHealth(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, testServerOptions{Unconfigured: true})

	jsonhttptest.Request(t, client, http.MethodGet, "/health", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(struct {
			Status  string `json:"status"`
			Version string `json:"version"`
			Network string `json:"network"`
		}{"ok", lottery.Version, "hardhat"}),
	)
}

func TestUnconfigured(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, testServerOptions{Unconfigured: true})

	jsonhttptest.Request(t, client, http.MethodGet, "/lottery", http.StatusNotFound,
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: http.StatusText(http.StatusNotFound),
			Code:    http.StatusNotFound,
		}),
	)
}

func TestMetrics(t *testing.T) {
	t.Parallel()

	client := newTestServer(t, testServerOptions{})
	jsonhttptest.Request(t, client, http.MethodGet, "/health", http.StatusOK)

	resp, err := client.Get("/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		`lottery_api_request_count`,
		`lottery_api_response_code_count{code="200",method="GET"}`,
		fmt.Sprintf(`lottery_info{version=%q}`, lottery.Version),
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("metrics do not contain %s", want)
		}
	}
}

func TestLotteryStatus(t *testing.T) {
	t.Parallel()

	status := &plottery.Status{
		Address:          common.HexToAddress("0x1"),
		State:            plottery.StateOpen,
		EntranceFee:      big.NewInt(1e16),
		Interval:         big.NewInt(30),
		LastTimestamp:    big.NewInt(1_650_000_000),
		Players:          []common.Address{common.HexToAddress("0xa")},
		Balance:          big.NewInt(1e16),
		VRFCoordinator:   common.HexToAddress("0xc"),
		SubscriptionID:   1,
		CallbackGasLimit: 500000,
	}

	t.Run("ok", func(t *testing.T) {
		t.Parallel()

		client := newTestServer(t, testServerOptions{
			Lottery: mock.New(mock.WithStatusFunc(func(context.Context) (*plottery.Status, error) {
				return status, nil
			})),
		})
		jsonhttptest.Request(t, client, http.MethodGet, "/lottery", http.StatusOK,
			jsonhttptest.WithExpectedJSONResponse(status),
		)
	})

	t.Run("backend error", func(t *testing.T) {
		t.Parallel()

		client := newTestServer(t, testServerOptions{
			Lottery: mock.New(mock.WithStatusFunc(func(context.Context) (*plottery.Status, error) {
				return nil, errors.New("backend down")
			})),
		})
		jsonhttptest.Request(t, client, http.MethodGet, "/lottery", http.StatusInternalServerError,
			jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
				Message: "lottery status unavailable",
				Code:    http.StatusInternalServerError,
			}),
		)
	})

	t.Run("method not allowed", func(t *testing.T) {
		t.Parallel()

		client := newTestServer(t, testServerOptions{})
		jsonhttptest.Request(t, client, http.MethodPost, "/lottery", http.StatusMethodNotAllowed)
	})
}

func TestLotteryPlayer(t *testing.T) {
	t.Parallel()

	player := common.HexToAddress("0xa")
	client := newTestServer(t, testServerOptions{
		Lottery: mock.New(mock.WithPlayerFunc(func(_ context.Context, index uint64) (common.Address, error) {
			switch index {
			case 0:
				return player, nil
			case 1:
				return common.Address{}, plottery.ErrIndexOutOfRange
			default:
				return common.Address{}, errors.New("backend down")
			}
		})),
	})

	jsonhttptest.Request(t, client, http.MethodGet, "/lottery/players/0", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(struct {
			Index   uint64         `json:"index"`
			Address common.Address `json:"address"`
		}{0, player}),
	)
	jsonhttptest.Request(t, client, http.MethodGet, "/lottery/players/1", http.StatusNotFound,
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: "player not found",
			Code:    http.StatusNotFound,
		}),
	)
	jsonhttptest.Request(t, client, http.MethodGet, "/lottery/players/2", http.StatusInternalServerError)
	jsonhttptest.Request(t, client, http.MethodGet, "/lottery/players/first", http.StatusBadRequest,
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: "invalid player index",
			Code:    http.StatusBadRequest,
		}),
	)
}

func TestDeployments(t *testing.T) {
	t.Parallel()

	deployments := []deploy.Deployment{
		{Name: "Lottery", Contract: "Lottery", Network: "hardhat", Address: common.HexToAddress("0x2"), GasUsed: 10},
		{Name: "VRFCoordinatorV2Mock", Contract: "VRFCoordinatorV2Mock", Network: "hardhat", Address: common.HexToAddress("0x1"), GasUsed: 20},
	}
	client := newTestServer(t, testServerOptions{
		Deployments: deploymentsMock{deployments: deployments},
	})

	var list struct {
		Deployments []deploy.Deployment `json:"deployments"`
	}
	jsonhttptest.Request(t, client, http.MethodGet, "/deployments", http.StatusOK,
		jsonhttptest.WithUnmarshalResponse(&list),
	)
	if len(list.Deployments) != 2 || list.Deployments[0].Address != deployments[0].Address {
		t.Fatalf("got deployments %+v", list.Deployments)
	}

	jsonhttptest.Request(t, client, http.MethodGet, "/deployments/Lottery", http.StatusOK,
		jsonhttptest.WithExpectedJSONResponse(deployments[0]),
	)
	jsonhttptest.Request(t, client, http.MethodGet, "/deployments/Token", http.StatusNotFound,
		jsonhttptest.WithExpectedJSONResponse(jsonhttp.StatusResponse{
			Message: "deployment not found",
			Code:    http.StatusNotFound,
		}),
	)

	t.Run("empty", func(t *testing.T) {
		t.Parallel()

		client := newTestServer(t, testServerOptions{})
		jsonhttptest.Request(t, client, http.MethodGet, "/deployments", http.StatusOK,
			jsonhttptest.WithExpectedResponse([]byte(`{"deployments":[]}`+"\n")),
		)
	})
}

func TestCORS(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		name    string
		allowed []string
		origin  string
		want    string
	}{
		{name: "any origin", origin: "http://localhost:3000", want: "http://localhost:3000"},
		{name: "allowed", allowed: []string{"http://app"}, origin: "http://app", want: "http://app"},
		{name: "not allowed", allowed: []string{"http://app"}, origin: "http://other"},
		{name: "wildcard", allowed: []string{"*"}, origin: "http://other", want: "http://other"},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			client := newTestServer(t, testServerOptions{CORSAllowedOrigins: tc.allowed})
			header := jsonhttptest.Request(t, client, http.MethodGet, "/health", http.StatusOK,
				jsonhttptest.WithRequestHeader("Origin", tc.origin),
			)
			if got := header.Get("Access-Control-Allow-Origin"); got != tc.want {
				t.Fatalf("got allowed origin %q, want %q", got, tc.want)
			}
		})
	}
}
