// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package verify_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/verify"
	"github.com/google/go-cmp/cmp"
)

type explorer struct {
	mu       sync.Mutex
	submit   func(r *http.Request) map[string]string
	statuses []string
	forms    []map[string]string
	polls    int
}

func (e *explorer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var resp map[string]string
	switch r.Form.Get("action") {
	case "verifysourcecode":
		form := make(map[string]string)
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		e.forms = append(e.forms, form)
		resp = e.submit(r)
	case "checkverifystatus":
		status := e.statuses[e.polls]
		e.polls++
		resp = map[string]string{"status": "1", "message": "OK", "result": status}
		if status != "Pass - Verified" && status != "Pending in queue" {
			resp["status"] = "0"
		}
	default:
		http.Error(w, "unknown action", http.StatusBadRequest)
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

func accepted(*http.Request) map[string]string {
	return map[string]string{"status": "1", "message": "OK", "result": "guid-1"}
}

var artifact = &contracts.Artifact{
	Name:       "Lottery",
	SourceName: "contracts/Lottery.sol",
	BuildInfo: &contracts.BuildInfo{
		SolcVersion:     "0.8.7",
		SolcLongVersion: "0.8.7+commit.e28d00a7",
		Input:           json.RawMessage(`{"language":"Solidity"}`),
	},
}

func newClient(t *testing.T, e *explorer) *verify.Client {
	t.Helper()
	server := httptest.NewServer(e)
	t.Cleanup(server.Close)
	return verify.New(log.Noop, verify.Options{
		APIURL:            server.URL,
		APIKey:            "key",
		RequestsPerSecond: 1000,
		PollInterval:      time.Millisecond,
		MaxPolls:          3,
	})
}

func TestVerify(t *testing.T) {
	t.Parallel()

	address := common.HexToAddress("0xabcd")

	for _, tc := range []struct {
		name     string
		submit   func(*http.Request) map[string]string
		statuses []string
		wantErr  error
		polls    int
	}{
		{
			name:     "verified",
			submit:   accepted,
			statuses: []string{"Pending in queue", "Pass - Verified"},
			polls:    2,
		},
		{
			name: "already verified on submit",
			submit: func(*http.Request) map[string]string {
				return map[string]string{"status": "0", "message": "NOTOK", "result": "Contract source code already verified"}
			},
		},
		{
			name: "rejected",
			submit: func(*http.Request) map[string]string {
				return map[string]string{"status": "0", "message": "NOTOK", "result": "Invalid API Key"}
			},
			wantErr: verify.ErrVerificationFailed,
		},
		{
			name:     "failed",
			submit:   accepted,
			statuses: []string{"Fail - Unable to verify"},
			wantErr:  verify.ErrVerificationFailed,
			polls:    1,
		},
		{
			name:     "timeout",
			submit:   accepted,
			statuses: []string{"Pending in queue", "Pending in queue", "Pending in queue"},
			wantErr:  verify.ErrTimeout,
			polls:    3,
		},
	} {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			e := &explorer{submit: tc.submit, statuses: tc.statuses}
			c := newClient(t, e)

			err := c.Verify(context.Background(), address, artifact, []byte{0x01, 0x02})
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("got error %v, want %v", err, tc.wantErr)
			}
			if e.polls != tc.polls {
				t.Fatalf("got %d status polls, want %d", e.polls, tc.polls)
			}

			want := map[string]string{
				"apikey":                "key",
				"module":                "contract",
				"action":                "verifysourcecode",
				"contractaddress":       address.Hex(),
				"sourceCode":            `{"language":"Solidity"}`,
				"codeformat":            "solidity-standard-json-input",
				"contractname":          "contracts/Lottery.sol:Lottery",
				"compilerversion":       "v0.8.7+commit.e28d00a7",
				"constructorArguements": "0102",
			}
			if len(e.forms) != 1 {
				t.Fatalf("got %d submissions, want 1", len(e.forms))
			}
			if diff := cmp.Diff(want, e.forms[0]); diff != "" {
				t.Fatalf("submission mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestVerifyNoBuildInfo(t *testing.T) {
	t.Parallel()

	c := newClient(t, &explorer{submit: accepted})
	err := c.Verify(context.Background(), common.Address{}, &contracts.Artifact{Name: "Native"}, nil)
	if !errors.Is(err, verify.ErrNoBuildInfo) {
		t.Fatalf("got error %v, want %v", err, verify.ErrNoBuildInfo)
	}
}

func TestAPIURL(t *testing.T) {
	t.Parallel()

	if u, ok := verify.APIURL(11155111); !ok || u != "https://api-sepolia.etherscan.io/api" {
		t.Fatalf("got %q %v", u, ok)
	}
	if _, ok := verify.APIURL(31337); ok {
		t.Fatal("unexpected explorer for the development chain")
	}
}
