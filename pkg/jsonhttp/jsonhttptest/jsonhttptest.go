// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package jsonhttptest checks responses of the JSON HTTP API in tests.
package jsonhttptest

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/ethersphere/lottery/pkg/jsonhttp"
	"github.com/google/go-cmp/cmp"
)

type options struct {
	header       http.Header
	wantBody     []byte
	wantJSON     interface{}
	hasWantJSON  bool
	unmarshalInt interface{}
}

// Option sets a request header or a response expectation.
type Option func(*options)

// WithRequestHeader adds a header to the request.
func WithRequestHeader(key, value string) Option {
	return func(o *options) {
		if o.header == nil {
			o.header = make(http.Header)
		}
		o.header.Add(key, value)
	}
}

// WithExpectedResponse expects the exact response body.
func WithExpectedResponse(body []byte) Option {
	return func(o *options) {
		o.wantBody = body
	}
}

// WithExpectedJSONResponse expects a JSON body equal to the encoding of v.
// Objects are compared regardless of the order of their keys.
func WithExpectedJSONResponse(v interface{}) Option {
	return func(o *options) {
		o.wantJSON = v
		o.hasWantJSON = true
	}
}

// WithUnmarshalResponse decodes the JSON body into v.
func WithUnmarshalResponse(v interface{}) Option {
	return func(o *options) {
		o.unmarshalInt = v
	}
}

// Request sends a request without a body and checks the response status and
// the expectations set by the options. It returns the response headers.
func Request(t testing.TB, client *http.Client, method, url string, responseCode int, opts ...Option) http.Header {
	t.Helper()

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	req, err := http.NewRequest(method, url, nil)
	if err != nil {
		t.Fatal(err)
	}
	if o.header != nil {
		req.Header = o.header
	}
	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != responseCode {
		t.Errorf("got response status %s, want %d %s", resp.Status, responseCode, http.StatusText(responseCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}

	switch {
	case o.wantBody != nil:
		if !bytes.Equal(body, o.wantBody) {
			t.Errorf("got response %s, want %s", body, o.wantBody)
		}
	case o.hasWantJSON:
		if v := resp.Header.Get("Content-Type"); v != jsonhttp.DefaultContentTypeHeader {
			t.Errorf("got content type %q, want %q", v, jsonhttp.DefaultContentTypeHeader)
		}
		want, err := json.Marshal(o.wantJSON)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(decode(t, want), decode(t, body)); diff != "" {
			t.Errorf("json response mismatch (-want +got):\n%s", diff)
		}
	case o.unmarshalInt != nil:
		if err := json.Unmarshal(body, o.unmarshalInt); err != nil {
			t.Fatalf("unmarshal response %s: %v", body, err)
		}
	}
	return resp.Header
}

func decode(t testing.TB, data []byte) interface{} {
	t.Helper()

	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("invalid json %s: %v", data, err)
	}
	return v
}
