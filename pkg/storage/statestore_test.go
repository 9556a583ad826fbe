// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package storage_test

import (
	"testing"

	"github.com/ethersphere/lottery/pkg/storage"
	"github.com/google/go-cmp/cmp"
)

type binaryValue struct {
	v string
}

func (b *binaryValue) MarshalBinary() ([]byte, error) {
	return []byte("bin:" + b.v), nil
}

func (b *binaryValue) UnmarshalBinary(data []byte) error {
	b.v = string(data[len("bin:"):])
	return nil
}

func TestMarshal(t *testing.T) {
	t.Parallel()

	t.Run("binary", func(t *testing.T) {
		t.Parallel()

		data, err := storage.Marshal(&binaryValue{v: "value"})
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "bin:value" {
			t.Fatalf("got %q, want binary encoding", data)
		}
		var got binaryValue
		if err := storage.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if got.v != "value" {
			t.Fatalf("got %q, want %q", got.v, "value")
		}
	})

	t.Run("json", func(t *testing.T) {
		t.Parallel()

		type record struct {
			Name  string
			Count int
		}
		want := record{Name: "lottery", Count: 3}
		data, err := storage.Marshal(want)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != `{"Name":"lottery","Count":3}` {
			t.Fatalf("got %q, want json encoding", data)
		}
		var got record
		if err := storage.Unmarshal(data, &got); err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("mismatch (-want +got):\n%s", diff)
		}
	})
}
