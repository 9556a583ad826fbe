// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd_test

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ethersphere/lottery"
	"github.com/ethersphere/lottery/cmd/lottery/cmd"
	"github.com/ethersphere/lottery/pkg/node"
)

var homeDir string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "lottery-cmd-")
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	homeDir = dir

	code := m.Run()
	if err := os.RemoveAll(dir); err != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(code)
}

func newCommand(t *testing.T, opts ...cmd.Option) (c *cmd.Command) {
	t.Helper()

	c, err := cmd.NewCommand(append([]cmd.Option{cmd.WithHomeDir(homeDir)}, opts...)...)
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestVersionCmd(t *testing.T) {
	var outputBuf bytes.Buffer
	if err := newCommand(t,
		cmd.WithArgs("version"),
		cmd.WithOutput(&outputBuf),
	).Execute(); err != nil {
		t.Fatal(err)
	}

	want := lottery.Version + "\n"
	got := outputBuf.String()
	if got != want {
		t.Errorf("got output %q, want %q", got, want)
	}
}

func TestNetworksCmd(t *testing.T) {
	networksFile := filepath.Join(t.TempDir(), "networks.yaml")
	if err := os.WriteFile(networksFile, []byte("networks:\n  testnet:\n    chain-id: 4242\n    url: http://localhost:9545\n"), 0600); err != nil {
		t.Fatal(err)
	}

	var outputBuf bytes.Buffer
	if err := newCommand(t,
		cmd.WithArgs("networks", "--networks-file", networksFile),
		cmd.WithOutput(&outputBuf),
	).Execute(); err != nil {
		t.Fatal(err)
	}

	got := outputBuf.String()
	for _, want := range []string{"NAME", "hardhat", "31337", "sepolia", "testnet", "4242", "http://localhost:9545"} {
		if !strings.Contains(got, want) {
			t.Errorf("output %q does not contain %q", got, want)
		}
	}
}

func TestDeployCmd(t *testing.T) {
	var outputBuf bytes.Buffer
	if err := newCommand(t,
		cmd.WithArgs("deploy", "--in-memory", "--network", "hardhat", "--verbosity", "silent"),
		cmd.WithOutput(&outputBuf),
	).Execute(); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(outputBuf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d deployments, want 2: %q", len(lines), outputBuf.String())
	}
	for i, name := range []string{"Lottery", "VRFCoordinatorV2Mock"} {
		fields := strings.Fields(lines[i])
		if len(fields) != 3 {
			t.Fatalf("malformed line %q", lines[i])
		}
		if fields[0] != name {
			t.Errorf("got deployment %q, want %q", fields[0], name)
		}
		if !strings.HasPrefix(fields[1], "0x") {
			t.Errorf("got address %q", fields[1])
		}
	}
}

func TestDeployCmdConfigFile(t *testing.T) {
	cfgFile := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgFile, []byte("network: nowhere\nin-memory: true\nverbosity: silent\n"), 0600); err != nil {
		t.Fatal(err)
	}

	err := newCommand(t,
		cmd.WithArgs("deploy", "--config", cfgFile),
		cmd.WithOutput(io.Discard),
	).Execute()
	if !errors.Is(err, node.ErrUnknownNetwork) {
		t.Fatalf("got error %v, want %v", err, node.ErrUnknownNetwork)
	}
}

func TestInvalidVerbosity(t *testing.T) {
	err := newCommand(t,
		cmd.WithArgs("deploy", "--in-memory", "--verbosity", "loud"),
		cmd.WithOutput(io.Discard),
	).Execute()
	if err == nil || !strings.Contains(err.Error(), "unknown verbosity level") {
		t.Fatalf("got error %v", err)
	}
}

type passwordReaderMock struct {
	password string
	calls    int
}

func (r *passwordReaderMock) ReadPassword() (string, error) {
	r.calls++
	return r.password, nil
}

func TestKeystorePasswordPrompt(t *testing.T) {
	keystore := filepath.Join(t.TempDir(), "key.json")
	if err := os.WriteFile(keystore, []byte("{}"), 0600); err != nil {
		t.Fatal(err)
	}

	t.Run("prompt", func(t *testing.T) {
		var outputBuf bytes.Buffer
		r := &passwordReaderMock{password: "secret"}
		err := newCommand(t,
			cmd.WithArgs("deploy", "--in-memory", "--network", "nowhere", "--keystore", keystore),
			cmd.WithOutput(&outputBuf),
			cmd.WithPasswordReader(r),
		).Execute()
		if !errors.Is(err, node.ErrUnknownNetwork) {
			t.Fatalf("got error %v, want %v", err, node.ErrUnknownNetwork)
		}
		if r.calls != 1 {
			t.Errorf("got %d password reads, want 1", r.calls)
		}
		if !strings.HasPrefix(outputBuf.String(), "Keystore password: ") {
			t.Errorf("got output %q", outputBuf.String())
		}
	})

	t.Run("configured", func(t *testing.T) {
		r := &passwordReaderMock{password: "secret"}
		err := newCommand(t,
			cmd.WithArgs("deploy", "--in-memory", "--network", "nowhere", "--keystore", keystore, "--keystore-password", "secret"),
			cmd.WithOutput(io.Discard),
			cmd.WithPasswordReader(r),
		).Execute()
		if !errors.Is(err, node.ErrUnknownNetwork) {
			t.Fatalf("got error %v, want %v", err, node.ErrUnknownNetwork)
		}
		if r.calls != 0 {
			t.Errorf("got %d password reads, want 0", r.calls)
		}
	})
}
