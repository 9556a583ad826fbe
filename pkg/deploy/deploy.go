// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package deploy runs tagged deploy scripts against a network and records
// the deployed contracts.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethersphere/lottery/pkg/config"
	"github.com/ethersphere/lottery/pkg/contracts"
	"github.com/ethersphere/lottery/pkg/devchain"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/transaction"
)

const loggerName = "deploy"

var (
	ErrNoVerifier         = errors.New("no verifier configured")
	ErrFixtureUnsupported = errors.New("fixtures require a development chain")
)

// Verifier publishes the source of a deployed contract on a block explorer.
type Verifier interface {
	Verify(ctx context.Context, address common.Address, artifact *contracts.Artifact, constructorArgs []byte) error
}

// Environment is what deploy scripts operate on.
type Environment struct {
	Logger      log.Logger
	Network     *config.Network
	Backend     transaction.Backend
	Registry    *contracts.Registry
	Accounts    *Accounts
	Deployments *Deployments
	// Verifier is nil when verification is not configured.
	Verifier Verifier
	// Controller is nil unless the chain can be snapshotted.
	Controller devchain.Controller
}

// Verify verifies the source of a recorded deployment.
func (e *Environment) Verify(ctx context.Context, d *Deployment) error {
	if e.Verifier == nil {
		return ErrNoVerifier
	}
	artifact, err := e.Registry.Get(d.Contract)
	if err != nil {
		return err
	}
	return e.Verifier.Verify(ctx, d.Address, artifact, d.Args)
}

// Script is a single deployment step.
type Script struct {
	Name string
	Tags []string
	Run  func(ctx context.Context, env *Environment) error
}

func (s Script) matches(tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, want := range tags {
		for _, have := range s.Tags {
			if want == have {
				return true
			}
		}
	}
	return false
}

type fixture struct {
	snapshot    uint64
	deployments []Deployment
}

// Runner executes scripts in registration order.
type Runner struct {
	env     *Environment
	scripts []Script
	logger  log.Logger

	mu       sync.Mutex
	fixtures map[string]fixture
}

func NewRunner(env *Environment, scripts ...Script) *Runner {
	return &Runner{
		env:      env,
		scripts:  scripts,
		logger:   env.Logger.WithName(loggerName).Register(),
		fixtures: make(map[string]fixture),
	}
}

// Environment returns the environment the scripts run in.
func (r *Runner) Environment() *Environment {
	return r.env
}

// Run executes the scripts whose tags intersect the given tags, all scripts
// when no tag is given.
func (r *Runner) Run(ctx context.Context, tags ...string) error {
	for _, s := range r.scripts {
		if !s.matches(tags) {
			continue
		}
		r.logger.Debug("running deploy script", "script", s.Name, "network", r.env.Network.Name)
		start := time.Now()
		if err := s.Run(ctx, r.env); err != nil {
			return fmt.Errorf("deploy script %s: %w", s.Name, err)
		}
		r.env.Deployments.metrics.ScriptDuration.WithLabelValues(s.Name).Observe(time.Since(start).Seconds())
	}
	return nil
}

// Fixture runs the tagged scripts once and snapshots the chain. Later calls
// with the same tags revert the chain and the deployment records to that
// snapshot instead of running the scripts again.
func (r *Runner) Fixture(ctx context.Context, tags ...string) error {
	if r.env.Controller == nil {
		return ErrFixtureUnsupported
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := fixtureKey(tags)
	if f, ok := r.fixtures[key]; ok {
		reverted, err := r.env.Controller.Revert(ctx, f.snapshot)
		if err != nil {
			return fmt.Errorf("revert fixture %q: %w", key, err)
		}
		// a snapshot can only be reverted once
		for k, other := range r.fixtures {
			if other.snapshot >= f.snapshot {
				delete(r.fixtures, k)
			}
		}
		if reverted {
			if err := r.env.Accounts.Reset(); err != nil {
				return fmt.Errorf("reset accounts: %w", err)
			}
			if err := r.env.Deployments.restore(f.deployments); err != nil {
				return fmt.Errorf("restore deployments: %w", err)
			}
			return r.snapshot(ctx, key)
		}
		r.logger.Warning("fixture snapshot not found, running scripts again", "fixture", key)
	}

	if err := r.Run(ctx, tags...); err != nil {
		return err
	}
	return r.snapshot(ctx, key)
}

func (r *Runner) snapshot(ctx context.Context, key string) error {
	id, err := r.env.Controller.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("snapshot fixture %q: %w", key, err)
	}
	deployments, err := r.env.Deployments.All()
	if err != nil {
		return err
	}
	r.fixtures[key] = fixture{snapshot: id, deployments: deployments}
	return nil
}

func fixtureKey(tags []string) string {
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
