// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package contracts holds contract artifacts and the interface natively
// implemented contracts expose to the development chain.
package contracts

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

var (
	ErrArtifactNotFound = errors.New("artifact not found")
	ErrInvalidArtifact  = errors.New("invalid artifact")
)

// Artifact is everything needed to deploy, call and verify a contract.
type Artifact struct {
	Name             string
	SourceName       string
	ABI              abi.ABI
	RawABI           json.RawMessage
	Bytecode         []byte
	DeployedBytecode []byte
	BuildInfo        *BuildInfo
	// Native is set for contracts implemented in Go. They can only be
	// deployed on the development chain.
	Native *Native
}

// BuildInfo is the compiler input of a hardhat build, used for source
// verification.
type BuildInfo struct {
	SolcVersion     string          `json:"solcVersion"`
	SolcLongVersion string          `json:"solcLongVersion"`
	Input           json.RawMessage `json:"input"`
}

// CreationCode returns the bytecode followed by the ABI encoded constructor
// arguments.
func (a *Artifact) CreationCode(args ...interface{}) ([]byte, error) {
	packed, err := a.ABI.Pack("", args...)
	if err != nil {
		return nil, fmt.Errorf("pack constructor arguments of %s: %w", a.Name, err)
	}
	code := make([]byte, 0, len(a.Bytecode)+len(packed))
	code = append(code, a.Bytecode...)
	return append(code, packed...), nil
}

// ConstructorArguments returns the ABI encoded constructor arguments only.
func (a *Artifact) ConstructorArguments(args ...interface{}) ([]byte, error) {
	return a.ABI.Pack("", args...)
}

// Registry maps contract names to their artifacts.
type Registry struct {
	mu        sync.RWMutex
	artifacts map[string]*Artifact
}

func NewRegistry(artifacts ...*Artifact) *Registry {
	r := &Registry{
		artifacts: make(map[string]*Artifact),
	}
	for _, a := range artifacts {
		r.Register(a)
	}
	return r
}

// Register adds the artifact, replacing any artifact with the same name.
func (r *Registry) Register(a *Artifact) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.artifacts[a.Name] = a
}

func (r *Registry) Get(name string) (*Artifact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.artifacts[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrArtifactNotFound)
	}
	return a, nil
}

// Names returns the sorted names of all registered artifacts.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.artifacts))
	for name := range r.artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NativeByCode returns the native implementation whose bytecode matches the
// given code.
func (r *Registry) NativeByCode(code []byte) (*Native, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, a := range r.artifacts {
		if a.Native != nil && a.Native.Matches(code) {
			return a.Native, true
		}
	}
	return nil, false
}

type hardhatArtifact struct {
	Format           string                     `json:"_format"`
	ContractName     string                     `json:"contractName"`
	SourceName       string                     `json:"sourceName"`
	ABI              json.RawMessage            `json:"abi"`
	Bytecode         string                     `json:"bytecode"`
	DeployedBytecode string                     `json:"deployedBytecode"`
	LinkReferences   map[string]json.RawMessage `json:"linkReferences"`
}

type hardhatDebug struct {
	BuildInfo string `json:"buildInfo"`
}

// LoadHardhatArtifacts registers every deployable contract found in a hardhat
// artifacts directory. Interfaces, abstract contracts and contracts that need
// library linking are skipped. The number of registered artifacts is
// returned.
func (r *Registry) LoadHardhatArtifacts(dir string) (int, error) {
	buildInfos := make(map[string]*BuildInfo)
	var count int

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == "build-info" {
				return filepath.SkipDir
			}
			return nil
		}
		if filepath.Ext(path) != ".json" || strings.HasSuffix(path, ".dbg.json") {
			return nil
		}

		a, err := readHardhatArtifact(path, buildInfos)
		if err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
		if a == nil {
			return nil
		}
		r.Register(a)
		count++
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

func readHardhatArtifact(path string, buildInfos map[string]*BuildInfo) (*Artifact, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var ha hardhatArtifact
	if err := json.Unmarshal(data, &ha); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArtifact, err)
	}
	if !strings.HasPrefix(ha.Format, "hh-sol-artifact") {
		return nil, nil
	}
	if len(ha.LinkReferences) > 0 || ha.Bytecode == "" || ha.Bytecode == "0x" {
		return nil, nil
	}

	cabi, err := abi.JSON(strings.NewReader(string(ha.ABI)))
	if err != nil {
		return nil, fmt.Errorf("%w: abi: %v", ErrInvalidArtifact, err)
	}
	bytecode, err := hexutil.Decode(ha.Bytecode)
	if err != nil {
		return nil, fmt.Errorf("%w: bytecode: %v", ErrInvalidArtifact, err)
	}
	var deployed []byte
	if ha.DeployedBytecode != "" && ha.DeployedBytecode != "0x" {
		deployed, err = hexutil.Decode(ha.DeployedBytecode)
		if err != nil {
			return nil, fmt.Errorf("%w: deployed bytecode: %v", ErrInvalidArtifact, err)
		}
	}

	a := &Artifact{
		Name:             ha.ContractName,
		SourceName:       ha.SourceName,
		ABI:              cabi,
		RawABI:           ha.ABI,
		Bytecode:         bytecode,
		DeployedBytecode: deployed,
	}

	bi, err := readBuildInfo(strings.TrimSuffix(path, ".json")+".dbg.json", buildInfos)
	if err != nil {
		return nil, err
	}
	a.BuildInfo = bi

	return a, nil
}

// readBuildInfo follows the debug file to the build info. A missing debug
// file is not an error, the artifact is then not verifiable.
func readBuildInfo(dbgPath string, cache map[string]*BuildInfo) (*BuildInfo, error) {
	data, err := os.ReadFile(dbgPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var dbg hardhatDebug
	if err := json.Unmarshal(data, &dbg); err != nil {
		return nil, fmt.Errorf("%w: debug file: %v", ErrInvalidArtifact, err)
	}
	if dbg.BuildInfo == "" {
		return nil, nil
	}

	path := filepath.Join(filepath.Dir(dbgPath), filepath.FromSlash(dbg.BuildInfo))
	if bi, ok := cache[path]; ok {
		return bi, nil
	}

	data, err = os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("build info: %w", err)
	}
	bi := new(BuildInfo)
	if err := json.Unmarshal(data, bi); err != nil {
		return nil, fmt.Errorf("%w: build info: %v", ErrInvalidArtifact, err)
	}
	cache[path] = bi
	return bi, nil
}
