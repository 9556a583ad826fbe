// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ethersphere/lottery/pkg/config"
	"github.com/ethersphere/lottery/pkg/log"
	"github.com/ethersphere/lottery/pkg/node"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	optionNameDataDir            = "data-dir"
	optionNameNetwork            = "network"
	optionNameNetworksFile       = "networks-file"
	optionNameArtifactsDir       = "artifacts-dir"
	optionNameEndpoint           = "endpoint"
	optionNamePrivateKeys        = "private-key"
	optionNameKeystore           = "keystore"
	optionNameKeystorePassword   = "keystore-password"
	optionNameMnemonic           = "mnemonic"
	optionNamePollingInterval    = "polling-interval"
	optionNameTags               = "tags"
	optionNameVerify             = "verify"
	optionNameEtherscanAPIKey    = "etherscan-api-key"
	optionNameEtherscanAPIURL    = "etherscan-api-url"
	optionNameAPIAddr            = "api-addr"
	optionNameRPCAddr            = "rpc-addr"
	optionCORSAllowedOrigins     = "cors-allowed-origins"
	optionNameKeeperInterval     = "keeper-interval"
	optionNameDisableKeeper      = "disable-keeper"
	optionNameVerbosity          = "verbosity"
	optionNameJSONLogs           = "json-logs"
	optionNameInMemoryStateStore = "in-memory"
)

func init() {
	cobra.EnableCommandSorting = false
}

type command struct {
	root           *cobra.Command
	config         *viper.Viper
	passwordReader passwordReader
	cfgFile        string
	homeDir        string
}

type option func(*command)

func newCommand(opts ...option) (c *command, err error) {
	c = &command{
		root: &cobra.Command{
			Use:           "lottery",
			Short:         "Decentralized lottery deployer and keeper",
			SilenceErrors: true,
			SilenceUsage:  true,
			PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
				return c.initConfig()
			},
		},
		config: viper.New(),
	}

	for _, o := range opts {
		o(c)
	}
	if c.passwordReader == nil {
		c.passwordReader = new(stdInPasswordReader)
	}

	// Find home directory.
	if err := c.setHomeDir(); err != nil {
		return nil, err
	}

	c.initGlobalFlags()
	c.initDeployCmd()
	c.initStartCmd()
	c.initNetworksCmd()
	c.initVersionCmd()

	return c, nil
}

func (c *command) Execute() (err error) {
	return c.root.Execute()
}

// Execute parses command line arguments and runs appropriate functions.
func Execute() (err error) {
	c, err := newCommand()
	if err != nil {
		return err
	}
	return c.Execute()
}

func (c *command) initGlobalFlags() {
	globalFlags := c.root.PersistentFlags()
	globalFlags.StringVar(&c.cfgFile, "config", "", "config file (default is $HOME/.lottery.yaml)")
}

func (c *command) initConfig() (err error) {
	configName := ".lottery"
	if c.cfgFile != "" {
		// Use config file from the flag.
		c.config.SetConfigFile(c.cfgFile)
	} else {
		// Search config in home directory with name ".lottery" (without extension).
		c.config.AddConfigPath(c.homeDir)
		c.config.SetConfigName(configName)
	}

	// Environment
	c.config.SetEnvPrefix("lottery")
	c.config.AutomaticEnv() // read in environment variables that match
	c.config.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	// If a config file is found, read it in.
	if err := c.config.ReadInConfig(); err != nil {
		var e viper.ConfigFileNotFoundError
		if !errors.As(err, &e) {
			return err
		}
	}
	return nil
}

func (c *command) setHomeDir() (err error) {
	if c.homeDir != "" {
		return
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		return err
	}
	c.homeDir = dir
	return nil
}

// setChainFlags registers the flags shared by the commands that talk to a
// chain.
func (c *command) setChainFlags(cmd *cobra.Command) {
	cmd.Flags().String(optionNameDataDir, filepath.Join(c.homeDir, ".lottery"), "data directory")
	cmd.Flags().Bool(optionNameInMemoryStateStore, false, "keep the state in memory only")
	cmd.Flags().String(optionNameNetwork, config.Hardhat, "network to run on")
	cmd.Flags().String(optionNameNetworksFile, "", "yaml file overriding the built-in networks")
	cmd.Flags().String(optionNameArtifactsDir, "", "directory with compiled hardhat artifacts")
	cmd.Flags().String(optionNameEndpoint, "", "json-rpc endpoint, defaults to the network url")
	cmd.Flags().StringSlice(optionNamePrivateKeys, nil, "hex encoded account keys, deployer first")
	cmd.Flags().String(optionNameKeystore, "", "encrypted deployer key file")
	cmd.Flags().String(optionNameKeystorePassword, "", "password for decrypting the keystore")
	cmd.Flags().String(optionNameMnemonic, "", "mnemonic to derive the account keys from")
	cmd.Flags().Duration(optionNamePollingInterval, 2*time.Second, "interval between chain polls")
	cmd.Flags().StringSlice(optionNameTags, nil, "deploy only scripts with one of these tags")
	cmd.Flags().Bool(optionNameVerify, false, "verify deployed contracts on the block explorer")
	cmd.Flags().String(optionNameEtherscanAPIKey, "", "block explorer api key")
	cmd.Flags().String(optionNameEtherscanAPIURL, "", "block explorer api url, defaults to the one of the chain")
	cmd.Flags().String(optionNameVerbosity, "info", "log verbosity level 0=silent, 1=error, 2=warn, 3=info, 4=debug, 5=trace")
	cmd.Flags().Bool(optionNameJSONLogs, false, "log in json format")
}

func (c *command) nodeOptions(cmd *cobra.Command) (*node.Options, error) {
	password, err := c.keystorePassword(cmd)
	if err != nil {
		return nil, err
	}
	dataDir := c.config.GetString(optionNameDataDir)
	if c.config.GetBool(optionNameInMemoryStateStore) {
		dataDir = ""
	}
	return &node.Options{
		DataDir:      dataDir,
		Network:      c.config.GetString(optionNameNetwork),
		NetworksFile: c.config.GetString(optionNameNetworksFile),
		ArtifactsDir: c.config.GetString(optionNameArtifactsDir),
		Chain: node.ChainOptions{
			Endpoint:         c.config.GetString(optionNameEndpoint),
			PrivateKeys:      c.config.GetStringSlice(optionNamePrivateKeys),
			Keystore:         c.config.GetString(optionNameKeystore),
			KeystorePassword: password,
			Mnemonic:         c.config.GetString(optionNameMnemonic),
			PollingInterval:  c.config.GetDuration(optionNamePollingInterval),
		},
		Tags:               c.config.GetStringSlice(optionNameTags),
		Verify:             c.config.GetBool(optionNameVerify),
		EtherscanAPIKey:    c.config.GetString(optionNameEtherscanAPIKey),
		EtherscanAPIURL:    c.config.GetString(optionNameEtherscanAPIURL),
		APIAddr:            c.config.GetString(optionNameAPIAddr),
		RPCAddr:            c.config.GetString(optionNameRPCAddr),
		CORSAllowedOrigins: c.config.GetStringSlice(optionCORSAllowedOrigins),
		KeeperInterval:     c.config.GetDuration(optionNameKeeperInterval),
		DisableKeeper:      c.config.GetBool(optionNameDisableKeeper),
	}, nil
}

func (c *command) newLogger(cmd *cobra.Command) (log.Logger, error) {
	v := strings.ToLower(c.config.GetString(optionNameVerbosity))
	verbosity, err := log.ParseVerbosityLevel(v)
	if err != nil {
		return nil, fmt.Errorf("new logger: %w", err)
	}
	opts := []log.Option{
		log.WithSink(cmd.OutOrStdout()),
		log.WithVerbosity(verbosity),
		log.WithMetrics(),
	}
	if c.config.GetBool(optionNameJSONLogs) {
		opts = append(opts, log.WithJSONOutput())
	}
	return log.NewLogger("lottery", opts...), nil
}
