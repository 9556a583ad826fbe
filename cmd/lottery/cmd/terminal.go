// Copyright 2022 The Swarm Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package cmd

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

type passwordReader interface {
	ReadPassword() (password string, err error)
}

type stdInPasswordReader struct{}

func (stdInPasswordReader) ReadPassword() (password string, err error) {
	v, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return "", err
	}
	return string(v), err
}

func terminalPromptPassword(cmd *cobra.Command, r passwordReader, title string) (password string, err error) {
	cmd.Print(title + ": ")
	password, err = r.ReadPassword()
	cmd.Println()
	if err != nil {
		return "", err
	}
	return password, nil
}

// keystorePassword returns the configured keystore password, prompting for
// it when a keystore is set without one.
func (c *command) keystorePassword(cmd *cobra.Command) (string, error) {
	password := c.config.GetString(optionNameKeystorePassword)
	if password != "" || c.config.GetString(optionNameKeystore) == "" {
		return password, nil
	}
	return terminalPromptPassword(cmd, c.passwordReader, "Keystore password")
}
