//go:build !linux

package main

import (
	"github.com/pkg/errors"
	"github.com/urfave/cli"
)

func cmdController(c *cli.Context) error {
	return errors.New("controller needs /dev/vhci, which is only available on linux")
}
