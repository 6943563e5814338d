//go:build !linux

package main

import (
	"context"
	"errors"

	"github.com/moffa90/go-badgelink/link"
)

func dialBlueZ(context.Context, options, *zeroLogger) (link.Channel, closer, error) {
	return nil, nil, errors.New("-bluez is only available on Linux")
}
