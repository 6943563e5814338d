//go:build linux

package main

import (
	"context"
	"fmt"

	"github.com/moffa90/go-badgelink/driver/bluez"
	"github.com/moffa90/go-badgelink/link"
)

func dialBlueZ(ctx context.Context, opts options, logger *zeroLogger) (link.Channel, closer, error) {
	bzOpts := []bluez.Option{bluez.WithLogger(logger)}
	if opts.mtu > 0 {
		bzOpts = append(bzOpts, bluez.WithMTU(opts.mtu))
	}
	conn, err := bluez.Connect(ctx, opts.address, bzOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", opts.address, err)
	}
	return conn, conn, nil
}
