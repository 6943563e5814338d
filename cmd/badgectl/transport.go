package main

import (
	"context"
	"fmt"

	"github.com/moffa90/go-badgelink/driver/sim"
	"github.com/moffa90/go-badgelink/driver/tinyble"
	"github.com/moffa90/go-badgelink/link"
)

// simToken is accepted by the simulated badge when no token is given.
const simToken = "BADGE000"

func dialSim(opts options, logger *zeroLogger) (link.Channel, closer, error) {
	simOpts := []sim.Option{
		sim.WithLogger(logger.With("device", "sim")),
		sim.WithOwner("Ada Lovelace"),
		sim.WithImage("welcome", welcomeImage()),
	}
	if opts.mtu > 0 {
		simOpts = append(simOpts, sim.WithMTU(opts.mtu))
	}
	b := sim.New(opts.token, simOpts...)
	return b, b, nil
}

func dialTiny(ctx context.Context, opts options, logger *zeroLogger) (link.Channel, closer, error) {
	tinyOpts := []tinyble.Option{tinyble.WithLogger(logger)}
	if opts.mtu > 0 {
		tinyOpts = append(tinyOpts, tinyble.WithMTU(opts.mtu))
	}
	conn, err := tinyble.Connect(ctx, opts.address, tinyOpts...)
	if err != nil {
		return nil, nil, fmt.Errorf("connect %s: %w", opts.address, err)
	}
	return conn, conn, nil
}

// welcomeImage is a small checkerboard for the simulated badge.
func welcomeImage() []byte {
	img := make([]byte, 1024)
	for i := range img {
		if (i/16+i%16)%2 == 0 {
			img[i] = 0xFF
		}
	}
	return img
}
