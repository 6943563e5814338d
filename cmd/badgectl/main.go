// Command badgectl manages an e-ink/LED badge over Bluetooth LE.
//
// Usage:
//
//	badgectl [flags] <command> [args...]
//	badgectl [flags] shell
//
// The badge address and session token default to $BADGE_ADDRESS and
// $BADGE_TOKEN. Use -sim to talk to an in-memory badge instead of a radio.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/moffa90/go-badgelink/badge"
	"github.com/moffa90/go-badgelink/link"
)

// options are the parsed command-line flags.
type options struct {
	address  string
	token    string
	sim      bool
	bluez    bool
	mtu      int
	timeout  time.Duration
	connect  time.Duration
	verbose  bool
	progress bool
}

func main() {
	var opts options
	flag.StringVar(&opts.address, "address", os.Getenv("BADGE_ADDRESS"), "badge name or address ($BADGE_ADDRESS)")
	flag.StringVar(&opts.token, "token", os.Getenv("BADGE_TOKEN"), "8-character session token ($BADGE_TOKEN)")
	flag.BoolVar(&opts.sim, "sim", false, "use a simulated badge")
	flag.BoolVar(&opts.bluez, "bluez", false, "connect through BlueZ over D-Bus (Linux)")
	flag.IntVar(&opts.mtu, "mtu", 0, "override the link payload size")
	flag.DurationVar(&opts.timeout, "timeout", 5*time.Second, "command timeout")
	flag.DurationVar(&opts.connect, "connect-timeout", 20*time.Second, "scan and connect timeout")
	flag.BoolVar(&opts.verbose, "v", false, "verbose logging")
	flag.BoolVar(&opts.progress, "progress", true, "show transfer progress")
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	if opts.sim && opts.token == "" {
		opts.token = simToken
	}

	if err := run(opts, flag.Arg(0), flag.Args()[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "badgectl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: badgectl [flags] <command> [args...]\n\nCommands:\n")
	for _, c := range commands {
		fmt.Fprintf(os.Stderr, "  %-32s %s\n", c.usage(), c.description)
	}
	fmt.Fprintf(os.Stderr, "  %-32s %s\n", "shell", "interactive session")
	fmt.Fprintf(os.Stderr, "\nFlags:\n")
	flag.PrintDefaults()
}

func run(opts options, name string, args []string) error {
	logger := newLogger(opts.verbose)

	if name != "shell" {
		if _, ok := lookup(name); !ok {
			return fmt.Errorf("unknown command %q", name)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	dialCtx, cancel := context.WithTimeout(ctx, opts.connect)
	ch, closer, err := dial(dialCtx, opts, logger)
	cancel()
	if err != nil {
		return err
	}
	defer closer.Close()

	clientOpts := []badge.Option{
		badge.WithLogger(logger),
		badge.WithTimeout(opts.timeout),
	}
	if opts.progress {
		bar := newProgressBar(os.Stderr, 30)
		clientOpts = append(clientOpts, badge.WithProgressCallback(bar.Update))
	}

	client, err := badge.New(ch, opts.token, clientOpts...)
	if err != nil {
		return err
	}
	defer client.Close()

	if name == "shell" {
		return shell(ctx, client, os.Stdout)
	}
	return execute(ctx, client, os.Stdout, name, args)
}

// dial opens the selected transport.
func dial(ctx context.Context, opts options, logger *zeroLogger) (link.Channel, closer, error) {
	switch {
	case opts.sim:
		return dialSim(opts, logger)
	case opts.address == "":
		return nil, nil, fmt.Errorf("no badge address: set -address or $BADGE_ADDRESS")
	case opts.bluez:
		return dialBlueZ(ctx, opts, logger)
	default:
		return dialTiny(ctx, opts, logger)
	}
}

type closer interface {
	Close() error
}
