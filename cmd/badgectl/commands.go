package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/moffa90/go-badgelink/badge"
	"github.com/moffa90/go-badgelink/firmware"
	"github.com/moffa90/go-badgelink/protocol"
)

// command is one badgectl verb.
type command struct {
	name        string
	args        string
	description string
	minArgs     int
	maxArgs     int // -1 means unlimited
	run         func(ctx context.Context, c *badge.Client, out io.Writer, args []string) error
}

func (c command) usage() string {
	if c.args == "" {
		return c.name
	}
	return c.name + " " + c.args
}

var commands = []command{
	{name: "ping", description: "check the badge is reachable", run: cmdPing},
	{name: "owner", args: "[name...]", description: "show or set the owner name", maxArgs: -1, run: cmdOwner},
	{name: "contact", args: "[text...]", description: "show or set the contact details", maxArgs: -1, run: cmdContact},
	{name: "token", args: "<new>", description: "rotate the session token", minArgs: 1, maxArgs: 1, run: cmdToken},
	{name: "reset", description: "factory reset the badge", run: cmdReset},
	{name: "current", description: "show the image on display", run: cmdCurrent},
	{name: "select", args: "<name>", description: "display a stored image", minArgs: 1, maxArgs: 1, run: cmdSelect},
	{name: "clear", description: "blank the display", run: cmdClear},
	{name: "upload", args: "<name> <file>", description: "store an image", minArgs: 2, maxArgs: 2, run: cmdUpload},
	{name: "download", args: "<name> <size> <file>", description: "fetch a stored image", minArgs: 3, maxArgs: 3, run: cmdDownload},
	{name: "list", description: "list stored images", run: cmdList},
	{name: "version", description: "show hardware and firmware versions", run: cmdVersion},
	{name: "firmware", args: "<file>", description: "install a firmware image", minArgs: 1, maxArgs: 1, run: cmdFirmware},
}

func lookup(name string) (command, bool) {
	for _, c := range commands {
		if c.name == name {
			return c, true
		}
	}
	return command{}, false
}

// commandNames returns every verb, sorted, for completion.
func commandNames() []string {
	names := []string{"help", "quit"}
	for _, c := range commands {
		names = append(names, c.name)
	}
	sort.Strings(names)
	return names
}

// execute runs one command with its arguments.
func execute(ctx context.Context, client *badge.Client, out io.Writer, name string, args []string) error {
	c, ok := lookup(name)
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	if len(args) < c.minArgs || (c.maxArgs >= 0 && len(args) > c.maxArgs) {
		return fmt.Errorf("usage: %s", c.usage())
	}
	if err := c.run(ctx, client, out, args); err != nil {
		return describe(err)
	}
	return nil
}

// describe appends the device-facing status message to err.
func describe(err error) error {
	status := protocol.StatusOf(err)
	if status == protocol.StatusUnknown || status == protocol.StatusSuccess {
		return err
	}
	return fmt.Errorf("%w (%s)", err, status.Message())
}

func cmdPing(ctx context.Context, c *badge.Client, out io.Writer, _ []string) error {
	if err := c.Ping(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "pong")
	return nil
}

func cmdOwner(ctx context.Context, c *badge.Client, out io.Writer, args []string) error {
	if len(args) > 0 {
		return c.SetOwner(ctx, strings.Join(args, " "))
	}
	owner, err := c.Owner(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, owner)
	return nil
}

func cmdContact(ctx context.Context, c *badge.Client, out io.Writer, args []string) error {
	if len(args) > 0 {
		return c.SetContact(ctx, strings.Join(args, " "))
	}
	contact, err := c.Contact(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, contact)
	return nil
}

func cmdToken(ctx context.Context, c *badge.Client, out io.Writer, args []string) error {
	if err := c.SetToken(ctx, args[0]); err != nil {
		return err
	}
	fmt.Fprintln(out, "token updated")
	return nil
}

func cmdReset(ctx context.Context, c *badge.Client, out io.Writer, _ []string) error {
	if err := c.FactoryReset(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "badge reset")
	return nil
}

func cmdCurrent(ctx context.Context, c *badge.Client, out io.Writer, _ []string) error {
	name, err := c.CurrentImage(ctx)
	if protocol.StatusOf(err) == protocol.StatusNoAction {
		fmt.Fprintln(out, "(nothing displayed)")
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(out, name)
	return nil
}

func cmdSelect(ctx context.Context, c *badge.Client, _ io.Writer, args []string) error {
	return c.SelectImage(ctx, args[0])
}

func cmdClear(ctx context.Context, c *badge.Client, _ io.Writer, _ []string) error {
	return c.ClearDisplay(ctx)
}

func cmdUpload(ctx context.Context, c *badge.Client, out io.Writer, args []string) error {
	data, err := os.ReadFile(args[1])
	if err != nil {
		return err
	}
	if err := c.SendImage(ctx, args[0], data); err != nil {
		return err
	}
	fmt.Fprintf(out, "stored %s (%d bytes)\n", args[0], len(data))
	return nil
}

func cmdDownload(ctx context.Context, c *badge.Client, out io.Writer, args []string) error {
	size, err := strconv.Atoi(args[1])
	if err != nil || size <= 0 {
		return fmt.Errorf("invalid size %q", args[1])
	}
	data, err := c.ReceiveImage(ctx, args[0], size)
	if err != nil {
		return err
	}
	if err := os.WriteFile(args[2], data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(out, "saved %s to %s (%d bytes)\n", args[0], args[2], len(data))
	return nil
}

func cmdList(ctx context.Context, c *badge.Client, out io.Writer, _ []string) error {
	names, err := c.ListImages(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Fprintln(out, name)
	}
	return nil
}

func cmdVersion(ctx context.Context, c *badge.Client, out io.Writer, _ []string) error {
	hw, err := c.HardwareVersion(ctx)
	if err != nil {
		return err
	}
	sw, err := c.SoftwareVersion(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "hardware: %s\nsoftware: %s\n", hw, sw)
	return nil
}

func cmdFirmware(ctx context.Context, c *badge.Client, out io.Writer, args []string) error {
	img, err := firmware.Parse(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "installing %s: %d bytes for %s\n", args[0], img.Size(), img.Hardware())
	if err := c.UpdateFirmware(ctx, img); err != nil {
		return err
	}
	fmt.Fprintln(out, "firmware installed")
	return nil
}
