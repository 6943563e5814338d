package badge

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/moffa90/go-badgelink/firmware"
	"github.com/moffa90/go-badgelink/protocol"
)

// UpdateFirmware installs img on the badge in two phases:
//  1. Send the firmware-update command and the 128-byte header, then wait
//     for the badge to accept the header
//  2. Stream the body and wait for the badge to verify and accept it
//
// Progress covers 0.0 to 0.5 for the header and 0.5 to 1.0 for the body.
// With WithHardwareCheck the badge's hardware version must match the image.
//
// Example:
//
//	img, _ := firmware.Parse("badge-1.4.0.fw")
//	err := client.UpdateFirmware(ctx, img)
func (c *Client) UpdateFirmware(ctx context.Context, img *firmware.Image) error {
	if img == nil {
		return fmt.Errorf("firmware cannot be nil")
	}
	if err := img.Header.Verify(img.Body); err != nil {
		return fmt.Errorf("firmware update: %w", err)
	}

	if c.config.HardwareCheck {
		hw, err := c.HardwareVersion(ctx)
		if err != nil {
			return fmt.Errorf("firmware update: %w", err)
		}
		if hw != img.Hardware() {
			return &FirmwareMismatchError{Expected: img.Hardware(), Actual: hw}
		}
	}

	start := time.Now()

	// Phase 1: header
	c.reportProgress(Progress{Phase: PhaseFirmwareHeader, Total: img.Size()})

	size := binary.LittleEndian.AppendUint32(nil, uint32(img.Size()))
	header := img.HeaderBytes()
	out, err := c.do(ctx, call{
		op:       "firmware header",
		cmd:      protocol.CmdFirmwareUpdate,
		payload:  size,
		timeout:  c.config.TransferTimeout,
		send:     header,
		progress: c.progressFor(PhaseFirmwareHeader, start, 0, 0.5),
	})
	if err != nil {
		return err
	}
	c.logDebug("firmware header accepted", "id", out.id, "bytes", len(header))

	// Phase 2: body, answered under the same id
	if err := c.streamBody(ctx, out.id, img, start); err != nil {
		return err
	}

	c.complete(start, img.Size())
	c.logInfo("firmware update complete",
		"hardware", img.Hardware(),
		"bytes", img.Size(),
		"elapsed", time.Since(start).String(),
	)
	return nil
}

func (c *Client) streamBody(ctx context.Context, id uint32, img *firmware.Image, start time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	x := newExchange("firmware body", c.mux, true)
	if err := c.mux.Await(id, x.onResponse, c.config.TransferTimeout); err != nil {
		return fmt.Errorf("firmware body: %w", err)
	}
	x.setID(id)
	x.attach(c.engine.Send(img.Body, c.config.TransferTimeout,
		c.progressFor(PhaseFirmwareBody, start, 0.5, 1), x.onData))

	_, _, err := x.wait(ctx)
	return err
}
