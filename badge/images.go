package badge

import (
	"context"
	"fmt"
	"time"

	"github.com/moffa90/go-badgelink/protocol"
	"github.com/moffa90/go-badgelink/transfer"
)

// SendImage uploads data and stores it on the badge as name. The send-image
// command is written first; the data follows on the data characteristic and
// the call returns once the badge has acknowledged the command and every
// chunk has been written.
//
// Example:
//
//	img, _ := os.ReadFile("logo.bin")
//	err := client.SendImage(ctx, "logo", img)
func (c *Client) SendImage(ctx context.Context, name string, data []byte) error {
	if err := protocol.ValidateName(name); err != nil {
		return &NameError{Field: "image name", Value: name, Reason: err.Error()}
	}
	payload, err := protocol.BuildSendImagePayload(name, len(data))
	if err != nil {
		return fmt.Errorf("send image: %w", err)
	}

	start := time.Now()
	c.reportProgress(Progress{Phase: PhaseUploading, Total: len(data)})

	if _, err := c.do(ctx, call{
		op:       "send image",
		cmd:      protocol.CmdSendImage,
		payload:  payload,
		timeout:  c.config.TransferTimeout,
		send:     data,
		progress: c.progressFor(PhaseUploading, start, 0, 1),
	}); err != nil {
		return err
	}

	c.complete(start, len(data))
	c.logInfo("image sent", "name", name, "bytes", len(data), "elapsed", time.Since(start).String())
	return nil
}

// ReceiveImage downloads the image called name, which must be size bytes.
func (c *Client) ReceiveImage(ctx context.Context, name string, size int) ([]byte, error) {
	if err := protocol.ValidateName(name); err != nil {
		return nil, &NameError{Field: "image name", Value: name, Reason: err.Error()}
	}
	if size <= 0 {
		return nil, fmt.Errorf("receive image: size must be positive, got %d", size)
	}

	start := time.Now()
	c.reportProgress(Progress{Phase: PhaseDownloading, Total: size})

	out, err := c.do(ctx, call{
		op:       "receive image",
		cmd:      protocol.CmdReceiveImage,
		payload:  []byte(name),
		timeout:  c.config.TransferTimeout,
		recv:     size,
		progress: c.progressFor(PhaseDownloading, start, 0, 1),
	})
	if err != nil {
		return nil, err
	}

	c.complete(start, len(out.data))
	c.logInfo("image received", "name", name, "bytes", len(out.data), "elapsed", time.Since(start).String())
	return out.data, nil
}

// ListImages returns the names of the images stored on the badge.
func (c *Client) ListImages(ctx context.Context) ([]string, error) {
	start := time.Now()
	out, err := c.do(ctx, call{
		op:       "list images",
		cmd:      protocol.CmdListImages,
		timeout:  c.config.TransferTimeout,
		recv:     transfer.Unbounded,
		progress: c.progressFor(PhaseDownloading, start, 0, 1),
	})
	if err != nil {
		return nil, err
	}

	names := protocol.ParseImageList(out.data)
	c.logDebug("image list received", "count", len(names), "bytes", len(out.data))
	return names, nil
}

func (c *Client) complete(start time.Time, n int) {
	c.reportProgress(Progress{
		Phase:    PhaseComplete,
		Fraction: 1,
		Bytes:    n,
		Total:    n,
		Elapsed:  time.Since(start),
	})
}
