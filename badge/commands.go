package badge

import (
	"context"
	"strings"

	"github.com/moffa90/go-badgelink/mux"
	"github.com/moffa90/go-badgelink/protocol"
)

// command runs a simple request/response command and returns its payload.
func (c *Client) command(ctx context.Context, op string, cmd byte, payload []byte) ([]byte, error) {
	out, err := c.do(ctx, call{op: op, cmd: cmd, payload: payload})
	if err != nil {
		return nil, err
	}
	return out.payload, nil
}

// Ping checks that the badge is alive and accepts the session token.
//
// Example:
//
//	if err := client.Ping(ctx); err != nil {
//	    log.Printf("badge unreachable: %v", protocol.StatusOf(err))
//	}
func (c *Client) Ping(ctx context.Context) error {
	payload, err := c.command(ctx, "ping", protocol.CmdPing, nil)
	if err != nil {
		return err
	}
	if string(payload) != protocol.PongPayload {
		return protocol.NewStatusError("ping", protocol.StatusCommunicationError, nil)
	}
	return nil
}

// Owner returns the owner name stored on the badge.
func (c *Client) Owner(ctx context.Context) (string, error) {
	payload, err := c.command(ctx, "get owner", protocol.CmdGetOwner, nil)
	return string(payload), err
}

// SetOwner stores the owner name.
func (c *Client) SetOwner(ctx context.Context, name string) error {
	if err := protocol.ValidateText(name); err != nil {
		return &NameError{Field: "owner", Value: name, Reason: err.Error()}
	}
	_, err := c.command(ctx, "set owner", protocol.CmdSetOwner, []byte(name))
	return err
}

// Contact returns the contact details stored on the badge.
func (c *Client) Contact(ctx context.Context) (string, error) {
	payload, err := c.command(ctx, "get contact", protocol.CmdGetContact, nil)
	return string(payload), err
}

// SetContact stores the contact details.
func (c *Client) SetContact(ctx context.Context, contact string) error {
	if err := protocol.ValidateText(contact); err != nil {
		return &NameError{Field: "contact", Value: contact, Reason: err.Error()}
	}
	_, err := c.command(ctx, "set contact", protocol.CmdSetContact, []byte(contact))
	return err
}

// SetToken replaces the session token. The command is framed with the
// current token; once the badge accepts it, later commands use the new one.
// Responses to commands sent before the rotation are still checked against
// the token they were sent with.
func (c *Client) SetToken(ctx context.Context, token string) error {
	if err := protocol.ValidateToken(token); err != nil {
		return &TokenError{Reason: err.Error()}
	}
	if _, err := c.command(ctx, "set token", protocol.CmdSetToken, []byte(token)); err != nil {
		return err
	}
	if err := c.mux.SetToken(token); err != nil {
		return err
	}
	c.logInfo("session token rotated")
	return nil
}

// FactoryReset wipes every image and setting on the badge.
func (c *Client) FactoryReset(ctx context.Context) error {
	_, err := c.command(ctx, "factory reset", protocol.CmdFactoryReset, nil)
	return err
}

// CurrentImage returns the name of the image on display.
func (c *Client) CurrentImage(ctx context.Context) (string, error) {
	payload, err := c.command(ctx, "get current image", protocol.CmdGetCurrentImage, nil)
	return string(payload), err
}

// SelectImage displays the stored image called name.
func (c *Client) SelectImage(ctx context.Context, name string) error {
	if err := protocol.ValidateName(name); err != nil {
		return &NameError{Field: "image name", Value: name, Reason: err.Error()}
	}
	_, err := c.command(ctx, "select image", protocol.CmdSelectImage, []byte(name))
	return err
}

// ClearDisplay blanks the panel.
func (c *Client) ClearDisplay(ctx context.Context) error {
	_, err := c.command(ctx, "clear display", protocol.CmdClearDisplay, nil)
	return err
}

// HardwareVersion reads the hardware revision string.
func (c *Client) HardwareVersion(ctx context.Context) (string, error) {
	return c.readVersion(ctx, "read hardware version", mux.KindHardwareVersion)
}

// SoftwareVersion reads the firmware version string.
func (c *Client) SoftwareVersion(ctx context.Context) (string, error) {
	return c.readVersion(ctx, "read software version", mux.KindSoftwareVersion)
}

func (c *Client) readVersion(ctx context.Context, op string, kind mux.Kind) (string, error) {
	out, err := c.do(ctx, call{op: op, kind: kind})
	if err != nil {
		return "", err
	}
	return strings.TrimRight(string(out.payload), "\x00 \r\n"), nil
}
