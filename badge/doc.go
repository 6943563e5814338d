// Package badge provides a high-level API for talking to an e-ink/LED badge.
//
// # Overview
//
// A Client turns each logical operation into one command envelope on the
// command characteristic and, where needed, a companion bulk transfer on the
// data characteristic:
//   - Simple commands: ping, owner, contact, token, reset, display control
//   - Image upload, download and listing
//   - Two-phase firmware update (header, then body)
//   - Hardware and software version reads
//
// Commands are multiplexed, so several operations may be in flight at once.
// An operation with a data phase completes only when both the command
// response and the transfer have succeeded; if either fails the other is
// cancelled and the caller sees a single error.
//
// # Basic Usage
//
//	ch, err := tinyble.Connect(ctx, "Badge-42")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer ch.Close()
//
//	client, err := badge.New(ch, "S3CR3T!!")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.SendImage(ctx, "logo", pixels); err != nil {
//	    log.Fatal(err)
//	}
//	err = client.SelectImage(ctx, "logo")
//
// # Configuration Options
//
//	client, err := badge.New(ch, token,
//	    badge.WithProgressCallback(progressFunc),
//	    badge.WithLogger(myLogger),
//	    badge.WithTimeout(10*time.Second),
//	    badge.WithTransferTimeout(2*time.Minute),
//	    badge.WithRetries(5),
//	)
//
// # Error Handling
//
// Every failure carries a protocol.Status. Use protocol.StatusOf to get it:
//
//	err := client.SelectImage(ctx, "missing")
//	if protocol.StatusOf(err) == protocol.StatusFileNotFound {
//	    // ...
//	}
//
// Local validation fails before anything is sent, with TokenError,
// NameError or FirmwareMismatchError.
//
// # Transport Independence
//
// The client works over any link.Channel. The driver/tinyble and
// driver/bluez packages connect to real hardware; driver/sim is an
// in-memory badge for tests and demos.
package badge
