// Package firmware reads badge firmware image files.
//
// An image file is a fixed 128-byte header followed by the firmware body:
//
//	[MAGIC(4)][SIZE(4)][SHA256(32)][SIGNATURE(64)][HWTAG(8)][PADDING(16)][BODY...]
//
// All integers are little-endian. The header is validated against the body
// when the file is parsed, so an *Image returned by Parse or ParseReader is
// always self-consistent. The signature is opaque here and checked by the
// badge itself.
//
// # Usage
//
//	img, err := firmware.Parse("badge-1.4.0.fw")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d bytes for hardware %s\n", img.Size(), img.Hardware())
//	err = client.UpdateFirmware(ctx, img)
package firmware
