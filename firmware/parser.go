package firmware

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/moffa90/go-badgelink/protocol"
)

// MaxBodySize caps the body a parser will read.
const MaxBodySize = 16 << 20

// Parse parses a firmware image from the given file path.
//
// Example:
//
//	img, err := firmware.Parse("badge.fw")
//	if err != nil {
//	    log.Fatal(err)
//	}
func Parse(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return ParseReader(f)
}

// ParseReader parses a firmware image from any io.Reader.
func ParseReader(r io.Reader) (*Image, error) {
	br := bufio.NewReader(r)

	raw := make([]byte, protocol.FirmwareHeaderSize)
	if n, err := io.ReadFull(br, raw); err != nil {
		if n == 0 && err == io.EOF {
			return nil, fmt.Errorf("empty file")
		}
		return nil, fmt.Errorf("failed to read header: got %d of %d bytes: %w", n, protocol.FirmwareHeaderSize, err)
	}

	img := &Image{}
	if err := img.Header.UnmarshalBinary(raw); err != nil {
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}
	if img.Header.Magic != protocol.FirmwareMagic {
		return nil, fmt.Errorf("not a firmware image: magic 0x%08X", img.Header.Magic)
	}
	if img.Header.Size > MaxBodySize {
		return nil, fmt.Errorf("body too large: %d bytes, maximum is %d", img.Header.Size, MaxBodySize)
	}

	img.Body = make([]byte, img.Header.Size)
	if n, err := io.ReadFull(br, img.Body); err != nil {
		return nil, fmt.Errorf("truncated body: got %d of %d bytes", n, img.Header.Size)
	}
	if extra, _ := br.Peek(1); len(extra) > 0 {
		return nil, fmt.Errorf("trailing data after %d-byte body", img.Header.Size)
	}

	if err := img.Header.Verify(img.Body); err != nil {
		return nil, err
	}
	return img, nil
}
