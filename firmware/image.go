package firmware

import (
	"io"

	"github.com/moffa90/go-badgelink/protocol"
)

// Image is a parsed firmware image.
type Image struct {
	// Header describes Body
	Header protocol.FirmwareHeader

	// Body is the firmware payload streamed after the header
	Body []byte
}

// New builds an image around body.
func New(body []byte, hardware string, signature []byte) *Image {
	return &Image{
		Header: *protocol.NewFirmwareHeader(body, hardware, signature),
		Body:   body,
	}
}

// Size returns the body length in bytes.
func (img *Image) Size() int {
	return len(img.Body)
}

// Hardware returns the hardware revision the image targets.
func (img *Image) Hardware() string {
	return img.Header.Hardware()
}

// HeaderBytes returns the encoded header.
func (img *Image) HeaderBytes() []byte {
	b, _ := img.Header.MarshalBinary()
	return b
}

// WriteTo writes the image in file format.
func (img *Image) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(img.HeaderBytes())
	if err != nil {
		return int64(n), err
	}
	m, err := w.Write(img.Body)
	return int64(n + m), err
}
