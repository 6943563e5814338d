package protocol

// Envelope structure constants.
const (
	// IDSize is the size of the little-endian request identifier
	IDSize = 4

	// TokenSize is the fixed length of the ASCII session token
	TokenSize = 8

	// HeaderSize is the envelope prefix before TYPE/STATUS: ID + TOKEN
	HeaderSize = IDSize + TokenSize

	// BodyHeaderSize is the TYPE/STATUS byte plus the LEN byte
	BodyHeaderSize = 2

	// MinFrameSize is the smallest valid envelope: ID + TOKEN + TYPE + LEN
	MinFrameSize = HeaderSize + BodyHeaderSize

	// MaxPayloadSize is bounded by the single LEN byte
	MaxPayloadSize = 255
)

// Reserved identifiers for the two version reads. The command counter
// never issues an id at or above FirstReservedID.
const (
	// HardwareVersionID correlates the hardware version read
	HardwareVersionID uint32 = 0xFFFFFFFF

	// SoftwareVersionID correlates the software version read
	SoftwareVersionID uint32 = 0xFFFFFFFE

	// FirstReservedID is the lowest sentinel identifier
	FirstReservedID = SoftwareVersionID
)

// Command type codes.
const (
	// CmdPing asks the badge to answer "PONG"
	CmdPing = 0x00

	// CmdGetOwner reads the owner name
	CmdGetOwner = 0x01

	// CmdSetOwner writes the owner name
	CmdSetOwner = 0x02

	// CmdGetContact reads the contact details
	CmdGetContact = 0x03

	// CmdSetContact writes the contact details
	CmdSetContact = 0x04

	// CmdSetToken replaces the session token
	CmdSetToken = 0x05

	// CmdFactoryReset wipes images and settings
	CmdFactoryReset = 0x06

	// CmdGetCurrentImage returns the name of the displayed image
	CmdGetCurrentImage = 0x07

	// CmdSelectImage displays a stored image by name
	CmdSelectImage = 0x08

	// CmdClearDisplay blanks the panel
	CmdClearDisplay = 0x09

	// CmdSendImage announces an image upload on the data characteristic
	CmdSendImage = 0x0A

	// CmdReceiveImage requests an image download on the data characteristic
	CmdReceiveImage = 0x0B

	// CmdListImages requests the NUL-separated list of stored image names
	CmdListImages = 0x0C

	// CmdFirmwareUpdate starts the two-phase firmware upload
	CmdFirmwareUpdate = 0x0D
)

// Device status codes carried in the STATUS byte of a response.
const (
	DeviceSuccess             = 0x00
	DeviceInvalidParameter    = 0x01
	DeviceActionFailed        = 0x02
	DeviceNotInitialized      = 0x03
	DeviceNoAction            = 0x04
	DeviceInvalidToken        = 0x05
	DeviceInvalidSize         = 0x06
	DeviceFileNotFound        = 0x07
	DeviceOutOfMemory         = 0x08
	DeviceInvalidRequest      = 0x09
	DeviceMaxCommandsReached  = 0x0A
	DeviceNameUpdateFailed    = 0x0B
	DeviceOpenFileFailed      = 0x0C
	DeviceWriteFileFailed     = 0x0D
	DeviceReadFileFailed      = 0x0E
	DeviceSendFailed          = 0x0F
	DeviceReceiveFailed       = 0x10
	DeviceDataTooLong         = 0x11
	DeviceCorruptedData       = 0x12
	DeviceInvalidIndex        = 0x13
	DeviceOverlappingPatterns = 0x14

	// DeviceCodeCount is one past the highest known device code. Codes at
	// or beyond it translate to StatusUnknown.
	DeviceCodeCount = 0x15
)

// Payload limits.
const (
	// MaxNameSize is the longest image name the badge stores
	MaxNameSize = 64

	// MaxTextSize is the longest owner or contact string
	MaxTextSize = 200

	// SendImageHeaderSize is the little-endian image size preceding the name
	SendImageHeaderSize = 4

	// PongPayload is the ping answer
	PongPayload = "PONG"
)

// TerminationMarker ends a size-unknown transfer on the data characteristic.
var TerminationMarker = [16]byte{
	0xFE, 0xDE, 0xAD, 0xC0, 0xDE, 0xEC, 0xBB, 0xAD,
	0x0E, 0x12, 0x34, 0x56, 0x78, 0x90, 0xAA, 0xBB,
}

// TerminationMarkerSize is the length of TerminationMarker.
const TerminationMarkerSize = len(TerminationMarker)
