package protocol

import "fmt"

// Status is the closed set of outcomes surfaced to callers. It merges the
// badge's own status codes with failures detected on the app side.
type Status int

// Caller-facing statuses.
const (
	StatusSuccess Status = iota
	StatusTimedOut
	StatusCommunicationError
	StatusNotConnected
	StatusInvalidToken
	StatusInvalidParameter
	StatusActionFailed
	StatusNotInitialized
	StatusNoAction
	StatusInvalidCommandSize
	StatusFileNotFound
	StatusOutOfMemory
	StatusInvalidCommandRequest
	StatusMaxCommandsReached
	StatusNameUpdateFailed
	StatusOpenFileFailed
	StatusWriteFileFailed
	StatusReadFileFailed
	StatusSendFailed
	StatusReceiveFailed
	StatusDataTooLong
	StatusCorruptedData
	StatusInvalidIndex
	StatusOverlappingPatterns
	StatusUnknown
)

// deviceStatus translates a device code into a Status, indexed by code.
var deviceStatus = [DeviceCodeCount]Status{
	DeviceSuccess:             StatusSuccess,
	DeviceInvalidParameter:    StatusInvalidParameter,
	DeviceActionFailed:        StatusActionFailed,
	DeviceNotInitialized:      StatusNotInitialized,
	DeviceNoAction:            StatusNoAction,
	DeviceInvalidToken:        StatusInvalidToken,
	DeviceInvalidSize:         StatusInvalidCommandSize,
	DeviceFileNotFound:        StatusFileNotFound,
	DeviceOutOfMemory:         StatusOutOfMemory,
	DeviceInvalidRequest:      StatusInvalidCommandRequest,
	DeviceMaxCommandsReached:  StatusMaxCommandsReached,
	DeviceNameUpdateFailed:    StatusNameUpdateFailed,
	DeviceOpenFileFailed:      StatusOpenFileFailed,
	DeviceWriteFileFailed:     StatusWriteFileFailed,
	DeviceReadFileFailed:      StatusReadFileFailed,
	DeviceSendFailed:          StatusSendFailed,
	DeviceReceiveFailed:       StatusReceiveFailed,
	DeviceDataTooLong:         StatusDataTooLong,
	DeviceCorruptedData:       StatusCorruptedData,
	DeviceInvalidIndex:        StatusInvalidIndex,
	DeviceOverlappingPatterns: StatusOverlappingPatterns,
}

// StatusFromDevice maps a STATUS byte from a response envelope to a Status.
// Codes the app does not know about become StatusUnknown.
func StatusFromDevice(code byte) Status {
	if int(code) >= len(deviceStatus) {
		return StatusUnknown
	}
	return deviceStatus[code]
}

// String returns a short kebab-case name for the status.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "success"
	case StatusTimedOut:
		return "timed-out"
	case StatusCommunicationError:
		return "communication-error"
	case StatusNotConnected:
		return "not-connected"
	case StatusInvalidToken:
		return "invalid-token"
	case StatusInvalidParameter:
		return "invalid-parameter"
	case StatusActionFailed:
		return "action-failed"
	case StatusNotInitialized:
		return "not-initialized"
	case StatusNoAction:
		return "no-action"
	case StatusInvalidCommandSize:
		return "invalid-command-size"
	case StatusFileNotFound:
		return "file-not-found"
	case StatusOutOfMemory:
		return "out-of-memory"
	case StatusInvalidCommandRequest:
		return "invalid-command-request"
	case StatusMaxCommandsReached:
		return "max-commands-reached"
	case StatusNameUpdateFailed:
		return "name-update-failed"
	case StatusOpenFileFailed:
		return "open-file-failed"
	case StatusWriteFileFailed:
		return "write-file-failed"
	case StatusReadFileFailed:
		return "read-file-failed"
	case StatusSendFailed:
		return "send-failed"
	case StatusReceiveFailed:
		return "receive-failed"
	case StatusDataTooLong:
		return "data-too-long"
	case StatusCorruptedData:
		return "corrupted-data"
	case StatusInvalidIndex:
		return "invalid-index"
	case StatusOverlappingPatterns:
		return "overlapping-patterns"
	case StatusUnknown:
		return "unknown"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Message returns a human-readable description suitable for display.
func (s Status) Message() string {
	switch s {
	case StatusSuccess:
		return "operation completed successfully"
	case StatusTimedOut:
		return "the badge did not answer in time"
	case StatusCommunicationError:
		return "received a malformed response"
	case StatusNotConnected:
		return "the badge is not connected"
	case StatusInvalidToken:
		return "the session token was rejected"
	case StatusInvalidParameter:
		return "the badge rejected a parameter"
	case StatusActionFailed:
		return "the badge could not perform the action"
	case StatusNotInitialized:
		return "the badge is not initialized"
	case StatusNoAction:
		return "nothing to do"
	case StatusInvalidCommandSize:
		return "the command has an invalid size"
	case StatusFileNotFound:
		return "no such image on the badge"
	case StatusOutOfMemory:
		return "the badge ran out of memory"
	case StatusInvalidCommandRequest:
		return "the badge does not understand the command"
	case StatusMaxCommandsReached:
		return "too many commands in flight"
	case StatusNameUpdateFailed:
		return "could not update the name"
	case StatusOpenFileFailed:
		return "could not open the file"
	case StatusWriteFileFailed:
		return "could not write the file"
	case StatusReadFileFailed:
		return "could not read the file"
	case StatusSendFailed:
		return "sending failed"
	case StatusReceiveFailed:
		return "receiving failed"
	case StatusDataTooLong:
		return "the data is too long"
	case StatusCorruptedData:
		return "the data is corrupted"
	case StatusInvalidIndex:
		return "invalid index"
	case StatusOverlappingPatterns:
		return "patterns overlap"
	default:
		return "unknown error"
	}
}
