// Package protocol implements the wire format spoken between the companion
// app and the badge.
//
// This package provides functions to build command envelopes and parse
// response envelopes, the closed status taxonomy surfaced to callers, and
// the fixed-size firmware header exchanged during a firmware update.
//
// # Envelope Overview
//
// Every command and every command response travels as a single notification
// on the command characteristic:
//
//	Command:  [ID(4)][TOKEN(8)][TYPE][LEN][PAYLOAD...]
//	Response: [ID(4)][TOKEN(8)][STATUS][LEN][PAYLOAD...]
//
// Where:
//   - ID = request identifier (little-endian uint32)
//   - TOKEN = session token, fixed-length ASCII shared with the badge
//   - LEN = payload length, always equal to the bytes that follow
//
// Version reads carry no envelope at all; they are raw ASCII read from two
// dedicated characteristics and correlated through reserved identifiers.
//
// # Command Builders
//
// Use BuildCommand to frame a command:
//
//	frame, err := protocol.BuildCommand(id, token, protocol.CmdPing, nil)
//
// # Response Parsers
//
// Use ParseEnvelope to split a frame and ParseResponse to validate its body:
//
//	env, err := protocol.ParseEnvelope(frame)
//	code, data, err := protocol.ParseResponse(env.Body())
//	if code != protocol.DeviceSuccess {
//	    return protocol.NewStatusError("ping", protocol.StatusFromDevice(code), nil)
//	}
//
// # Error Handling
//
// Every terminal failure, whether reported by the badge, by the link, or by
// envelope validation, is expressed as a *StatusError carrying a Status:
//
//	if protocol.StatusOf(err) == protocol.StatusFileNotFound {
//	    // ...
//	}
package protocol
