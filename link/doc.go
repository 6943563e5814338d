// Package link defines the contract between the protocol engine and the
// physical radio transport, together with the small synchronization
// primitives the engine's workers share.
//
// A Channel exposes four characteristics: two notify streams (command and
// data) and two one-shot reads (hardware and software version). Writes are
// asynchronous and report completion through a callback; Gate turns them
// into blocking calls and guarantees at most one write is in flight on the
// link at any time.
package link
