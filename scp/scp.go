// Package scp implements the classic OpenSSH rcp/SCP wire protocol.
//
// SCP is a half-duplex file transfer protocol spoken over an
// already-established byte stream, normally an SSH "exec" channel running
// `scp -t ...` (sink) or `scp -f ...` (source). This package implements both
// sides: the Receiver consumes control headers and writes files into the
// local filesystem, the Sender walks a local tree and emits headers and
// payloads. The wire dialogue stays byte-exact compatible with OpenSSH scp.
//
// The package is designed as a library that can sit behind an SSH server
// channel handler or drive a remote scp through an SSH client session, and
// provides event hooks for progress tracking and auditing.
package scp

// Status bytes exchanged between the peers. A non-zero status is followed by
// a newline-terminated diagnostic line.
const (
	// StatusOK acknowledges the previous header, payload or terminator.
	StatusOK = 0x00

	// StatusWarning is advisory; the transfer continues.
	StatusWarning = 0x01

	// StatusError aborts the transfer.
	StatusError = 0x02
)

// Buffer sizing for payload copies.
const (
	// DefaultBufferSize is the default size of the payload copy buffer.
	DefaultBufferSize = 32 * 1024

	// MinBufferSize is the smallest copy buffer the codec will use.
	// Configured sizes below it are raised to it.
	MinBufferSize = 127
)
