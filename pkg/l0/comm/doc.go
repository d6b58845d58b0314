// Package comm provides L0 protocol support over a ring block buffer.
package comm

// L0 protocol is communicated between L0 firmware and L1 controller
// and focuses on robustness of data transferring that the communication
// is recoverable from errors over a peer-to-peer channel (e.g. serial port).
//
// This package uses a simple sequence based synchronization mechanism.
// It provides limited transfer error detection based on sequence
// check. However, it doesn't do any bit verification (e.g. CRC/Checksum)
// for simplicity and to be lightweighted.
//
// Received frames are never copied: the parser allocates a block of the
// exact frame length from an rbb.Buffer as soon as the length is known,
// writes the incoming bytes into it and puts it when complete. A Dispatcher
// (or any other consumer) gets, decodes in place and frees them.
//
// Each block holds one frame in wire encoding without sync bytes:
//
//	seq | code+len | [len] | data...
//
// so a run of blocks taken as a rbb.BlockQueue can be decoded with
// DecodeFrames.
