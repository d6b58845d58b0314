// Package rbb provides a ring block buffer.
//
// A ring block buffer carves variably-sized blocks out of one fixed byte
// arena and hands them to producers and consumers in strict FIFO order
// without copying payload. Blocks move through
//
//	Unused -> Inited (Alloc) -> Put (Put) -> Got (Get) -> Unused (Free)
//
// Alloc, Get and Free run inside a short IRQ-safe critical section and never
// block waiting for space or data. Put is lock free and must only be called
// by the owner of the block returned from Alloc.
package rbb
