package main

import (
	"io"
	"net"
	"os"
	"strings"
)

// openDevice opens the serial device, or a TCP connection to a simulator
// when dev is tcp://host:port.
// The tty must be configured beforehand (e.g. stty raw).
func openDevice(dev string) (io.ReadWriteCloser, error) {
	if strings.HasPrefix(dev, "tcp://") {
		return net.Dial("tcp", strings.TrimPrefix(dev, "tcp://"))
	}
	f, err := os.OpenFile(dev, os.O_RDWR, 0)
	if err != nil {
		return nil, err
	}
	return f, nil
}
