// Package net has small networking helpers used by tests.
package net

import (
	"fmt"
	"net"
)

// GetEphemeralTCPPort asks the kernel for a free TCP port and returns it.
// The listener used to acquire the port is closed before returning, so
// the port is only probably free; fine for tests.
func GetEphemeralTCPPort() (int, error) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("listening to acquire port: %w", err)
	}
	defer listener.Close()
	return listener.Addr().(*net.TCPAddr).Port, nil
}
