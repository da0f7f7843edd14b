package manager

import "fmt"

// parseEndpoint splits a configured endpoint address of the form
// "tcp://host:port" or "unix:///path/to.sock" into the (network,
// address) pair net.Listen expects.
func parseEndpoint(endpoint string) (network, address string, err error) {
	const tcpPrefix = "tcp://"
	const unixPrefix = "unix://"

	switch {
	case len(endpoint) > len(tcpPrefix) && endpoint[:len(tcpPrefix)] == tcpPrefix:
		return "tcp", endpoint[len(tcpPrefix):], nil
	case len(endpoint) > len(unixPrefix) && endpoint[:len(unixPrefix)] == unixPrefix:
		return "unix", endpoint[len(unixPrefix):], nil
	default:
		return "", "", fmt.Errorf("manager: endpoint %q must start with tcp:// or unix://", endpoint)
	}
}
