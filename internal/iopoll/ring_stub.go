//go:build !giouring
// +build !giouring

package iopoll

import "fmt"

// NewRingPoller is available when built with -tags giouring
func NewRingPoller(config Config) (Poller, error) {
	return nil, fmt.Errorf("giouring not enabled; build with -tags giouring")
}
