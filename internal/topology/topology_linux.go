//go:build linux

package topology

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"

	"github.com/behrlich/go-actly/internal/constants"
)

// Detect reads the host topology for n cores from sysfs. Cores the host
// does not describe fall back to the synthetic layout for their slot.
func Detect(n uint32) *Table {
	if n == 0 || n > constants.MaxCores {
		return nil
	}
	syn := Synthetic(n)
	cores := make([]Info, n)
	copy(cores, syn.cores)

	// Capacity distinguishes P from E cores on hybrid parts; homogeneous
	// machines have no cpu_capacity file and stay all-performance.
	capacities := make([]uint64, n)
	var maxCap uint64
	for i := uint32(0); i < n; i++ {
		if v, ok := readSysfsUint(i, "cpu_capacity"); ok {
			capacities[i] = v
			if v > maxCap {
				maxCap = v
			}
		}
	}
	for i := uint32(0); i < n; i++ {
		if pkg, ok := readSysfsUint(i, "topology/physical_package_id"); ok {
			cores[i].NUMA = uint32(pkg)
		}
		if cl, ok := readSysfsUint(i, "topology/cluster_id"); ok {
			cores[i].Cluster = uint32(cl)
		}
		if maxCap != 0 && capacities[i] < maxCap {
			cores[i].Type = CoreEfficiency
		}
	}
	return &Table{cores: cores}
}

func readSysfsUint(core uint32, rel string) (uint64, bool) {
	path := fmt.Sprintf("/sys/devices/system/cpu/cpu%d/%s", core, rel)
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	v, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Pin binds the calling OS thread to core. The caller must have locked the
// goroutine to its thread first.
func Pin(core uint32) error {
	var set unix.CPUSet
	set.Zero()
	set.Set(int(core))
	return unix.SchedSetaffinity(0, &set)
}
