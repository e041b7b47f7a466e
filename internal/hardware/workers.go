// Package hardware resolves how many worker goroutines a mining job should
// run with and reports what the host machine looks like. There's exactly
// one "device" to detect here: the CPU.
package hardware

import (
	"fmt"
	"runtime"

	"github.com/shirou/gopsutil/v3/cpu"
)

// Capabilities summarizes what this host can mine with. GPU dispatch is
// stubbed (internal/gpu) so Capabilities never reports anything but
// software: ResolveWorkers reads LogicalCores, and the remaining fields
// only feed Summary, not any mining logic.
type Capabilities struct {
	LogicalCores  int
	PhysicalCores int
	ModelName     string
}

// Detect inspects the host CPU. Physical core count and model name come
// from gopsutil; if either lookup fails (sandboxed or restricted hosts
// sometimes can't read /proc/cpuinfo) it falls back to logical core count
// and an empty model name rather than erroring — a worker count is still
// resolvable either way.
func Detect() Capabilities {
	caps := Capabilities{LogicalCores: runtime.NumCPU()}

	if infos, err := cpu.Info(); err == nil && len(infos) > 0 {
		caps.ModelName = infos[0].ModelName
	}
	if physical, err := cpu.Counts(false); err == nil && physical > 0 {
		caps.PhysicalCores = physical
	} else {
		caps.PhysicalCores = caps.LogicalCores
	}

	return caps
}

// ResolveWorkers turns the --threads flag's value into a concrete worker
// count: requested == 0 means "use every logical core" (spec section 3);
// any positive value is used as-is, including values above LogicalCores —
// the engine doesn't care, it just starts that many goroutines.
func ResolveWorkers(requested int, caps Capabilities) int {
	if requested > 0 {
		return requested
	}
	if caps.LogicalCores > 0 {
		return caps.LogicalCores
	}
	return 1
}

// Summary renders a one-line description of the detected host.
func (c Capabilities) Summary() string {
	if c.ModelName == "" {
		return fmt.Sprintf("%d logical cores", c.LogicalCores)
	}
	return fmt.Sprintf("%s (%d physical / %d logical cores)", c.ModelName, c.PhysicalCores, c.LogicalCores)
}
