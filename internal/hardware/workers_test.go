package hardware

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveWorkers_ZeroMeansAllLogicalCores(t *testing.T) {
	caps := Capabilities{LogicalCores: 8}
	assert.Equal(t, 8, ResolveWorkers(0, caps))
}

func TestResolveWorkers_PositiveRequestIsUsedAsIs(t *testing.T) {
	caps := Capabilities{LogicalCores: 8}
	assert.Equal(t, 3, ResolveWorkers(3, caps))
	assert.Equal(t, 32, ResolveWorkers(32, caps))
}

func TestResolveWorkers_FallsBackToOneWhenLogicalCoresUnknown(t *testing.T) {
	caps := Capabilities{LogicalCores: 0}
	assert.Equal(t, 1, ResolveWorkers(0, caps))
}

func TestDetect_ReturnsAtLeastOneLogicalCore(t *testing.T) {
	caps := Detect()
	assert.GreaterOrEqual(t, caps.LogicalCores, 1)
}

func TestSummary_FallsBackWithoutModelName(t *testing.T) {
	caps := Capabilities{LogicalCores: 4}
	assert.Equal(t, "4 logical cores", caps.Summary())
}

func TestSummary_IncludesModelNameWhenKnown(t *testing.T) {
	caps := Capabilities{LogicalCores: 4, PhysicalCores: 2, ModelName: "Apple M1"}
	assert.Equal(t, "Apple M1 (2 physical / 4 logical cores)", caps.Summary())
}
