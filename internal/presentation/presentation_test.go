package presentation

import (
	"bytes"
	"strings"
	"testing"

	"github.com/OCAP2/drivetrain/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() core.Snapshot {
	return core.Snapshot{
		Mode:        core.Manual,
		Gear:        "First",
		HandBrake:   core.HandBrakeOff,
		Accelerator: 50,
		Braking:     true,
		Clutch:      core.ClutchHalfOn,
		Engine:      core.EngineOn,
	}
}

func TestLines(t *testing.T) {
	lines := Lines(testSnapshot())
	assert.Equal(t, []string{
		"Car type: Manual",
		"Gear: First",
		"Hand brake: Off",
		"Accelerator: 50",
		"Brake: true",
		"Clutch: HalfOn",
		"Engine: On",
	}, lines)
}

func TestHUD_WritesOncePerDistinctSnapshot(t *testing.T) {
	var buf bytes.Buffer
	hud := NewHUD(&buf)

	s := testSnapshot()
	hud.Present(s)
	hud.Present(s)

	assert.Equal(t, 1, strings.Count(buf.String(), "Car type:"))

	s.Engine = core.EngineStalled
	hud.Present(s)

	assert.Equal(t, 2, strings.Count(buf.String(), "Car type:"))
	assert.Contains(t, buf.String(), "Engine: Stalled")
}

func TestMulti_FansOutAndSkipsNil(t *testing.T) {
	var got1, got2 []core.Snapshot
	m := NewMulti(
		Func(func(s core.Snapshot) { got1 = append(got1, s) }),
		nil,
		Func(func(s core.Snapshot) { got2 = append(got2, s) }),
	)
	require.Len(t, m.sinks, 2)

	m.Present(testSnapshot())

	assert.Len(t, got1, 1)
	assert.Len(t, got2, 1)
}

func TestNop(t *testing.T) {
	var s Sink = Nop{}
	assert.NotPanics(t, func() { s.Present(testSnapshot()) })
}
