package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseManualGear(t *testing.T) {
	tests := []struct {
		in   string
		want ManualGear
	}{
		{"r", ManualReverse},
		{"Reverse", ManualReverse},
		{"N", ManualNeutral},
		{"1", ManualFirst},
		{"third", ManualThird},
		{"6", ManualSixth},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseManualGear(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "7", "0", "drive"} {
		_, err := ParseManualGear(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseAutoGear(t *testing.T) {
	tests := []struct {
		in   string
		want AutoGear
	}{
		{"r", AutoReverse},
		{"n", AutoNeutral},
		{"L", AutoLow},
		{"d", AutoDrive},
		{"2", AutoSecond},
		{"Drive", AutoDrive},
	}
	for _, tt := range tests {
		got, err := ParseAutoGear(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseAutoGear("third")
	assert.Error(t, err)
}

func TestTransmissionMode(t *testing.T) {
	assert.Equal(t, Automatic, Manual.Toggle())
	assert.Equal(t, Manual, Automatic.Toggle())

	m, err := ParseTransmissionMode("automatic")
	require.NoError(t, err)
	assert.Equal(t, Automatic, m)

	_, err = ParseTransmissionMode("cvt")
	assert.Error(t, err)
}

func TestClutchFromPosition(t *testing.T) {
	assert.Equal(t, ClutchOff, ClutchFromPosition(-3))
	assert.Equal(t, ClutchOff, ClutchFromPosition(0))
	assert.Equal(t, ClutchHalfOn, ClutchFromPosition(1))
	assert.Equal(t, ClutchOn, ClutchFromPosition(2))
	assert.Equal(t, ClutchOn, ClutchFromPosition(9))
}

func TestStatusStrings(t *testing.T) {
	assert.Equal(t, "Stalled", EngineStalled.String())
	assert.True(t, EngineOn.Running())
	assert.False(t, EngineStalled.Running())
	assert.Equal(t, "HalfOn", ClutchHalfOn.String())
	assert.Equal(t, HandBrakeOff, HandBrakeOn.Toggle())
	assert.Equal(t, "Sixth", ManualSixth.String())
	assert.Equal(t, "Low", AutoLow.String())
}

func TestGearLists(t *testing.T) {
	assert.Len(t, ManualGears(), ManualGearCount)
	assert.Len(t, AutoGears(), AutoGearCount)
	for _, g := range ManualGears() {
		assert.True(t, g.Valid())
	}
	assert.False(t, ManualGear(ManualGearCount).Valid())
	assert.False(t, AutoGear(AutoGearCount).Valid())
}

func TestStatusJSON(t *testing.T) {
	b, err := json.Marshal(Snapshot{Mode: Automatic, Engine: EngineStalled, Clutch: ClutchHalfOn, HandBrake: HandBrakeOff})
	require.NoError(t, err)
	s := string(b)
	assert.Contains(t, s, `"mode":"Automatic"`)
	assert.Contains(t, s, `"engine":"Stalled"`)
	assert.Contains(t, s, `"clutch":"HalfOn"`)
	assert.Contains(t, s, `"handBrake":"Off"`)

	var m TransmissionMode
	require.NoError(t, json.Unmarshal([]byte(`"manual"`), &m))
	assert.Equal(t, Manual, m)
	assert.Error(t, json.Unmarshal([]byte(`"cvt"`), &m))
}
