package device

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ardnew/usbctrl/pkg"
)

func TestControlState_String(t *testing.T) {
	tests := []struct {
		state ControlState
		want  string
	}{
		{StateSettingUp, "SETTING_UP"},
		{StateInData, "IN_DATA"},
		{StateLastInData, "LAST_IN_DATA"},
		{StateOutData, "OUT_DATA"},
		{StateLastOutData, "LAST_OUT_DATA"},
		{StateWaitStatusIn, "WAIT_STATUS_IN"},
		{StateWaitStatusOut, "WAIT_STATUS_OUT"},
		{StateStalled, "STALLED"},
		{StatePause, "PAUSE"},
		{ControlState(42), "Unknown State (42)"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.state.String())
		})
	}
}

func TestControlState_DataStages(t *testing.T) {
	assert.True(t, StateInData.IsInData())
	assert.True(t, StateLastInData.IsInData())
	assert.False(t, StateOutData.IsInData())
	assert.True(t, StateOutData.IsOutData())
	assert.True(t, StateLastOutData.IsOutData())
	assert.False(t, StateWaitStatusIn.IsOutData())
}

func TestResult(t *testing.T) {
	assert.Equal(t, "SUCCESS", ResultSuccess.String())
	assert.Equal(t, "NOT_READY", ResultNotReady.String())
	assert.NoError(t, ResultSuccess.Err())
	assert.ErrorIs(t, ResultUnsupported.Err(), pkg.ErrUnsupported)
	assert.ErrorIs(t, ResultNotReady.Err(), pkg.ErrNotReady)
}

func TestToken(t *testing.T) {
	for tok := TokenSetup; tok <= TokenReset; tok++ {
		got, err := ParseToken(tok.String())
		assert.NoError(t, err)
		assert.Equal(t, tok, got)
	}

	got, err := ParseToken("resume")
	assert.NoError(t, err)
	assert.Equal(t, TokenResume, got)

	_, err = ParseToken("ping")
	assert.ErrorIs(t, err, pkg.ErrInvalidParameter)
}

func TestFeaturesWord(t *testing.T) {
	assert.Equal(t, uint16(0), Features{}.Word())
	assert.Equal(t, uint16(1), Features{SelfPowered: true}.Word())
	assert.Equal(t, uint16(2), Features{RemoteWakeup: true}.Word())
	assert.Equal(t, uint16(3), Features{SelfPowered: true, RemoteWakeup: true}.Word())
}
