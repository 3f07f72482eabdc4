package flagx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterArgs(t *testing.T) {
	tests := []struct {
		name         string
		args         []string
		allowedFlags []string
		want         []string
	}{
		{
			name:         "short flag with separate value",
			args:         []string{"-c", "conf.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"-c", "conf.json"},
		},
		{
			name:         "long flag with equals",
			args:         []string{"--config=alt.json", "-a", "localhost"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{"--config=alt.json"},
		},
		{
			name:         "unknown flags ignored",
			args:         []string{"-x", "1", "--y=2", "positional"},
			allowedFlags: []string{"-c", "--config"},
			want:         []string{},
		},
		{
			name:         "flag without value at end is kept as-is",
			args:         []string{"-c"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "flag followed by another flag (no value)",
			args:         []string{"-c", "-notvalue"},
			allowedFlags: []string{"-c"},
			want:         []string{"-c"},
		},
		{
			name:         "multiple allowed flags kept in order",
			args:         []string{"-a", ":8080", "-c", "conf.yaml", "--other", "x"},
			allowedFlags: []string{"-c", "-a"},
			want:         []string{"-a", ":8080", "-c", "conf.yaml"},
		},
		{
			name:         "empty args",
			args:         []string{},
			allowedFlags: []string{"-c"},
			want:         []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FilterArgs(tt.args, tt.allowedFlags))
		})
	}
}

func TestConfigFileFlag(t *testing.T) {
	assert.Equal(t, "hasker.yaml", ConfigFileFlag([]string{"-a", ":80", "-c", "hasker.yaml"}))
	assert.Equal(t, "hasker.json", ConfigFileFlag([]string{"-config=hasker.json"}))
	assert.Equal(t, "", ConfigFileFlag([]string{"-a", ":80"}))
}

func TestBoolFlag(t *testing.T) {
	assert.True(t, BoolFlag([]string{"-a", ":80", "-routes"}, "routes"))
	assert.True(t, BoolFlag([]string{"--routes=true"}, "routes"))
	assert.False(t, BoolFlag([]string{"-routes=false"}, "routes"))
	assert.False(t, BoolFlag([]string{"-a", ":80"}, "routes"))
}
