package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "bdcsubs/internal/errors"
)

func TestParseArgs(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    invocation
		wantErr string
	}{
		{
			name: "isp and period",
			args: []string{"77", "2024-06-30"},
			want: invocation{isp: "77", period: "2024-06-30"},
		},
		{
			name: "flags and email",
			args: []string{"-config", "bdc.yaml", "-env", "prod.env", "77", "2024-06-30", "ops@example.com"},
			want: invocation{
				configFile: "bdc.yaml",
				envFile:    "prod.env",
				isp:        "77",
				period:     "2024-06-30",
				email:      "ops@example.com",
			},
		},
		{
			name:    "missing period",
			args:    []string{"77"},
			wantErr: "expected 2 or 3 arguments, got 1",
		},
		{
			name:    "too many arguments",
			args:    []string{"77", "2024-06-30", "a@example.com", "extra"},
			wantErr: "expected 2 or 3 arguments, got 4",
		},
		{
			name:    "non numeric isp",
			args:    []string{"77; DROP", "2024-06-30"},
			wantErr: "must contain only digits",
		},
		{
			name:    "bad period",
			args:    []string{"77", "06/30/2024"},
			wantErr: "is not a yyyy-mm-dd date",
		},
		{
			name:    "bad email",
			args:    []string{"77", "2024-06-30", "ops@localhost"},
			wantErr: `invalid email address "ops@localhost"`,
		},
		{
			name:    "unknown flag",
			args:    []string{"-verbose", "77", "2024-06-30"},
			wantErr: "flag provided but not defined",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseArgs(tt.args)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.True(t, apperrors.IsType(err, apperrors.ErrTypeArgument))
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRun_ArgumentErrorPrintsUsage(t *testing.T) {
	var stderr bytes.Buffer

	code := run([]string{"abc", "2024-06-30"}, &stderr)

	assert.Equal(t, apperrors.ExitArgument, code)
	assert.Contains(t, stderr.String(), "Usage: validate-subscription")
	assert.Contains(t, stderr.String(), "must contain only digits")
}
