package manifest

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultContract(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate())

	assert.Equal(t, "1042_subscription_processed.csv", Name(c.Outputs.Data, "1042"))
	assert.Equal(t, "477_1042_subscription_processed.csv", Name(c.Outputs.Regulatory, "1042"))
	assert.Equal(t, "1042_voice_state_data.txt", Name(c.Outputs.VoiceStates, "1042"))
	assert.Equal(t, "/srv/results/2025-06-30/1042", Expand("/srv/results/{period}/{isp}", "1042", "2025-06-30"))

	names := c.DirNames()
	assert.Equal(t, "subscribers", names.Detailed)
	assert.Equal(t, "oss_subscriptionOLD", names.Aggregated)
	assert.Equal(t, "subscription_processed", names.Output)

	assert.True(t, c.AcceptsExtension(".CSV"))
	assert.False(t, c.AcceptsExtension(".xlsx"))
	assert.Len(t, c.OutputNames("7"), 8)
}

func TestLoadContract(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr bool
		check   func(*testing.T, *Contract)
	}{
		{
			name: "overlay keeps unspecified defaults",
			content: `
version: 1
upstream:
  corrected_csv: _Subscribers_Corrected.csv
inputs:
  extensions: [".csv", ".txt"]
`,
			check: func(t *testing.T, c *Contract) {
				assert.Equal(t, "_Subscribers_Corrected.csv", c.Upstream.CorrectedCSV)
				assert.Equal(t, "_VR.xlsx", c.Upstream.ValidationReport)
				assert.Equal(t, "subscribers", c.Inputs.DetailedDir)
				assert.True(t, c.AcceptsExtension(".txt"))
			},
		},
		{
			name:    "unknown major version",
			content: "version: 2\n",
			wantErr: true,
		},
		{
			name:    "blank suffix rejected",
			content: "version: 1\nupstream:\n  corrected_csv: \"\"\n",
			wantErr: true,
		},
		{
			name:    "extension without dot",
			content: "version: 1\ninputs:\n  extensions: [csv]\n",
			wantErr: true,
		},
		{
			name:    "malformed yaml",
			content: "version: [",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "contract.yaml")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))

			c, err := LoadContract(path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.check(t, c)
		})
	}
}

func TestLoadContract_EmptyPath(t *testing.T) {
	c, err := LoadContract("")
	require.NoError(t, err)
	assert.Equal(t, Default(), c)
}

func TestFingerprint(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.csv")
	b := filepath.Join(dir, "b.csv")
	require.NoError(t, os.WriteFile(a, []byte("tract,tech\n"), 0644))
	require.NoError(t, os.WriteFile(b, []byte("tract,tech\n"), 0644))

	sumA, size, err := Fingerprint(a)
	require.NoError(t, err)
	assert.Len(t, sumA, 16)
	assert.Equal(t, int64(11), size)

	sumB, _, err := Fingerprint(b)
	require.NoError(t, err)
	assert.Equal(t, sumA, sumB)

	require.NoError(t, os.WriteFile(b, []byte("tract,tech,x\n"), 0644))
	sumB, _, err = Fingerprint(b)
	require.NoError(t, err)
	assert.NotEqual(t, sumA, sumB)

	_, _, err = Fingerprint(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestRunManifest(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "subs.csv")
	require.NoError(t, os.WriteFile(input, []byte("row\n"), 0644))

	m := NewRunManifest("run-1", "1042", "2025-06-30")
	assert.Equal(t, "pending", m.Status)

	t.Run("stages", func(t *testing.T) {
		m.RecordStageStart("classify", "Classify input")
		stage, ok := m.Stage("classify")
		require.True(t, ok)
		assert.Equal(t, StageRunning, stage.Status)

		m.RecordStageCompletion("classify", map[string]interface{}{"kind": "detailed"})
		stage, _ = m.Stage("classify")
		assert.Equal(t, StageCompleted, stage.Status)
		assert.NotEmpty(t, stage.Duration)

		m.RecordStageSkipped("upstream", "Upstream validator", "not configured")
		stage, _ = m.Stage("upstream")
		assert.Equal(t, StageSkipped, stage.Status)

		m.RecordStageStart("persist", "Persist rows")
		m.RecordStageFailure("persist", errors.New("connection reset"))
		stage, _ = m.Stage("persist")
		assert.Equal(t, StageFailed, stage.Status)
		assert.Equal(t, "connection reset", stage.Error)
		assert.Contains(t, m.Error, "persist")

		_, ok = m.Stage("notify")
		assert.False(t, ok)
	})

	t.Run("files", func(t *testing.T) {
		require.NoError(t, m.SetInput(input, "detailed"))
		assert.Equal(t, "detailed", m.Input.Kind)
		assert.Equal(t, int64(4), m.Input.Size)

		require.NoError(t, m.AddArtifact(input))
		require.NoError(t, m.AddArtifact(input))
		assert.Len(t, m.ArtifactList(), 1)

		assert.Error(t, m.AddArtifact(filepath.Join(dir, "nope")))
	})

	t.Run("save and load", func(t *testing.T) {
		m.Finish("errors", map[string]int{"ROW_FIELD": 2})
		path := filepath.Join(dir, "run_manifest.json")
		require.NoError(t, m.SaveToFile(path))

		loaded, err := LoadFromFile(path)
		require.NoError(t, err)
		assert.Equal(t, "run-1", loaded.RunID)
		assert.Equal(t, "errors", loaded.Status)
		assert.Equal(t, 2, loaded.ErrorCounts["ROW_FIELD"])
		assert.Len(t, loaded.Stages, 3)
		assert.Equal(t, m.Input.Fingerprint, loaded.Input.Fingerprint)
	})
}
