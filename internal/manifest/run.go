package manifest

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Stage states
const (
	StageRunning   = "running"
	StageCompleted = "completed"
	StageFailed    = "failed"
	StageSkipped   = "skipped"
)

// RunManifest is the audit record of one ISP/period run. It is written to
// the output directory when the run ends, whatever the outcome.
type RunManifest struct {
	mu sync.RWMutex

	RunID     string    `json:"run_id"`
	ISP       string    `json:"isp"`
	Period    string    `json:"period"`
	StartTime time.Time `json:"start_time"`

	Input     *FileInfo        `json:"input,omitempty"`
	Stages    []StageExecution `json:"stages"`
	Artifacts []FileInfo       `json:"artifacts"`

	ErrorCounts map[string]int `json:"error_counts,omitempty"`
	Status      string         `json:"status"`
	Error       string         `json:"error,omitempty"`
	LastUpdated time.Time      `json:"last_updated"`
}

// FileInfo describes an input or produced file
type FileInfo struct {
	Path        string `json:"path"`
	Kind        string `json:"kind,omitempty"`
	Size        int64  `json:"size"`
	Fingerprint string `json:"xxhash64"`
}

// StageExecution tracks the execution of a single stage
type StageExecution struct {
	StageID   string                 `json:"stage_id"`
	StageName string                 `json:"stage_name"`
	StartTime time.Time              `json:"start_time"`
	EndTime   time.Time              `json:"end_time"`
	Duration  string                 `json:"duration,omitempty"`
	Status    string                 `json:"status"`
	Error     string                 `json:"error,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
}

// NewRunManifest creates a manifest for one run
func NewRunManifest(runID, isp, period string) *RunManifest {
	now := time.Now()
	return &RunManifest{
		RunID:       runID,
		ISP:         isp,
		Period:      period,
		StartTime:   now,
		Stages:      []StageExecution{},
		Artifacts:   []FileInfo{},
		Status:      "pending",
		LastUpdated: now,
	}
}

// Fingerprint returns the xxhash64 digest of a file as 16 hex digits and its size
func Fingerprint(path string) (string, int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", 0, err
	}
	defer f.Close()

	h := xxhash.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return fmt.Sprintf("%016x", h.Sum64()), n, nil
}

func describe(path, kind string) (FileInfo, error) {
	sum, size, err := Fingerprint(path)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Path: path, Kind: kind, Size: size, Fingerprint: sum}, nil
}

// SetInput records the classified input file
func (m *RunManifest) SetInput(path, kind string) error {
	info, err := describe(path, kind)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.Input = &info
	m.LastUpdated = time.Now()
	return nil
}

// AddArtifact records a produced file
func (m *RunManifest) AddArtifact(path string) error {
	info, err := describe(path, filepath.Ext(path))
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	for i, a := range m.Artifacts {
		if a.Path == path {
			m.Artifacts[i] = info
			m.LastUpdated = time.Now()
			return nil
		}
	}
	m.Artifacts = append(m.Artifacts, info)
	m.LastUpdated = time.Now()
	return nil
}

// ArtifactList returns a copy of the produced files
func (m *RunManifest) ArtifactList() []FileInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]FileInfo, len(m.Artifacts))
	copy(out, m.Artifacts)
	return out
}

// RecordStageStart records the start of a stage execution
func (m *RunManifest) RecordStageStart(stageID, stageName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Stages = append(m.Stages, StageExecution{
		StageID:   stageID,
		StageName: stageName,
		StartTime: time.Now(),
		Status:    StageRunning,
	})
	m.LastUpdated = time.Now()
}

// RecordStageCompletion records the completion of a stage
func (m *RunManifest) RecordStageCompletion(stageID string, metadata map[string]interface{}) {
	m.finishStage(stageID, StageCompleted, "", metadata)
}

// RecordStageSkipped records a stage that had nothing to do
func (m *RunManifest) RecordStageSkipped(stageID, stageName, reason string) {
	m.mu.Lock()
	now := time.Now()
	m.Stages = append(m.Stages, StageExecution{
		StageID:   stageID,
		StageName: stageName,
		StartTime: now,
		EndTime:   now,
		Status:    StageSkipped,
		Metadata:  map[string]interface{}{"reason": reason},
	})
	m.LastUpdated = now
	m.mu.Unlock()
}

// RecordStageFailure records a stage failure
func (m *RunManifest) RecordStageFailure(stageID string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	m.finishStage(stageID, StageFailed, msg, nil)

	m.mu.Lock()
	m.Error = fmt.Sprintf("stage %s failed: %s", stageID, msg)
	m.mu.Unlock()
}

func (m *RunManifest) finishStage(stageID, status, errMsg string, metadata map[string]interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Latest execution of the stage wins
	for i := len(m.Stages) - 1; i >= 0; i-- {
		if m.Stages[i].StageID != stageID {
			continue
		}
		m.Stages[i].EndTime = time.Now()
		m.Stages[i].Duration = m.Stages[i].EndTime.Sub(m.Stages[i].StartTime).String()
		m.Stages[i].Status = status
		m.Stages[i].Error = errMsg
		m.Stages[i].Metadata = metadata
		break
	}
	m.LastUpdated = time.Now()
}

// Stage returns the latest execution of a stage
func (m *RunManifest) Stage(stageID string) (StageExecution, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for i := len(m.Stages) - 1; i >= 0; i-- {
		if m.Stages[i].StageID == stageID {
			return m.Stages[i], true
		}
	}
	return StageExecution{}, false
}

// Finish records the final status and error counts
func (m *RunManifest) Finish(status string, errorCounts map[string]int) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Status = status
	if len(errorCounts) > 0 {
		m.ErrorCounts = make(map[string]int, len(errorCounts))
		for k, v := range errorCounts {
			m.ErrorCounts[k] = v
		}
	}
	m.LastUpdated = time.Now()
}

// SaveToFile saves the manifest to a JSON file
func (m *RunManifest) SaveToFile(path string) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest file: %w", err)
	}

	return nil
}

// LoadFromFile loads a manifest from a JSON file
func LoadFromFile(path string) (*RunManifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest file: %w", err)
	}

	var m RunManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to unmarshal manifest: %w", err)
	}

	return &m, nil
}
