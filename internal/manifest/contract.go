package manifest

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"

	"bdcsubs/internal/config"
)

// CurrentVersion is the contract major version this build understands
const CurrentVersion = 1

// Contract is the versioned description of every file name the pipeline
// consumes or produces, including the artifacts of the upstream validator.
// Name templates may contain {isp}.
type Contract struct {
	Version  int              `yaml:"version" validate:"required"`
	Inputs   InputContract    `yaml:"inputs"`
	Outputs  OutputContract   `yaml:"outputs"`
	Upstream UpstreamContract `yaml:"upstream"`
}

// InputContract names the upload subdirectories and accepted extensions
type InputContract struct {
	DetailedDir   string   `yaml:"detailed_dir" validate:"required"`
	AggregatedDir string   `yaml:"aggregated_dir" validate:"required"`
	OutputDir     string   `yaml:"output_dir" validate:"required"`
	Extensions    []string `yaml:"extensions" validate:"required,min=1,dive,startswith=."`
}

// OutputContract names the artifacts written to the output directory
type OutputContract struct {
	ErrorReport      string `yaml:"error_report" validate:"required"`
	Data             string `yaml:"data" validate:"required"`
	Regulatory       string `yaml:"regulatory" validate:"required"`
	Voice            string `yaml:"voice" validate:"required"`
	VoiceStates      string `yaml:"voice_states" validate:"required"`
	Corrections      string `yaml:"corrections" validate:"required"`
	UpstreamWorkbook string `yaml:"upstream_workbook" validate:"required"`
	RunManifest      string `yaml:"run_manifest" validate:"required"`
}

// UpstreamContract holds the file-name suffixes the upstream validator appends
// to the input's base name.
type UpstreamContract struct {
	CorrectedCSV      string `yaml:"corrected_csv" validate:"required"`
	CorrectedWorkbook string `yaml:"corrected_workbook" validate:"required"`
	ColumnCountErrors string `yaml:"column_count_errors" validate:"required"`
	ValidationReport  string `yaml:"validation_report" validate:"required"`
	Original          string `yaml:"original"`
	RowNumberColumn   string `yaml:"row_number_column" validate:"required"`
}

// Default returns version 1 of the contract
func Default() *Contract {
	return &Contract{
		Version: CurrentVersion,
		Inputs: InputContract{
			DetailedDir:   "subscribers",
			AggregatedDir: "oss_subscriptionOLD",
			OutputDir:     "subscription_processed",
			Extensions:    []string{".csv"},
		},
		Outputs: OutputContract{
			ErrorReport:      "processing_errors.txt",
			Data:             "{isp}_subscription_processed.csv",
			Regulatory:       "477_{isp}_subscription_processed.csv",
			Voice:            "{isp}_voice_subscription_processed.csv",
			VoiceStates:      "{isp}_voice_state_data.txt",
			Corrections:      "{isp}_subscription_corrections.xlsx",
			UpstreamWorkbook: "{isp}_modified_subscription_file.xlsx",
			RunManifest:      "run_manifest.json",
		},
		Upstream: UpstreamContract{
			CorrectedCSV:      "_Corrected_Subscribers.csv",
			CorrectedWorkbook: "_Corrected_Subscribers.xlsx",
			ColumnCountErrors: "_Column_Count_Errors.xlsx",
			ValidationReport:  "_VR.xlsx",
			Original:          "_Original.csv",
			RowNumberColumn:   "OrigRowNum",
		},
	}
}

// LoadContract overlays the YAML file at path onto Default. An empty path
// returns Default unchanged.
func LoadContract(path string) (*Contract, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read artifact contract: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return nil, fmt.Errorf("failed to parse artifact contract: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the version and that no name is blank
func (c *Contract) Validate() error {
	if c.Version != CurrentVersion {
		return fmt.Errorf("unsupported artifact contract version %d (want %d)", c.Version, CurrentVersion)
	}
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("artifact contract validation failed: %w", err)
	}
	return nil
}

// DirNames returns the upload subdirectory names for path resolution
func (c *Contract) DirNames() config.DirNames {
	return config.DirNames{
		Detailed:   c.Inputs.DetailedDir,
		Aggregated: c.Inputs.AggregatedDir,
		Output:     c.Inputs.OutputDir,
	}
}

// Name expands an output template for isp
func Name(template, isp string) string {
	return strings.ReplaceAll(template, "{isp}", isp)
}

// Expand replaces {isp} and {period} in a path template
func Expand(template, isp, period string) string {
	return strings.ReplaceAll(Name(template, isp), "{period}", period)
}

// OutputNames lists every contract-named artifact of a run for isp, in the
// order they are written.
func (c *Contract) OutputNames(isp string) []string {
	o := c.Outputs
	return []string{
		Name(o.ErrorReport, isp),
		Name(o.Data, isp),
		Name(o.Regulatory, isp),
		Name(o.Voice, isp),
		Name(o.VoiceStates, isp),
		Name(o.Corrections, isp),
		Name(o.UpstreamWorkbook, isp),
		Name(o.RunManifest, isp),
	}
}

// AcceptsExtension reports whether ext is an accepted input extension
func (c *Contract) AcceptsExtension(ext string) bool {
	for _, e := range c.Inputs.Extensions {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}
