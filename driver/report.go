package driver

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
)

const ReportSchemaVersion = "acvp-run.v1"

var sha256Hex = regexp.MustCompile(`^[0-9a-f]{64}$`)

// Report is the machine-consumed record of a successful run.
type Report struct {
	SchemaVersion  string              `json:"schema_version"`
	GeneratedAtUTC string              `json:"generated_at_utc"`
	VectorSets     []VectorSetEvidence `json:"vector_sets"`
}

// VectorSetEvidence is one vector set of a run.
type VectorSetEvidence struct {
	PromptPath   string `json:"prompt_path"`
	ExpectedPath string `json:"expected_path,omitempty"`
	OutputPath   string `json:"output_path,omitempty"`
	VsID         int64  `json:"vs_id"`
	Mode         string `json:"mode"`
	Revision     string `json:"revision"`
	CaseCount    int    `json:"case_count"`
	Compared     bool   `json:"compared"`
	// ResultSHA256 is the digest of the canonical result document.
	ResultSHA256 string `json:"result_sha256"`
}

// WriteReport validates r and writes it to path as indented JSON.
func WriteReport(path string, r *Report) error {
	if err := ValidateReport(r); err != nil {
		return err
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("write report file: %w", err)
	}
	return nil
}

// ValidateReport checks the invariants every written report satisfies.
func ValidateReport(r *Report) error {
	if r == nil {
		return fmt.Errorf("report is nil")
	}
	if r.SchemaVersion != ReportSchemaVersion {
		return fmt.Errorf("unsupported schema_version %q", r.SchemaVersion)
	}
	if len(r.VectorSets) == 0 {
		return fmt.Errorf("report must include vector_sets")
	}
	for i, vs := range r.VectorSets {
		if vs.PromptPath == "" {
			return fmt.Errorf("vector_sets[%d]: prompt_path is required", i)
		}
		if !sha256Hex.MatchString(vs.ResultSHA256) {
			return fmt.Errorf("vector_sets[%d]: invalid result_sha256 %q", i, vs.ResultSHA256)
		}
		if vs.Compared && vs.ExpectedPath == "" {
			return fmt.Errorf("vector_sets[%d]: compared without expected_path", i)
		}
	}
	return nil
}
