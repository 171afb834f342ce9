// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/evidence-engine/pkg/types"
)

// File is the on-disk form of one rank request and its outcome. A saved
// report can be reloaded and re-rendered without querying upstream.
type File struct {
	Request   types.RankRequest `yaml:"request"`
	Outcome   types.Outcome     `yaml:"outcome"`
	RequestID string            `yaml:"request_id,omitempty"`
	Timestamp time.Time         `yaml:"timestamp"`
}

// WriteReport saves a request and its outcome to a YAML file.
func WriteReport(path string, req types.RankRequest, o types.Outcome, requestID string) error {
	f := File{
		Request:   req,
		Outcome:   o,
		RequestID: requestID,
		Timestamp: time.Now().UTC(),
	}
	data, err := yaml.Marshal(&f)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// ReadReport loads a report saved by WriteReport.
func ReadReport(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing report: %w", err)
	}
	return &f, nil
}
