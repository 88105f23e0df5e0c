// Copyright 2025 ZeroSignal AI
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// SourceConfig names one document to fetch for a pack.
type SourceConfig struct {
	URL      string         `yaml:"url"`
	Title    string         `yaml:"title,omitempty"`
	Metadata map[string]any `yaml:"metadata,omitempty"`
}

// PackConfig is the YAML definition of one context pack build.
type PackConfig struct {
	PackID               string         `yaml:"pack_id"`
	Sources              []SourceConfig `yaml:"sources"`
	ChunkSize            int            `yaml:"chunk_size"`
	ChunkOverlap         int            `yaml:"chunk_overlap"`
	SummaryModel         string         `yaml:"summary_model"`
	SummaryTemperature   float64        `yaml:"summary_temperature"`
	SummaryMaxWords      int            `yaml:"summary_max_words"`
	SummarizationEnabled bool           `yaml:"summarization_enabled"`
	RequestTimeout       int            `yaml:"request_timeout"`
	BatchSize            int            `yaml:"batch_size"`
	DefaultMetadata      map[string]any `yaml:"default_metadata,omitempty"`
}

// defaultPackConfig carries the field defaults; absent YAML keys keep them.
func defaultPackConfig() PackConfig {
	return PackConfig{
		ChunkSize:            900,
		ChunkOverlap:         150,
		SummaryModel:         "gpt-4o-mini",
		SummaryTemperature:   0.2,
		SummaryMaxWords:      180,
		SummarizationEnabled: true,
		RequestTimeout:       30,
		BatchSize:            16,
	}
}

// LoadPackConfig reads and validates a pack definition from a YAML file.
func LoadPackConfig(path string) (*PackConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pack config: %w", err)
	}
	return ParsePackConfig(data)
}

// ParsePackConfig parses and validates a pack definition from YAML bytes.
func ParsePackConfig(data []byte) (*PackConfig, error) {
	cfg := defaultPackConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse pack config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks all cross-field invariants. Every violation is reported
// against a sentinel so callers can classify it.
func (c *PackConfig) Validate() error {
	if c.PackID == "" {
		return ErrMissingPackID
	}
	if len(c.Sources) == 0 {
		return ErrNoSources
	}
	for i, src := range c.Sources {
		if src.URL == "" {
			return fmt.Errorf("%w: sources[%d]", ErrMissingSourceURL, i)
		}
	}
	if c.ChunkSize <= 0 {
		return ErrInvalidChunkSize
	}
	if c.ChunkOverlap < 0 {
		return ErrNegativeOverlap
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("%w: overlap %d, size %d", ErrOverlapTooLarge, c.ChunkOverlap, c.ChunkSize)
	}
	if c.BatchSize < 1 || c.BatchSize > 64 {
		return fmt.Errorf("%w: got %d", ErrInvalidBatchSize, c.BatchSize)
	}
	if c.SummaryMaxWords <= 0 {
		return ErrInvalidMaxWords
	}
	return nil
}
