package models

import (
	"sort"
	"time"
)

// ClassificationResult is the drafting server's verdict for one part number.
type ClassificationResult struct {
	PartNumber    string `json:"part_number" msgpack:"part_number"`
	ComponentType string `json:"component_type" msgpack:"component_type"`
	Confidence    string `json:"confidence" msgpack:"confidence"`
}

// ParameterSet maps parameter names to their (editable) values.
type ParameterSet map[string]string

// Clone returns an independent copy. A nil set clones to an empty one.
func (p ParameterSet) Clone() ParameterSet {
	out := make(ParameterSet, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Keys returns the parameter names in sorted order.
func (p ParameterSet) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TemplateInfo is the handle returned by a template upload.
type TemplateInfo struct {
	ID         string    `json:"template_id" msgpack:"template_id"`
	Filename   string    `json:"filename" msgpack:"filename"`
	UploadedAt time.Time `json:"uploaded_at" msgpack:"uploaded_at"`
}

// TemplateEntry is one template known to the drafting server.
type TemplateEntry struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// GenerationRequest is the payload for document generation.
type GenerationRequest struct {
	TemplatePath  string       `json:"template_path"`
	PartNumber    string       `json:"part_number"`
	ComponentType string       `json:"component_type"`
	Parameters    ParameterSet `json:"parameters"`
	Description   string       `json:"description"`
}

// GenerationResult records the outcome of one generation invocation.
type GenerationResult struct {
	Token          uint64 `json:"token" msgpack:"token"`
	Success        bool   `json:"success" msgpack:"success"`
	OutputFilename string `json:"output_filename,omitempty" msgpack:"output_filename,omitempty"`
	Message        string `json:"message,omitempty" msgpack:"message,omitempty"`
}

// PipelineStage is where the classification pipeline currently stands.
type PipelineStage int

const (
	StageIdle PipelineStage = iota
	StageClassifying
	StageFetchingParameters
	StageReady
	StageGenerating
	StageGenerated
	StageFailed
)

var pipelineStageNames = map[PipelineStage]string{
	StageIdle:               "idle",
	StageClassifying:        "classifying",
	StageFetchingParameters: "fetching_parameters",
	StageReady:              "ready",
	StageGenerating:         "generating",
	StageGenerated:          "generated",
	StageFailed:             "failed",
}

func (s PipelineStage) String() string {
	if name, ok := pipelineStageNames[s]; ok {
		return name
	}
	return "unknown"
}

func (s PipelineStage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *PipelineStage) UnmarshalText(text []byte) error {
	for stage, name := range pipelineStageNames {
		if name == string(text) {
			*s = stage
			return nil
		}
	}
	*s = StageIdle
	return nil
}

// Busy reports whether a backend call is outstanding for the stage.
func (s PipelineStage) Busy() bool {
	return s == StageClassifying || s == StageFetchingParameters || s == StageGenerating
}

// PipelineState is a read-only copy of the classification pipeline.
type PipelineState struct {
	Stage            PipelineStage         `json:"stage" msgpack:"stage"`
	SearchToken      uint64                `json:"search_token" msgpack:"search_token"`
	PartNumber       string                `json:"part_number,omitempty" msgpack:"part_number,omitempty"`
	Classification   *ClassificationResult `json:"classification,omitempty" msgpack:"classification,omitempty"`
	Parameters       ParameterSet          `json:"parameters" msgpack:"parameters"`
	ParametersLoaded bool                  `json:"parameters_loaded" msgpack:"parameters_loaded"`
	Generation       *GenerationResult     `json:"generation,omitempty" msgpack:"generation,omitempty"`
	ClassifyError    string                `json:"classify_error,omitempty" msgpack:"classify_error,omitempty"`
	ParametersError  string                `json:"parameters_error,omitempty" msgpack:"parameters_error,omitempty"`
	GenerateError    string                `json:"generate_error,omitempty" msgpack:"generate_error,omitempty"`
}
