package inference

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Fixed fallbacks applied by Resolve for omitted parameters.
const (
	DefaultMaxTokens      = 1024
	DefaultTemperature    = 0.7
	DefaultTopP           = 1.0
	DefaultReturnFullText = false
)

// Parameters are generation knobs. A nil field is absent and falls back to
// its default; an explicit zero value is sent as is. StopSequences is absent
// when nil and an explicit empty list when non-nil and empty.
type Parameters struct {
	MaxTokens      *int     `json:"max_tokens,omitempty" mapstructure:"max_tokens"`
	Temperature    *float64 `json:"temperature,omitempty" mapstructure:"temperature"`
	TopP           *float64 `json:"top_p,omitempty" mapstructure:"top_p"`
	StopSequences  []string `json:"stop_sequences,omitempty" mapstructure:"stop_sequences"`
	ReturnFullText *bool    `json:"return_full_text,omitempty" mapstructure:"return_full_text"`
}

// Int returns a pointer to v.
func Int(v int) *int { return &v }

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }

// Bool returns a pointer to v.
func Bool(v bool) *bool { return &v }

// Merge returns base with every field present in override replacing the
// corresponding base field. Neither argument is modified.
func Merge(base, override Parameters) Parameters {
	out := base.clone()
	if override.MaxTokens != nil {
		out.MaxTokens = Int(*override.MaxTokens)
	}
	if override.Temperature != nil {
		out.Temperature = Float(*override.Temperature)
	}
	if override.TopP != nil {
		out.TopP = Float(*override.TopP)
	}
	if override.StopSequences != nil {
		out.StopSequences = append([]string{}, override.StopSequences...)
	}
	if override.ReturnFullText != nil {
		out.ReturnFullText = Bool(*override.ReturnFullText)
	}
	return out
}

func (p Parameters) clone() Parameters {
	out := Parameters{}
	if p.MaxTokens != nil {
		out.MaxTokens = Int(*p.MaxTokens)
	}
	if p.Temperature != nil {
		out.Temperature = Float(*p.Temperature)
	}
	if p.TopP != nil {
		out.TopP = Float(*p.TopP)
	}
	if p.StopSequences != nil {
		out.StopSequences = append([]string{}, p.StopSequences...)
	}
	if p.ReturnFullText != nil {
		out.ReturnFullText = Bool(*p.ReturnFullText)
	}
	return out
}

// ResolvedParameters is the fully populated parameter set sent on the wire.
type ResolvedParameters struct {
	MaxTokens      int      `json:"max_tokens"`
	Temperature    float64  `json:"temperature"`
	TopP           float64  `json:"top_p"`
	StopSequences  []string `json:"stop_sequences"`
	ReturnFullText bool     `json:"return_full_text"`
}

// Resolve fills every absent field with its fixed default.
func (p Parameters) Resolve() ResolvedParameters {
	r := ResolvedParameters{
		MaxTokens:      DefaultMaxTokens,
		Temperature:    DefaultTemperature,
		TopP:           DefaultTopP,
		StopSequences:  []string{},
		ReturnFullText: DefaultReturnFullText,
	}
	if p.MaxTokens != nil {
		r.MaxTokens = *p.MaxTokens
	}
	if p.Temperature != nil {
		r.Temperature = *p.Temperature
	}
	if p.TopP != nil {
		r.TopP = *p.TopP
	}
	if p.StopSequences != nil {
		r.StopSequences = append(r.StopSequences, p.StopSequences...)
	}
	if p.ReturnFullText != nil {
		r.ReturnFullText = *p.ReturnFullText
	}
	return r
}

type generateRequest struct {
	Prompt string `json:"prompt"`
	ResolvedParameters
}

type batchRequest struct {
	Prompts []string `json:"prompts"`
	ResolvedParameters
}

// Generation is one generated text.
type Generation struct {
	Text string `json:"text"`
}

// GeneratedResponse is the service's answer to a generate request.
type GeneratedResponse struct {
	Responses []Generation `json:"responses"`
}

// Text returns the first generated text, or "" when there is none.
func (r GeneratedResponse) Text() string {
	if len(r.Responses) == 0 {
		return ""
	}
	return r.Responses[0].Text
}

// UnmarshalJSON accepts the {"responses":[...]} envelope or a bare JSON string.
func (r *GeneratedResponse) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		r.Responses = []Generation{{Text: s}}
		return nil
	}

	type envelope GeneratedResponse
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}
	*r = GeneratedResponse(env)
	return nil
}

// decodeBatch accepts a JSON array with one response per prompt, or a single
// envelope whose responses line up with the prompts.
func decodeBatch(data []byte) ([]GeneratedResponse, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var out []GeneratedResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var env GeneratedResponse
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	out := make([]GeneratedResponse, 0, len(env.Responses))
	for _, g := range env.Responses {
		out = append(out, GeneratedResponse{Responses: []Generation{g}})
	}
	return out, nil
}

// TensorMetadata describes a model input or output.
type TensorMetadata struct {
	Name     string  `json:"name"`
	DataType string  `json:"datatype"`
	Shape    []int64 `json:"shape"`
}

// ModelInfo is the metadata the service reports for a model.
type ModelInfo struct {
	Name     string           `json:"name"`
	Versions []string         `json:"versions,omitempty"`
	Platform string           `json:"platform,omitempty"`
	Inputs   []TensorMetadata `json:"inputs,omitempty"`
	Outputs  []TensorMetadata `json:"outputs,omitempty"`
}

// decodeModelList accepts {"models":[...]} or a bare array.
func decodeModelList(data []byte) ([]ModelInfo, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var out []ModelInfo
		if err := json.Unmarshal(data, &out); err != nil {
			return nil, err
		}
		return out, nil
	}

	var env struct {
		Models *[]ModelInfo `json:"models"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env.Models == nil {
		return nil, fmt.Errorf("response has no models field")
	}
	return *env.Models, nil
}

type healthStatus struct {
	Status string `json:"status"`
}
