package inference

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameters_Resolve(t *testing.T) {
	tests := []struct {
		name   string
		params Parameters
		want   ResolvedParameters
	}{
		{
			name:   "all absent",
			params: Parameters{},
			want:   ResolvedParameters{MaxTokens: 1024, Temperature: 0.7, TopP: 1.0, StopSequences: []string{}},
		},
		{
			name:   "explicit zeros win",
			params: Parameters{MaxTokens: Int(0), Temperature: Float(0), TopP: Float(0), StopSequences: []string{}, ReturnFullText: Bool(false)},
			want:   ResolvedParameters{MaxTokens: 0, Temperature: 0, TopP: 0, StopSequences: []string{}},
		},
		{
			name:   "subset",
			params: Parameters{MaxTokens: Int(512), StopSequences: []string{"###"}},
			want:   ResolvedParameters{MaxTokens: 512, Temperature: 0.7, TopP: 1.0, StopSequences: []string{"###"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.params.Resolve())
		})
	}
}

func TestMerge(t *testing.T) {
	base := Parameters{
		MaxTokens:     Int(1024),
		Temperature:   Float(0.7),
		TopP:          Float(0.9),
		StopSequences: []string{"\n###", "###", "</answer>"},
	}

	t.Run("override wins per key", func(t *testing.T) {
		got := Merge(base, Parameters{Temperature: Float(0.5), ReturnFullText: Bool(true)})
		assert.Equal(t, 1024, *got.MaxTokens)
		assert.Equal(t, 0.5, *got.Temperature)
		assert.Equal(t, 0.9, *got.TopP)
		assert.Equal(t, []string{"\n###", "###", "</answer>"}, got.StopSequences)
		assert.True(t, *got.ReturnFullText)
	})

	t.Run("explicit empty stop list replaces base", func(t *testing.T) {
		got := Merge(base, Parameters{StopSequences: []string{}})
		assert.NotNil(t, got.StopSequences)
		assert.Empty(t, got.StopSequences)
	})

	t.Run("inputs are not modified", func(t *testing.T) {
		override := Parameters{MaxTokens: Int(2048)}
		got := Merge(base, override)
		*got.MaxTokens = 1
		got.StopSequences[0] = "changed"

		assert.Equal(t, 1024, *base.MaxTokens)
		assert.Equal(t, 2048, *override.MaxTokens)
		assert.Equal(t, "\n###", base.StopSequences[0])
	})
}

func TestGeneratedResponse_Unmarshal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{"envelope", `{"responses":[{"text":"first"},{"text":"second"}]}`, "first", false},
		{"bare string", `"just text"`, "just text", false},
		{"empty envelope", `{"responses":[]}`, "", false},
		{"number", `42`, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var r GeneratedResponse
			err := json.Unmarshal([]byte(tt.input), &r)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.Text())
		})
	}
}

func TestDecodeModelList_MissingField(t *testing.T) {
	_, err := decodeModelList([]byte(`{"other":[]}`))
	assert.Error(t, err)
}

func TestExhaustedRetriesError_Unwrap(t *testing.T) {
	inner := &HTTPError{StatusCode: 500, Body: "x"}
	err := &ExhaustedRetriesError{Attempts: 3, LastErr: inner}

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "all 3 request attempts failed; last error: HTTP error 500: x", err.Error())
}
