package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/dgallion1/headingmap/internal/headings"
	"github.com/dgallion1/headingmap/internal/pipeline"
)

func sample() []pipeline.Analysis {
	return []pipeline.Analysis{
		{
			Path: "src/Page.vue",
			Occurrences: []headings.Occurrence{
				{Level: 1, Content: "Title", Position: headings.Position{Line: 1, Column: 2}, Dialect: headings.DialectLiteral},
				{
					Level: 3, Content: "Deep", Position: headings.Position{Line: 2, Column: 2}, Dialect: headings.DialectLiteral,
					HasWarning: true, WarningMessage: "Heading level skipped from h1 to h3",
				},
			},
			Warnings: 1,
		},
		{Path: "src/Broken.vue", Error: "read src/Broken.vue: permission denied"},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"": FormatText, "text": FormatText, "json": FormatJSON, "yaml": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("xml")
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Summary{Files: 2, Headings: 2, Warnings: 1, Failures: 1}, Summarize(sample()))
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, sample()))

	want := "src/Page.vue:3:3: h3 \"Deep\" [literal]: Heading level skipped from h1 to h3\n" +
		"src/Broken.vue: error: read src/Broken.vue: permission denied\n" +
		"2 files, 2 headings, 1 warnings, 1 failures\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_TextEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, nil))
	assert.Equal(t, "0 files, 0 headings, 0 warnings, 0 failures\n", buf.String())
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sample()))

	var got struct {
		Summary  Summary `json:"summary"`
		Analyses []struct {
			Path        string `json:"path"`
			Error       string `json:"error"`
			Occurrences []struct {
				Level          int    `json:"level"`
				WarningMessage string `json:"warning_message"`
			} `json:"occurrences"`
		} `json:"analyses"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, 1, got.Summary.Warnings)
	require.Len(t, got.Analyses, 2)
	assert.Equal(t, "src/Page.vue", got.Analyses[0].Path)
	assert.Equal(t, "Heading level skipped from h1 to h3", got.Analyses[0].Occurrences[1].WarningMessage)
	assert.NotEmpty(t, got.Analyses[1].Error)
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sample()))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &got))
	summary, ok := got["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 2, summary["headings"])
	assert.Contains(t, buf.String(), "warning_message: Heading level skipped from h1 to h3")
}

func TestWrite_Unknown(t *testing.T) {
	assert.Error(t, Write(&bytes.Buffer{}, Format("xml"), nil))
}
