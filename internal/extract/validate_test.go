package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/headingmap/internal/headings"
)

// seq builds literal occurrences at increasing offsets.
func seq(levels ...int) []headings.Occurrence {
	occs := make([]headings.Occurrence, len(levels))
	for i, l := range levels {
		occs[i] = headings.Occurrence{
			Level:    l,
			Content:  "heading",
			Offset:   i * 10,
			Position: headings.Position{Line: i},
			Dialect:  headings.DialectLiteral,
		}
	}
	return occs
}

func warnings(occs []headings.Occurrence) []string {
	out := make([]string, len(occs))
	for i, o := range occs {
		if o.HasWarning {
			out[i] = o.WarningMessage
		}
	}
	return out
}

func TestValidateCleanSequence(t *testing.T) {
	got := Validate(seq(1, 2, 3), headings.DefaultConfig())
	assert.Equal(t, 0, headings.CountWarnings(got))
}

func TestValidateDecreaseToNonTopLevel(t *testing.T) {
	got := Validate(seq(1, 2, 3, 2, 3), headings.DefaultConfig())
	assert.Equal(t, []string{"", "", "", "Heading level decreased from h3 to h2", ""}, warnings(got))
}

func TestValidateFirstHeadingNotTopLevel(t *testing.T) {
	got := Validate(seq(2), headings.DefaultConfig())
	require.Len(t, got, 1)
	assert.True(t, got[0].HasWarning)
	assert.Equal(t, "First heading should be h1 (found h2)", got[0].WarningMessage)
}

func TestValidateFirstHeadingCheckDisabled(t *testing.T) {
	cfg := headings.Config{RequireH1AsFirstHeading: false, WarnOnHeadingLevelSkip: true}
	got := Validate(seq(2), cfg)
	require.Len(t, got, 1)
	// The whole-document pass still notices there is no h1.
	assert.Equal(t, MsgNoTopLevel, got[0].WarningMessage)
}

func TestValidateLevelSkip(t *testing.T) {
	got := Validate(seq(1, 3), headings.DefaultConfig())
	assert.Equal(t, []string{"", "Heading level skipped from h1 to h3"}, warnings(got))

	cfg := headings.Config{RequireH1AsFirstHeading: true, WarnOnHeadingLevelSkip: false}
	got = Validate(seq(1, 3), cfg)
	assert.Equal(t, 0, headings.CountWarnings(got))
}

func TestValidateHeadingBeforeTopLevel(t *testing.T) {
	cfg := headings.Config{RequireH1AsFirstHeading: false, WarnOnHeadingLevelSkip: true}
	got := Validate(seq(2, 1), cfg)
	assert.Equal(t, []string{MsgBeforeFirst, ""}, warnings(got))

	got = Validate(seq(2, 1), headings.DefaultConfig())
	assert.Equal(t, []string{"First heading should be h1 (found h2)", ""}, warnings(got))
}

func TestValidateTopLevelReappears(t *testing.T) {
	got := Validate(seq(1, 2, 1), headings.DefaultConfig())
	assert.Equal(t, []string{"", "", "h1 appears after deeper heading h2"}, warnings(got))
}

func TestValidateDecreaseAndSkip(t *testing.T) {
	got := Validate(seq(1, 3, 2), headings.DefaultConfig())
	assert.Equal(t, []string{
		"",
		"Heading level skipped from h1 to h3",
		"Heading level decreased from h3 to h2",
	}, warnings(got))
}

func TestValidateNoTopLevel(t *testing.T) {
	cfg := headings.Config{}
	got := Validate(seq(2, 3, 3), cfg)
	assert.Equal(t, []string{MsgNoTopLevel, MsgNoTopLevel, MsgNoTopLevel}, warnings(got))
}

func TestValidateDynamicAlwaysWarned(t *testing.T) {
	occs := seq(1, 1, 2)
	occs[1].Dynamic = true
	occs[1].Reason = "Dynamic heading level detected in computed property"

	got := Validate(occs, headings.DefaultConfig())
	assert.Equal(t, []string{"", occs[1].Reason, ""}, warnings(got))

	got = Validate(occs, headings.Config{})
	assert.True(t, got[1].HasWarning)
	assert.Equal(t, occs[1].Reason, got[1].WarningMessage)
}

func TestValidateSortsByPosition(t *testing.T) {
	occs := seq(1, 2)
	occs[0].Offset, occs[1].Offset = 50, 5

	got := Validate(occs, headings.DefaultConfig())
	require.Len(t, got, 2)
	assert.Equal(t, 2, got[0].Level)
	assert.Equal(t, "First heading should be h1 (found h2)", got[0].WarningMessage)
	assert.Equal(t, 1, got[1].Level)
}

func TestValidateIsIdempotent(t *testing.T) {
	cfg := headings.DefaultConfig()
	first := Validate(seq(2, 1, 4, 3, 1), cfg)
	second := Validate(first, cfg)
	assert.Equal(t, first, second)
}

func TestValidateDiscardsStaleWarnings(t *testing.T) {
	occs := seq(1, 2)
	occs[1].Warn("stale")

	got := Validate(occs, headings.DefaultConfig())
	assert.Equal(t, 0, headings.CountWarnings(got))
	assert.True(t, occs[1].HasWarning, "input must not be modified")
}

func TestValidateEmpty(t *testing.T) {
	assert.Empty(t, Validate(nil, headings.DefaultConfig()))
}
