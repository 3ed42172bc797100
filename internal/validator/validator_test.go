package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func table(columns []string, rows ...[]string) Table {
	return Table{Columns: columns, Rows: rows}
}

func TestValidateMissingRequiredColumnIsCritical(t *testing.T) {
	v := New(2000, false)
	_, err := v.Validate(table([]string{"fecha", "canal"}, []string{"2024-01-01", "web"}))
	require.Error(t, err)
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Error(), "missing required columns")
}

func TestValidateEmptyTableIsCritical(t *testing.T) {
	v := New(2000, false)
	_, err := v.Validate(table([]string{"comentario", "nps"}))
	require.Error(t, err)
}

func TestValidateColumnAliases(t *testing.T) {
	v := New(2000, false)
	res, err := v.Validate(table(
		[]string{"Feedback", "score", "Usuario"},
		[]string{"muy buen servicio", "9", "c-1"},
	))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "muy buen servicio", res.Records[0].RawText)
	assert.True(t, res.Records[0].HasScore)
	assert.Equal(t, 9.0, res.Records[0].Score)
	assert.Equal(t, "c-1", res.Records[0].CustomerID)
}

func TestValidateRowIssues(t *testing.T) {
	v := New(50, false)
	res, err := v.Validate(table(
		[]string{"comentario", "nps", "canal"},
		[]string{"", "7", "web"},
		[]string{"servicio aceptable", "doce", "web"},
		[]string{"demasiado caro para lo que ofrece", "15", "web"},
		[]string{"atencion correcta", "8", "paloma mensajera"},
		[]string{"todo bien", "8", "chat"},
	))
	require.NoError(t, err)

	categories := map[string]int{}
	for _, issue := range res.Issues {
		categories[issue.Category]++
	}
	assert.Equal(t, 1, categories["null_value"])
	assert.Equal(t, 1, categories["data_type"])
	assert.Equal(t, 1, categories["numeric_range"])
	assert.Equal(t, 1, categories["invalid_value"])

	// Non-strict mode keeps every row; bad scores become missing scores.
	assert.Len(t, res.Records, 5)
	assert.False(t, res.Records[2].HasScore)
}

func TestValidateStrictExcludesErrorRows(t *testing.T) {
	v := New(2000, true)
	res, err := v.Validate(table(
		[]string{"comentario", "nps"},
		[]string{"", "7"},
		[]string{"precio justo y buena atencion al cliente", "8"},
	))
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "precio justo y buena atencion al cliente", res.Records[0].RawText)
}

func TestConsistencyFlagNegativeCommentHighScore(t *testing.T) {
	v := New(2000, false)
	res, err := v.Validate(table(
		[]string{"comentario", "nps"},
		[]string{"terrible, un servicio horrible de verdad", "9"},
		[]string{"excelente lugar, perfecto en todo", "1"},
		[]string{"normal, sin mas", "5"},
	))
	require.NoError(t, err)
	require.Len(t, res.Records, 3)
	assert.True(t, res.InconsistentRows[0])
	assert.True(t, res.InconsistentRows[1])
	assert.False(t, res.InconsistentRows[2])

	warnings := 0
	for _, issue := range res.Issues {
		if issue.Category == "business_logic" {
			warnings++
		}
	}
	assert.Equal(t, 2, warnings)
}

func TestQualityScore(t *testing.T) {
	assert.Equal(t, 100.0, Stats{}.QualityScore())
	assert.Equal(t, 63.0, Stats{CriticalIssues: 1, ErrorIssues: 1, WarningIssues: 1}.QualityScore())
	assert.Equal(t, 0.0, Stats{CriticalIssues: 5}.QualityScore())
}
