package dataset

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"feedback-insights-go/internal/pipeline"
	"feedback-insights-go/internal/types"
)

func TestLoadExcel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.xlsx")

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"comentario", "nps", "canal"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"muy buen servicio", 9, "web"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{"demasiada demora", 3, "chat"}))
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"comentario", "nps", "canal"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "muy buen servicio", table.Rows[0][0])
	assert.Equal(t, "9", table.Rows[0][1])
}

func TestLoadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback.csv")
	data := "comentario,nps\nexcelente atencion,10\nmala experiencia,\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	table, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"comentario", "nps"}, table.Columns)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "mala experiencia", table.Rows[1][0])
}

func TestLoadUnsupportedExtension(t *testing.T) {
	_, err := Load("feedback.txt")
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.xlsx"))
	assert.Error(t, err)
}

func TestWriteResultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	result := &pipeline.Result{
		Rows: []types.EnrichedRow{
			{
				CleanedComment: types.CleanedComment{RowID: 0, Text: "muy buen servicio", Language: types.LangES},
				Score:          9,
				ScoreSource:    "original",
				NPSCategory:    types.NPSPromoter,
				PainPoints:     []types.PainPoint{{Description: "precio alto", Category: "precio", Severity: "media", Impact: 0.4}},
				Churn:          types.ChurnAnalysis{ChurnRisk: 0.1, Level: types.RiskLow, Recommendation: "mantener"},
			},
		},
	}
	require.NoError(t, WriteResult(path, result))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("resultados")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, resultColumns, rows[0])
	assert.Equal(t, "muy buen servicio", rows[1][1])

	summary, err := f.GetRows("resumen")
	require.NoError(t, err)
	assert.NotEmpty(t, summary)
}
