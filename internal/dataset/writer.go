package dataset

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"feedback-insights-go/internal/pipeline"
)

var resultColumns = []string{
	"fila", "comentario", "idioma", "cliente_id", "fecha", "categoria", "canal",
	"nps", "origen_nps", "confianza_nps", "categoria_nps",
	"sentimiento", "emocion_dominante", "intensidad_emocional",
	"riesgo_churn", "nivel_riesgo", "recomendacion",
	"pain_points", "analisis_fallback",
}

// WriteResult exports a pipeline run to an .xlsx workbook: one sheet with
// the enriched rows, one with the dataset-level summary.
func WriteResult(path string, result *pipeline.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	const dataSheet = "resultados"
	f.SetSheetName(f.GetSheetName(0), dataSheet)

	if err := f.SetSheetRow(dataSheet, "A1", &resultColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, row := range result.Rows {
		points := make([]string, 0, len(row.PainPoints))
		for _, p := range row.PainPoints {
			points = append(points, fmt.Sprintf("%s (%s/%s)", p.Description, p.Category, p.Severity))
		}
		cells := []any{
			row.RowID,
			row.Text,
			string(row.Language),
			row.CustomerID,
			row.Date,
			row.CategoryIn,
			row.Channel,
			row.Score,
			row.ScoreSource,
			row.ScoreConfidence,
			string(row.NPSCategory),
			string(row.Analysis.Sentiment),
			row.Emotion.Dominant.String(),
			row.Emotion.Intensity,
			row.Churn.ChurnRisk,
			string(row.Churn.Level),
			row.Churn.Recommendation,
			strings.Join(points, "; "),
			row.Analysis.Fallback,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(dataSheet, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := writeSummarySheet(f, result); err != nil {
		return err
	}
	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, result *pipeline.Result) error {
	const sheet = "resumen"
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}

	lines := [][]any{
		{"filas_totales", result.Summary.TotalRows},
		{"filas_analizadas", result.Summary.AnalyzedRows},
		{"filas_fallback", result.Summary.FallbackRows},
		{"lotes", result.Summary.Batches},
		{"lotes_fallidos", result.Summary.FailedBatches},
		{"nps_inferidos", result.Summary.InferredScores},
		{"duracion", result.Summary.Duration.String()},
		{"nps", result.NPS.NPS},
		{"promotores", result.NPS.Promoters},
		{"pasivos", result.NPS.Passives},
		{"detractores", result.NPS.Detractors},
		{"nota_promedio", result.NPS.AverageScore},
		{"calidad_datos", result.Validation.QualityScore()},
		{"retencion_limpieza", result.Cleaning.RetentionRate()},
	}
	for _, pp := range result.PainPoints {
		lines = append(lines, []any{"pain_point_" + pp.Category, pp.Count})
	}
	for i, line := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("cell name: %w", err)
		}
		if err := f.SetSheetRow(sheet, cell, &line); err != nil {
			return fmt.Errorf("write summary row %d: %w", i+1, err)
		}
	}
	return nil
}
