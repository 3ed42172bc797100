package analysis

import (
	"sort"
	"strings"

	"feedback-insights-go/internal/types"
)

// Pain point categories and severities.
const (
	CategoryServicio     = "servicio"
	CategoryProducto     = "producto"
	CategoryPrecio       = "precio"
	CategoryProceso      = "proceso"
	CategoryComunicacion = "comunicacion"
	CategoryTiempo       = "tiempo"
	CategoryCalidad      = "calidad"
	CategoryPersonal     = "personal"

	SeverityBaja    = "baja"
	SeverityMedia   = "media"
	SeverityAlta    = "alta"
	SeverityCritica = "critica"
)

// categoryKeywords buckets pain-point text into business areas.
var categoryKeywords = map[string][]string{
	CategoryServicio:     {"servicio", "atención", "atencion", "no funciona", "caído", "caido", "indisponible", "complicado", "difícil", "dificil", "confuso"},
	CategoryProducto:     {"producto", "defectuoso", "roto", "falla", "limitado", "no tiene", "falta", "error", "bug", "obsoleto", "funciona"},
	CategoryPrecio:       {"precio", "caro", "costoso", "cobro", "sobreprecio", "no vale la pena", "cargo extra", "aumentó", "aumento"},
	CategoryProceso:      {"proceso", "trámite", "tramite", "procedimiento", "burocrático", "burocratico", "muchos pasos", "requisitos"},
	CategoryComunicacion: {"comunicación", "comunicacion", "no responden", "no contestan", "sin respuesta", "información", "informacion", "mal informado"},
	CategoryTiempo:       {"tiempo", "demora", "tardanza", "lento", "espera", "cola", "horario"},
	CategoryCalidad:      {"calidad", "mala calidad", "baja calidad", "mal hecho", "empeoró", "empeoro", "inconsistente"},
	CategoryPersonal:     {"personal", "empleado", "grosero", "mala actitud", "antipático", "antipatico", "no sabe", "capacitación", "capacitacion"},
}

// Category resolution order keeps classification deterministic when text
// matches multiple buckets.
var categoryOrder = []string{
	CategoryPrecio, CategoryProducto, CategoryProceso, CategoryComunicacion,
	CategoryTiempo, CategoryCalidad, CategoryPersonal, CategoryServicio,
}

var highSeverityKeywords = []string{
	"inaceptable", "horrible", "pésimo", "pesimo", "terrible", "desastroso",
	"cancelar", "nunca más", "nunca mas", "estafa", "fraude", "engaño", "engano",
}

var mediumSeverityKeywords = []string{
	"malo", "problema", "molesto", "incómodo", "incomodo", "decepcionante",
	"frustrante", "preocupante",
}

var severityWeights = map[string]float64{
	SeverityBaja:    0.3,
	SeverityMedia:   0.6,
	SeverityAlta:    0.8,
	SeverityCritica: 1.0,
}

// categoryWeights rank business importance per area.
var categoryWeights = map[string]float64{
	CategoryServicio:     0.9,
	CategoryProducto:     0.8,
	CategoryPrecio:       0.7,
	CategoryCalidad:      0.8,
	CategoryProceso:      0.6,
	CategoryComunicacion: 0.7,
	CategoryTiempo:       0.5,
	CategoryPersonal:     0.6,
}

// emotions that amplify a pain point's impact when present.
var impactEmotions = []types.Emotion{types.Enojo, types.Frustracion, types.Decepcion, types.Desagrado}

// CategorizePainPoint buckets a free-text pain point into a standard
// category, defaulting to servicio.
func CategorizePainPoint(description string) string {
	lower := strings.ToLower(description)
	for _, cat := range categoryOrder {
		for _, kw := range categoryKeywords[cat] {
			if strings.Contains(lower, kw) {
				return cat
			}
		}
	}
	return CategoryServicio
}

// SeverityFromText grades a pain point by its wording.
func SeverityFromText(description string) string {
	lower := strings.ToLower(description)
	for _, kw := range highSeverityKeywords {
		if strings.Contains(lower, kw) {
			return SeverityAlta
		}
	}
	for _, kw := range mediumSeverityKeywords {
		if strings.Contains(lower, kw) {
			return SeverityMedia
		}
	}
	return SeverityBaja
}

// SeverityForRecord applies the record-level rule: high when churn risk is
// above 0.7 or three or more points were reported, medium above 0.4 or with
// two points, low otherwise.
func SeverityForRecord(churnRisk float64, pointCount int) string {
	switch {
	case churnRisk > 0.7 || pointCount >= 3:
		return SeverityAlta
	case churnRisk > 0.4 || pointCount >= 2:
		return SeverityMedia
	default:
		return SeverityBaja
	}
}

// ImpactScore combines severity and category weights, amplified by related
// negative emotions up to 1.5x, clamped to [0,1].
func ImpactScore(severity, category string, emotions types.EmotionScores) float64 {
	sw, ok := severityWeights[severity]
	if !ok {
		sw = 0.6
	}
	cw, ok := categoryWeights[category]
	if !ok {
		cw = 0.6
	}

	multiplier := 1.0
	if negative := emotions.GroupSum(impactEmotions); negative > 0 {
		multiplier = 1.0 + negative*0.5
		if multiplier > 1.5 {
			multiplier = 1.5
		}
	}

	impact := (sw*0.5 + cw*0.3) * multiplier
	if impact > 1 {
		return 1
	}
	return impact
}

// EnrichPainPoints turns the raw pain-point strings of one analysis record
// into structured, impact-scored points ordered by impact, capped at five.
func EnrichPainPoints(rec types.AnalysisRecord) []types.PainPoint {
	recordSeverity := SeverityForRecord(rec.ChurnRisk, len(rec.PainPoints))
	out := make([]types.PainPoint, 0, len(rec.PainPoints))
	seen := map[string]bool{}
	for _, desc := range rec.PainPoints {
		key := strings.ToLower(strings.TrimSpace(desc))
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true

		severity := SeverityFromText(desc)
		if severityWeights[recordSeverity] > severityWeights[severity] {
			severity = recordSeverity
		}
		category := CategorizePainPoint(desc)
		out = append(out, types.PainPoint{
			Description: strings.TrimSpace(desc),
			Category:    category,
			Severity:    severity,
			Impact:      ImpactScore(severity, category, rec.Emotions),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Impact > out[j].Impact })
	if len(out) > 5 {
		out = out[:5]
	}
	return out
}

// CategorySummary is one aggregated pain-point area across a dataset.
type CategorySummary struct {
	Category  string  `json:"category"`
	Count     int     `json:"count"`
	AvgImpact float64 `json:"avg_impact"`
	MaxImpact float64 `json:"max_impact"`
}

// AggregatePainPoints rolls enriched pain points up by category, ordered by
// count then average impact.
func AggregatePainPoints(rows [][]types.PainPoint) []CategorySummary {
	byCat := map[string]*CategorySummary{}
	for _, points := range rows {
		for _, p := range points {
			s := byCat[p.Category]
			if s == nil {
				s = &CategorySummary{Category: p.Category}
				byCat[p.Category] = s
			}
			s.Count++
			s.AvgImpact += p.Impact
			if p.Impact > s.MaxImpact {
				s.MaxImpact = p.Impact
			}
		}
	}
	out := make([]CategorySummary, 0, len(byCat))
	for _, s := range byCat {
		s.AvgImpact /= float64(s.Count)
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].AvgImpact > out[j].AvgImpact
	})
	return out
}
