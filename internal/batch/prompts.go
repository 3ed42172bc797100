package batch

import (
	"fmt"
	"strings"

	"feedback-insights-go/internal/types"
)

// systemPrompts instruct the scoring service per prompt language. All three
// ask for the same JSON contract: 16 emotion scores, up to 5 pain points,
// churn risk and an NPS category, one object per comment.
var systemPrompts = map[types.Language]string{
	types.LangES: `Eres un experto analista de sentimientos y experiencia del cliente. Analiza comentarios en español, guaraní o inglés y proporciona:

1. EMOCIONES (16 categorías, valores 0-1):
   - Positivas: alegria, confianza, expectativa, gratitud, aprecio, entusiasmo, esperanza
   - Negativas: tristeza, enojo, miedo, desagrado, frustracion, decepcion, verguenza
   - Neutras: sorpresa, indiferencia

2. PAIN POINTS: Extrae hasta 5 problemas específicos mencionados.

3. CHURN RISK: Probabilidad 0-1 de que el cliente abandone el servicio.

4. SENTIMENT: Clasifica como "positive", "negative" o "neutral".

Responde únicamente en JSON válido.`,

	types.LangEN: `You are an expert sentiment analyst and customer experience specialist. Analyze comments in Spanish, Guarani, or English and provide:

1. EMOTIONS (16 categories, values 0-1):
   - Positive: alegria, confianza, expectativa, gratitud, aprecio, entusiasmo, esperanza
   - Negative: tristeza, enojo, miedo, desagrado, frustracion, decepcion, verguenza
   - Neutral: sorpresa, indiferencia

2. PAIN POINTS: Extract up to 5 specific problems mentioned.

3. CHURN RISK: Probability 0-1 that the customer will abandon the service.

4. SENTIMENT: Classify as "positive", "negative" or "neutral".

Respond only in valid JSON.`,

	types.LangGN: `Nde analista tembiapokatúva ñe'ẽme ha customer experiencia-pe. Emongu'e comentario español, guaraní térã inglés-pe ha eme'ẽ:

1. EMOCIONES (16 categoría, valores 0-1):
   - Positivas: alegria, confianza, expectativa, gratitud, aprecio, entusiasmo, esperanza
   - Negativas: tristeza, enojo, miedo, desagrado, frustracion, decepcion, verguenza
   - Neutras: sorpresa, indiferencia

2. PAIN POINTS: Gueraha 5 peve problema específico oñe'ẽva.

3. CHURN RISK: Probabilidad 0-1 customer oheja hag̃ua servicio.

4. SENTIMENT: Clasificar "positive", "negative" térã "neutral".

Ñembohovái añónte JSON oikóva.`,
}

// SystemPrompt returns the instruction block for a language, falling back
// to Spanish for anything unrecognized.
func SystemPrompt(lang types.Language) string {
	if p, ok := systemPrompts[lang]; ok {
		return p
	}
	return systemPrompts[types.LangES]
}

// UserPrompt numbers the comments and states the strict JSON array format.
func UserPrompt(comments []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Analiza los siguientes %d comentarios y devuelve un array JSON con el análisis de cada uno:\n\nCOMENTARIOS:\n", len(comments))
	for i, c := range comments {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c)
	}
	b.WriteString(`
FORMATO DE RESPUESTA REQUERIDO:
` + "```json" + `
[
  {
    "emotions": {"alegria": 0.0, "tristeza": 0.0, "enojo": 0.0, "miedo": 0.0, "confianza": 0.0, "desagrado": 0.0, "sorpresa": 0.0, "expectativa": 0.0, "frustracion": 0.0, "gratitud": 0.0, "aprecio": 0.0, "indiferencia": 0.0, "decepcion": 0.0, "entusiasmo": 0.0, "verguenza": 0.0, "esperanza": 0.0},
    "pain_points": ["problema específico mencionado"],
    "churn_risk": 0.0,
    "sentiment": "positive|negative|neutral"
  }
]
` + "```" + `
`)
	fmt.Fprintf(&b, `
IMPORTANTE:
- Devuelve exactamente %d objetos JSON en el array
- Mantén el orden de los comentarios
- Valores de emociones entre 0 y 1
- Pain points máximo 5 por comentario
- Churn risk entre 0 y 1
- Solo JSON válido, sin explicaciones adicionales
`, len(comments))
	return b.String()
}
