package validator

import (
	"fmt"
	"strconv"
	"strings"

	"feedback-insights-go/internal/logger"
	"feedback-insights-go/internal/types"
)

// Severity orders validation issues from informational to run-halting.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Issue is a single validation finding tied to a row/column when applicable.
type Issue struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Row      int      `json:"row"`    // -1 when table-level
	Column   string   `json:"column"` // "" when row-level
}

// Stats summarizes one validation pass.
type Stats struct {
	TotalRows      int `json:"total_rows"`
	ValidRows      int `json:"valid_rows"`
	TotalIssues    int `json:"total_issues"`
	CriticalIssues int `json:"critical_issues"`
	ErrorIssues    int `json:"error_issues"`
	WarningIssues  int `json:"warning_issues"`
	InfoIssues     int `json:"info_issues"`
}

// QualityScore is 100 minus weighted issue penalties, floored at 0.
func (s Stats) QualityScore() float64 {
	score := 100.0 - 25*float64(s.CriticalIssues) - 10*float64(s.ErrorIssues) - 2*float64(s.WarningIssues)
	if score < 0 {
		return 0
	}
	return score
}

// ValidationError is returned when CRITICAL issues make the table unusable.
// Downstream stages must not run after seeing one.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Issues))
	for _, i := range e.Issues {
		if i.Severity == SeverityCritical {
			msgs = append(msgs, i.Message)
		}
	}
	return fmt.Sprintf("validation failed: %s", strings.Join(msgs, "; "))
}

// Table is the untyped view of an ingested worksheet: header names plus
// string cells, as excelize hands them over.
type Table struct {
	Columns []string
	Rows    [][]string
}

const (
	colComment  = "comentario"
	colNPS      = "nps"
	colNote     = "nota"
	colDate     = "fecha"
	colCustomer = "cliente_id"
	colCategory = "categoria"
	colChannel  = "canal"
)

var requiredColumns = []string{colComment, colNPS}
var optionalColumns = []string{colNote, colDate, colCustomer, colCategory, colChannel}

// columnAliases maps alternative header spellings to standard names.
var columnAliases = map[string]string{
	"comment": colComment, "comments": colComment, "comentarios": colComment,
	"feedback": colComment, "texto": colComment,

	"nps_score": colNPS, "score": colNPS, "rating": colNPS,
	"puntuacion": colNPS, "calificacion": colNPS,

	"note": colNote, "notes": colNote, "observaciones": colNote,

	"date": colDate, "timestamp": colDate, "created_at": colDate,

	"customer": colCustomer, "user": colCustomer, "client": colCustomer,
	"usuario": colCustomer,

	"category": colCategory, "type": colCategory, "tipo": colCategory,

	"channel": colChannel, "source": colChannel, "origen": colChannel,
}

var allowedCategories = []string{"producto", "servicio", "soporte", "ventas", "otros"}
var allowedChannels = []string{"web", "email", "telefono", "chat", "redes_sociales", "presencial"}

// Keyword lists for the sentiment/score consistency rule.
var veryNegativeWords = []string{
	"terrible", "horrible", "pésimo", "pesimo", "desastroso", "inaceptable",
	"nunca más", "nunca mas", "cancelar", "estafa", "fraude", "engaño", "engano",
}
var veryPositiveWords = []string{
	"excelente", "fantástico", "fantastico", "perfecto", "increíble", "increible",
	"maravilloso", "recomiendo totalmente", "lo mejor", "cinco estrellas",
}

// Result is the validated output: typed records plus per-row consistency
// flags keyed by row index into Records.
type Result struct {
	Records          []types.CommentRecord
	InconsistentRows map[int]bool
	Stats            Stats
	Issues           []Issue
}

// Validator checks table structure, cell types/ranges and business rules.
// In strict mode rows carrying ERROR issues are excluded from the output.
type Validator struct {
	maxCommentLength int
	strict           bool
}

func New(maxCommentLength int, strict bool) *Validator {
	return &Validator{maxCommentLength: maxCommentLength, strict: strict}
}

// Validate runs the full pass. A *ValidationError is returned only for
// CRITICAL findings (missing required columns, empty table); everything
// else is reported through Result.Issues.
func (v *Validator) Validate(table Table) (Result, error) {
	log := logger.New().WithField("component", "validator")
	res := Result{InconsistentRows: map[int]bool{}}

	normalized, issues := normalizeColumns(table)
	res.Issues = append(res.Issues, issues...)

	res.Issues = append(res.Issues, checkStructure(normalized)...)
	if critical := criticalOf(res.Issues); len(critical) > 0 {
		res.Stats = tally(len(table.Rows), 0, res.Issues)
		log.WithField("critical", len(critical)).Error("critical validation issues, aborting")
		return res, &ValidationError{Issues: res.Issues}
	}

	idx := columnIndex(normalized.Columns)
	for rowNum, row := range normalized.Rows {
		rowIssues := v.validateRow(rowNum, row, idx)
		res.Issues = append(res.Issues, rowIssues...)

		if v.strict && hasErrors(rowIssues) {
			continue
		}
		rec := buildRecord(rowNum, row, idx)
		res.InconsistentRows[len(res.Records)] = checkConsistency(rowNum, rec, &res.Issues)
		res.Records = append(res.Records, rec)
	}

	res.Issues = append(res.Issues, qualityIssues(normalized, idx)...)
	res.Stats = tally(len(normalized.Rows), len(res.Records), res.Issues)

	log.WithField("valid_rows", res.Stats.ValidRows).
		WithField("total_rows", res.Stats.TotalRows).
		WithField("issues", res.Stats.TotalIssues).
		WithField("quality_score", res.Stats.QualityScore()).
		Info("validation complete")
	return res, nil
}

func normalizeColumns(table Table) (Table, []Issue) {
	var issues []Issue
	known := map[string]bool{}
	for _, c := range append(append([]string{}, requiredColumns...), optionalColumns...) {
		known[c] = true
	}
	out := Table{Columns: make([]string, len(table.Columns)), Rows: table.Rows}
	for i, col := range table.Columns {
		lower := strings.ToLower(strings.TrimSpace(col))
		switch {
		case columnAliases[lower] != "":
			out.Columns[i] = columnAliases[lower]
			issues = append(issues, Issue{
				Severity: SeverityInfo, Category: "column_normalization", Row: -1, Column: col,
				Message: fmt.Sprintf("column %q normalized to %q", col, columnAliases[lower]),
			})
		case known[lower]:
			out.Columns[i] = lower
			if col != lower {
				issues = append(issues, Issue{
					Severity: SeverityInfo, Category: "column_case", Row: -1, Column: col,
					Message: fmt.Sprintf("column %q lowercased to %q", col, lower),
				})
			}
		default:
			out.Columns[i] = lower
			issues = append(issues, Issue{
				Severity: SeverityInfo, Category: "unknown_columns", Row: -1, Column: col,
				Message: fmt.Sprintf("unrecognized column %q retained as passthrough", col),
			})
		}
	}
	return out, issues
}

func checkStructure(table Table) []Issue {
	var issues []Issue
	if len(table.Rows) == 0 {
		return []Issue{{Severity: SeverityCritical, Category: "structure", Row: -1, Message: "input table is empty"}}
	}
	present := map[string]bool{}
	for _, c := range table.Columns {
		present[c] = true
	}
	var missing []string
	for _, c := range requiredColumns {
		if !present[c] {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		issues = append(issues, Issue{
			Severity: SeverityCritical, Category: "missing_columns", Row: -1,
			Message: fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")),
		})
	}
	if len(table.Rows) > 10000 {
		issues = append(issues, Issue{
			Severity: SeverityWarning, Category: "size", Row: -1,
			Message: fmt.Sprintf("large input (%d rows) may be slow to analyze", len(table.Rows)),
		})
	} else if len(table.Rows) < 5 {
		issues = append(issues, Issue{
			Severity: SeverityWarning, Category: "size", Row: -1,
			Message: fmt.Sprintf("small input (%d rows), results may not be representative", len(table.Rows)),
		})
	}
	return issues
}

type colIdx struct {
	comment, nps, note, date, customer, category, channel int
}

func columnIndex(columns []string) colIdx {
	idx := colIdx{comment: -1, nps: -1, note: -1, date: -1, customer: -1, category: -1, channel: -1}
	for i, c := range columns {
		switch c {
		case colComment:
			idx.comment = i
		case colNPS:
			idx.nps = i
		case colNote:
			idx.note = i
		case colDate:
			idx.date = i
		case colCustomer:
			idx.customer = i
		case colCategory:
			idx.category = i
		case colChannel:
			idx.channel = i
		}
	}
	return idx
}

func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (v *Validator) validateRow(rowNum int, row []string, idx colIdx) []Issue {
	var issues []Issue

	comment := cell(row, idx.comment)
	if comment == "" {
		issues = append(issues, Issue{
			Severity: SeverityError, Category: "null_value", Row: rowNum, Column: colComment,
			Message: "empty value in required column 'comentario'",
		})
	} else if len(comment) > v.maxCommentLength {
		issues = append(issues, Issue{
			Severity: SeverityError, Category: "string_length", Row: rowNum, Column: colComment,
			Message: fmt.Sprintf("comment exceeds max length %d", v.maxCommentLength),
		})
	}

	if nps := cell(row, idx.nps); nps != "" {
		val, err := strconv.ParseFloat(strings.ReplaceAll(nps, ",", "."), 64)
		if err != nil {
			issues = append(issues, Issue{
				Severity: SeverityError, Category: "data_type", Row: rowNum, Column: colNPS,
				Message: fmt.Sprintf("non-numeric nps value %q", nps),
			})
		} else if val < 0 || val > 10 {
			issues = append(issues, Issue{
				Severity: SeverityError, Category: "numeric_range", Row: rowNum, Column: colNPS,
				Message: fmt.Sprintf("nps value %v outside [0,10]", val),
			})
		}
	}

	if note := cell(row, idx.note); len(note) > 1000 {
		issues = append(issues, Issue{
			Severity: SeverityError, Category: "string_length", Row: rowNum, Column: colNote,
			Message: "note exceeds max length 1000",
		})
	}
	if cat := cell(row, idx.category); cat != "" && !containsFold(allowedCategories, cat) {
		issues = append(issues, Issue{
			Severity: SeverityWarning, Category: "invalid_value", Row: rowNum, Column: colCategory,
			Message: fmt.Sprintf("unrecognized category %q", cat),
		})
	}
	if ch := cell(row, idx.channel); ch != "" && !containsFold(allowedChannels, ch) {
		issues = append(issues, Issue{
			Severity: SeverityWarning, Category: "invalid_value", Row: rowNum, Column: colChannel,
			Message: fmt.Sprintf("unrecognized channel %q", ch),
		})
	}
	return issues
}

func buildRecord(rowNum int, row []string, idx colIdx) types.CommentRecord {
	rec := types.CommentRecord{
		RowID:      rowNum,
		RawText:    cell(row, idx.comment),
		Date:       cell(row, idx.date),
		Category:   cell(row, idx.category),
		Channel:    cell(row, idx.channel),
		CustomerID: cell(row, idx.customer),
	}
	if nps := cell(row, idx.nps); nps != "" {
		if val, err := strconv.ParseFloat(strings.ReplaceAll(nps, ",", "."), 64); err == nil && val >= 0 && val <= 10 {
			rec.Score = val
			rec.HasScore = true
		}
	}
	return rec
}

// checkConsistency applies the sentiment/score business rule: strongly
// negative wording with a high score (or the inverse) is flagged WARNING
// and remembered for churn fusion, never auto-corrected.
func checkConsistency(rowNum int, rec types.CommentRecord, issues *[]Issue) bool {
	if !rec.HasScore || rec.RawText == "" {
		return false
	}
	comment := strings.ToLower(rec.RawText)
	negatives := countHits(comment, veryNegativeWords)
	positives := countHits(comment, veryPositiveWords)

	if negatives >= 2 && rec.Score >= 8 {
		*issues = append(*issues, Issue{
			Severity: SeverityWarning, Category: "business_logic", Row: rowNum, Column: colNPS,
			Message: fmt.Sprintf("very negative comment but high score (%v)", rec.Score),
		})
		return true
	}
	if positives >= 2 && rec.Score <= 3 {
		*issues = append(*issues, Issue{
			Severity: SeverityWarning, Category: "business_logic", Row: rowNum, Column: colNPS,
			Message: fmt.Sprintf("very positive comment but low score (%v)", rec.Score),
		})
		return true
	}
	return false
}

func qualityIssues(table Table, idx colIdx) []Issue {
	var issues []Issue
	if idx.comment >= 0 && len(table.Rows) > 0 {
		total := 0
		for _, row := range table.Rows {
			total += len(cell(row, idx.comment))
		}
		avg := float64(total) / float64(len(table.Rows))
		if avg < 10 {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Category: "data_quality", Row: -1,
				Message: fmt.Sprintf("comments are very short on average (%.1f chars)", avg),
			})
		} else if avg > 1000 {
			issues = append(issues, Issue{
				Severity: SeverityInfo, Category: "data_quality", Row: -1,
				Message: fmt.Sprintf("comments are very long on average (%.1f chars)", avg),
			})
		}
	}
	if idx.nps >= 0 && len(table.Rows) > 0 {
		nulls := 0
		for _, row := range table.Rows {
			if cell(row, idx.nps) == "" {
				nulls++
			}
		}
		pct := float64(nulls) / float64(len(table.Rows)) * 100
		if pct > 50 {
			issues = append(issues, Issue{
				Severity: SeverityWarning, Category: "data_quality", Column: colNPS, Row: -1,
				Message: fmt.Sprintf("column 'nps' is mostly empty (%.1f%%)", pct),
			})
		} else if pct > 20 {
			issues = append(issues, Issue{
				Severity: SeverityInfo, Category: "data_quality", Column: colNPS, Row: -1,
				Message: fmt.Sprintf("column 'nps' has some empty values (%.1f%%)", pct),
			})
		}
	}
	return issues
}

func countHits(text string, words []string) int {
	n := 0
	for _, w := range words {
		if strings.Contains(text, w) {
			n++
		}
	}
	return n
}

func containsFold(list []string, s string) bool {
	for _, x := range list {
		if strings.EqualFold(x, s) {
			return true
		}
	}
	return false
}

func criticalOf(issues []Issue) []Issue {
	var out []Issue
	for _, i := range issues {
		if i.Severity == SeverityCritical {
			out = append(out, i)
		}
	}
	return out
}

func hasErrors(issues []Issue) bool {
	for _, i := range issues {
		if i.Severity == SeverityError || i.Severity == SeverityCritical {
			return true
		}
	}
	return false
}

func tally(total, valid int, issues []Issue) Stats {
	s := Stats{TotalRows: total, ValidRows: valid, TotalIssues: len(issues)}
	for _, i := range issues {
		switch i.Severity {
		case SeverityCritical:
			s.CriticalIssues++
		case SeverityError:
			s.ErrorIssues++
		case SeverityWarning:
			s.WarningIssues++
		case SeverityInfo:
			s.InfoIssues++
		}
	}
	return s
}
