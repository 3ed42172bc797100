package cleaner

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizeStripsHTML(t *testing.T) {
	c := New(2000)
	got := c.Sanitize("<p>Terrible <b>servicio</b></p><!-- nota interna -->")
	assert.Equal(t, "Terrible servicio", got)
}

func TestSanitizeNormalizesSpecialChars(t *testing.T) {
	c := New(2000)
	got := c.Sanitize("“Excelente” atención… muy buena – gracias")
	assert.Equal(t, `"Excelente" atención... muy buena - gracias`, got)
}

func TestSanitizeIdempotent(t *testing.T) {
	c := New(2000)
	inputs := []string{
		"<div>Muy  buen   producto</div>",
		"Precio alto , pero vale la pena !",
		"Todo bien…… sin quejas",
	}
	for _, in := range inputs {
		once := c.Sanitize(in)
		assert.Equal(t, once, c.Sanitize(once), "input %q", in)
	}
}

func TestSanitizeTruncationIdempotent(t *testing.T) {
	c := New(100)
	inputs := []string{
		// Word boundary lands just under the limit, so the ellipsis must
		// not push the result back over it.
		strings.Repeat("a", 98) + " " + strings.Repeat("b", 30),
		strings.Repeat("palabra ", 12) + "final",
	}
	for _, in := range inputs {
		once := c.Sanitize(in)
		assert.LessOrEqual(t, len(once), 100, "input %q", in)
		assert.Equal(t, once, c.Sanitize(once), "input %q", in)
	}
}

func TestSanitizeTruncatesAtWordBoundary(t *testing.T) {
	c := New(20)
	got := c.Sanitize("el servicio de soporte tarda demasiado en responder")
	assert.LessOrEqual(t, len(got), 24)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.NotContains(t, strings.TrimSuffix(got, "..."), "  ")
}

func TestCleanDropsEmptyAndMeaningless(t *testing.T) {
	c := New(2000)
	out, stats := c.Clean([]string{
		"",
		"   ",
		"el la de", // only filler words
		"producto excelente, muy recomendable",
	})
	require.Len(t, out, 1)
	assert.Equal(t, 3, stats.RemovedEmpty)
	assert.Equal(t, 1, stats.CleanedComments)
}

func TestCleanDropsSpam(t *testing.T) {
	c := New(2000)
	out, stats := c.Clean([]string{
		"compra ahora con oferta limitada",
		"visita https://ejemplo.com para ganar",
		"holaaaaaa que tal todo bien",
		"la comida estaba buenísima, volveremos pronto",
	})
	require.Len(t, out, 1)
	assert.Equal(t, "la comida estaba buenísima, volveremos pronto", out[0])
	assert.Equal(t, 3, stats.RemovedSpam)
}

func TestCleanDropsURLSpamWithPunctuationIntact(t *testing.T) {
	c := New(2000)
	out, stats := c.Clean([]string{
		"visita https://ejemplo.com/promo para ganar dinero facil",
		"entrega puntual y empaque cuidado",
	})
	require.Len(t, out, 1)
	assert.Equal(t, "entrega puntual y empaque cuidado", out[0])
	assert.Equal(t, 1, stats.RemovedSpam)
}

func TestCleanDeduplicatesKeepingLonger(t *testing.T) {
	c := New(2000)
	base := "servicio lento atencion mala espera larga personal grosero local sucio"
	out, stats := c.Clean([]string{
		base,
		base + " fatal",
		"todo perfecto gracias",
	})
	require.Len(t, out, 2)
	assert.Equal(t, 1, stats.RemovedDuplicates)
	assert.Contains(t, out, base+" fatal")
}

func TestRetentionRate(t *testing.T) {
	s := Stats{TotalComments: 4, CleanedComments: 3}
	assert.InDelta(t, 75.0, s.RetentionRate(), 0.001)
	assert.Zero(t, Stats{}.RetentionRate())
}

func TestIsSpamRepetition(t *testing.T) {
	assert.True(t, isSpam("malo malo malo malo malo malo bueno"))
	assert.True(t, isSpam("@@@ ### $$$ %%% &&&"))
	assert.False(t, isSpam("el producto llegó tarde pero en buen estado"))
}
