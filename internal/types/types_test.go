package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEmotion(t *testing.T) {
	e, ok := ParseEmotion("frustracion")
	require.True(t, ok)
	assert.Equal(t, Frustracion, e)

	_, ok = ParseEmotion("nostalgia")
	assert.False(t, ok)
}

func TestEmotionScoresUnmarshalTolerant(t *testing.T) {
	var s EmotionScores
	raw := `{"alegria": 1.5, "enojo": -2, "tristeza": "mucho", "inventada": 0.4, "miedo": 0.3}`
	require.NoError(t, json.Unmarshal([]byte(raw), &s))

	assert.Equal(t, 1.0, s[Alegria], "overflow clamps to 1")
	assert.Equal(t, 0.0, s[Enojo], "negative clamps to 0")
	assert.Equal(t, 0.0, s[Tristeza], "non-numeric ignored")
	assert.Equal(t, 0.3, s[Miedo])
}

func TestEmotionScoresGroups(t *testing.T) {
	var s EmotionScores
	s[Alegria] = 0.6
	s[Gratitud] = 0.4
	s[Enojo] = 0.2

	assert.InDelta(t, 1.0, s.GroupSum(PositiveEmotions), 0.001)
	assert.InDelta(t, 0.2, s.GroupSum(NegativeEmotions), 0.001)
	assert.Equal(t, Alegria, s.Dominant())
	assert.InDelta(t, 1.2, s.Sum(), 0.001)
}

func TestDominantOfEmptyVector(t *testing.T) {
	var s EmotionScores
	assert.Equal(t, Indiferencia, s.Dominant())
}

func TestCategoryForScore(t *testing.T) {
	assert.Equal(t, NPSDetractor, CategoryForScore(0))
	assert.Equal(t, NPSDetractor, CategoryForScore(6))
	assert.Equal(t, NPSPassive, CategoryForScore(7))
	assert.Equal(t, NPSPassive, CategoryForScore(8))
	assert.Equal(t, NPSPromoter, CategoryForScore(9))
	assert.Equal(t, NPSPromoter, CategoryForScore(10))
	assert.Equal(t, NPSUnknown, CategoryForScore(-1))
	assert.Equal(t, NPSUnknown, CategoryForScore(11))
}
