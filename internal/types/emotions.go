package types

import (
	"encoding/json"
	"fmt"
	"math"
)

// Emotion is one of the 16 fixed affect dimensions scored per comment.
// The set is closed: responses carrying unknown emotion names are dropped
// during parsing, missing ones score 0.
type Emotion int

const (
	Alegria Emotion = iota
	Tristeza
	Enojo
	Miedo
	Confianza
	Desagrado
	Sorpresa
	Expectativa
	Frustracion
	Gratitud
	Aprecio
	Indiferencia
	Decepcion
	Entusiasmo
	Verguenza
	Esperanza

	NumEmotions = 16
)

var emotionNames = [NumEmotions]string{
	"alegria", "tristeza", "enojo", "miedo", "confianza", "desagrado",
	"sorpresa", "expectativa", "frustracion", "gratitud", "aprecio",
	"indiferencia", "decepcion", "entusiasmo", "verguenza", "esperanza",
}

var emotionByName = func() map[string]Emotion {
	m := make(map[string]Emotion, NumEmotions)
	for i, n := range emotionNames {
		m[n] = Emotion(i)
	}
	return m
}()

func (e Emotion) String() string {
	if e < 0 || e >= NumEmotions {
		return fmt.Sprintf("emotion(%d)", int(e))
	}
	return emotionNames[e]
}

// ParseEmotion resolves a wire name to its Emotion index.
func ParseEmotion(name string) (Emotion, bool) {
	e, ok := emotionByName[name]
	return e, ok
}

// Valence groupings used for sentiment categorization and churn weighting.
var (
	PositiveEmotions = []Emotion{Alegria, Confianza, Expectativa, Gratitud, Aprecio, Entusiasmo, Esperanza}
	NegativeEmotions = []Emotion{Tristeza, Enojo, Miedo, Desagrado, Frustracion, Decepcion, Verguenza}
	NeutralEmotions  = []Emotion{Sorpresa, Indiferencia}
)

// EmotionScores is a dense 0-1 score vector indexed by Emotion. Using a
// fixed-size array means there is no "missing key" state to defend against
// downstream.
type EmotionScores [NumEmotions]float64

// Clamp forces every score into [0,1] in place and returns the vector.
func (s *EmotionScores) Clamp() *EmotionScores {
	for i, v := range s {
		if math.IsNaN(v) || v < 0 {
			s[i] = 0
		} else if v > 1 {
			s[i] = 1
		}
	}
	return s
}

// Sum returns the total score mass across all emotions.
func (s EmotionScores) Sum() float64 {
	var total float64
	for _, v := range s {
		total += v
	}
	return total
}

// Dominant returns the emotion with the highest score. Ties resolve to the
// lowest index; an all-zero vector yields indiferencia.
func (s EmotionScores) Dominant() Emotion {
	best := Indiferencia
	bestVal := 0.0
	for i, v := range s {
		if v > bestVal {
			bestVal = v
			best = Emotion(i)
		}
	}
	return best
}

// Max returns the highest single score.
func (s EmotionScores) Max() float64 {
	var m float64
	for _, v := range s {
		if v > m {
			m = v
		}
	}
	return m
}

// StdDev returns the population standard deviation of the 16 scores.
func (s EmotionScores) StdDev() float64 {
	mean := s.Sum() / NumEmotions
	var ss float64
	for _, v := range s {
		d := v - mean
		ss += d * d
	}
	return math.Sqrt(ss / NumEmotions)
}

// GroupMean averages the scores of the given emotions.
func (s EmotionScores) GroupMean(group []Emotion) float64 {
	if len(group) == 0 {
		return 0
	}
	var total float64
	for _, e := range group {
		total += s[e]
	}
	return total / float64(len(group))
}

// GroupSum sums the scores of the given emotions.
func (s EmotionScores) GroupSum(group []Emotion) float64 {
	var total float64
	for _, e := range group {
		total += s[e]
	}
	return total
}

// MarshalJSON writes the vector as the {name: score} object the scoring
// service and export consumers speak.
func (s EmotionScores) MarshalJSON() ([]byte, error) {
	m := make(map[string]float64, NumEmotions)
	for i, v := range s {
		m[emotionNames[i]] = v
	}
	return json.Marshal(m)
}

// UnmarshalJSON accepts a {name: score} object. Unknown names are ignored,
// non-numeric values become 0, everything is clamped to [0,1].
func (s *EmotionScores) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = EmotionScores{}
	for name, rv := range raw {
		e, ok := emotionByName[name]
		if !ok {
			continue
		}
		var v float64
		if err := json.Unmarshal(rv, &v); err != nil {
			continue
		}
		s[e] = v
	}
	s.Clamp()
	return nil
}
