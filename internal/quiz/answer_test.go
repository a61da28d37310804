package quiz

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encode(t *testing.T, a Answer) string {
	t.Helper()
	s, err := a.Encode()
	require.NoError(t, err)
	return s
}

func TestPairsAnswerKeepsInsertionOrder(t *testing.T) {
	a := NewPairsAnswer()
	a.Set("gap2", "river")
	a.Set("gap1", "village")
	a.Set("gap2", "lake")

	assert.Equal(t, "gap2=lake|gap1=village", encode(t, a))
	assert.Equal(t, 2, a.Len())
}

func TestPairsAnswerToggle(t *testing.T) {
	a := NewPairsAnswer()
	a.Toggle("cat", "kitten")
	a.Toggle("dog", "puppy")
	assert.Equal(t, "cat=kitten|dog=puppy", encode(t, a))

	a.Toggle("cat", "kitten")
	assert.Equal(t, "dog=puppy", encode(t, a))

	a.Toggle("dog", "cub")
	assert.Equal(t, "dog=cub", encode(t, a))

	a.Toggle("dog", "cub")
	assert.True(t, a.Empty())
}

func TestPairsAnswerFillNextGap(t *testing.T) {
	gaps := []GapIdentifier{{GapIdentifier: "g1"}, {GapIdentifier: "g2"}}
	a := NewPairsAnswer()

	assert.True(t, a.FillNextGap(gaps, "alpha"))
	assert.True(t, a.FillNextGap(gaps, "beta"))
	assert.False(t, a.FillNextGap(gaps, "gamma"))
	assert.Equal(t, "g1=alpha|g2=beta", encode(t, a))
}

func TestDecodePairsRoundTrip(t *testing.T) {
	raw := "left=right|up=down"
	assert.Equal(t, raw, encode(t, DecodePairs(raw)))
	assert.True(t, DecodePairs("").Empty())
}

func TestLabelAnswerEncodesJSON(t *testing.T) {
	encoded := encode(t, LabelAnswer{"A": "nucleus", "B": "membrane"})

	var decoded map[string]string
	require.NoError(t, json.Unmarshal([]byte(encoded), &decoded))
	assert.Equal(t, map[string]string{"A": "nucleus", "B": "membrane"}, decoded)
}

func TestParseInput(t *testing.T) {
	detail := Detail{
		Options: []Option{{Label: "A", Text: "Mogadishu"}, {Label: "B", Text: "Hargeisa"}},
		Gaps:    []GapIdentifier{{GapIdentifier: "gap1"}, {GapIdentifier: "gap2"}},
		Pairs:   []Pair{{Left: "hot", Right: "cold"}, {Left: "up", Right: "down"}},
	}

	cases := []struct {
		name  string
		qt    QuestionType
		input string
		want  string
	}{
		{"choice by label", MultipleChoice, "b", "Hargeisa"},
		{"choice by number", MultipleChoice, "1", "Mogadishu"},
		{"choice by text", MultipleChoice, "Hargeisa", "Hargeisa"},
		{"free text", Structured, " photosynthesis ", "photosynthesis"},
		{"synonym", Synonym, "glad", "glad"},
		{"word list words", WordList, "sun, moon", "gap1=sun|gap2=moon"},
		{"word list pairs", WordList, "gap2=moon", "gap2=moon"},
		{"match by number", MatchWords, "2 1", "up=down|hot=cold"},
		{"match pairs", MatchWords, "hot=cold", "hot=cold"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			answer, err := ParseInput(tc.qt, detail, tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, encode(t, answer))
		})
	}
}

func TestParseInputErrors(t *testing.T) {
	detail := Detail{Options: []Option{{Label: "A", Text: "x"}}, Pairs: []Pair{{Left: "a", Right: "b"}}}

	_, err := ParseInput(MultipleChoice, detail, "")
	assert.ErrorIs(t, err, ErrNoAnswer)

	_, err = ParseInput(MultipleChoice, detail, "Z")
	assert.Error(t, err)

	_, err = ParseInput(MatchWords, detail, "4")
	assert.Error(t, err)

	_, err = ParseInput(LabelDrawing, detail, "no separator")
	assert.Error(t, err)
}

func TestParseInputLabelDrawing(t *testing.T) {
	answer, err := ParseInput(LabelDrawing, Detail{}, "1 = nucleus | 2=wall")
	require.NoError(t, err)
	assert.Equal(t, LabelAnswer{"1": "nucleus", "2": "wall"}, answer)
}

func TestDecodeDetailByType(t *testing.T) {
	step := Step{
		QuestionType: WordList,
		Detail:       json.RawMessage(`{"text_with_gaps":"lived in [gap1]","options":[{"word":"Hargeisa"}],"answers":[{"gap_identifier":"gap1"}]}`),
	}
	detail, err := step.DecodeDetail()
	require.NoError(t, err)
	assert.Equal(t, "lived in [gap1]", detail.TextWithGaps)
	assert.Equal(t, []Word{{Word: "Hargeisa"}}, detail.Words)
	assert.Equal(t, []GapIdentifier{{GapIdentifier: "gap1"}}, detail.Gaps)

	img := Detail{Image: "/media/cell.png"}
	assert.Equal(t, "http://api.test/media/cell.png", img.ImageURL("http://api.test/"))
}
