package copywriter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const genericCopy = "An intricate tattoo design suitable for various body placements. " +
	"Carrying deep personal meaning, this design tells your unique story. " +
	"Consider bringing this vision to life as part of your personal art collection."

func TestTitle(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "skips short words",
			description: "a cat sitting quietly in a dark forest",
			want:        "Cat Sitting Quietly",
		},
		{
			name:        "splits on punctuation",
			description: "Bold, black-ink ROSE; with thorns",
			want:        "Bold Black Ink",
		},
		{
			name:        "fewer than three words",
			description: "an owl",
			want:        "Owl",
		},
		{
			name:        "empty",
			description: "",
			want:        "",
		},
		{
			name:        "only short words",
			description: "a is to of",
			want:        "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Title(tt.description))
		})
	}
}

func TestTitle_AtMostThreeCapitalizedWords(t *testing.T) {
	title := Title("a cat sitting quietly in a dark forest")

	words := strings.Fields(title)
	assert.LessOrEqual(t, len(words), MaxTitleWords)
	for _, w := range words {
		assert.Greater(t, len(w), 2, "word %q should be longer than two characters", w)
		assert.Equal(t, strings.ToUpper(w[:1]), w[:1], "word %q should be capitalized", w)
	}
	assert.NotContains(t, words, "In")
	assert.NotContains(t, words, "A")
}

func TestMarketingDescription_GenericFallback(t *testing.T) {
	for _, description := range []string{
		"",
		"a dog on a sofa",
		"A photograph of a mountain lake at dawn",
	} {
		assert.Equal(t, genericCopy, MarketingDescription(description), "description %q", description)
	}
}

func TestMarketingDescription_MonochromeStyle(t *testing.T) {
	want := "A striking black and white tattoo design "

	for _, description := range []string{
		"A tattoo of a wolf rendered in black and white",
		"Black and white: a wolf tattoo",
		"monochrome ink sketch of a wolf",
		"A colored tattoo, mostly BLACK AND WHITE",
	} {
		got := MarketingDescription(description)
		assert.True(t, strings.HasPrefix(got, want), "description %q produced %q", description, got)
	}
}

func TestMarketingDescription_Categories(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        string
	}{
		{
			name:        "colored large strength",
			description: "A large colored lion symbolizing power",
			want: "A vibrant colored tattoo design ideal for larger canvas work. " +
				"Symbolizing strength and resilience, this design captures the essence of inner power. " +
				CallToAction,
		},
		{
			name:        "small love",
			description: "A minimal outline of a heart",
			want: "An intricate tattoo design perfect for small placements. " +
				"Expressing deep emotion and connection, this piece represents love in its purest form. " +
				CallToAction,
		},
		{
			name:        "freedom",
			description: "Birds flying away, a free spirit",
			want: "An intricate tattoo design suitable for various body placements. " +
				"Embodying freedom and spirituality, this tattoo speaks to the wandering soul. " +
				CallToAction,
		},
		{
			name:        "first rule in a category wins",
			description: "small and large roses, about strength and love",
			want: "An intricate tattoo design perfect for small placements. " +
				"Symbolizing strength and resilience, this design captures the essence of inner power. " +
				CallToAction,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarketingDescription(tt.description))
		})
	}
}

func TestMarketingDescription_Deterministic(t *testing.T) {
	description := "A bold colored dragon wrapped around a heart"
	assert.Equal(t, MarketingDescription(description), MarketingDescription(description))
}

func TestIsTattoo(t *testing.T) {
	assert.True(t, IsTattoo("A TATTOO of a snake"))
	assert.True(t, IsTattoo("fresh ink on a forearm"))
	assert.True(t, IsTattoo("colorful body art"))
	assert.False(t, IsTattoo("a dog on a sofa"))
}
