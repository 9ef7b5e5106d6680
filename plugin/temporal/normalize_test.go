package temporal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"रोज़", "रोज"},
		{"पाँच", "पांच"},
		{"१२:३०", "12:30"},
		{"PM", "pm"},
		{"डेढ़", normalizeText("डेढ")},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeText(tt.in))
		})
	}
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"कल सुबह 7 बजे।", []string{"कल", "सुबह", "7", "बजे"}},
		{"7बजे", []string{"7", "बजे"}},
		{"10am, please", []string{"10", "am", "please"}},
		{"12x", []string{"12x"}},
		{"ठीक है... 5 मिनट?", []string{"ठीक", "है", "5", "मिनट"}},
		{"10 a.m.", []string{"10", "am"}},
		{"25/12/2026", []string{"25/12/2026"}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenize(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	assert.True(t, classify(normalizeText("०७")).isNum)
	assert.Equal(t, 7, classify("सात").num)
	assert.NotNil(t, classify("6:30").clock)
	assert.NotNil(t, classify("2026-02-14").date)
	assert.False(t, classify("12345").isNum)
	assert.Equal(t, wordBaje, classify("बजे").lex.kind)
}
