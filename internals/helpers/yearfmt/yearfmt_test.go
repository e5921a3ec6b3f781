package yearfmt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeYear(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"4", "4th Year"},
		{"4th Year", "4th Year"},
		{"4th", "4th Year"},
		{"4r", "4th Year"},
		{" 4TH  YEAR ", "4th Year"},
		{"Year 4", "4th Year"},
		{"fourth year", "4th Year"},
		{"1", "1st Year"},
		{"1st Year", "1st Year"},
		{"2", "2nd Year"},
		{"3rd", "3rd Year"},
		{"", ""},
		{"graduate", "graduate"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, NormalizeYear(tc.in), "input %q", tc.in)
	}
}

func TestNormalizeYear_Idempotent(t *testing.T) {
	for _, in := range []string{"4", "2nd", "Year 3", "first year", "odd value"} {
		once := NormalizeYear(in)
		assert.Equal(t, once, NormalizeYear(once), "input %q", in)
	}
}

func TestOrdinal(t *testing.T) {
	assert.Equal(t, "11th", Ordinal(11))
	assert.Equal(t, "12th", Ordinal(12))
	assert.Equal(t, "21st", Ordinal(21))
	assert.Equal(t, "22nd", Ordinal(22))
}

func TestNormalizeSection(t *testing.T) {
	assert.Equal(t, "A", NormalizeSection("a"))
	assert.Equal(t, "A", NormalizeSection(" Section A "))
	assert.Equal(t, "B", NormalizeSection("sec. b"))
	assert.Equal(t, "", NormalizeSection("  "))
}

func TestNormalizeCourse(t *testing.T) {
	assert.Equal(t, "Computer Vision", NormalizeCourse("  Computer   Vision "))
}
