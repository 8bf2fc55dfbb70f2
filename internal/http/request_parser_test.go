package http

import (
	"net/url"
	"reflect"
	"strings"
	"testing"
)

func TestParseSearch(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  string
	}{
		{"missing", url.Values{}, ""},
		{"plain", url.Values{"q": {"EDF"}}, "EDF"},
		{"spaces kept", url.Values{"q": {" PRLV SEPA "}}, " PRLV SEPA "},
		{"control characters removed", url.Values{"q": {"ED\x00F\x07"}}, "EDF"},
		{"tab kept", url.Values{"q": {"a\tb"}}, "a\tb"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseSearch(tt.query); got != tt.want {
				t.Errorf("ParseSearch() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseSearch_Truncates(t *testing.T) {
	long := strings.Repeat("é", maxSearchLength+10)
	got := ParseSearch(url.Values{"q": {long}})
	if n := len([]rune(got)); n != maxSearchLength {
		t.Fatalf("ParseSearch() length = %d runes, want %d", n, maxSearchLength)
	}
}

func TestParseTags(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  []string
	}{
		{"missing", url.Values{}, nil},
		{"single", url.Values{"value": {"EDF"}}, []string{"EDF"}},
		{"comma separated", url.Values{"value": {"PARIS, LOYER"}}, []string{"PARIS", "LOYER"}},
		{"repeated", url.Values{"value": {"PARIS", "LOYER"}}, []string{"PARIS", "LOYER"}},
		{"blanks and duplicates", url.Values{"value": {"PARIS,,PARIS", " "}}, []string{"PARIS"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ParseTags(tt.query); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseTags() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestBarWidth(t *testing.T) {
	tests := []struct {
		value, max int64
		want       int
	}{
		{0, 100, 0},
		{50, 0, 0},
		{100, 100, 100},
		{50, 100, 50},
		{1, 1000, 2},
		{333, 1000, 33},
	}
	for _, tt := range tests {
		if got := barWidth(tt.value, tt.max); got != tt.want {
			t.Errorf("barWidth(%d, %d) = %d, want %d", tt.value, tt.max, got, tt.want)
		}
	}
}

func TestFormatEuros(t *testing.T) {
	tests := map[int64]string{
		0:       "0,00 €",
		5:       "0,05 €",
		123456:  "1234,56 €",
		-18777:  "-187,77 €",
	}
	for cents, want := range tests {
		if got := formatEuros(cents); got != want {
			t.Errorf("formatEuros(%d) = %q, want %q", cents, got, want)
		}
	}
}
