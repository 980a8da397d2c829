package utils

import (
	"reflect"
	"testing"
)

func TestNormalizeKeyword(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Running Shoes", "running shoes"},
		{"  running   shoes  ", "running shoes"},
		{`"trail runners"`, "trail runners"},
		{"'minimalist shoes',", "minimalist shoes"},
		{`"zero drop shoes".`, "zero drop shoes"},
		{`'barefoot shoes', `, "barefoot shoes"},
		{"GORE-TEX", "gore-tex"},
		{"   ", ""},
		{"", ""},
		{"shoes\twide\nfit", "shoes wide fit"},
	}
	for _, tt := range tests {
		if got := NormalizeKeyword(tt.in); got != tt.want {
			t.Errorf("NormalizeKeyword(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestDedupeKeywords(t *testing.T) {
	in := []string{"Running Shoes", "running  shoes", "", "trail runners", "Trail Runners", "  "}
	want := []string{"running shoes", "trail runners"}
	if got := DedupeKeywords(in); !reflect.DeepEqual(got, want) {
		t.Errorf("DedupeKeywords = %v, want %v", got, want)
	}
}

func TestDedupeKeywordsEmpty(t *testing.T) {
	if got := DedupeKeywords(nil); len(got) != 0 {
		t.Errorf("DedupeKeywords(nil) = %v, want empty", got)
	}
}
