package bot

import "testing"

func TestSplitCategory(t *testing.T) {
	cases := []struct {
		in       string
		title    string
		category string
	}{
		{"Buy milk #errands", "Buy milk", "errands"},
		{"Buy milk", "Buy milk", ""},
		{"#errands", "", "errands"},
		{"Review notes # deep work", "Review notes", "deep work"},
		{"  Buy milk  ", "Buy milk", ""},
		{"", "", ""},
	}
	for _, tc := range cases {
		title, category := splitCategory(tc.in)
		if title != tc.title || category != tc.category {
			t.Fatalf("splitCategory(%q) = (%q, %q), want (%q, %q)", tc.in, title, category, tc.title, tc.category)
		}
	}
}
