package match

import "testing"

func TestSimilarityThreshold(t *testing.T) {
	tests := []struct {
		candidate string
		query     string
		threshold int
		matched   bool
	}{
		{"привет", "привет", 75, true},
		{"Привет!", "привет", 75, true},
		{"совершенно другое", "привет", 75, false},
		{"привет, как дела", "привет", 75, true},
		{"hello world", "hello", 75, true},
		{"", "", 75, true},
		{"", "привет", 75, false},
	}

	for _, tt := range tests {
		got := Similarity(tt.candidate, tt.query, tt.threshold)
		if got.Matched != tt.matched {
			t.Errorf("Similarity(%q, %q, %d).Matched = %v (score %d), want %v",
				tt.candidate, tt.query, tt.threshold, got.Matched, got.Score, tt.matched)
		}
	}
}

func TestThresholdIsInclusive(t *testing.T) {
	score := Score("приве", "привет") // one deletion over six runes
	got := Similarity("приве", "привет", score)
	if !got.Matched {
		t.Errorf("score %d at threshold %d should match", got.Score, score)
	}
	got = Similarity("приве", "привет", score+1)
	if got.Matched {
		t.Errorf("score %d above threshold %d should not match", got.Score, score+1)
	}
}

func TestScoreTokenBest(t *testing.T) {
	if s := Score("привет, как дела", "привет"); s != 100 {
		t.Errorf("token-exact score = %d, want 100", s)
	}
	if s := Score("абвгд", "привет"); s >= 50 {
		t.Errorf("unrelated score = %d, want < 50", s)
	}
}

func TestContainsPhrase(t *testing.T) {
	tests := []struct {
		haystack string
		needle   string
		want     bool
	}{
		{"привет, как дела", "привет", true},
		{"как дела", "привет", false},
		{"скажи как дела", "как дела", true},
		{"приветик", "привет", false}, // whole word, not prefix
		{"Hello, World!", "hello", true},
		{"text", "", false},
	}
	for _, tt := range tests {
		if got := ContainsPhrase(tt.haystack, tt.needle); got != tt.want {
			t.Errorf("ContainsPhrase(%q, %q) = %v, want %v", tt.haystack, tt.needle, got, tt.want)
		}
	}
}

func TestMatchesAny(t *testing.T) {
	if !MatchesAny([]string{"пока", "до свидания"}, "ну все, пока") {
		t.Error("literal pattern should match")
	}
	if !MatchesAny([]string{`\d{3}`}, "код 123 принят") {
		t.Error("regexp pattern should match")
	}
	if MatchesAny([]string{"пока"}, "привет") {
		t.Error("unrelated text should not match")
	}
	if MatchesAny(nil, "привет") {
		t.Error("empty pattern list should not match")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Привет, Мир!", "привет мир"},
		{"  a   b  ", "a b"},
		{"...", ""},
		{"UPPER case", "upper case"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
