package analyzer

import (
	"reflect"
	"strings"
	"testing"
)

func TestWordCount(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"latin", "hello, world!", 2},
		{"persian", "سفر به شیراز زیباست.", 4},
		{"zero width non-joiner", "من می‌روم", 2},
		{"digits and underscore", "room_12 costs 300", 3},
		{"markdown punctuation", "## عنوان\n- مورد اول", 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := WordCount(tt.text); got != tt.want {
				t.Errorf("WordCount(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestMissingKeywords(t *testing.T) {
	text := "سفر به شیراز در بهار بهترین انتخاب است. Hotel booking"
	keywords := []string{"سفر به شیراز", "هتل", "hotel", "بهار"}

	got := MissingKeywords(keywords, text)
	want := []string{"هتل", "hotel"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MissingKeywords() = %v, want %v", got, want)
	}

	if got := MissingKeywords(nil, text); got != nil {
		t.Errorf("expected nil for no keywords, got %v", got)
	}
}

func TestCoverage(t *testing.T) {
	text := "شیراز شهر شعر است. حافظ در شیراز است؟ شیرازشیراز"
	tests := []struct {
		name     string
		keywords []string
		want     []KeywordHit
	}{
		{name: "none", keywords: nil, want: nil},
		{
			name:     "counts in order",
			keywords: []string{"شیراز", "اصفهان", "حافظ"},
			want:     []KeywordHit{{"شیراز", 4}, {"اصفهان", 0}, {"حافظ", 1}},
		},
		{name: "empty keyword", keywords: []string{""}, want: []KeywordHit{{"", 0}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Coverage(tt.keywords, text); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Coverage() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestValidateStructure(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		want     bool
		wantLine int
	}{
		{"h3 first", "### heading", false, 1},
		{"h2 text h3", "## h2\ntext\n### h3", true, 0},
		{"h3 after h2", "## h2\n### h3", true, 0},
		{"h3 after h3", "## h2\n### a\n### b", true, 0},
		{"h3 after body", "مقدمه\n### h3", true, 0},
		{"h1 does not move cursor", "# title\n### h3", false, 2},
		{"blank lines ignored", "\n\n   ### h3", false, 3},
		{"indented h2", "   ## h2\n### h3", true, 0},
		{"empty", "", true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			line, ok := CheckStructure(tt.text)
			if ok != tt.want || line != tt.wantLine {
				t.Errorf("CheckStructure(%q) = (%d, %v), want (%d, %v)", tt.text, line, ok, tt.wantLine, tt.want)
			}
			if ValidateStructure(tt.text) != tt.want {
				t.Errorf("ValidateStructure disagrees with CheckStructure")
			}
		})
	}
}

func benchmarkArticle(size int) string {
	sb := strings.Builder{}
	sb.Grow(size)
	paragraphs := []string{
		"## جاذبه‌های شیراز\n",
		"شیراز شهر شعر و ادب است و سفر به شیراز در بهار تجربه‌ای فراموش‌نشدنی است.\n",
		"باغ ارم و حافظیه از مهم‌ترین جاذبه‌های گردشگری شیراز هستند.\n",
		"برای رزرو هتل در شیراز بهتر است از چند هفته قبل اقدام کنید.\n",
	}
	for sb.Len() < size {
		for _, p := range paragraphs {
			sb.WriteString(p)
		}
	}
	return sb.String()
}

func BenchmarkWordCount(b *testing.B) {
	text := benchmarkArticle(20 * 1024)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		WordCount(text)
	}
}

func BenchmarkCoverage(b *testing.B) {
	text := benchmarkArticle(20 * 1024)
	keywords := []string{"سفر به شیراز", "هتل", "حافظیه", "باغ ارم", "بهار"}
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		Coverage(keywords, text)
	}
}
