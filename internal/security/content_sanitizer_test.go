package security

import (
	"strings"
	"testing"
)

// TestSanitize_StripsMarkup はタグが除去されテキストだけが残ることを検証する。
func TestSanitize_StripsMarkup(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "beat boss", "beat boss"},
		{"bold", "<b>beat</b> boss", "beat boss"},
		{"link", `<a href="https://example.com">wiki</a>`, "wiki"},
		{"entities restored", "Tom &amp; Jerry", "Tom & Jerry"},
		{"angle brackets in text", "5 < 6", "5 < 6"},
		{"trim", "  padded  ", "padded"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := s.Sanitize(tt.input); got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

// TestSanitize_XSSPayloads は代表的なXSSペイロードが無害化されることを検証する。
func TestSanitize_XSSPayloads(t *testing.T) {
	s := NewTextSanitizer()

	payloads := []string{
		`<script>alert('xss')</script>`,
		`<img src=x onerror=alert(1)>`,
		`<svg onload=alert(1)>`,
		`<iframe src="javascript:alert(1)"></iframe>`,
		`<a href="javascript:alert(1)">click</a>`,
	}

	for _, p := range payloads {
		t.Run(p, func(t *testing.T) {
			got := s.Sanitize(p)
			lower := strings.ToLower(got)
			for _, bad := range []string{"<script", "onerror", "onload", "<iframe", "javascript:"} {
				if strings.Contains(lower, bad) {
					t.Errorf("Sanitize(%q) = %q still contains %q", p, got, bad)
				}
			}
		})
	}
}

// TestSanitize_Idempotent は同じ入力に対して同じ出力を返すことを検証する。
func TestSanitize_Idempotent(t *testing.T) {
	s := NewTextSanitizer()
	input := "<p>Hello <em>world</em></p>"

	first := s.Sanitize(input)
	second := s.Sanitize(input)
	if first != second {
		t.Errorf("not idempotent: %q vs %q", first, second)
	}
}

// TestSanitize_EscapedMarkup はエスケープされたマークアップが復元後にタグとして残らないことを検証する。
func TestSanitize_EscapedMarkup(t *testing.T) {
	s := NewTextSanitizer()

	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"escaped script", "&lt;script&gt;alert(1)&lt;/script&gt;", ""},
		{"escaped bold", "&lt;b&gt;beat&lt;/b&gt; boss", "beat boss"},
		{"double escaped", "&amp;lt;img src=x onerror=alert(1)&amp;gt;", ""},
		{"text around escaped tag", "before &lt;i&gt;mid&lt;/i&gt; after", "before mid after"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Sanitize(tt.input)
			if got != tt.want {
				t.Errorf("Sanitize(%q) = %q, want %q", tt.input, got, tt.want)
			}
			if strings.Contains(got, "<") {
				t.Errorf("Sanitize(%q) = %q still contains markup", tt.input, got)
			}
		})
	}
}

// TestSanitize_StableOnResanitize は保存済みの値を再度サニタイズしても変わらないことを検証する。
// 更新時に未変更のフィールドが再送されても内容が失われないことに対応する。
func TestSanitize_StableOnResanitize(t *testing.T) {
	s := NewTextSanitizer()

	inputs := []string{
		"beat boss",
		"<p>Hello <em>world</em></p>",
		"Tom &amp; Jerry",
		"5 < 6 and 7 > 3",
		"&lt;script&gt;alert(1)&lt;/script&gt;",
		"&lt;b&gt;boss&lt;/b&gt; down",
		"a &lt; b",
	}

	for _, in := range inputs {
		t.Run(in, func(t *testing.T) {
			once := s.Sanitize(in)
			twice := s.Sanitize(once)
			if once != twice {
				t.Errorf("Sanitize(%q) = %q, but Sanitize(%q) = %q", in, once, once, twice)
			}
		})
	}
}

// TestSanitizeList_DropsEmptyAndDuplicates はタグ等の一覧から空要素と重複が除かれることを検証する。
func TestSanitizeList_DropsEmptyAndDuplicates(t *testing.T) {
	s := NewTextSanitizer()

	got := s.SanitizeList([]string{" go ", "", "<b>go</b>", "cli", "   ", "<script>x</script>"})
	want := []string{"go", "cli"}

	if len(got) != len(want) {
		t.Fatalf("SanitizeList() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

// TestSanitizeList_NilInput は空のスライスを返すことを検証する。
func TestSanitizeList_NilInput(t *testing.T) {
	got := NewTextSanitizer().SanitizeList(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("SanitizeList(nil) = %#v, want empty non-nil slice", got)
	}
}

// TestTextSanitizerInterface はインターフェースを実装していることを検証する。
func TestTextSanitizerInterface(t *testing.T) {
	var _ Sanitizer = NewTextSanitizer()
}
