package git

import (
	"fmt"
	"strings"
	"testing"
)

const sampleDiff = `diff --git a/internal/auth/login.go b/internal/auth/login.go
index 1111111..2222222 100644
--- a/internal/auth/login.go
+++ b/internal/auth/login.go
@@ -1,3 +1,12 @@
 package auth
+
+import "crypto/subtle"
+
+type Session struct {
+	User string
+}
+
+func (s *Session) Valid() bool {
+	return subtle.ConstantTimeCompare([]byte(s.User), nil) == 0
+}
-// old comment
diff --git a/internal/auth/login_test.go b/internal/auth/login_test.go
new file mode 100644
index 0000000..3333333
--- /dev/null
+++ b/internal/auth/login_test.go
@@ -0,0 +1,3 @@
+package auth
+
+func TestValid(t *testing.T) {}
diff --git a/config.yaml b/config.yaml
deleted file mode 100644
index 4444444..0000000
--- a/config.yaml
+++ /dev/null
@@ -1,2 +0,0 @@
-key: value
-other: 1
`

func TestAnalyzeDiff_Summaries(t *testing.T) {
	a := AnalyzeDiff(sampleDiff, 10000)

	if len(a.Files) != 3 {
		t.Fatalf("len(Files) = %d, want 3", len(a.Files))
	}

	login := a.Files[0]
	if login.Path != "internal/auth/login.go" || login.Status != StatusModified {
		t.Errorf("login = %s [%s]", login.Path, login.Status)
	}
	if login.Additions != 10 || login.Deletions != 1 {
		t.Errorf("login +%d/-%d, want +10/-1", login.Additions, login.Deletions)
	}
	if login.FileType != "go" || login.IsTestFile || login.IsConfigFile {
		t.Errorf("login classification = %+v", login)
	}
	if strings.Join(login.KeyChanges, ",") != "type Session,function Valid" {
		t.Errorf("login.KeyChanges = %v", login.KeyChanges)
	}

	test := a.Files[1]
	if test.Status != StatusAdded || !test.IsTestFile {
		t.Errorf("test file = %+v", test)
	}

	cfg := a.Files[2]
	if cfg.Status != StatusDeleted || !cfg.IsConfigFile || cfg.Deletions != 2 {
		t.Errorf("config file = %+v", cfg)
	}

	if a.TotalAdditions != 13 || a.TotalDeletions != 3 {
		t.Errorf("totals +%d/-%d, want +13/-3", a.TotalAdditions, a.TotalDeletions)
	}
	if len(a.ImportChanges) != 1 || a.ImportChanges[0] != `import "crypto/subtle"` {
		t.Errorf("ImportChanges = %v", a.ImportChanges)
	}
	if a.Complexity != ComplexitySimple || a.IsLargeChange {
		t.Errorf("Complexity = %s, large = %v", a.Complexity, a.IsLargeChange)
	}
	if a.SmartDiff != sampleDiff {
		t.Error("diff under the limit should be passed through unchanged")
	}
}

func TestAnalyzeDiff_Empty(t *testing.T) {
	a := AnalyzeDiff("  \n", 100)
	if len(a.Files) != 0 || a.SmartDiff != "" || a.Complexity != ComplexitySimple {
		t.Errorf("AnalyzeDiff(empty) = %+v", a)
	}
}

func TestAnalyzeDiff_Rename(t *testing.T) {
	diff := "diff --git a/old.go b/new.go\nsimilarity index 100%\nrename from old.go\nrename to new.go\n"
	a := AnalyzeDiff(diff, 1000)
	if len(a.Files) != 1 || a.Files[0].Status != StatusRenamed || a.Files[0].Path != "new.go" {
		t.Errorf("rename = %+v", a.Files)
	}
}

func TestComplexity(t *testing.T) {
	tests := []struct {
		lines, files int
		want         string
	}{
		{10, 1, ComplexitySimple},
		{101, 1, ComplexityModerate},
		{10, 4, ComplexityModerate},
		{501, 1, ComplexityComplex},
		{10, 11, ComplexityComplex},
	}
	for _, tt := range tests {
		if got := complexity(tt.lines, tt.files); got != tt.want {
			t.Errorf("complexity(%d, %d) = %s, want %s", tt.lines, tt.files, got, tt.want)
		}
	}
}

func TestAnalyzeDiff_SmartTruncation(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 6; i++ {
		fmt.Fprintf(&b, "diff --git a/pkg/f%d.go b/pkg/f%d.go\n--- a/pkg/f%d.go\n+++ b/pkg/f%d.go\n@@ -1,1 +1,80 @@\n", i, i, i, i)
		for j := 0; j < 80; j++ {
			fmt.Fprintf(&b, "+\tx%d := compute(%d)\n", j, j)
		}
	}
	b.WriteString("diff --git a/pkg/f_test.go b/pkg/f_test.go\n--- a/pkg/f_test.go\n+++ b/pkg/f_test.go\n@@ -1,1 +1,2 @@\n+func TestX(t *testing.T) {}\n")
	diff := b.String()

	a := AnalyzeDiff(diff, 2000)
	if a.Complexity != ComplexityModerate {
		t.Errorf("Complexity = %s", a.Complexity)
	}
	if !strings.HasPrefix(a.SmartDiff, "DIFF SUMMARY (7 files, +481/-0 lines)") {
		t.Errorf("SmartDiff header = %q", strings.SplitN(a.SmartDiff, "\n", 2)[0])
	}
	if !strings.Contains(a.SmartDiff, "📄 pkg/f_test.go [modified] +1/-0") {
		t.Error("every file should be listed in the summary")
	}
	if !strings.Contains(a.SmartDiff, "SELECTED DIFF CHUNKS:") || !strings.Contains(a.SmartDiff, "diff truncated") {
		t.Error("truncated diff should carry chunk section and note")
	}
	if len(a.SmartDiff) >= len(diff) {
		t.Errorf("SmartDiff (%d) should be shorter than the diff (%d)", len(a.SmartDiff), len(diff))
	}
}

func TestKeyChange(t *testing.T) {
	tests := []struct {
		line, lang, want string
	}{
		{"func main() {", "go", "function main"},
		{"func (s *Server) Start(ctx context.Context) error {", "go", "function Start"},
		{"type Config struct {", "go", "type Config"},
		{"type ID string", "go", ""},
		{"export async function fetchUser(id) {", "typescript", "function fetchUser"},
		{"const handler = async (req) => {", "javascript", "function handler"},
		{"export default class App extends Component {", "javascript", "class App"},
		{"async def run(self):", "python", "function run"},
		{"class Parser(Base):", "python", "class Parser"},
		{"pub fn parse(input: &str) -> Result<()> {", "rust", "function parse"},
		{"int add(int a, int b) {", "c", "function: int add(int a, int b) {"},
		{"just text", "markdown", ""},
	}
	for _, tt := range tests {
		if got := keyChange(tt.line, tt.lang); got != tt.want {
			t.Errorf("keyChange(%q, %s) = %q, want %q", tt.line, tt.lang, got, tt.want)
		}
	}
}

func TestFileClassification(t *testing.T) {
	tests := []struct {
		path         string
		typ          string
		test, config bool
	}{
		{"main.go", "go", false, false},
		{"pkg/x_test.go", "go", true, false},
		{"src/App.test.tsx", "typescript", true, false},
		{"tests/test_api.py", "python", true, false},
		{"package.json", "json", false, true},
		{"go.mod", "unknown", false, true},
		{"Dockerfile", "unknown", false, true},
		{".github/workflows/ci.yml", "yaml", false, true},
		{"README.md", "markdown", false, false},
		{"internal/latest_version.go", "go", false, false},
	}
	for _, tt := range tests {
		if got := fileType(tt.path); got != tt.typ {
			t.Errorf("fileType(%q) = %q, want %q", tt.path, got, tt.typ)
		}
		if got := isTestFile(tt.path); got != tt.test {
			t.Errorf("isTestFile(%q) = %v", tt.path, got)
		}
		if got := isConfigFile(tt.path); got != tt.config {
			t.Errorf("isConfigFile(%q) = %v", tt.path, got)
		}
	}
}
