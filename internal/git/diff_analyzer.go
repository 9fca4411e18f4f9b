package git

import (
	"fmt"
	"path"
	"regexp"
	"sort"
	"strings"
)

// File status values in FileSummary.Status.
const (
	StatusModified = "modified"
	StatusAdded    = "added"
	StatusDeleted  = "deleted"
	StatusRenamed  = "renamed"
)

// Complexity values in DiffAnalysis.Complexity.
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

const (
	maxKeyChanges   = 5
	largeChangeSize = 500
	minChunkBudget  = 500
)

// DiffAnalysis summarizes a unified diff for the prompt.
type DiffAnalysis struct {
	Files          []FileSummary
	SmartDiff      string
	TotalAdditions int
	TotalDeletions int
	KeyChanges     []string
	ImportChanges  []string
	IsLargeChange  bool
	Complexity     string
}

// FileSummary describes the changes to one file.
type FileSummary struct {
	Path         string
	Status       string
	Additions    int
	Deletions    int
	FileType     string
	IsTestFile   bool
	IsConfigFile bool
	KeyChanges   []string

	diff string
}

// Size is the number of changed lines.
func (f FileSummary) Size() int {
	return f.Additions + f.Deletions
}

var (
	fileHeaderRe = regexp.MustCompile(`(?m)^diff --git `)

	goFuncRe    = regexp.MustCompile(`^func\s+(?:\([^)]*\)\s*)?(\w+)`)
	goTypeRe    = regexp.MustCompile(`^type\s+(\w+)\s+(?:struct|interface)`)
	jsFuncRe    = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:async\s+)?function\s*\*?\s*(\w+)`)
	jsArrowRe   = regexp.MustCompile(`^(?:export\s+)?(?:const|let)\s+(\w+)\s*=\s*(?:async\s+)?(?:\([^)]*\)|\w+)\s*=>`)
	classRe     = regexp.MustCompile(`^(?:export\s+)?(?:default\s+)?(?:abstract\s+)?class\s+(\w+)`)
	pyFuncRe    = regexp.MustCompile(`^(?:async\s+)?def\s+(\w+)`)
	rustFnRe    = regexp.MustCompile(`^(?:pub(?:\([^)]*\))?\s+)?(?:async\s+)?fn\s+(\w+)`)
	genericCall = regexp.MustCompile(`^(?:[\w*&:<>]+\s+)*\w+\s*\([^)]*\)\s*\{?$`)

	importRes = []*regexp.Regexp{
		regexp.MustCompile(`^import\s+`),
		regexp.MustCompile(`^from\s+\S+\s+import\s`),
		regexp.MustCompile(`^(?:const|let|var)\s+\w+\s*=\s*require\(`),
		regexp.MustCompile(`^require\(`),
		regexp.MustCompile(`^use\s+`),
		regexp.MustCompile(`^#include\s+`),
	}
)

var fileTypes = map[string]string{
	".go":    "go",
	".js":    "javascript",
	".jsx":   "javascript",
	".mjs":   "javascript",
	".ts":    "typescript",
	".tsx":   "typescript",
	".py":    "python",
	".java":  "java",
	".rb":    "ruby",
	".rs":    "rust",
	".c":     "c",
	".h":     "c",
	".cpp":   "cpp",
	".hpp":   "cpp",
	".cs":    "csharp",
	".php":   "php",
	".swift": "swift",
	".kt":    "kotlin",
	".lua":   "lua",
	".yaml":  "yaml",
	".yml":   "yaml",
	".json":  "json",
	".toml":  "toml",
	".md":    "markdown",
	".sql":   "sql",
	".sh":    "shell",
}

var configNames = []string{
	"package.json", "go.mod", "go.sum", "cargo.toml", "requirements.txt",
	"gemfile", "pom.xml", "build.gradle", "dockerfile", "makefile",
	".gitignore", ".dockerignore", ".env",
}

var configExts = []string{".yml", ".yaml", ".toml", ".json", ".ini", ".conf", ".config"}

// AnalyzeDiff splits diff by file and summarizes it. SmartDiff is the diff
// itself when it fits in maxLength bytes, otherwise a digest that keeps
// the most relevant hunks.
func AnalyzeDiff(diff string, maxLength int) *DiffAnalysis {
	a := &DiffAnalysis{
		Files:         []FileSummary{},
		KeyChanges:    []string{},
		ImportChanges: []string{},
		Complexity:    ComplexitySimple,
	}
	if strings.TrimSpace(diff) == "" {
		return a
	}

	for _, fileDiff := range splitDiffByFile(diff) {
		fs := analyzeFileDiff(fileDiff)
		a.Files = append(a.Files, fs)
		a.TotalAdditions += fs.Additions
		a.TotalDeletions += fs.Deletions
		a.KeyChanges = append(a.KeyChanges, fs.KeyChanges...)
		a.ImportChanges = append(a.ImportChanges, extractImportChanges(fileDiff)...)
	}
	a.KeyChanges = uniqueStrings(a.KeyChanges)
	a.ImportChanges = uniqueStrings(a.ImportChanges)

	total := a.TotalAdditions + a.TotalDeletions
	a.IsLargeChange = total > largeChangeSize
	a.Complexity = complexity(total, len(a.Files))
	a.SmartDiff = smartDiff(diff, a, maxLength)
	return a
}

func complexity(lines, files int) string {
	switch {
	case lines > 500 || files > 10:
		return ComplexityComplex
	case lines > 100 || files > 3:
		return ComplexityModerate
	default:
		return ComplexitySimple
	}
}

func splitDiffByFile(diff string) []string {
	idx := fileHeaderRe.FindAllStringIndex(diff, -1)
	if len(idx) == 0 {
		return []string{diff}
	}

	files := make([]string, 0, len(idx))
	for i, loc := range idx {
		end := len(diff)
		if i+1 < len(idx) {
			end = idx[i+1][0]
		}
		files = append(files, diff[loc[0]:end])
	}
	return files
}

func analyzeFileDiff(fileDiff string) FileSummary {
	fs := FileSummary{diff: fileDiff}

	inHunk := false
	for _, line := range strings.Split(fileDiff, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			fs.Path = pathFromHeader(line)
		case strings.HasPrefix(line, "@@"):
			inHunk = true
		case !inHunk && strings.HasPrefix(line, "new file"):
			fs.Status = StatusAdded
		case !inHunk && strings.HasPrefix(line, "deleted file"):
			fs.Status = StatusDeleted
		case !inHunk && strings.HasPrefix(line, "rename to "):
			fs.Status = StatusRenamed
			fs.Path = strings.TrimPrefix(line, "rename to ")
		case inHunk && strings.HasPrefix(line, "+"):
			fs.Additions++
		case inHunk && strings.HasPrefix(line, "-"):
			fs.Deletions++
		}
	}
	if fs.Status == "" {
		fs.Status = StatusModified
	}

	fs.FileType = fileType(fs.Path)
	fs.IsTestFile = isTestFile(fs.Path)
	fs.IsConfigFile = isConfigFile(fs.Path)
	fs.KeyChanges = extractKeyChanges(fileDiff, fs.FileType)
	return fs
}

// pathFromHeader takes the b/ side of "diff --git a/x b/x".
func pathFromHeader(line string) string {
	rest := strings.TrimPrefix(line, "diff --git ")
	if i := strings.LastIndex(rest, " b/"); i >= 0 {
		return rest[i+3:]
	}
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return strings.TrimPrefix(fields[len(fields)-1], "b/")
}

func fileType(p string) string {
	if t, ok := fileTypes[strings.ToLower(path.Ext(p))]; ok {
		return t
	}
	return "unknown"
}

func isTestFile(p string) bool {
	lower := strings.ToLower(p)
	for _, marker := range []string{"_test.", ".test.", ".spec.", "/test/", "/tests/", "__tests__"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return strings.HasPrefix(path.Base(lower), "test_") ||
		strings.HasPrefix(lower, "test/") || strings.HasPrefix(lower, "tests/")
}

func isConfigFile(p string) bool {
	base := strings.ToLower(path.Base(p))
	for _, name := range configNames {
		if base == name {
			return true
		}
	}
	ext := path.Ext(base)
	for _, e := range configExts {
		if ext == e {
			return true
		}
	}
	return false
}

// addedLines yields the trimmed content of "+" lines inside hunks.
func addedLines(fileDiff string) []string {
	var out []string
	inHunk := false
	for _, line := range strings.Split(fileDiff, "\n") {
		if strings.HasPrefix(line, "@@") {
			inHunk = true
			continue
		}
		if !inHunk || !strings.HasPrefix(line, "+") {
			continue
		}
		if trimmed := strings.TrimSpace(line[1:]); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func extractKeyChanges(fileDiff, lang string) []string {
	var changes []string
	for _, line := range addedLines(fileDiff) {
		if c := keyChange(line, lang); c != "" {
			changes = append(changes, c)
		}
	}
	changes = uniqueStrings(changes)
	if len(changes) > maxKeyChanges {
		changes = changes[:maxKeyChanges]
	}
	return changes
}

func keyChange(line, lang string) string {
	match := func(re *regexp.Regexp, kind string) string {
		if m := re.FindStringSubmatch(line); m != nil {
			return kind + " " + m[1]
		}
		return ""
	}

	switch lang {
	case "go":
		if c := match(goFuncRe, "function"); c != "" {
			return c
		}
		return match(goTypeRe, "type")
	case "javascript", "typescript":
		if c := match(jsFuncRe, "function"); c != "" {
			return c
		}
		if c := match(jsArrowRe, "function"); c != "" {
			return c
		}
		return match(classRe, "class")
	case "python":
		if c := match(pyFuncRe, "function"); c != "" {
			return c
		}
		return match(classRe, "class")
	case "rust":
		return match(rustFnRe, "function")
	case "java", "csharp", "kotlin", "php", "swift", "ruby":
		return match(classRe, "class")
	case "unknown", "markdown", "json", "yaml", "toml":
		return ""
	default:
		if len(line) < 100 && genericCall.MatchString(line) {
			return "function: " + truncate(line, 50)
		}
		return ""
	}
}

func extractImportChanges(fileDiff string) []string {
	var changes []string
	for _, line := range addedLines(fileDiff) {
		for _, re := range importRes {
			if re.MatchString(line) {
				changes = append(changes, truncate(line, 60))
				break
			}
		}
	}
	return changes
}

// smartDiff keeps diffs that fit. Larger ones become a header, per-file
// summaries, import changes and hunks from the most relevant files: source
// before tests and config, larger changes first.
func smartDiff(diff string, a *DiffAnalysis, maxLength int) string {
	if maxLength <= 0 || len(diff) <= maxLength {
		return diff
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "DIFF SUMMARY (%d files, +%d/-%d lines)\n", len(a.Files), a.TotalAdditions, a.TotalDeletions)
	sb.WriteString(strings.Repeat("=", 60) + "\n\n")

	for _, f := range a.Files {
		fmt.Fprintf(&sb, "📄 %s [%s] +%d/-%d\n", f.Path, f.Status, f.Additions, f.Deletions)
		if len(f.KeyChanges) > 0 {
			fmt.Fprintf(&sb, "   Key changes: %s\n", strings.Join(f.KeyChanges, ", "))
		}
	}
	sb.WriteString("\n")

	if len(a.ImportChanges) > 0 {
		sb.WriteString("📦 Import changes:\n")
		for _, imp := range a.ImportChanges {
			fmt.Fprintf(&sb, "   %s\n", imp)
		}
		sb.WriteString("\n")
	}

	sb.WriteString("SELECTED DIFF CHUNKS:\n")
	sb.WriteString(strings.Repeat("-", 60) + "\n\n")

	ranked := make([]FileSummary, len(a.Files))
	copy(ranked, a.Files)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].IsTestFile != ranked[j].IsTestFile {
			return !ranked[i].IsTestFile
		}
		if ranked[i].IsConfigFile != ranked[j].IsConfigFile {
			return !ranked[i].IsConfigFile
		}
		return ranked[i].Size() > ranked[j].Size()
	})

	remaining := maxLength - sb.Len()
	if remaining < minChunkBudget {
		remaining = minChunkBudget
	}
	for i, f := range ranked {
		budget := remaining / (len(ranked) - i)
		chunk := importantChunks(f.diff, budget)
		if chunk != "" {
			sb.WriteString(chunk)
			sb.WriteString("\n")
			remaining -= len(chunk)
		}
		if remaining < minChunkBudget {
			break
		}
	}

	fmt.Fprintf(&sb, "\n... (diff truncated: %d/%d chars shown)\n", sb.Len(), len(diff))
	return sb.String()
}

// importantChunks keeps the file header and hunks, collapsing runs of more
// than three context lines, until budget bytes are used.
func importantChunks(fileDiff string, budget int) string {
	var sb strings.Builder
	lines := strings.Split(fileDiff, "\n")

	body := 0
	for i, line := range lines {
		if strings.HasPrefix(line, "@@") {
			body = i
			break
		}
		if strings.HasPrefix(line, "diff ") || strings.HasPrefix(line, "--- ") || strings.HasPrefix(line, "+++ ") {
			sb.WriteString(line + "\n")
		}
	}
	if body == 0 {
		return sb.String()
	}

	ctxLines := 0
	for _, line := range lines[body:] {
		switch {
		case strings.HasPrefix(line, "@@"):
			ctxLines = 0
		case strings.HasPrefix(line, "+"), strings.HasPrefix(line, "-"):
			ctxLines = 0
		default:
			ctxLines++
			if ctxLines > 3 {
				continue
			}
		}
		if sb.Len()+len(line)+1 > budget {
			break
		}
		sb.WriteString(line + "\n")
	}
	return sb.String()
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s != "" && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return truncateUTF8(s, max-3) + "..."
}
