package git

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// SecretPattern is a rule for credential-like content.
type SecretPattern struct {
	Name        string
	Pattern     *regexp.Regexp
	Description string
}

var secretPatterns = []SecretPattern{
	{
		Name:        "API Key",
		Pattern:     regexp.MustCompile(`(?i)(api[_-]?key|apikey)\s*[:=]\s*['"][a-zA-Z0-9_\-]{15,}['"]`),
		Description: "Potential API key detected",
	},
	{
		Name:        "Token",
		Pattern:     regexp.MustCompile(`(?i)(auth[_-]?token|access[_-]?token|bearer|token)\s*[:=]\s*['"][a-zA-Z0-9_\-.]{15,}['"]`),
		Description: "Potential authentication token detected",
	},
	{
		Name:        "Password",
		Pattern:     regexp.MustCompile(`(?i)(password|passwd|pwd)\s*[:=]\s*['"][^'"]+['"]`),
		Description: "Potential password detected",
	},
	{
		Name:        "Secret",
		Pattern:     regexp.MustCompile(`(?i)(secret[_-]?key|client[_-]?secret|secret)\s*[:=]\s*['"][a-zA-Z0-9_\-]{15,}['"]`),
		Description: "Potential secret key detected",
	},
	{
		Name:        "AWS Key",
		Pattern:     regexp.MustCompile(`\b(AKIA|ASIA)[A-Z0-9]{16}\b`),
		Description: "Potential AWS access key detected",
	},
	{
		Name:        "GitHub Token",
		Pattern:     regexp.MustCompile(`\bgh[pousr]_[a-zA-Z0-9]{36,}`),
		Description: "Potential GitHub token detected",
	},
	{
		Name:        "Private Key",
		Pattern:     regexp.MustCompile(`-----BEGIN ([A-Z]+ )?PRIVATE KEY-----`),
		Description: "Private key block detected",
	},
}

var hunkHeaderRe = regexp.MustCompile(`^@@ -\d+(?:,\d+)? \+(\d+)(?:,\d+)? @@`)

// SecretFinding is a staged line that looks like a credential.
type SecretFinding struct {
	PatternName string
	Description string
	File        string
	Line        int    // line number in the new file
	Preview     string // redacted
}

// ScanSecrets inspects the added lines of a unified diff. Context and
// removed lines are ignored so deleting a secret is never flagged.
func ScanSecrets(diff string) []SecretFinding {
	var findings []SecretFinding
	file := ""
	line := 0

	for _, raw := range strings.Split(diff, "\n") {
		switch {
		case strings.HasPrefix(raw, "+++ "):
			file = strings.TrimPrefix(strings.TrimPrefix(raw, "+++ "), "b/")
			continue
		case strings.HasPrefix(raw, "--- "), strings.HasPrefix(raw, "diff --git "):
			continue
		case strings.HasPrefix(raw, "@@"):
			if m := hunkHeaderRe.FindStringSubmatch(raw); m != nil {
				line, _ = strconv.Atoi(m[1])
			}
			continue
		case strings.HasPrefix(raw, "-"):
			continue
		case strings.HasPrefix(raw, "+"):
			added := raw[1:]
			for _, p := range secretPatterns {
				if p.Pattern.MatchString(added) {
					findings = append(findings, SecretFinding{
						PatternName: p.Name,
						Description: p.Description,
						File:        file,
						Line:        line,
						Preview:     redact(added),
					})
					break
				}
			}
		}
		line++
	}
	return findings
}

// redact keeps the key side of an assignment.
func redact(line string) string {
	line = strings.TrimSpace(line)
	if i := strings.IndexAny(line, "=:"); i > 0 {
		return strings.TrimSpace(line[:i]) + " = [REDACTED]"
	}
	if len(line) > 30 {
		return truncateUTF8(line, 30) + "... [REDACTED]"
	}
	return "[REDACTED]"
}

// FormatSecretWarning renders findings for the terminal.
func FormatSecretWarning(findings []SecretFinding) string {
	if len(findings) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("⚠️  Potential secrets in staged changes:\n\n")
	for i, f := range findings {
		fmt.Fprintf(&sb, "%d. %s (%s:%d)\n", i+1, f.Description, f.File, f.Line)
		fmt.Fprintf(&sb, "   Preview: %s\n", f.Preview)
	}
	sb.WriteString("\nUnstage them with `git restore --staged <file>` or use --allow-secrets.\n")
	return sb.String()
}
