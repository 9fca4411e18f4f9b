package git

import (
	"regexp"
	"strings"
)

// defaultTicketPatterns are tried in order when no custom pattern matches.
var defaultTicketPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Z][A-Z0-9]+-\d+`), // PROJ-123
	regexp.MustCompile(`#\d+`),              // #123
	regexp.MustCompile(`[A-Z][A-Z0-9]+_\d+`), // PROJ_123
}

var digitsRe = regexp.MustCompile(`^\d+$`)

// ExtractTicketFromBranch finds a ticket reference in a branch name such
// as feature/PROJ-123-login. A custom pattern, when it compiles and
// matches, takes precedence; its first capture group is used if present.
func ExtractTicketFromBranch(branch, pattern string) string {
	if branch == "" {
		return ""
	}

	if pattern != "" {
		if re, err := regexp.Compile(pattern); err == nil {
			if m := re.FindStringSubmatch(branch); m != nil {
				if len(m) > 1 && m[1] != "" {
					return m[1]
				}
				return m[0]
			}
		}
	}

	for _, re := range defaultTicketPatterns {
		if m := re.FindString(branch); m != "" {
			return m
		}
	}
	return ""
}

// FormatTicketNumber joins prefix and a bare number ("123" with prefix
// "JIRA" gives "JIRA-123"). Anything else is returned trimmed.
func FormatTicketNumber(ticket, prefix string) string {
	ticket = strings.TrimSpace(ticket)
	if ticket == "" {
		return ""
	}
	prefix = strings.TrimRight(strings.TrimSpace(prefix), "-")
	if prefix != "" && digitsRe.MatchString(ticket) {
		return prefix + "-" + ticket
	}
	return ticket
}
