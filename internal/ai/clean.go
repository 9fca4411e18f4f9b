package ai

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// CleanOptions describe the message the model was asked for.
type CleanOptions struct {
	Type     string
	Scope    string
	Ticket   string
	Detailed bool
	// MaxSubject is the subject limit in characters; 0 disables trimming.
	MaxSubject int
}

var (
	thinkRe        = regexp.MustCompile(`(?s)<think>.*?</think>`)
	leadInRe       = regexp.MustCompile(`(?i)^(?:here(?:'s| is) (?:the |a |your )?)?(?:suggested )?commit message\s*:?\s*`)
	conventionalRe = regexp.MustCompile(`^\w+(?:\([^)]*\))?!?:\s+\S`)
)

// CleanMessage turns raw model output into a commit message: it drops
// reasoning blocks, code fences, quotes and lead-ins, forces the
// conventional header and trims the subject to opts.MaxSubject.
func CleanMessage(raw string, opts CleanOptions) string {
	text := thinkRe.ReplaceAllString(raw, "")

	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \t"))
	}

	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	if len(lines) == 0 {
		return ""
	}

	subject := strings.TrimSpace(lines[0])
	subject = leadInRe.ReplaceAllString(subject, "")
	if subject == "" && len(lines) > 1 {
		// "Commit message:" on its own line.
		lines = lines[1:]
		for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
			lines = lines[1:]
		}
		if len(lines) == 0 {
			return ""
		}
		subject = strings.TrimSpace(lines[0])
	}
	subject = unquote(subject)
	subject = ensureHeader(subject, opts)
	subject = strings.TrimRight(subject, ".")
	subject = trimSubject(subject, opts.MaxSubject)

	if !opts.Detailed {
		return subject
	}

	body := strings.TrimSpace(strings.Join(lines[1:], "\n"))
	body = strings.Trim(body, "\"'`")
	if body == "" {
		return subject
	}
	return subject + "\n\n" + strings.TrimSpace(body)
}

func unquote(s string) string {
	for len(s) >= 2 {
		first, last := s[0], s[len(s)-1]
		if (first == '"' || first == '\'' || first == '`') && first == last {
			s = strings.TrimSpace(s[1 : len(s)-1])
			continue
		}
		break
	}
	return strings.Trim(s, "\"`")
}

// ensureHeader prefixes type(scope): when the model left it out and adds
// the ticket reference when missing.
func ensureHeader(subject string, opts CleanOptions) string {
	if opts.Type == "" {
		return subject
	}

	if !conventionalRe.MatchString(subject) {
		prefix := opts.Type
		if opts.Scope != "" {
			prefix += "(" + opts.Scope + ")"
		}
		subject = prefix + ": " + lowerFirst(subject)
	}

	if opts.Ticket != "" && !strings.Contains(subject, opts.Ticket) {
		head, rest, _ := strings.Cut(subject, ": ")
		subject = head + ": [" + opts.Ticket + "] " + rest
	}
	return subject
}

func lowerFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError || size == 0 {
		return s
	}
	// Keep acronyms such as "API".
	if next, _ := utf8.DecodeRuneInString(s[size:]); next >= 'A' && next <= 'Z' {
		return s
	}
	return strings.ToLower(string(r)) + s[size:]
}

// trimSubject shortens s to max characters, preferring a word boundary.
func trimSubject(s string, max int) string {
	if max <= 0 || utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	cut := string(runes[:max])
	if i := strings.LastIndex(cut, " "); i > len(cut)/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:-")
}
