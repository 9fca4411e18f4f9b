// Package ai builds prompts and talks to a local Ollama server.
package ai

import (
	"fmt"
	"strings"

	"github.com/xyue92/gitai/internal/git"
)

const (
	// MaxPromptDiff is the diff budget inside the prompt, in bytes.
	MaxPromptDiff = 2000

	subjectNormal = 72
	subjectShort  = 36
)

var variationHints = []string{
	"Try a different perspective or emphasis in the subject line.",
	"Consider alternative wording or focus on different aspects.",
	"Rephrase with a fresh approach while maintaining accuracy.",
	"Use different verbs or structure to convey the same changes.",
	"Focus on a different aspect of the changes for variety.",
}

// PromptBuilder assembles the generation prompt. The zero value is usable;
// Language defaults to "en".
type PromptBuilder struct {
	CommitType    string
	Scope         string
	Diff          string
	Context       git.ProjectContext
	Language      string
	Detailed      bool
	CustomPrompt  string
	Ticket        string
	SubjectLength string // "short" or "normal"
	// Regenerate counts previous attempts and adds a variation hint.
	Regenerate int
}

// NewPromptBuilder returns a builder with defaults applied.
func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{Language: "en"}
}

// SubjectLimit is the maximum subject length requested from the model.
func (pb *PromptBuilder) SubjectLimit() int {
	if pb.SubjectLength == "short" {
		return subjectShort
	}
	return subjectNormal
}

func (pb *PromptBuilder) language() string {
	if pb.Language == "" {
		return "en"
	}
	return pb.Language
}

// header renders the expected first line with a placeholder subject.
func (pb *PromptBuilder) header(subject string) string {
	var b strings.Builder
	b.WriteString(pb.CommitType)
	if pb.Scope != "" {
		b.WriteString("(" + pb.Scope + ")")
	}
	b.WriteString(": ")
	if pb.Ticket != "" {
		b.WriteString("[" + pb.Ticket + "] ")
	}
	b.WriteString(subject)
	return b.String()
}

// Build renders the prompt.
func (pb *PromptBuilder) Build() string {
	var p strings.Builder
	lang := pb.language()
	pc := pb.Context

	p.WriteString("You are a Git commit message generator expert.\n\n")

	if pc.ProjectName != "" || pc.BranchName != "" || len(pc.RecentCommits) > 0 {
		p.WriteString("PROJECT CONTEXT:\n")
		if pc.ProjectName != "" {
			fmt.Fprintf(&p, "- Project: %s\n", pc.ProjectName)
		}
		if pc.BranchName != "" {
			fmt.Fprintf(&p, "- Branch: %s\n", pc.BranchName)
		}
		if len(pc.RecentCommits) > 0 {
			p.WriteString("- Recent commits style:\n")
			for _, c := range pc.RecentCommits {
				fmt.Fprintf(&p, "  * %s\n", c)
			}
		}
		if pc.ReadmeSnippet != "" {
			fmt.Fprintf(&p, "- Project description: %s\n", pc.ReadmeSnippet)
		}
		p.WriteString("\n")
	}

	if pb.CustomPrompt != "" {
		p.WriteString("COMPANY/TEAM COMMIT GUIDELINES:\n")
		p.WriteString(strings.TrimSpace(pb.CustomPrompt))
		p.WriteString("\n\n")
		p.WriteString("IMPORTANT: Follow the above guidelines strictly when generating the commit message.\n\n")
	}

	p.WriteString("TASK:\n")
	fmt.Fprintf(&p, "Generate a %s commit message for the following changes.\n", pb.CommitType)
	if pb.Scope != "" {
		fmt.Fprintf(&p, "Scope: %s\n", pb.Scope)
	}
	if pb.Ticket != "" {
		fmt.Fprintf(&p, "Ticket/Issue Number: %s\n", pb.Ticket)
		fmt.Fprintf(&p, "IMPORTANT: Include the ticket number [%s] in the commit message.\n", pb.Ticket)
	}
	fmt.Fprintf(&p, "Language: %s\n\n", lang)

	if len(pc.ChangedFiles) > 0 {
		p.WriteString("CHANGED FILES:\n")
		for _, f := range pc.ChangedFiles {
			fmt.Fprintf(&p, "- %s\n", f)
		}
		p.WriteString("\n")
	}

	if pc.DiffStats != "" {
		p.WriteString("CHANGES SUMMARY:\n")
		p.WriteString(pc.DiffStats)
		p.WriteString("\n\n")
	}

	p.WriteString("CHANGES:\n")
	diff := pb.Diff
	if len(diff) > MaxPromptDiff {
		diff = diff[:MaxPromptDiff] + "\n... (truncated)"
	}
	p.WriteString(diff)
	p.WriteString("\n\n")

	p.WriteString("REQUIREMENTS:\n")
	p.WriteString("1. Follow Conventional Commits format\n")
	fmt.Fprintf(&p, "2. Subject line: concise summary (max %d characters)\n", pb.SubjectLimit())
	if pb.Detailed {
		p.WriteString("3. Body: explain WHAT changed and WHY (2-4 bullet points)\n")
		p.WriteString("4. Focus on the motivation and impact, not implementation details\n")
		fmt.Fprintf(&p, "5. Use %s language\n", lang)
		p.WriteString("6. Start subject line with lowercase letter after the type\n")
		p.WriteString("7. Separate subject and body with a blank line\n\n")
	} else {
		p.WriteString("3. Focus on WHAT changed and WHY (concise)\n")
		fmt.Fprintf(&p, "4. Use %s language\n", lang)
		p.WriteString("5. Start with lowercase letter after the type\n")
		p.WriteString("6. Generate ONLY the subject line, no body or explanation\n\n")
	}

	p.WriteString("OUTPUT FORMAT:\n")
	format := pb.header("<subject line>")
	example := pb.header("add user authentication endpoint")
	if pb.Detailed {
		p.WriteString(format + "\n\n<body with bullet points>\n\n")
		p.WriteString("Example:\n")
		p.WriteString(example + "\n\n")
		p.WriteString("- Implement JWT-based authentication\n")
		p.WriteString("- Add login and logout endpoints\n")
		p.WriteString("- Include token validation middleware\n\n")
		p.WriteString("Generate the commit message now (subject + body with details):\n")
	} else {
		p.WriteString(format + "\n\n")
		p.WriteString("Example:\n")
		p.WriteString(example + "\n\n")
		p.WriteString("Generate the commit message now (ONLY the subject line):\n")
	}

	if pb.Regenerate > 0 {
		hint := variationHints[pb.Regenerate%len(variationHints)]
		fmt.Fprintf(&p, "\nNOTE: This is regeneration attempt #%d. %s\n", pb.Regenerate, hint)
	}

	return p.String()
}
