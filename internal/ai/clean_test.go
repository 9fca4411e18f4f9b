package ai

import "testing"

func TestCleanMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		opts CleanOptions
		want string
	}{
		{
			name: "code fence",
			raw:  "```\nfeat(api): add endpoint\n```",
			opts: CleanOptions{Type: "feat", Scope: "api"},
			want: "feat(api): add endpoint",
		},
		{
			name: "lead-in and quotes",
			raw:  `Commit message: "fix: handle nil pointer."`,
			opts: CleanOptions{Type: "fix"},
			want: "fix: handle nil pointer",
		},
		{
			name: "lead-in on its own line",
			raw:  "Here is the commit message:\n\nfeat: add export",
			opts: CleanOptions{Type: "feat"},
			want: "feat: add export",
		},
		{
			name: "missing header",
			raw:  "Add user login",
			opts: CleanOptions{Type: "feat", Scope: "auth"},
			want: "feat(auth): add user login",
		},
		{
			name: "acronym kept",
			raw:  "API docs refreshed",
			opts: CleanOptions{Type: "docs"},
			want: "docs: API docs refreshed",
		},
		{
			name: "ticket inserted",
			raw:  "feat: add login",
			opts: CleanOptions{Type: "feat", Ticket: "PROJ-1"},
			want: "feat: [PROJ-1] add login",
		},
		{
			name: "ticket already present",
			raw:  "feat: [PROJ-1] add login",
			opts: CleanOptions{Type: "feat", Ticket: "PROJ-1"},
			want: "feat: [PROJ-1] add login",
		},
		{
			name: "concise drops body",
			raw:  "feat: add x\n\n- first\n- second",
			opts: CleanOptions{Type: "feat"},
			want: "feat: add x",
		},
		{
			name: "detailed keeps body",
			raw:  "feat: add x\n\n- first\n- second\n",
			opts: CleanOptions{Type: "feat", Detailed: true},
			want: "feat: add x\n\n- first\n- second",
		},
		{
			name: "subject trimmed at word",
			raw:  "feat: implement the very long subject line that goes on",
			opts: CleanOptions{Type: "feat", MaxSubject: 36},
			want: "feat: implement the very long",
		},
		{
			name: "reasoning block removed",
			raw:  "<think>\nThe diff fixes a typo.\n</think>\nfix: correct typo in help",
			opts: CleanOptions{Type: "fix"},
			want: "fix: correct typo in help",
		},
		{
			name: "empty",
			raw:  "  \n```\n```",
			opts: CleanOptions{Type: "feat"},
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanMessage(tt.raw, tt.opts); got != tt.want {
				t.Errorf("CleanMessage() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrimSubject(t *testing.T) {
	if got := trimSubject("short", 72); got != "short" {
		t.Errorf("trimSubject(short) = %q", got)
	}
	if got := trimSubject("feat: 添加用户认证功能和会话管理", 10); got != "feat: 添加用户" {
		t.Errorf("trimSubject(cjk) = %q", got)
	}
}
