package release

import (
	"fmt"
	"io"
	"strings"
	"text/template"
)

var formulaTemplate = template.Must(template.New("formula").Funcs(template.FuncMap{
	"indent": indent,
}).Parse(`class {{.Class}} < Formula
  desc "{{.Desc}}"
  homepage "{{.Homepage}}"
  version "{{.Version}}"
{{range .Blocks}}
  {{.Keyword}} do
    if Hardware::CPU.arm?
      url "{{.ARM.URL}}"
      sha256 "{{.ARM.SHA256}}"
    else
      url "{{.Other.URL}}"
      sha256 "{{.Other.SHA256}}"
    end
  end
{{end}}{{if .DependsOn}}
{{range .DependsOn}}  depends_on "{{.}}"
{{end}}{{end}}
  def install
    bin.install Dir["{{.Binary}}-*"].first => "{{.Binary}}"
  end

  test do
    assert_match "{{.TestContains}}", shell_output("#{bin}/{{.Binary}} {{.TestArgs}}")
  end
{{if .Caveats}}
  def caveats
    <<~EOS
{{indent 6 .Caveats}}    EOS
  end
{{end}}end
`))

type formulaBlock struct {
	Keyword string
	ARM     Artifact
	Other   Artifact
}

type formulaData struct {
	Class        string
	Desc         string
	Homepage     string
	Version      string
	Blocks       []formulaBlock
	DependsOn    []string
	Binary       string
	TestContains string
	TestArgs     string
	Caveats      string
}

// RenderFormula writes a Homebrew formula equivalent to the manifest.
// Every supported OS must have both an ARM and a non-ARM artifact.
func (m *Manifest) RenderFormula(w io.Writer) error {
	if err := m.Validate(); err != nil {
		return err
	}

	data := formulaData{
		Class:        className(m.Name),
		Desc:         rubyEscape(m.Description),
		Homepage:     m.Homepage,
		Version:      strings.TrimPrefix(m.Version, "v"),
		DependsOn:    m.DependsOn,
		Binary:       m.Name,
		TestContains: rubyEscape(m.Test.Contains),
		TestArgs:     strings.Join(m.Test.Args, " "),
		Caveats:      m.Caveats,
	}

	for _, target := range []struct{ goos, keyword string }{
		{"darwin", "on_macos"},
		{"linux", "on_linux"},
	} {
		armArt, armErr := m.Lookup(Platform{OS: target.goos, ARM: true})
		other, otherErr := m.Lookup(Platform{OS: target.goos, ARM: false})
		if armErr != nil && otherErr != nil {
			continue
		}
		if armErr != nil || otherErr != nil {
			return fmt.Errorf("render formula: %s needs both arm and non-arm artifacts", target.goos)
		}
		data.Blocks = append(data.Blocks, formulaBlock{Keyword: target.keyword, ARM: armArt, Other: other})
	}

	if err := formulaTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("render formula: %w", err)
	}
	return nil
}

// className converts a package name to a Ruby class name (gitai -> Gitai,
// my-tool -> MyTool).
func className(name string) string {
	var b strings.Builder
	for _, part := range strings.FieldsFunc(name, func(r rune) bool { return r == '-' || r == '_' }) {
		b.WriteString(strings.ToUpper(part[:1]))
		b.WriteString(part[1:])
	}
	return b.String()
}

func rubyEscape(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(strings.TrimRight(s, "\n"), "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n") + "\n"
}
