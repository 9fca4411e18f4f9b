package git

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
)

// CommitStats aggregates a slice of history.
type CommitStats struct {
	TotalCommits      int            `json:"total_commits"`
	TypeDistribution  map[string]int `json:"type_distribution"`
	ScopeDistribution map[string]int `json:"scope_distribution"`
	AuthorStats       map[string]int `json:"author_stats"`
	AverageLength     int            `json:"average_length"`
	LongestSubject    string         `json:"longest_subject"`
	ShortestSubject   string         `json:"shortest_subject"`
	WithScope         int            `json:"with_scope"`
	WithBody          int            `json:"with_body"`
	WithTicket        int            `json:"with_ticket"`
	CommonVerbs       map[string]int `json:"common_verbs"`
	LanguageUsage     map[string]int `json:"language_usage"`
	TimeDistribution  map[string]int `json:"time_distribution"`
	DayDistribution   map[string]int `json:"day_distribution"`
	RecentTrends      *TrendAnalysis `json:"recent_trends,omitempty"`

	typeScopes map[string]map[string]int
}

// TrendAnalysis covers the 30 days before the analysis time.
type TrendAnalysis struct {
	Last30Days    int     `json:"last_30_days"`
	Last7Days     int     `json:"last_7_days"`
	MostActiveDay string  `json:"most_active_day"`
	AveragePerDay float64 `json:"average_per_day"`
}

// CommitPattern is a frequently used type with its most common scope.
type CommitPattern struct {
	Type      string
	Scope     string
	Frequency int
}

var (
	conventionalRe = regexp.MustCompile(`^(\w+)(?:\(([^)]+)\))?!?:\s*(.+)$`)
	ticketRe       = regexp.MustCompile(`\[[\w-]+\]|\b[A-Z][A-Z0-9]+-\d+\b|#\d+\b`)
	verbRe         = regexp.MustCompile(`^(?:\[[^\]]*\]\s*)?(\p{L}+)`)
)

var weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// AnalyzeHistory computes statistics for entries relative to now.
func AnalyzeHistory(entries []LogEntry, now time.Time) *CommitStats {
	stats := &CommitStats{
		TypeDistribution:  map[string]int{},
		ScopeDistribution: map[string]int{},
		AuthorStats:       map[string]int{},
		CommonVerbs:       map[string]int{},
		LanguageUsage:     map[string]int{},
		TimeDistribution:  map[string]int{},
		DayDistribution:   map[string]int{},
		typeScopes:        map[string]map[string]int{},
	}
	if len(entries) == 0 {
		return stats
	}

	stats.TotalCommits = len(entries)
	stats.ShortestSubject = entries[0].Subject

	totalLength := 0
	perDay := map[string]int{}
	for _, e := range entries {
		stats.AuthorStats[e.Author]++

		n := len([]rune(e.Subject))
		totalLength += n
		if n > len([]rune(stats.LongestSubject)) {
			stats.LongestSubject = e.Subject
		}
		if n < len([]rune(stats.ShortestSubject)) {
			stats.ShortestSubject = e.Subject
		}

		if !e.When.IsZero() {
			stats.TimeDistribution[fmt.Sprintf("%02d:00", e.When.Hour())]++
			stats.DayDistribution[e.When.Weekday().String()]++
			perDay[e.When.Format("2006-01-02")]++
		}

		if m := conventionalRe.FindStringSubmatch(e.Subject); m != nil {
			typ, scope, rest := m[1], m[2], m[3]
			stats.TypeDistribution[typ]++
			if scope != "" {
				stats.ScopeDistribution[scope]++
				stats.WithScope++
				if stats.typeScopes[typ] == nil {
					stats.typeScopes[typ] = map[string]int{}
				}
				stats.typeScopes[typ][scope]++
			}
			if v := verbRe.FindStringSubmatch(rest); v != nil {
				stats.CommonVerbs[strings.ToLower(v[1])]++
			}
		}

		if strings.TrimSpace(e.Body) != "" {
			stats.WithBody++
		}
		if ticketRe.MatchString(e.Subject) {
			stats.WithTicket++
		}
		stats.LanguageUsage[detectLanguage(e.Subject)]++
	}

	stats.AverageLength = totalLength / stats.TotalCommits
	stats.RecentTrends = analyzeTrends(perDay, now)
	return stats
}

func analyzeTrends(perDay map[string]int, now time.Time) *TrendAnalysis {
	trends := &TrendAnalysis{}
	cut30 := now.AddDate(0, 0, -30)
	cut7 := now.AddDate(0, 0, -7)

	best := 0
	for day, count := range perDay {
		date, err := time.ParseInLocation("2006-01-02", day, now.Location())
		if err != nil {
			continue
		}
		if date.After(cut30) {
			trends.Last30Days += count
		}
		if date.After(cut7) {
			trends.Last7Days += count
		}
		if count > best || (count == best && day > trends.MostActiveDay) {
			best = count
			trends.MostActiveDay = day
		}
	}
	trends.AveragePerDay = float64(trends.Last30Days) / 30.0
	return trends
}

// detectLanguage guesses the subject language from its script.
func detectLanguage(s string) string {
	for _, r := range s {
		switch {
		case r >= 0x3040 && r <= 0x30FF:
			return "ja"
		case r >= 0x4E00 && r <= 0x9FFF:
			return "zh"
		case r >= 0xAC00 && r <= 0xD7AF:
			return "ko"
		case r >= 0x0400 && r <= 0x04FF:
			return "ru"
		}
	}
	return "en"
}

// TopPatterns returns the n most used types, each with its most frequent
// scope.
func TopPatterns(stats *CommitStats, n int) []CommitPattern {
	var patterns []CommitPattern
	for _, kv := range sortByCount(stats.TypeDistribution) {
		if len(patterns) >= n {
			break
		}
		p := CommitPattern{Type: kv.Key, Frequency: kv.Value}
		if scopes := sortByCount(stats.typeScopes[kv.Key]); len(scopes) > 0 {
			p.Scope = scopes[0].Key
		}
		patterns = append(patterns, p)
	}
	return patterns
}

// FormatStatsReport renders stats for the terminal.
func FormatStatsReport(stats *CommitStats) string {
	var b strings.Builder
	total := float64(stats.TotalCommits)
	if total == 0 {
		total = 1
	}
	pct := func(n int) float64 { return float64(n) / total * 100 }

	b.WriteString("📊 Commit History Statistics\n")
	b.WriteString(strings.Repeat("=", 50) + "\n\n")

	b.WriteString("📈 Overview\n")
	fmt.Fprintf(&b, "  Total Commits: %d\n", stats.TotalCommits)
	fmt.Fprintf(&b, "  Average Subject Length: %d characters\n", stats.AverageLength)
	fmt.Fprintf(&b, "  With Scope: %d (%.1f%%)\n", stats.WithScope, pct(stats.WithScope))
	fmt.Fprintf(&b, "  With Body: %d (%.1f%%)\n", stats.WithBody, pct(stats.WithBody))
	fmt.Fprintf(&b, "  With Ticket: %d (%.1f%%)\n\n", stats.WithTicket, pct(stats.WithTicket))

	if len(stats.TypeDistribution) > 0 {
		b.WriteString("🏷️  Commit Types\n")
		for _, kv := range head(sortByCount(stats.TypeDistribution), 10) {
			p := pct(kv.Value)
			fmt.Fprintf(&b, "  %-12s %s %3d (%.1f%%)\n", kv.Key, bar(int(p), 20), kv.Value, p)
		}
		b.WriteString("\n")
	}

	if len(stats.ScopeDistribution) > 0 {
		b.WriteString("📦 Top Scopes\n")
		for _, kv := range head(sortByCount(stats.ScopeDistribution), 8) {
			p := float64(kv.Value) / float64(stats.WithScope) * 100
			fmt.Fprintf(&b, "  %-15s %s %3d\n", kv.Key, bar(int(p), 15), kv.Value)
		}
		b.WriteString("\n")
	}

	if len(stats.CommonVerbs) > 0 {
		b.WriteString("🔤 Common Action Verbs\n")
		for _, kv := range head(sortByCount(stats.CommonVerbs), 8) {
			fmt.Fprintf(&b, "  %-12s %3d\n", kv.Key, kv.Value)
		}
		b.WriteString("\n")
	}

	if len(stats.LanguageUsage) > 1 {
		b.WriteString("🌍 Language Usage\n")
		for _, kv := range sortByCount(stats.LanguageUsage) {
			p := pct(kv.Value)
			fmt.Fprintf(&b, "  %-10s %s %.1f%%\n", languageName(kv.Key), bar(int(p), 20), p)
		}
		b.WriteString("\n")
	}

	if len(stats.TimeDistribution) > 0 {
		b.WriteString("⏰ Commit Time Distribution\n")
		for _, kv := range head(sortByCount(stats.TimeDistribution), 5) {
			fmt.Fprintf(&b, "  %s  %s %d\n", kv.Key, bar(kv.Value*2, 15), kv.Value)
		}
		b.WriteString("\n")
	}

	if len(stats.DayDistribution) > 0 {
		b.WriteString("📅 Commit Day Distribution\n")
		busiest := 0
		for _, n := range stats.DayDistribution {
			if n > busiest {
				busiest = n
			}
		}
		for _, day := range weekdays {
			if n, ok := stats.DayDistribution[day]; ok {
				fmt.Fprintf(&b, "  %-10s %s %3d\n", day, bar(n*100/busiest, 20), n)
			}
		}
		b.WriteString("\n")
	}

	if t := stats.RecentTrends; t != nil {
		b.WriteString("📊 Recent Activity\n")
		fmt.Fprintf(&b, "  Last 30 days: %d commits (%.1f/day avg)\n", t.Last30Days, t.AveragePerDay)
		fmt.Fprintf(&b, "  Last 7 days:  %d commits\n", t.Last7Days)
		if t.MostActiveDay != "" {
			fmt.Fprintf(&b, "  Most active:  %s\n", t.MostActiveDay)
		}
		b.WriteString("\n")
	}

	if len(stats.AuthorStats) > 0 {
		b.WriteString("👥 Top Contributors\n")
		for _, kv := range head(sortByCount(stats.AuthorStats), 5) {
			p := pct(kv.Value)
			fmt.Fprintf(&b, "  %-25s %s %.1f%%\n", kv.Key, bar(int(p), 15), p)
		}
		b.WriteString("\n")
	}

	b.WriteString("📏 Extremes\n")
	fmt.Fprintf(&b, "  Longest:  %s\n", truncate(stats.LongestSubject, 60))
	fmt.Fprintf(&b, "  Shortest: %s\n", truncate(stats.ShortestSubject, 60))

	return b.String()
}

type keyCount struct {
	Key   string
	Value int
}

// sortByCount orders by descending count, then key.
func sortByCount(m map[string]int) []keyCount {
	list := make([]keyCount, 0, len(m))
	for k, v := range m {
		list = append(list, keyCount{k, v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].Value != list[j].Value {
			return list[i].Value > list[j].Value
		}
		return list[i].Key < list[j].Key
	})
	return list
}

func head(list []keyCount, n int) []keyCount {
	if len(list) > n {
		return list[:n]
	}
	return list
}

// bar draws a percent-filled gauge of width cells.
func bar(percent, width int) string {
	if percent > 100 {
		percent = 100
	}
	if percent < 0 {
		percent = 0
	}
	filled := percent * width / 100
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", width-filled) + "]"
}

func languageName(code string) string {
	names := map[string]string{
		"en": "English",
		"zh": "中文",
		"ja": "日本語",
		"ko": "한국어",
		"ru": "Русский",
	}
	if name, ok := names[code]; ok {
		return name
	}
	return code
}
