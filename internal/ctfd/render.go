package ctfd

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// MaxMessageLength is Discord's content limit.
const MaxMessageLength = 2000

// RenderOptions controls the leaderboard block.
type RenderOptions struct {
	Domain     string
	Size       int      // standings rows shown
	InProgress []string // open forum thread names
	Now        time.Time
}

var printer = message.NewPrinter(language.English)

// Render formats a snapshot as Discord message content.
func Render(snap *Snapshot, opts RenderOptions) string {
	if opts.Size <= 0 {
		opts.Size = 10
	}
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}

	head := fmt.Sprintf("🏆 **CTF Leaderboard** · %s\n", displayHost(opts.Domain))
	rows := standingRows(snap.Standings, opts.Size)

	var tail strings.Builder
	if len(snap.Challenges) > 0 {
		solved, total, byCategory := progress(snap.Challenges)
		fmt.Fprintf(&tail, "**Solved:** %d/%d\n", solved, total)
		tail.WriteString(strings.Join(byCategory, " · "))
		tail.WriteString("\n")
	}
	if open := inProgress(opts.InProgress, snap.Challenges); len(open) > 0 {
		tail.WriteString("**In progress:**\n")
		for _, name := range open {
			fmt.Fprintf(&tail, "• %s\n", name)
		}
	}
	fmt.Fprintf(&tail, "_Updated <t:%d:R>_", opts.Now.Unix())

	// The code block always closes: standings rows go first, then the tail is cut.
	block := codeBlock(rows)
	for len(rows) > 1 && utf8.RuneCountInString(head+block) > MaxMessageLength {
		rows = rows[:len(rows)-1]
		block = codeBlock(rows)
	}
	budget := MaxMessageLength - utf8.RuneCountInString(head+block)
	if budget <= 0 {
		return truncate(head, MaxMessageLength-utf8.RuneCountInString(block)) + block
	}
	return head + block + truncate(tail.String(), budget)
}

// standingRows renders the header line and up to size team rows.
func standingRows(standings []Standing, size int) []string {
	if len(standings) == 0 {
		return []string{"No scores yet"}
	}
	width := 4
	for i, s := range standings {
		if i == size {
			break
		}
		if n := utf8.RuneCountInString(s.Name); n > width {
			width = min(n, 24)
		}
	}
	rows := []string{fmt.Sprintf("%3s  %-*s  %s", "#", width, "Team", "Points")}
	for i, s := range standings {
		if i == size {
			break
		}
		pos := s.Pos
		if pos == 0 {
			pos = i + 1
		}
		rows = append(rows, fmt.Sprintf("%3d  %-*s  %s", pos, width, truncate(s.Name, 24), printer.Sprintf("%d", s.Score)))
	}
	return rows
}

func codeBlock(rows []string) string {
	return "```\n" + strings.Join(rows, "\n") + "\n```\n"
}

// progress counts solves overall and per category, categories sorted by name.
func progress(challenges []Challenge) (solved, total int, byCategory []string) {
	type tally struct{ solved, total int }
	cats := map[string]*tally{}
	for _, c := range challenges {
		name := c.Category
		if name == "" {
			name = "misc"
		}
		t, ok := cats[name]
		if !ok {
			t = &tally{}
			cats[name] = t
		}
		t.total++
		total++
		if c.SolvedByMe {
			t.solved++
			solved++
		}
	}

	names := make([]string, 0, len(cats))
	for name := range cats {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		byCategory = append(byCategory, fmt.Sprintf("%s %d/%d", name, cats[name].solved, cats[name].total))
	}
	return solved, total, byCategory
}

// inProgress keeps the thread names that do not mention a solved challenge.
func inProgress(threads []string, challenges []Challenge) []string {
	var solved []string
	for _, c := range challenges {
		if c.SolvedByMe && c.Name != "" {
			solved = append(solved, strings.ToLower(c.Name))
		}
	}

	var out []string
	for _, th := range threads {
		lower := strings.ToLower(th)
		done := false
		for _, name := range solved {
			if strings.Contains(lower, name) {
				done = true
				break
			}
		}
		if !done {
			out = append(out, th)
		}
	}
	return out
}

func displayHost(domain string) string {
	if u, err := url.Parse(domain); err == nil && u.Host != "" {
		return u.Host
	}
	return domain
}

// truncate cuts s to at most n runes, ending with an ellipsis when cut.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n-1]) + "…"
}
