package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/logmoments/internal/client/models"
	"github.com/dmitrijs2005/logmoments/internal/client/services"
	"github.com/dustin/go-humanize"
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	styleOK      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleWarn    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleError   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	styleDim     = lipgloss.NewStyle().Faint(true)
	styleOnline  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	styleOffline = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	styleLabel   = lipgloss.NewStyle().Bold(true).Width(14)
	styleCard    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func humanTime(t, now time.Time) string {
	return humanize.RelTime(t, now, "ago", "from now")
}

func plural(n int, word string) string {
	if n == 1 {
		return "1 " + word
	}
	return humanize.Comma(int64(n)) + " " + word + "s"
}

func statusBadge(s models.SyncStatus) string {
	switch s {
	case models.StatusSynced:
		return styleOK.Render("synced")
	case models.StatusError:
		return styleError.Render("error")
	default:
		return styleWarn.Render("pending")
	}
}

// firstLine shortens content to one line of at most n runes.
func firstLine(s string, n int) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i] + " ..."
	}
	r := []rune(s)
	if len(r) > n {
		return string(r[:n-1]) + "…"
	}
	return s
}

func renderTimeline(list []*models.Moment, now time.Time) string {
	if len(list) == 0 {
		return styleDim.Render("No moments yet. Use 'add' to capture one.")
	}
	var b strings.Builder
	for _, m := range list {
		fmt.Fprintf(&b, "%4d  %-14s %-10s %s  %s\n",
			m.ID, humanTime(m.CreatedAt, now), m.Feeling, statusBadge(m.Status), firstLine(m.Content, 48))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderMoment(m *models.Moment, now time.Time) string {
	rows := [][2]string{
		{"Id", fmt.Sprint(m.ID)},
		{"Captured", m.CreatedAt.Local().Format(time.DateTime) + " (" + humanTime(m.CreatedAt, now) + ")"},
		{"Feeling", m.Feeling},
		{"Status", statusBadge(m.Status)},
	}
	if m.HasServerID() {
		rows = append(rows, [2]string{"Server id", *m.ServerID})
	}
	if len(m.Photo) > 0 {
		rows = append(rows, [2]string{"Photo", humanize.Bytes(uint64(len(m.Photo)))})
	} else if m.PhotoKey != nil {
		rows = append(rows, [2]string{"Photo", *m.PhotoKey})
	}
	if m.LastSyncAttempt != nil {
		rows = append(rows, [2]string{"Last attempt", humanTime(*m.LastSyncAttempt, now)})
	}
	return styleCard.Render(m.Content + "\n\n" + renderKV(rows))
}

func renderKV(rows [][2]string) string {
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		lines = append(lines, styleLabel.Render(r[0])+r[1])
	}
	return strings.Join(lines, "\n")
}

func renderCaptured(res services.CaptureResult) string {
	if res.Staged {
		return styleWarn.Render("Moment saved to the staging area (" + res.OfflineID + "); it will be imported when storage is back")
	}
	msg := styleOK.Render(fmt.Sprintf("Moment %d captured, feeling %s", res.Moment.ID, res.Moment.Feeling))
	if res.Sync != nil {
		msg += "\n" + renderSyncResult(*res.Sync)
	}
	return msg
}

func renderSyncResult(r models.SyncResult) string {
	if r.Reason != nil {
		return styleWarn.Render(r.String())
	}
	if r.ErrorCount > 0 {
		return styleWarn.Render(r.String())
	}
	return styleOK.Render(r.String())
}

func renderInsights(in services.Insights) string {
	rows := [][2]string{
		{"Moments", humanize.Comma(int64(in.Total))},
		{"Last 7 days", humanize.Comma(int64(in.LastWeek))},
	}
	if in.TopMood != "" {
		rows = append(rows, [2]string{"Top mood", in.TopMood})
	}
	moods := make([]string, 0, len(in.Moods))
	for k := range in.Moods {
		moods = append(moods, k)
	}
	sort.Slice(moods, func(i, j int) bool {
		if in.Moods[moods[i]] != in.Moods[moods[j]] {
			return in.Moods[moods[i]] > in.Moods[moods[j]]
		}
		return moods[i] < moods[j]
	})
	for _, k := range moods {
		rows = append(rows, [2]string{"  " + k, fmt.Sprint(in.Moods[k])})
	}
	return renderKV(rows)
}
