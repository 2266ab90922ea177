// Package console renders a dashboard View and notices as plain text.
package console

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/learnboard/learnboard/dashboard"
)

// Console writes to an io.Writer. It implements both dashboard.Renderer and
// dashboard.Notifier.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

func New(out io.Writer) *Console {
	return &Console{out: out}
}

func (c *Console) Notify(n dashboard.Notice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	marker := "+"
	if n.Kind == dashboard.NoticeError {
		marker = "!"
	}
	fmt.Fprintf(c.out, "[%s] %s\n", marker, n.Message)
}

func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintln(c.out, strings.Repeat("-", 40))
}

func (c *Console) Render(v dashboard.View) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	defer w.Flush()

	for _, card := range v.Cards {
		fmt.Fprintf(w, "== %s ==\n", card.Title)
		for _, item := range card.Items {
			fmt.Fprintf(w, "%s:\t%s\n", item.Label, item.Value)
		}
		fmt.Fprintln(w)
	}

	for _, chart := range []dashboard.Chart{v.Skills, v.Audits} {
		fmt.Fprintf(w, "== %s ==\n", chart.Title)
		for i, label := range chart.Labels {
			fmt.Fprintf(w, "%s\t%d\n", label, chart.Values[i])
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "== %s ==\n", v.Progress.Title)
	fmt.Fprintln(w, strings.Join(v.Progress.Headers, "\t"))
	for _, row := range v.Progress.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", row.Path, row.XP, row.Grade)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "== %s ==\n", v.AuditLog.Title)
	fmt.Fprintln(w, strings.Join(v.AuditLog.Headers, "\t"))
	for _, row := range v.AuditLog.Rows {
		fmt.Fprintf(w, "%s\t%s\t%s\n", row.Date, row.Result, formatMembers(row.Members))
	}
}

// formatMembers joins logins, starring the captain.
func formatMembers(members []dashboard.Member) string {
	logins := make([]string, 0, len(members))
	for _, m := range members {
		if m.Captain {
			logins = append(logins, m.Login+"*")
		} else {
			logins = append(logins, m.Login)
		}
	}
	return strings.Join(logins, ", ")
}
