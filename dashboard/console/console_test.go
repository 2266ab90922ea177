package console

import (
	"bytes"
	"testing"

	"github.com/learnboard/learnboard/dashboard"
	"github.com/stretchr/testify/assert"
)

func TestNotify(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Notify(dashboard.Notice{Kind: dashboard.NoticeSuccess, Message: "Login Successful"})
	c.Notify(dashboard.Notice{Kind: dashboard.NoticeError, Message: "invalid credentials"})

	assert.Equal(t, "[+] Login Successful\n[!] invalid credentials\n", buf.String())
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	c := New(&buf)

	c.Render(dashboard.View{
		Cards: []dashboard.Card{{Title: "Progress Overview", Items: []dashboard.Item{{Label: "Total XP", Value: "3.00 KB"}}}},
		Skills: dashboard.Chart{Title: "Skills Distribution", Labels: []string{"go"}, Values: []int64{25}},
		Audits: dashboard.Chart{Title: "Audit Distribution", Labels: []string{"Passes", "Fails"}, Values: []int64{3, 1}},
		Progress: dashboard.ProgressTable{
			Title:   "Progress History",
			Headers: []string{"Path", "XP", "Grade"},
			Rows:    []dashboard.ProgressRow{{Path: "/bh/div-01/a", XP: "1.00 KB", Grade: "1"}},
		},
		AuditLog: dashboard.AuditTable{
			Title:   "Recent Audits",
			Headers: []string{"Date", "Result", "Group Members"},
			Rows: []dashboard.AuditRow{{
				Date:    "Mar 5, 2024, 02:07 PM",
				Result:  "Pass",
				Members: []dashboard.Member{{Login: "bob", Captain: true}, {Login: "carol"}},
			}},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "== Progress Overview ==")
	assert.Contains(t, out, "Total XP:")
	assert.Contains(t, out, "3.00 KB")
	assert.Contains(t, out, "/bh/div-01/a")
	assert.Contains(t, out, "bob*, carol")
}
