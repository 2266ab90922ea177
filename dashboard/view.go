package dashboard

import (
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/learnboard/learnboard/util/common"
)

const dateLayout = "Jan 2, 2006, 03:04 PM"

// View is everything a renderer needs to draw the dashboard. It carries no
// markup.
type View struct {
	Cards    []Card        `json:"cards"`
	Skills   Chart         `json:"skills"`
	Audits   Chart         `json:"audits"`
	Progress ProgressTable `json:"progress"`
	AuditLog AuditTable    `json:"auditLog"`
}

type Card struct {
	Title string `json:"title"`
	Items []Item `json:"items"`
}

type Item struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

type ChartKind string

const (
	ChartRadar ChartKind = "radar"
	ChartPie   ChartKind = "pie"
)

type Chart struct {
	Kind   ChartKind `json:"kind"`
	Title  string    `json:"title"`
	Labels []string  `json:"labels"`
	Values []int64   `json:"values"`
}

type ProgressTable struct {
	Title   string        `json:"title"`
	Headers []string      `json:"headers"`
	Rows    []ProgressRow `json:"rows"`
}

type ProgressRow struct {
	Path  string `json:"path"`
	XP    string `json:"xp"`
	Grade string `json:"grade"`
}

type AuditTable struct {
	Title   string     `json:"title"`
	Headers []string   `json:"headers"`
	Rows    []AuditRow `json:"rows"`
}

type AuditRow struct {
	Date    string   `json:"date"`
	Result  string   `json:"result"`
	Passed  bool     `json:"passed"`
	Members []Member `json:"members"`
}

// Member is one login in an audit group; Captain marks the group captain.
type Member struct {
	Login   string `json:"login"`
	Captain bool   `json:"captain"`
}

// BuildView shapes a profile snapshot. Dates are shown in loc, or in the
// local zone when loc is nil.
func BuildView(p *UserProfile, loc *time.Location) View {
	if loc == nil {
		loc = time.Local
	}
	audits := AuditPassFail(p.Audits)

	view := View{
		Cards: []Card{
			{
				Title: "Basic Info",
				Items: []Item{
					{"Email", p.Email},
					{"Username", p.Login},
					{"Name", fmt.Sprintf("%s %s", p.FirstName, p.LastName)},
					{"Audits Ratio", formatRatio(p.AuditRatio)},
				},
			},
			{
				Title: "Progress Overview",
				Items: []Item{
					{"Total XP", common.HumanSize(TotalXP(p.Xps))},
					{"Piscine XP", common.HumanSize(PiscineXP(p.Xps))},
					{"Project XP", common.HumanSize(ProjectXP(p.Xps))},
				},
			},
			{
				Title: "Audit Stats",
				Items: []Item{
					{"Total Audits", strconv.Itoa(len(p.Audits))},
					{"Passes", strconv.Itoa(audits.Pass)},
					{"Fails", strconv.Itoa(audits.Fail)},
				},
			},
		},
		Skills: skillsChart(SkillAggregate(p.Transactions)),
		Audits: Chart{
			Kind:   ChartPie,
			Title:  "Audit Distribution",
			Labels: []string{"Passes", "Fails"},
			Values: []int64{int64(audits.Pass), int64(audits.Fail)},
		},
		Progress: ProgressTable{
			Title:   "Progress History",
			Headers: []string{"Path", "XP", "Grade"},
			Rows:    make([]ProgressRow, 0, len(p.Progresses)),
		},
		AuditLog: AuditTable{
			Title:   "Recent Audits",
			Headers: []string{"Date", "Result", "Group Members"},
			Rows:    make([]AuditRow, 0, len(p.Audits)),
		},
	}

	for _, pr := range p.Progresses {
		view.Progress.Rows = append(view.Progress.Rows, ProgressRow{
			Path:  pr.Path,
			XP:    common.HumanSize(XPForPath(p.Xps, pr.Path)),
			Grade: firstGrade(pr.Results),
		})
	}

	for _, a := range p.Audits {
		row := AuditRow{
			Result:  "Fail",
			Passed:  a.Passed(),
			Members: groupMembers(a.Group),
		}
		if row.Passed {
			row.Result = "Pass"
		}
		if a.AuditedAt != nil {
			row.Date = formatDate(*a.AuditedAt, loc)
		}
		view.AuditLog.Rows = append(view.AuditLog.Rows, row)
	}

	return view
}

func skillsChart(skills []Skill) Chart {
	c := Chart{
		Kind:   ChartRadar,
		Title:  "Skills Distribution",
		Labels: make([]string, 0, len(skills)),
		Values: make([]int64, 0, len(skills)),
	}
	for _, s := range skills {
		c.Labels = append(c.Labels, s.Name)
		c.Values = append(c.Values, s.Amount)
	}
	return c
}

// formatRatio rounds to two decimals without trailing zeros (1.2, not 1.20).
func formatRatio(r float64) string {
	return strconv.FormatFloat(math.Round(r*100)/100, 'f', -1, 64)
}

// firstGrade is the grade of the first result, "0" when there is none.
func firstGrade(results []ProgressResult) string {
	if len(results) == 0 || results[0].Grade == nil || *results[0].Grade == 0 {
		return "0"
	}
	return strconv.FormatFloat(*results[0].Grade, 'f', -1, 64)
}

func formatDate(raw string, loc *time.Location) string {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return raw
	}
	return t.In(loc).Format(dateLayout)
}

func groupMembers(g *AuditGroup) []Member {
	if g == nil {
		return nil
	}
	members := make([]Member, 0, len(g.Members))
	for _, m := range g.Members {
		members = append(members, Member{
			Login:   m.UserLogin,
			Captain: m.UserLogin == g.CaptainLogin,
		})
	}
	return members
}
