package dashboard

import (
	"sort"
	"strings"
)

const (
	// SkillPrefix is stripped from skill transaction types.
	SkillPrefix = "skill_"
	// MaxSkills caps SkillAggregate.
	MaxSkills = 15

	piscineMarker = "piscine"
)

// IsPiscine reports whether an XP path belongs to a piscine.
func IsPiscine(path string) bool {
	return strings.Contains(path, piscineMarker)
}

func TotalXP(xps []XpEvent) int64 {
	var sum int64
	for _, xp := range xps {
		sum += xp.Amount
	}
	return sum
}

func PiscineXP(xps []XpEvent) int64 {
	var sum int64
	for _, xp := range xps {
		if IsPiscine(xp.Path) {
			sum += xp.Amount
		}
	}
	return sum
}

// ProjectXP is every event PiscineXP leaves out, so the two always add up to
// TotalXP.
func ProjectXP(xps []XpEvent) int64 {
	var sum int64
	for _, xp := range xps {
		if !IsPiscine(xp.Path) {
			sum += xp.Amount
		}
	}
	return sum
}

// XPForPath sums the events whose path equals path exactly.
func XPForPath(xps []XpEvent, path string) int64 {
	var sum int64
	for _, xp := range xps {
		if xp.Path == path {
			sum += xp.Amount
		}
	}
	return sum
}

type Skill struct {
	Name   string `json:"name"`
	Amount int64  `json:"amount"`
}

// SkillAggregate sums transaction amounts per skill, sorted by descending
// total and truncated to MaxSkills. Equal totals keep first-seen order.
func SkillAggregate(transactions []Transaction) []Skill {
	index := make(map[string]int)
	skills := make([]Skill, 0)
	for _, tx := range transactions {
		name := strings.TrimPrefix(tx.Type, SkillPrefix)
		i, ok := index[name]
		if !ok {
			i = len(skills)
			index[name] = i
			skills = append(skills, Skill{Name: name})
		}
		skills[i].Amount += tx.Amount
	}

	sort.SliceStable(skills, func(i, j int) bool {
		return skills[i].Amount > skills[j].Amount
	})
	if len(skills) > MaxSkills {
		skills = skills[:MaxSkills]
	}
	return skills
}

type AuditSummary struct {
	Pass int `json:"pass"`
	Fail int `json:"fail"`
}

func (s AuditSummary) Total() int {
	return s.Pass + s.Fail
}

func AuditPassFail(audits []Audit) AuditSummary {
	var s AuditSummary
	for _, a := range audits {
		if a.Passed() {
			s.Pass++
		} else {
			s.Fail++
		}
	}
	return s
}
