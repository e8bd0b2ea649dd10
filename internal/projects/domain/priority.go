package domain

import "time"

// statusWeights ranks how urgently each sales status needs attention.
var statusWeights = map[ProjectStatus]int{
	StatusConfirmed:  40,
	StatusTentativeA: 30,
	StatusTentativeB: 20,
	StatusLead:       10,
	StatusRejected:   0,
}

// PriorityScore ranks a project for work queues: bigger orders, imminent or
// overdue start dates, and firmer sales statuses score higher. workStart is
// the scheduled construction start, when one exists.
func PriorityScore(p Project, workStart time.Time, hasWorkStart bool, today time.Time) int {
	score := 0

	// 10 points per million yen of order value.
	if p.OrderAmount > 0 {
		score += int(p.OrderAmount/1_000_000) * 10
	}

	if hasWorkStart {
		daysUntilStart := int(dateOnly(workStart).Sub(dateOnly(today)).Hours() / 24)
		switch {
		case daysUntilStart < 0:
			score += 100
		case daysUntilStart <= 3:
			score += 50
		case daysUntilStart <= 7:
			score += 30
		case daysUntilStart <= 14:
			score += 10
		}
	}

	score += statusWeights[p.Status]

	// A project blocked on sign-off needs a decision before anything else.
	if p.ApprovalPending {
		score += 20
	}
	return score
}
