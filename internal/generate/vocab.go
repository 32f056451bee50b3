package generate

import "github.com/sadopc/taskboard/internal/task"

// Vocabulary is the reference data every generated field is drawn from.
type Vocabulary struct {
	Assignees  []string
	Reporters  []string
	Labels     []string
	Components []string
	Titles     []string
	Sprints    []string
	Priorities []task.Priority
	Types      []task.Type
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Assignees: []string{
			"Alexander Johnson", "Maria Williams", "David Brown", "Anna Davis",
			"Sergey Miller", "Elena Wilson", "Ivan Moore", "Olga Taylor",
		},
		Reporters: []string{"Product Owner", "Scrum Master", "Tech Lead", "Project Manager"},
		Labels: []string{
			"frontend", "backend", "api", "database", "security",
			"performance", "ui/ux", "testing", "documentation", "refactoring",
		},
		Components: []string{
			"Authentication", "Dashboard", "API Gateway", "Payment System",
			"Notification Service", "Analytics", "Reports", "User Management",
		},
		Titles: []string{
			"Implement OAuth2 authentication",
			"Optimize database queries",
			"Add form validation",
			"Fix caching bug",
			"Create data table component",
			"Setup CI/CD pipeline",
			"Add unit tests",
			"Implement report export",
			"Improve API performance",
			"Add dark theme",
			"Implement task search",
			"Create analytics dashboard",
			"Fix security issues",
			"Add mobile device support",
			"Optimize image loading",
			"Implement notification system",
			"Add filters and sorting",
			"Create API documentation",
			"Fix bugs in payment system",
			"Implement integration with external services",
		},
		Sprints:    []string{"Sprint 1", "Sprint 2", "Sprint 3", "Sprint 4", "Sprint 5", "Sprint 6"},
		Priorities: append([]task.Priority(nil), task.Priorities...),
		Types:      append([]task.Type(nil), task.Types...),
	}
}
