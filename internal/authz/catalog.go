package authz

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Core platform permissions guarding the administrative API itself.
const (
	PermReadUser   = "read.user"
	PermManageUser = "manage.user"

	PermReadRole   = "read.role"
	PermManageRole = "manage.role"

	PermReadSettings   = "read.settings"
	PermManageSettings = "manage.settings"
)

// Actions lists the recognized verbs. The evaluator matches textually, so
// this vocabulary is advisory: it drives the catalog endpoint and seed data,
// not validation.
func Actions() []string {
	return []string{"create", "read", "update", "delete", "manage", "approve", "reject", "export", "import", "sync", "reset"}
}

// Subjects lists the recognized resource types of the rental ERP.
func Subjects() []string {
	return []string{
		"employee", "equipment", "rental", "project", "timesheet", "payroll",
		"leave", "advance", "customer", "company", "quotation", "invoice",
		"document", "report", "maintenance", "assignment", "dashboard",
		"user", "role", "settings",
	}
}

// CatalogEntry describes one subject with its display label and the actions
// that apply to it.
type CatalogEntry struct {
	Subject string   `json:"subject"`
	Label   string   `json:"label"`
	Actions []string `json:"actions"`
}

// Catalog returns the known action/subject vocabulary with human-readable
// labels for admin UIs.
func Catalog() []CatalogEntry {
	title := cases.Title(language.English)
	actions := Actions()
	entries := make([]CatalogEntry, 0, len(Subjects()))
	for _, subject := range Subjects() {
		entries = append(entries, CatalogEntry{
			Subject: subject,
			Label:   title.String(subject),
			Actions: actions,
		})
	}
	return entries
}
