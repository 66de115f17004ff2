// Package schema holds the field schemas for each bulk-importable record
// type. Schemas are plain values handed to the core validation engine;
// adding a record type means adding a file here, not touching the engine.
package schema

import (
	"strings"

	"github.com/eventops/portal/internal/core"
)

// Person is the field schema for roster records.
//
// The published spreadsheet header row is, in order:
// fullName, email, phone, role, subteam, school, grade, company.
// All eight headers must be present; `role` admits only the roles allowed
// through import (admin is excluded). Subteam is required when role is
// staff, enforced as a cross-field rule.
var Person = core.Schema[core.Person]{
	Entity: "person",
	Fields: []core.FieldSpec{
		{Name: "fullName", Label: "Full name", Kind: core.FieldText, Required: true, MaxLen: 255},
		{Name: "email", Label: "Email", Kind: core.FieldEmail, Required: true, MaxLen: 255},
		{Name: "phone", Label: "Phone", Kind: core.FieldPhone, Required: true, MaxLen: 255},
		{Name: "role", Label: "Role", Kind: core.FieldEnum, Required: true,
			Enum: []string{string(core.RoleAttendee), string(core.RoleStaff)}},
		{Name: "subteam", Label: "Subteam", Kind: core.FieldEnum, Enum: core.Subteams},
		{Name: "school", Label: "School", Kind: core.FieldText, MaxLen: 255},
		{Name: "grade", Label: "Grade", Kind: core.FieldEnum, Enum: core.Grades},
		{Name: "company", Label: "Company", Kind: core.FieldText, MaxLen: 255},
	},
	Rules: []core.CrossRule{subteamRequiredForStaff},
	Bind: func(vals map[string]string) core.Person {
		return core.Person{
			FullName: vals["fullName"],
			Email:    vals["email"],
			Phone:    vals["phone"],
			Role:     core.Role(vals["role"]),
			Subteam:  vals["subteam"],
			School:   vals["school"],
			Grade:    vals["grade"],
			Company:  vals["company"],
		}
	},
}

// subteamRequiredForStaff enforces the role-conditional requirement:
// staff must name a subteam. The message matches the required-stage shape
// so callers see one consistent vocabulary.
func subteamRequiredForStaff(vals map[string]string) []string {
	// Runs before enum canonicalization, so match the role loosely.
	if strings.EqualFold(vals["role"], string(core.RoleStaff)) && vals["subteam"] == "" {
		return []string{"Subteam is required"}
	}
	return nil
}
