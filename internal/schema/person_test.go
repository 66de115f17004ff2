package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventops/portal/internal/core"
)

func personTable(rows ...[]string) *core.Table {
	return &core.Table{Headers: Person.Headers(), Rows: rows}
}

func TestPersonHeaders(t *testing.T) {
	assert.Equal(t,
		[]string{"fullName", "email", "phone", "role", "subteam", "school", "grade", "company"},
		Person.Headers())
}

func TestPerson_ValidStaffRow(t *testing.T) {
	res := core.ValidateTable(Person, personTable(
		[]string{"Jane Doe", "jane@x.com", "5551234567", "staff", "operations", "", "", "Acme"},
	))

	assert.Empty(t, res.Errors)
	require.Len(t, res.Accepted, 1)
	p := res.Accepted[0]
	assert.Equal(t, "Jane Doe", p.FullName)
	assert.Equal(t, core.RoleStaff, p.Role)
	assert.Equal(t, "operations", p.Subteam)
}

func TestPerson_StaffWithoutSubteam(t *testing.T) {
	res := core.ValidateTable(Person, personTable(
		[]string{"Jane Doe", "jane@x.com", "5551234567", "staff", "", "", "", ""},
	))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "errors for row 1: Subteam is required", res.Errors[0].Error())
	assert.Empty(t, res.Accepted)
}

func TestPerson_StaffWithoutSubteam_MixedRoleCasing(t *testing.T) {
	// The cross-field rule sees raw cell values; "Staff" must still
	// trigger it.
	res := core.ValidateTable(Person, personTable(
		[]string{"Jane Doe", "jane@x.com", "5551234567", "Staff", "", "", "", ""},
	))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "errors for row 1: Subteam is required", res.Errors[0].Error())
}

func TestPerson_BadEmailAndPhoneAggregated(t *testing.T) {
	res := core.ValidateTable(Person, personTable(
		[]string{"Jane Doe", "not-an-email", "555", "staff", "operations", "", "", ""},
	))

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "errors for row 1: Invalid email address, Invalid phone number", res.Errors[0].Error())
}

func TestPerson_AttendeeNeedsNoSubteam(t *testing.T) {
	res := core.ValidateTable(Person, personTable(
		[]string{"Bob Roe", "bob@x.com", "5551234567", "attendee", "", "Springfield High", "junior", ""},
	))

	assert.Empty(t, res.Errors)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, core.RoleAttendee, res.Accepted[0].Role)
	assert.Equal(t, "junior", res.Accepted[0].Grade)
}

func TestPerson_AdminRoleRejected(t *testing.T) {
	// Admins are provisioned out of band; the import path refuses them.
	res := core.ValidateTable(Person, personTable(
		[]string{"Eve Admin", "eve@x.com", "5551234567", "admin", "", "", "", ""},
	))

	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0].Messages[0], "Role must be one of:")
}

func TestPerson_RoleAndEnumCanonicalized(t *testing.T) {
	res := core.ValidateTable(Person, personTable(
		[]string{"Jane Doe", "jane@x.com", "5551234567", "STAFF", "Operations", "", "", ""},
	))

	require.Len(t, res.Accepted, 1)
	assert.Equal(t, core.RoleStaff, res.Accepted[0].Role)
	assert.Equal(t, "operations", res.Accepted[0].Subteam)
}

func TestRoomHeaders(t *testing.T) {
	assert.Equal(t, []string{"name", "building", "capacity", "qrCode"}, Room.Headers())
}

func TestRoom_ValidRow(t *testing.T) {
	res := core.ValidateTable(Room, &core.Table{
		Headers: Room.Headers(),
		Rows:    [][]string{{"Auditorium", "Main Hall", "300", "QR-AUD-1"}},
	})

	assert.Empty(t, res.Errors)
	require.Len(t, res.Accepted, 1)
	assert.Equal(t, 300, res.Accepted[0].Capacity)
}

func TestRoom_NonNumericCapacity(t *testing.T) {
	res := core.ValidateTable(Room, &core.Table{
		Headers: Room.Headers(),
		Rows:    [][]string{{"Auditorium", "Main Hall", "lots", ""}},
	})

	require.Len(t, res.Errors, 1)
	assert.Equal(t, "errors for row 1: Capacity must be a number", res.Errors[0].Error())
}
