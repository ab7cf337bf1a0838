package domain

type Role string

const (
	RoleStudent   Role = "Student"
	RoleFaculty   Role = "Faculty"
	RoleLibrarian Role = "Librarian"
)

// Roles lists every role in the order menus present them.
var Roles = []Role{RoleStudent, RoleFaculty, RoleLibrarian}

func (r Role) String() string {
	return string(r)
}
