package auth

import "strings"

// StaticDirectory answers identity questions from configured id lists.
// Admins are not implicitly staff.
type StaticDirectory struct {
	staff  map[string]struct{}
	admins map[string]struct{}
}

// NewStaticDirectory builds a directory; blank ids are ignored.
func NewStaticDirectory(staffIDs, adminIDs []string) *StaticDirectory {
	return &StaticDirectory{staff: toSet(staffIDs), admins: toSet(adminIDs)}
}

// IsStaff reports whether userID may act as support staff.
func (d *StaticDirectory) IsStaff(userID string) bool {
	_, ok := d.staff[userID]
	return ok
}

// HasAdmin reports whether userID holds administrator permissions.
func (d *StaticDirectory) HasAdmin(userID string) bool {
	_, ok := d.admins[userID]
	return ok
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			set[id] = struct{}{}
		}
	}
	return set
}
