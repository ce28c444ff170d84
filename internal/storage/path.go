package storage

import "strings"

// Path addresses a document: collection/id[/collection/id...].
type Path string

// Collection names of the persisted layout.
const (
	Groups      = "groups"
	Members     = "members"
	Assignments = "assignments"
	Users       = "users"
)

// ValidID reports whether id can be used as one path segment.
func ValidID(id string) bool {
	return id != "" && !strings.Contains(id, "/")
}

// Doc joins segments into a document path.
func Doc(segments ...string) Path {
	return Path(strings.Join(segments, "/"))
}

// GroupPath is groups/{groupID}.
func GroupPath(groupID string) Path {
	return Doc(Groups, groupID)
}

// MemberPath is groups/{groupID}/members/{userID}.
func MemberPath(groupID, userID string) Path {
	return Doc(Groups, groupID, Members, userID)
}

// AssignmentPath is groups/{groupID}/assignments/{giverID}.
func AssignmentPath(groupID, giverID string) Path {
	return Doc(Groups, groupID, Assignments, giverID)
}

// UserPath is users/{userID}.
func UserPath(userID string) Path {
	return Doc(Users, userID)
}

// Valid reports whether p has an even, non-zero number of non-empty segments.
func (p Path) Valid() bool {
	segs := strings.Split(string(p), "/")
	if len(segs) == 0 || len(segs)%2 != 0 {
		return false
	}
	for _, s := range segs {
		if s == "" {
			return false
		}
	}
	return true
}

// ID is the last segment.
func (p Path) ID() string {
	s := string(p)
	return s[strings.LastIndex(s, "/")+1:]
}

// Parent is the collection path holding the document (groups/g1/members).
func (p Path) Parent() string {
	s := string(p)
	i := strings.LastIndex(s, "/")
	if i < 0 {
		return ""
	}
	return s[:i]
}

// Collection is the name of the collection holding the document.
func (p Path) Collection() string {
	parent := p.Parent()
	return parent[strings.LastIndex(parent, "/")+1:]
}

// Owner is the document owning the collection, or "" for top-level
// documents. groups/g1/members/u1 is owned by groups/g1.
func (p Path) Owner() Path {
	parent := p.Parent()
	i := strings.LastIndex(parent, "/")
	if i < 0 {
		return ""
	}
	return Path(parent[:i])
}

func (p Path) String() string {
	return string(p)
}
