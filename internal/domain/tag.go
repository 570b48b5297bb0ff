package domain

import "time"

// Tag is a named label that can be attached to many sets.
type Tag struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Sets      []SetRef  `json:"sets" db:"-"` // Derived from sets_tags
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// SetRef is the projection of a set attached to a tag.
type SetRef struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// TagForm holds the user-supplied values for creating or updating a tag.
type TagForm struct {
	Name   string   `json:"name"`
	SetIDs []string `json:"setIds,omitempty"`
}

// Form projects the tag down to its form values; linked sets become identifiers.
func (t *Tag) Form() TagForm {
	ids := make([]string, len(t.Sets))
	for i, s := range t.Sets {
		ids[i] = s.ID
	}
	return TagForm{Name: t.Name, SetIDs: ids}
}

// SetNames returns the names of the sets linked to the tag.
func (t *Tag) SetNames() []string {
	names := make([]string, len(t.Sets))
	for i, s := range t.Sets {
		names[i] = s.Name
	}
	return names
}
