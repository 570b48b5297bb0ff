package domain

import "time"

// Set is a named collection of aspects.
// Aspects are stored in a separate table and keep their input order.
type Set struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Aspects   []Aspect  `json:"aspects" db:"-"`
	Tags      []TagRef  `json:"tags,omitempty" db:"-"` // Derived from sets_tags; only filled by listings
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// Aspect is a named, ordered list of values owned by exactly one set.
type Aspect struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// TagRef is the projection of a tag attached to a set.
type TagRef struct {
	ID   string `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// SetForm holds the user-supplied values for creating or updating a set.
type SetForm struct {
	Name    string   `json:"name"`
	Aspects []Aspect `json:"aspects"`
}

// Form projects the set down to its form values.
func (s *Set) Form() SetForm {
	aspects := make([]Aspect, len(s.Aspects))
	for i, a := range s.Aspects {
		aspects[i] = Aspect{Name: a.Name, Values: append([]string(nil), a.Values...)}
	}
	return SetForm{Name: s.Name, Aspects: aspects}
}

// AspectNames returns the names of the set's aspects in order.
func (s *Set) AspectNames() []string {
	names := make([]string, len(s.Aspects))
	for i, a := range s.Aspects {
		names[i] = a.Name
	}
	return names
}

// TagNames returns the names of the tags attached to the set.
func (s *Set) TagNames() []string {
	names := make([]string, len(s.Tags))
	for i, t := range s.Tags {
		names[i] = t.Name
	}
	return names
}
