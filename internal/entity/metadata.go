package entity

// Metadata is what a resolver found for a file. The Has* flags distinguish
// "not present" from an explicit empty value so resolvers can be chained.
type Metadata struct {
	Title          string
	Description    string
	Rotation       int
	HasTitle       bool
	HasDescription bool
	HasRotation    bool
}

// Merge fills fields missing from m with those present in other.
func (m Metadata) Merge(other Metadata) Metadata {
	if !m.HasTitle && other.HasTitle {
		m.Title, m.HasTitle = other.Title, true
	}
	if !m.HasDescription && other.HasDescription {
		m.Description, m.HasDescription = other.Description, true
	}
	if !m.HasRotation && other.HasRotation {
		m.Rotation, m.HasRotation = other.Rotation, true
	}
	return m
}

// Complete reports whether every field has been resolved.
func (m Metadata) Complete() bool {
	return m.HasTitle && m.HasDescription && m.HasRotation
}
