package entities

// TargetAudience narrows a send to a subset of a project's active subscribers.
// Populated dimensions are ANDed together; values within a dimension are ORed.
// An empty audience selects every active subscriber of the project.
type TargetAudience struct {
	Browsers   []string `json:"browsers,omitempty"`
	Countries  []string `json:"countries,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Attributes Values   `json:"attributes,omitempty"`
}

// IsEmpty reports whether no dimension is populated
func (a TargetAudience) IsEmpty() bool {
	return len(a.Browsers) == 0 && len(a.Countries) == 0 && len(a.Tags) == 0 && len(a.Attributes) == 0
}

// Matches reports whether an active subscriber falls inside the audience.
// Project membership and the active flag are not checked here.
func (a TargetAudience) Matches(s *Subscriber) bool {
	if len(a.Browsers) > 0 && !containsString(a.Browsers, s.Browser()) {
		return false
	}
	if len(a.Countries) > 0 && !containsString(a.Countries, s.Country()) {
		return false
	}
	if len(a.Tags) > 0 && !s.HasAnyTag(a.Tags) {
		return false
	}
	if len(a.Attributes) > 0 && !s.Attributes().Contains(a.Attributes) {
		return false
	}
	return true
}

// Clone returns a deep copy
func (a TargetAudience) Clone() TargetAudience {
	return TargetAudience{
		Browsers:   cloneStrings(a.Browsers),
		Countries:  cloneStrings(a.Countries),
		Tags:       cloneStrings(a.Tags),
		Attributes: a.Attributes.Clone(),
	}
}

func containsString(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
