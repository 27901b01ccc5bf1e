package domain

// DefaultColor is used for members without a colour and for unknown names.
const DefaultColor = "#3174ad"

// Unassigned is stored when an event or todo has no member.
const Unassigned = "Unassigned"

// Member is reference data; Name is the key events and todos link by.
type Member struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color,omitempty"`
}

// MemberColors indexes member colours by name.
func MemberColors(members []Member) map[string]string {
	colors := make(map[string]string, len(members))
	for _, m := range members {
		if m.Color == "" {
			colors[m.Name] = DefaultColor
			continue
		}
		colors[m.Name] = m.Color
	}
	return colors
}

// DefaultVisibility marks every member visible on the calendar.
func DefaultVisibility(members []Member) map[string]bool {
	visible := make(map[string]bool, len(members))
	for _, m := range members {
		visible[m.Name] = true
	}
	return visible
}

func orUnassigned(name string) string {
	if name == "" {
		return Unassigned
	}
	return name
}
