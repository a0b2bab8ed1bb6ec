package classify

// Durations holds seconds per category and per sub-tag for one agent-hour
type Durations struct {
	Available     int64 `json:"available"`
	Login         int64 `json:"login"`
	Logoff        int64 `json:"logoff"`
	DND           int64 `json:"dnd"`
	Productive    int64 `json:"productive"`
	NonProductive int64 `json:"non_productive"`

	Talk   int64 `json:"talk"`
	WrapUp int64 `json:"wrap_up"`
	Idle   int64 `json:"idle"`
	Hold   int64 `json:"hold"`

	Meeting  int64 `json:"meeting"`
	Training int64 `json:"training"`
	Chat     int64 `json:"chat"`
	Tickets  int64 `json:"tickets"`
	Outbound int64 `json:"outbound"`

	Lunch int64 `json:"lunch"`
	Tea   int64 `json:"tea"`
	Bio   int64 `json:"bio"`
	Short int64 `json:"short"`
	Other int64 `json:"other"`
}

// Add credits secs to the tag's category and sub-tag; false if the tag is unknown
func (d *Durations) Add(t Tag, secs int64) bool {
	cat := d.category(t.Category)
	if cat == nil {
		return false
	}
	var sub *int64
	if t.Sub != "" {
		if sub = d.sub(t.Sub); sub == nil {
			return false
		}
	}
	*cat += secs
	if sub != nil {
		*sub += secs
	}
	return true
}

// Total sums the six categories
func (d Durations) Total() int64 {
	return d.Available + d.Login + d.Logoff + d.DND + d.Productive + d.NonProductive
}

func (d *Durations) category(c Category) *int64 {
	switch c {
	case Available:
		return &d.Available
	case Login:
		return &d.Login
	case Logoff:
		return &d.Logoff
	case DND:
		return &d.DND
	case Productive:
		return &d.Productive
	case NonProductive:
		return &d.NonProductive
	}
	return nil
}

func (d *Durations) sub(s string) *int64 {
	switch s {
	case "talk":
		return &d.Talk
	case "wrap_up":
		return &d.WrapUp
	case "idle":
		return &d.Idle
	case "hold":
		return &d.Hold
	case "meeting":
		return &d.Meeting
	case "training":
		return &d.Training
	case "chat":
		return &d.Chat
	case "tickets":
		return &d.Tickets
	case "outbound":
		return &d.Outbound
	case "lunch":
		return &d.Lunch
	case "tea":
		return &d.Tea
	case "bio":
		return &d.Bio
	case "short":
		return &d.Short
	case "other":
		return &d.Other
	}
	return nil
}
