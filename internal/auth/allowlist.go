package auth

// AllowList is the fixed set of administrator telegram ids
type AllowList struct {
	ids []int64
	set map[int64]struct{}
}

func NewAllowList(ids []int64) *AllowList {
	a := &AllowList{set: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		if _, dup := a.set[id]; dup {
			continue
		}
		a.set[id] = struct{}{}
		a.ids = append(a.ids, id)
	}
	return a
}

// IsAdministrator reports whether userID is on the list
func (a *AllowList) IsAdministrator(userID int64) bool {
	_, ok := a.set[userID]
	return ok
}

// Administrators returns the ids in configuration order
func (a *AllowList) Administrators() []int64 {
	out := make([]int64, len(a.ids))
	copy(out, a.ids)
	return out
}
