package domain

// Owner identifies whose cart an operation works on. A signed-in user takes
// precedence over the anonymous session.
type Owner struct {
	UserID        string
	SessionCartID string
}

// Key is the cart store key for the owner, or "" when neither id is known.
func (o Owner) Key() string {
	switch {
	case o.UserID != "":
		return "user:" + o.UserID
	case o.SessionCartID != "":
		return "session:" + o.SessionCartID
	default:
		return ""
	}
}

func (o Owner) Authenticated() bool { return o.UserID != "" }
