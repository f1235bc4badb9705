package security

type Context struct {
	Token    string   `json:"-"`
	Identity Identity `json:"identity"`
}

type Identity struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DisplayName falls back to the id when no name was supplied.
func (i Identity) DisplayName() string {
	if i.Name != "" {
		return i.Name
	}
	return i.ID
}
