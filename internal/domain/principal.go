package domain

// Principal is the authenticated caller as asserted by the identity
// provider's session token. It is trusted verbatim.
type Principal struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// ToUser maps the principal's claims onto a user row for upserting.
func (p Principal) ToUser() *User {
	u := &User{ExternalID: p.Subject, Email: p.Email, Name: p.Name}
	if p.Picture != "" {
		picture := p.Picture
		u.PictureURL = &picture
	}
	return u
}
