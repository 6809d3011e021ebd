package domain

import "encoding/json"

// Admin is the profile of the back-office staff member behind a console
// session. The commerce backend owns the canonical record; the console only
// carries it alongside the tokens.
type Admin struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// CredentialPair is the access/refresh token bundle plus the admin profile
// that together represent an authenticated console session. The three fields
// are a unit: the session store persists and hydrates them all-or-nothing.
type CredentialPair struct {
	AccessToken  string          `json:"access"`
	RefreshToken string          `json:"refresh"`
	Admin        json.RawMessage `json:"admin"`
}

// Complete reports whether all three fields of the pair are present.
// A partially hydrated pair is treated as absent.
func (p CredentialPair) Complete() bool {
	return p.AccessToken != "" && p.RefreshToken != "" && len(p.Admin) > 0
}

// Empty returns the zero credential pair used when no session exists.
func (p CredentialPair) Empty() bool {
	return p.AccessToken == "" && p.RefreshToken == "" && len(p.Admin) == 0
}

// Profile decodes the admin blob. The console never edits the profile, so
// keeping it opaque until a caller needs a field avoids coupling the session
// store to the backend's admin schema.
func (p CredentialPair) Profile() (Admin, error) {
	var a Admin
	if len(p.Admin) == 0 {
		return a, nil
	}
	err := json.Unmarshal(p.Admin, &a)
	return a, err
}
