package session

import "encoding/json"

// User is the identity record of the signed-in account.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	Username      string `json:"username"`
	FullName      string `json:"full_name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

// UnmarshalJSON also accepts the camelCase spellings some endpoints use, and
// numeric ids.
func (u *User) UnmarshalJSON(b []byte) error {
	type plain User
	var aux struct {
		plain
		ID                 json.RawMessage `json:"id"`
		FullNameCamel      *string         `json:"fullName"`
		AvatarURLCamel     *string         `json:"avatarUrl"`
		EmailVerifiedCamel *bool           `json:"emailVerified"`
	}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}

	*u = User(aux.plain)
	u.ID = rawID(aux.ID)
	if u.FullName == "" && aux.FullNameCamel != nil {
		u.FullName = *aux.FullNameCamel
	}
	if u.AvatarURL == "" && aux.AvatarURLCamel != nil {
		u.AvatarURL = *aux.AvatarURLCamel
	}
	if aux.EmailVerifiedCamel != nil && *aux.EmailVerifiedCamel {
		u.EmailVerified = true
	}
	return nil
}

func rawID(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
