package models

import "strings"

// Principal is a verified identity handed over by the external identity
// provider. Only the email is load-bearing; it is the value written into
// author, likedBy and viewedBy fields.
type Principal struct {
	Email       string `json:"email"`
	DisplayName string `json:"display_name"`
}

// FallbackName derives a short handle from the email when no display name
// or stored username is available.
func (p Principal) FallbackName() string {
	name, _, _ := strings.Cut(p.Email, "@")
	return name
}

// Credential is the small blob kept per principal in the external document
// store. Field names are shortened on the wire to match the legacy layout.
type Credential struct {
	Username string `json:"u,omitempty"`
	APIKey   string `json:"k"`
	Secret   string `json:"s"`
}

func (c Credential) Complete() bool {
	return len(c.APIKey) > 0 && len(c.Secret) > 0
}
