package entity

import "strings"

// UserProfile is the read-only projection of an account owned by the identity service.
type UserProfile struct {
	ID              string `json:"id"`
	Username        string `json:"username"`
	DisplayName     string `json:"display_name"`
	ProfileImageRef string `json:"profile_image_ref,omitempty"`
}

// Name returns the display name, or the username when none is set.
func (p *UserProfile) Name() string {
	if name := strings.TrimSpace(p.DisplayName); name != "" {
		return name
	}
	return p.Username
}
