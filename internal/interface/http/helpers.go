package httpapi

import (
	sessionDomain "car-companion/internal/domain/session"
)

func profileView(p sessionDomain.UserProfile) map[string]interface{} {
	view := map[string]interface{}{
		"id":        p.ID,
		"firstName": p.FirstName,
		"lastName":  p.LastName,
		"email":     p.Email,
	}
	if len(p.Settings) > 0 {
		view["settings"] = p.Settings
	}
	return view
}
