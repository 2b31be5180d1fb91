package domain

import "strings"

type PassengerInfo struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email,omitempty"`
}

func (p PassengerInfo) Normalize() PassengerInfo {
	return PassengerInfo{
		FirstName: strings.TrimSpace(p.FirstName),
		LastName:  strings.TrimSpace(p.LastName),
		Phone:     strings.TrimSpace(p.Phone),
		Email:     strings.TrimSpace(p.Email),
	}
}

// Complete ignores Email, whose format is left to the form layer.
func (p PassengerInfo) Complete() bool {
	n := p.Normalize()
	return n.FirstName != "" && n.LastName != "" && n.Phone != ""
}

func (p PassengerInfo) FullName() string {
	n := p.Normalize()
	return strings.TrimSpace(n.FirstName + " " + n.LastName)
}
