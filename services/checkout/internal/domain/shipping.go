package domain

import (
	"fmt"
	"strings"
)

// ShippingInfo is copied into every order at creation; orders never point at
// a mutable address record.
type ShippingInfo struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
	Ward     string `json:"ward,omitempty"`
	District string `json:"district,omitempty"`
	City     string `json:"city"`
	Note     string `json:"note,omitempty"`
}

func (s ShippingInfo) Validate() error {
	var missing []string
	if strings.TrimSpace(s.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(s.Phone) == "" {
		missing = append(missing, "phone")
	}
	if strings.TrimSpace(s.Address) == "" {
		missing = append(missing, "address")
	}
	if strings.TrimSpace(s.City) == "" {
		missing = append(missing, "city")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: shipping %s required", ErrValidation, strings.Join(missing, ", "))
	}
	return nil
}
