package domain

import "encoding/json"

const (
	RoleAdmin    = "admin"
	RoleEmployee = "employee"
)

// Principal is the signed-in identity as last reported by the backend.
// It is a cached mirror and never an authorization source on its own.
type Principal struct {
	ID       string `json:"id,omitempty"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId,omitempty"`
}

// principalWire accepts the field spellings the different backend variants emit.
type principalWire struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName"`
	Username    string          `json:"username"`
	Role        string          `json:"role"`
	TenantID    string          `json:"tenantId"`
	TenantIDAlt string          `json:"tenant_id"`
}

// UnmarshalJSON decodes a principal, tolerating numeric ids and the
// displayName/username and tenant_id aliases.
func (p *Principal) UnmarshalJSON(data []byte) error {
	var w principalWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	*p = Principal{
		ID:       rawID(w.ID),
		Name:     firstNonEmpty(w.Name, w.DisplayName, w.Username),
		Role:     w.Role,
		TenantID: firstNonEmpty(w.TenantID, w.TenantIDAlt),
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
