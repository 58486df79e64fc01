package domain

// TenantContext carries the scoping identifiers attached to outbound requests.
// Its lifecycle is independent of the credential, but both are cleared on logout.
type TenantContext struct {
	TenantID   string `json:"tenantId,omitempty"`
	LocationID string `json:"locationId,omitempty"`
	DeviceID   string `json:"deviceId,omitempty"`
	SessionID  string `json:"sessionId,omitempty"`
}

// DefaultTenant is the storage prefix used when no tenant has been selected.
const DefaultTenant = "default"

// Prefix returns the tenant id used to segregate tenant-scoped storage keys.
func (t TenantContext) Prefix() string {
	if t.TenantID == "" {
		return DefaultTenant
	}
	return t.TenantID
}
