package models

// Membership links an authenticated user to a tenant. The (user, tenant)
// pair is unique; rows are created once and never updated.
type Membership struct {
	BaseModel

	UserID   string `gorm:"type:uuid;not null;uniqueIndex:idx_memberships_user_tenant" json:"user_id"`
	TenantID string `gorm:"not null;size:64;uniqueIndex:idx_memberships_user_tenant" json:"tenant_id"`
}
