package models

// UserRole enumerates the roles carried in access tokens.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
	RoleTutor      UserRole = "TUTOR"
	RoleStudent    UserRole = "STUDENT"
)

// RiskReaders are the roles allowed to read risk analyses.
var RiskReaders = []UserRole{RoleSuperAdmin, RoleAdmin, RoleTeacher, RoleTutor}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
