package usercontext

// Shared Locals/session keys used across controllers and middlewares
const (
	AuthKey          = "authenticated"
	KeyUserID        = "user_id"
	KeyUsername      = "username"
	KeyRole          = "role"
	KeyOrgID         = "org_id"
	KeyFromProtected = "from_protected"
)
