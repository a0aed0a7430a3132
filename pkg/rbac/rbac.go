package rbac

import "fmt"

// 权限常量
const (
	PermissionCreateJob       = "job:create"
	PermissionCreateProposal  = "proposal:create"
	PermissionManageContract  = "contract:manage"
	PermissionReplayOutbox    = "outbox:replay"
	PermissionReadOwnResource = "resource:read"
)

// 角色常量
const (
	RoleClient     = "client"
	RoleFreelancer = "freelancer"
	RoleAdmin      = "admin"
)

// 角色权限映射
var rolePermissions = map[string][]string{
	RoleClient: {
		PermissionReadOwnResource,
		PermissionCreateJob,
		PermissionManageContract,
	},
	RoleFreelancer: {
		PermissionReadOwnResource,
		PermissionCreateProposal,
	},
	RoleAdmin: {
		PermissionReadOwnResource,
		PermissionReplayOutbox,
	},
}

// ValidRole reports whether role is one users can register with or hold.
func ValidRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission 检查角色是否有指定权限
func HasPermission(role string, permission string) bool {
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// CheckPermission 检查角色权限，返回错误便于处理
func CheckPermission(role string, permission string) error {
	if !HasPermission(role, permission) {
		return &PermissionDeniedError{Role: role, Permission: permission}
	}
	return nil
}

// PermissionDeniedError 表示权限不足的错误
type PermissionDeniedError struct {
	Role       string
	Permission string
}

func (e *PermissionDeniedError) Error() string {
	return fmt.Sprintf("role %q lacks permission %q", e.Role, e.Permission)
}
