package users

import "errors"

// Lookup errors. Messages are shown to API clients verbatim.
var (
	ErrUserNotFound = errors.New("用户不存在")
	ErrRoleNotFound = errors.New("角色不存在")
)
