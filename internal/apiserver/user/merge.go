package user

import (
	"fmt"
	"time"

	"student-market/internal/apiserver/auth"
	"student-market/internal/shared/model"
)

// UpdatePayload 用户更新的部分载荷
// nil 字段表示"保持原值"。Role 仅管理员路径允许设置。
type UpdatePayload struct {
	Username *string `json:"username"`
	Email    *string `json:"email"`
	Location *string `json:"location"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// applyUpdate 合并部分更新载荷，计算用户的下一个持久化状态
//
// 合并顺序：
//  1. 以当前文档为基底
//  2. 如有新头像，覆盖 (avatar, avatar_key)
//  3. 逐字段覆盖载荷中出现的字段
//
// 载荷没有头像字段，所以第 2 步的结果不会被第 3 步抹掉。
// 密码只在载荷携带新明文时重新哈希；否则原哈希原样保留。
// ID、创建时间不可变；调用方负责对结果执行 Validate。
func applyUpdate(base *model.User, p UpdatePayload, avatarURL, avatarKey string) (*model.User, error) {
	next := *base

	if avatarURL != "" {
		next.Avatar = avatarURL
		next.AvatarKey = avatarKey
	}

	if p.Username != nil {
		next.Username = *p.Username
	}
	if p.Email != nil {
		next.Email = *p.Email
	}
	if p.Location != nil {
		next.Location = *p.Location
	}
	if p.Role != nil {
		next.Role = model.UserRole(*p.Role)
	}
	if p.Password != nil {
		if *p.Password == "" {
			return nil, fmt.Errorf("password must not be empty")
		}
		hash, err := auth.HashPassword(*p.Password)
		if err != nil {
			return nil, fmt.Errorf("hash password: %w", err)
		}
		next.PasswordHash = hash
	}

	next.UpdatedAt = time.Now()
	return &next, nil
}

// formPayload 从 multipart 表单提取更新载荷（PUT /users/me）
func formPayload(get func(string) string, has func(string) bool) UpdatePayload {
	p := UpdatePayload{}
	set := func(field string, dst **string) {
		if has(field) {
			v := get(field)
			*dst = &v
		}
	}
	set("username", &p.Username)
	set("email", &p.Email)
	set("location", &p.Location)
	set("password", &p.Password)
	return p
}
