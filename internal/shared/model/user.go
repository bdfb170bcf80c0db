// Package model 定义核心数据模型
//
// 所有文档通过 bson tag 持久化到 MongoDB，通过 json tag 序列化到 API 响应。
// Validate 在每次写入前由调用方显式执行（对应原系统的 schema 校验）。
package model

import (
	"fmt"
	"regexp"
	"time"
)

// UserRole 用户角色
type UserRole string

const (
	UserRoleAdmin   UserRole = "admin"
	UserRoleStudent UserRole = "student"
)

// User 用户
//
// PasswordHash 只存 bcrypt 哈希，json:"-" 保证永不出现在响应里。
type User struct {
	ID           string    `json:"id" bson:"_id"`
	Username     string    `json:"username" bson:"username"`
	Email        string    `json:"email" bson:"email"`
	Role         UserRole  `json:"role" bson:"role"`
	PasswordHash string    `json:"-" bson:"password"`
	Location     string    `json:"location" bson:"location"`
	Avatar       string    `json:"avatar" bson:"avatar"`
	AvatarKey    string    `json:"avatar_key,omitempty" bson:"avatar_key,omitempty"`
	CreatedAt    time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// IsValidEmail 校验邮箱格式
func IsValidEmail(email string) bool {
	return emailRegex.MatchString(email)
}

// Validate 校验用户文档，填充默认角色
func (u *User) Validate() error {
	if u.Username == "" {
		return fmt.Errorf("username is required")
	}
	if u.Email == "" {
		return fmt.Errorf("email is required")
	}
	if !IsValidEmail(u.Email) {
		return fmt.Errorf("invalid email format")
	}
	if u.Role == "" {
		u.Role = UserRoleStudent
	}
	if u.Role != UserRoleAdmin && u.Role != UserRoleStudent {
		return fmt.Errorf("role must be %q or %q", UserRoleAdmin, UserRoleStudent)
	}
	if u.PasswordHash == "" {
		return fmt.Errorf("password is required")
	}
	if u.Location == "" {
		return fmt.Errorf("location is required")
	}
	if u.Avatar == "" {
		return fmt.Errorf("avatar is required")
	}
	return nil
}

// PublicProfile 目录接口用的公开字段
type PublicProfile struct {
	Email    string `json:"email"`
	Username string `json:"username"`
}

// Public 返回公开档案（邮箱 + 用户名）
func (u *User) Public() PublicProfile {
	return PublicProfile{Email: u.Email, Username: u.Username}
}
