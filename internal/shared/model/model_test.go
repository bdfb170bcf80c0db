package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validUser() *User {
	return &User{
		ID:           "usr-000000000001",
		Username:     "kenneth",
		Email:        "kenneth@example.com",
		PasswordHash: "$2a$11$fakefakefakefakefakefake",
		Location:     "Lagos",
		Avatar:       "http://localhost:9000/student-market/users/a.png",
		AvatarKey:    "users/a.png",
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
}

func TestUserValidate(t *testing.T) {
	t.Run("合法用户", func(t *testing.T) {
		u := validUser()
		require.NoError(t, u.Validate())
		// 默认角色为 student
		assert.Equal(t, UserRoleStudent, u.Role)
	})

	t.Run("缺失字段", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*User)
		}{
			{"无用户名", func(u *User) { u.Username = "" }},
			{"无邮箱", func(u *User) { u.Email = "" }},
			{"邮箱格式错误", func(u *User) { u.Email = "not-an-email" }},
			{"无密码哈希", func(u *User) { u.PasswordHash = "" }},
			{"无地区", func(u *User) { u.Location = "" }},
			{"无头像", func(u *User) { u.Avatar = "" }},
			{"非法角色", func(u *User) { u.Role = "superuser" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				u := validUser()
				tt.mutate(u)
				assert.Error(t, u.Validate())
			})
		}
	})
}

// TestUserJSONNeverExposesPassword 密码哈希绝不出现在序列化结果中
func TestUserJSONNeverExposesPassword(t *testing.T) {
	u := validUser()
	data, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "password")
	assert.NotContains(t, string(data), u.PasswordHash)
}

func validProduct() *Product {
	return &Product{
		ID:          "prd-000000000001",
		Title:       "Calculus Textbook",
		Description: "Barely used, 3rd edition",
		Price:       25.5,
		Category:    "books",
		Location:    "Lagos",
		Image:       "http://localhost:9000/student-market/products/b.jpg",
		ImageKey:    "products/b.jpg",
		Seller:      "usr-000000000001",
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
}

func TestProductValidate(t *testing.T) {
	t.Run("合法商品", func(t *testing.T) {
		p := validProduct()
		require.NoError(t, p.Validate())
		// 默认成色为 New
		assert.Equal(t, ConditionNew, p.Condition)
	})

	t.Run("图片外链可选", func(t *testing.T) {
		p := validProduct()
		p.Image = ""
		assert.NoError(t, p.Validate())
	})

	t.Run("缺失字段", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(*Product)
		}{
			{"无标题", func(p *Product) { p.Title = "" }},
			{"无描述", func(p *Product) { p.Description = "" }},
			{"零价格", func(p *Product) { p.Price = 0 }},
			{"负价格", func(p *Product) { p.Price = -3 }},
			{"非法成色", func(p *Product) { p.Condition = "Refurbished" }},
			{"无分类", func(p *Product) { p.Category = "" }},
			{"无地区", func(p *Product) { p.Location = "" }},
			{"无图片 key", func(p *Product) { p.ImageKey = "" }},
			{"无发布者", func(p *Product) { p.Seller = "" }},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				p := validProduct()
				tt.mutate(p)
				assert.Error(t, p.Validate())
			})
		}
	})
}

func TestIsValidEmail(t *testing.T) {
	assert.True(t, IsValidEmail("a@b.co"))
	assert.True(t, IsValidEmail("first.last+tag@sub.domain.org"))
	assert.False(t, IsValidEmail(""))
	assert.False(t, IsValidEmail("a@b"))
	assert.False(t, IsValidEmail("no-at-sign.com"))
}
