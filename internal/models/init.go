package models

import (
	"github.com/vnshop-next/internal/logger"

	"golang.org/x/crypto/bcrypt"
)

// EnsureDefaultUser 初始化默认演示用户（已存在则跳过）
func EnsureDefaultUser(email, password string) error {
	if email == "" {
		email = "demo@example.com"
	}
	if password == "" {
		password = "demo123"
	}

	var count int64
	DB.Model(&User{}).Where("email = ?", email).Count(&count)
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	user := User{
		Email:        email,
		PasswordHash: string(hash),
		DisplayName:  "Demo",
		Status:       "active",
	}
	if err := DB.Create(&user).Error; err != nil {
		return err
	}

	if password == "demo123" {
		logger.Warnw("default_user_created_with_default_password", "email", email)
	} else {
		logger.Warnw("default_user_created", "email", email, "password_hidden", true)
	}
	return nil
}
