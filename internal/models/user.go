package models

import "time"

// ロール
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User はユーザーのデータベース構造体を表します。
// Username がToDoの所有者名 (identity) になります。
// JSONタグ: クライアントとの通信用
// bindingタグ: Ginでのリクエストバリデーション用
type User struct {
	ID           int       `json:"id,omitempty"`
	Username     string    `json:"username" binding:"required,min=3"`
	Email        string    `json:"email" binding:"required,email"` // email形式
	PasswordHash string    `json:"-"`                              // JSONに出さない
	Role         string    `json:"role" binding:"required,oneof=user admin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=255"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"` // 生パスワード
}

type UserLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"` // 生パスワード
}

// LoginResponse はログイン成功時のレスポンスです。
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   int    `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

type JWTClaims struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role" binding:"required,oneof=user admin"`
}
