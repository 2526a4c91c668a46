package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// UserRole represents the roles carried in access tokens.
type UserRole string

const (
	RoleAdmin        UserRole = "ADMIN"
	RoleCourseMentor UserRole = "COURSE_MENTOR"
	RoleLearner      UserRole = "LEARNER"
)

// JWTClaims represents the JWT payload for access tokens issued by the platform.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
