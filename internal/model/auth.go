package model

import (
	"github.com/google/uuid"
)

// SignupRequest represents signup parameters.
type SignupRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role" binding:"required,oneof=patient admin practitioner"`
}

// LoginRequest represents login parameters.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// TokenResponse is returned from signup and login.
type TokenResponse struct {
	Token string `json:"token"`
	User  *User  `json:"user"`
}

// TokenClaims are the identity claims carried by a session token.
type TokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Email  string    `json:"email"`
	Role   string    `json:"role"`
}
