package model

import "time"

// Role names stored in the users.role column and embedded in access
// tokens as ROLE_<name> authority claims.
const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

// User represents an application user record as stored in the `users`
// table. The username is an email address and is unique. Only the bcrypt
// hash of the password is persisted.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Username     – unique email address.
//  PasswordHash – bcrypt hashed password.
//  Role         – role name (USER or ADMIN).
//  CreatedAt    – timestamp of creation.
type User struct {
	ID           uint64    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Authorities returns the authority claim names granted by the user's
// role. They are embedded into access tokens as boolean claims.
func (u User) Authorities() []string {
	return []string{"ROLE_" + u.Role}
}

// Principal is the identity attached to a request after authorization
// and the value stored against a refresh token in the token store. It
// carries no password material so it is safe to serialize.
type Principal struct {
	ID       uint64 `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

// PrincipalOf derives the storable principal from a user record.
func PrincipalOf(u User) Principal {
	return Principal{ID: u.ID, Username: u.Username, Role: u.Role}
}
