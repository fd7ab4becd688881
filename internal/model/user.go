package model

import "time"

// Roles recognised by the booking service.  The role travels in the
// access token's "role" claim and is checked once per operation by the
// booking package.
const (
    RoleVisitor = "visitor"
    RoleGuide   = "guide"
    RoleAdmin   = "admin"
)

// User represents an application user record as stored in the
// `users` table.  The struct is used internally by the repository
// layer; handlers define their own response shapes.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique login (lower-cased email address).
//  PasswordHash – bcrypt hashed password.
//  Role         – one of visitor, guide or admin.
//  IsActive     – whether the account may log in.
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
    ID           uint64    // users.id
    Email        string    // users.email
    PasswordHash string    // users.password_hash
    Role         string    // users.role
    IsActive     bool      // users.is_active
    CreatedAt    time.Time // users.created_at
    UpdatedAt    time.Time // users.updated_at
}

// UserAccount is a user together with the contact details of its
// visitor profile.  Administrators list and edit accounts in this shape;
// PasswordHash is never rendered.
type UserAccount struct {
    User
    FirstName string // visitors.first_name
    LastName  string // visitors.last_name
    Phone     string // visitors.phone_number
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the raw token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
