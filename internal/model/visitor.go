package model

import "time"

// Visitor is the profile attached 1:1 to a user account.  It is created
// together with the user at registration and owns every reservation
// made under that account.
type Visitor struct {
    ID        uint64    // visitors.id
    UserID    uint64    // visitors.user_id
    FirstName string    // visitors.first_name
    LastName  string    // visitors.last_name
    Email     string    // visitors.email
    Phone     string    // visitors.phone_number
    CreatedAt time.Time // visitors.created_at
    UpdatedAt time.Time // visitors.updated_at
}
