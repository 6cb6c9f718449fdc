package domain

// TicketTIDCounter is the allocator counter backing ticket ids.
const TicketTIDCounter = "ticket_tid"

// Identity is the verified caller. Role always comes from the account
// record, never from request input.
type Identity struct {
	UID  string
	Role Role
}

// IsAdmin reports whether the identity is an administrator.
func (i Identity) IsAdmin() bool { return i.Role == RoleAdmin }
