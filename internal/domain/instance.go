package domain

import "time"

// Instance identifies this server installation. A single row is created on
// first boot; the id goes out in mDNS TXT records and /health so clients can
// tell two Pagemark servers on the same network apart.
type Instance struct {
	CreatedAt time.Time `json:"createdAt"`
	ID        string    `json:"id"`
	Name      string    `json:"name"`
}
