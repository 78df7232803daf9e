package model

import "time"

// DeviceToken is one registered push endpoint. The token value is the opaque
// string handed to us by the client's push runtime and is globally unique: a
// device that changes hands is re-pointed at its new owner, never duplicated.
type DeviceToken struct {
	ID         string    `json:"id"`
	Token      string    `json:"token"`
	UserID     int64     `json:"user_id"`
	DeviceInfo string    `json:"device_info"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// DeviceTokenWithOwner carries minimal owner display attributes alongside a
// registration, for dispatch logging and reporting.
type DeviceTokenWithOwner struct {
	DeviceToken
	OwnerName  string `json:"owner_name"`
	OwnerEmail string `json:"owner_email"`
}
