package domain

type (
	// RoomID is an opaque room identifier. It is treated as a capability
	// token: whoever knows it may join.
	RoomID string

	// ConnID is the transport-assigned identifier of one live connection.
	// It is the addressing unit for point-to-point relay.
	ConnID string
)
