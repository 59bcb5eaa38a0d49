// Package domain contains entity without logic, just meta-data
package domain

import "errors"

const (
	MaxUserIDLen   = 64
	MaxUserNameLen = 64
)

var (
	ErrUserIDEmpty     = errors.New("user id empty")
	ErrUserIDTooLong   = errors.New("user id too long")
	ErrUserNameEmpty   = errors.New("user name empty")
	ErrUserNameTooLong = errors.New("user name too long")
)

// Participant is the client-supplied identity bound to a connection at join
// time. Authentication happens upstream; this subsystem trusts it as-is.
type Participant struct {
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// NewParticipant avoids raw literals in adapters and keeps construction obvious.
func NewParticipant(userID, userName string) (Participant, error) {
	if userID == "" {
		return Participant{}, ErrUserIDEmpty
	}
	if len(userID) > MaxUserIDLen {
		return Participant{}, ErrUserIDTooLong
	}
	if userName == "" {
		return Participant{}, ErrUserNameEmpty
	}
	if len(userName) > MaxUserNameLen {
		return Participant{}, ErrUserNameTooLong
	}
	return Participant{UserID: userID, UserName: userName}, nil
}
