package signon

import (
	"errors"
	"fmt"
)

var (
	ErrHostRequired     = errors.New("signon: host address required")
	ErrUserIDRequired   = errors.New("signon: user id required")
	ErrPasswordRequired = errors.New("signon: password required")

	// ErrShortReply is the framing error for replies shorter than the
	// minimum header plus return code.
	ErrShortReply = errors.New("signon: reply shorter than minimum reply header")

	ErrUnexpectedReply     = errors.New("signon: unexpected reply id")
	ErrCorrelationMismatch = errors.New("signon: reply correlation mismatch")
	ErrMissingServerSeed   = errors.New("signon: reply carries no server seed")
	ErrMissingUserID       = errors.New("signon: reply carries no user id")
	ErrExchangeRejected    = errors.New("signon: seed exchange rejected by host")
	ErrSignonRejected      = errors.New("signon: rejected by host")
)

// ReturnCode is the 4-byte result field of a reply frame. Zero is
// success; everything else is resolved against the static taxonomy
// below.
type ReturnCode uint32

const (
	RCSuccess ReturnCode = 0x00000000

	RCUserIDUnknown  ReturnCode = 0x00020001
	RCUserIDDisabled ReturnCode = 0x00020002

	RCPasswordLengthInvalid     ReturnCode = 0x00030001
	RCPasswordExpired           ReturnCode = 0x00030005
	RCPasswordIncorrect         ReturnCode = 0x0003000B
	RCPasswordIncorrectDisable  ReturnCode = 0x0003000C
	RCPasswordPreV2R2           ReturnCode = 0x0003000E
	RCSignonExitProgramRejected ReturnCode = 0x00040002
	RCInternalSystemError       ReturnCode = 0x00050001
)

// The table is fixed at build time; lookup degrades to a generic
// message instead of failing.
var returnCodeMessages = []struct {
	rc      ReturnCode
	message string
}{
	{RCUserIDUnknown, "User ID is not known to the host"},
	{RCUserIDDisabled, "User ID has been disabled"},
	{RCPasswordLengthInvalid, "Password length is not valid"},
	{RCPasswordExpired, "Password has expired"},
	{RCPasswordIncorrect, "Incorrect password"},
	{RCPasswordIncorrectDisable, "Incorrect password; user ID will be disabled on the next failed sign-on"},
	{RCPasswordPreV2R2, "Password encryption predates the negotiated level"},
	{RCSignonExitProgramRejected, "Sign-on was rejected by an exit program"},
	{RCInternalSystemError, "Internal host error during sign-on"},
}

// Message maps a return code to its classification.
func (rc ReturnCode) Message() string {
	for _, entry := range returnCodeMessages {
		if entry.rc == rc {
			return entry.message
		}
	}
	return fmt.Sprintf("Unknown error (rc=0x%08X)", uint32(rc))
}
