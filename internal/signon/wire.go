package signon

import (
	"fmt"
	"time"

	"github.com/hostbridge/signon/internal/auth"
	"github.com/hostbridge/signon/internal/ebcdic"
	"github.com/hostbridge/signon/internal/frame"
)

// Signon service wire constants.
const (
	ServiceID uint16 = 0xE009

	reqSeedExchange uint16 = 0x7003
	repSeedExchange uint16 = 0xF003
	reqSignonInfo   uint16 = 0x7004
	repSignonInfo   uint16 = 0xF004

	// Request/reply parameter code points.
	cpVersion           uint16 = 0x1101
	cpLevel             uint16 = 0x1102
	cpSeed              uint16 = 0x1103
	cpUserID            uint16 = 0x1104
	cpPassword          uint16 = 0x1105
	cpCCSID             uint16 = 0x1106
	cpCurrentSignonTime uint16 = 0x1107
	cpLastSignonTime    uint16 = 0x1108
	cpExpirationTime    uint16 = 0x1109
	cpPasswordLevel     uint16 = 0x1119
	cpExpirationWarning uint16 = 0x111F

	// Template byte of the signon info request: how the credential
	// field is encoded.
	authTypeEncrypted byte = 0x01
)

// negotiation is the handshake-scoped state produced by the seed
// exchange and consumed by the info phase. It exists only between the
// two phases of one handshake; credential encryption cannot run
// without it.
type negotiation struct {
	serverVersion uint32
	serverLevel   uint16
	passwordLevel auth.PasswordLevel
	clientSeed    []byte
	serverSeed    []byte
}

// SessionInfo is the authenticated-session metadata returned by a
// successful handshake. Immutable once produced.
type SessionInfo struct {
	ServerCCSID               uint32
	UserID                    string
	CurrentSignonTime         time.Time
	LastSignonTime            time.Time
	PasswordExpirationTime    time.Time
	PasswordExpirationWarning bool
}

func newSeedExchangeRequest(clientSeed []byte, clientVersion uint32, datastreamLevel uint16, correlation uint32) *frame.Frame {
	size := frame.HeaderLen + frame.FieldLen(4) + frame.FieldLen(2) + frame.FieldLen(auth.SeedLen)
	f := frame.New(size)
	f.SetServiceID(ServiceID)
	f.SetCorrelationID(correlation)
	f.SetTemplateLen(0)
	f.SetReqRepID(reqSeedExchange)

	version := []byte{byte(clientVersion >> 24), byte(clientVersion >> 16), byte(clientVersion >> 8), byte(clientVersion)}
	level := []byte{byte(datastreamLevel >> 8), byte(datastreamLevel)}
	off := frame.HeaderLen
	off = frame.AppendField(f, off, cpVersion, version)
	off = frame.AppendField(f, off, cpLevel, level)
	frame.AppendField(f, off, cpSeed, clientSeed)
	return f
}

func parseSeedExchangeReply(f *frame.Frame, clientSeed []byte, host string) (negotiation, error) {
	if f.Len() < frame.MinReplyLen {
		return negotiation{}, fmt.Errorf("%w: %d bytes from %s", ErrShortReply, f.Len(), host)
	}
	if f.ReqRepID() != repSeedExchange {
		return negotiation{}, fmt.Errorf("%w: 0x%04X from %s", ErrUnexpectedReply, f.ReqRepID(), host)
	}
	if rc := ReturnCode(f.ReturnCode()); rc != RCSuccess {
		return negotiation{}, fmt.Errorf("%w: error during seed exchange with %s: rc=0x%08X",
			ErrExchangeRejected, host, uint32(rc))
	}

	fields, err := frame.ScanFields(f, frame.MinReplyLen)
	if err != nil {
		return negotiation{}, fmt.Errorf("signon: seed exchange reply from %s: %w", host, err)
	}

	neg := negotiation{clientSeed: clientSeed}
	if fl, ok := frame.FindField(fields, cpVersion); ok {
		if neg.serverVersion, err = fl.Uint32(); err != nil {
			return negotiation{}, fmt.Errorf("signon: seed exchange reply from %s: %w", host, err)
		}
	}
	if fl, ok := frame.FindField(fields, cpLevel); ok {
		if neg.serverLevel, err = fl.Uint16(); err != nil {
			return negotiation{}, fmt.Errorf("signon: seed exchange reply from %s: %w", host, err)
		}
	}
	if fl, ok := frame.FindField(fields, cpPasswordLevel); ok {
		lvl, err := fl.Uint16()
		if err != nil {
			return negotiation{}, fmt.Errorf("signon: seed exchange reply from %s: %w", host, err)
		}
		neg.passwordLevel = auth.PasswordLevel(lvl)
	}
	fl, ok := frame.FindField(fields, cpSeed)
	if !ok || len(fl.Value) != auth.SeedLen {
		return negotiation{}, fmt.Errorf("%w: from %s", ErrMissingServerSeed, host)
	}
	neg.serverSeed = fl.Value
	return neg, nil
}

func newSignonInfoRequest(userID string, credential []byte, serverLevel uint16, correlation uint32) (*frame.Frame, error) {
	ud, err := ebcdic.EncodePadded(userID, auth.UserIDWidth)
	if err != nil {
		return nil, fmt.Errorf("signon: encode user id: %w", err)
	}

	size := frame.HeaderLen + 1 +
		frame.FieldLen(len(credential)) +
		frame.FieldLen(auth.UserIDWidth) +
		frame.FieldLen(2)
	f := frame.New(size)
	f.SetServiceID(ServiceID)
	f.SetCorrelationID(correlation)
	f.SetTemplateLen(1)
	f.SetReqRepID(reqSignonInfo)
	f.SetUint8(frame.HeaderLen, authTypeEncrypted)

	level := []byte{byte(serverLevel >> 8), byte(serverLevel)}
	off := frame.HeaderLen + 1
	off = frame.AppendField(f, off, cpPassword, credential)
	off = frame.AppendField(f, off, cpUserID, ud)
	frame.AppendField(f, off, cpLevel, level)
	return f, nil
}

func parseSignonInfoReply(f *frame.Frame, host string) (*SessionInfo, error) {
	if f.Len() < frame.MinReplyLen {
		return nil, fmt.Errorf("%w: %d bytes from %s", ErrShortReply, f.Len(), host)
	}
	if f.ReqRepID() != repSignonInfo {
		return nil, fmt.Errorf("%w: 0x%04X from %s", ErrUnexpectedReply, f.ReqRepID(), host)
	}
	if rc := ReturnCode(f.ReturnCode()); rc != RCSuccess {
		return nil, fmt.Errorf("%w: error during signon info with %s: %s",
			ErrSignonRejected, host, rc.Message())
	}

	fields, err := frame.ScanFields(f, frame.MinReplyLen)
	if err != nil {
		return nil, fmt.Errorf("signon: signon info reply from %s: %w", host, err)
	}

	info := &SessionInfo{}
	if fl, ok := frame.FindField(fields, cpCCSID); ok {
		if info.ServerCCSID, err = fl.Uint32(); err != nil {
			return nil, fmt.Errorf("signon: signon info reply from %s: %w", host, err)
		}
	}
	if fl, ok := frame.FindField(fields, cpCurrentSignonTime); ok {
		if info.CurrentSignonTime, err = decodeTimestamp(fl.Value); err != nil {
			return nil, fmt.Errorf("signon: signon info reply from %s: %w", host, err)
		}
	}
	if fl, ok := frame.FindField(fields, cpLastSignonTime); ok {
		if info.LastSignonTime, err = decodeTimestamp(fl.Value); err != nil {
			return nil, fmt.Errorf("signon: signon info reply from %s: %w", host, err)
		}
	}
	if fl, ok := frame.FindField(fields, cpExpirationTime); ok {
		if info.PasswordExpirationTime, err = decodeTimestamp(fl.Value); err != nil {
			return nil, fmt.Errorf("signon: signon info reply from %s: %w", host, err)
		}
	}
	if fl, ok := frame.FindField(fields, cpExpirationWarning); ok {
		warn, err := fl.Uint16()
		if err != nil {
			return nil, fmt.Errorf("signon: signon info reply from %s: %w", host, err)
		}
		info.PasswordExpirationWarning = warn != 0
	}

	// The canonical user id comes from the reply, not the request.
	fl, ok := frame.FindField(fields, cpUserID)
	if !ok {
		return nil, fmt.Errorf("%w: from %s", ErrMissingUserID, host)
	}
	userID, err := ebcdic.DecodeTrimmed(fl.Value)
	if err != nil {
		return nil, fmt.Errorf("signon: signon info reply from %s: %w", host, err)
	}
	info.UserID = userID
	return info, nil
}

const timestampLen = 8

// Host timestamps are 8 bytes: big-endian year, then month, day,
// hour, minute, second, and a reserved byte. All-zero means "never".
func decodeTimestamp(b []byte) (time.Time, error) {
	if len(b) != timestampLen {
		return time.Time{}, fmt.Errorf("signon: timestamp length %d", len(b))
	}
	year := int(b[0])<<8 | int(b[1])
	if year == 0 {
		return time.Time{}, nil
	}
	return time.Date(year, time.Month(b[2]), int(b[3]), int(b[4]), int(b[5]), int(b[6]), 0, time.UTC), nil
}
