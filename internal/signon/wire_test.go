package signon

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hostbridge/signon/internal/auth"
	"github.com/hostbridge/signon/internal/ebcdic"
	"github.com/hostbridge/signon/internal/frame"
)

var (
	testClientSeed = []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	testServerSeed = []byte{0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F, 0x10}
)

func encodeTimestamp(ts time.Time) []byte {
	b := make([]byte, timestampLen)
	if ts.IsZero() {
		return b
	}
	b[0] = byte(ts.Year() >> 8)
	b[1] = byte(ts.Year())
	b[2] = byte(ts.Month())
	b[3] = byte(ts.Day())
	b[4] = byte(ts.Hour())
	b[5] = byte(ts.Minute())
	b[6] = byte(ts.Second())
	return b
}

type seedReplyParams struct {
	rc            ReturnCode
	serverVersion uint32
	serverLevel   uint16
	passwordLevel uint16
	serverSeed    []byte
}

func buildSeedExchangeReply(correlation uint32, p seedReplyParams) *frame.Frame {
	size := frame.MinReplyLen + frame.FieldLen(4) + frame.FieldLen(2) + frame.FieldLen(2)
	if p.serverSeed != nil {
		size += frame.FieldLen(len(p.serverSeed))
	}
	f := frame.New(size)
	f.SetServiceID(ServiceID)
	f.SetCorrelationID(correlation)
	f.SetReqRepID(repSeedExchange)
	f.SetUint32(frame.OffReturnCode, uint32(p.rc))

	off := frame.MinReplyLen
	off = frame.AppendField(f, off, cpVersion, []byte{
		byte(p.serverVersion >> 24), byte(p.serverVersion >> 16), byte(p.serverVersion >> 8), byte(p.serverVersion)})
	off = frame.AppendField(f, off, cpLevel, []byte{byte(p.serverLevel >> 8), byte(p.serverLevel)})
	off = frame.AppendField(f, off, cpPasswordLevel, []byte{byte(p.passwordLevel >> 8), byte(p.passwordLevel)})
	if p.serverSeed != nil {
		frame.AppendField(f, off, cpSeed, p.serverSeed)
	}
	return f
}

type infoReplyParams struct {
	rc         ReturnCode
	ccsid      uint32
	userID     string
	current    time.Time
	last       time.Time
	expiration time.Time
	warning    uint16
}

func buildSignonInfoReply(t *testing.T, correlation uint32, p infoReplyParams) *frame.Frame {
	t.Helper()
	ud, err := ebcdic.EncodePadded(p.userID, auth.UserIDWidth)
	if err != nil {
		t.Fatalf("encode reply user id: %v", err)
	}
	size := frame.MinReplyLen + frame.FieldLen(4) + 3*frame.FieldLen(timestampLen) +
		frame.FieldLen(2) + frame.FieldLen(auth.UserIDWidth)
	f := frame.New(size)
	f.SetServiceID(ServiceID)
	f.SetCorrelationID(correlation)
	f.SetReqRepID(repSignonInfo)
	f.SetUint32(frame.OffReturnCode, uint32(p.rc))

	off := frame.MinReplyLen
	off = frame.AppendField(f, off, cpCCSID, []byte{
		byte(p.ccsid >> 24), byte(p.ccsid >> 16), byte(p.ccsid >> 8), byte(p.ccsid)})
	off = frame.AppendField(f, off, cpCurrentSignonTime, encodeTimestamp(p.current))
	off = frame.AppendField(f, off, cpLastSignonTime, encodeTimestamp(p.last))
	off = frame.AppendField(f, off, cpExpirationTime, encodeTimestamp(p.expiration))
	off = frame.AppendField(f, off, cpExpirationWarning, []byte{byte(p.warning >> 8), byte(p.warning)})
	frame.AppendField(f, off, cpUserID, ud)
	return f
}

func TestSeedExchangeRequestLayout(t *testing.T) {
	req := newSeedExchangeRequest(testClientSeed, 1, 5, 9)
	if req.ServiceID() != ServiceID || req.ReqRepID() != reqSeedExchange {
		t.Fatalf("unexpected header: service=0x%04X reqrep=0x%04X", req.ServiceID(), req.ReqRepID())
	}
	if req.CorrelationID() != 9 || req.TemplateLen() != 0 {
		t.Fatalf("unexpected correlation/template: %d/%d", req.CorrelationID(), req.TemplateLen())
	}
	fields, err := frame.ScanFields(req, frame.HeaderLen)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	fl, ok := frame.FindField(fields, cpSeed)
	if !ok || !bytes.Equal(fl.Value, testClientSeed) {
		t.Fatalf("client seed not carried: % X", fl.Value)
	}
	if fl, ok = frame.FindField(fields, cpVersion); !ok {
		t.Fatalf("missing client version")
	} else if v, err := fl.Uint32(); err != nil || v != 1 {
		t.Fatalf("unexpected version: %d err=%v", v, err)
	}
}

func TestParseSeedExchangeReplySuccess(t *testing.T) {
	rep := buildSeedExchangeReply(1, seedReplyParams{
		rc:            RCSuccess,
		serverVersion: 0x0704,
		serverLevel:   1,
		passwordLevel: 2,
		serverSeed:    testServerSeed,
	})
	neg, err := parseSeedExchangeReply(rep, testClientSeed, "thehost")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if neg.serverVersion != 0x0704 || neg.serverLevel != 1 || neg.passwordLevel != auth.LevelSHA1 {
		t.Fatalf("negotiation not populated: %+v", neg)
	}
	if !bytes.Equal(neg.serverSeed, testServerSeed) || !bytes.Equal(neg.clientSeed, testClientSeed) {
		t.Fatalf("seeds not recorded: %+v", neg)
	}
}

func TestParseSeedExchangeReplyShortFrame(t *testing.T) {
	short := frame.New(frame.HeaderLen)
	short.SetReqRepID(repSeedExchange)
	_, err := parseSeedExchangeReply(short, testClientSeed, "thehost")
	if !errors.Is(err, ErrShortReply) {
		t.Fatalf("expected ErrShortReply, got %v", err)
	}
	if !strings.Contains(err.Error(), "thehost") {
		t.Fatalf("framing error must name the host: %v", err)
	}
}

func TestParseSeedExchangeReplyNonZeroStatus(t *testing.T) {
	rep := buildSeedExchangeReply(1, seedReplyParams{rc: 0x00010005, serverSeed: testServerSeed})
	_, err := parseSeedExchangeReply(rep, testClientSeed, "thehost")
	if !errors.Is(err, ErrExchangeRejected) {
		t.Fatalf("expected ErrExchangeRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "seed exchange with thehost") ||
		!strings.Contains(err.Error(), "0x00010005") {
		t.Fatalf("rejection must name host and raw code: %v", err)
	}
}

func TestParseSeedExchangeReplyMissingSeed(t *testing.T) {
	rep := buildSeedExchangeReply(1, seedReplyParams{rc: RCSuccess})
	_, err := parseSeedExchangeReply(rep, testClientSeed, "thehost")
	if !errors.Is(err, ErrMissingServerSeed) {
		t.Fatalf("expected ErrMissingServerSeed, got %v", err)
	}
}

func TestSignonInfoRequestLayout(t *testing.T) {
	credential := bytes.Repeat([]byte{0xAB}, 20)
	req, err := newSignonInfoRequest("ALICE", credential, 1, 4)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if req.ReqRepID() != reqSignonInfo || req.TemplateLen() != 1 {
		t.Fatalf("unexpected header: reqrep=0x%04X template=%d", req.ReqRepID(), req.TemplateLen())
	}
	if req.Uint8(frame.HeaderLen) != authTypeEncrypted {
		t.Fatalf("missing credential-type template byte")
	}
	fields, err := frame.ScanFields(req, frame.HeaderLen+1)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	fl, ok := frame.FindField(fields, cpPassword)
	if !ok || !bytes.Equal(fl.Value, credential) {
		t.Fatalf("credential not carried")
	}
	fl, ok = frame.FindField(fields, cpUserID)
	if !ok {
		t.Fatalf("user id not carried")
	}
	decoded, err := ebcdic.DecodeTrimmed(fl.Value)
	if err != nil || decoded != "ALICE" {
		t.Fatalf("user id mangled: %q err=%v", decoded, err)
	}
}

func TestParseSignonInfoReplySuccess(t *testing.T) {
	current := time.Date(2026, 8, 30, 10, 30, 0, 0, time.UTC)
	last := time.Date(2026, 8, 29, 9, 0, 5, 0, time.UTC)
	expiration := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	rep := buildSignonInfoReply(t, 2, infoReplyParams{
		rc:         RCSuccess,
		ccsid:      37,
		userID:     "ALICE",
		current:    current,
		last:       last,
		expiration: expiration,
		warning:    1,
	})
	info, err := parseSignonInfoReply(rep, "thehost")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if info.ServerCCSID != 37 {
		t.Fatalf("unexpected ccsid: %d", info.ServerCCSID)
	}
	if info.UserID != "ALICE" {
		t.Fatalf("unexpected user id: %q", info.UserID)
	}
	if !info.CurrentSignonTime.Equal(current) || !info.LastSignonTime.Equal(last) ||
		!info.PasswordExpirationTime.Equal(expiration) {
		t.Fatalf("timestamps mangled: %+v", info)
	}
	if !info.PasswordExpirationWarning {
		t.Fatalf("warning flag lost")
	}
}

func TestParseSignonInfoReplyKnownError(t *testing.T) {
	rep := buildSignonInfoReply(t, 2, infoReplyParams{rc: RCPasswordIncorrect, userID: "ALICE"})
	_, err := parseSignonInfoReply(rep, "thehost")
	if !errors.Is(err, ErrSignonRejected) {
		t.Fatalf("expected ErrSignonRejected, got %v", err)
	}
	if !strings.Contains(err.Error(), "Incorrect password") ||
		!strings.Contains(err.Error(), "thehost") {
		t.Fatalf("mapped message missing: %v", err)
	}
}

func TestParseSignonInfoReplyUnknownError(t *testing.T) {
	rep := buildSignonInfoReply(t, 2, infoReplyParams{rc: 0x0BAD0BAD, userID: "ALICE"})
	_, err := parseSignonInfoReply(rep, "thehost")
	if err == nil || !strings.Contains(err.Error(), "Unknown error") {
		t.Fatalf("expected unknown-error mapping, got %v", err)
	}
}

func TestDecodeTimestampZeroMeansNever(t *testing.T) {
	ts, err := decodeTimestamp(make([]byte, timestampLen))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !ts.IsZero() {
		t.Fatalf("expected zero time, got %v", ts)
	}
	if _, err := decodeTimestamp([]byte{1, 2, 3}); err == nil {
		t.Fatalf("expected length error")
	}
}
