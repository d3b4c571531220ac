// Package auth produces the encrypted credential blob the signon host
// expects. The encoding is selected by the password level negotiated
// during the seed exchange and must match the host bit-for-bit; a
// mismatch is indistinguishable from a wrong password.
package auth

import (
	"crypto/des"
	"crypto/sha1"
	"crypto/sha512"
	"errors"
	"fmt"
	"strings"
	"unicode/utf16"

	"golang.org/x/crypto/pbkdf2"

	"github.com/hostbridge/signon/internal/ebcdic"
)

// PasswordLevel is the credential-encryption variant negotiated with
// the host (its QPWDLVL).
type PasswordLevel uint16

const (
	// Levels 0 and 1 use the legacy DES substitute.
	LevelDES0 PasswordLevel = 0
	LevelDES1 PasswordLevel = 1
	// Levels 2 and 3 use the SHA-1 substitute.
	LevelSHA1   PasswordLevel = 2
	LevelSHA1v3 PasswordLevel = 3
	// Level 4 derives the token with PBKDF2-HMAC-SHA512.
	LevelSHA512 PasswordLevel = 4
)

const (
	SeedLen      = 8
	UserIDWidth  = 10
	pbkdf2Rounds = 10022
	tokenLen512  = 64
)

var (
	ErrEmptyUserID     = errors.New("auth: user id is empty")
	ErrUserIDTooLong   = errors.New("auth: user id longer than 10 characters")
	ErrEmptyPassword   = errors.New("auth: password is empty")
	ErrPasswordTooLong = errors.New("auth: password too long for negotiated level")
	ErrLeadingBlank    = errors.New("auth: password starts with a blank")
	ErrBadSeedLength   = errors.New("auth: seed must be 8 bytes")
	ErrUnknownLevel    = errors.New("auth: unknown password level")
)

// Substitute sequence number; the handshake carries exactly one
// credential, so it is constant.
var passwordSequence = [SeedLen]byte{0, 0, 0, 0, 0, 0, 0, 1}

// EncryptPassword derives the credential blob for the negotiated
// level. Pure function of its inputs: same inputs, same blob.
func EncryptPassword(userID, password string, clientSeed, serverSeed []byte, level PasswordLevel) ([]byte, error) {
	if userID == "" {
		return nil, ErrEmptyUserID
	}
	if len(userID) > UserIDWidth {
		return nil, ErrUserIDTooLong
	}
	if password == "" {
		return nil, ErrEmptyPassword
	}
	if strings.HasPrefix(password, " ") {
		return nil, ErrLeadingBlank
	}
	if len(clientSeed) != SeedLen || len(serverSeed) != SeedLen {
		return nil, ErrBadSeedLength
	}

	switch level {
	case LevelDES0, LevelDES1:
		return encryptDES(userID, password, clientSeed, serverSeed)
	case LevelSHA1, LevelSHA1v3:
		return encryptSHA1(userID, password, clientSeed, serverSeed)
	case LevelSHA512:
		return encryptSHA512(userID, password, clientSeed, serverSeed)
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownLevel, level)
	}
}

// BlobLen reports the credential-blob size for a level, used to size
// the signon info request frame.
func BlobLen(level PasswordLevel) (int, error) {
	switch level {
	case LevelDES0, LevelDES1:
		return des.BlockSize, nil
	case LevelSHA1, LevelSHA1v3:
		return sha1.Size, nil
	case LevelSHA512:
		return sha512.Size, nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrUnknownLevel, level)
	}
}

// encryptDES is the legacy substitute: the uppercased EBCDIC password
// forms a DES key, the folded EBCDIC user id is encrypted into a
// token, and the token encrypts the seed mix.
func encryptDES(userID, password string, clientSeed, serverSeed []byte) ([]byte, error) {
	if len(password) > UserIDWidth {
		return nil, ErrPasswordTooLong
	}
	ud, err := ebcdic.EncodePadded(strings.ToUpper(userID), UserIDWidth)
	if err != nil {
		return nil, fmt.Errorf("auth: encode user id: %w", err)
	}
	pw, err := ebcdic.EncodePadded(strings.ToUpper(password), UserIDWidth)
	if err != nil {
		return nil, fmt.Errorf("auth: encode password: %w", err)
	}

	key := make([]byte, des.BlockSize)
	copy(key, pw[:des.BlockSize])
	// Fold the 9th and 10th characters back into the key before
	// whitening so they still influence the result.
	key[0] ^= pw[8]
	key[1] ^= pw[9]
	for i := range key {
		key[i] = (key[i] ^ 0x55) << 1
	}

	block := make([]byte, des.BlockSize)
	copy(block, ud[:des.BlockSize])
	block[0] ^= ud[8]
	block[1] ^= ud[9]

	kc, err := des.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("auth: des key: %w", err)
	}
	token := make([]byte, des.BlockSize)
	kc.Encrypt(token, block)

	mix := make([]byte, des.BlockSize)
	for i := range mix {
		mix[i] = clientSeed[i] ^ serverSeed[i] ^ passwordSequence[i]
	}
	tc, err := des.NewCipher(token)
	if err != nil {
		return nil, fmt.Errorf("auth: des token: %w", err)
	}
	out := make([]byte, des.BlockSize)
	tc.Encrypt(out, mix)
	return out, nil
}

func encryptSHA1(userID, password string, clientSeed, serverSeed []byte) ([]byte, error) {
	udBytes, pwBytes, err := utf16Credentials(userID, password)
	if err != nil {
		return nil, err
	}

	th := sha1.New()
	th.Write(udBytes)
	th.Write(pwBytes)
	token := th.Sum(nil)

	h := sha1.New()
	h.Write(token)
	h.Write(serverSeed)
	h.Write(clientSeed)
	h.Write(udBytes)
	h.Write(passwordSequence[:])
	return h.Sum(nil), nil
}

func encryptSHA512(userID, password string, clientSeed, serverSeed []byte) ([]byte, error) {
	udBytes, pwBytes, err := utf16Credentials(userID, password)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, 0, len(udBytes)+SeedLen)
	salt = append(salt, udBytes...)
	salt = append(salt, serverSeed...)
	token := pbkdf2.Key(pwBytes, salt, pbkdf2Rounds, tokenLen512, sha512.New)

	h := sha512.New()
	h.Write(token)
	h.Write(serverSeed)
	h.Write(clientSeed)
	h.Write(udBytes)
	h.Write(passwordSequence[:])
	return h.Sum(nil), nil
}

func utf16Credentials(userID, password string) (ud, pw []byte, err error) {
	if len(password) > 128 {
		return nil, nil, ErrPasswordTooLong
	}
	padded := strings.ToUpper(userID)
	if len(padded) < UserIDWidth {
		padded += strings.Repeat(" ", UserIDWidth-len(padded))
	}
	return utf16be(padded), utf16be(password), nil
}

func utf16be(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 2*len(units))
	for i, u := range units {
		out[2*i] = byte(u >> 8)
		out[2*i+1] = byte(u)
	}
	return out
}
