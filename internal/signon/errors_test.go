package signon

import (
	"strings"
	"testing"
)

func TestReturnCodeMessages(t *testing.T) {
	tests := []struct {
		rc   ReturnCode
		want string
	}{
		{RCPasswordIncorrect, "Incorrect password"},
		{RCPasswordIncorrectDisable, "disabled on the next failed sign-on"},
		{RCUserIDUnknown, "User ID is not known"},
		{RCUserIDDisabled, "User ID has been disabled"},
		{RCPasswordLengthInvalid, "Password length is not valid"},
		{RCPasswordExpired, "Password has expired"},
	}
	for _, tc := range tests {
		got := tc.rc.Message()
		if !strings.Contains(got, tc.want) {
			t.Fatalf("rc=0x%08X: %q does not contain %q", uint32(tc.rc), got, tc.want)
		}
	}
}

func TestReturnCodeUnknownDegradesGracefully(t *testing.T) {
	got := ReturnCode(0x00990099).Message()
	if !strings.Contains(got, "Unknown error") {
		t.Fatalf("unexpected message: %q", got)
	}
	if !strings.Contains(got, "0x00990099") {
		t.Fatalf("message should carry the raw code: %q", got)
	}
}
