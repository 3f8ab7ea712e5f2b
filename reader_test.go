package tokenx

import (
	"encoding/base64"
	"reflect"
	"strings"
	"testing"
)

func tokenWithPayload(payload string) string {
	return "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".sig"
}

func TestDecodeToken_SegmentCount(t *testing.T) {
	payload := base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"1"}`))
	cases := []string{
		"",
		"abc",
		"a." + payload,
		"a." + payload + ".b.c",
		"...",
		"a.." + payload,
	}
	for _, token := range cases {
		if got := DecodeToken(token); got != nil {
			t.Fatalf("DecodeToken(%q) = %v, want nil", token, got)
		}
	}
}

func TestDecodeToken_BadPayload(t *testing.T) {
	cases := map[string]string{
		"not base64":     "h.!!!!.s",
		"padding need 3": "h.abcde.s",
		"not json":       tokenWithPayload("hello"),
		"truncated json": tokenWithPayload(`{"Role":`),
		"json array":     tokenWithPayload(`[1,2]`),
		"json null":      tokenWithPayload(`null`),
		"json string":    tokenWithPayload(`"admin"`),
		"invalid utf8":   "h." + base64.RawURLEncoding.EncodeToString([]byte{0xff, 0xfe, '{', '}'}) + ".s",
		"empty payload":  "h..s",
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			if got := DecodeToken(token); got != nil {
				t.Fatalf("expected nil, got %v", got)
			}
		})
	}
}

func TestParseClaims_Codes(t *testing.T) {
	cases := []struct {
		token string
		code  ErrorCode
	}{
		{"", ErrCodeEmptyToken},
		{"a.b", ErrCodeMalformed},
		{"h.abcde.s", ErrCodeInvalidEncoding},
		{tokenWithPayload("nope"), ErrCodeInvalidPayload},
		{tokenWithPayload("[]"), ErrCodeInvalidPayload},
	}
	for _, tc := range cases {
		_, err := ParseClaims(tc.token)
		if err == nil {
			t.Fatalf("ParseClaims(%q): expected error", tc.token)
		}
		code, ok := CodeOf(err)
		if !ok || code != tc.code {
			t.Fatalf("ParseClaims(%q): got %v, want %s", tc.token, err, tc.code)
		}
	}
}

func TestDecodeToken_URLSafeAlphabet(t *testing.T) {
	payload := `{"name":"<<??>>","x":"~~~"}`
	token := tokenWithPayload(payload)
	if !strings.ContainsAny(strings.Split(token, ".")[1], "-_") {
		t.Fatalf("test payload should exercise the url-safe alphabet: %s", token)
	}
	claims := DecodeToken(token)
	if claims == nil {
		t.Fatalf("expected claims")
	}
	if claims["name"] != "<<??>>" {
		t.Fatalf("unexpected name: %v", claims["name"])
	}
}

func TestDecodeToken_PaddedPayload(t *testing.T) {
	payload := base64.URLEncoding.EncodeToString([]byte(`{"sub":"123"}`))
	if !strings.HasSuffix(payload, "=") {
		t.Fatalf("expected padded payload, got %s", payload)
	}
	claims := DecodeToken("h." + payload + ".s")
	if claims == nil || claims["sub"] != "123" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestDecodeValue_NonStrings(t *testing.T) {
	var nilString *string
	for _, v := range []any{nil, 123, 1.5, true, nilString, map[string]any{}, ""} {
		if got := DecodeValue(v); got != nil {
			t.Fatalf("DecodeValue(%#v) = %v, want nil", v, got)
		}
	}

	token := tokenWithPayload(`{"sub":"1"}`)
	if DecodeValue(token) == nil || DecodeValue(&token) == nil || DecodeValue([]byte(token)) == nil {
		t.Fatalf("expected string-like values to decode")
	}
}

func TestDecodeToken_RoundTrip(t *testing.T) {
	token, err := EncodeUnsigned(ClaimsMap{"sub": "123"})
	if err != nil {
		t.Fatalf("EncodeUnsigned: %v", err)
	}
	got := DecodeToken(token)
	want := ClaimsMap{"sub": "123"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch: got %v, want %v", got, want)
	}
}

func TestExtractRole(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		want    string
	}{
		{"upper key", `{"Role":"Admin"}`, "admin"},
		{"lower key", `{"role":"STAFF"}`, "staff"},
		{"upper key wins", `{"Role":"Center","role":"parent"}`, "center"},
		{"null falls through", `{"Role":null,"role":"Parent"}`, "parent"},
		{"missing", `{"sub":"1"}`, ""},
		{"number", `{"Role":7}`, "7"},
		{"array", `{"Role":["Admin","Staff"]}`, "admin,staff"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ExtractRole(tokenWithPayload(tc.payload)); got != tc.want {
				t.Fatalf("ExtractRole = %q, want %q", got, tc.want)
			}
		})
	}

	if got := ExtractRole("garbage"); got != "" {
		t.Fatalf("ExtractRole on garbage = %q", got)
	}
}

func TestBuildIdentity(t *testing.T) {
	token := tokenWithPayload(`{"UserId":"u1","Email":"a@b.com","Role":"Parent"}`)
	identity := BuildIdentity(token)
	if identity == nil {
		t.Fatalf("expected identity")
	}

	want := &Identity{
		ID:    Claim{Value: "u1", Present: true},
		Email: Claim{Value: "a@b.com", Present: true},
		Role:  "parent",
		Raw:   ClaimsMap{"UserId": "u1", "Email": "a@b.com", "Role": "Parent"},
	}
	if !reflect.DeepEqual(identity, want) {
		t.Fatalf("unexpected identity: %+v", identity)
	}
	if identity.Name.Present || identity.PhoneNumber.Present {
		t.Fatalf("expected name and phone to be absent")
	}
}

func TestBuildIdentity_Precedence(t *testing.T) {
	token := tokenWithPayload(`{
		"sub":"s-1","userId":"u-2",
		"FullName":"Full","name":"lower",
		"email":"x@y.z",
		"phoneNumber":"0900","PhoneNumber":"0800"
	}`)
	identity := BuildIdentity(token)
	if identity == nil {
		t.Fatalf("expected identity")
	}
	if got := identity.ID.String(); got != "s-1" {
		t.Fatalf("id: got %q", got)
	}
	if got := identity.Name.String(); got != "Full" {
		t.Fatalf("name: got %q", got)
	}
	if got := identity.Email.String(); got != "x@y.z" {
		t.Fatalf("email: got %q", got)
	}
	if got := identity.PhoneNumber.String(); got != "0800" {
		t.Fatalf("phone: got %q", got)
	}
	if identity.Role != "" {
		t.Fatalf("role: got %q", identity.Role)
	}
}

func TestBuildIdentity_NullPolicy(t *testing.T) {
	token := tokenWithPayload(`{"UserId":null,"sub":"s-1"}`)

	identity := BuildIdentity(token)
	if !identity.ID.IsNull() {
		t.Fatalf("expected explicit null to stop the chain, got %+v", identity.ID)
	}
	if _, ok := identity.ID.Text(); ok {
		t.Fatalf("null id should not report text")
	}

	reader, err := NewReader(ReaderConfig{NullPolicy: NullIsAbsent})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	identity = reader.BuildIdentity(token)
	if id, ok := identity.ID.Text(); !ok || id != "s-1" {
		t.Fatalf("expected null to be skipped, got %+v", identity.ID)
	}
}

func TestBuildIdentity_MalformedAndIdempotent(t *testing.T) {
	if BuildIdentity("a.b") != nil {
		t.Fatalf("expected nil identity for malformed token")
	}

	token := tokenWithPayload(`{"sub":"1","Role":"Staff","UserName":"Lan"}`)
	first := BuildIdentity(token)
	second := BuildIdentity(token)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("identities differ: %+v vs %+v", first, second)
	}
}

func TestBuildIdentity_EmptyClaims(t *testing.T) {
	identity := BuildIdentity(tokenWithPayload(`{}`))
	if identity == nil {
		t.Fatalf("valid token with no claims should still yield an identity")
	}
	if !identity.Anonymous() {
		t.Fatalf("expected anonymous identity")
	}
}

func TestNewReader_CustomKeys(t *testing.T) {
	reader, err := NewReader(ReaderConfig{RoleKeys: []string{"http://schemas.microsoft.com/ws/2008/06/identity/claims/role"}})
	if err != nil {
		t.Fatalf("NewReader: %v", err)
	}
	token := tokenWithPayload(`{"http://schemas.microsoft.com/ws/2008/06/identity/claims/role":"Admin","Role":"staff"}`)
	if got := reader.ExtractRole(token); got != "admin" {
		t.Fatalf("ExtractRole = %q", got)
	}

	if _, err := NewReader(ReaderConfig{IDKeys: []string{""}}); err == nil {
		t.Fatalf("expected error for empty key")
	}
	if _, err := NewReader(ReaderConfig{NullPolicy: NullPolicy(9)}); err == nil {
		t.Fatalf("expected error for unknown null policy")
	}
}
