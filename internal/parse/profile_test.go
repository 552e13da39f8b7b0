package parse

import "testing"

func strPtr(s string) *string { return &s }

func TestProfile(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		email *string
		phone *string
	}{
		{
			name:  "both fields",
			input: "email: a@b.com\nphone: 555\n",
			email: strPtr("a@b.com"),
			phone: strPtr("555"),
		},
		{
			name:  "no recognized keys",
			input: "hello world",
		},
		{
			name:  "later email wins",
			input: "email: first@x.com\nemail: second@x.com",
			email: strPtr("second@x.com"),
		},
		{
			name:  "case insensitive keys",
			input: "EMAIL: a@b.com\nPhone: 12345",
			email: strPtr("a@b.com"),
			phone: strPtr("12345"),
		},
		{
			name:  "whitespace trimmed",
			input: "  email :  padded@x.com  ",
			email: strPtr("padded@x.com"),
		},
		{
			name:  "unrecognized lines ignored",
			input: "name: bob\nemail: bob@x.com\nage: 30",
			email: strPtr("bob@x.com"),
		},
		{
			name:  "value keeps inner colons",
			input: "phone: +1:555:0100",
			phone: strPtr("+1:555:0100"),
		},
		{
			name:  "empty input",
			input: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Profile(tt.input)
			if !ptrEqual(got.Email, tt.email) {
				t.Errorf("email = %v, want %v", deref(got.Email), deref(tt.email))
			}
			if !ptrEqual(got.Phone, tt.phone) {
				t.Errorf("phone = %v, want %v", deref(got.Phone), deref(tt.phone))
			}
		})
	}
}

func TestProfileUpdateEmpty(t *testing.T) {
	t.Parallel()

	if !Profile("just chatting").Empty() {
		t.Error("expected empty update")
	}
	if Profile("email: x@y.com").Empty() {
		t.Error("expected non-empty update")
	}
}

func TestHasProfileKeys(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  bool
	}{
		{"email: a@b.com", true},
		{"phone: 555", true},
		{"hello there", false},
		{"emailish: nope", false},
	}
	for _, tt := range tests {
		if got := HasProfileKeys(tt.input); got != tt.want {
			t.Errorf("HasProfileKeys(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func ptrEqual(a, b *string) bool {
	if (a == nil) != (b == nil) {
		return false
	}
	return a == nil || *a == *b
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
