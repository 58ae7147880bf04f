package password

import (
	"strings"
	"testing"
)

func TestValidateStrongPassword(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	res := p.Validate("Tr!cky-Horse91x")
	if !res.Valid {
		t.Fatalf("expected valid, got errors: %v", res.Errors)
	}
	if res.Score < 60 {
		t.Fatalf("expected score >= 60 for strong password, got %d", res.Score)
	}
}

func TestValidateShortPassword(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	res := p.Validate("abc")
	if res.Valid {
		t.Fatal("expected invalid result for short password")
	}

	found := false
	for _, e := range res.Errors {
		if strings.Contains(e, "too short") {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected length error, got: %v", res.Errors)
	}
}

func TestValidateClassToggles(t *testing.T) {
	cases := []struct {
		name     string
		cfg      PolicyConfig
		password string
		valid    bool
	}{
		{
			name:     "symbols not required",
			cfg:      PolicyConfig{MinLength: 8, RequireUppercase: true, RequireLowercase: true, RequireNumbers: true},
			password: "Akzwdm29",
			valid:    true,
		},
		{
			name:     "missing uppercase",
			cfg:      DefaultPolicyConfig(),
			password: "tr!ckyhorse91",
			valid:    false,
		},
		{
			name:     "missing digit",
			cfg:      DefaultPolicyConfig(),
			password: "Tr!ckyhorse",
			valid:    false,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := NewPolicy(tc.cfg).Validate(tc.password)
			if res.Valid != tc.valid {
				t.Fatalf("valid=%v, want %v (errors: %v)", res.Valid, tc.valid, res.Errors)
			}
		})
	}
}

func TestValidateRejectsSequentialRuns(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	for _, pw := range []string{"Xk!1234mwtz", "Qwerty!7kmp", "Abcdef!7kmp"} {
		res := p.Validate(pw)
		if res.Valid {
			t.Fatalf("expected sequential run in %q to be rejected", pw)
		}
	}
}

func TestValidateRejectsBannedWords(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	res := p.Validate("MyPassword!9k")
	if res.Valid {
		t.Fatal("expected banned substring to be rejected")
	}
}

func TestValidateRejectsLowDiversity(t *testing.T) {
	p := NewPolicy(PolicyConfig{MinLength: 8})

	res := p.Validate("aaaaaaaaaa")
	if res.Valid {
		t.Fatal("expected low-diversity password to be rejected")
	}
}

func TestValidateScoreClamped(t *testing.T) {
	p := NewPolicy(DefaultPolicyConfig())

	for _, pw := range []string{"", "a", "passwordpassword123abcqwerty"} {
		res := p.Validate(pw)
		if res.Score < 0 || res.Score > 100 {
			t.Fatalf("score %d out of range for %q", res.Score, pw)
		}
	}
}
