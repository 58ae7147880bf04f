package password

import (
	"strings"
	"unicode"
)

// PolicyConfig defines a public type used by authkit APIs.
//
// PolicyConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PolicyConfig struct {
	MinLength        int
	RequireUppercase bool
	RequireLowercase bool
	RequireNumbers   bool
	RequireSymbols   bool
}

// DefaultPolicyConfig returns the policy defaults: 8-character minimum with
// every character class required.
func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		MinLength:        8,
		RequireUppercase: true,
		RequireLowercase: true,
		RequireNumbers:   true,
		RequireSymbols:   true,
	}
}

// Result is the full outcome of a strength validation pass. Errors lists
// every violated rule so callers can render all of them at once; Score is a
// weighted sum clamped to [0, 100].
type Result struct {
	Valid  bool
	Errors []string
	Score  int
}

// Policy defines a public type used by authkit APIs.
//
// Policy instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Policy struct {
	config PolicyConfig
}

// NewPolicy describes the newpolicy operation and its observable behavior.
//
// NewPolicy does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func NewPolicy(cfg PolicyConfig) *Policy {
	if cfg.MinLength <= 0 {
		cfg.MinLength = DefaultPolicyConfig().MinLength
	}
	return &Policy{config: cfg}
}

// sequentialRuns covers digit runs, alphabet runs, and common keyboard rows.
var sequentialRuns = []string{
	"0123456789",
	"abcdefghijklmnopqrstuvwxyz",
	"qwertyuiop",
	"asdfghjkl",
	"zxcvbnm",
}

// bannedSubstrings is a small dictionary of passwords too common to allow
// even when they satisfy the class rules.
var bannedSubstrings = []string{
	"password",
	"passwort",
	"letmein",
	"welcome",
	"qwerty",
	"admin",
	"iloveyou",
	"monkey",
	"dragon",
}

const (
	weightLength    = 25
	weightClass     = 10 // per satisfied character class
	weightDiversity = 20
	weightExtra     = 15 // length comfortably above the minimum

	penaltySequential = 20
	penaltyBanned     = 30
)

// Validate checks password against the configured rules. It always returns a
// complete [Result]; it never panics on empty or non-ASCII input.
func (p *Policy) Validate(password string) Result {
	var res Result

	var (
		hasUpper  bool
		hasLower  bool
		hasDigit  bool
		hasSymbol bool
	)
	distinct := map[rune]struct{}{}
	for _, r := range password {
		distinct[r] = struct{}{}
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		default:
			hasSymbol = true
		}
	}

	if len(password) < p.config.MinLength {
		res.Errors = append(res.Errors, "password is too short")
	} else {
		res.Score += weightLength
	}
	if len(password) >= p.config.MinLength+4 {
		res.Score += weightExtra
	}

	if p.config.RequireUppercase && !hasUpper {
		res.Errors = append(res.Errors, "password must contain an uppercase letter")
	}
	if p.config.RequireLowercase && !hasLower {
		res.Errors = append(res.Errors, "password must contain a lowercase letter")
	}
	if p.config.RequireNumbers && !hasDigit {
		res.Errors = append(res.Errors, "password must contain a digit")
	}
	if p.config.RequireSymbols && !hasSymbol {
		res.Errors = append(res.Errors, "password must contain a symbol")
	}
	for _, ok := range []bool{hasUpper, hasLower, hasDigit, hasSymbol} {
		if ok {
			res.Score += weightClass
		}
	}

	// Diversity floor: repeated single characters ("aaaaaaaa") pass the class
	// checks but carry almost no entropy.
	if len(password) > 0 && len(distinct)*2 < len(password) {
		res.Errors = append(res.Errors, "password has too little character diversity")
	} else if len(password) > 0 {
		res.Score += weightDiversity
	}

	lower := strings.ToLower(password)
	if containsSequentialRun(lower, 4) {
		res.Errors = append(res.Errors, "password contains a sequential character run")
		res.Score -= penaltySequential
	}
	for _, banned := range bannedSubstrings {
		if strings.Contains(lower, banned) {
			res.Errors = append(res.Errors, "password contains a commonly used word")
			res.Score -= penaltyBanned
			break
		}
	}

	if res.Score < 0 {
		res.Score = 0
	}
	if res.Score > 100 {
		res.Score = 100
	}
	res.Valid = len(res.Errors) == 0

	return res
}

func containsSequentialRun(lower string, runLen int) bool {
	if len(lower) < runLen {
		return false
	}
	for _, run := range sequentialRuns {
		for i := 0; i+runLen <= len(run); i++ {
			if strings.Contains(lower, run[i:i+runLen]) {
				return true
			}
		}
	}
	return false
}
