package antifraud

import (
	"context"
	"strings"
	"unicode"
)

// Check inspects one dimension of a submission. Implementations must be pure
// with respect to participant and scoring context; the only allowed side
// channel is the collaborator injected at construction time.
type Check interface {
	Name() string
	Run(ctx context.Context, p Participant, sc ScoringContext) CheckResult
}

// deviceFingerprintCheck flags submissions whose account ID duplicates an
// existing stored submission. With no context fact, uniqueness is assumed.
type deviceFingerprintCheck struct{}

func (deviceFingerprintCheck) Name() string { return CheckDeviceFingerprint }

func (c deviceFingerprintCheck) Run(_ context.Context, _ Participant, sc ScoringContext) CheckResult {
	if sc.IsAccountUnique == nil || *sc.IsAccountUnique {
		return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "account is unique"}
	}
	return CheckResult{Name: c.Name(), Passed: false, Impact: 40, Message: "duplicate account id"}
}

// phoneValidationCheck accepts phones whose digit count, after stripping
// everything that isn't a digit, falls in [10,15].
type phoneValidationCheck struct{}

func (phoneValidationCheck) Name() string { return CheckPhoneValidation }

func (c phoneValidationCheck) Run(_ context.Context, p Participant, _ ScoringContext) CheckResult {
	digits := 0
	for _, r := range p.PhoneNumber {
		if unicode.IsDigit(r) {
			digits++
		}
	}
	if digits >= 10 && digits <= 15 {
		return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "phone number is valid"}
	}
	return CheckResult{Name: c.Name(), Passed: false, Impact: 25, Message: "invalid phone number"}
}

// CardExistsFunc reports whether a loyalty card number is already stored.
type CardExistsFunc func(ctx context.Context, cardNumber string) (bool, error)

// loyaltyCardUniqueCheck consults storage for a card-number collision. A
// lookup error counts as passing: infrastructure failures must not block
// registrations, they only under-flag.
type loyaltyCardUniqueCheck struct {
	exists CardExistsFunc
	logErr func(name string, err error)
}

func (loyaltyCardUniqueCheck) Name() string { return CheckLoyaltyCardUnique }

func (c loyaltyCardUniqueCheck) Run(ctx context.Context, p Participant, _ ScoringContext) CheckResult {
	if c.exists == nil || p.LoyaltyCardNumber == "" {
		return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "loyalty card not checked"}
	}
	taken, err := c.exists(ctx, p.LoyaltyCardNumber)
	if err != nil {
		if c.logErr != nil {
			c.logErr(c.Name(), err)
		}
		return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "loyalty card lookup unavailable"}
	}
	if taken {
		return CheckResult{Name: c.Name(), Passed: false, Impact: 60, Message: "loyalty card already registered"}
	}
	return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "loyalty card is unique"}
}

// loyaltyCardFormatCheck rejects card numbers with the wrong configured
// length, all-identical digits, or a strictly ascending/descending digit run.
type loyaltyCardFormatCheck struct {
	cardLength int
}

func (loyaltyCardFormatCheck) Name() string { return CheckLoyaltyCardFormat }

func (c loyaltyCardFormatCheck) Run(_ context.Context, p Participant, _ ScoringContext) CheckResult {
	card := strings.TrimSpace(p.LoyaltyCardNumber)
	if card == "" {
		return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "loyalty card not provided"}
	}
	switch {
	case c.cardLength > 0 && len(card) != c.cardLength:
		return CheckResult{Name: c.Name(), Passed: false, Impact: 25, Message: "loyalty card has wrong length"}
	case allSameDigits(card):
		return CheckResult{Name: c.Name(), Passed: false, Impact: 25, Message: "loyalty card digits are all identical"}
	case isSequentialDigits(card):
		return CheckResult{Name: c.Name(), Passed: false, Impact: 25, Message: "loyalty card is a digit sequence"}
	}
	return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "loyalty card format is plausible"}
}

func allSameDigits(s string) bool {
	if len(s) < 2 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

// isSequentialDigits reports a full ascending or descending run such as
// 123456 or 987654. Non-digit characters disqualify the pattern.
func isSequentialDigits(s string) bool {
	if len(s) < 3 {
		return false
	}
	asc, desc := true, true
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
		if i == 0 {
			continue
		}
		if s[i] != s[i-1]+1 {
			asc = false
		}
		if s[i] != s[i-1]-1 {
			desc = false
		}
	}
	return asc || desc
}

// photoHashCheck: missing hash costs 30; a present hash with stored
// duplicates costs 60. The presence check supersedes the duplicate one, so
// only one of the two ever fires.
type photoHashCheck struct{}

func (photoHashCheck) Name() string { return CheckPhotoHash }

func (c photoHashCheck) Run(_ context.Context, p Participant, sc ScoringContext) CheckResult {
	if p.PhotoHash == "" {
		return CheckResult{Name: c.Name(), Passed: false, Impact: 30, Message: "photo hash is missing"}
	}
	if sc.DuplicatePhotoCount > 0 {
		return CheckResult{Name: c.Name(), Passed: false, Impact: 60, Message: "duplicate photo found"}
	}
	return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "photo is original"}
}

// behaviorAnalysisCheck applies cheap heuristics over the profile fields: a
// very short name (+10) and a very short username (+5) each raise risk.
type behaviorAnalysisCheck struct{}

func (behaviorAnalysisCheck) Name() string { return CheckBehaviorAnalysis }

func (c behaviorAnalysisCheck) Run(_ context.Context, p Participant, _ ScoringContext) CheckResult {
	impact := 0
	var messages []string
	if len(strings.TrimSpace(p.Name)) < 2 {
		impact += 10
		messages = append(messages, "name is too short")
	}
	if p.Username != "" && len(strings.TrimSpace(p.Username)) < 3 {
		impact += 5
		messages = append(messages, "username is too short")
	}
	if impact == 0 {
		return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "behavior looks normal"}
	}
	return CheckResult{Name: c.Name(), Passed: false, Impact: impact, Message: strings.Join(messages, "; ")}
}

// velocityCheck flags a system-wide burst: more than 30 registrations in the
// trailing 60 seconds.
type velocityCheck struct{}

func (velocityCheck) Name() string { return CheckVelocity }

func (c velocityCheck) Run(_ context.Context, _ Participant, sc ScoringContext) CheckResult {
	if sc.RecentRegistrations60s > 30 {
		return CheckResult{Name: c.Name(), Passed: false, Impact: 15, Message: "abnormal registration velocity"}
	}
	return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "registration velocity is normal"}
}

// geoLocationCheck always passes: no geodata is collected.
type geoLocationCheck struct{}

func (geoLocationCheck) Name() string { return CheckGeoLocation }

func (c geoLocationCheck) Run(_ context.Context, _ Participant, _ ScoringContext) CheckResult {
	return CheckResult{Name: c.Name(), Passed: true, Impact: 0, Message: "geolocation is not checked"}
}
