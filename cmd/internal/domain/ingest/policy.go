package ingest

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Policy decides how an incoming batch is merged with the stored companies.
type Policy string

const (
	// PolicyReplaceAll deletes every stored company before inserting the batch.
	// It is destructive and must be confirmed by the caller.
	PolicyReplaceAll Policy = "REPLACE_ALL"

	// PolicyAppendNewOnly inserts unknown CINs and leaves known ones untouched,
	// so the first upload of a CIN wins forever.
	PolicyAppendNewOnly Policy = "APPEND_NEW_ONLY"

	// PolicyUpsert inserts unknown CINs and overwrites Name/State/Email of
	// known ones with the incoming values.
	PolicyUpsert Policy = "UPSERT"
)

const DefaultPolicy = PolicyUpsert

var ErrUnknownPolicy = errors.New("unknown reconciliation policy")

var policies = []Policy{PolicyReplaceAll, PolicyAppendNewOnly, PolicyUpsert}

// ParsePolicy accepts the policy names case-insensitively, with either
// '_' or '-' as separator ("upsert", "append-new-only").
func ParsePolicy(s string) (Policy, error) {
	name := strings.ToUpper(strings.TrimSpace(s))
	name = strings.ReplaceAll(name, "-", "_")

	for _, p := range policies {
		if string(p) == name {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownPolicy, s)
}

func (p Policy) Valid() bool {
	return slices.Contains(policies, p)
}

func (p Policy) Destructive() bool {
	return p == PolicyReplaceAll
}

// KeyCase is the normalization rule applied to CINs before they are compared.
type KeyCase string

const (
	KeyCaseUpper KeyCase = "upper"
	KeyCaseNone  KeyCase = "none"
)

var ErrUnknownKeyCase = errors.New("unknown key case rule")

func ParseKeyCase(s string) (KeyCase, error) {
	switch KeyCase(strings.ToLower(strings.TrimSpace(s))) {
	case KeyCaseUpper, "":
		return KeyCaseUpper, nil
	case KeyCaseNone:
		return KeyCaseNone, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKeyCase, s)
}

func (k KeyCase) apply(cin string) string {
	if k == KeyCaseNone {
		return cin
	}
	return strings.ToUpper(cin)
}
