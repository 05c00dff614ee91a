// Package validation checks structural and business validity of vault
// requests before they reach the lifecycle service. All functions are pure:
// malformed input yields field-level error descriptors, never a panic.
package validation

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"custodia/internal/vault"
	id "custodia/pkg/domain"
)

// Field error codes.
const (
	CodeRequired           = "required"
	CodeInvalidAmount      = "invalid_amount"
	CodeTimestampMalformed = "timestamp_malformed"
	CodeTimestampPast      = "timestamp_past"
	CodeInvalidMilestone   = "invalid_milestone"
	CodeDuplicateMilestone = "duplicate_milestone_id"
)

// FieldError describes one invalid field.
type FieldError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error aggregates every field error found in a request. The whole request
// is rejected as a unit; partial validity is never accepted.
type Error struct {
	Fields []FieldError
}

func (e *Error) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = fmt.Sprintf("%s: %s", f.Field, f.Code)
	}
	return "invalid request: " + strings.Join(parts, "; ")
}

// amountPattern admits unsigned decimal strings only. Amounts stay strings
// end to end; floats would lose precision.
var amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]+)?$`)

// NormalizeCreate validates raw creation input and returns the normalized
// command, or an *Error listing every failing field.
func NormalizeCreate(in vault.CreateVaultInput, now time.Time) (vault.CreateVaultCommand, error) {
	var verr Error

	missing := missingFields(in)
	if len(missing) > 0 {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   strings.Join(missing, ", "),
			Code:    CodeRequired,
			Message: "missing required fields: " + strings.Join(missing, ", "),
		})
	}

	if in.Amount != "" && !isPositiveDecimal(in.Amount) {
		verr.Fields = append(verr.Fields, FieldError{
			Field:   "amount",
			Code:    CodeInvalidAmount,
			Message: "amount must be a positive decimal string",
		})
	}

	var end time.Time
	if in.EndTimestamp != "" {
		parsed, err := time.Parse(time.RFC3339, in.EndTimestamp)
		switch {
		case err != nil:
			verr.Fields = append(verr.Fields, FieldError{
				Field:   "endTimestamp",
				Code:    CodeTimestampMalformed,
				Message: "endTimestamp must be RFC 3339 with an explicit timezone",
			})
		case !parsed.After(now):
			verr.Fields = append(verr.Fields, FieldError{
				Field:   "endTimestamp",
				Code:    CodeTimestampPast,
				Message: "endTimestamp must be strictly in the future",
			})
		default:
			end = parsed.UTC()
		}
	}

	milestones, msErrs := normalizeMilestones(in.Milestones)
	verr.Fields = append(verr.Fields, msErrs...)

	if len(verr.Fields) > 0 {
		return vault.CreateVaultCommand{}, &verr
	}

	return vault.CreateVaultCommand{
		Creator:            id.ActorID(strings.TrimSpace(in.Creator)),
		Amount:             strings.TrimSpace(in.Amount),
		EndTimestamp:       end,
		SuccessDestination: strings.TrimSpace(in.SuccessDestination),
		FailureDestination: strings.TrimSpace(in.FailureDestination),
		Milestones:         milestones,
	}, nil
}

func missingFields(in vault.CreateVaultInput) []string {
	var missing []string
	if strings.TrimSpace(in.Creator) == "" {
		missing = append(missing, "creator")
	}
	if strings.TrimSpace(in.Amount) == "" {
		missing = append(missing, "amount")
	}
	if strings.TrimSpace(in.EndTimestamp) == "" {
		missing = append(missing, "endTimestamp")
	}
	if strings.TrimSpace(in.SuccessDestination) == "" {
		missing = append(missing, "successDestination")
	}
	if strings.TrimSpace(in.FailureDestination) == "" {
		missing = append(missing, "failureDestination")
	}
	return missing
}

func isPositiveDecimal(s string) bool {
	s = strings.TrimSpace(s)
	if !amountPattern.MatchString(s) {
		return false
	}
	// Reject zero in any spelling ("0", "0.00", "000").
	return strings.ContainsAny(s, "123456789")
}

// normalizeMilestones validates the milestone list all-or-nothing: one bad
// entry rejects the whole request.
func normalizeMilestones(in []vault.MilestoneInput) ([]vault.MilestoneCommand, []FieldError) {
	if len(in) == 0 {
		return nil, nil
	}
	var errs []FieldError
	seen := make(map[string]bool, len(in))
	out := make([]vault.MilestoneCommand, 0, len(in))
	for i, m := range in {
		title := strings.TrimSpace(m.Title)
		verifier := strings.TrimSpace(m.VerifierID)
		if title == "" || verifier == "" {
			errs = append(errs, FieldError{
				Field:   fmt.Sprintf("milestones[%d]", i),
				Code:    CodeInvalidMilestone,
				Message: "each milestone requires a title and a verifierId",
			})
			continue
		}
		msID := strings.TrimSpace(m.ID)
		if msID != "" {
			if seen[msID] {
				errs = append(errs, FieldError{
					Field:   fmt.Sprintf("milestones[%d].id", i),
					Code:    CodeDuplicateMilestone,
					Message: "milestone ids must be unique within a vault",
				})
				continue
			}
			seen[msID] = true
		}
		out = append(out, vault.MilestoneCommand{
			ID:          msID,
			Title:       title,
			Description: strings.TrimSpace(m.Description),
			VerifierID:  id.ActorID(verifier),
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return out, nil
}

// ParseRole normalizes a role header value; unknown roles pass through as-is
// so authorization decisions stay in the lifecycle service.
func ParseRole(s string) vault.Role {
	return vault.Role(strings.ToLower(strings.TrimSpace(s)))
}
