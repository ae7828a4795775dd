package handler

import (
	"strings"

	"warden/internal/approval"
	dErrors "warden/pkg/domain-errors"
)

const maxReasonLength = 500

// decisionRequest is the body of the console decision route.
type decisionRequest struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

func (r *decisionRequest) Validate() error {
	if _, err := approval.ParseDecision(strings.ToLower(strings.TrimSpace(r.Decision))); err != nil {
		return err
	}
	if len(r.Reason) > maxReasonLength {
		return dErrors.New(dErrors.CodeValidation, "reason is too long")
	}
	return nil
}

// decision returns the parsed decision. Call after Validate.
func (r *decisionRequest) decision() approval.Decision {
	d, _ := approval.ParseDecision(strings.ToLower(strings.TrimSpace(r.Decision)))
	return d
}
