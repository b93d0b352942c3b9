package services

import "errors"

// Sentinel errors shared across services. Fiber handlers map these to HTTP
// statuses; anything else is treated as a store failure and logged.
var (
	ErrRuleNotFound        = errors.New("no active reward rule matches")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrInsufficientBalance = errors.New("insufficient points balance")
	ErrAlreadyFulfilled    = errors.New("redemption request already fulfilled")
	ErrAlreadyIssued       = errors.New("referral already has an issued job")
	ErrNotPartnerAccount   = errors.New("redemptions are available to partner accounts only")
)
