package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores and snapshot layers return
// these (optionally wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures:
// - ErrNotFound: entity, decision, or record does not exist
// - ErrAmbiguous: a lookup matched more than one distinct entity
// - ErrInvalidState: entity in wrong state for requested transition
// - ErrUnavailable: backing store temporarily unavailable
// - ErrReadOnly: mutation attempted on write-once storage
//
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	ErrNotFound     = errors.New("not found")
	ErrAmbiguous    = errors.New("ambiguous")
	ErrInvalidState = errors.New("invalid state")
	ErrUnavailable  = errors.New("unavailable")
	ErrReadOnly     = errors.New("read-only")
)
