package models

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrBadReference        = errors.New("malformed identifier")
	ErrValidation          = errors.New("validation failed")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidStatus       = errors.New("unknown bid status")
	ErrInvalidTransition   = errors.New("status transition not allowed")
	ErrStatusConflict      = errors.New("bid status changed concurrently")
	ErrAttachmentsDisabled = errors.New("attachments are not configured")
)
