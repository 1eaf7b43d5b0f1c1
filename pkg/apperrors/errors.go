package apperrors

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrSessionActive      = errors.New("generation session already active for this report")
	ErrInsufficientPoints = errors.New("insufficient points balance")
	ErrEmptySectionList   = errors.New("report has no sections to generate")
	ErrTemplateNotFound   = errors.New("template not found")
	ErrVersionConflict    = errors.New("report was modified by another writer")
)
