package submissions

import "errors"

var (
	ErrUnsupportedFile = errors.New("unsupported file type")
	ErrEmptyText       = errors.New("no text extracted from resume")
	ErrExtractFailed   = errors.New("resume text extraction failed")
	ErrUploadFailed    = errors.New("resume upload failed")
	ErrLLM             = errors.New("llm scoring failed")
)
