package quiz

import "errors"

var (
	ErrQuizNotFound      = errors.New("quiz not found")
	ErrQuizNotOpen       = errors.New("quiz is not open yet")
	ErrAttemptNotFound   = errors.New("attempt not found")
	ErrForbidden         = errors.New("forbidden")
	ErrAlreadySubmitted  = errors.New("attempt already submitted")
	ErrTimeLimitExceeded = errors.New("time limit exceeded")
	ErrInvalidAnswer     = errors.New("invalid answer")
)
