package domain

import "errors"

// Domain errors
var (
	ErrMatchNotFound    = errors.New("match not found")
	ErrProfileNotFound  = errors.New("profile not found")
	ErrQuestionExpired  = errors.New("question expired")
	ErrMatchNotJoinable = errors.New("match is not joinable")
	ErrMatchNotPlaying  = errors.New("match is not in playing state")
	ErrMatchNotFinished = errors.New("match is not finished")
	ErrNotInMatch       = errors.New("player is not in this match")
	ErrAlreadyAnswered  = errors.New("question already answered")
	ErrAlreadySettled   = errors.New("match already settled for player")
	ErrQueueContention  = errors.New("matchmaking contention, try again")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrInternalError    = errors.New("internal server error")
)

// IsNotFoundError checks if an error is a not-found type error
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrMatchNotFound) || errors.Is(err, ErrProfileNotFound)
}

// IsUserError checks if an error should map to a 4xx response
func IsUserError(err error) bool {
	return errors.Is(err, ErrQuestionExpired) ||
		errors.Is(err, ErrMatchNotJoinable) ||
		errors.Is(err, ErrMatchNotPlaying) ||
		errors.Is(err, ErrMatchNotFinished) ||
		errors.Is(err, ErrNotInMatch) ||
		errors.Is(err, ErrAlreadyAnswered) ||
		errors.Is(err, ErrAlreadySettled) ||
		errors.Is(err, ErrInvalidRequest)
}
