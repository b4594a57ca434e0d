package service

import "errors"

var (
	ErrNotFound              = errors.New("error not found")
	ErrOversellRequested     = errors.New("error sell exceeds current position")
	ErrInsufficientOwnership = errors.New("error no shares held on ex-date")
	ErrDuplicateDividend     = errors.New("error dividend already recorded")
)
