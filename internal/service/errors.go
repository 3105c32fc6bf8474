package service

import "errors"

var (
	ErrUnknownPassType = errors.New("unknown_pass_type")
	ErrBadAuthToken    = errors.New("bad_auth_token")
	ErrLostRace        = errors.New("lost_identity_race")
	ErrNotIssued       = errors.New("pass_not_issued")
)
