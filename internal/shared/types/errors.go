package types

import "errors"

var (
	ErrNoProfilesFound      = errors.New("no AWS profiles found. Please configure AWS CLI first")
	ErrNoValidProfilesFound = errors.New("none of the specified profiles were found in AWS configuration")
	ErrNoProfilesResolved   = errors.New("no profile could be resolved; check your AWS credentials")
	ErrUnsupportedReport    = errors.New("unsupported report type")
)
