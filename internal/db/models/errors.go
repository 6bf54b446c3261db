package models

import "errors"

// Record-not-found sentinels. The service layer checks these with errors.Is
// and maps them onto the domain error taxonomy.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrProjectNotFound    = errors.New("project not found")
	ErrMembershipNotFound = errors.New("membership not found")
	ErrSnippetNotFound    = errors.New("snippet not found")
)
