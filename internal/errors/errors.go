package errors

import "errors"

var (
	ErrTaskGroupNotFound = errors.New("task group not found")
	ErrSourceNotFound    = errors.New("source not found")
	ErrNoCredential      = errors.New("no LLM credential configured for user")
	ErrPoolClosed        = errors.New("llm session pool is closed")
	ErrInvalidToken      = errors.New("invalid observer token")
	ErrUnknownIdentity   = errors.New("token names an unknown identity")
)
