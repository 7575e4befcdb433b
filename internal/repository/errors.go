package repository

import "errors"

var (
	ErrKnowledgeBaseNotFound  = errors.New("knowledge base not found")
	ErrMalformedKnowledgeBase = errors.New("malformed knowledge base")
	ErrUserNotFound           = errors.New("user not found")
	ErrUserExists             = errors.New("user already exists")
)
