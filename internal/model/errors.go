package model

import "errors"

var (
	ErrTranscriptDoesNotExist  = errors.New("transcript does not exist")
	ErrTranscriptAlreadyExists = errors.New("transcript already exists")
)
