package repository

import "errors"

var (
	ErrDuplicate  = errors.New("record already exists")
	ErrNotUpdated = errors.New("no rows updated")
)
