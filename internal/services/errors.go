package services

import (
	"errors"

	"ecopark-admin/internal/repository"
)

var (
	// ErrNotFound is returned for missing photos and trails
	ErrNotFound = repository.ErrNotFound

	ErrInvalidCursor = errors.New("invalid cursor")
	ErrInvalidSort   = errors.New("invalid sort key")
	ErrInvalidIndex  = repository.ErrInvalidIndex
	ErrNoImages      = errors.New("photo has no images")
	ErrLastImage     = repository.ErrLastImage
)
