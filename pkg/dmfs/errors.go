package dmfs

import "errors"

var (
	ErrMalformedHeader   = errors.New("dmfs: malformed image header")
	ErrBadMagic          = errors.New("dmfs: bad image magic")
	ErrVersionMismatch   = errors.New("dmfs: unsupported image version")
	ErrCantUseRegionHere = errors.New("dmfs: region-backed content cannot be encoded")

	ErrDuplicateName    = errors.New("dmfs: duplicate object name")
	ErrEmptyName        = errors.New("dmfs: empty object name")
	ErrInvalidString    = errors.New("dmfs: string contains NUL byte")
	ErrReservedType     = errors.New("dmfs: object type is reserved")
	ErrLegacyProperties = errors.New("dmfs: version 1 images cannot carry properties")
	ErrContentTooLarge  = errors.New("dmfs: object content too large")

	// ErrTruncated and ErrCorruptObject are only reported by ImageIter.Err.
	// Iteration itself stops silently on either.
	ErrTruncated     = errors.New("dmfs: image truncated")
	ErrCorruptObject = errors.New("dmfs: bad object magic")
)
