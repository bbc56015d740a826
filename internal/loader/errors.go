package loader

import "errors"

var (
	ErrNoDocumentsFound  = errors.New("no documents found")
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrInvalidRecords    = errors.New("invalid record collection")
)
