package common

import "github.com/google/uuid"

// ParseOptionalUUID parses a pointer-optional id. A nil or empty input
// yields a nil UUID pointer rather than an error.
func ParseOptionalUUID(s *string) (*uuid.UUID, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*s)
	if err != nil {
		return nil, err
	}
	return &id, nil
}
