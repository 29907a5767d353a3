package common

import "github.com/google/uuid"

type UUID string

// NewUUID returns a random version 4 UUID. Record identifiers use this so they
// cannot be enumerated.
func NewUUID() UUID {
	return UUID(uuid.NewString())
}

func ParseUUID(value string) (UUID, error) {
	parsed, err := uuid.Parse(value)
	if err != nil {
		return "", err
	}
	return UUID(parsed.String()), nil
}

func (u UUID) String() string {
	return string(u)
}
