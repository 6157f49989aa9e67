package repository

import (
	"fmt"

	"github.com/google/uuid"
)

// IDGenerator hands out globally unique prefixed identifiers. Monotonic
// ordering is not required.
type IDGenerator interface {
	NextID(prefix string) string
}

type uuidGenerator struct{}

func NewIDGenerator() IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NextID(prefix string) string {
	return fmt.Sprintf("%s-%s", prefix, uuid.New().String())
}
