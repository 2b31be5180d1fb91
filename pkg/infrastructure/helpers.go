package infrastructure

import (
	"github.com/google/uuid"

	"github.com/mateusmacedo/togobus-bff/pkg/domain"
)

func GenerateUUID() string {
	return uuid.New().String()
}

// UUIDGenerator is the default IDGenerator wired by the cmd package.
func UUIDGenerator() domain.IDGenerator[string] {
	return GenerateUUID
}
