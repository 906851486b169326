package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewID 32 位无横线 uuid
func NewID() string { return strings.ReplaceAll(uuid.NewString(), "-", "") }
