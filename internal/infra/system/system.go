package system

import (
	"time"

	"storefront/internal/usecase"

	"github.com/google/uuid"
)

type Clock struct{}

var _ usecase.Clock = Clock{}

func (Clock) Now() time.Time { return time.Now().UTC() }

// UUID v4
type UUIDGenerator struct{}

var _ usecase.IDGenerator = UUIDGenerator{}

func (UUIDGenerator) NewID() string { return uuid.NewString() }
