package ports

import "github.com/bft-labs/sessionguard/pkg/log"

// Logger is the structured logger used by adapters.
type Logger = log.Logger

// Field is a structured log field.
type Field = log.Field
