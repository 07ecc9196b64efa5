package router

import (
	"strings"

	"github.com/google/uuid"
)

// newReqID returns a short request id for log correlation.
func newReqID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
