// internal/domain/cart/identity.go
package cart

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const sessionIDPrefix = "sess"

// NewSessionID generates a durable anonymous session identifier of the
// form sess_<random>_<timestamp>. It is generated once per fresh cart and
// never regenerated for a restored one.
func NewSessionID() string {
	random := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s_%s_%d", sessionIDPrefix, random, time.Now().UnixMilli())
}
