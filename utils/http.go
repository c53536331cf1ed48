// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is shared by service-to-service calls (entitlement checks,
// profile sync).
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
