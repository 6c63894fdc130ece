package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// CustomerHeader carries the caller's customer id.  Authentication is
// handled upstream; the value is only used to partition rate limits.
const CustomerHeader = "X-Customer-ID"

// customerID identifies the caller for rate limiting.  It returns "guest"
// when the request names no customer.
func customerID(c echo.Context) string {
	if v, ok := c.Get("customer_id").(string); ok && v != "" {
		return v
	}
	if v := strings.TrimSpace(c.Request().Header.Get(CustomerHeader)); v != "" {
		return v
	}
	return "guest"
}
