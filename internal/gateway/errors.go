package gateway

import (
	"strings"

	"github.com/tradecore/binancefutures-core/internal/xerr"
)

// invalidOrderCodes are Binance error codes that always mean the order
// itself was rejected, independent of message text.
var invalidOrderCodes = map[int]bool{
	-2010: true, // new order rejected
	-2011: true, // cancel rejected
	-4001: true, // invalid leverage
	-4003: true, // quantity below minimum
	-4004: true, // quantity above maximum
	-4131: true, // price below minimum
	-4132: true, // price above maximum
}

// transientCodes are errors the venue considers self-healing: retrying
// shortly after is expected to succeed.
var transientCodes = map[int]bool{
	-1001: true, // internal error
	-1021: true, // timestamp outside recvWindow
	-1022: true, // invalid signature (commonly a clock-skew symptom)
}

// permanentCodes are errors that will never succeed by retrying unchanged.
var permanentCodes = map[int]bool{
	-1100: true, // illegal characters in parameter
	-1102: true, // mandatory parameter missing or malformed
}

const rateLimitCode = -1003

// classifyAPIError maps a raw Binance error code/message pair to an
// xerr.Kind, mirroring _map_exception's exact check order: rate limit
// first, then invalid-order codes, then the insufficient-balance message
// substring, then transient, then permanent, and finally a generic
// permanent fallback for anything unrecognized.
func classifyAPIError(code int, message string) xerr.Kind {
	lower := strings.ToLower(message)

	switch {
	case code == rateLimitCode:
		return xerr.RateLimit
	case invalidOrderCodes[code]:
		return xerr.InvalidOrder
	case strings.Contains(lower, "insufficient balance"):
		return xerr.InsufficientBalance
	case transientCodes[code]:
		return xerr.Transient
	case permanentCodes[code]:
		return xerr.Permanent
	default:
		return xerr.Permanent
	}
}

// mapAPIError constructs an *xerr.Error from a raw Binance error response.
func mapAPIError(code int, message string) *xerr.Error {
	return xerr.New(classifyAPIError(code, message), message).WithCode(code)
}
