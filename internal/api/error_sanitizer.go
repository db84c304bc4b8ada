package api

import (
	"errors"
	"net/http"

	"github.com/ignite/relay-gateway/internal/mailer"
	"github.com/ignite/relay-gateway/internal/pkg/logger"
)

// =============================================================================
// ERROR SANITIZER
// Internal errors (database details, file paths, driver messages) are never
// leaked to API consumers. All 5xx errors return generic safe messages while
// the full error is logged server-side. Transport errors are the exception:
// their reason is the relay's own rejection text and is part of the response
// contract.
// =============================================================================

// deliveryErrorMessage returns the public message for a failed delivery.
// Transport errors surface the relay's reason verbatim; anything else is
// sanitized outside dev mode.
func deliveryErrorMessage(err error, devMode bool) string {
	var terr *mailer.TransportError
	if errors.As(err, &terr) {
		return terr.Error()
	}
	logger.Error("unexpected delivery error", "error", err.Error())
	if devMode {
		return err.Error()
	}
	return "an internal error occurred"
}

// respondSafeError logs the full internal error and sends a sanitized JSON
// error response to the client. In dev mode the real error is returned.
func respondSafeError(w http.ResponseWriter, code int, internalErr error, publicMsg string, devMode bool) {
	if internalErr != nil {
		logger.Error(publicMsg, "status", code, "error", internalErr.Error())
		if devMode {
			publicMsg = internalErr.Error()
		}
	}
	respondError(w, code, publicMsg)
}
