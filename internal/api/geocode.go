package api

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/address"
	"github.com/sells-group/addrmap/internal/geocode"
	"github.com/sells-group/addrmap/internal/model"
)

// handleGeocode resolves one address given as ?address= or as the path
// remainder after /api/geocode/.
func (s *Server) handleGeocode(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("address")
	if raw == "" {
		raw = chi.URLParam(r, "*")
		if decoded, err := url.PathUnescape(raw); err == nil {
			raw = decoded
		}
	}
	if strings.TrimSpace(raw) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "address is required"})
		return
	}

	p := address.Parse(raw)
	var (
		res *model.GeocodeResult
		err error
	)
	if p.Address == "" {
		err = &geocode.Failure{Reason: geocode.ReasonEmptyInput, Address: raw}
	} else {
		res, err = s.resolver.Resolve(r.Context(), p)
	}
	if err != nil {
		status := statusFor(err)
		s.log.Info("geocode failed",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("address", p.Address),
			zap.Int("status", status),
			zap.Error(err),
		)
		body := errorBody{Error: err.Error()}
		if status == http.StatusNotFound {
			body.Address = p.Address
		}
		writeJSON(w, status, body)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// statusFor maps a resolve failure onto an HTTP status.
func statusFor(err error) int {
	f, ok := geocode.AsFailure(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch f.Reason {
	case geocode.ReasonEmptyInput:
		return http.StatusBadRequest
	case geocode.ReasonNoAddressMatch:
		return http.StatusNotFound
	case geocode.ReasonMissingCredential:
		return http.StatusInternalServerError
	case geocode.ReasonTransport, geocode.ReasonMalformedResponse:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
