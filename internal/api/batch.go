package api

import (
	"errors"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/addrmap/internal/batch"
	"github.com/sells-group/addrmap/internal/export"
	"github.com/sells-group/addrmap/internal/geocode"
	"github.com/sells-group/addrmap/internal/sheet"
)

const multipartMemory = 32 << 20

type batchResponse struct {
	RunID   string `json:"runId"`
	Summary any    `json:"summary"`
	Markers any    `json:"markers"`
}

// handleBatch geocodes every row of an uploaded spreadsheet.
func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil || format == export.FormatYAML {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "format must be json or geojson"})
		return
	}

	if r.ContentLength > s.opts.MaxUploadBytes {
		writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "upload too large"})
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "upload too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "expected a multipart form with a file field"})
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "file is required"})
		return
	}
	defer file.Close() //nolint:errcheck

	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "could not read upload"})
		return
	}

	rows, err := sheet.ReadUpload(header.Filename, data)
	if err != nil {
		s.log.Info("unreadable upload", zap.String("file", header.Filename), zap.Error(err))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "could not read spreadsheet: " + err.Error()})
		return
	}

	agg := batch.NewAggregator(s.resolver,
		batch.WithLogger(s.log.With(zap.String("file", header.Filename))),
		batch.WithPacing(s.opts.PauseEvery, s.opts.Pause),
	)
	res, err := agg.Aggregate(r.Context(), rows)
	if err != nil {
		if geocode.IsFatal(err) {
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "batch cancelled"})
		return
	}

	resp := batchResponse{
		RunID:   res.RunID,
		Summary: res.Summary(len(rows)),
		Markers: res.Markers,
	}
	if format == export.FormatGeoJSON {
		resp.Markers = export.FeatureCollection(res.Markers)
	}
	writeJSON(w, http.StatusOK, resp)
}
