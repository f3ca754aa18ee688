package http

import (
	"archive/zip"
	"bytes"
	"net/http"

	"github.com/couchcryptid/neo-risk-etl/internal/domain"
)

const exportFilename = "neo-artifacts.zip"

// handleExport returns every stored artifact as one zip archive, built in
// memory before the status line is written.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	names, err := s.artifacts.List(r.Context())
	if err != nil {
		s.logger.Error("list artifacts failed", "error", err)
		writeError(w, http.StatusInternalServerError, "list artifacts failed")
		return
	}
	if len(names) == 0 {
		writeError(w, http.StatusNotFound, "no artifacts stored")
		return
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		data, err := s.artifacts.Get(r.Context(), name)
		if err != nil {
			s.logger.Error("read artifact failed", "artifact", name, "error", err)
			writeError(w, http.StatusInternalServerError, "read artifact failed")
			return
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: domain.Now()})
		if err == nil {
			_, err = fw.Write(data)
		}
		if err != nil {
			s.logger.Error("build export archive failed", "error", err)
			writeError(w, http.StatusInternalServerError, "build export archive failed")
			return
		}
	}
	if err := zw.Close(); err != nil {
		s.logger.Error("build export archive failed", "error", err)
		writeError(w, http.StatusInternalServerError, "build export archive failed")
		return
	}

	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFilename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes()) //nolint:errcheck // client went away
}
