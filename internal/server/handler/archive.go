package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/yieldplay/yieldplay/internal/auth"
	"github.com/yieldplay/yieldplay/internal/domain"
)

// ArchiveStore is the blob access the archive handler needs.
type ArchiveStore interface {
	Get(ctx context.Context, path string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]domain.BlobInfo, error)
}

// ArchiveHandler serves the settlement archive to admins.
type ArchiveHandler struct {
	blobs  ArchiveStore
	logger *slog.Logger
}

// NewArchiveHandler creates an ArchiveHandler with the given store and logger.
func NewArchiveHandler(blobs ArchiveStore, logger *slog.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		blobs:  blobs,
		logger: logHandler(logger, "archive"),
	}
}

type archiveObjectJSON struct {
	Path         string `json:"path"`
	Size         int64  `json:"size"`
	LastModified string `json:"lastModified"`
}

// listArchivesResponse wraps the object listing.
type listArchivesResponse struct {
	Objects []archiveObjectJSON `json:"objects"`
}

// ListArchives returns stored settlement reports under a prefix. Admin only.
// GET /api/admin/archives?prefix=archive/settlements/2026-08
func (h *ArchiveHandler) ListArchives(w http.ResponseWriter, r *http.Request) {
	if !auth.CapabilityFrom(r.Context()).Admin {
		writeDomainError(w, domain.ErrUnauthorized)
		return
	}
	if h.blobs == nil {
		writeError(w, http.StatusNotImplemented, "archive storage not configured")
		return
	}

	prefix := r.URL.Query().Get("prefix")
	if prefix == "" {
		prefix = "archive/settlements/"
	}

	infos, err := h.blobs.List(r.Context(), prefix)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list archives failed",
			slog.String("prefix", prefix),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	objects := make([]archiveObjectJSON, 0, len(infos))
	for _, info := range infos {
		objects = append(objects, archiveObjectJSON{
			Path:         info.Path,
			Size:         info.Size,
			LastModified: info.LastModified.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, listArchivesResponse{Objects: objects})
}

// GetArchive streams one settlement report. Admin only.
// GET /api/admin/archives/{path...}
func (h *ArchiveHandler) GetArchive(w http.ResponseWriter, r *http.Request) {
	if !auth.CapabilityFrom(r.Context()).Admin {
		writeDomainError(w, domain.ErrUnauthorized)
		return
	}
	if h.blobs == nil {
		writeError(w, http.StatusNotImplemented, "archive storage not configured")
		return
	}

	path := pathParam(r, "path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "missing object path")
		return
	}

	body, err := h.blobs.Get(r.Context(), path)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	defer body.Close()

	w.Header().Set("Content-Type", "application/x-ndjson")
	if _, err := io.Copy(w, body); err != nil {
		h.logger.ErrorContext(r.Context(), "handler: stream archive failed",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
	}
}
