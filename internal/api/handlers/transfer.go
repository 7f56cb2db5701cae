package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/amaumene/airdate/internal/controllers"
	"github.com/amaumene/airdate/internal/services/devicesync"
)

// Transferer exports and imports device-sync payloads
type Transferer interface {
	Export() (string, error)
	Import(ctx context.Context, encoded string) (*controllers.ImportReport, error)
}

// TransferPayload carries an encoded device-sync payload
type TransferPayload struct {
	Payload string `json:"payload"`
}

// TransferHandler serves device-sync export and import
type TransferHandler struct {
	transfer Transferer
	logger   *logrus.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(transfer Transferer, logger *logrus.Logger) *TransferHandler {
	return &TransferHandler{transfer: transfer, logger: logger}
}

// Export returns the encoded payload
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	payload, err := h.transfer.Export()
	if err != nil {
		internalError(w, h.logger, err, "Failed to export payload")
		return
	}
	writeJSON(w, http.StatusOK, TransferPayload{Payload: payload})
}

// Import applies a payload and returns the import report
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req TransferPayload
	if err := decodeJSON(w, r, &req); err != nil || req.Payload == "" {
		writeError(w, http.StatusBadRequest, "Invalid payload")
		return
	}

	report, err := h.transfer.Import(r.Context(), req.Payload)
	if errors.Is(err, devicesync.ErrCorruptPayload) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		internalError(w, h.logger, err, "Failed to import payload")
		return
	}
	writeJSON(w, http.StatusOK, report)
}
