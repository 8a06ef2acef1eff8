package handlers

import (
	"net/http"

	"github.com/CogStack/tika-service/internal/models"
)

// InfoHandler serves the service/configuration echo endpoints.
type InfoHandler struct {
	info models.ServiceInformation
}

func NewInfoHandler(info models.ServiceInformation) *InfoHandler {
	return &InfoHandler{info: info}
}

func (h *InfoHandler) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.info)
}

func (h *InfoHandler) Home(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain")
	_, _ = w.Write([]byte("Tika Service, you can see the current configuration of the service by going to /api/info\n"))
}
