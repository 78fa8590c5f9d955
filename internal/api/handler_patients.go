package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"patient-caller-backend/internal/model"
	"patient-caller-backend/internal/queue"
)

type createPatientRequest struct {
	CINro    identityNumber `json:"cinro" binding:"required,notblank"`
	Nombre   string         `json:"nombre" binding:"required,notblank"`
	Apellido string         `json:"apellido" binding:"required,notblank"`
}

type callRequest struct {
	ID *int64 `json:"id" binding:"required"`
}

type attendRequest struct {
	PacienteID *int64 `json:"pacienteId" binding:"required"`
}

var patientNotFound = gin.H{"success": false, "error": "paciente no encontrado"}

// ListPatients handles GET /pacientes.
func (h *Handler) ListPatients(c *gin.Context) {
	patients, err := h.queue.Waiting(c.Request.Context())
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, patients)
}

// CreatePatient handles POST /pacientes.
func (h *Handler) CreatePatient(c *gin.Context) {
	var req createPatientRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.queue.Add(c.Request.Context(), queue.Identity{
		CINro:    string(req.CINro),
		Nombre:   req.Nombre,
		Apellido: req.Apellido,
	})
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	c.JSON(http.StatusOK, p)
}

// CallPatient handles POST /llamar.
func (h *Handler) CallPatient(c *gin.Context) {
	var req callRequest
	if !bindJSON(c, &req) {
		return
	}

	p, err := h.queue.Call(c.Request.Context(), *req.ID)
	if err != nil {
		h.respondError(c, err, patientNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "paciente": p})
}

// AttendPatient handles POST /atender.
func (h *Handler) AttendPatient(c *gin.Context) {
	var req attendRequest
	if !bindJSON(c, &req) {
		return
	}

	rec, err := h.queue.MarkAttended(c.Request.Context(), *req.PacienteID)
	if err != nil {
		h.respondError(c, err, patientNotFound)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"paciente": model.Patient{
			ID:       rec.PatientID,
			CINro:    rec.CINro,
			Nombre:   rec.Nombre,
			Apellido: rec.Apellido,
		},
		"atendido": rec,
	})
}

// CurrentlyCalled handles GET /llamado. The body is null when nobody is
// called.
func (h *Handler) CurrentlyCalled(c *gin.Context) {
	p, err := h.queue.CurrentlyCalled(c.Request.Context())
	if err != nil {
		h.respondError(c, err, nil)
		return
	}
	if p == nil {
		c.JSON(http.StatusOK, nil)
		return
	}
	c.JSON(http.StatusOK, p)
}
