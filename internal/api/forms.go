package api

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/sayonsom/workpal/internal/config"
	"github.com/sayonsom/workpal/internal/mailer"
)

// FormsHandler forwards the contact and booking forms as formatted HTML
// email through the transactional email provider.
type FormsHandler struct {
	mail mailer.Sender
	cfg  config.MailConfig
}

// NewFormsHandler creates the forms handler.
func NewFormsHandler(mail mailer.Sender, cfg config.MailConfig) *FormsHandler {
	return &FormsHandler{mail: mail, cfg: cfg}
}

// RegisterRoutes mounts the form endpoints.
func (h *FormsHandler) RegisterRoutes(r chi.Router) {
	r.Post("/api/contact", h.handleContact)
	r.Post("/api/booking", h.handleBooking)
}

type contactRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Company string `json:"company,omitempty"`
	Message string `json:"message"`
}

func (h *FormsHandler) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Message) == "" {
		Error(w, http.StatusBadRequest, "Name, email, and message are required.")
		return
	}

	body := fmt.Sprintf(
		`<h2>New contact form submission</h2>
<p><strong>Name:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Company:</strong> %s</p>
<p><strong>Message:</strong></p>
<p>%s</p>`,
		html.EscapeString(req.Name),
		html.EscapeString(req.Email),
		html.EscapeString(req.Company),
		html.EscapeString(req.Message),
	)

	err := h.mail.Send(r.Context(), mailer.Email{
		From:    h.cfg.FromAddress,
		To:      []string{h.cfg.ContactTo},
		ReplyTo: req.Email,
		Subject: "Contact form: " + req.Name,
		HTML:    body,
	})
	if err != nil {
		slog.Error("Contact email send failed", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to send message. Please try again later.")
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}

type bookingRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Notes string `json:"notes,omitempty"`
}

func (h *FormsHandler) handleBooking(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if !DecodeBody(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" ||
		strings.TrimSpace(req.Date) == "" || strings.TrimSpace(req.Time) == "" {
		Error(w, http.StatusBadRequest, "Name, email, date, and time are required.")
		return
	}

	body := fmt.Sprintf(
		`<h2>New demo booking</h2>
<p><strong>Name:</strong> %s</p>
<p><strong>Email:</strong> %s</p>
<p><strong>Date:</strong> %s</p>
<p><strong>Time:</strong> %s</p>
<p><strong>Notes:</strong> %s</p>`,
		html.EscapeString(req.Name),
		html.EscapeString(req.Email),
		html.EscapeString(req.Date),
		html.EscapeString(req.Time),
		html.EscapeString(req.Notes),
	)

	err := h.mail.Send(r.Context(), mailer.Email{
		From:    h.cfg.FromAddress,
		To:      []string{h.cfg.BookingTo},
		ReplyTo: req.Email,
		Subject: "Demo booking: " + req.Name,
		HTML:    body,
	})
	if err != nil {
		slog.Error("Booking email send failed", "error", err)
		Error(w, http.StatusInternalServerError, "Failed to book demo. Please try again later.")
		return
	}

	JSON(w, http.StatusOK, map[string]bool{"ok": true})
}
