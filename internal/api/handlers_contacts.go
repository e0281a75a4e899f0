package api

import (
	"net/http"
	"strings"

	"github.com/nimashkithmal/NKmoviehub-sub000/internal/auth"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/httputil"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/models"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/notifications"
	"github.com/nimashkithmal/NKmoviehub-sub000/internal/repository"
)

type ContactRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Phone    string `json:"phone" validate:"max=20"`
	Subject  string `json:"subject" validate:"required,min=5,max=100"`
	Message  string `json:"message" validate:"required,min=10,max=1000"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

type ContactUpdateRequest struct {
	Status   string `json:"status" validate:"omitempty,oneof=new read replied closed"`
	Priority string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
}

type ReplyRequest struct {
	Message string `json:"message" validate:"required,min=1,max=5000"`
}

// handleCreateContact stores a public support message. Confirmation and
// admin alert emails are best effort.
func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var req ContactRequest
	if !s.decode(w, r, &req) {
		return
	}

	c := &models.Contact{
		Name:      strings.TrimSpace(req.Name),
		Email:     auth.NormalizeEmail(req.Email),
		Phone:     strings.TrimSpace(req.Phone),
		Subject:   strings.TrimSpace(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		Status:    models.ContactNew,
		Priority:  models.ContactPriority(req.Priority),
		IPAddress: clientIP(r.RemoteAddr),
	}
	if c.Priority == "" {
		c.Priority = models.PriorityMedium
	}
	if err := s.contacts.Create(r.Context(), c); err != nil {
		s.respondStoreError(w, r, err, "contact")
		return
	}

	s.sendMail(r, notifications.ContactConfirmation(c))
	if admin := s.config.SMTP.AdminEmail; admin != "" {
		s.sendMail(r, notifications.AdminAlert(c, admin))
	}

	httputil.OK(w, http.StatusCreated, "Thank you for your message. We will get back to you soon.", c)
}

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page := httputil.ParsePage(q, 20)
	f := repository.ContactFilter{
		Search: q.Get("search"),
		Page:   repository.Page{Limit: page.Limit, Offset: page.Offset()},
	}
	if st := models.ContactStatus(q.Get("status")); validContactStatus(st) {
		f.Status = st
	}
	if p := models.ContactPriority(q.Get("priority")); validContactPriority(p) {
		f.Priority = p
	}

	contacts, total, err := s.contacts.List(r.Context(), f)
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	httputil.List(w, contacts, page, total)
}

// handleGetContact returns a message and marks it read if it was new.
func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "contact")
	if !ok {
		return
	}
	c, err := s.contacts.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "contact")
		return
	}
	if c.Status == models.ContactNew {
		marked, err := s.contacts.MarkRead(r.Context(), id)
		if err != nil {
			s.logger.Warn("mark contact read", "contact_id", id, "error", err)
		} else if marked {
			c.Status = models.ContactRead
		}
	}
	httputil.OK(w, http.StatusOK, "", c)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "contact")
	if !ok {
		return
	}
	var req ContactUpdateRequest
	if !s.decode(w, r, &req) {
		return
	}
	if req.Status == "" && req.Priority == "" {
		s.respondError(w, http.StatusBadRequest, "status or priority is required")
		return
	}

	c, err := s.contacts.GetByID(r.Context(), id)
	if err != nil {
		s.respondStoreError(w, r, err, "contact")
		return
	}
	if req.Status != "" {
		c.Status = models.ContactStatus(req.Status)
	}
	if req.Priority != "" {
		c.Priority = models.ContactPriority(req.Priority)
	}
	if err := s.contacts.Update(r.Context(), c); err != nil {
		s.respondStoreError(w, r, err, "contact")
		return
	}
	httputil.OK(w, http.StatusOK, "Contact updated successfully", c)
}

// handleReplyContact records the reply and emails it to the sender. The
// reply is stored even when the email fails.
func (s *Server) handleReplyContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "contact")
	if !ok {
		return
	}
	var req ReplyRequest
	if !s.decode(w, r, &req) {
		return
	}
	admin := auth.UserFromContext(r.Context())
	text := strings.TrimSpace(req.Message)

	c, err := s.contacts.Reply(r.Context(), id, models.ContactReply{
		Message:   text,
		RepliedBy: &admin.ID,
		RepliedAt: s.now().UTC(),
	})
	if err != nil {
		s.respondStoreError(w, r, err, "contact")
		return
	}

	msg := "Reply sent successfully"
	if !s.sendMail(r, notifications.ContactReply(c, text)) {
		msg = "Reply saved, but the email could not be sent"
	}
	httputil.OK(w, http.StatusOK, msg, c)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "contact")
	if !ok {
		return
	}
	if err := s.contacts.Delete(r.Context(), id); err != nil {
		s.respondStoreError(w, r, err, "contact")
		return
	}
	httputil.OK(w, http.StatusOK, "Contact deleted successfully", nil)
}

func (s *Server) handleContactStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.contacts.Stats(r.Context(), s.monthStart())
	if err != nil {
		s.serverError(w, r, err)
		return
	}
	httputil.OK(w, http.StatusOK, "", stats)
}

func validContactStatus(st models.ContactStatus) bool {
	for _, v := range models.ContactStatuses {
		if v == st {
			return true
		}
	}
	return false
}

func validContactPriority(p models.ContactPriority) bool {
	for _, v := range models.ContactPriorities {
		if v == p {
			return true
		}
	}
	return false
}
