// Package contact relays the public contact form to the studio mailbox and
// reports the mailbox's unread count to admins.
package contact

import (
	"errors"
	"html"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/hsarchitect/folio/mail"
	"github.com/hsarchitect/folio/server/body"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/server/util"
)

var validate = validator.New()

type submission struct {
	Name    string `validate:"required,max=200"`
	Company string
	Email   string
	Subject string
	Message string `validate:"required,max=5000"`
}

type result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

func clean(fields body.Fields, key string) string {
	return html.EscapeString(fields.Trimmed(key))
}

// HandleContact accepts JSON or form submissions. Text fields are trimmed and
// HTML-escaped before the length checks.
func HandleContact(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl := util.ForRequest(r)

		fields, ok := body.Read(st.Cfg, w, r)
		if !ok {
			return
		}

		sub := submission{
			Name:    clean(fields, "name"),
			Company: clean(fields, "company"),
			Email:   fields.Trimmed("email"),
			Subject: clean(fields, "subject"),
			Message: clean(fields, "message"),
		}
		if !fields.Has("subject") {
			sub.Subject = mail.DefaultSubject
		}

		if sub.Name == "" || sub.Message == "" {
			resp.WriteJSON(w, http.StatusBadRequest, result{Error: "Name and message are required."})
			return
		}
		if err := validate.Struct(sub); err != nil {
			resp.WriteJSON(w, http.StatusBadRequest, result{Error: "Invalid input length."})
			return
		}
		if sub.Email != "" && validate.Var(sub.Email, "email") != nil {
			rl.Debugf("dropping invalid reply-to %q", sub.Email)
			sub.Email = ""
		}

		err := st.Mailer.Send(r.Context(), mail.Message{
			Name:    sub.Name,
			Company: sub.Company,
			Email:   sub.Email,
			Subject: sub.Subject,
			Body:    sub.Message,
		})
		if err != nil {
			if errors.Is(err, mail.ErrNotConfigured) {
				rl.Warnf("contact form used but smtp is not configured")
			} else {
				rl.Errorf("contact send failed: %v", err)
			}
			resp.WriteJSON(w, http.StatusInternalServerError, result{Error: "Failed to send message"})
			return
		}

		rl.Infof("contact message relayed from %q", strings.TrimSpace(html.UnescapeString(sub.Name)))
		resp.WriteOK(w, result{Success: true})
	}
}

type unread struct {
	Unread int `json:"unread"`
}

type mailError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// HandleUnread returns the unread count of the configured mailbox.
func HandleUnread(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		n, err := st.Inbox.Unread(r.Context())
		if err != nil {
			util.ForRequest(r).Errorf("imap unread count failed: %v", err)
			resp.WriteJSON(w, http.StatusInternalServerError, mailError{
				Error:   "MAIL_SERVICE_ERROR",
				Message: "Failed to connect to mail server",
			})
			return
		}

		resp.WriteOK(w, unread{Unread: n})
	}
}
