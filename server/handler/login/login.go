// Package login exchanges admin credentials for a bearer token.
package login

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/hsarchitect/folio/server/auth"
	"github.com/hsarchitect/folio/server/body"
	"github.com/hsarchitect/folio/server/resp"
	"github.com/hsarchitect/folio/server/state"
	"github.com/hsarchitect/folio/server/util"
	"github.com/hsarchitect/folio/storage/catalog"
)

const invalidCredentials = "Invalid credentials"

type user struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
}

type response struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
	User        user      `json:"user"`
}

// HandleLogin verifies an admin's email and password. Unknown users, non-admins
// and wrong passwords all get the same 401.
func HandleLogin(st *state.FolioState) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rl := util.ForRequest(r)

		fields, ok := body.Read(st.Cfg, w, r)
		if !ok {
			return
		}

		email := fields.Trimmed("email")
		password, _ := fields.String("password")
		if email == "" || password == "" {
			resp.WriteValidationError(w, "email and password required")
			return
		}

		u, err := st.Catalog.Users.ByEmail(r.Context(), strings.ToLower(email))
		if err != nil && !errors.Is(err, catalog.ErrNotFound) {
			rl.Errorf("failed to look up user: %v", err)
			resp.WriteInternalServerError(w, "login failed")
			return
		}
		if u == nil || !u.IsAdmin || !auth.CheckPassword(u.PasswordHash, password) {
			rl.Infof("rejected login for %q", email)
			resp.WriteUnauthorized(w, invalidCredentials)
			return
		}

		token, expires, err := st.Tokens.Issue(u.ID, u.Email, auth.RoleAdmin)
		if err != nil {
			rl.Errorf("failed to issue token: %v", err)
			resp.WriteInternalServerError(w, "login failed")
			return
		}

		rl.WithUser(u.Email).Infof("admin logged in")
		resp.WriteOK(w, response{AccessToken: token, ExpiresAt: expires, User: user{ID: u.ID, Email: u.Email}})
	}
}
