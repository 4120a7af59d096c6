package api

import (
	"crypto/subtle"
	"html/template"
	"log"
	"net/http"

	"storefront-service/internal/auth"
)

const oauthStateCookie = "oauth_state"

var oauthDoneTemplate = template.Must(template.New("oauth").Parse(`<html>
  <body>
    <script>
      if (window.opener) {
        window.opener.postMessage('oauth-success', {{.}});
        window.close();
      } else {
        window.location.href = {{.}};
      }
    </script>
  </body>
</html>
`))

// SignupInput is the body of POST /api/auth/signup.
type SignupInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Username string `json:"username" validate:"required"`
}

// LoginInput is the body of POST /api/auth/login.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// EmailInput carries a single address.
type EmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordInput is the body of POST /api/auth/reset-password.
type ResetPasswordInput struct {
	Email    string `json:"email" validate:"required,email"`
	Token    string `json:"token" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *HTTPHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.deps.Tokens.TTL().Seconds()),
		HttpOnly: true,
		Secure:   h.deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *HTTPHandler) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *HTTPHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var input SignupInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	user, err := h.deps.Accounts.Signup(r.Context(), input.Email, input.Password, input.Username)
	if err != nil {
		respondWithStoreError(w, "Signup", err, "Failed to create account")
		return
	}
	respondOK(w, http.StatusCreated, "User created. Verify your email.", map[string]interface{}{"user": user})
}

func (h *HTTPHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}

	user, token, err := h.deps.Accounts.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		respondWithStoreError(w, "Login", err, "Failed to log in")
		return
	}
	h.setSessionCookie(w, token)
	respondOK(w, http.StatusOK, "Login successful", map[string]interface{}{"user": user})
}

func (h *HTTPHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, auth.CookieName, "/")
	respondOK(w, http.StatusOK, "Logged out", nil)
}

// VerifyEmail consumes the emailed link and sends the browser to the login page.
func (h *HTTPHandler) VerifyEmail(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Accounts.VerifyEmail(r.Context(), r.URL.Query().Get("token")); err != nil {
		respondWithStoreError(w, "VerifyEmail", err, "Failed to verify email")
		return
	}
	http.Redirect(w, r, h.deps.ClientURL+"/login", http.StatusFound)
}

func (h *HTTPHandler) SendVerifyEmail(w http.ResponseWriter, r *http.Request) {
	var input EmailInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	if err := h.deps.Accounts.SendVerifyEmail(r.Context(), input.Email); err != nil {
		respondWithStoreError(w, "SendVerifyEmail", err, "Failed to send verification email")
		return
	}
	respondOK(w, http.StatusOK, "Verification email sent successfully", nil)
}

func (h *HTTPHandler) RequestPasswordSet(w http.ResponseWriter, r *http.Request) {
	var input EmailInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	if err := h.deps.Accounts.RequestPasswordSet(r.Context(), input.Email); err != nil {
		respondWithStoreError(w, "RequestPasswordSet", err, "Failed to send password email")
		return
	}
	respondOK(w, http.StatusOK, "Password set email sent successfully. Check your email", nil)
}

func (h *HTTPHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var input ResetPasswordInput
	if !h.decodeAndValidate(w, r, &input) {
		return
	}
	if err := h.deps.Accounts.ResetPassword(r.Context(), input.Email, input.Token, input.Password); err != nil {
		respondWithStoreError(w, "ResetPassword", err, "Failed to reset password")
		return
	}
	respondOK(w, http.StatusOK, "Password has been reset successfully", nil)
}

func (h *HTTPHandler) Me(w http.ResponseWriter, r *http.Request) {
	principal, _ := auth.PrincipalFrom(r.Context())
	user, err := h.deps.Accounts.Me(r.Context(), principal.UserID)
	if err != nil {
		respondWithStoreError(w, "Me", err, "Failed to fetch user")
		return
	}
	respondOK(w, http.StatusOK, "User fetched successfully", map[string]interface{}{"user": user})
}

// GoogleLogin starts the consent flow. The state is pinned in a short-lived cookie.
func (h *HTTPHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := auth.NewOpaqueToken()
	if err != nil {
		respondWithStoreError(w, "GoogleLogin", err, "Failed to start Google sign-in")
		return
	}
	url, err := h.deps.Accounts.GoogleAuthURL(state)
	if err != nil {
		respondWithStoreError(w, "GoogleLogin", err, "Failed to start Google sign-in")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/api/auth/google",
		MaxAge:   600,
		HttpOnly: true,
		Secure:   h.deps.SecureCookies,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, url, http.StatusFound)
}

// GoogleCallback finishes sign-in and hands control back to the opener window.
// Any failure sends the browser to the login page.
func (h *HTTPHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	failure := h.deps.ClientURL + "/login"
	h.clearCookie(w, oauthStateCookie, "/api/auth/google")

	stateCookie, err := r.Cookie(oauthStateCookie)
	state := r.URL.Query().Get("state")
	if err != nil || state == "" || subtle.ConstantTimeCompare([]byte(stateCookie.Value), []byte(state)) != 1 {
		log.Printf("WARN: Google callback rejected: state mismatch")
		http.Redirect(w, r, failure, http.StatusFound)
		return
	}
	code := r.URL.Query().Get("code")
	if code == "" {
		log.Printf("WARN: Google callback without code: %s", r.URL.Query().Get("error"))
		http.Redirect(w, r, failure, http.StatusFound)
		return
	}

	_, token, err := h.deps.Accounts.GoogleCallback(r.Context(), code)
	if err != nil {
		log.Printf("ERROR: Google sign-in failed: %v", err)
		http.Redirect(w, r, failure, http.StatusFound)
		return
	}
	h.setSessionCookie(w, token)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := oauthDoneTemplate.Execute(w, h.deps.ClientURL); err != nil {
		log.Printf("ERROR: Failed to render Google sign-in page: %v", err)
	}
}
