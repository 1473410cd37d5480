package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-identity-gateway/auth"
	"github.com/jrsteele09/go-identity-gateway/autherr"
	"github.com/jrsteele09/go-identity-gateway/session"
)

type signupRequest struct {
	Identifier string            `json:"identifier"`
	Secret     string            `json:"secret"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

type loginRequest struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

// SignupHandler registers a new principal with the identity provider.
func (s *Server) SignupHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req signupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, autherr.New(autherr.KindInvalidCredentialFormat, "malformed request body", err))
			return
		}

		subjectID, err := s.auth.SignUp(r.Context(), auth.Credential{
			Identifier: req.Identifier,
			Secret:     req.Secret,
			Attributes: req.Attributes,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusCreated, JSONResponse{
			Message: "User created successfully",
			Data:    map[string]string{"subjectId": subjectID},
		})
	}
}

// LoginHandler authenticates a credential and returns the session's tokens.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, autherr.New(autherr.KindInvalidCredentialFormat, "malformed request body", err))
			return
		}

		sess, err := s.auth.Login(r.Context(), auth.Credential{
			Identifier: req.Identifier,
			Secret:     req.Secret,
		})
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, JSONResponse{
			Message: "Login successful",
			Data:    tokenResponseFor(sess),
		})
	}
}

// MeHandler returns the claims for the bearer token's session.
func (s *Server) MeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := s.sessionKeyFromBearer(r)
		if !ok {
			writeError(w, autherr.New(autherr.KindSessionExpired, "no session for access token", nil))
			return
		}

		claims, err := s.auth.WhoAmI(r.Context(), key)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, JSONResponse{
			Message: "User retrieved successfully",
			Data: map[string]interface{}{
				"subjectId": claims.Subject,
				"claims":    claims.Attributes,
			},
		})
	}
}

// RefreshHandler exchanges a refresh token for new session tokens.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req refreshRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, autherr.New(autherr.KindInvalidCredentialFormat, "malformed request body", err))
			return
		}

		key, ok := s.auth.SessionKeyForRefreshToken(req.RefreshToken)
		if !ok {
			writeError(w, autherr.New(autherr.KindSessionRevoked, "unknown refresh token", nil))
			return
		}

		sess, err := s.auth.RefreshToken(r.Context(), key)
		if err != nil {
			writeError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, JSONResponse{
			Message: "Token refreshed successfully",
			Data:    tokenResponseFor(sess),
		})
	}
}

// LogoutHandler revokes the bearer token's session.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := s.sessionKeyFromBearer(r)
		if ok {
			if err := s.auth.Logout(r.Context(), key); err != nil {
				writeError(w, err)
				return
			}
		}
		// Logging out an unknown token is a success; there is nothing to revoke
		writeJSON(w, http.StatusOK, JSONResponse{Message: "Logged out successfully"})
	}
}

func (s *Server) sessionKeyFromBearer(r *http.Request) (session.Key, bool) {
	header := r.Header.Get("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if token == "" || token == header {
		return "", false
	}
	return s.auth.SessionKeyForAccessToken(token)
}

func tokenResponseFor(sess *session.Session) tokenResponse {
	return tokenResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		ExpiresIn:    int64(time.Until(sess.AccessExpiry).Seconds()),
	}
}
