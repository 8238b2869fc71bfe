package session

import (
	"encoding/json"
	"os"
	"strings"

	"igtracker/pkg/auth"
	"igtracker/pkg/config"
	"igtracker/pkg/logger"
)

// Transport is the slice of the Instagram client the resolver needs
type Transport interface {
	// SetSessionID installs a session token as the transport credential
	SetSessionID(sessionID string)
	// LoadSessionExport loads a session file in the client's native format
	LoadSessionExport(path string) error
}

// CredentialSource looks up a stored session credential, usually the
// system keychain via the auth package.
type CredentialSource interface {
	Retrieve(username string) (*auth.Credential, error)
}

// Resolver obtains a reusable session token and installs it into the
// fetching client's transport.
type Resolver struct {
	credentials CredentialSource
	logger      logger.Logger
}

// NewResolver creates a session resolver. credentials may be nil when no
// credential store is available.
func NewResolver(credentials CredentialSource, log logger.Logger) *Resolver {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Resolver{credentials: credentials, logger: log}
}

// Resolve tries each session source in order and installs the first that
// succeeds. It returns false when every source fails; callers must treat
// that as anonymous access with much stricter upstream rate limits.
func (r *Resolver) Resolve(cfg *config.InstagramConfig, transport Transport) bool {
	// 1. Pre-shared token from configuration
	if cfg.SessionID != "" {
		transport.SetSessionID(cfg.SessionID)
		r.logger.Info("session loaded from configuration")
		return true
	}

	// 2. Stored credential (system keychain or encrypted fallback)
	if r.credentials != nil && cfg.Username != "" {
		if cred, err := r.credentials.Retrieve(cfg.Username); err == nil && cred.SessionID != "" {
			transport.SetSessionID(cred.SessionID)
			r.logger.WithField("username", cfg.Username).Info("session loaded from credential store")
			return true
		}
	}

	if cfg.SessionFile == "" {
		return false
	}
	if _, err := os.Stat(cfg.SessionFile); err != nil {
		return false
	}

	// 3. Session file in the client's native serialized format
	if err := transport.LoadSessionExport(cfg.SessionFile); err == nil {
		r.logger.WithField("file", cfg.SessionFile).Info("session loaded from session file")
		return true
	} else {
		r.logger.WithError(err).WithField("file", cfg.SessionFile).Warn("failed to load session file")
	}

	// 4. Raw file contents: JSON with a sessionid field, else a bare token
	if token := readRawToken(cfg.SessionFile); token != "" {
		transport.SetSessionID(token)
		r.logger.WithField("file", cfg.SessionFile).Info("session loaded from raw session file contents")
		return true
	}

	return false
}

// readRawToken extracts a session token from arbitrary file contents
func readRawToken(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}

	content := strings.TrimSpace(string(data))
	if content == "" {
		return ""
	}

	var parsed struct {
		SessionID string `json:"sessionid"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err == nil {
		return parsed.SessionID
	}

	return content
}
