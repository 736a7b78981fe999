// Package credentials turns a service account bundle held in an environment
// variable into the file the Google client libraries look for.
package credentials

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/revgen/voicecmd/internal/config"
)

// ApplicationCredentialsEnv is read by the Google client libraries.
const ApplicationCredentialsEnv = "GOOGLE_APPLICATION_CREDENTIALS"

// FileName is the name of the materialized bundle inside the configured dir.
const FileName = "google-credentials.json"

// ErrInvalidBundle is returned when the bundle is not a JSON object.
var ErrInvalidBundle = errors.New("credential bundle is not valid JSON")

// Bundle describes the credentials in use.
type Bundle struct {
	Path      string
	ProjectID string
}

// Materialize writes the bundle from cfg.EnvVar to cfg.Dir and points
// GOOGLE_APPLICATION_CREDENTIALS at it. When the variable is unset it returns
// nil and leaves any existing GOOGLE_APPLICATION_CREDENTIALS alone, so engine
// clients fall back to application default credentials.
func Materialize(cfg config.CredentialsConfig, logger *zap.Logger) (*Bundle, error) {
	raw := os.Getenv(cfg.EnvVar)
	if raw == "" {
		if existing := os.Getenv(ApplicationCredentialsEnv); existing != "" {
			logger.Info("Using existing credentials file", zap.String("path", existing))
			return &Bundle{Path: existing, ProjectID: ProjectID(existing)}, nil
		}
		logger.Warn("No cloud credentials configured; Google engines will fail at call time",
			zap.String("env_var", cfg.EnvVar))
		return nil, nil
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBundle, err)
	}

	if err := os.MkdirAll(cfg.Dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create credentials dir: %w", err)
	}
	path := filepath.Join(cfg.Dir, FileName)
	if err := os.WriteFile(path, []byte(raw), 0o600); err != nil {
		return nil, fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Setenv(ApplicationCredentialsEnv, path); err != nil {
		return nil, fmt.Errorf("failed to set %s: %w", ApplicationCredentialsEnv, err)
	}

	projectID, _ := fields["project_id"].(string)
	logger.Info("Credentials materialized",
		zap.String("path", path),
		zap.String("project_id", projectID))

	return &Bundle{Path: path, ProjectID: projectID}, nil
}

// ProjectID reads project_id from the bundle at path, or returns "".
func ProjectID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var bundle struct {
		ProjectID string `json:"project_id"`
	}
	if err := json.Unmarshal(data, &bundle); err != nil {
		return ""
	}
	return bundle.ProjectID
}
