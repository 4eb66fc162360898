package profile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/smart-trendz/trendz/models"
)

var userIDExpr = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// Manager loads user profiles from per-user YAML files and checks
// credentials against bcrypt hashes.
type Manager struct {
	dir         string
	credentials map[string]string // user id -> bcrypt hash
}

func NewManager(dir string, credentials map[string]string) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create profiles dir: %w", err)
	}
	return &Manager{dir: dir, credentials: credentials}, nil
}

// Load reads the profile for a user id. Unknown users return
// models.ErrProfileNotFound.
func (m *Manager) Load(userID string) (*models.UserProfile, error) {
	if !userIDExpr.MatchString(userID) {
		return nil, models.ErrProfileNotFound
	}
	raw, err := os.ReadFile(filepath.Join(m.dir, userID+".yaml"))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.ErrProfileNotFound
		}
		return nil, fmt.Errorf("read profile: %w", err)
	}
	var p models.UserProfile
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	if p.UserID == "" {
		p.UserID = userID
	}
	return &p, nil
}

// Save writes a profile back to its YAML file.
func (m *Manager) Save(p *models.UserProfile) error {
	if !userIDExpr.MatchString(p.UserID) {
		return fmt.Errorf("invalid user id %q", p.UserID)
	}
	raw, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := os.WriteFile(filepath.Join(m.dir, p.UserID+".yaml"), raw, 0o644); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

// Authenticate checks a password against the stored bcrypt hash for the user.
func (m *Manager) Authenticate(userID, password string) bool {
	hash, ok := m.credentials[userID]
	if !ok {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
