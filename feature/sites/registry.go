package sites

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"module-monitor/feature/inventory/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	// ErrUnknownKey is returned when no site owns the presented key.
	ErrUnknownKey = errors.New("unknown site key")
	// ErrInvalidURL is returned when a site URL cannot be parsed.
	ErrInvalidURL = errors.New("invalid site url")
)

// Registry is the site identity provider backed by the sites table.
type Registry struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

// NewRegistry creates a registry.
func NewRegistry(db *gorm.DB, logger *zap.Logger) *Registry {
	return &Registry{db: db, logger: logger, now: time.Now}
}

// HashKey returns the stored form of a site key.
func HashKey(key string) string {
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// Authenticate returns the site owning key.
func (r *Registry) Authenticate(ctx context.Context, key string) (*models.Site, error) {
	if key == "" {
		return nil, ErrUnknownKey
	}
	var site models.Site
	err := r.db.WithContext(ctx).Where("api_key_hash = ?", HashKey(key)).Take(&site).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUnknownKey
	}
	if err != nil {
		return nil, fmt.Errorf("load site: %w", err)
	}
	return &site, nil
}

// NormalizeURL lowercases scheme and host, drops default ports, query,
// fragment and trailing slashes.
func NormalizeURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURL, raw)
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if port := u.Port(); port != "" && !(scheme == "http" && port == "80") && !(scheme == "https" && port == "443") {
		host += ":" + port
	}
	return scheme + "://" + host + strings.TrimRight(u.EscapedPath(), "/"), nil
}

// MatchesURL reports whether reported names the same site as site.URL.
func (r *Registry) MatchesURL(site *models.Site, reported string) bool {
	want, err := NormalizeURL(site.URL)
	if err != nil {
		return false
	}
	got, err := NormalizeURL(reported)
	if err != nil {
		return false
	}
	return want == got
}

// RecordSync stores the metadata snapshot of an accepted submission. The
// reported IP wins over the caller address.
func (r *Registry) RecordSync(ctx context.Context, site *models.Site, req *models.SyncRequest, callerIP string) error {
	ip := req.IPAddress
	if ip == "" {
		ip = callerIP
	}
	now := r.now().UTC()
	updates := map[string]any{
		"core_version":    req.CoreVersion,
		"runtime_version": req.RuntimeVersion,
		"ip_address":      ip,
		"last_sync_at":    now,
	}
	if err := r.db.WithContext(ctx).Model(&models.Site{}).Where("id = ?", site.ID).Updates(updates).Error; err != nil {
		return fmt.Errorf("update site %d: %w", site.ID, err)
	}
	site.CoreVersion = req.CoreVersion
	site.RuntimeVersion = req.RuntimeVersion
	site.IPAddress = ip
	site.LastSyncAt = &now
	return nil
}

// Register creates a site and returns it with its plaintext key. The key is
// not stored and cannot be recovered later.
func (r *Registry) Register(ctx context.Context, name, rawURL string) (*models.Site, string, error) {
	normalized, err := NormalizeURL(rawURL)
	if err != nil {
		return nil, "", err
	}
	key := strings.ReplaceAll(uuid.NewString()+uuid.NewString(), "-", "")

	site := &models.Site{Name: name, URL: normalized, APIKeyHash: HashKey(key)}
	if site.Name == "" {
		site.Name = normalized
	}
	if err := r.db.WithContext(ctx).Create(site).Error; err != nil {
		return nil, "", fmt.Errorf("create site %s: %w", normalized, err)
	}
	r.logger.Info("Site registered", zap.Uint("site_id", site.ID), zap.String("url", normalized))
	return site, key, nil
}
