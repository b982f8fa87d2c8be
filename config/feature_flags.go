package config

import (
	"hash/fnv"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles for the console and adminctl.
// Supports gradual rollout by subject and role targeting.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging)
	subjectOverrides map[string]map[string]bool // subject -> feature -> enabled

	now func() time.Time
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100). Subjects are assigned by hash.
	RolloutPercent int

	// Role targeting ("admin", "influencer"). Empty means all roles.
	TargetRoles []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	Subject string // token fingerprint or email
	Role    string
}

// Predefined feature flag names.
const (
	// === Admin pages ===
	FeatureInfluencerDelete = "admin.influencer_delete" // DELETE /admin/influencers/{id}
	FeatureTopPerformers    = "admin.top_performers"    // top 3 on the influencers page

	// === Influencer pages ===
	FeatureInfluencerDashboard = "influencer.dashboard" // GET /influencer/dashboard

	// === Infrastructure ===
	FeatureAuditJournal   = "infra.audit_journal"   // write admin mutations to Postgres
	FeatureCompression    = "infra.compression"     // gzip responses
	FeatureClipboard      = "cli.clipboard"         // adminctl copies links to the clipboard
	FeatureBackendBreaker = "infra.backend_breaker" // fail fast while the backend is down
)

// LoadFeatureFlags loads feature flags from the environment and config file.
func LoadFeatureFlags(src source) *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFrom(src)
	return ff
}

// NewFeatureFlags returns the defaults.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		subjectOverrides: make(map[string]map[string]bool),
		now:              time.Now,
	}
	ff.initializeDefaults()
	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	for _, f := range []Feature{
		{Name: FeatureInfluencerDelete, Description: "Allow admins to delete influencers", TargetRoles: []string{"admin"}},
		{Name: FeatureTopPerformers, Description: "Show top performers on the influencers page"},
		{Name: FeatureInfluencerDashboard, Description: "Serve the influencer dashboard", TargetRoles: []string{"influencer"}},
		{Name: FeatureAuditJournal, Description: "Record admin mutations in the audit journal"},
		{Name: FeatureCompression, Description: "Compress HTTP responses"},
		{Name: FeatureClipboard, Description: "Copy referral links to the system clipboard"},
		{Name: FeatureBackendBreaker, Description: "Open a circuit breaker on backend failures"},
	} {
		f.Enabled = true
		f.RolloutPercent = 100
		ff.features[f.Name] = &f
	}
}

// loadFrom loads feature flag overrides.
// Format: FEATURE_<NAME>=true|false|<percent>
// Example: FEATURE_ADMIN_INFLUENCER_DELETE=false
// Example: FEATURE_ADMIN_TOP_PERFORMERS=50 (50% rollout)
func (ff *FeatureFlags) loadFrom(src source) {
	for name, feature := range ff.features {
		val := src.lookup(featureNameToEnvKey(name))
		if val == "" {
			continue
		}
		if b, err := strconv.ParseBool(val); err == nil {
			feature.Enabled = b
			if b {
				feature.RolloutPercent = 100
			} else {
				feature.RolloutPercent = 0
			}
			continue
		}
		if pct, err := strconv.Atoi(val); err == nil && pct >= 0 && pct <= 100 {
			feature.RolloutPercent = pct
			feature.Enabled = pct > 0
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "admin.influencer_delete" -> "FEATURE_ADMIN_INFLUENCER_DELETE"
func featureNameToEnvKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

// Enabled checks a feature without a subject: rollout must be full.
func (ff *FeatureFlags) Enabled(featureName string) bool {
	return ff.IsEnabled(featureName, nil)
}

// IsEnabled checks if a feature is enabled for the given context.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil && ctx.Subject != "" {
		if overrides, ok := ff.subjectOverrides[ctx.Subject]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}

	now := ff.now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	if len(feature.TargetRoles) > 0 && ctx != nil && ctx.Role != "" {
		if !slices.Contains(feature.TargetRoles, ctx.Role) {
			return false
		}
	}

	if feature.RolloutPercent < 100 {
		if ctx == nil || ctx.Subject == "" {
			return false
		}
		return isInRollout(ctx.Subject, featureName, feature.RolloutPercent)
	}
	return true
}

// isInRollout determines if a subject is in the rollout percentage.
// Uses consistent hashing so subjects stay in their bucket.
func isInRollout(subject, featureName string, percent int) bool {
	h := fnv.New32a()
	h.Write([]byte(featureName))
	h.Write([]byte(subject))
	return int(h.Sum32()%100) < percent
}

// SetSubjectOverride sets a feature override for one subject.
func (ff *FeatureFlags) SetSubjectOverride(subject, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if _, ok := ff.subjectOverrides[subject]; !ok {
		ff.subjectOverrides[subject] = make(map[string]bool)
	}
	ff.subjectOverrides[subject][featureName] = enabled
}

// SetRolloutPercent updates the rollout percentage for a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return ErrFeatureNotFound
	}
	if percent < 0 || percent > 100 {
		return ErrInvalidRolloutPercent
	}

	feature.RolloutPercent = percent
	feature.Enabled = percent > 0
	return nil
}

// EnableFeature enables a feature at 100% rollout.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 100)
}

// DisableFeature disables a feature completely.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.SetRolloutPercent(featureName, 0)
}

// GetAllFeatures returns a copy of all feature configurations.
func (ff *FeatureFlags) GetAllFeatures() map[string]Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]Feature, len(ff.features))
	for k, v := range ff.features {
		result[k] = *v
	}
	return result
}

// --- Errors ---

var (
	ErrFeatureNotFound       = &FeatureFlagError{Message: "feature not found"}
	ErrInvalidRolloutPercent = &FeatureFlagError{Message: "rollout percent must be 0-100"}
)

// FeatureFlagError represents a feature flag error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
