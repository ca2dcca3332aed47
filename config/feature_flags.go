package config

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

// FeatureFlags manages feature toggles.
// Supports per-course targeting and time-based activation, so new report
// features can be tried on a single course before a general rollout.
type FeatureFlags struct {
	mu sync.RWMutex

	// Core features
	features map[string]*Feature
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Course targeting (e.g., "power-searching")
	// Empty means all courses
	TargetCourses []string

	// Time-based activation
	EnabledFrom  *time.Time
	EnabledUntil *time.Time
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	CourseID string // Course being processed
	IsAdmin  bool   // Is admin caller
}

// Predefined feature flag names.
const (
	// === Report Features ===
	FeatureReportIntersections = "report.intersections" // Pairwise cluster overlap table
	FeatureReportCache         = "report.cache"         // Redis-backed report cache

	// === Classification Features ===
	FeatureClassificationVectors = "classification.vectors" // Persist extracted vectors

	// === Pipeline Features ===
	FeaturePipelineHTTPTrigger = "pipeline.http_trigger" // POST /api/v1/pipeline/run

	// === Experimental Features ===
	FeatureExperimentalMultiCourse = "experimental.multi_course" // Classify several courses per run
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features: make(map[string]*Feature),
	}

	// Initialize all features with defaults
	ff.initializeDefaults()

	// Load overrides from environment
	ff.loadFromEnvironment()

	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureReportIntersections] = &Feature{
		Name:        FeatureReportIntersections,
		Description: "Compute pairwise cluster intersection distributions",
		Enabled:     true,
	}

	ff.features[FeatureReportCache] = &Feature{
		Name:        FeatureReportCache,
		Description: "Cache the statistics report in Redis",
		Enabled:     true,
	}

	ff.features[FeatureClassificationVectors] = &Feature{
		Name:        FeatureClassificationVectors,
		Description: "Persist per-student performance vectors",
		Enabled:     true,
	}

	ff.features[FeaturePipelineHTTPTrigger] = &Feature{
		Name:        FeaturePipelineHTTPTrigger,
		Description: "Allow triggering a batch run over HTTP",
		Enabled:     true,
	}

	// Experimental features - disabled by default
	ff.features[FeatureExperimentalMultiCourse] = &Feature{
		Name:        FeatureExperimentalMultiCourse,
		Description: "Classify multiple courses in one scheduled run",
		Enabled:     false,
	}
}

// loadFromEnvironment loads feature flag overrides from env vars.
// Format: FEATURE_<NAME>=true|false
// Example: FEATURE_REPORT_INTERSECTIONS=false
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			if b, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = b
			}
		}
	}
}

// featureNameToEnvKey converts feature name to environment variable key.
// "report.intersections" -> "FEATURE_REPORT_INTERSECTIONS"
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(name)
	key = strings.ReplaceAll(key, ".", "_")
	return "FEATURE_" + key
}

// IsEnabled checks if a feature is enabled for the given context.
// A nil context evaluates global state only.
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	feature, exists := ff.features[featureName]
	ff.mu.RUnlock()

	if !exists {
		return false
	}

	// Admins see everything that is switched on
	if ctx != nil && ctx.IsAdmin && feature.Enabled {
		return true
	}

	if !feature.Enabled {
		return false
	}

	// Time window
	now := time.Now()
	if feature.EnabledFrom != nil && now.Before(*feature.EnabledFrom) {
		return false
	}
	if feature.EnabledUntil != nil && now.After(*feature.EnabledUntil) {
		return false
	}

	// Course targeting
	if len(feature.TargetCourses) > 0 {
		if ctx == nil || ctx.CourseID == "" {
			return false
		}
		for _, course := range feature.TargetCourses {
			if course == ctx.CourseID {
				return true
			}
		}
		return false
	}

	return true
}

// EnableFeature enables a feature globally.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.setEnabled(featureName, true)
}

// DisableFeature disables a feature globally.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.setEnabled(featureName, false)
}

func (ff *FeatureFlags) setEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, exists := ff.features[featureName]
	if !exists {
		return &FeatureFlagError{Message: "unknown feature: " + featureName}
	}
	feature.Enabled = enabled
	return nil
}

// SetTargetCourses restricts a feature to the given courses.
func (ff *FeatureFlags) SetTargetCourses(featureName string, courses []string) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, exists := ff.features[featureName]
	if !exists {
		return &FeatureFlagError{Message: "unknown feature: " + featureName}
	}
	feature.TargetCourses = courses
	return nil
}

// GetAllFeatures returns a snapshot of all features.
func (ff *FeatureFlags) GetAllFeatures() map[string]Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]Feature, len(ff.features))
	for name, feature := range ff.features {
		result[name] = *feature
	}
	return result
}

// --- Convenience helpers for hot paths ---

// IntersectionsEnabled reports whether the pairwise intersection
// statistic should be computed for the given course.
func (ff *FeatureFlags) IntersectionsEnabled(courseID string) bool {
	return ff.IsEnabled(FeatureReportIntersections, &FeatureContext{CourseID: courseID})
}

// ReportCacheEnabled reports whether the Redis report cache is active.
func (ff *FeatureFlags) ReportCacheEnabled() bool {
	return ff.IsEnabled(FeatureReportCache, nil)
}

// FeatureFlagError represents a feature flag operation error.
type FeatureFlagError struct {
	Message string
}

func (e *FeatureFlagError) Error() string {
	return e.Message
}
