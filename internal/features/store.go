// Package features loads per-tenant feature grants from a JSON flags file and
// keeps them hot-reloaded. Grants layer on top of plan capabilities: a tenant
// gets its plan's feature set plus any explicit overrides from the file.
package features

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/tradepost-hq/tradepost/pkg/entitlement"
)

// TenantFlags is one tenant's entry in the flags file.
type TenantFlags struct {
	// Plan overrides the plan used for capability derivation. When empty the
	// caller's subscription plan applies.
	Plan string `json:"plan,omitempty"`

	// Features holds explicit per-feature overrides. true force-enables a
	// feature the plan lacks; false force-disables one the plan grants.
	Features map[string]bool `json:"features,omitempty"`

	// Limits holds explicit usage ceilings that replace the plan defaults.
	Limits map[string]int64 `json:"limits,omitempty"`

	// Usage holds current usage counters for metered features. Self-hosted
	// deployments maintain these in the flags file; hosted deployments get
	// them from the usage pipeline instead.
	Usage map[string]int64 `json:"usage,omitempty"`
}

// flagsFile is the on-disk shape of the flags file.
type flagsFile struct {
	Tenants map[string]TenantFlags `json:"tenants"`
}

// Store holds the loaded flags and watches the file for changes.
type Store struct {
	path        string
	watcher     *fsnotify.Watcher
	stopChan    chan struct{}
	lastModTime time.Time

	mu      sync.RWMutex
	tenants map[string]TenantFlags
}

// NewStore loads the flags file at path. A missing file is not an error: the
// store starts empty and picks the file up when it appears.
func NewStore(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("flags file path is required")
	}

	s := &Store{
		path:     path,
		stopChan: make(chan struct{}),
		tenants:  make(map[string]TenantFlags),
	}

	if err := s.reload(); err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		log.Warn().Str("path", path).Msg("Flags file not found; starting with plan defaults only")
	}
	if stat, err := os.Stat(path); err == nil {
		s.lastModTime = stat.ModTime()
	}

	return s, nil
}

// Watch starts watching the flags file for changes. Falls back to polling when
// the directory cannot be watched.
func (s *Store) Watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	s.watcher = watcher

	// Watch the directory so atomic rename-replace writes are still seen.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		log.Warn().Err(err).Str("path", dir).Msg("Failed to watch flags directory; falling back to polling")
		go s.pollForChanges()
		return nil
	}

	go s.watchForChanges()
	log.Info().Str("path", s.path).Msg("Started watching flags file for changes")
	return nil
}

// Stop stops the watcher.
func (s *Store) Stop() {
	select {
	case <-s.stopChan:
		return
	default:
		close(s.stopChan)
	}
	if s.watcher != nil {
		s.watcher.Close()
	}
}

func (s *Store) watchForChanges() {
	for {
		select {
		case event, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(s.path) && event.Name != s.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			// Debounce - wait a bit for the write to complete
			time.Sleep(100 * time.Millisecond)

			log.Info().Str("event", event.Op.String()).Msg("Detected flags file change")
			if err := s.reload(); err != nil {
				log.Error().Err(err).Str("path", s.path).Msg("Failed to reload flags file; keeping previous grants")
			}

		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Error().Err(err).Msg("Flags watcher error")

		case <-s.stopChan:
			return
		}
	}
}

func (s *Store) pollForChanges() {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			stat, err := os.Stat(s.path)
			if err != nil {
				continue
			}
			if stat.ModTime().After(s.lastModTime) {
				s.lastModTime = stat.ModTime()
				log.Info().Msg("Detected flags file change via polling")
				if err := s.reload(); err != nil {
					log.Error().Err(err).Str("path", s.path).Msg("Failed to reload flags file; keeping previous grants")
				}
			}

		case <-s.stopChan:
			return
		}
	}
}

// reload reads and applies the flags file. A malformed file leaves the
// previous grants in place.
func (s *Store) reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return err
	}

	var file flagsFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse flags file %s: %w", s.path, err)
	}
	if file.Tenants == nil {
		file.Tenants = make(map[string]TenantFlags)
	}

	s.mu.Lock()
	s.tenants = file.Tenants
	s.mu.Unlock()

	log.Debug().Int("tenants", len(file.Tenants)).Msg("Loaded tenant feature flags")
	return nil
}

// TenantFlags returns the tenant's entry and whether one exists.
func (s *Store) TenantFlags(tenantID string) (TenantFlags, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	flags, ok := s.tenants[tenantID]
	return flags, ok
}

// HasFeature resolves whether the tenant has the feature, layering file
// overrides over the plan capability set.
func (s *Store) HasFeature(tenantID string, plan entitlement.Plan, feature string) bool {
	flags, ok := s.TenantFlags(tenantID)
	if ok {
		if flags.Plan != "" {
			plan = entitlement.Plan(flags.Plan)
		}
		if enabled, found := flags.Features[feature]; found {
			return enabled
		}
	}
	return entitlement.PlanHasFeature(plan, feature)
}

// FeatureLimit resolves the tenant's usage ceiling for the feature, layering
// file overrides over the plan defaults. The second return reports whether a
// ceiling exists at all.
func (s *Store) FeatureLimit(tenantID string, plan entitlement.Plan, feature string) (int64, bool) {
	flags, ok := s.TenantFlags(tenantID)
	if ok {
		if flags.Plan != "" {
			plan = entitlement.Plan(flags.Plan)
		}
		if limit, found := flags.Limits[feature]; found {
			return limit, true
		}
	}
	return entitlement.PlanLimit(plan, feature)
}

// Usage returns the tenant's recorded usage for the feature, if tracked.
func (s *Store) Usage(tenantID, feature string) (int64, bool) {
	flags, ok := s.TenantFlags(tenantID)
	if !ok {
		return 0, false
	}
	usage, found := flags.Usage[feature]
	return usage, found
}

// TenantView binds the store to one tenant and plan so it satisfies the
// feature half of the entitlement source contract.
type TenantView struct {
	store    *Store
	tenantID string
	plan     entitlement.Plan
}

// View returns a per-tenant view over the store.
func (s *Store) View(tenantID string, plan entitlement.Plan) *TenantView {
	return &TenantView{store: s, tenantID: tenantID, plan: plan}
}

func (v *TenantView) HasFeature(feature string) bool {
	return v.store.HasFeature(v.tenantID, v.plan, feature)
}

func (v *TenantView) FeatureLimit(feature string) (int64, bool) {
	return v.store.FeatureLimit(v.tenantID, v.plan, feature)
}

func (v *TenantView) Usage(feature string) (int64, bool) {
	return v.store.Usage(v.tenantID, feature)
}
