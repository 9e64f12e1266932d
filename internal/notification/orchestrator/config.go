package orchestrator

import (
	"strings"
	"time"

	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/models"
	"notification-dispatcher/internal/notification/throttle"
)

type Config struct {
	ThrottleWindow         time.Duration
	DryRun                 bool
	BaseURL                string
	FallbackToPayload      bool
	DefaultDatabase        string
	ApplicationsEnabled    bool
	PayStubsEnabled        bool
	ApplicationCollections []string
	PayStubCollections     []string
	EmployeesCollection    string
	EventHeaders           []string
	Timeout                time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	n := cfg.Notifications
	return &Config{
		ThrottleWindow:         n.ThrottleWindow(),
		DryRun:                 n.DryRun,
		BaseURL:                n.BaseURL,
		FallbackToPayload:      n.FallbackToPayload,
		DefaultDatabase:        cfg.Store.DefaultDatabase,
		ApplicationsEnabled:    n.Applications.Enabled,
		PayStubsEnabled:        n.PayStubs.Enabled,
		ApplicationCollections: n.Collections.Applications,
		PayStubCollections:     n.Collections.PayStubs,
		EmployeesCollection:    n.Collections.Employees,
		EventHeaders:           n.EventHeaders,
		Timeout:                cfg.Server.RequestTimeout,
	}
}

// DefaultConfig mirrors the loader defaults.
func DefaultConfig() *Config {
	return &Config{
		ThrottleWindow:         throttle.DefaultWindow,
		ApplicationsEnabled:    true,
		PayStubsEnabled:        true,
		ApplicationCollections: []string{"applications"},
		PayStubCollections:     []string{"pay_stubs"},
		EmployeesCollection:    "employees",
		Timeout:                30 * time.Second,
	}
}

// KindOf maps a collection identifier onto a record kind. Matching is
// case-insensitive.
func (c *Config) KindOf(collection string) (models.Kind, bool) {
	if contains(c.ApplicationCollections, collection) {
		return models.KindApplication, true
	}
	if contains(c.PayStubCollections, collection) {
		return models.KindPayStub, true
	}
	return "", false
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}
