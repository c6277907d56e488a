/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package datamapper

import "time"

// DefaultCacheTTL is used when a mapper sets no CacheTTL.
const DefaultCacheTTL = 300 * time.Second

// CachePolicy controls when the cache decorator writes records.
type CachePolicy struct {
	// Insert caches the record after an insert.
	Insert bool `yaml:"insert" json:"insert"`
	// Update caches the record after an update. Otherwise the entry is
	// dropped.
	Update bool `yaml:"update" json:"update"`
	// NotFound caches misses as tombstones.
	NotFound bool `yaml:"not_found" json:"not_found"`
	// NotFoundTTL overrides the cache TTL for tombstones.
	NotFoundTTL time.Duration `yaml:"not_found_ttl" json:"not_found_ttl"`
}

// Options configure a Mapper. Zero fields inherit from the parent
// definition.
type Options struct {
	Service    string `yaml:"service" json:"service"`
	Collection string `yaml:"collection" json:"collection"`
	Readonly   *bool  `yaml:"readonly" json:"readonly,omitempty"`
	// Strict is the default for attributes that leave strict unset.
	Strict *bool `yaml:"strict" json:"strict,omitempty"`

	CacheService   string        `yaml:"cache_service" json:"cache_service,omitempty"`
	CacheKey       string        `yaml:"cache_key" json:"cache_key,omitempty"`
	CacheKeyPrefix string        `yaml:"cache_key_prefix" json:"cache_key_prefix,omitempty"`
	CacheTTL       time.Duration `yaml:"cache_ttl" json:"cache_ttl,omitempty"`
	CachePolicy    *CachePolicy  `yaml:"cache_policy" json:"cache_policy,omitempty"`
}

// IsReadonly reports whether save and destroy are refused.
func (o Options) IsReadonly() bool {
	return o.Readonly != nil && *o.Readonly
}

// IsStrict reports the mapper-wide strict default.
func (o Options) IsStrict() bool {
	return o.Strict != nil && *o.Strict
}

// TTL returns CacheTTL or DefaultCacheTTL.
func (o Options) TTL() time.Duration {
	if o.CacheTTL > 0 {
		return o.CacheTTL
	}
	return DefaultCacheTTL
}

// Policy returns the cache policy, all disabled when unset.
func (o Options) Policy() CachePolicy {
	if o.CachePolicy == nil {
		return CachePolicy{}
	}
	return *o.CachePolicy
}

// merge returns o overridden by the non-zero fields of child.
func (o Options) merge(child Options) Options {
	if child.Service != "" {
		o.Service = child.Service
	}
	if child.Collection != "" {
		o.Collection = child.Collection
	}
	if child.Readonly != nil {
		o.Readonly = child.Readonly
	}
	if child.Strict != nil {
		o.Strict = child.Strict
	}
	if child.CacheService != "" {
		o.CacheService = child.CacheService
	}
	if child.CacheKey != "" {
		o.CacheKey = child.CacheKey
	}
	if child.CacheKeyPrefix != "" {
		o.CacheKeyPrefix = child.CacheKeyPrefix
	}
	if child.CacheTTL != 0 {
		o.CacheTTL = child.CacheTTL
	}
	if child.CachePolicy != nil {
		p := *child.CachePolicy
		o.CachePolicy = &p
	}
	return o
}

// Bool returns a pointer to b, for the tri-state option fields.
func Bool(b bool) *bool {
	return &b
}
