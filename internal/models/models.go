package models

// All returns every model the service migrates
func All() []any {
	return []any{
		&VideoRef{},
		&CacheEntry{},
		&UsageLedger{},
		&Job{},
	}
}
