package model

import "time"

// SightingFilter selects catalog entries. Zero values match everything.
type SightingFilter struct {
	ClassLabel string
	SessionID  string
	StartDate  time.Time
	EndDate    time.Time
	Limit      int
	Offset     int
}

// SightingStats summarises the catalog.
type SightingStats struct {
	Total       int            `json:"total"`
	Sessions    int            `json:"sessions"`
	ClassCounts map[string]int `json:"class_counts"`
}
