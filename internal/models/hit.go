package models

import (
	"time"

	"github.com/google/uuid"
)

// EndpointHit is one recorded view of a resource path.
type EndpointHit struct {
	ID        uuid.UUID `json:"id"`
	App       string    `json:"app"`
	URI       string    `json:"uri"`
	IP        string    `json:"ip"`
	Timestamp time.Time `json:"timestamp"`
}

// ViewStats is the aggregated hit count for one resource path over a window.
type ViewStats struct {
	App  string `json:"app"`
	URI  string `json:"uri"`
	Hits int64  `json:"hits"`
}
