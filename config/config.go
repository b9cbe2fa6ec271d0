package config

import "time"

// Config for the harvesting tools. TODO(yirui): read from a config
// file and environment variables once the flag surface settles.
type Config struct {
	// DataDir is the generic data dir for all taxokit tools.
	DataDir string
	// OutputDir is where professor detail records are written. Can be
	// anything, but recommended to be a subdirectory of the DataDir.
	OutputDir string
	// Endpoint for the works API.
	Endpoint          string
	UserAgent         string
	PerPage           int
	MaxRetries        int
	Timeout           time.Duration
	Sleep             time.Duration
	MaxPapersPerTopic int
	MaxCitations      int
}
