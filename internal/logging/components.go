package logging

// Component constants for structured logging
const (
	ComponentStartup    = "startup"
	ComponentDatabase   = "database"
	ComponentAPIPreview = "api-preview"
	ComponentAPIFinal   = "api-final"
	ComponentPipeline   = "pipeline"
	ComponentExport     = "export"
	ComponentJobSweeper = "job-sweeper"
)
