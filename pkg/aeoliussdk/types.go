package aeoliussdk

// Configuration is a user's deletion settings.
type Configuration struct {
	// Enabled turns deletion on for the account.
	Enabled bool `json:"enabled"`

	// PostTTL is the age in months after which posts are deleted.
	PostTTL int `json:"postTTL"`
}

// DefaultConfiguration is provisioned for accounts without a record.
var DefaultConfiguration = Configuration{Enabled: false, PostTTL: 6}

// Validate checks the configuration can be stored.
func (c Configuration) Validate() error {
	if c.PostTTL < 1 {
		return ErrInvalidConfiguration
	}
	return nil
}

// ExportedData is everything Aeolius keeps about a user, minus credentials.
type ExportedData struct {
	DID     string `json:"did"`
	Service string `json:"service"`
	Enabled bool   `json:"enabled"`
	PostTTL int    `json:"postTTL"`
}

// Statistics summarise one worker sweep.
type Statistics struct {
	// SpentPoints is the number of PDS rate limit points used.
	SpentPoints int `json:"spentPoints"`

	// SpentTime is the sweep duration in nanoseconds.
	SpentTime int64 `json:"spentTime"`

	// Throttled counts how often the sweep waited for the rate limit.
	Throttled int `json:"throttled"`

	// PostsDeleted counts deleted posts, or posts that would have been
	// deleted in a dry run.
	PostsDeleted int `json:"postsDeleted"`

	// DryRun is set when nothing was actually deleted.
	DryRun bool `json:"dryRun"`
}

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	// Status is "ok" or "degraded".
	Status string `json:"status"`

	// Uptime is the service uptime, e.g. "1h23m45s".
	Uptime string `json:"uptime,omitempty"`

	// Version is the service build version.
	Version string `json:"version,omitempty"`

	// Checks holds per-dependency results (readyz only).
	Checks *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks are the readiness results of each dependency.
type HealthChecks struct {
	Database string `json:"database"`
}

// errorResponse matches both the API's {error, message} bodies and
// OAuth2-style {error, error_description} bodies from intermediaries.
type errorResponse struct {
	Error            string `json:"error"`
	Message          string `json:"message"`
	ErrorDescription string `json:"error_description"`
}
