package domain

// DefaultServiceEnv is the environment tag given to services registered
// implicitly by ingestion.
const DefaultServiceEnv = "prod"

// UnknownService names telemetry that arrived without a service.
const UnknownService = "unknown"

// Service is a named emitter of telemetry, registered on first mention.
type Service struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Env  string `json:"env"`
}
