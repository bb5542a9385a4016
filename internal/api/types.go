package api

// HealthResponse is the payload of the health endpoint. Clients use it only
// to pre-flight connectivity before opening a voice session.
type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Version   string `json:"version"`
	Timestamp string `json:"timestamp"`
}
