package config

import "strconv"

type AgentConfig interface {
	GetGeminiAPIKey() string
	GetGeminiModel() string
	GetMaxResults() int64
	GetAutoSend() bool
}

type Agent struct{}

var _ AgentConfig = Agent{}

func (Agent) GetGeminiAPIKey() string {
	return GetEnv("GEMINI_API_KEY", "")
}

func (Agent) GetGeminiModel() string {
	return GetEnv("GEMINI_MODEL", "gemini-2.0-flash")
}

// GetMaxResults caps how many unread messages a single pipeline run fetches.
func (Agent) GetMaxResults() int64 {
	v := GetEnv("MAX_RESULTS", "5")
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return 5
	}
	return n
}

// GetAutoSend is modeled but always false: replies are saved as drafts and
// never sent on the user's behalf.
func (Agent) GetAutoSend() bool {
	return false
}
