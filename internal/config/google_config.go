package config

// GoogleConfig exposes the OAuth client secret for the Gmail backend.
// The secret can be supplied inline (JSON payload) or as a file path;
// the inline form takes precedence when both are set.
type GoogleConfig interface {
	GetClientSecretJSON() string
	GetClientSecretFile() string
	GetEmailAddress() string
}

type Google struct{}

var _ GoogleConfig = Google{}

func (Google) GetClientSecretJSON() string {
	return GetEnv("GOOGLE_CLIENT_SECRET_JSON", "")
}

func (Google) GetClientSecretFile() string {
	return GetEnv("GOOGLE_CLIENT_SECRET_FILE", "credentials.json")
}

func (Google) GetEmailAddress() string {
	return GetEnv("EMAIL_ADDRESS", "")
}
