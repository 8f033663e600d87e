package instagram

import (
	"strings"

	"github.com/arth-1/socialpost/internal/platform/errors"
)

// ResolveCredentials picks the request credentials when they are not
// blank, otherwise the configured defaults. Usernames are trimmed,
// passwords are used verbatim.
func ResolveCredentials(req PublishRequest, defaults Credentials) (Credentials, error) {
	creds := defaults
	if u := strings.TrimSpace(req.Username); u != "" {
		creds.Username = u
	}
	if strings.TrimSpace(req.Password) != "" {
		creds.Password = req.Password
	}
	creds.Username = strings.TrimSpace(creds.Username)

	if creds.Username == "" || creds.Password == "" {
		return Credentials{}, errors.New(errors.KindAuthentication, "instagram.credentials", "no instagram credentials available")
	}
	return creds, nil
}
