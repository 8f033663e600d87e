package instagram

import (
	"testing"

	"github.com/arth-1/socialpost/internal/platform/errors"
)

func TestResolveCredentials(t *testing.T) {
	defaults := Credentials{Username: "env_user", Password: "env_pass"}

	tests := []struct {
		name    string
		req     PublishRequest
		def     Credentials
		want    Credentials
		wantErr bool
	}{
		{name: "defaults when blank", req: PublishRequest{}, def: defaults, want: defaults},
		{name: "whitespace falls back", req: PublishRequest{Username: "   ", Password: " \t"}, def: defaults, want: defaults},
		{name: "explicit wins", req: PublishRequest{Username: "me", Password: "secret"}, def: defaults, want: Credentials{"me", "secret"}},
		{name: "mixed", req: PublishRequest{Username: " me "}, def: defaults, want: Credentials{"me", "env_pass"}},
		{name: "password kept verbatim", req: PublishRequest{Password: " pw "}, def: defaults, want: Credentials{"env_user", " pw "}},
		{name: "nothing available", req: PublishRequest{}, def: Credentials{}, wantErr: true},
		{name: "missing password", req: PublishRequest{Username: "me"}, def: Credentials{}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveCredentials(tt.req, tt.def)
			if tt.wantErr {
				if !errors.IsKind(err, errors.KindAuthentication) {
					t.Fatalf("expected authentication error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Fatalf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}
