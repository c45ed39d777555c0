package config

import (
	"context"
	"os"
	"strings"
	"time"

	"github.com/femon07/codex-skill-updater/pkg/cmdexec"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// ghTokenTimeout bounds the `gh auth token` lookup.
const ghTokenTimeout = 10 * time.Second

// ghAuthTokenFunc asks the GitHub CLI for a token. Replaced in tests.
var ghAuthTokenFunc = func(ctx context.Context) (string, error) {
	out, err := cmdexec.Execute(ctx, cmdexec.Request{Command: "gh auth token", Timeout: ghTokenTimeout})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ResolveToken fills Fetch.Token for the installer.
//
// Lookup order: an explicit setting, GH_TOKEN, GITHUB_TOKEN, then
// `gh auth token`. A missing token is not an error; public repositories
// can be fetched anonymously.
//
// Returns:
//   - string: the token, or "" when none is available
func (s *Settings) ResolveToken(ctx context.Context) string {
	if s.Fetch.Token != "" {
		return s.Fetch.Token
	}
	for _, name := range []string{"GH_TOKEN", "GITHUB_TOKEN"} {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			s.Fetch.Token = v
			return v
		}
	}
	token, err := ghAuthTokenFunc(ctx)
	if err != nil {
		verbose.Printf("gh auth token unavailable: %v", err)
		return ""
	}
	s.Fetch.Token = token
	return token
}
