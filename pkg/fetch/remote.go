package fetch

import (
	"context"
	stderrors "errors"
	"fmt"
	"regexp"

	"github.com/femon07/codex-skill-updater/pkg/cmdexec"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/verbose"
)

// Remote fetches a repository subtree by running an installer command.
//
// Command is a cmdexec template. The placeholders {{repo}}, {{path}},
// {{ref}}, {{name}}, {{dest}} and {{codex_home}} are substituted with
// shell-escaped values. When Token is set it is exported as GH_TOKEN.
type Remote struct {
	Command   string
	Token     string
	CodexHome string

	// Execute runs the command; nil uses cmdexec.Execute.
	Execute cmdexec.ExecuteFunc
}

// Fetch implements Fetcher.
func (r *Remote) Fetch(ctx context.Context, name string, src *Source, dest string) (string, error) {
	if src == nil || src.Repo == "" || src.Path == "" {
		return "", errors.NewProbeError(name, errors.ProbeKindNotFound, fmt.Errorf("missing repo or path"))
	}

	req := cmdexec.Request{
		Command: r.Command,
		Replacements: map[string]string{
			"repo":       src.Repo,
			"path":       src.Path,
			"ref":        src.Ref,
			"name":       name,
			"dest":       dest,
			"codex_home": r.CodexHome,
		},
	}
	if r.Token != "" {
		req.Env = map[string]string{"GH_TOKEN": r.Token}
	}

	execute := r.Execute
	if execute == nil {
		execute = cmdexec.Execute
	}

	log := verbose.Logger("fetch")
	log.Debug().Str("package", name).Str("source", src.String()).Msg("running installer")

	if _, err := execute(ctx, req); err != nil {
		return "", errors.NewProbeError(name, classify(ctx, err), err)
	}

	staged, err := locateSkill(dest, name)
	if err != nil {
		return "", errors.NewProbeError(name, errors.ProbeKindInvalid, err)
	}
	return staged, nil
}

var (
	authPattern     = regexp.MustCompile(`(?i)\b(401|403)\b|bad credentials|authentication|unauthori[sz]ed|forbidden|permission denied|rate limit`)
	notFoundPattern = regexp.MustCompile(`(?i)\b404\b|not found|no such (file|repo|path|ref)|does not exist|unknown revision`)
	networkPattern  = regexp.MustCompile(`(?i)could not resolve|connection (refused|reset)|network is unreachable|temporary failure|no route to host|tls|urlopen error|timed out`)
)

// classify maps an installer failure to a ProbeKind.
func classify(ctx context.Context, err error) errors.ProbeKind {
	if stderrors.Is(err, cmdexec.ErrTimeout) || stderrors.Is(err, context.DeadlineExceeded) || stderrors.Is(ctx.Err(), context.DeadlineExceeded) {
		return errors.ProbeKindTimeout
	}

	var exitErr *cmdexec.ExitError
	if !stderrors.As(err, &exitErr) {
		return errors.ProbeKindUnknown
	}
	msg := exitErr.Stderr
	switch {
	case authPattern.MatchString(msg):
		return errors.ProbeKindAuth
	case notFoundPattern.MatchString(msg):
		return errors.ProbeKindNotFound
	case networkPattern.MatchString(msg):
		return errors.ProbeKindNetwork
	default:
		return errors.ProbeKindUnknown
	}
}
