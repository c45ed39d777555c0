// Package filtering selects skills by strategy and name for check and apply.
//
// Use FilterOptions to specify filter criteria and compile them once:
//
//	opts := filtering.FromFlags("UpdateViaRemote", "pdf*,!pdf-legacy")
//	f, err := opts.Compile()
//	if err != nil {
//	    return err
//	}
//	decisions = f.Decisions(decisions)
//
// Name patterns support exact names, prefix*, *suffix, globs, ~regex and
// !negation; a skill passes when any pattern matches.
package filtering
