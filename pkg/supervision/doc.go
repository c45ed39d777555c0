// Package supervision collects skills that cannot be updated automatically
// and explains what the user has to do about them.
//
// Skills are grouped by reason:
//
//	tracker := supervision.NewUnsupportedTracker()
//	tracker.Add("alpha", constants.ReasonManualMapping)
//	tracker.Add("beta", constants.ReasonManualMapping)
//	for _, msg := range tracker.Messages() {
//	    fmt.Fprintln(os.Stderr, msg)
//	}
//	// ⛔ manual_source_map_required: alpha, beta (2 skills)
//	//    Add an entry with `skill-updater sourcemap add <skill> --repo OWNER/REPO --path DIR` and run with --allow-manual-map.
//
// UnsupportedTracker is safe for concurrent use.
package supervision
