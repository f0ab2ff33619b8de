// Package importer reconciles a records.RecordSet against the forum store.
//
// Stages run in dependency order, each in its own transaction:
//
//	[purge] → users → sections → categories → tags → posts → post_tags →
//	comments → votes → statistics
//
// References are resolved by Resolver. Users and categories fall back to a
// substitute when the referenced row is missing (first admin, then first
// user; the default category, then the first category). Sections and posts
// have no fallback, tags are created on demand. Votes resolve their voter
// strictly.
//
// Existing rows are never updated; only vote_count (when a vote is created)
// and the counters recomputed by Recalculate change. Running the same
// import twice therefore yields the same rows.
//
// # Usage
//
//	im := importer.New(db, logger, cfg.Import)
//	result, err := im.Import(ctx, set, importer.Options{})
//	if err != nil {
//	    // result.State == reconcile.StateAborted, earlier stages committed
//	}
//	importer.WriteReport(os.Stdout, result)
package importer
