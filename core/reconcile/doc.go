// Package reconcile provides the domain-agnostic machinery for reconciling
// externally-sourced records against a relational store.
//
// An import is a sequence of stages executed in strict dependency order. Every
// stage sees the mappings produced by the stages before it and contributes its
// own, so later kinds can reference rows created earlier in the same run.
//
// # Components
//
//  1. Mapper: run-scoped map from foreign-system keys (username, external post id,
//     category name) to backend primary keys. First writer wins.
//
//  2. CreateOrSkip: the upsert primitive. It checks a natural key and inserts only
//     when the row is absent. Existing rows are never updated, which makes repeated
//     runs over the same input idempotent.
//
//  3. Pipeline: executes Stage values in order, each inside its own transaction,
//     tracking the run through an explicit state machine
//     (idle → stage... → complete | aborted).
//
//  4. Preview: a dry run comparing input natural keys with store keys per kind,
//     backed by an IndexCache with stampede protection.
//
// # Failure model
//
// Per-record problems (RecordError: unresolved reference, malformed record) are
// contained by Run.Handle: they are counted, logged, and the stage moves on.
// Duplicates are counted as skipped. A StoreError (connectivity loss, constraint
// violation) rolls back the current stage and aborts the run; previously
// committed stages are kept and a re-run resumes thanks to the existence checks.
//
// # Usage Example
//
//	run := reconcile.NewRun(logger)
//	pipeline := reconcile.NewPipeline(db, usersStage, postsStage, statsStage)
//	if err := pipeline.Execute(ctx, run); err != nil {
//	    // run.State() == reconcile.StateAborted
//	}
//	fmt.Println(run.Summary.For("user").Created)
package reconcile
