package importer

import (
	"context"
	"fmt"
	"io"
	"path"
	"text/tabwriter"

	"forum-importer/core/reconcile"
	"forum-importer/core/storage"
)

// WriteReport renders a human-readable summary of result.
func WriteReport(w io.Writer, result *Result) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	fmt.Fprintf(tw, "State:\t%s\n", result.State)
	if result.Error != "" {
		fmt.Fprintf(tw, "Error:\t%s\n", result.Error)
	}
	if len(result.Purged) > 0 {
		var total int64
		for _, p := range result.Purged {
			total += p.Rows
		}
		fmt.Fprintf(tw, "Purged rows:\t%d\n", total)
	}
	fmt.Fprintln(tw)

	fmt.Fprintln(tw, "KIND\tCREATED\tSKIPPED\tFAILED")
	for _, kind := range result.Summary.Kinds() {
		c := result.Summary.For(kind)
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", kind, c.Created, c.Skipped, c.Failed)
	}
	totals := result.Summary.Totals()
	fmt.Fprintf(tw, "total\t%d\t%d\t%d\n", totals.Created, totals.Skipped, totals.Failed)

	var failed []reconcile.Skip
	for _, s := range result.Summary.Skips {
		if s.Reason != reconcile.ReasonDuplicateNaturalKey {
			failed = append(failed, s)
		}
	}
	if len(failed) > 0 {
		fmt.Fprintln(tw)
		fmt.Fprintln(tw, "DROPPED\tKEY\tREASON\tDETAIL")
		for _, s := range failed {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.Kind, s.Key, s.Reason, s.Detail)
		}
	}

	fmt.Fprintln(tw)
	fmt.Fprintf(tw, "Recounted:\t%d posts, %d tags\n", result.Stats.Posts, result.Stats.Tags)

	return tw.Flush()
}

// UploadResult stores result as JSON under prefix/<run id>.json and returns the key.
func UploadResult(ctx context.Context, client storage.Client, bucket, prefix string, result *Result) (string, error) {
	key := path.Join(prefix, result.RunID+".json")
	if _, err := storage.WriteJSON(ctx, client, bucket, key, result); err != nil {
		return "", fmt.Errorf("upload import result: %w", err)
	}
	return key, nil
}
