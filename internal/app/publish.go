package app

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"github.com/dmitrijs2005/isoshare/internal/upload"
)

// PublishOutput appends key=value to the step output file at path. An empty
// path means no CI runner is listening and is not an error.
func PublishOutput(path, key, value string) error {
	if path == "" {
		return nil
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("output %s must be a single line", key)
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open step output: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
		_ = f.Close()
		return fmt.Errorf("write step output: %w", err)
	}
	return f.Close()
}

// PrintSummary writes one line per journalled task of the run.
func PrintSummary(w io.Writer, r *upload.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "directory: %s (%d)\n", r.Directory.Name, r.Directory.ID)
	fmt.Fprintln(tw, "FILE\tSIZE\tSTATUS\tFILE ID\tERROR")
	for _, t := range r.Tasks {
		fileID := "-"
		if t.FileID != 0 {
			fileID = fmt.Sprint(t.FileID)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			t.FileName, humanize.IBytes(uint64(t.SizeBytes)), t.Status, fileID, t.Error)
	}
	return tw.Flush()
}
