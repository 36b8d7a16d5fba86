package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/keithlinneman/viteguide-web/internal/article"
	"github.com/keithlinneman/viteguide-web/internal/content"
)

var errDrift = errors.New("content does not match the article registry")

// verifyResult is the --json output.
type verifyResult struct {
	Path          string         `json:"path"`
	OK            bool           `json:"ok"`
	Version       string         `json:"version,omitempty"`
	SHA256        string         `json:"sha256,omitempty"`
	Manifest      bool           `json:"manifest"`
	ManifestError string         `json:"manifest_error,omitempty"`
	Report        content.Report `json:"report"`
	Error         string         `json:"error,omitempty"`
}

func openContent(path string) (*content.Snapshot, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return content.OpenDir(path)
	}
	return content.OpenBundleFile(path)
}

func newVerifyCommand() *cobra.Command {
	var jsonOut, requireManifest bool
	cmd := &cobra.Command{
		Use:   "verify DIR|BUNDLE.tar.gz",
		Short: "Verify that content ships exactly the registered articles",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			snap, err := openContent(path)
			if err != nil {
				if jsonOut {
					writeJSON(cmd, verifyResult{Path: path, Error: err.Error()})
				}
				return err
			}

			res := verifyResult{
				Path:     path,
				Version:  snap.Meta.Version,
				SHA256:   snap.Meta.Hash,
				Manifest: snap.Manifest != nil,
			}
			report, err := content.CheckArticles(snap.FS, snap.Manifest)
			if err != nil {
				res.Error = err.Error()
				if jsonOut {
					writeJSON(cmd, res)
				}
				return err
			}
			res.Report = report
			if snap.ManifestErr != nil {
				res.ManifestError = snap.ManifestErr.Error()
			}
			res.OK = report.OK() && res.ManifestError == "" && (res.Manifest || !requireManifest)

			if jsonOut {
				writeJSON(cmd, res)
			} else {
				printReport(cmd, res)
			}
			if !res.OK {
				return errDrift
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the report as JSON")
	cmd.Flags().BoolVar(&requireManifest, "require-manifest", false, "Fail when "+content.ManifestFile+" is missing")
	cmd.Example = `  # check an unpacked docs build
  articlecheck verify dist/content

  # check the archive that will be uploaded
  articlecheck verify dist/bundle.tar.gz --json`
	return cmd
}

func writeJSON(cmd *cobra.Command, v any) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func printReport(cmd *cobra.Command, res verifyResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d/%d articles present\n", res.Path, len(res.Report.Present), article.Len())
	if res.SHA256 != "" {
		fmt.Fprintf(out, "sha256: %s\n", res.SHA256)
	}
	switch {
	case res.ManifestError != "":
		fmt.Fprintf(out, "manifest: %s\n", res.ManifestError)
	case !res.Manifest:
		fmt.Fprintf(out, "manifest: %s not found\n", content.ManifestFile)
	}
	section := func(name string, items []string) {
		if len(items) > 0 {
			fmt.Fprintf(out, "%s (%d): %s\n", name, len(items), strings.Join(items, ", "))
		}
	}
	section("missing", idStrings(res.Report.Missing))
	section("empty", idStrings(res.Report.Empty))
	section("unknown", res.Report.Unknown)
	section("not in manifest", idStrings(res.Report.Unlisted))
	if res.OK {
		fmt.Fprintln(out, "ok")
	}
}

func idStrings(ids []article.ID) []string {
	s := make([]string, len(ids))
	for i, id := range ids {
		s[i] = string(id)
	}
	return s
}
