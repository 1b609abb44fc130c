package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"geocurtain/internal/curtain"
	"geocurtain/internal/geom"
	"geocurtain/internal/logging"
)

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <file>",
		Short: "Build curtains for a boundary file and write them out",
		Long: `Build reads GeoJSON, WKT, CSV or KML, builds one curtain per boundary and
writes the meshes as a JSON document or a Wavefront OBJ file.`,
		Args: cobra.ExactArgs(1),
		RunE: runBuild,
	}
	addCurtainFlags(cmd.Flags())
	cmd.Flags().String("format", "json", "Output format: json or obj.")
	cmd.Flags().StringP("out", "o", "", "Output file (default stdout).")
	return cmd
}

func runBuild(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	format = strings.ToLower(format)
	if format != "json" && format != "obj" {
		return errors.Errorf("unknown format %q, want json or obj", format)
	}

	a, err := setup(cmd, false)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := logging.ContextWithLogger(cmd.Context(), a.log)

	d, err := geom.Load(args[0])
	if err != nil {
		return err
	}
	bs, diags := geom.Extract(d, a.policy)
	all := append(append([]geom.Diagnostic{}, d.Diagnostics...), diags...)
	notes := make([]string, 0, len(all))
	for _, dg := range all {
		a.log.Warn(ctx, "boundary skipped",
			logging.String("source", filepath.Base(args[0])), logging.Int("feature", dg.Feature), logging.Err(dg.Err))
		notes = append(notes, dg.String())
	}

	results := a.svc.BuildAll(ctx, bs)

	var w io.Writer = cmd.OutOrStdout()
	out, _ := cmd.Flags().GetString("out")
	if out != "" {
		f, err := os.Create(out)
		if err != nil {
			return errors.Wrap(err, "create output")
		}
		defer f.Close()
		w = f
	}

	tris := 0
	curtains := make([]curtain.Curtain, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			a.log.Warn(ctx, "curtain has no mesh", logging.String("boundary", r.ID), logging.Err(r.Err))
		}
		tris += r.Curtain.Mesh.TriangleCount()
		curtains = append(curtains, r.Curtain)
	}
	if format == "obj" {
		err = curtain.WriteOBJ(w, curtains)
	} else {
		err = curtain.WriteJSON(w, curtain.NewDocument(results, notes))
	}
	if err != nil {
		return errors.Wrap(err, "write output")
	}
	a.log.Info(ctx, "curtains built",
		logging.Int("boundaries", len(bs)),
		logging.String("triangles", humanize.Comma(int64(tris))),
		logging.Int("skipped", len(all)))
	return nil
}
