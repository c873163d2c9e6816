package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"go.uber.org/multierr"

	"github.com/Faultbox/mmd-pose/internal/config"
	"github.com/Faultbox/mmd-pose/internal/engine/animator"
	"github.com/Faultbox/mmd-pose/internal/engine/skeleton"
	"github.com/Faultbox/mmd-pose/internal/export"
	"github.com/Faultbox/mmd-pose/pkg/formats"
	"github.com/Faultbox/mmd-pose/pkg/math"
)

// nameWidth is the display width of the name column; Japanese names use two
// cells per character.
const nameWidth = 22

func pad(s string) string {
	return runewidth.FillRight(runewidth.Truncate(s, nameWidth, "…"), nameWidth)
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (e *env) options() animator.Options {
	return animator.Options{
		FPS:            e.cfg.Animation.FPS,
		EaseIterations: e.cfg.Animation.EaseIterations,
		IKEnabled:      e.cfg.Animation.IKEnabled,
	}
}

// loadModel reads and parses a model, returning its size on disk too.
func (e *env) loadModel(path string) (*formats.PMD, int, error) {
	data, err := e.assets.Load(path)
	if err != nil {
		return nil, 0, err
	}
	pmd, err := formats.ParsePMD(data)
	if err != nil {
		return nil, 0, fmt.Errorf("parsing %s: %w", path, err)
	}
	return pmd, len(data), nil
}

func cmdBones(e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	pmd, size, err := e.loadModel(args[0])
	if err != nil {
		return err
	}
	skel, err := animator.BuildSkeleton(pmd)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "Model:  %s (%s)\n", pmd.Name, humanize.Bytes(uint64(size)))
	fmt.Fprintf(e.out, "Bones:  %d\n", skel.Len())
	fmt.Fprintf(e.out, "Mesh:   %s vertices, %s materials\n",
		humanize.Comma(int64(pmd.VertexCount)), humanize.Comma(int64(pmd.MaterialCount)))
	fmt.Fprintln(e.out)

	fmt.Fprintf(e.out, "%4s  %s  %-13s  %6s  %s\n", "#", pad("Name"), "Kind", "Parent", "Bind")
	for i := 0; i < skel.Len(); i++ {
		b := skel.Bone(i)
		parent := "-"
		if b.Parent != skeleton.NoParent {
			parent = fmt.Sprint(b.Parent)
		}
		var marks []string
		if i == skel.Center() {
			marks = append(marks, "center")
		}
		if b.Knee {
			marks = append(marks, "knee")
		}
		fmt.Fprintf(e.out, "%4d  %s  %-13s  %6s  (%.3f, %.3f, %.3f)",
			i, pad(b.Name), b.Kind, parent, b.Bind.X, b.Bind.Y, b.Bind.Z)
		if len(marks) > 0 {
			fmt.Fprintf(e.out, "  [%s]", strings.Join(marks, ","))
		}
		fmt.Fprintln(e.out)
	}
	return nil
}

func cmdIK(e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	pmd, _, err := e.loadModel(args[0])
	if err != nil {
		return err
	}
	skel, err := animator.BuildSkeleton(pmd)
	if err != nil {
		return err
	}
	chains, err := animator.BuildChains(skel, pmd)
	if err != nil {
		return err
	}

	fmt.Fprintf(e.out, "IK chains: %d\n\n", len(chains))
	for i, c := range chains {
		names := make([]string, len(c.Nodes))
		for j, n := range c.Nodes {
			names[j] = skel.Bone(n).Name
		}
		fmt.Fprintf(e.out, "%2d  %s  %-7s  tip=%s  iter=%d  limit=%.4f  nodes=[%s]\n",
			i, pad(c.Name), c.Solver, skel.Bone(c.Effector).Name, c.Iterations, c.AngleLimit,
			strings.Join(names, " > "))
		if err := c.Broken(); err != nil {
			fmt.Fprintf(e.out, "    warning: %v\n", err)
		}
	}
	return nil
}

func cmdMotion(e *env, args []string) error {
	if len(args) != 1 {
		return errUsage
	}

	data, err := e.assets.Load(args[0])
	if err != nil {
		return err
	}
	vmd, err := formats.ParseVMD(data)
	if err != nil {
		return fmt.Errorf("parsing %s: %w", args[0], err)
	}

	perBone := make(map[string]int)
	for i := range vmd.BoneKeys {
		perBone[vmd.BoneKeys[i].Name]++
	}
	names := make([]string, 0, len(perBone))
	for n := range perBone {
		names = append(names, n)
	}
	sort.Strings(names)

	fps := e.cfg.Animation.FPS
	last := vmd.MaxFrame()
	fmt.Fprintf(e.out, "Motion:    %s (%s)\n", filepath.Base(args[0]), humanize.Bytes(uint64(len(data))))
	fmt.Fprintf(e.out, "Model:     %s\n", vmd.ModelName)
	fmt.Fprintf(e.out, "Duration:  %d frames (%.2fs at %d fps)\n", last, float64(last)/float64(fps), fps)
	fmt.Fprintf(e.out, "Bone keys: %s on %d bones\n", humanize.Comma(int64(len(vmd.BoneKeys))), len(names))
	fmt.Fprintf(e.out, "Skipped:   %d morph, %d camera, %d light, %d shadow keys\n",
		vmd.MorphKeyCount, vmd.CameraKeyCount, vmd.LightKeyCount, vmd.ShadowKeyCount)
	fmt.Fprintln(e.out)

	for _, n := range names {
		fmt.Fprintf(e.out, "  %s  %d\n", pad(n), perBone[n])
	}

	if len(vmd.IKKeys) > 0 {
		fmt.Fprintf(e.out, "\nIK enable records: %d\n", len(vmd.IKKeys))
		for _, k := range vmd.IKKeys {
			states := make([]string, len(k.States))
			for i, st := range k.States {
				mark := "on"
				if !st.Enabled {
					mark = "off"
				}
				states[i] = st.Name + "=" + mark
			}
			fmt.Fprintf(e.out, "  frame %6d  %s\n", k.Frame, strings.Join(states, " "))
		}
	}
	return nil
}

func cmdPose(e *env, args []string) error {
	fs := newFlagSet("pose")
	frame := fs.Uint("frame", 0, "Frame to evaluate")
	bone := fs.String("bone", "", "Only print bones whose name contains this text")
	if err := fs.Parse(args); err != nil || fs.NArg() < 1 || fs.NArg() > 2 {
		return errUsage
	}

	pmd, _, err := e.loadModel(fs.Arg(0))
	if err != nil {
		return err
	}
	var vmd *formats.VMD
	if fs.NArg() == 2 {
		if vmd, err = e.assets.LoadMotion(fs.Arg(1)); err != nil {
			return err
		}
	}

	a, err := animator.New(pmd, vmd, e.options())
	if err != nil {
		return err
	}

	solveErr := a.Update(uint32(*frame), math.Identity())

	fmt.Fprintf(e.out, "Frame %d of %d\n\n", *frame, a.Duration())
	skel := a.Skeleton()
	for i := 0; i < skel.Len(); i++ {
		name := skel.Bone(i).Name
		if *bone != "" && !strings.Contains(name, *bone) {
			continue
		}
		p := a.Position(i)
		fmt.Fprintf(e.out, "%4d  %s  % 9.4f % 9.4f % 9.4f\n", i, pad(name), p.X, p.Y, p.Z)
	}

	for _, err := range multierr.Errors(solveErr) {
		fmt.Fprintf(e.out, "warning: %v\n", err)
	}
	return nil
}

func cmdExport(e *env, args []string) error {
	fs := newFlagSet("export")
	from := fs.Uint("from", 0, "First frame")
	to := fs.Int("to", -1, "Last frame (default: motion duration)")
	out := fs.String("o", "poses.db", "Output database")
	if err := fs.Parse(args); err != nil || fs.NArg() != 2 {
		return errUsage
	}

	pmd, err := e.assets.LoadModel(fs.Arg(0))
	if err != nil {
		return err
	}
	vmd, err := e.assets.LoadMotion(fs.Arg(1))
	if err != nil {
		return err
	}
	a, err := animator.New(pmd, vmd, e.options())
	if err != nil {
		return err
	}

	last := a.Duration()
	if *to >= 0 {
		last = uint32(*to)
	}

	ctx := context.Background()
	store, err := export.Open(ctx, *out)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.WriteSkeleton(ctx, a.Skeleton()); err != nil {
		return fmt.Errorf("writing skeleton: %w", err)
	}
	frames, err := store.Record(ctx, a, uint32(*from), last, math.Identity())
	if err != nil {
		return fmt.Errorf("recording frames: %w", err)
	}

	fmt.Fprintf(e.out, "Wrote %d frames x %d bones to %s\n", frames, a.Skeleton().Len(), *out)
	return nil
}

func cmdConfig(e *env, args []string) error {
	fs := newFlagSet("config")
	out := fs.String("o", "", "Write the effective config to this path (default: user config dir)")
	if err := fs.Parse(args); err != nil || fs.NArg() != 0 {
		return errUsage
	}

	path := *out
	if path == "" {
		path = filepath.Join(config.ConfigDir(), "config.yaml")
	}
	if err := e.cfg.SaveTo(path); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	fmt.Fprintf(e.out, "Wrote %s\n", path)
	return nil
}
