// stagetool is a CLI utility for inspecting, exporting and packing stages.
package main

import (
	"context"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"

	"github.com/Faultbox/stagegraph/internal/config"
	"github.com/Faultbox/stagegraph/internal/engine/camera"
	"github.com/Faultbox/stagegraph/internal/engine/gfx"
	"github.com/Faultbox/stagegraph/internal/engine/renderer"
	"github.com/Faultbox/stagegraph/internal/engine/scene"
	"github.com/Faultbox/stagegraph/internal/export"
	"github.com/Faultbox/stagegraph/internal/fetch"
	"github.com/Faultbox/stagegraph/internal/logger"
	"github.com/Faultbox/stagegraph/internal/stage"
	"github.com/Faultbox/stagegraph/pkg/pak"
)

var dumpConfig = &spew.ConfigState{
	Indent:                  "  ",
	DisableCapacities:       true,
	DisablePointerAddresses: true,
	SortKeys:                true,
}

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("Config error: %v", err)
	}
	if err := logger.Init(cfg.Logging.Level, ""); err != nil {
		fatalf("Logger error: %v", err)
	}
	defer logger.Sync()

	command, args := args[0], args[1:]
	switch command {
	case "stages":
		cmdStages()
	case "dump":
		cmdDump(cfg, args)
	case "export":
		cmdExport(cfg, args)
	case "render":
		cmdRender(cfg, args)
	case "pack":
		cmdPack(args)
	case "list", "ls":
		cmdList(args)
	case "help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`stagetool - stage inspection and packaging utility

Usage:
  stagetool [flags] <command> [arguments]

Commands:
  stages                           List the stage catalog
  dump <stage>                     Print placement records and resolved objects
  export <stage> <out.gltf|.glb>   Export the assembled stage as glTF
  render <stage>                   Render one frame headless and print the passes
  pack <dir> <out.pak>             Pack a directory tree
  list <file.pak> [pattern]        List files in a pack

Flags are the viewer flags, e.g. -data, -remote, -config.

Examples:
  stagetool stages
  stagetool -data ./data dump STG_02_00
  stagetool -data ./data export STG_02_00 boat.glb
  stagetool pack ./data stages.pak`)
}

func fatalf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func cmdStages() {
	for _, g := range stage.Catalog() {
		fmt.Println(g.Name)
		for _, d := range g.Stages {
			kind := ""
			if d.Alternate {
				kind = " (alternate)"
			}
			fmt.Printf("  %-10s %s%s\n", d.ID, d.Name, kind)
		}
	}
}

// loadAssets fetches everything one stage needs from the configured sources.
func loadAssets(cfg *config.Config, id string) (*fetch.Sources, *stage.Assets) {
	d, ok := stage.Find(id)
	if !ok {
		fatalf("Unknown stage: %s", id)
	}
	src, err := fetch.Open(cfg.Data)
	if err != nil {
		fatalf("Error: %v", err)
	}
	loader := stage.NewLoader(src)
	loader.Base = cfg.Data.Base
	loader.Ext = cfg.Data.ArchiveExt
	loader.MaxConcurrent = cfg.Data.MaxConcurrentFetches

	assets, err := loader.Load(context.Background(), d)
	if err != nil {
		src.Close()
		fatalf("Error: %v", err)
	}
	return src, assets
}

type objectSummary struct {
	Source      string
	Fallback    bool
	Models      []string
	Translation [3]float32
	Rotation    [3]float32
}

func cmdDump(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatalf("Usage: stagetool dump <stage>")
	}
	src, assets := loadAssets(cfg, args[0])
	defer src.Close()

	fmt.Printf("Stage: %s (%s)\n", assets.Desc.ID, assets.Desc.Name)
	for _, a := range assets.Stage {
		fmt.Printf("Archive %s: %d models, %d textures, %d animations\n",
			a.Key, len(a.Archive.Models), len(a.Archive.Textures), len(a.Archive.SceneAnims))
	}

	fmt.Println("\nRecords:")
	dumpConfig.Dump(assets.Records)

	objects := make([]objectSummary, len(assets.Objects))
	for i, p := range assets.Objects {
		o := objectSummary{
			Source:      p.Source,
			Fallback:    p.Fallback,
			Translation: p.Translation,
			Rotation:    p.Rotation,
		}
		for _, m := range p.Archive.Models {
			o.Models = append(o.Models, m.Name)
		}
		objects[i] = o
	}
	fmt.Println("\nObjects:")
	dumpConfig.Dump(objects)
}

func cmdExport(cfg *config.Config, args []string) {
	if len(args) < 2 {
		fatalf("Usage: stagetool export <stage> <out.gltf|.glb>")
	}
	src, assets := loadAssets(cfg, args[0])
	defer src.Close()

	doc, err := export.GLTF(assets)
	if err != nil {
		fatalf("Error: %v", err)
	}

	out := args[1]
	f, err := os.Create(out)
	if err != nil {
		fatalf("Error creating file: %v", err)
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(out), ".glb") {
		err = export.WriteBinary(f, doc)
	} else {
		err = export.Write(f, doc)
	}
	if err != nil {
		fatalf("Error writing %s: %v", out, err)
	}
	fmt.Printf("Exported %s: %d nodes, %d meshes, %d textures\n",
		out, len(doc.Nodes), len(doc.Meshes), len(doc.Textures))
}

func cmdRender(cfg *config.Config, args []string) {
	if len(args) < 1 {
		fatalf("Usage: stagetool render <stage>")
	}
	src, assets := loadAssets(cfg, args[0])
	defer src.Close()

	device := gfx.NewHeadlessDevice()
	helper := renderer.NewHelper(device)
	defer helper.Destroy()
	r := renderer.New(helper, renderer.Config{
		ClearColor:   cfg.Graphics.ClearColor,
		Antialiasing: cfg.Graphics.Antialiasing == config.AntialiasingFXAA,
	})

	sc, err := scene.Assemble(device, helper.Cache, assets.Desc.ID, assets.Stage, assets.Objects)
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer sc.Destroy()

	w, h := cfg.Graphics.Width, cfg.Graphics.Height
	onscreen, err := device.CreateTexture(gfx.TextureDesc{Width: w, Height: h, Format: gfx.FormatRGBA8})
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer device.DestroyTexture(onscreen)

	cam := camera.NewOrbitCamera()
	cam.FitToBounds(sc.Bounds())
	err = r.Render(sc, renderer.ViewerInput{
		Width:      w,
		Height:     h,
		Projection: cam.ProjectionMatrix(w, h),
		View:       cam.ViewMatrix(),
		Onscreen:   onscreen,
	})
	if err != nil {
		fatalf("Render error: %v", err)
	}

	fmt.Println(device.CommandLog())
	st := device.Stats()
	fmt.Printf("\nInstances: %d\n", len(sc.Instances()))
	fmt.Printf("Buffers: %d  Textures: %d  Targets: %d  Programs: %d\n",
		st.Buffers, st.Textures, st.RenderTargets, st.Programs)
	fmt.Printf("Memory:  %.2f MB\n", float64(st.Bytes)/(1024*1024))
}

func cmdPack(args []string) {
	if len(args) < 2 {
		fatalf("Usage: stagetool pack <dir> <out.pak>")
	}
	root, out := args[0], args[1]

	f, err := os.Create(out)
	if err != nil {
		fatalf("Error creating file: %v", err)
	}
	defer f.Close()

	w := pak.NewWriter(f)
	count := 0
	err = filepath.WalkDir(root, func(path string, e fs.DirEntry, err error) error {
		if err != nil || e.IsDir() {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		count++
		return w.Add(filepath.ToSlash(rel), data)
	})
	if err != nil {
		fatalf("Error: %v", err)
	}
	if err := w.Close(); err != nil {
		fatalf("Error writing %s: %v", out, err)
	}
	fmt.Printf("Packed %d files into %s\n", count, out)
}

func cmdList(args []string) {
	flags := flag.NewFlagSet("list", flag.ExitOnError)
	limit := flags.Int("n", 0, "Limit output to N files (0 = all)")
	flags.Parse(args)

	if flags.NArg() < 1 {
		fatalf("Usage: stagetool list <file.pak> [pattern]")
	}

	archive, err := pak.Open(flags.Arg(0))
	if err != nil {
		fatalf("Error: %v", err)
	}
	defer archive.Close()

	files := archive.List()
	sort.Strings(files)

	pattern := ""
	if flags.NArg() > 1 {
		pattern = strings.ToLower(flags.Arg(1))
	}

	count := 0
	for _, f := range files {
		if pattern != "" {
			matched, _ := filepath.Match(pattern, strings.ToLower(filepath.Base(f)))
			if !matched && !strings.Contains(strings.ToLower(f), pattern) {
				continue
			}
		}
		e, _ := archive.Stat(f)
		fmt.Printf("%10d  %s\n", e.UncompressedSize, f)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d files matched)\n", count)
	}
}
