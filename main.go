package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/maruel/natural"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

const appName = "GoZoom"

// appEnv is filled in before any command runs.
type appEnv struct {
	cfg *Config
	log *zap.Logger
}

type envKey struct{}

func contextWithEnv(ctx context.Context) context.Context {
	return context.WithValue(ctx, envKey{}, &appEnv{log: zap.NewNop()})
}

func envFromContext(ctx context.Context) *appEnv {
	if env, ok := ctx.Value(envKey{}).(*appEnv); ok {
		return env
	}
	return &appEnv{cfg: defaultConfig(), log: zap.NewNop()}
}

func initializeAppContext(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	env := envFromContext(ctx)

	cfg, err := LoadConfig(cmd.String("config"))
	if err != nil {
		return ctx, fmt.Errorf("unable to prepare configuration: %w", err)
	}
	env.cfg = cfg

	if env.log, err = newLogger(cfg.Log, cmd.Bool("debug")); err != nil {
		return ctx, fmt.Errorf("unable to prepare logs: %w", err)
	}
	env.log.Debug("Program started", zap.Strings("args", os.Args))
	return ctx, nil
}

func destroyAppContext(ctx context.Context, _ *cli.Command) error {
	env := envFromContext(ctx)
	env.log.Debug("Program ended")
	// Sync fails on plain terminals; nothing useful can be done about it.
	_ = env.log.Sync()
	return nil
}

func exitErrHandler(ctx context.Context, _ *cli.Command, err error) {
	envFromContext(ctx).log.Error("Program ended with error", zap.Error(err))
}

func main() {
	ctx, stop := signal.NotifyContext(contextWithEnv(context.Background()), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := &cli.Command{
		Name:            appName,
		Usage:           "resize inline PNG images in markdown documents with modifier + mouse wheel",
		HideHelpCommand: true,
		Before:          initializeAppContext,
		After:           destroyAppContext,
		ExitErrHandler:  exitErrHandler,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Value: "config.toml", Usage: "load configuration from `FILE` (TOML)"},
			&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: "log at debug level"},
		},
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Reads host events as JSON lines on stdin, writes scroll commands to stdout",
				Flags:  []cli.Flag{vaultFlag()},
				Action: runServe,
			},
			{
				Name:  "zoom",
				Usage: "Applies one zoom step to an inline PNG image of a document",
				Flags: []cli.Flag{
					vaultFlag(),
					&cli.StringFlag{Name: "file", Aliases: []string{"f"}, Required: true, Usage: "document `PATH` relative to the vault"},
					&cli.IntFlag{Name: "image", Aliases: []string{"i"}, Value: 1, Usage: "`N`th inline PNG of the document, counting from 1"},
					&cli.IntFlag{Name: "width", Aliases: []string{"w"}, Usage: "displayed `WIDTH` (default: annotated width, else native width)"},
					&cli.BoolFlag{Name: "out", Usage: "zoom out instead of in"},
				},
				Action: runZoom,
			},
			{
				Name:      "scan",
				Usage:     "Lists image embeds of a document or of every document in a directory",
				ArgsUsage: "PATH",
				Action:    runScan,
			},
			{
				Name:      "dumpconfig",
				Usage:     "Dumps the active configuration (TOML)",
				ArgsUsage: "[DESTINATION]",
				Action:    runDumpConfig,
			},
		},
	}

	if err := app.Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func vaultFlag() cli.Flag {
	return &cli.StringFlag{Name: "vault", Aliases: []string{"V"}, Usage: "vault root `DIR` (overrides [vault] root)"}
}

func vaultConfig(env *appEnv, cmd *cli.Command) VaultConfig {
	vault := env.cfg.Vault
	if root := cmd.String("vault"); root != "" {
		vault.Root = root
	}
	return vault
}

func runServe(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)

	ws, err := NewWorkspace(vaultConfig(env, cmd), env.log)
	if err != nil {
		return err
	}
	p := NewPlugin(env.cfg, ws, newJSONHost(os.Stdout), env.log)
	events := readEvents(ctx, os.Stdin, func(err error) {
		env.log.Warn("Skipping event", zap.Error(err))
	})
	return p.Serve(ctx, events)
}

func runZoom(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)

	ws, err := NewWorkspace(vaultConfig(env, cmd), env.log)
	if err != nil {
		return err
	}
	res, err := zoomDocument(ctx, ws, env.log, cmd.String("file"), int(cmd.Int("image")), int(cmd.Int("width")), cmd.Bool("out"))
	if err != nil {
		return err
	}

	from := "native"
	if res.Old > 0 {
		from = fmt.Sprintf("%dpx", res.Old)
	}
	fmt.Printf("'%s': %s -> %dpx (native %dpx)\n", res.Path, from, res.New, res.Native)
	return nil
}

// zoomDocument zooms the nth inline PNG of the document one step. Without an
// explicit width the image is taken to display at its annotated width, or at
// its native width when bare.
func zoomDocument(ctx context.Context, ws *Workspace, log *zap.Logger, rel string, n, width int, out bool) (ZoomResult, error) {
	text, err := ws.Read(ctx, rel)
	if err != nil {
		return ZoomResult{}, err
	}

	var pngs []EmbedInfo
	for _, e := range scanEmbeds(text) {
		if e.IsPNG() {
			pngs = append(pngs, e)
		}
	}
	if n < 1 || n > len(pngs) {
		return ZoomResult{}, fmt.Errorf("document '%s' has %d inline png images, no image %d", rel, len(pngs), n)
	}
	e := pngs[n-1]
	if e.Err != nil {
		return ZoomResult{}, e.Err
	}

	if width <= 0 {
		width = e.Width
	}
	if width <= 0 {
		width = e.Native
	}
	delta := -1.0
	if out {
		delta = 1
	}
	return NewZoomer(ws, log).Zoom(ctx, ZoomRequest{Path: rel, URI: e.URI, Rendered: width, DeltaY: delta})
}

func runScan(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)
	if cmd.NArg() != 1 {
		return errors.New("scan needs exactly one PATH")
	}
	return scanPath(os.Stdout, cmd.Args().First(), env.cfg.Vault)
}

// scanPath prints every image embed of the document at target, or of every
// document below target when it is a directory.
func scanPath(w io.Writer, target string, vault VaultConfig) error {
	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("path '%s' does not exist", target)
	}

	files := []string{target}
	if info.IsDir() {
		files = files[:0]
		err := filepath.WalkDir(target, func(path string, d os.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if vault.IsDocument(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return err
		}
		sort.Sort(natural.StringSlice(files))
	}

	for _, file := range files {
		data, err := os.ReadFile(file)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error reading '%s': %v\n", file, err)
			continue
		}
		for _, e := range scanEmbeds(string(data)) {
			fmt.Fprintf(w, "%s:%d: %s\n", file, e.Line, describeEmbed(e))
		}
	}
	return nil
}

func describeEmbed(e EmbedInfo) string {
	mime := e.MIME
	if mime == "" {
		mime = "unknown"
	}
	width := "bare"
	if e.Width > 0 {
		width = fmt.Sprintf("%dpx", e.Width)
	}
	s := fmt.Sprintf("%s %s", mime, width)
	switch {
	case e.Err != nil:
		s += fmt.Sprintf(" (native: %v)", e.Err)
	case e.Native > 0:
		s += fmt.Sprintf(" (native %dpx)", e.Native)
	}
	return s + " " + abbreviate(e.URI, 40)
}

func runDumpConfig(ctx context.Context, cmd *cli.Command) error {
	env := envFromContext(ctx)

	out := io.Writer(os.Stdout)
	if cmd.NArg() > 0 {
		f, err := os.Create(cmd.Args().First())
		if err != nil {
			return fmt.Errorf("unable to create destination: %w", err)
		}
		defer f.Close()
		out = f
	}
	return DumpConfig(out, env.cfg)
}
