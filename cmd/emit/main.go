package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/emit"
	"github.com/wippyai/emit/engine"
	"github.com/wippyai/emit/importmap"
	"github.com/wippyai/emit/loader"
	"github.com/wippyai/emit/locate"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7D56F4"))

	specStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))
)

// styled renders text through a style only when stderr is a terminal
func styled(s lipgloss.Style, text string) string {
	if term.IsTerminal(int(os.Stderr.Fd())) {
		return s.Render(text)
	}
	return text
}

func main() {
	var (
		transpile   = flag.Bool("transpile", false, "Emit each module separately instead of one bundle")
		bundleType  = flag.String("type", "module", "Bundle type: module or classic")
		minify      = flag.Bool("minify", false, "Minify the bundle")
		importMap   = flag.String("import-map", "", "Path or URL of an import map file")
		configFile  = flag.String("config", "", "Path of a JSON file with compiler options")
		outFile     = flag.String("out", "", "Write output here instead of stdout")
		allowRemote = flag.Bool("allow-remote", false, "Permit loading http(s) modules")
		cache       = flag.String("cache", "use", "Cache setting: only, use or reload")
		engineWasm  = flag.String("engine-wasm", "", "Run this compiler wasm binary instead of the native engine")
		verbose     = flag.Bool("v", false, "Verbose engine logging")
	)
	flag.Parse()

	root := flag.Arg(0)
	if root == "" {
		fmt.Fprintln(os.Stderr, "Usage: emit [flags] <root module>")
		fmt.Fprintln(os.Stderr, "       emit -transpile [flags] <root module>")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if *verbose {
		logger, err := zap.NewDevelopment()
		if err == nil {
			engine.SetLogger(logger)
			defer logger.Sync()
		}
	}

	if err := run(context.Background(), runConfig{
		root:        root,
		transpile:   *transpile,
		bundleType:  emit.BundleType(*bundleType),
		minify:      *minify,
		importMap:   *importMap,
		configFile:  *configFile,
		outFile:     *outFile,
		allowRemote: *allowRemote,
		cache:       loader.CacheSetting(*cache),
		engineWasm:  *engineWasm,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "%s %v\n", styled(errorStyle, "Error:"), err)
		os.Exit(1)
	}
}

type runConfig struct {
	root        string
	bundleType  emit.BundleType
	importMap   string
	configFile  string
	outFile     string
	cache       loader.CacheSetting
	engineWasm  string
	transpile   bool
	minify      bool
	allowRemote bool
}

func run(ctx context.Context, cfg runConfig) error {
	options, err := loadCompilerOptions(cfg.configFile)
	if err != nil {
		return err
	}

	opts := emit.Options{
		CompilerOptions: options,
		Cache:           cfg.cache,
		AllowRemote:     cfg.allowRemote,
	}
	if cfg.importMap != "" {
		opts.ImportMap = importmap.Ref{Location: locate.FromString(cfg.importMap)}
	}

	if cfg.engineWasm != "" {
		binary, err := os.ReadFile(cfg.engineWasm)
		if err != nil {
			return fmt.Errorf("read engine binary: %w", err)
		}
		eng, err := engine.NewWazeroEngine(ctx, binary)
		if err != nil {
			return err
		}
		defer eng.Close(ctx)
		opts.Engine = eng
	}

	root := locate.FromString(cfg.root)

	if cfg.transpile {
		out, err := emit.Transpile(ctx, root, emit.TranspileOptions{Options: opts})
		if err != nil {
			return err
		}
		return writeTranspiled(out, cfg.outFile)
	}

	result, err := emit.Bundle(ctx, root, emit.BundleOptions{
		Options: opts,
		Type:    cfg.bundleType,
		Minify:  cfg.minify,
	})
	if err != nil {
		return err
	}
	return writeBundle(result, cfg.outFile)
}

// loadCompilerOptions reads a JSON config file. Both a bare options object
// and a tsconfig-style {"compilerOptions": {...}} wrapper are accepted.
func loadCompilerOptions(path string) (*emit.CompilerOptions, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var wrapper struct {
		CompilerOptions json.RawMessage `json:"compilerOptions"`
	}
	if err := json.Unmarshal(data, &wrapper); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if wrapper.CompilerOptions != nil {
		data = wrapper.CompilerOptions
	}

	var options emit.CompilerOptions
	if err := json.Unmarshal(data, &options); err != nil {
		return nil, fmt.Errorf("parse compiler options: %w", err)
	}
	return &options, nil
}

func writeBundle(result *emit.BundleEmit, outFile string) error {
	if outFile == "" {
		fmt.Print(result.Code)
		if result.Map != "" {
			fmt.Fprintln(os.Stderr, styled(headerStyle, "source map omitted; use -out to write it"))
		}
		return nil
	}

	if err := os.WriteFile(outFile, []byte(result.Code), 0o644); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	fmt.Fprintf(os.Stderr, "%s %s\n", styled(headerStyle, "Bundle:"), styled(specStyle, outFile))

	if result.Map != "" {
		mapFile := outFile + ".map"
		if err := os.WriteFile(mapFile, []byte(result.Map), 0o644); err != nil {
			return fmt.Errorf("write source map: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s %s\n", styled(headerStyle, "Map:"), styled(specStyle, mapFile))
	}
	return nil
}

// writeTranspiled prints modules in specifier order, or writes the whole
// result as a JSON object when an output file is given.
func writeTranspiled(out map[string]string, outFile string) error {
	if outFile != "" {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		if err := os.WriteFile(outFile, data, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		fmt.Fprintf(os.Stderr, "%s %d modules to %s\n",
			styled(headerStyle, "Transpiled:"), len(out), styled(specStyle, outFile))
		return nil
	}

	specifiers := make([]string, 0, len(out))
	for s := range out {
		specifiers = append(specifiers, s)
	}
	sort.Strings(specifiers)

	for _, s := range specifiers {
		fmt.Println(styled(headerStyle, "=== "+s+" ==="))
		code := out[s]
		fmt.Print(code)
		if !strings.HasSuffix(code, "\n") {
			fmt.Println()
		}
	}
	return nil
}
