// Command typings resolves and compiles a project's typings dependency
// tree into namespaced declaration output. It is a thin wrapper around
// internal/resolve: flag parsing, an optional YAML config file, and a
// backoff-wrapped top-level call.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/glen-84/typings/internal/credentials"
	"github.com/glen-84/typings/internal/resolve"
	"github.com/glen-84/typings/internal/retry"
	"github.com/glen-84/typings/internal/typingsconfig"
)

const (
	appName    = "typings"
	appVersion = "1.0.0"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file")
	cwd := flag.String("cwd", ".", "project directory to resolve from")
	name := flag.String("name", "", "root namespace for compiled output")
	dev := flag.Bool("dev", false, "include devDependencies at the root")
	ambient := flag.Bool("ambient", false, "include ambientDependencies at the root")
	meta := flag.Bool("meta", false, "emit provenance comment headers")
	cacheDir := flag.String("cache-dir", "", "fetch cache directory (default ~/.typings/cache)")
	proxyURL := flag.String("proxy", "", "HTTP proxy URL for fetches")
	timeout := flag.Duration("http-timeout", 30*time.Second, "per-request HTTP timeout")
	githubToken := flag.String("github-token", "", "GitHub token for github: dependency resolution")
	output := flag.String("output", "", "output file for the main target (stdout if empty)")
	browserOutput := flag.String("browser-output", "", "output file for the browser target")
	verbose := flag.Bool("verbose", false, "enable debug logging")
	resolveOnly := flag.Bool("resolve-only", false, "resolve the dependency tree without compiling")
	showVersion := flag.Bool("version", false, "print the version and exit")

	flag.Parse()

	if *showVersion {
		fmt.Printf("%s %s\n", appName, appVersion)
		return
	}

	ctx := context.Background()

	var cfg *typingsconfig.Config
	if *configPath != "" {
		loaded, err := typingsconfig.LoadFile(*configPath)
		if err != nil {
			fatal(err)
		}
		cfg = loaded
		if *cwd != "." {
			cfg.Cwd = *cwd
		}
	} else {
		opts := []typingsconfig.Option{
			typingsconfig.WithCwd(*cwd),
			typingsconfig.WithName(*name),
			typingsconfig.WithDev(*dev),
			typingsconfig.WithAmbient(*ambient),
			typingsconfig.WithMeta(*meta),
			typingsconfig.WithProxyURL(*proxyURL),
			typingsconfig.WithHTTPTimeout(*timeout),
			typingsconfig.WithVerbose(*verbose),
		}
		if *cacheDir != "" {
			opts = append(opts, typingsconfig.WithCacheDir(*cacheDir))
		}
		cfg = typingsconfig.New(opts...)
	}

	if token := resolveGitHubToken(ctx, *githubToken); token != "" {
		cfg.GitHubToken = token
	}

	engine, err := resolve.New(cfg)
	if err != nil {
		fatal(err)
	}
	defer engine.Close()

	if *resolveOnly {
		if err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
			_, err := engine.Resolve(ctx, cfg)
			return err
		}); err != nil {
			fatal(err)
		}
		return
	}

	var out struct{ Main, Browser string }
	if err := retry.Do(ctx, retry.DefaultPolicy(), func(ctx context.Context) error {
		result, err := engine.Compile(ctx, cfg)
		if err != nil {
			return err
		}
		out.Main, out.Browser = result.Main, result.Browser
		return nil
	}); err != nil {
		fatal(err)
	}

	if err := writeOutput(*output, out.Main); err != nil {
		fatal(err)
	}
	if *browserOutput != "" {
		if err := writeOutput(*browserOutput, out.Browser); err != nil {
			fatal(err)
		}
	}
}

// resolveGitHubToken prefers an explicit flag, falling back to the
// credential chain (env, then the user's persisted credential file).
func resolveGitHubToken(ctx context.Context, flagValue string) string {
	if flagValue != "" {
		return flagValue
	}

	var store credentials.Store = credentials.NewEnvStore("TYPINGS")
	if home, err := os.UserHomeDir(); err == nil {
		if fileStore, ferr := credentials.NewFileStore(home + "/.typings/credentials.json"); ferr == nil {
			store = credentials.NewChainedStore(credentials.NewEnvStore("TYPINGS"), fileStore)
		}
	}

	cred, err := store.Get(ctx, credentials.GitHubToken)
	if err != nil {
		return ""
	}
	return cred.Value
}

func writeOutput(path, content string) error {
	if path == "" {
		_, err := fmt.Print(content)
		return err
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "typings:", err)
	os.Exit(1)
}
