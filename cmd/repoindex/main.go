// The repoindex CLI inspects and maintains package repository index caches:
// listing indexed packages, showing one package's metadata, forcing a cache
// refresh, and importing a fetched archive snapshot.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"slices"

	"github.com/urfave/cli/v2"

	"github.com/meigma/repoindex"
)

func main() {
	app := &cli.App{
		Name:  "repoindex",
		Usage: "inspect and maintain package repository index caches",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "repo",
				Usage:   "repository directory (holds the archive and its cache)",
				Value:   ".",
				EnvVars: []string{"REPOINDEX_REPO"},
			},
			&cli.StringFlag{
				Name:  "name",
				Usage: "repository name used in warnings",
			},
			&cli.BoolFlag{
				Name:  "remote",
				Usage: "treat the repository as remote (enables refresh advisories)",
			},
			&cli.BoolFlag{
				Name:  "prefs",
				Usage: "extract archive-embedded preferred-versions files",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log cache activity",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "list all indexed packages",
				Action: runList,
			},
			{
				Name:      "show",
				Usage:     "show one package's metadata fields",
				ArgsUsage: "<name> <version>",
				Action:    runShow,
			},
			{
				Name:   "refresh",
				Usage:  "force the cache current with the archive",
				Action: runRefresh,
			},
			{
				Name:      "import",
				Usage:     "install a fetched archive snapshot (plain, gzip, or zstd)",
				ArgsUsage: "<snapshot-file>",
				Action:    runImport,
			},
		},
	}

	if err := app.RunContext(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "repoindex:", err)
		os.Exit(1)
	}
}

func clientAndRepo(c *cli.Context) (*repoindex.Client, repoindex.Repo) {
	opts := []repoindex.Option{
		repoindex.WithPreferredVersions(c.Bool("prefs")),
	}
	if c.Bool("verbose") {
		opts = append(opts, repoindex.WithLogger(slog.New(slog.NewTextHandler(os.Stderr, nil))))
	}
	repo := repoindex.Repo{
		Name:   c.String("name"),
		Root:   c.String("repo"),
		Remote: c.Bool("remote"),
	}
	if repo.Name == "" {
		repo.Name = repo.Root
	}
	return repoindex.New(opts...), repo
}

func runList(c *cli.Context) error {
	client, repo := clientAndRepo(c)
	snap, err := client.Load(repo)
	if err != nil {
		return err
	}
	printWarnings(snap.Warnings)
	for rec := range snap.Packages.Records() {
		if rec.BuildTreePath != "" {
			fmt.Printf("%s\t(build tree: %s)\n", rec.ID, rec.BuildTreePath)
			continue
		}
		fmt.Println(rec.ID)
	}
	for _, name := range slices.Sorted(maps.Keys(snap.Preferences)) {
		fmt.Printf("preferred: %s %s\n", name, snap.Preferences[name])
	}
	return nil
}

func runShow(c *cli.Context) error {
	if c.NArg() != 2 {
		return fmt.Errorf("usage: show <name> <version>")
	}
	name := c.Args().Get(0)
	version, err := repoindex.ParseVersion(c.Args().Get(1))
	if err != nil {
		return err
	}

	client, repo := clientAndRepo(c)
	snap, err := client.Load(repo)
	if err != nil {
		return err
	}
	printWarnings(snap.Warnings)

	rec, ok := snap.Packages.Lookup(name, version)
	if !ok {
		return fmt.Errorf("package %s-%s not found", name, version)
	}
	meta, err := rec.Metadata()
	if err != nil {
		return err
	}
	for _, key := range slices.Sorted(maps.Keys(meta.Fields)) {
		fmt.Printf("%s: %s\n", key, meta.Fields[key])
	}
	return nil
}

func runRefresh(c *cli.Context) error {
	client, repo := clientAndRepo(c)
	return client.Refresh(repo)
}

func runImport(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("usage: import <snapshot-file>")
	}
	client, repo := clientAndRepo(c)
	return client.ImportArchive(repo, c.Args().First())
}

func printWarnings(warnings []repoindex.Warning) {
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning (%s): %s\n", w.Repo, w.Message)
	}
}
