package main

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/kailas-cloud/vecquery/internal/app"
	"github.com/kailas-cloud/vecquery/internal/config"
	"github.com/kailas-cloud/vecquery/internal/domain/dsl"
	logpkg "github.com/kailas-cloud/vecquery/internal/logger"
	"github.com/kailas-cloud/vecquery/internal/usecase/querybuild"
	"github.com/kailas-cloud/vecquery/internal/version"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "vecquery-cli",
		Usage:   "Build search engine queries offline with the vecquery pipeline",
		Version: version.String(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "env",
				Aliases: []string{"e"},
				Usage:   "Configuration environment (local, dev, prod)",
				Value:   config.GetEnv(),
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a configuration file, overrides --env",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "build",
				Usage:     "Build the engine query for a query string",
				ArgsUsage: "<query>",
				Action:    buildCommand,
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "lang",
						Usage: "Language candidates in preference order",
					},
					&cli.StringSliceFlag{
						Name:  "role",
						Usage: "Roles of the requesting user",
					},
					&cli.StringFlag{
						Name:  "default-field",
						Usage: "Field bare terms are searched in",
					},
				},
			},
			{
				Name:   "languages",
				Usage:  "List the languages the vectorizer supports",
				Action: languagesCommand,
			},
			{
				Name:   "engine",
				Usage:  "Show the detected search engine and whether semantic search is enabled",
				Action: engineCommand,
			},
			{
				Name:  "cache",
				Usage: "Inspect the sentence vector cache",
				Subcommands: []*cli.Command{
					{
						Name:      "show",
						Usage:     "Show the cached vectors of a text",
						ArgsUsage: "<text>",
						Action:    cacheShowCommand,
						Flags:     []cli.Flag{langFlag()},
					},
					{
						Name:      "evict",
						Usage:     "Drop the cached vectors of a text",
						ArgsUsage: "<text>",
						Action:    cacheEvictCommand,
						Flags:     []cli.Flag{langFlag()},
					},
				},
			},
		},
	}
}

func langFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "lang",
		Usage:    "Language of the text",
		Required: true,
	}
}

// session loads configuration and builds the pipeline for one command.
func session(c *cli.Context) (config.Config, *app.Pipeline, error) {
	var (
		cfg config.Config
		err error
	)
	if path := c.String("config"); path != "" {
		var data []byte
		data, err = os.ReadFile(filepath.Clean(path))
		if err != nil {
			return config.Config{}, nil, fmt.Errorf("read config: %w", err)
		}
		cfg, err = config.Parse(data)
	} else {
		cfg, err = config.Load(c.String("env"))
	}
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(c.String("env"), logpkg.Options{Level: c.String("log-level"), Format: logpkg.FormatConsole})
	if err != nil {
		return config.Config{}, nil, fmt.Errorf("create logger: %w", err)
	}
	return cfg, app.New(c.Context, cfg, logger), nil
}

type buildOutput struct {
	BuildID    string              `json:"build_id"`
	Query      map[string]any      `json:"query"`
	Sort       []map[string]any    `json:"sort,omitempty"`
	Highlights []string            `json:"highlights,omitempty"`
	FieldLogs  map[string][]string `json:"field_logs,omitempty"`
}

func buildCommand(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("query argument is required")
	}
	_, p, err := session(c)
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.Builder.Build(c.Context, querybuild.Request{
		Query:        strings.Join(c.Args().Slice(), " "),
		Languages:    c.StringSlice("lang"),
		DefaultField: c.String("default-field"),
		Roles:        c.StringSlice("role"),
	})
	if err != nil {
		return err
	}

	out := buildOutput{
		BuildID:    res.BuildID,
		Query:      orMatchAll(res.Query).Source(),
		Highlights: res.Highlights,
		FieldLogs:  res.FieldLogs,
	}
	for _, s := range res.Sorts {
		out.Sort = append(out.Sort, s.Source())
	}
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func languagesCommand(c *cli.Context) error {
	_, p, err := session(c)
	if err != nil {
		return err
	}
	defer p.Close()

	langs := append([]string(nil), p.Languages...)
	sort.Strings(langs)
	for _, l := range langs {
		fmt.Fprintln(c.App.Writer, l)
	}
	return nil
}

func engineCommand(c *cli.Context) error {
	_, p, err := session(c)
	if err != nil {
		return err
	}
	defer p.Close()

	fmt.Fprintf(c.App.Writer, "engine: %s\nversion: %s\nsemantic: %t\n",
		p.Engine.Type, p.Engine.Version, p.Semantic.Enabled())
	return nil
}

func cacheShowCommand(c *cli.Context) error {
	cfg, p, err := session(c)
	if err != nil {
		return err
	}
	defer p.Close()
	if p.Cache == nil {
		return fmt.Errorf("vector cache is not configured")
	}

	text := cfg.Vectorizer.QueryInstruction + strings.Join(c.Args().Slice(), " ")
	for _, field := range cfg.Vectorizer.Fields {
		vec, found, err := p.Cache.Lookup(c.Context, c.String("lang"), field, text)
		if err != nil {
			return err
		}
		if !found {
			fmt.Fprintf(c.App.Writer, "%s: not cached\n", field)
			continue
		}
		fmt.Fprintf(c.App.Writer, "%s: %d dimensions\n", field, len(vec))
	}
	return nil
}

func cacheEvictCommand(c *cli.Context) error {
	cfg, p, err := session(c)
	if err != nil {
		return err
	}
	defer p.Close()
	if p.Cache == nil {
		return fmt.Errorf("vector cache is not configured")
	}

	text := cfg.Vectorizer.QueryInstruction + strings.Join(c.Args().Slice(), " ")
	if err := p.Cache.Evict(c.Context, c.String("lang"), text, cfg.Vectorizer.Fields...); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "evicted %d fields\n", len(cfg.Vectorizer.Fields))
	return nil
}

func orMatchAll(q dsl.Query) dsl.Query {
	if q == nil {
		return dsl.MatchAll()
	}
	return q
}
