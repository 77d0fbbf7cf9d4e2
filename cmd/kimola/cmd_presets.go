package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kimola/kimola-go/internal/extract"
	"github.com/kimola/kimola-go/kimola"
)

// maxParallelPredictions bounds concurrent requests for --paragraphs.
const maxParallelPredictions = 4

func newPresetsCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "presets",
		Short: "Browse pretrained models and run predictions",
	}
	cmd.AddCommand(
		newPresetsListCmd(c),
		newPresetsGetCmd(c),
		newPresetsLabelsCmd(c),
		newPresetsPredictCmd(c),
	)
	return cmd
}

func newPresetsListCmd(c *cli) *cobra.Command {
	var (
		params   kimola.ListPresetsParams
		kind     string
		category string
		all      bool
		maxPages int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List presets",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params.Type = kimola.PresetType(kind)
			params.Category = kimola.PresetCategory(category)
			return c.withClient(func(client *kimola.Client) error {
				ctx := cmd.Context()
				var presets []kimola.Preset
				total := 0
				if all {
					for p, err := range client.Presets.All(ctx, params, maxPages) {
						if err != nil {
							return err
						}
						presets = append(presets, p)
					}
					total = len(presets)
				} else {
					page, err := client.Presets.List(ctx, params)
					if err != nil {
						return err
					}
					presets, total = page.Items, page.Total
				}

				out := cmd.OutOrStdout()
				if c.json {
					return printJSON(out, kimola.PresetPage{Total: total, Items: presets})
				}
				rows := make([][]string, 0, len(presets))
				for _, p := range presets {
					rows = append(rows, []string{p.Key, p.Name, p.Slug})
				}
				if err := renderTable(out, []string{"KEY", "NAME", "SLUG"}, rows); err != nil {
					return err
				}
				_, err := fmt.Fprintf(out, "%d of %d presets\n", len(presets), total)
				return err
			})
		},
	}
	cmd.Flags().IntVar(&params.PageIndex, "page", 0, "page index")
	cmd.Flags().IntVar(&params.PageSize, "size", 10, "page size")
	cmd.Flags().StringVar(&kind, "type", "", "filter by type (Extractor, Classifier)")
	cmd.Flags().StringVar(&category, "category", "", `filter by category ("Sentiment Classifier", "Content Classifier")`)
	cmd.Flags().BoolVar(&all, "all", false, "fetch every page")
	cmd.Flags().IntVar(&maxPages, "max-pages", 0, "page cap for --all (default 100)")
	return cmd
}

func newPresetsGetCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Show one preset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(func(client *kimola.Client) error {
				p, err := client.Presets.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if c.json {
					return printJSON(cmd.OutOrStdout(), p)
				}
				return renderTable(cmd.OutOrStdout(), []string{"KEY", "NAME", "SLUG"}, [][]string{{p.Key, p.Name, p.Slug}})
			})
		},
	}
}

func newPresetsLabelsCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "labels <key>",
		Short: "List the labels a preset predicts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withClient(func(client *kimola.Client) error {
				labels, err := client.Presets.Labels(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if c.json {
					if labels == nil {
						labels = []kimola.PresetLabel{}
					}
					return printJSON(cmd.OutOrStdout(), labels)
				}
				rows := make([][]string, 0, len(labels))
				for _, l := range labels {
					rows = append(rows, []string{l.Name, l.Description})
				}
				return renderTable(cmd.OutOrStdout(), []string{"LABEL", "DESCRIPTION"}, rows)
			})
		},
	}
}

type prediction struct {
	Text    string                    `json:"text"`
	Results []kimola.PredictionResult `json:"results"`
}

func newPresetsPredictCmd(c *cli) *cobra.Command {
	var (
		opts       kimola.PredictOptions
		file       string
		paragraphs bool
	)
	cmd := &cobra.Command{
		Use:   "predict <key> [text]",
		Short: "Classify text with a preset",
		Long: `Classify text with a preset.

Text is taken from the second argument or extracted from --file (pdf, docx,
txt, md). With --paragraphs each blank-line separated paragraph is classified
on its own.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := predictionText(cmd, args, file)
			if err != nil {
				return err
			}
			chunks := []string{text}
			if paragraphs {
				chunks = extract.Paragraphs(text)
			}
			return c.withClient(func(client *kimola.Client) error {
				preds, err := predictAll(cmd, client, args[0], chunks, opts)
				if err != nil {
					return err
				}
				if c.json {
					if !paragraphs {
						return printJSON(cmd.OutOrStdout(), preds[0].Results)
					}
					return printJSON(cmd.OutOrStdout(), preds)
				}
				var rows [][]string
				for i, p := range preds {
					for _, r := range p.Results {
						rows = append(rows, []string{strconv.Itoa(i + 1), r.Name, r.Score()})
					}
				}
				return renderTable(cmd.OutOrStdout(), []string{"#", "LABEL", "SCORE"}, rows)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Language, "language", "", "ISO-639-1 language code")
	cmd.Flags().BoolVar(&opts.AspectBased, "aspect-based", false, "return per-aspect sentiments")
	cmd.Flags().StringVar(&file, "file", "", "read text from a pdf, docx or text file")
	cmd.Flags().BoolVar(&paragraphs, "paragraphs", false, "classify each paragraph separately")
	return cmd
}

func predictionText(cmd *cobra.Command, args []string, file string) (string, error) {
	switch {
	case file != "" && len(args) == 2:
		return "", errors.New("pass either text or --file, not both")
	case file != "":
		return extract.File(cmd.Context(), file)
	case len(args) == 2:
		return args[1], nil
	default:
		return "", errors.New("text argument or --file is required")
	}
}

func predictAll(cmd *cobra.Command, client *kimola.Client, key string, chunks []string, opts kimola.PredictOptions) ([]prediction, error) {
	if len(chunks) == 0 {
		return nil, kimola.ErrEmptyText
	}
	preds := make([]prediction, len(chunks))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(maxParallelPredictions)
	for i, chunk := range chunks {
		g.Go(func() error {
			results, err := client.Presets.Predict(ctx, key, chunk, opts)
			if err != nil {
				return fmt.Errorf("paragraph %d: %w", i+1, err)
			}
			preds[i] = prediction{Text: strings.TrimSpace(chunk), Results: results}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return preds, nil
}
