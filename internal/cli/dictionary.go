package cli

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"assoc-quiz-service/internal/config"
	"assoc-quiz-service/internal/domain"
	"github.com/spf13/cobra"
)

// NewDictionaryCmd prints the frequency dictionary of one stimulus.
func NewDictionaryCmd(configPath *string) *cobra.Command {
	var (
		word string
		opts domain.SelectionOptions
	)
	cmd := &cobra.Command{
		Use:   "dictionary",
		Short: "Print the reaction frequency dictionary for a stimulus",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDictionary(cmd.Context(), *configPath, word, opts, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&word, "word", "w", "", "stimulus word")
	cmd.Flags().Int64Var(&opts.QuizID, "quiz", 0, "only reactions from this quiz")
	cmd.Flags().StringVar(&opts.Sex, "sex", "", "only reactions from people of this sex")
	cmd.Flags().IntVar(&opts.AgeFrom, "age-from", 0, "minimum age")
	cmd.Flags().IntVar(&opts.AgeTo, "age-to", 0, "maximum age")
	cmd.Flags().StringVar(&opts.NativeLanguage, "native-language", "", "only reactions from native speakers of this language")
	cmd.Flags().StringVar(&opts.Region, "region", "", "only reactions from this region")
	_ = cmd.MarkFlagRequired("word")
	return cmd
}

func runDictionary(ctx context.Context, configPath, word string, opts domain.SelectionOptions, out io.Writer) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log.Level)
	if err != nil {
		return err
	}
	defer logger.Sync()

	b, err := newBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer b.Close()

	dict, err := b.dictionary.Lookup(ctx, word, opts)
	if err != nil {
		return err
	}
	return writeDictionary(out, dict)
}

func writeDictionary(out io.Writer, dict domain.Dictionary) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "REACTION\tCOUNT\n")
	for _, entry := range dict.Entries {
		text := "<none>"
		if entry.Reaction != nil {
			text = fmt.Sprintf("%q", *entry.Reaction)
		}
		fmt.Fprintf(tw, "%s\t%d\n", text, entry.Count)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "\ntotal=%d distinct=%d single=%d null=%d\n",
		dict.Brief.Total, dict.Brief.Distinct, dict.Brief.Single, dict.Brief.Null)
	return err
}
