package main

import (
	"fmt"
	"log/slog"

	"github.com/ezqanoon/statute-bot/internal/config"
	"github.com/ezqanoon/statute-bot/internal/ingest"
	"github.com/ezqanoon/statute-bot/internal/retrieval"
	"github.com/ezqanoon/statute-bot/internal/statutes"
	"github.com/spf13/cobra"
)

var (
	ingestName        string
	ingestDir         string
	ingestConcurrency int

	searchJurisdiction string
	searchStore        string
	searchQuery        string
	searchTopK         int
)

func init() {
	rootCmd.AddCommand(ingestCmd, deleteCmd, searchCmd)

	ingestCmd.Flags().StringVar(&ingestName, "name", "", "vector store name")
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "folder of statute documents")
	ingestCmd.Flags().IntVar(&ingestConcurrency, "concurrency", ingest.DefaultConcurrency, "parallel uploads")
	_ = ingestCmd.MarkFlagRequired("name")
	_ = ingestCmd.MarkFlagRequired("dir")

	searchCmd.Flags().StringVar(&searchJurisdiction, "jurisdiction", "", "jurisdiction key (reads <KEY>_VECTOR_STORE_ID)")
	searchCmd.Flags().StringVar(&searchStore, "store", "", "vector store ID (overrides --jurisdiction)")
	searchCmd.Flags().StringVar(&searchQuery, "query", "", "search text")
	searchCmd.Flags().IntVar(&searchTopK, "top-k", retrieval.DefaultTopK, "maximum chunks returned")
	_ = searchCmd.MarkFlagRequired("query")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Create a vector store and upload every file in a folder",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := openAIClient()
		if err != nil {
			return err
		}

		res, err := ingest.New(client, ingestConcurrency, slog.Default()).Ingest(cmd.Context(), ingestName, ingestDir)
		if res != nil {
			for _, f := range res.Files {
				fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s\n", f)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Vector Store ID: %s\n", res.VectorStoreID)
		}
		return err
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <vector-store-id>",
	Short: "Delete a vector store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, _, err := openAIClient()
		if err != nil {
			return err
		}
		if err := client.DeleteVectorStore(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted vector store %s\n", args[0])
		return nil
	},
}

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Query one jurisdiction's vector store directly",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		storeID := searchStore
		if storeID == "" {
			j, ok := statutes.Lookup(searchJurisdiction)
			if !ok {
				return fmt.Errorf("unknown jurisdiction %q (one of %v)", searchJurisdiction, statutes.Keys())
			}
			storeID = config.VectorStoreID(j.Key)
			if storeID == "" {
				return fmt.Errorf("%s is not set", config.VectorStoreEnv(j.Key))
			}
		}

		client, cfg, err := openAIClient()
		if err != nil {
			return err
		}
		searcher := retrieval.NewSearcher(client, cfg.Model, retrieval.WithTopK(searchTopK))
		fmt.Fprintln(cmd.OutOrStdout(), searcher.Search(cmd.Context(), storeID, searchQuery))
		return nil
	},
}
