package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kailas-cloud/riak"
)

func newAddCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "add <index> <json-doc>...",
		Short: "Index documents directly; each must carry an \"id\"",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs := make([]riak.Document, 0, len(args)-1)
			for i, raw := range args[1:] {
				var d riak.Document
				if err := json.Unmarshal([]byte(raw), &d); err != nil {
					return fmt.Errorf("document %d: %w", i, err)
				}
				docs = append(docs, d)
			}

			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.Solr().Add(commandContext(cmd), args[0], docs...); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %d document(s) to %s\n", len(docs), args[0])
			return nil
		},
	}
}

func newDeleteCmd(g *globalFlags) *cobra.Command {
	var req riak.DeleteRequest

	cmd := &cobra.Command{
		Use:   "delete <index>",
		Short: "Remove documents by id or query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Empty() {
				return fmt.Errorf("nothing to delete: pass --id or --query")
			}
			c, err := g.client()
			if err != nil {
				return err
			}
			if err := c.Solr().Delete(commandContext(cmd), args[0], req); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted from %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&req.IDs, "id", nil, "document id (repeatable)")
	cmd.Flags().StringArrayVar(&req.Queries, "query", nil, "delete query (repeatable)")
	return cmd
}

func newSearchCmd(g *globalFlags) *cobra.Command {
	var (
		wt     string
		rows   int
		start  int
		sort   string
		fields []string
		df     string
	)

	cmd := &cobra.Command{
		Use:   "search <index> <query>",
		Short: "Run a query and print the matching documents as JSON",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := g.client()
			if err != nil {
				return err
			}

			params := riak.Params{
				"wt":   wt,
				"sort": sort,
				"df":   df,
				"fl":   strings.Join(fields, ","),
			}
			if rows > 0 {
				params["rows"] = strconv.Itoa(rows)
			}
			if start > 0 {
				params["start"] = strconv.Itoa(start)
			}

			res, err := c.Solr().Search(commandContext(cmd), args[0], args[1], params)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), struct {
				NumFound int             `json:"num_found"`
				MaxScore float64         `json:"max_score"`
				Docs     []riak.Document `json:"docs"`
			}{res.NumFound, res.MaxScore, res.Docs})
		},
	}
	f := cmd.Flags()
	f.StringVar(&wt, "wt", "", "response format: json or xml")
	f.IntVar(&rows, "rows", 0, "maximum documents to return")
	f.IntVar(&start, "start", 0, "offset of the first document")
	f.StringVar(&sort, "sort", "", "sort field")
	f.StringSliceVar(&fields, "fl", nil, "fields to return")
	f.StringVar(&df, "df", "", "default field for bare terms")
	return cmd
}
