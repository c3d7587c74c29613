package main

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"annotcore/internal/config"
	"annotcore/internal/datastore"
	"annotcore/internal/repository"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	var name string
	var description string

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create an empty corpus in the repository directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			repo, err := repository.Create(commandCtx(cmd), cfg.Paths.RepositoryDir, repository.Options{
				Name:          name,
				Description:   description,
				MediaDir:      cfg.Paths.MediaDir,
				DatastoreFile: cfg.Datastore.Filename,
				Logger:        ctx.loggerValue(),
			})
			if err != nil {
				return err
			}
			defer repo.Close()
			if ctx.jsonOutput() {
				return writeJSON(cmd, repo.Definition())
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created corpus %q (%s) in %s\n", repo.Name(), repo.ID(), repo.Dir())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Corpus name (defaults to the directory name)")
	cmd.Flags().StringVar(&description, "description", "", "Corpus description")
	return cmd
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the corpus datastore",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				health, err := repo.Health(commandCtx(cmd))
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, health)
				}
				printHealth(cmd, repo, health)
				if !health.Healthy() {
					return fmt.Errorf("datastore %s is not healthy", health.Path)
				}
				return nil
			})
		},
	}
}

func printHealth(cmd *cobra.Command, repo *repository.Repository, h datastore.Health) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Corpus:    %s (%s)\n", repo.Name(), repo.ID())
	fmt.Fprintf(out, "Datastore: %s [%s]\n", h.Path, h.Driver)
	fmt.Fprintf(out, "Size:      %s\n", humanize.IBytes(uint64(max(h.SizeBytes, 0))))
	fmt.Fprintf(out, "Integrity: %s\n", h.Integrity)

	ids := make([]string, 0, len(h.LevelTables))
	for id := range h.LevelTables {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	rows := make([][]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, []string{id, yesNo(h.LevelTables[id]), humanize.Comma(h.ElementCount[id])})
	}
	if len(rows) > 0 {
		fmt.Fprintln(out, renderTable([]string{"Level", "Table", "Elements"}, rows, []columnAlignment{alignLeft, alignLeft, alignRight}, nil))
	}
}

func newStructureCommand(ctx *commandContext) *cobra.Command {
	structureCmd := &cobra.Command{
		Use:   "structure",
		Short: "Show, import or export the annotation structure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				return printStructure(cmd, ctx, repo)
			})
		},
	}

	structureCmd.AddCommand(&cobra.Command{
		Use:   "import <file.xml>",
		Short: "Create the levels declared in a structure document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			f, err := os.Open(path)
			if err != nil {
				return fmt.Errorf("open structure document: %w", err)
			}
			defer f.Close()
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				created, err := repo.ImportStructure(commandCtx(cmd), f)
				if err != nil {
					return err
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, created)
				}
				if len(created) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No new levels")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created levels: %s\n", strings.Join(created, ", "))
				return nil
			})
		},
	})

	structureCmd.AddCommand(&cobra.Command{
		Use:   "export",
		Short: "Write the structure document to stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				return writeStructureXML(cmd, repo)
			})
		},
	})

	return structureCmd
}

type levelView struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Parent     string   `json:"parent,omitempty"`
	DataType   string   `json:"datatype"`
	Attributes []string `json:"attributes,omitempty"`
}

func printStructure(cmd *cobra.Command, ctx *commandContext, repo *repository.Repository) error {
	st := repo.Structure()
	views := make([]levelView, 0, len(st.Levels()))
	for _, l := range st.Levels() {
		v := levelView{ID: l.ID, Kind: string(l.Kind), Parent: l.ParentLevelID, DataType: l.DataType.String()}
		for _, a := range l.Attributes {
			v.Attributes = append(v.Attributes, a.ID+":"+a.DataType.String())
		}
		views = append(views, v)
	}
	if ctx.jsonOutput() {
		return writeJSON(cmd, views)
	}
	if len(views) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No levels declared")
		return nil
	}
	rows := make([][]string, 0, len(views))
	for i, v := range views {
		rows = append(rows, []string{strconv.Itoa(i + 1), v.ID, v.Kind, v.Parent, v.DataType, strings.Join(v.Attributes, ", ")})
	}
	fmt.Fprintln(cmd.OutOrStdout(), renderTable(
		[]string{"#", "Level", "Kind", "Parent", "Type", "Attributes"},
		rows,
		[]columnAlignment{alignRight},
		nil,
	))
	return nil
}

func newAnnotationsCommand(ctx *commandContext) *cobra.Command {
	var activeOnly bool
	cmd := &cobra.Command{
		Use:   "annotations",
		Short: "List stored annotations and their speakers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRepository(cmd, "", func(repo *repository.Repository) error {
				store := repo.Annotations()
				ids, err := store.AnnotationIDs(commandCtx(cmd))
				if err != nil {
					return err
				}
				type view struct {
					ID       string   `json:"id"`
					Speakers []string `json:"speakers"`
				}
				views := make([]view, 0, len(ids))
				for _, id := range ids {
					speakers, err := store.SpeakersInAnnotation(commandCtx(cmd), id, activeOnly)
					if err != nil {
						return err
					}
					views = append(views, view{ID: id, Speakers: speakers})
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, views)
				}
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{v.ID, strings.Join(v.Speakers, ", ")})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Annotation", "Speakers"}, rows, nil, nil))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&activeOnly, "active", false, "Skip speakers with only blank or pause labels")
	return cmd
}
